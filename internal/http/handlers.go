package http

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spendlog/internal/chart"
	"spendlog/internal/core"
	"spendlog/internal/log"
	"spendlog/internal/services"
	"spendlog/internal/view"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady fails only when templates are missing. Memory-only storage is
// reported but still serves.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status, code := "ready", http.StatusOK
	checks := map[string]any{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.tracker.Store().MemoryOnly() {
		checks["storage"] = "memory_only"
	} else {
		checks["storage"] = "ok"
	}
	checks["transactions"] = s.tracker.Store().Len()
	checks["chart_cache_entries"] = s.chartCache.Size()
	checks["rate_limited_clients"] = s.limiter.ActiveClients()

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			"error_type", log.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	d := s.tracker.Dashboard(searchQuery(r))
	s.render(w, r, "index.html", newPageView(d, time.Now()))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		logger.WarnContext(ctx, "Malformed transaction request", log.FieldError, err)
		BadRequestError("Malformed request").Write(w)
		return
	}

	tx, err := s.tracker.AddTransaction(ctx, p.Candidate())
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		logger.InfoContext(ctx, "Transaction rejected",
			log.FieldOperation, log.OpValidate,
			"kind", verr.Kind,
			"field", verr.Field)
		if p.IsJSON() {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": verr.Error(),
				"kind":  string(verr.Kind),
				"field": verr.Field,
			})
			return
		}
		ValidationError(capitalize(verr.Error())).Write(w)
		return
	case err != nil && !errors.Is(err, services.ErrPersistence):
		logger.ErrorContext(ctx, "Adding transaction failed", log.FieldError, err)
		InternalServerError("Could not save the transaction").Write(w)
		return
	}
	persisted := err == nil

	if p.IsJSON() {
		writeJSON(w, http.StatusCreated, tx)
		return
	}

	resp := NewHTMXResponse().
		TriggerTransactionCreated(tx.ID).
		TriggerFormReset()
	if persisted {
		resp.TriggerToast(ToastSuccess, "Transaction added")
	} else {
		resp.TriggerToast(ToastWarning, "Saved in memory only: storage is unavailable")
	}
	resp.BodyHTML(`<div class="success">Added ` + template.HTMLEscapeString(tx.Description) + ` (` + core.FormatCurrency(tx.Amount.Cents) + `)</div>`).
		Write(w)
}

// handleDeleteTransaction answers 204 for ids that do not exist: a stale
// page is not an error worth showing.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := parseID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	removed, err := s.tracker.DeleteTransaction(ctx, id)
	if err != nil && !errors.Is(err, services.ErrPersistence) {
		log.FromContext(ctx).ErrorContext(ctx, "Deleting transaction failed", log.FieldTxID, id, log.FieldError, err)
		InternalServerError("Could not delete the transaction").Write(w)
		return
	}
	if !removed {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := NewHTMXResponse().TriggerTransactionDeleted(id)
	if err != nil {
		resp.TriggerToast(ToastWarning, "Deleted in memory only: storage is unavailable")
	}
	resp.Write(w)
}

func (s *Server) handleListPartial(w http.ResponseWriter, r *http.Request) {
	d := s.tracker.Dashboard(searchQuery(r))
	s.render(w, r, "list.html", newPageView(d, time.Now()))
}

func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	d := s.tracker.Dashboard("")
	s.render(w, r, "summary.html", newPageView(d, time.Now()))
}

func (s *Server) handleAPITransactions(w http.ResponseWriter, r *http.Request) {
	items := s.tracker.Dashboard(searchQuery(r)).Items
	if items == nil {
		items = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, items)
}

type patchResponse struct {
	Mode  view.Mode         `json:"mode"`
	Query string            `json:"query"`
	Ops   []view.Op         `json:"ops"`
	IDs   []int64           `json:"ids"`
	Rows  map[string]string `json:"rows"`
}

// handleAPIPatch returns the edits that bring a client's list up to date,
// with rendered markup for every inserted row.
func (s *Server) handleAPIPatch(w http.ResponseWriter, r *http.Request) {
	shown, err := ParseShown(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	ops, d := s.tracker.Patch(shown, searchQuery(r))

	resp := patchResponse{
		Mode:  s.tracker.Mode(),
		Query: d.Query,
		Ops:   ops,
		IDs:   view.IDs(d.Items),
		Rows:  map[string]string{},
	}
	if resp.Ops == nil {
		resp.Ops = []view.Op{}
	}
	if resp.IDs == nil {
		resp.IDs = []int64{}
	}

	byID := make(map[int64]core.Transaction, len(d.Items))
	for _, tx := range d.Items {
		byID[tx.ID] = tx
	}
	for _, op := range ops {
		if op.Kind != view.OpInsert || s.templates == nil {
			continue
		}
		var buf bytes.Buffer
		if err := s.templates.ExecuteTemplate(&buf, "row", newRows([]core.Transaction{byID[op.ID]})[0]); err != nil {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Row template failed", log.FieldTxID, op.ID, log.FieldError, err)
			continue
		}
		resp.Rows[strconv.FormatInt(op.ID, 10)] = buf.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

type categoryJSON struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

type summaryJSON struct {
	Balance      string            `json:"balance"`
	TotalIncome  string            `json:"totalIncome"`
	TotalExpense string            `json:"totalExpense"`
	Display      map[string]string `json:"display"`
	Breakdown    []categoryJSON    `json:"breakdown"`
	Count        int               `json:"count"`
	MemoryOnly   bool              `json:"memoryOnly"`
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	d := s.tracker.Dashboard("")
	sum := d.Summary
	out := summaryJSON{
		Balance:      sum.Balance.String(),
		TotalIncome:  sum.TotalIncome.String(),
		TotalExpense: sum.TotalExpense.String(),
		Display: map[string]string{
			"balance":      core.FormatCurrency(sum.Balance.Cents),
			"totalIncome":  core.FormatCurrency(sum.TotalIncome.Cents),
			"totalExpense": core.FormatCurrency(sum.TotalExpense.Cents),
		},
		Breakdown:  make([]categoryJSON, 0, len(sum.Breakdown)),
		Count:      sum.Count,
		MemoryOnly: d.MemoryOnly,
	}
	for _, c := range sum.Breakdown {
		out.Breakdown = append(out.Breakdown, categoryJSON{Category: c.Name, Amount: c.Amount.String()})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleChart serves the breakdown as PNG. Renders are cached by dataset
// fingerprint, which also serves as the ETag. Both come from one snapshot so
// a concurrent update cannot pair a fingerprint with another dataset.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	snap := s.pie.Snapshot()
	fp := snap.Fingerprint()
	etag := `"` + fp + `"`
	w.Header().Set("Cache-Control", "no-cache")

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	png, ok := s.chartCache.Get(fp)
	if !ok {
		var buf bytes.Buffer
		err := snap.Render(&buf)
		if errors.Is(err, chart.ErrNoData) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if err != nil {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Chart render failed",
				log.FieldOperation, log.OpRender, log.FieldError, err)
			http.Error(w, "chart unavailable", http.StatusInternalServerError)
			return
		}
		png = buf.Bytes()
		s.chartCache.Set(fp, png)
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			"template", name, log.FieldError, err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
