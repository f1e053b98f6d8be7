package http

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/services"
)

// sanitizeInput trims and drops control characters other than tab and
// newlines.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

// rowView is one rendered list entry.
type rowView struct {
	ID          int64
	Description string
	Category    string
	Date        string
	Amount      string
	Type        string
}

type categoryView struct {
	Name   string
	Amount string
	Width  int
}

type summaryView struct {
	Balance      string
	Income       string
	Expense      string
	Count        int
	Negative     bool
	Categories   []categoryView
	MemoryOnly   bool
	HasBreakdown bool
}

type pageView struct {
	Today   string
	Query   string
	Summary summaryView
	Rows    []rowView
}

func newRows(items []core.Transaction) []rowView {
	rows := make([]rowView, 0, len(items))
	for _, tx := range items {
		category := tx.Category
		if category == "" {
			category = core.UncategorizedLabel
		}
		rows = append(rows, rowView{
			ID:          tx.ID,
			Description: tx.Description,
			Category:    category,
			Date:        tx.Date.String(),
			Amount:      core.FormatCurrency(tx.Amount.Cents),
			Type:        string(tx.Type),
		})
	}
	return rows
}

func newSummaryView(d services.Dashboard) summaryView {
	sv := summaryView{
		Balance:      core.FormatCurrency(d.Summary.Balance.Cents),
		Income:       core.FormatCurrency(d.Summary.TotalIncome.Cents),
		Expense:      core.FormatCurrency(d.Summary.TotalExpense.Cents),
		Count:        d.Summary.Count,
		Negative:     d.Summary.Balance.Cents < 0,
		MemoryOnly:   d.MemoryOnly,
		HasBreakdown: len(d.Summary.Breakdown) > 0,
	}
	var maxCents int64
	for _, c := range d.Summary.Breakdown {
		maxCents = max(maxCents, c.Amount.Cents)
	}
	for _, c := range d.Summary.Breakdown {
		width := 0
		if maxCents > 0 {
			// rounded percent, at least 2 so tiny categories stay visible
			width = max(int((c.Amount.Cents*100+maxCents/2)/maxCents), 2)
		}
		sv.Categories = append(sv.Categories, categoryView{
			Name:   c.Name,
			Amount: core.FormatCurrency(c.Amount.Cents),
			Width:  width,
		})
	}
	return sv
}

func newPageView(d services.Dashboard, now time.Time) pageView {
	return pageView{
		Today:   now.Format(core.DateLayout),
		Query:   d.Query,
		Summary: newSummaryView(d),
		Rows:    newRows(d.Items),
	}
}

var templateFuncs = template.FuncMap{
	"joinIDs": func(rows []rowView) string {
		var b strings.Builder
		for i, r := range rows {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.FormatInt(r.ID, 10))
		}
		return b.String()
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
