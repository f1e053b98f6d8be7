package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"spendlog/internal/chart"
	"spendlog/internal/core"
	"spendlog/internal/services"
	"spendlog/internal/storage"
	"spendlog/internal/view"
)

func newTestServer(t *testing.T) (*Server, *services.Tracker) {
	t.Helper()
	store, err := services.OpenTransactionStore(context.Background(), storage.NewMemoryStore())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	pie := chart.NewPieRenderer(200, 200)
	tracker := services.NewTracker(store, services.TrackerConfig{Chart: pie})
	srv := NewServer(":0", tracker, pie, Options{RateLimitPerMinute: 1000})
	t.Cleanup(func() {
		tracker.Close()
		_ = srv.Shutdown(context.Background())
	})
	return srv, tracker
}

func do(srv *Server, method, target, body, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func postForm(srv *Server, v url.Values) *httptest.ResponseRecorder {
	return do(srv, http.MethodPost, "/transactions", v.Encode(), "application/x-www-form-urlencoded")
}

func candidate(desc, amount, typ, date, category string) core.Candidate {
	return core.Candidate{Description: desc, Amount: amount, Type: typ, Date: date, Category: category}
}

func form(desc, amount, typ, date, category string) url.Values {
	return url.Values{
		"description": {desc},
		"amount":      {amount},
		"type":        {typ},
		"date":        {date},
		"category":    {category},
	}
}

func TestIndexAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(srv, http.MethodGet, "/", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Expense Tracker") {
		t.Fatalf("index body missing heading")
	}
	if !strings.Contains(body, `id="transaction-list"`) {
		t.Fatalf("index body missing list")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing request id header")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(srv, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestStaticAssets(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"/static/app.js", "/static/app.css"} {
		rr := do(srv, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestCreateTransactionForm(t *testing.T) {
	srv, tracker := newTestServer(t)

	rr := postForm(srv, form("Coffee", "4.50", "expense", "2024-01-01", "Food"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	trig := rr.Header().Get("HX-Trigger")
	for _, ev := range []string{EventTransactionCreated, EventFormReset, EventToast} {
		if !strings.Contains(trig, ev) {
			t.Fatalf("HX-Trigger %q missing %s", trig, ev)
		}
	}
	if !strings.Contains(rr.Body.String(), "Coffee") || !strings.Contains(rr.Body.String(), "$4.50") {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
	if n := tracker.Store().Len(); n != 1 {
		t.Fatalf("expected 1 transaction, got %d", n)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	srv, tracker := newTestServer(t)

	cases := []struct {
		name string
		v    url.Values
	}{
		{"missing description", form("", "4.50", "expense", "2024-01-01", "Food")},
		{"bad amount", form("Coffee", "abc", "expense", "2024-01-01", "Food")},
		{"zero amount", form("Coffee", "0", "expense", "2024-01-01", "Food")},
		{"bad type", form("Coffee", "4.50", "gift", "2024-01-01", "Food")},
		{"bad date", form("Coffee", "4.50", "expense", "01/02/2024", "Food")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := postForm(srv, tc.v)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", rr.Code)
			}
			if !strings.Contains(rr.Header().Get("HX-Trigger"), `"level":"error"`) {
				t.Fatalf("expected error toast, got %q", rr.Header().Get("HX-Trigger"))
			}
		})
	}
	if n := tracker.Store().Len(); n != 0 {
		t.Fatalf("rejected input must not be stored, got %d", n)
	}
}

func TestCreateTransactionJSON(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(srv, http.MethodPost, "/transactions",
		`{"description":"Salary","amount":2000,"type":"income","date":"2024-01-02","category":"Job"}`,
		"application/json")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var got struct {
		ID     int64   `json:"id"`
		Amount float64 `json:"amount"`
		Type   string  `json:"type"`
		Date   string  `json:"date"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID <= 0 || got.Amount != 2000 || got.Type != "income" || got.Date != "2024-01-02" {
		t.Fatalf("unexpected transaction %+v", got)
	}

	rr = do(srv, http.MethodPost, "/transactions", `{"description":"x","amount":-1,"type":"expense","date":"2024-01-02","category":"y"}`, "application/json")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	var verr map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &verr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if verr["kind"] != "invalid_amount" || verr["field"] != "amount" {
		t.Fatalf("unexpected error body %v", verr)
	}
}

func TestDeleteTransaction(t *testing.T) {
	srv, tracker := newTestServer(t)
	tx, err := tracker.AddTransaction(context.Background(), candidate("Coffee", "4.50", "expense", "2024-01-01", "Food"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	id := strconv.FormatInt(tx.ID, 10)

	rr := do(srv, http.MethodDelete, "/transactions/"+id, "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), EventTransactionDeleted) {
		t.Fatalf("missing delete trigger")
	}
	if tracker.Store().Len() != 0 {
		t.Fatalf("transaction not removed")
	}

	// second delete of the same id is a stale page, not an error
	rr = do(srv, http.MethodDelete, "/transactions/"+id, "", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}

	rr = do(srv, http.MethodDelete, "/transactions/abc", "", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestDeleteTransactionFormFallback(t *testing.T) {
	srv, tracker := newTestServer(t)
	tx, err := tracker.AddTransaction(context.Background(), candidate("Coffee", "4.50", "expense", "2024-01-01", "Food"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	rr := do(srv, http.MethodPost, "/transactions/"+strconv.FormatInt(tx.ID, 10)+"/delete", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if tracker.Store().Len() != 0 {
		t.Fatalf("transaction not removed")
	}
}

func seed(t *testing.T, tracker *services.Tracker) (coffee, salary int64) {
	t.Helper()
	ctx := context.Background()
	c, err := tracker.AddTransaction(ctx, candidate("Coffee", "4.50", "expense", "2024-01-01", "Food"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	s, err := tracker.AddTransaction(ctx, candidate("Salary", "2000", "income", "2024-01-02", "Job"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	return c.ID, s.ID
}

func TestAPITransactionsOrderAndSearch(t *testing.T) {
	srv, tracker := newTestServer(t)
	coffee, salary := seed(t, tracker)

	var items []struct {
		ID int64 `json:"id"`
	}
	rr := do(srv, http.MethodGet, "/api/transactions", "", "")
	if err := json.Unmarshal(rr.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 2 || items[0].ID != salary || items[1].ID != coffee {
		t.Fatalf("expected newest date first, got %+v", items)
	}

	rr = do(srv, http.MethodGet, "/api/transactions?q=FOOD", "", "")
	items = nil
	if err := json.Unmarshal(rr.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || items[0].ID != coffee {
		t.Fatalf("expected only coffee, got %+v", items)
	}

	rr = do(srv, http.MethodGet, "/api/transactions?q=nomatch", "", "")
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %q", rr.Body.String())
	}
}

func TestListPartialFiltersRows(t *testing.T) {
	srv, tracker := newTestServer(t)
	seed(t, tracker)

	rr := do(srv, http.MethodGet, "/ui/list?q=salary", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Salary") || strings.Contains(body, "Coffee") {
		t.Fatalf("unexpected list body %q", body)
	}
	if !strings.Contains(body, "income-item") {
		t.Fatalf("row missing type class")
	}
}

func TestAPIPatch(t *testing.T) {
	srv, tracker := newTestServer(t)
	coffee, salary := seed(t, tracker)

	var patch patchResponse
	rr := do(srv, http.MethodGet, "/api/transactions/patch", "", "")
	if err := json.Unmarshal(rr.Body.Bytes(), &patch); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(patch.Ops) != 2 || patch.Ops[0].ID != salary || patch.Ops[1].ID != coffee {
		t.Fatalf("expected two inserts, got %+v", patch.Ops)
	}
	if patch.Ops[1].Index != 1 {
		t.Fatalf("coffee should insert at 1, got %d", patch.Ops[1].Index)
	}
	if !strings.Contains(patch.Rows[strconv.FormatInt(coffee, 10)], "Coffee") {
		t.Fatalf("missing rendered row for coffee: %v", patch.Rows)
	}

	shown := strconv.FormatInt(salary, 10) + "," + strconv.FormatInt(coffee, 10)
	patch = patchResponse{}
	rr = do(srv, http.MethodGet, "/api/transactions/patch?shown="+shown, "", "")
	if err := json.Unmarshal(rr.Body.Bytes(), &patch); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(patch.Ops) != 0 {
		t.Fatalf("up to date client needs no ops, got %+v", patch.Ops)
	}

	dup := shown + "," + strconv.FormatInt(coffee, 10)
	patch = patchResponse{}
	rr = do(srv, http.MethodGet, "/api/transactions/patch?shown="+dup, "", "")
	if err := json.Unmarshal(rr.Body.Bytes(), &patch); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(patch.Ops) != 1 || patch.Ops[0].Kind != view.OpRemove || patch.Ops[0].ID != coffee {
		t.Fatalf("repeated row should be removed once, got %+v", patch.Ops)
	}

	rr = do(srv, http.MethodGet, "/api/transactions/patch?shown=x", "", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestAPISummary(t *testing.T) {
	srv, tracker := newTestServer(t)
	seed(t, tracker)

	var got summaryJSON
	rr := do(srv, http.MethodGet, "/api/summary", "", "")
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Balance != "1995.50" || got.TotalIncome != "2000.00" || got.TotalExpense != "4.50" {
		t.Fatalf("unexpected totals %+v", got)
	}
	if got.Display["balance"] != "$1995.50" {
		t.Fatalf("unexpected display balance %q", got.Display["balance"])
	}
	if len(got.Breakdown) != 1 || got.Breakdown[0].Category != "Food" || got.Breakdown[0].Amount != "4.50" {
		t.Fatalf("unexpected breakdown %+v", got.Breakdown)
	}
	if got.Count != 2 {
		t.Fatalf("count=%d", got.Count)
	}
}

func TestChart(t *testing.T) {
	srv, tracker := newTestServer(t)

	rr := do(srv, http.MethodGet, "/chart.png", "", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 without expenses, got %d", rr.Code)
	}

	seed(t, tracker)
	rr = do(srv, http.MethodGet, "/chart.png", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("body is not a PNG")
	}
	etag := rr.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}

	req := httptest.NewRequest(http.MethodGet, "/chart.png", nil)
	req.Header.Set("If-None-Match", etag)
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", rr.Code)
	}
}

func TestRateLimitOnlyMutations(t *testing.T) {
	store, err := services.OpenTransactionStore(context.Background(), storage.NewMemoryStore())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	tracker := services.NewTracker(store, services.TrackerConfig{})
	srv := NewServer(":0", tracker, nil, Options{RateLimitPerMinute: 1})
	defer func() { _ = srv.Shutdown(context.Background()) }()

	if rr := postForm(srv, form("Coffee", "4.50", "expense", "2024-01-01", "Food")); rr.Code != http.StatusOK {
		t.Fatalf("first post status=%d", rr.Code)
	}
	rr := postForm(srv, form("Tea", "3.00", "expense", "2024-01-01", "Food"))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	for i := 0; i < 3; i++ {
		if rr := do(srv, http.MethodGet, "/api/transactions", "", ""); rr.Code != http.StatusOK {
			t.Fatalf("reads must not be limited, got %d", rr.Code)
		}
	}
}
