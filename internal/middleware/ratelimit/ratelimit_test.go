package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowWindow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 2})
	defer rl.Stop()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Fatal("third request should be rejected")
	}
	if !rl.Allow("b") {
		t.Fatal("other clients are independent")
	}

	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatal("new window should reset the budget")
	}
	if rl.Rejected() != 1 {
		t.Errorf("Rejected = %d, want 1", rl.Rejected())
	}
}

func TestSweepForgetsIdleClients(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	defer rl.Stop()
	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.Allow("a")

	now = now.Add(11 * time.Minute)
	rl.sweep()
	if rl.ActiveClients() != 0 {
		t.Errorf("ActiveClients = %d, want 0", rl.ActiveClients())
	}
}

func TestMiddlewareOnlyLimitsListedMethods(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()

	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil, http.MethodPost)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func(method string) int {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/", nil))
		return rr.Code
	}

	if got := do(http.MethodPost); got != http.StatusNoContent {
		t.Fatalf("first POST = %d", got)
	}
	if got := do(http.MethodPost); got != http.StatusTooManyRequests {
		t.Fatalf("second POST = %d, want 429", got)
	}
	if got := do(http.MethodGet); got != http.StatusNoContent {
		t.Fatalf("GET should not be limited, got %d", got)
	}
}
