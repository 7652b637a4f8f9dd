package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	authguard "github.com/farmstack/authguard"
)

func newTestGuard(t *testing.T) *authguard.Guard {
	t.Helper()

	cfg := authguard.DefaultConfig()
	cfg.Sweep.Enabled = false

	guard, err := authguard.New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(guard.Close)

	return guard
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit_DenyWritesRetryAfter(t *testing.T) {
	guard := newTestGuard(t)
	policy := authguard.Policy{
		Name:        "test",
		Window:      time.Minute,
		MaxRequests: 2,
		Message:     "too many requests",
		StatusCode:  http.StatusTooManyRequests,
	}

	handler := RateLimit(guard, policy)(okHandler())

	for i := 1; i <= 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "203.0.113.7:51000"
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "203.0.113.7:51000"
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}

	retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	if err != nil || retryAfter <= 0 || retryAfter > 60 {
		t.Fatalf("expected Retry-After within the window, got %q", rec.Header().Get("Retry-After"))
	}

	var body struct {
		Error             string `json:"error"`
		RetryAfterSeconds int    `json:"retry_after_seconds"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if body.Error != "too many requests" {
		t.Fatalf("expected policy message, got %q", body.Error)
	}
	if body.RetryAfterSeconds != retryAfter {
		t.Fatalf("expected body retry %d to match header %d", body.RetryAfterSeconds, retryAfter)
	}
}

func TestRateLimit_DistinctClientsHaveDistinctBudgets(t *testing.T) {
	guard := newTestGuard(t)
	policy := authguard.Policy{
		Name:        "test",
		Window:      time.Minute,
		MaxRequests: 1,
		Message:     "too many requests",
		StatusCode:  http.StatusTooManyRequests,
	}

	handler := RateLimit(guard, policy)(okHandler())

	for _, addr := range []string{"203.0.113.7:51000", "203.0.113.8:51000"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api", nil)
		req.RemoteAddr = addr
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("client %s: expected 200, got %d", addr, rec.Code)
		}
	}
}

func TestRateLimit_ForwardedForTakesPrecedence(t *testing.T) {
	guard := newTestGuard(t)
	policy := authguard.Policy{
		Name:        "test",
		Window:      time.Minute,
		MaxRequests: 1,
		Message:     "too many requests",
		StatusCode:  http.StatusTooManyRequests,
	}

	handler := RateLimit(guard, policy)(okHandler())

	// Same proxy address, different forwarded clients: both pass.
	for _, client := range []string{"198.51.100.1", "198.51.100.2"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api", nil)
		req.RemoteAddr = "10.0.0.1:443"
		req.Header.Set("X-Forwarded-For", client+", 10.0.0.1")
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("client %s: expected 200, got %d", client, rec.Code)
		}
	}

	// Repeat of the first forwarded client: denied.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.RemoteAddr = "10.0.0.1:443"
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for repeated forwarded client, got %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		realIP     string
		want       string
	}{
		{"forwarded first value", "10.0.0.1:443", "198.51.100.1, 10.0.0.1", "", "198.51.100.1"},
		{"forwarded single value", "10.0.0.1:443", "198.51.100.9", "", "198.51.100.9"},
		{"real ip fallback", "10.0.0.1:443", "", "198.51.100.2", "198.51.100.2"},
		{"remote addr fallback", "203.0.113.7:51000", "", "", "203.0.113.7"},
		{"remote addr without port", "203.0.113.7", "", "", "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}

			if got := ClientIP(req); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestBruteForceGate_RejectsLockedIdentity(t *testing.T) {
	guard := newTestGuard(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		guard.RecordFailure(ctx, "u@example.com")
	}

	identity := func(r *http.Request) string { return r.Header.Get("X-Test-Identity") }
	handler := BruteForceGate(guard, identity)(okHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set("X-Test-Identity", "u@example.com")
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for locked identity, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}

	// Unlocked identity passes through.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set("X-Test-Identity", "other@example.com")
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for clear identity, got %d", rec.Code)
	}
}

func TestBruteForceGate_EmptyIdentityPassesThrough(t *testing.T) {
	guard := newTestGuard(t)
	handler := BruteForceGate(guard, func(*http.Request) string { return "" })(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
