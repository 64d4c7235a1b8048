package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dummy-library/inventory-core/internal/metrics"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestGlobalDisabledPassesThrough(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GlobalEnabled = false
	mw := Global(cfg)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	mw(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected disabled limiter to pass through, got %d", rec.Code)
	}
}

func TestGlobalEnforcesLimit(t *testing.T) {
	cfg := Config{
		GlobalEnabled: true,
		GlobalLimit:   1,
		GlobalWindow:  time.Minute,
		Metrics:       metrics.New(prometheus.NewRegistry()),
	}
	mw := Global(cfg)
	handler := mw(okHandler())

	req1 := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected the first request to pass, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected the second request to be rate limited, got %d", rec2.Code)
	}
	if rec2.Header().Get("Retry-After") == "" {
		t.Fatal("expected a Retry-After header on the rejected response")
	}
}

func TestPerUserKeysByUserEmailHeader(t *testing.T) {
	cfg := Config{
		PerUserEnabled: true,
		PerUserLimit:   1,
		PerUserWindow:  time.Minute,
		Metrics:        metrics.New(prometheus.NewRegistry()),
	}
	mw := PerUser(cfg)
	handler := mw(okHandler())

	reqA1 := httptest.NewRequest(http.MethodPost, "/api/books/9780132350884/borrow", nil)
	reqA1.Header.Set("X-User-Email", "a@example.com")
	recA1 := httptest.NewRecorder()
	handler.ServeHTTP(recA1, reqA1)
	if recA1.Code != http.StatusOK {
		t.Fatalf("expected user A's first request to pass, got %d", recA1.Code)
	}

	reqA2 := httptest.NewRequest(http.MethodPost, "/api/books/9780132350884/borrow", nil)
	reqA2.Header.Set("X-User-Email", "a@example.com")
	recA2 := httptest.NewRecorder()
	handler.ServeHTTP(recA2, reqA2)
	if recA2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected user A's second request to be limited, got %d", recA2.Code)
	}

	reqB1 := httptest.NewRequest(http.MethodPost, "/api/books/9780132350884/borrow", nil)
	reqB1.Header.Set("X-User-Email", "b@example.com")
	recB1 := httptest.NewRecorder()
	handler.ServeHTTP(recB1, reqB1)
	if recB1.Code != http.StatusOK {
		t.Fatalf("expected a different user's request to pass independently, got %d", recB1.Code)
	}
}
