// Package ratelimit wraps go-chi/httprate with the JSON error envelope and
// metrics hook this service uses everywhere, grounded on the teacher's
// httprate-based global/per-identity limiter middleware.
package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/dummy-library/inventory-core/internal/metrics"
)

// Config controls the two rate-limit scopes this service enforces.
type Config struct {
	GlobalEnabled bool
	GlobalLimit   int
	GlobalWindow  time.Duration

	PerUserEnabled bool
	PerUserLimit   int
	PerUserWindow  time.Duration

	Metrics *metrics.Metrics
}

// DefaultConfig returns generous limits meant to stop spam, not legitimate traffic.
func DefaultConfig() Config {
	return Config{
		GlobalEnabled:  true,
		GlobalLimit:    600,
		GlobalWindow:   time.Minute,
		PerUserEnabled: true,
		PerUserLimit:   30,
		PerUserWindow:  time.Minute,
	}
}

type limitResponse struct {
	Error             string `json:"error"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retry_after_seconds"`
}

func limitHandler(scope string, windowSeconds int, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.ObserveRateLimit(scope)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", strconv.Itoa(windowSeconds))
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(limitResponse{
			Error:             "rate_limit_exceeded",
			Message:           scope + " rate limit exceeded, please try again later",
			RetryAfterSeconds: windowSeconds,
		})
	}
}

// Global limits total request volume regardless of caller identity.
func Global(cfg Config) func(http.Handler) http.Handler {
	if !cfg.GlobalEnabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		cfg.GlobalLimit,
		cfg.GlobalWindow,
		httprate.WithLimitHandler(limitHandler("global", int(cfg.GlobalWindow.Seconds()), cfg.Metrics)),
	)
}

// PerUser limits requests keyed by the caller's X-User-Email header,
// falling back to remote IP when the header is absent.
func PerUser(cfg Config) func(http.Handler) http.Handler {
	if !cfg.PerUserEnabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		cfg.PerUserLimit,
		cfg.PerUserWindow,
		httprate.WithKeyFuncs(userKeyExtractor),
		httprate.WithLimitHandler(limitHandler("per_user", int(cfg.PerUserWindow.Seconds()), cfg.Metrics)),
	)
}

func userKeyExtractor(r *http.Request) (string, error) {
	if email := r.Header.Get("X-User-Email"); email != "" {
		return email, nil
	}
	return httprate.KeyByIP(r)
}
