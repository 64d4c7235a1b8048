package httpserver

import (
	"bytes"
	"net/http"

	domainerrors "github.com/dummy-library/inventory-core/internal/errors"
	"github.com/dummy-library/inventory-core/internal/idempotency"
)

type responseCapture struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rw *responseCapture) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *responseCapture) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

// idempotencyMiddleware replays a cached response for a repeated
// (X-Idempotency-Key, X-User-Email, endpoint) triple per spec §4.3,
// requiring the key header on the endpoints it wraps.
func idempotencyMiddleware(cache *idempotency.Cache, endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-Idempotency-Key")
			if key == "" {
				domainerrors.Write(w, domainerrors.CodeIdempotencyKeyRequired, "X-Idempotency-Key header is required")
				return
			}
			userEmail := r.Header.Get("X-User-Email")

			cached, err := cache.Lookup(r.Context(), key, userEmail, endpoint)
			if err == nil && cached != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Idempotency-Replay", "true")
				w.WriteHeader(cached.StatusCode)
				w.Write(cached.Body)
				return
			}

			rec := &responseCapture{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status < 500 {
				cache.Save(r.Context(), key, userEmail, endpoint, rec.status, rec.body.Bytes())
			}
		})
	}
}
