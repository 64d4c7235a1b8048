// Package idempotency implements the per (user, endpoint, key) response
// cache described in spec §4.3: lookups replay a prior response verbatim;
// writes are best-effort and never fail the request they're attached to.
package idempotency

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dummy-library/inventory-core/internal/store"
)

// DefaultTTL is how long a cached response stays valid after a successful
// write (spec §4.3: "expiresAt = now + 24h").
const DefaultTTL = 24 * time.Hour

// Cache is a thin wrapper over store.Store's idempotency table. Unlike the
// teacher's in-memory LRU, this cache is durable: the spec's data model
// lists IdempotencyKey as persisted state, not a process-local cache.
type Cache struct {
	store store.Store
	ttl   time.Duration
}

// New constructs a Cache backed by store.
func New(s store.Store) *Cache {
	return &Cache{store: s, ttl: DefaultTTL}
}

// Record is a previously cached response, ready to be replayed verbatim.
type Record struct {
	StatusCode int
	Body       []byte
}

// Lookup returns a cached response for (key, userID, endpoint) if one
// exists and has not expired. An expired record is deleted so the next
// request proceeds as if nothing were cached.
func (c *Cache) Lookup(ctx context.Context, key, userID, endpoint string) (*Record, error) {
	if key == "" {
		return nil, nil
	}
	rec, err := c.store.GetIdempotencyRecord(ctx, key, userID, endpoint)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	if time.Now().After(rec.ExpiresAt) {
		if derr := c.store.DeleteIdempotencyRecord(ctx, key, userID, endpoint); derr != nil {
			log.Warn().Err(derr).Str("endpoint", endpoint).Msg("idempotency.expire_cleanup_failed")
		}
		return nil, nil
	}
	return &Record{StatusCode: rec.StatusCode, Body: rec.Response}, nil
}

// Save stores a response for later replay. Only statusCode < 500 should be
// cached per spec §4.3; callers enforce that before calling Save. Storage
// failures are logged and swallowed — availability beats perfect
// idempotency.
func (c *Cache) Save(ctx context.Context, key, userID, endpoint string, statusCode int, body []byte) {
	if key == "" {
		return
	}
	err := c.store.PutIdempotencyRecord(ctx, store.IdempotencyRecord{
		Key:        key,
		UserID:     userID,
		Endpoint:   endpoint,
		Response:   body,
		StatusCode: statusCode,
		ExpiresAt:  time.Now().Add(c.ttl),
	})
	if err != nil {
		log.Warn().Err(err).Str("endpoint", endpoint).Msg("idempotency.save_failed")
	}
}
