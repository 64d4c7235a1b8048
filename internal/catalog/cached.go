package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dummy-library/inventory-core/internal/cacheutil"
	"github.com/dummy-library/inventory-core/internal/store"
)

// Reader is the read-only view GET /api/books needs.
type Reader interface {
	ListBooks(ctx context.Context, filter store.BookFilter) ([]store.Book, int, error)
	GetBookByISBN(ctx context.Context, isbn string) (store.Book, error)
}

type listResult struct {
	books []store.Book
	total int
}

// Cached wraps a store.Store with a TTL-bounded cache over ListBooks; each
// distinct filter gets its own cache entry. Inventory counters change on
// every borrow/buy, so a short TTL (seconds, not minutes) keeps staleness
// bounded without re-querying on every page view.
type Cached struct {
	underlying store.Store
	ttl        time.Duration

	mu    sync.RWMutex
	cache map[string]cacheutil.CachedValue[listResult]
}

// NewCached wraps underlying with a cache of the given TTL. ttl=0 disables
// caching and every call passes through.
func NewCached(underlying store.Store, ttl time.Duration) *Cached {
	return &Cached{underlying: underlying, ttl: ttl}
}

// ListBooks returns a cached page if one is fresh for this exact filter,
// otherwise fetches from the underlying store and caches the result.
func (c *Cached) ListBooks(ctx context.Context, filter store.BookFilter) ([]store.Book, int, error) {
	if c.ttl == 0 {
		return c.underlying.ListBooks(ctx, filter)
	}

	key := filterKey(filter)
	result, err := cacheutil.ReadThrough(
		&c.mu,
		func(now time.Time) (listResult, bool) {
			entry, ok := c.cache[key]
			if !ok || now.Sub(entry.FetchedAt) >= c.ttl {
				return listResult{}, false
			}
			return entry.Value, true
		},
		func(now time.Time) (listResult, error) {
			books, total, err := c.underlying.ListBooks(ctx, filter)
			if err != nil {
				return listResult{}, err
			}
			if c.cache == nil {
				c.cache = make(map[string]cacheutil.CachedValue[listResult])
			}
			c.cache[key] = cacheutil.CachedValue[listResult]{Value: listResult{books, total}, FetchedAt: now}
			return listResult{books, total}, nil
		},
	)
	if err != nil {
		return nil, 0, err
	}
	return result.books, result.total, nil
}

// GetBookByISBN passes straight through; single-ISBN lookups are cheap
// enough that caching them buys little over the availableCopies staleness
// it would introduce on the borrow/buy hot path.
func (c *Cached) GetBookByISBN(ctx context.Context, isbn string) (store.Book, error) {
	return c.underlying.GetBookByISBN(ctx, isbn)
}

// Invalidate clears every cached listing, e.g. after an admin reseed.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = nil
}

func filterKey(f store.BookFilter) string {
	return fmt.Sprintf("title=%s|author=%s|genre=%s|page=%d|pageSize=%d", f.Title, f.Author, f.Genre, f.Page, f.PageSize)
}
