// Package cacheutil provides the small read-through/write-through helpers
// shared by every cached read path in this service (currently the book
// catalog cache in internal/catalog).
package cacheutil

import (
	"sync"
	"time"
)

// WriteThrough runs operation and invalidates the cache only on success.
func WriteThrough(invalidate func(), operation func() error) error {
	if err := operation(); err != nil {
		return err
	}
	invalidate()
	return nil
}

// CachedValue pairs a value with the time it was fetched.
type CachedValue[T any] struct {
	Value     T
	FetchedAt time.Time
}

// ReadThrough implements a double-checked-locking read-through cache: check
// under RLock, and on a miss re-check under Lock before fetching, so
// concurrent misses collapse into one fetch.
func ReadThrough[T any](
	mu *sync.RWMutex,
	checkCache func(now time.Time) (T, bool),
	fetchAndCache func(now time.Time) (T, error),
) (T, error) {
	now := time.Now()
	mu.RLock()
	if value, ok := checkCache(now); ok {
		mu.RUnlock()
		return value, nil
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	nowAfterLock := time.Now()
	if value, ok := checkCache(nowAfterLock); ok {
		return value, nil
	}
	return fetchAndCache(nowAfterLock)
}
