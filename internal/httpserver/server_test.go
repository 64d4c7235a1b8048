package httpserver

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/dummy-library/inventory-core/internal/borrow"
	"github.com/dummy-library/inventory-core/internal/circuitbreaker"
	"github.com/dummy-library/inventory-core/internal/config"
	"github.com/dummy-library/inventory-core/internal/idempotency"
	"github.com/dummy-library/inventory-core/internal/metrics"
	"github.com/dummy-library/inventory-core/internal/purchase"
	"github.com/dummy-library/inventory-core/internal/store"
)

const testBookISBN = "9780132350884"

// newTestHandlers builds a handlers value backed by an in-memory store with
// one seeded book, for exercising HTTP handlers without a router.
func newTestHandlers(t *testing.T) handlers {
	t.Helper()

	s := store.NewMemoryStore()
	if err := s.SeedBook(t.Context(), store.Book{
		ISBN:            testBookISBN,
		Title:           "Clean Code",
		Author:          "Robert C. Martin",
		Genre:           "Software Engineering",
		SellCents:       4599,
		BorrowCents:     399,
		StockCents:      2200,
		AvailableCopies: 2,
		SeededCopies:    2,
	}); err != nil {
		t.Fatalf("seed book: %v", err)
	}

	cfg := &config.Config{
		Admin: config.AdminConfig{Email: "admin@dummy-library.com"},
	}

	return handlers{
		cfg:            cfg,
		store:          s,
		catalog:        s,
		borrowEngine:   borrow.New(s),
		purchaseEngine: purchase.New(s),
		idempotency:    idempotency.New(s),
		metrics:        metrics.New(prometheus.NewRegistry()),
		breaker:        circuitbreaker.New(circuitbreaker.DefaultConfig()),
		hub:            newJobHub(zerolog.Nop()),
		logger:         zerolog.Nop(),
	}
}
