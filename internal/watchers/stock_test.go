package watchers

import (
	"context"
	"testing"

	"github.com/dummy-library/inventory-core/internal/store"
)

func seededBook(t *testing.T, s store.Store) store.Book {
	t.Helper()
	book := store.Book{
		ISBN:            "9780132350884",
		Title:           "Clean Code",
		SellCents:       4599,
		BorrowCents:     399,
		StockCents:      2200,
		AvailableCopies: 1,
		SeededCopies:    1,
	}
	if err := s.SeedBook(t.Context(), book); err != nil {
		t.Fatalf("seed book: %v", err)
	}
	got, err := s.GetBookByISBN(t.Context(), book.ISBN)
	if err != nil {
		t.Fatalf("get seeded book: %v", err)
	}
	return got
}

func TestCheckStockSchedulesRestockOnLastCopy(t *testing.T) {
	s := store.NewMemoryStore()
	book := seededBook(t, s)

	err := s.WithTx(t.Context(), func(ctx context.Context, tx store.Tx) error {
		return CheckStock(ctx, tx, book)
	})
	if err != nil {
		t.Fatalf("CheckStock: %v", err)
	}

	jobs, total, err := s.ListJobs(t.Context(), store.JobFilter{Status: store.JobPending})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected exactly one pending job, got %d", total)
	}
	if jobs[0].Type != store.JobRestock {
		t.Fatalf("expected a restock job, got %q", jobs[0].Type)
	}
	if jobs[0].BookID == nil || *jobs[0].BookID != book.ID {
		t.Fatal("expected the job to reference the seeded book")
	}
}

func TestCheckStockIsIdempotentWhileAJobIsLive(t *testing.T) {
	s := store.NewMemoryStore()
	book := seededBook(t, s)

	run := func() error {
		return s.WithTx(t.Context(), func(ctx context.Context, tx store.Tx) error {
			return CheckStock(ctx, tx, book)
		})
	}

	if err := run(); err != nil {
		t.Fatalf("first CheckStock: %v", err)
	}
	if err := run(); err != nil {
		t.Fatalf("second CheckStock: %v", err)
	}

	_, total, err := s.ListJobs(t.Context(), store.JobFilter{})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected the second call to be a no-op, got %d jobs", total)
	}
}
