package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dummy-library/inventory-core/internal/store"
)

func seedActiveBorrow(t *testing.T, s store.Store) (store.Book, store.Borrow) {
	t.Helper()
	book := store.Book{
		ID:              "book-1",
		ISBN:            "isbn-1",
		Title:           "Test Book",
		Author:          "A. Author",
		SellCents:       1500,
		BorrowCents:     300,
		StockCents:      200,
		AvailableCopies: 5,
		SeededCopies:    5,
	}
	if err := s.SeedBook(context.Background(), book); err != nil {
		t.Fatalf("seed book: %v", err)
	}

	activeKey := "user-1:book-1"
	borrow := store.Borrow{
		ID:         "borrow-1",
		UserID:     "user-1",
		BookID:     book.ID,
		BorrowedAt: time.Now().UTC().Add(-72 * time.Hour),
		DueAt:      time.Now().UTC(),
		Status:     store.BorrowActive,
		ActiveKey:  &activeKey,
	}
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.InsertBorrow(ctx, borrow)
	})
	if err != nil {
		t.Fatalf("insert borrow: %v", err)
	}
	return book, borrow
}

func reminderJob(borrowID, userEmail string) store.Job {
	payload, _ := json.Marshal(map[string]string{"borrowId": borrowID, "userEmail": userEmail})
	return store.Job{ID: "job-1", Type: store.JobReminder, Payload: payload, MaxAttempts: 10}
}

func TestReminder_Success(t *testing.T) {
	s := store.NewMemoryStore()
	_, borrow := seedActiveBorrow(t, s)

	job := reminderJob(borrow.ID, "reader@example.com")
	if err := Reminder(context.Background(), s, job); err != nil {
		t.Fatalf("Reminder: %v", err)
	}

	var found *store.SimulatedEmail
	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		found, err = tx.GetEmailByDedupe(ctx, "REMINDER:"+borrow.ID)
		return err
	})
	if err != nil {
		t.Fatalf("GetEmailByDedupe: %v", err)
	}
	if found == nil {
		t.Fatalf("expected a reminder email to be recorded")
	}
	if found.Recipient != "reader@example.com" {
		t.Fatalf("expected recipient reader@example.com, got %s", found.Recipient)
	}
}

func TestReminder_IdempotentOnRepeat(t *testing.T) {
	s := store.NewMemoryStore()
	_, borrow := seedActiveBorrow(t, s)
	job := reminderJob(borrow.ID, "reader@example.com")

	if err := Reminder(context.Background(), s, job); err != nil {
		t.Fatalf("Reminder (first): %v", err)
	}
	if err := Reminder(context.Background(), s, job); err != nil {
		t.Fatalf("Reminder (second): %v", err)
	}
}

func TestReminder_NoOpWhenAlreadyReturned(t *testing.T) {
	s := store.NewMemoryStore()
	_, borrow := seedActiveBorrow(t, s)

	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.MarkBorrowReturned(ctx, borrow.ID, time.Now().UTC())
	})
	if err != nil {
		t.Fatalf("mark returned: %v", err)
	}

	job := reminderJob(borrow.ID, "reader@example.com")
	if err := Reminder(context.Background(), s, job); err != nil {
		t.Fatalf("expected no-op success, got %v", err)
	}

	var found *store.SimulatedEmail
	checkErr := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		found, err = tx.GetEmailByDedupe(ctx, "REMINDER:"+borrow.ID)
		return err
	})
	if checkErr != nil {
		t.Fatalf("GetEmailByDedupe: %v", checkErr)
	}
	if found != nil {
		t.Fatalf("expected no reminder email for a returned borrow")
	}
}

func TestReminder_NoOpWhenBorrowMissing(t *testing.T) {
	s := store.NewMemoryStore()
	job := reminderJob("does-not-exist", "reader@example.com")
	if err := Reminder(context.Background(), s, job); err != nil {
		t.Fatalf("expected no-op success, got %v", err)
	}
}
