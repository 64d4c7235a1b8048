package handlers

import (
	"context"
	"fmt"

	"github.com/dummy-library/inventory-core/internal/ledger"
	"github.com/dummy-library/inventory-core/internal/store"
)

type reminderPayload struct {
	BorrowID  string `json:"borrowId"`
	UserEmail string `json:"userEmail"`
}

// Reminder implements the §4.10 Reminder Handler as a jobs.Handler.
func Reminder(ctx context.Context, s store.Store, j store.Job) error {
	var payload reminderPayload
	if err := store.DecodeJobPayload(j, &payload); err != nil {
		return fmt.Errorf("decode reminder payload: %w", err)
	}

	return s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		borrow, book, err := tx.GetBorrowWithBook(ctx, payload.BorrowID)
		if err == store.ErrNotFound {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load borrow: %w", err)
		}
		if borrow.ActiveKey == nil {
			return nil // already returned
		}

		dedupeKey := ledger.DedupeKey("REMINDER", borrow.ID)
		existing, err := tx.GetEmailByDedupe(ctx, dedupeKey)
		if err != nil {
			return fmt.Errorf("check existing reminder email: %w", err)
		}
		if existing != nil {
			return nil
		}

		if err := tx.AppendEmail(ctx, store.SimulatedEmail{
			Recipient: payload.UserEmail,
			Subject:   fmt.Sprintf("Reminder: %q is due soon", book.Title),
			Body:      fmt.Sprintf("Your borrow of %q (ISBN %s) is due at %s.", book.Title, book.ISBN, borrow.DueAt.Format("2006-01-02 15:04 MST")),
			Type:      store.EmailReminder,
			DedupeKey: dedupeKey,
		}); err != nil {
			return fmt.Errorf("append reminder email: %w", err)
		}

		if err := tx.AppendEvent(ctx, store.Event{
			Type:      "REMINDER_SENT",
			BookID:    &book.ID,
			BorrowID:  &borrow.ID,
			DedupeKey: ledger.DedupeKey("REMINDER_SENT", borrow.ID),
			Metadata: map[string]interface{}{
				"userEmail": payload.UserEmail,
				"bookTitle": book.Title,
				"dueAt":     borrow.DueAt,
			},
		}); err != nil {
			return fmt.Errorf("append reminder-sent event: %w", err)
		}

		return nil
	})
}
