// Package watchers implements the two triggers that engines invoke inline,
// inside their own transaction, whenever a mutation crosses a threshold:
// the Stock Watcher (low-copy restock scheduling) and the Milestone Watcher
// (one-shot wallet threshold email).
package watchers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dummy-library/inventory-core/internal/ledger"
	"github.com/dummy-library/inventory-core/internal/store"
)

// LowStockRecipient receives the LOW_STOCK simulated email.
const LowStockRecipient = "supply@library.com"

// RestockDelay is how far in the future a scheduled restock job runs.
const RestockDelay = time.Hour

// CheckStock fires the low-stock trigger when a book's post-decrement
// availableCopies is exactly 1 (the transition, not the steady state).
// Callers only invoke this when they've just observed that transition.
func CheckStock(ctx context.Context, tx store.Tx, book store.Book) error {
	activeKey := ledger.DedupeKey("RESTOCK", book.ID)

	live, err := tx.HasLiveJob(ctx, store.JobRestock, activeKey)
	if err != nil {
		return fmt.Errorf("check live restock job: %w", err)
	}
	if live {
		return nil
	}

	payload, err := json.Marshal(map[string]string{"bookId": book.ID, "isbn": book.ISBN})
	if err != nil {
		return fmt.Errorf("marshal restock payload: %w", err)
	}

	job := store.Job{
		ID:          uuid.NewString(),
		Type:        store.JobRestock,
		Status:      store.JobPending,
		Payload:     payload,
		RunAt:       time.Now().UTC().Add(RestockDelay),
		MaxAttempts: 10,
		ActiveKey:   &activeKey,
		BookID:      &book.ID,
	}
	if err := tx.InsertJob(ctx, job); err != nil {
		return fmt.Errorf("insert restock job: %w", err)
	}

	if err := tx.AppendEmail(ctx, store.SimulatedEmail{
		Recipient: LowStockRecipient,
		Subject:   fmt.Sprintf("Low stock: %s", book.Title),
		Body:      fmt.Sprintf("%q (ISBN %s) is down to its last copy. A restock has been scheduled.", book.Title, book.ISBN),
		Type:      store.EmailLowStock,
		DedupeKey: fmt.Sprintf("LOW_STOCK:%s:%s", book.ISBN, job.ID),
	}); err != nil {
		return fmt.Errorf("append low-stock email: %w", err)
	}

	if err := tx.AppendEvent(ctx, store.Event{
		Type:      "LOW_STOCK_EMAIL",
		BookID:    &book.ID,
		JobID:     &job.ID,
		DedupeKey: fmt.Sprintf("LOW_STOCK_EMAIL:%s", job.ID),
	}); err != nil {
		return fmt.Errorf("append low-stock event: %w", err)
	}

	if err := tx.AppendEvent(ctx, store.Event{
		Type:      "RESTOCK_SCHEDULED",
		BookID:    &book.ID,
		JobID:     &job.ID,
		DedupeKey: fmt.Sprintf("RESTOCK_SCHEDULED:%s", job.ID),
	}); err != nil {
		return fmt.Errorf("append restock-scheduled event: %w", err)
	}

	return nil
}
