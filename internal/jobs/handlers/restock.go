// Package handlers implements the two job handlers dispatched by the
// runner: Restock (§4.9) and Reminder (§4.10). Both run their entire body
// inside one serializable transaction so partial effects never leak out on
// failure; the runner's retry/backoff loop is what absorbs errors.
package handlers

import (
	"context"
	"fmt"

	domainerrors "github.com/dummy-library/inventory-core/internal/errors"
	"github.com/dummy-library/inventory-core/internal/ledger"
	"github.com/dummy-library/inventory-core/internal/store"
)

type restockPayload struct {
	BookID string `json:"bookId"`
	ISBN   string `json:"isbn"`
}

// Restock implements the §4.9 Restock Handler as a jobs.Handler.
func Restock(ctx context.Context, s store.Store, j store.Job) error {
	var payload restockPayload
	if err := store.DecodeJobPayload(j, &payload); err != nil {
		return fmt.Errorf("decode restock payload: %w", err)
	}

	return s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		book, err := tx.GetBookByID(ctx, payload.BookID)
		if err == store.ErrNotFound {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load book: %w", err)
		}

		needed := book.SeededCopies - book.AvailableCopies
		if needed <= 0 {
			return nil
		}

		cost := int64(needed) * book.StockCents

		balance, err := tx.WalletBalance(ctx)
		if err != nil {
			return fmt.Errorf("load wallet balance: %w", err)
		}
		if balance < cost {
			return domainerrors.New(domainerrors.CodeInsufficientFunds, "wallet balance insufficient to cover restock cost")
		}

		if _, _, err := tx.AppendMovement(ctx, store.WalletMovement{
			AmountCents:   -cost,
			Type:          store.MovementRestockExpense,
			Reason:        "restock",
			RelatedEntity: j.ID,
			DedupeKey:     ledger.DedupeKey("RESTOCK", j.ID),
		}); err != nil {
			return fmt.Errorf("append restock movement: %w", err)
		}

		previousAvailable := book.AvailableCopies
		newAvailable := previousAvailable + needed
		if err := tx.SetAvailableCopies(ctx, book.ID, newAvailable); err != nil {
			return fmt.Errorf("update available copies: %w", err)
		}

		if err := tx.AppendEvent(ctx, store.Event{
			Type:      "RESTOCK_DELIVERED",
			BookID:    &book.ID,
			JobID:     &j.ID,
			DedupeKey: ledger.DedupeKey("RESTOCK_DELIVERED", j.ID),
			Metadata: map[string]interface{}{
				"copiesAdded":       needed,
				"totalCostCents":    cost,
				"previousAvailable": previousAvailable,
				"newAvailable":      newAvailable,
			},
		}); err != nil {
			return fmt.Errorf("append restock-delivered event: %w", err)
		}

		return nil
	})
}
