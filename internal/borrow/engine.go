// Package borrow implements the Borrow Engine: borrow/return transactions
// with per-user limit checks, atomic inventory decrements, and the
// secondary-effect emission (ledger, events, reminder job, watchers) that
// spec §4.4 requires inside the same transaction.
package borrow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainerrors "github.com/dummy-library/inventory-core/internal/errors"
	"github.com/dummy-library/inventory-core/internal/ledger"
	"github.com/dummy-library/inventory-core/internal/store"
	"github.com/dummy-library/inventory-core/internal/watchers"
)

// MaxActiveBorrows is the per-user concurrent-borrow ceiling.
const MaxActiveBorrows = 3

// BorrowPeriod is how long a borrow is due after checkout.
const BorrowPeriod = 72 * time.Hour

// Engine executes borrow/return transactions against a store.Store.
type Engine struct {
	store store.Store
}

// New constructs a borrow Engine.
func New(s store.Store) *Engine {
	return &Engine{store: s}
}

// Result wraps a Borrow together with whether it was a pre-existing row
// returned for idempotent-success reasons.
type Result struct {
	Borrow     store.Borrow
	IsExisting bool
}

// Borrow executes the borrow transaction described in spec §4.4.
func (e *Engine) Borrow(ctx context.Context, userEmail, isbn string) (Result, error) {
	var result Result

	err := e.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Lock(ctx, userEmail); err != nil {
			return err
		}

		user, err := tx.UpsertUser(ctx, userEmail)
		if err != nil {
			return fmt.Errorf("upsert user: %w", err)
		}

		book, err := tx.GetBookByISBN(ctx, isbn)
		if err == store.ErrNotFound {
			return domainerrors.New(domainerrors.CodeBookNotFound, "book not found")
		}
		if err != nil {
			return fmt.Errorf("load book: %w", err)
		}

		if existing, err := tx.GetActiveBorrow(ctx, user.ID, book.ID); err != nil {
			return fmt.Errorf("check active borrow: %w", err)
		} else if existing != nil {
			result = Result{Borrow: *existing, IsExisting: true}
			return nil
		}

		activeCount, err := tx.CountActiveBorrows(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("count active borrows: %w", err)
		}
		if activeCount >= MaxActiveBorrows {
			return domainerrors.New(domainerrors.CodeBorrowLimitExceeded, "user has reached the active borrow limit")
		}

		affected, newAvailable, err := tx.DecrementAvailableCopies(ctx, book.ID)
		if err != nil {
			return fmt.Errorf("decrement available copies: %w", err)
		}
		if !affected {
			return domainerrors.New(domainerrors.CodeNoCopiesAvailable, "no copies available")
		}

		now := time.Now().UTC()
		activeKey := fmt.Sprintf("%s:%s", user.ID, book.ID)
		newBorrow := store.Borrow{
			ID:         uuid.NewString(),
			UserID:     user.ID,
			BookID:     book.ID,
			BorrowedAt: now,
			DueAt:      now.Add(BorrowPeriod),
			Status:     store.BorrowActive,
			ActiveKey:  &activeKey,
		}
		if err := tx.InsertBorrow(ctx, newBorrow); err != nil {
			return fmt.Errorf("insert borrow: %w", err)
		}

		if _, _, err := tx.AppendMovement(ctx, store.WalletMovement{
			AmountCents:   book.BorrowCents,
			Type:          store.MovementBorrowIncome,
			Reason:        "borrow",
			RelatedEntity: newBorrow.ID,
			DedupeKey:     ledger.DedupeKey("BORROW", newBorrow.ID),
		}); err != nil {
			return fmt.Errorf("append borrow movement: %w", err)
		}

		if err := tx.AppendEvent(ctx, store.Event{
			Type:      "BORROW",
			UserID:    &user.ID,
			BookID:    &book.ID,
			BorrowID:  &newBorrow.ID,
			DedupeKey: ledger.DedupeKey("BORROW", newBorrow.ID),
		}); err != nil {
			return fmt.Errorf("append borrow event: %w", err)
		}

		if err := scheduleReminder(ctx, tx, newBorrow, userEmail); err != nil {
			return fmt.Errorf("schedule reminder: %w", err)
		}

		if newAvailable == 1 {
			watchedBook := book
			watchedBook.AvailableCopies = newAvailable
			if err := watchers.CheckStock(ctx, tx, watchedBook); err != nil {
				return fmt.Errorf("check stock: %w", err)
			}
		}

		if err := watchers.CheckMilestone(ctx, tx); err != nil {
			return fmt.Errorf("check milestone: %w", err)
		}

		result = Result{Borrow: newBorrow, IsExisting: false}
		return nil
	})

	return result, translateTxError(err)
}

// Return executes the return transaction described in spec §4.4.
func (e *Engine) Return(ctx context.Context, userEmail, isbn string) (Result, error) {
	var result Result

	err := e.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Lock(ctx, userEmail); err != nil {
			return err
		}

		user, err := tx.GetUserByEmail(ctx, userEmail)
		if err == store.ErrNotFound {
			return domainerrors.New(domainerrors.CodeBorrowNotFound, "borrow not found")
		}
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}

		book, err := tx.GetBookByISBN(ctx, isbn)
		if err == store.ErrNotFound {
			return domainerrors.New(domainerrors.CodeBookNotFound, "book not found")
		}
		if err != nil {
			return fmt.Errorf("load book: %w", err)
		}

		active, err := tx.GetActiveBorrow(ctx, user.ID, book.ID)
		if err != nil {
			return fmt.Errorf("load active borrow: %w", err)
		}
		if active == nil {
			latest, err := tx.GetLatestReturnedBorrow(ctx, user.ID, book.ID)
			if err != nil {
				return fmt.Errorf("load latest returned borrow: %w", err)
			}
			if latest == nil {
				return domainerrors.New(domainerrors.CodeBorrowNotFound, "borrow not found")
			}
			result = Result{Borrow: *latest, IsExisting: true}
			return nil
		}

		now := time.Now().UTC()
		if err := tx.MarkBorrowReturned(ctx, active.ID, now); err != nil {
			return fmt.Errorf("mark borrow returned: %w", err)
		}
		if err := tx.IncrementAvailableCopies(ctx, book.ID, 1); err != nil {
			return fmt.Errorf("increment available copies: %w", err)
		}
		if err := tx.CancelJobsByBorrow(ctx, active.ID, store.JobReminder); err != nil {
			return fmt.Errorf("cancel reminder job: %w", err)
		}
		if err := tx.AppendEvent(ctx, store.Event{
			Type:      "RETURN",
			UserID:    &user.ID,
			BookID:    &book.ID,
			BorrowID:  &active.ID,
			DedupeKey: ledger.DedupeKey("RETURN", active.ID),
		}); err != nil {
			return fmt.Errorf("append return event: %w", err)
		}

		returned := *active
		returned.Status = store.BorrowReturned
		returned.ReturnedAt = &now
		returned.ActiveKey = nil
		result = Result{Borrow: returned, IsExisting: false}
		return nil
	})

	return result, translateTxError(err)
}

func scheduleReminder(ctx context.Context, tx store.Tx, b store.Borrow, userEmail string) error {
	payload, err := json.Marshal(map[string]string{"borrowId": b.ID, "userEmail": userEmail})
	if err != nil {
		return fmt.Errorf("marshal reminder payload: %w", err)
	}
	activeKey := ledger.DedupeKey("REMINDER", b.ID)
	return tx.InsertJob(ctx, store.Job{
		ID:          uuid.NewString(),
		Type:        store.JobReminder,
		Status:      store.JobPending,
		Payload:     payload,
		RunAt:       b.DueAt,
		MaxAttempts: 10,
		ActiveKey:   &activeKey,
		BorrowID:    &b.ID,
	})
}

func translateTxError(err error) error {
	if err == store.ErrSerializationFailure {
		return domainerrors.New(domainerrors.CodeSerializationFailure, "transaction conflicted, please retry")
	}
	return err
}
