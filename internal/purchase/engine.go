// Package purchase implements the Purchase Engine: buy/cancel transactions
// with per-book and total active-purchase limits, and the 5-minute
// cancellation window, per spec §4.5.
package purchase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainerrors "github.com/dummy-library/inventory-core/internal/errors"
	"github.com/dummy-library/inventory-core/internal/ledger"
	"github.com/dummy-library/inventory-core/internal/store"
	"github.com/dummy-library/inventory-core/internal/watchers"
)

// MaxActivePurchasesPerBook is the per-(user,book) active-purchase ceiling.
const MaxActivePurchasesPerBook = 2

// MaxActivePurchasesTotal is the per-user active-purchase ceiling across books.
const MaxActivePurchasesTotal = 10

// CancellationWindow is how long after purchase a buyer may still cancel.
const CancellationWindow = 5 * time.Minute

// Engine executes buy/cancel transactions against a store.Store.
type Engine struct {
	store store.Store
}

// New constructs a purchase Engine.
func New(s store.Store) *Engine {
	return &Engine{store: s}
}

// Result wraps a Purchase together with whether it was a pre-existing row
// returned for idempotent-success reasons.
type Result struct {
	Purchase   store.Purchase
	IsExisting bool
}

// Buy executes the buy transaction described in spec §4.5.
func (e *Engine) Buy(ctx context.Context, userEmail, isbn string) (Result, error) {
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

		perBook, err := tx.CountActivePurchasesForBook(ctx, user.ID, book.ID)
		if err != nil {
			return fmt.Errorf("count active purchases for book: %w", err)
		}
		if perBook >= MaxActivePurchasesPerBook {
			return domainerrors.New(domainerrors.CodeBookBuyLimitExceeded, "active purchase limit reached for this book")
		}

		total, err := tx.CountActivePurchases(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("count active purchases: %w", err)
		}
		if total >= MaxActivePurchasesTotal {
			return domainerrors.New(domainerrors.CodeTotalBuyLimitExceeded, "active purchase limit reached")
		}

		affected, newAvailable, err := tx.DecrementAvailableCopies(ctx, book.ID)
		if err != nil {
			return fmt.Errorf("decrement available copies: %w", err)
		}
		if !affected {
			return domainerrors.New(domainerrors.CodeNoCopiesAvailable, "no copies available")
		}

		newPurchase := store.Purchase{
			ID:          uuid.NewString(),
			UserID:      user.ID,
			BookID:      book.ID,
			PriceCents:  book.SellCents,
			PurchasedAt: time.Now().UTC(),
			Status:      store.PurchaseActive,
		}
		if err := tx.InsertPurchase(ctx, newPurchase); err != nil {
			return fmt.Errorf("insert purchase: %w", err)
		}

		if _, _, err := tx.AppendMovement(ctx, store.WalletMovement{
			AmountCents:   book.SellCents,
			Type:          store.MovementBuyIncome,
			Reason:        "buy",
			RelatedEntity: newPurchase.ID,
			DedupeKey:     ledger.DedupeKey("BUY", newPurchase.ID),
		}); err != nil {
			return fmt.Errorf("append buy movement: %w", err)
		}

		if err := tx.AppendEvent(ctx, store.Event{
			Type:       "BUY",
			UserID:     &user.ID,
			BookID:     &book.ID,
			PurchaseID: &newPurchase.ID,
			DedupeKey:  ledger.DedupeKey("BUY", newPurchase.ID),
		}); err != nil {
			return fmt.Errorf("append buy event: %w", err)
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

		result = Result{Purchase: newPurchase, IsExisting: false}
		return nil
	})

	return result, translateTxError(err)
}

// Cancel executes the cancel transaction described in spec §4.5.
func (e *Engine) Cancel(ctx context.Context, userEmail, purchaseID string) (Result, error) {
	var result Result

	err := e.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		user, err := tx.GetUserByEmail(ctx, userEmail)
		if err == store.ErrNotFound {
			return domainerrors.New(domainerrors.CodeUserNotFound, "user not found")
		}
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}

		p, err := tx.GetPurchaseForUpdate(ctx, purchaseID, user.ID)
		if err != nil {
			return fmt.Errorf("load purchase: %w", err)
		}
		if p == nil {
			return domainerrors.New(domainerrors.CodePurchaseNotFound, "purchase not found")
		}

		if p.Status == store.PurchaseCanceled {
			result = Result{Purchase: *p, IsExisting: true}
			return nil
		}

		now := time.Now().UTC()
		if now.Sub(p.PurchasedAt) > CancellationWindow {
			return domainerrors.New(domainerrors.CodeCancellationWindowExpired, "cancellation window has expired")
		}

		if err := tx.MarkPurchaseCanceled(ctx, p.ID, now); err != nil {
			return fmt.Errorf("mark purchase canceled: %w", err)
		}

		if _, _, err := tx.AppendMovement(ctx, store.WalletMovement{
			AmountCents:   -p.PriceCents,
			Type:          store.MovementCancelRefund,
			Reason:        "cancel",
			RelatedEntity: p.ID,
			DedupeKey:     ledger.DedupeKey("CANCEL", p.ID),
		}); err != nil {
			return fmt.Errorf("append cancel movement: %w", err)
		}

		if err := tx.IncrementAvailableCopies(ctx, p.BookID, 1); err != nil {
			return fmt.Errorf("increment available copies: %w", err)
		}

		if err := tx.AppendEvent(ctx, store.Event{
			Type:       "CANCEL_BUY",
			UserID:     &user.ID,
			BookID:     &p.BookID,
			PurchaseID: &p.ID,
			DedupeKey:  ledger.DedupeKey("CANCEL_BUY", p.ID),
		}); err != nil {
			return fmt.Errorf("append cancel event: %w", err)
		}

		canceled := *p
		canceled.Status = store.PurchaseCanceled
		canceled.CanceledAt = &now
		result = Result{Purchase: canceled, IsExisting: false}
		return nil
	})

	return result, translateTxError(err)
}

func translateTxError(err error) error {
	if err == store.ErrSerializationFailure {
		return domainerrors.New(domainerrors.CodeSerializationFailure, "transaction conflicted, please retry")
	}
	return err
}
