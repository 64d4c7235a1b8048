package purchase

import (
	"context"
	"testing"

	domainerrors "github.com/dummy-library/inventory-core/internal/errors"
	"github.com/dummy-library/inventory-core/internal/store"
)

func seedTestBook(t *testing.T, s store.Store, isbn string, copies int) {
	t.Helper()
	if err := s.SeedBook(context.Background(), store.Book{
		ISBN:            isbn,
		Title:           "Test Book",
		Author:          "A. Author",
		Genre:           "Fiction",
		SellCents:       1500,
		BorrowCents:     300,
		StockCents:      900,
		AvailableCopies: copies,
		SeededCopies:    copies,
	}); err != nil {
		t.Fatalf("seed book: %v", err)
	}
}

func TestBuy_Success(t *testing.T) {
	s := store.NewMemoryStore()
	seedTestBook(t, s, "isbn-1", 3)
	e := New(s)

	result, err := e.Buy(context.Background(), "buyer@example.com", "isbn-1")
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if result.IsExisting {
		t.Fatalf("expected a new purchase")
	}
	if result.Purchase.PriceCents != 1500 {
		t.Fatalf("expected priceCents=1500, got %d", result.Purchase.PriceCents)
	}

	balance, err := s.WalletBalance(context.Background())
	if err != nil {
		t.Fatalf("WalletBalance: %v", err)
	}
	if balance != 1500 {
		t.Fatalf("expected wallet balance 1500, got %d", balance)
	}
}

func TestBuy_PerBookLimitExceeded(t *testing.T) {
	s := store.NewMemoryStore()
	seedTestBook(t, s, "isbn-1", 10)
	e := New(s)

	for i := 0; i < MaxActivePurchasesPerBook; i++ {
		if _, err := e.Buy(context.Background(), "buyer@example.com", "isbn-1"); err != nil {
			t.Fatalf("Buy #%d: %v", i, err)
		}
	}

	_, err := e.Buy(context.Background(), "buyer@example.com", "isbn-1")
	de, ok := domainerrors.As(err)
	if !ok {
		t.Fatalf("expected a DomainError, got %v", err)
	}
	if de.Code != domainerrors.CodeBookBuyLimitExceeded {
		t.Fatalf("expected BOOK_BUY_LIMIT_EXCEEDED, got %s", de.Code)
	}
}

func TestBuy_TotalLimitExceeded(t *testing.T) {
	s := store.NewMemoryStore()
	for i := 0; i < MaxActivePurchasesTotal+1; i++ {
		seedTestBook(t, s, isbnFor(i), 10)
	}
	e := New(s)

	for i := 0; i < MaxActivePurchasesTotal; i++ {
		if _, err := e.Buy(context.Background(), "buyer@example.com", isbnFor(i)); err != nil {
			t.Fatalf("Buy #%d: %v", i, err)
		}
	}

	_, err := e.Buy(context.Background(), "buyer@example.com", isbnFor(MaxActivePurchasesTotal))
	de, ok := domainerrors.As(err)
	if !ok {
		t.Fatalf("expected a DomainError, got %v", err)
	}
	if de.Code != domainerrors.CodeTotalBuyLimitExceeded {
		t.Fatalf("expected TOTAL_BUY_LIMIT_EXCEEDED, got %s", de.Code)
	}
}

func TestBuy_NoCopiesAvailable(t *testing.T) {
	s := store.NewMemoryStore()
	seedTestBook(t, s, "isbn-1", 1)
	e := New(s)

	if _, err := e.Buy(context.Background(), "buyer1@example.com", "isbn-1"); err != nil {
		t.Fatalf("Buy (buyer1): %v", err)
	}

	_, err := e.Buy(context.Background(), "buyer2@example.com", "isbn-1")
	de, ok := domainerrors.As(err)
	if !ok {
		t.Fatalf("expected a DomainError, got %v", err)
	}
	if de.Code != domainerrors.CodeNoCopiesAvailable {
		t.Fatalf("expected NO_COPIES_AVAILABLE, got %s", de.Code)
	}
}

func TestCancel_Success(t *testing.T) {
	s := store.NewMemoryStore()
	seedTestBook(t, s, "isbn-1", 1)
	e := New(s)

	bought, err := e.Buy(context.Background(), "buyer@example.com", "isbn-1")
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}

	result, err := e.Cancel(context.Background(), "buyer@example.com", bought.Purchase.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if result.IsExisting {
		t.Fatalf("expected a fresh cancellation")
	}
	if result.Purchase.Status != store.PurchaseCanceled {
		t.Fatalf("expected CANCELED status, got %s", result.Purchase.Status)
	}

	book, _ := s.GetBookByISBN(context.Background(), "isbn-1")
	if book.AvailableCopies != 1 {
		t.Fatalf("expected copy restored, got %d", book.AvailableCopies)
	}

	balance, _ := s.WalletBalance(context.Background())
	if balance != 0 {
		t.Fatalf("expected net-zero wallet balance after refund, got %d", balance)
	}
}

func TestCancel_IdempotentOnRepeat(t *testing.T) {
	s := store.NewMemoryStore()
	seedTestBook(t, s, "isbn-1", 1)
	e := New(s)

	bought, err := e.Buy(context.Background(), "buyer@example.com", "isbn-1")
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}

	if _, err := e.Cancel(context.Background(), "buyer@example.com", bought.Purchase.ID); err != nil {
		t.Fatalf("Cancel (first): %v", err)
	}

	second, err := e.Cancel(context.Background(), "buyer@example.com", bought.Purchase.ID)
	if err != nil {
		t.Fatalf("Cancel (second): %v", err)
	}
	if !second.IsExisting {
		t.Fatalf("expected repeat cancel to report IsExisting=true")
	}

	book, _ := s.GetBookByISBN(context.Background(), "isbn-1")
	if book.AvailableCopies != 1 {
		t.Fatalf("expected copies to increment only once, got %d", book.AvailableCopies)
	}
}

func TestCancel_NotFound(t *testing.T) {
	s := store.NewMemoryStore()
	seedTestBook(t, s, "isbn-1", 1)
	e := New(s)

	if _, err := e.Buy(context.Background(), "buyer@example.com", "isbn-1"); err != nil {
		t.Fatalf("Buy: %v", err)
	}

	_, err := e.Cancel(context.Background(), "buyer@example.com", "does-not-exist")
	de, ok := domainerrors.As(err)
	if !ok {
		t.Fatalf("expected a DomainError, got %v", err)
	}
	if de.Code != domainerrors.CodePurchaseNotFound {
		t.Fatalf("expected PURCHASE_NOT_FOUND, got %s", de.Code)
	}
}

func isbnFor(i int) string {
	return "isbn-" + string(rune('A'+i))
}
