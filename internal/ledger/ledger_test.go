package ledger

import (
	"context"
	"testing"

	"github.com/dummy-library/inventory-core/internal/store"
)

func appendMovement(t *testing.T, s store.Store, amount int64, dedupe string) {
	t.Helper()
	err := s.WithTx(t.Context(), func(ctx context.Context, tx store.Tx) error {
		_, _, err := tx.AppendMovement(ctx, store.WalletMovement{
			AmountCents: amount,
			Type:        store.MovementBuyIncome,
			Reason:      "test",
			DedupeKey:   dedupe,
		})
		return err
	})
	if err != nil {
		t.Fatalf("append movement: %v", err)
	}
}

func TestLedgerBalanceSumsMovements(t *testing.T) {
	s := store.NewMemoryStore()
	l := New(s)

	appendMovement(t, s, 500, "BORROW:1")
	appendMovement(t, s, -200, "BUY:1")

	balance, err := l.Balance(t.Context())
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 300 {
		t.Fatalf("expected balance 300, got %d", balance)
	}
}

func TestLedgerListNormalizesPagination(t *testing.T) {
	s := store.NewMemoryStore()
	l := New(s)

	for i := 0; i < 3; i++ {
		appendMovement(t, s, 100, "")
	}

	movements, pagination, err := l.List(t.Context(), store.MovementFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(movements) != 3 {
		t.Fatalf("expected 3 movements, got %d", len(movements))
	}
	if pagination.Page != store.DefaultPage {
		t.Fatalf("expected default page %d, got %d", store.DefaultPage, pagination.Page)
	}
	if pagination.PageSize != store.DefaultPageSize {
		t.Fatalf("expected default page size %d, got %d", store.DefaultPageSize, pagination.PageSize)
	}
	if pagination.Total != 3 {
		t.Fatalf("expected total 3, got %d", pagination.Total)
	}
}

func TestLedgerListClampsOversizedPage(t *testing.T) {
	s := store.NewMemoryStore()
	l := New(s)

	_, pagination, err := l.List(t.Context(), store.MovementFilter{Page: 1, PageSize: 10000})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if pagination.PageSize != store.MaxPageSize {
		t.Fatalf("expected page size clamped to %d, got %d", store.MaxPageSize, pagination.PageSize)
	}
}

func TestDedupeKey(t *testing.T) {
	if got := DedupeKey("BORROW", "abc-123"); got != "BORROW:abc-123" {
		t.Fatalf("unexpected dedupe key: %q", got)
	}
}
