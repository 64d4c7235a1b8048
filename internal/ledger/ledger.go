// Package ledger provides the read-side view of the wallet's append-only
// movement log. Appends happen inline inside engine transactions via
// store.Tx.AppendMovement; this package covers the admin listing and
// balance queries that run outside any single transaction.
package ledger

import (
	"context"

	"github.com/dummy-library/inventory-core/internal/store"
)

// Ledger exposes read-only views over the wallet movement table.
type Ledger struct {
	store store.Store
}

// New constructs a Ledger backed by store.
func New(s store.Store) *Ledger {
	return &Ledger{store: s}
}

// Balance returns the current wallet balance: SUM(amountCents) over every
// movement. The balance is never stored directly.
func (l *Ledger) Balance(ctx context.Context) (int64, error) {
	return l.store.WalletBalance(ctx)
}

// List returns a page of movements matching filter, most recent first.
func (l *Ledger) List(ctx context.Context, filter store.MovementFilter) ([]store.WalletMovement, store.Pagination, error) {
	page, pageSize := normalizedPage(filter)
	movements, total, err := l.store.ListMovements(ctx, filter)
	if err != nil {
		return nil, store.Pagination{}, err
	}
	return movements, store.NewPagination(total, page, pageSize), nil
}

func normalizedPage(filter store.MovementFilter) (int, int) {
	page := filter.Page
	if page < 1 {
		page = store.DefaultPage
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = store.DefaultPageSize
	}
	if pageSize > store.MaxPageSize {
		pageSize = store.MaxPageSize
	}
	return page, pageSize
}

// DedupeKey builds the "{PREFIX}:{id}" dedupe keys used throughout the
// engines (e.g. "BORROW:{borrowId}", "BUY:{purchaseId}").
func DedupeKey(prefix, id string) string {
	return prefix + ":" + id
}
