package store

import (
	"context"
	"fmt"
)

func (s *PostgresStore) WalletBalance(ctx context.Context) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `SELECT coalesce(sum(amount_cents), 0) FROM wallet_movements WHERE wallet_id = $1`, LibraryWalletID).Scan(&balance)
	return balance, err
}

func (s *PostgresStore) ListMovements(ctx context.Context, filter MovementFilter) ([]WalletMovement, int, error) {
	where := []string{"wallet_id = $1"}
	args := []interface{}{LibraryWalletID}

	switch filter.Kind {
	case "credit":
		where = append(where, "amount_cents > 0")
	case "debit":
		where = append(where, "amount_cents < 0")
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	whereSQL := ""
	for i, clause := range where {
		if i == 0 {
			whereSQL = " WHERE " + clause
		} else {
			whereSQL += " AND " + clause
		}
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM wallet_movements`+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * pageSize
	args = append(args, pageSize, offset)
	query := fmt.Sprintf(`%s%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, movementSelectSQL, whereSQL, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var movements []WalletMovement
	for rows.Next() {
		m, err := scanMovementRow(rows)
		if err != nil {
			return nil, 0, err
		}
		movements = append(movements, m)
	}
	return movements, total, rows.Err()
}
