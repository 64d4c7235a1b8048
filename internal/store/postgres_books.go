package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func (s *PostgresStore) SeedBook(ctx context.Context, b Book) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (id, isbn, title, author, genre, sell_cents, borrow_cents, stock_cents, available_copies, seeded_copies, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (isbn) DO NOTHING
	`, b.ID, b.ISBN, b.Title, b.Author, b.Genre, b.SellCents, b.BorrowCents, b.StockCents, b.AvailableCopies, b.SeededCopies)
	return err
}

func (s *PostgresStore) GetBookByISBN(ctx context.Context, isbn string) (Book, error) {
	return scanBookRow(s.db.QueryRowContext(ctx, bookSelectSQL+` WHERE isbn = $1`, isbn))
}

func (s *PostgresStore) ListBooks(ctx context.Context, filter BookFilter) ([]Book, int, error) {
	var where []string
	var args []interface{}
	addLike := func(column, value string) {
		args = append(args, "%"+value+"%")
		where = append(where, fmt.Sprintf("%s ILIKE $%d", column, len(args)))
	}
	if filter.Title != "" {
		addLike("title", filter.Title)
	}
	if filter.Author != "" {
		addLike("author", filter.Author)
	}
	if filter.Genre != "" {
		addLike("genre", filter.Genre)
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM books`+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * pageSize
	args = append(args, pageSize, offset)
	query := fmt.Sprintf(`%s%s ORDER BY title LIMIT $%d OFFSET $%d`, bookSelectSQL, whereSQL, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		b, err := scanBookRow(rows)
		if err != nil {
			return nil, 0, err
		}
		books = append(books, b)
	}
	return books, total, rows.Err()
}
