package store

import (
	"database/sql"
	"encoding/json"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const bookSelectSQL = `SELECT id, isbn, title, author, genre, sell_cents, borrow_cents, stock_cents, available_copies, seeded_copies, created_at FROM books`

func scanBookRow(row rowScanner) (Book, error) {
	var b Book
	err := row.Scan(&b.ID, &b.ISBN, &b.Title, &b.Author, &b.Genre, &b.SellCents, &b.BorrowCents, &b.StockCents, &b.AvailableCopies, &b.SeededCopies, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return Book{}, ErrNotFound
	}
	return b, err
}

const borrowSelectSQL = `SELECT id, user_id, book_id, borrowed_at, due_at, returned_at, status, active_key FROM borrows`

func scanBorrowRow(row rowScanner) (Borrow, error) {
	var b Borrow
	err := row.Scan(&b.ID, &b.UserID, &b.BookID, &b.BorrowedAt, &b.DueAt, &b.ReturnedAt, &b.Status, &b.ActiveKey)
	return b, err
}

const movementSelectSQL = `SELECT id, wallet_id, amount_cents, type, reason, related_entity, coalesce(dedupe_key, ''), created_at FROM wallet_movements`

func scanMovementRow(row rowScanner) (WalletMovement, error) {
	var m WalletMovement
	err := row.Scan(&m.ID, &m.WalletID, &m.AmountCents, &m.Type, &m.Reason, &m.RelatedEntity, &m.DedupeKey, &m.CreatedAt)
	return m, err
}

const jobSelectSQL = `SELECT id, type, status, payload, run_at, attempts, max_attempts, locked_at, last_error, completed_at, active_key, book_id, borrow_id FROM jobs`

func scanJobRow(row rowScanner) (Job, error) {
	var j Job
	var payload []byte
	err := row.Scan(&j.ID, &j.Type, &j.Status, &payload, &j.RunAt, &j.Attempts, &j.MaxAttempts, &j.LockedAt, &j.LastError, &j.CompletedAt, &j.ActiveKey, &j.BookID, &j.BorrowID)
	j.Payload = payload
	return j, err
}

// DecodeJobPayload gives handlers typed access to a job's JSON payload.
func DecodeJobPayload(j Job, dest interface{}) error {
	if len(j.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(j.Payload, dest)
}
