package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type postgresTx struct {
	tx      *sql.Tx
	archive *EventArchive
}

// Lock obtains a transaction-scoped advisory lock on hash(key), serializing
// every state-changing operation for that logical key (normally a user's
// email) across concurrent requests.
func (t *postgresTx) Lock(ctx context.Context, key string) error {
	_, err := t.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, LockKeyHash(key))
	if err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

func (t *postgresTx) UpsertUser(ctx context.Context, email string) (User, error) {
	var u User
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO users (id, email, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, email, created_at
	`, uuid.NewString(), email).Scan(&u.ID, &u.Email, &u.CreatedAt)
	return u, err
}

func (t *postgresTx) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := t.tx.QueryRowContext(ctx, `SELECT id, email, created_at FROM users WHERE email = $1`, email).
		Scan(&u.ID, &u.Email, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return User{}, ErrNotFound
	}
	return u, err
}

func (t *postgresTx) GetBookByISBN(ctx context.Context, isbn string) (Book, error) {
	return scanBookRow(t.tx.QueryRowContext(ctx, bookSelectSQL+` WHERE isbn = $1`, isbn))
}

func (t *postgresTx) GetBookByID(ctx context.Context, id string) (Book, error) {
	return scanBookRow(t.tx.QueryRowContext(ctx, bookSelectSQL+` WHERE id = $1`, id))
}

func (t *postgresTx) DecrementAvailableCopies(ctx context.Context, bookID string) (bool, int, error) {
	var newAvailable int
	err := t.tx.QueryRowContext(ctx, `
		UPDATE books SET available_copies = available_copies - 1
		WHERE id = $1 AND available_copies >= 1
		RETURNING available_copies
	`, bookID).Scan(&newAvailable)
	if err == sql.ErrNoRows {
		var current int
		if ferr := t.tx.QueryRowContext(ctx, `SELECT available_copies FROM books WHERE id = $1`, bookID).Scan(&current); ferr != nil {
			return false, 0, ferr
		}
		return false, current, nil
	}
	if err != nil {
		return false, 0, err
	}
	return true, newAvailable, nil
}

func (t *postgresTx) IncrementAvailableCopies(ctx context.Context, bookID string, by int) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE books SET available_copies = available_copies + $2 WHERE id = $1`, bookID, by)
	return err
}

func (t *postgresTx) SetAvailableCopies(ctx context.Context, bookID string, newAvailable int) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE books SET available_copies = $2 WHERE id = $1`, bookID, newAvailable)
	return err
}

func (t *postgresTx) GetActiveBorrow(ctx context.Context, userID, bookID string) (*Borrow, error) {
	b, err := scanBorrowRow(t.tx.QueryRowContext(ctx, borrowSelectSQL+` WHERE user_id = $1 AND book_id = $2 AND status = 'ACTIVE'`, userID, bookID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (t *postgresTx) GetLatestReturnedBorrow(ctx context.Context, userID, bookID string) (*Borrow, error) {
	b, err := scanBorrowRow(t.tx.QueryRowContext(ctx, borrowSelectSQL+`
		WHERE user_id = $1 AND book_id = $2 AND status = 'RETURNED'
		ORDER BY returned_at DESC LIMIT 1`, userID, bookID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (t *postgresTx) GetBorrowWithBook(ctx context.Context, borrowID string) (Borrow, Book, error) {
	b, err := scanBorrowRow(t.tx.QueryRowContext(ctx, borrowSelectSQL+` WHERE id = $1`, borrowID))
	if err == sql.ErrNoRows {
		return Borrow{}, Book{}, ErrNotFound
	}
	if err != nil {
		return Borrow{}, Book{}, err
	}
	book, err := t.GetBookByID(ctx, b.BookID)
	if err != nil {
		return Borrow{}, Book{}, err
	}
	return b, book, nil
}

func (t *postgresTx) CountActiveBorrows(ctx context.Context, userID string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `SELECT count(*) FROM borrows WHERE user_id = $1 AND status = 'ACTIVE'`, userID).Scan(&n)
	return n, err
}

func (t *postgresTx) InsertBorrow(ctx context.Context, b Borrow) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO borrows (id, user_id, book_id, borrowed_at, due_at, returned_at, status, active_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, b.ID, b.UserID, b.BookID, b.BorrowedAt, b.DueAt, b.ReturnedAt, b.Status, b.ActiveKey)
	return err
}

func (t *postgresTx) MarkBorrowReturned(ctx context.Context, borrowID string, returnedAt time.Time) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE borrows SET status = 'RETURNED', returned_at = $2, active_key = NULL WHERE id = $1
	`, borrowID, returnedAt)
	return err
}

func (t *postgresTx) CountActivePurchasesForBook(ctx context.Context, userID, bookID string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `SELECT count(*) FROM purchases WHERE user_id = $1 AND book_id = $2 AND status = 'ACTIVE'`, userID, bookID).Scan(&n)
	return n, err
}

func (t *postgresTx) CountActivePurchases(ctx context.Context, userID string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `SELECT count(*) FROM purchases WHERE user_id = $1 AND status = 'ACTIVE'`, userID).Scan(&n)
	return n, err
}

func (t *postgresTx) InsertPurchase(ctx context.Context, p Purchase) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO purchases (id, user_id, book_id, price_cents, purchased_at, canceled_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.UserID, p.BookID, p.PriceCents, p.PurchasedAt, p.CanceledAt, p.Status)
	return err
}

func (t *postgresTx) GetPurchaseForUpdate(ctx context.Context, purchaseID, userID string) (*Purchase, error) {
	var p Purchase
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, user_id, book_id, price_cents, purchased_at, canceled_at, status
		FROM purchases WHERE id = $1 AND user_id = $2 FOR UPDATE
	`, purchaseID, userID).Scan(&p.ID, &p.UserID, &p.BookID, &p.PriceCents, &p.PurchasedAt, &p.CanceledAt, &p.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *postgresTx) MarkPurchaseCanceled(ctx context.Context, purchaseID string, canceledAt time.Time) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE purchases SET status = 'CANCELED', canceled_at = $2 WHERE id = $1`, purchaseID, canceledAt)
	return err
}

func (t *postgresTx) AppendMovement(ctx context.Context, m WalletMovement) (WalletMovement, bool, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.WalletID == "" {
		m.WalletID = LibraryWalletID
	}
	var dedupe interface{}
	if m.DedupeKey != "" {
		dedupe = m.DedupeKey
	}
	var row WalletMovement
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO wallet_movements (id, wallet_id, amount_cents, type, reason, related_entity, dedupe_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (dedupe_key) DO NOTHING
		RETURNING id, wallet_id, amount_cents, type, reason, related_entity, coalesce(dedupe_key, ''), created_at
	`, m.ID, m.WalletID, m.AmountCents, m.Type, m.Reason, m.RelatedEntity, dedupe).
		Scan(&row.ID, &row.WalletID, &row.AmountCents, &row.Type, &row.Reason, &row.RelatedEntity, &row.DedupeKey, &row.CreatedAt)

	if err == sql.ErrNoRows {
		// Dedupe conflict: someone else already inserted this movement.
		existing, ferr := scanMovementRow(t.tx.QueryRowContext(ctx, movementSelectSQL+` WHERE dedupe_key = $1`, m.DedupeKey))
		if ferr != nil {
			return WalletMovement{}, false, ferr
		}
		return existing, true, nil
	}
	if err != nil {
		return WalletMovement{}, false, err
	}
	return row, false, nil
}

func (t *postgresTx) WalletBalance(ctx context.Context) (int64, error) {
	var balance int64
	err := t.tx.QueryRowContext(ctx, `SELECT coalesce(sum(amount_cents), 0) FROM wallet_movements WHERE wallet_id = $1`, LibraryWalletID).Scan(&balance)
	return balance, err
}

func (t *postgresTx) GetWallet(ctx context.Context) (LibraryWallet, error) {
	var w LibraryWallet
	err := t.tx.QueryRowContext(ctx, `SELECT id, milestone_reached FROM library_wallets WHERE id = $1`, LibraryWalletID).Scan(&w.ID, &w.MilestoneReached)
	return w, err
}

func (t *postgresTx) SetMilestoneReached(ctx context.Context) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE library_wallets SET milestone_reached = true WHERE id = $1`, LibraryWalletID)
	return err
}

func (t *postgresTx) AppendEvent(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal event metadata: %w", err)
	}
	var dedupe interface{}
	if e.DedupeKey != "" {
		dedupe = e.DedupeKey
	}
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO events (id, type, user_id, book_id, borrow_id, purchase_id, job_id, metadata, dedupe_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (dedupe_key) DO NOTHING
	`, e.ID, e.Type, e.UserID, e.BookID, e.BorrowID, e.PurchaseID, e.JobID, metadata, dedupe, e.CreatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		t.archive.MirrorEvent(ctx, e)
	}
	return nil
}

func (t *postgresTx) AppendEmail(ctx context.Context, e SimulatedEmail) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO simulated_emails (id, recipient, subject, body, type, dedupe_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (dedupe_key) DO NOTHING
	`, e.ID, e.Recipient, e.Subject, e.Body, e.Type, e.DedupeKey, e.CreatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		t.archive.MirrorEmail(ctx, e)
	}
	return nil
}

func (t *postgresTx) GetEmailByDedupe(ctx context.Context, dedupeKey string) (*SimulatedEmail, error) {
	var e SimulatedEmail
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, recipient, subject, body, type, dedupe_key, created_at
		FROM simulated_emails WHERE dedupe_key = $1
	`, dedupeKey).Scan(&e.ID, &e.Recipient, &e.Subject, &e.Body, &e.Type, &e.DedupeKey, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (t *postgresTx) HasLiveJob(ctx context.Context, jobType JobType, activeKey string) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM jobs WHERE type = $1 AND active_key = $2)
	`, jobType, activeKey).Scan(&exists)
	return exists, err
}

func (t *postgresTx) InsertJob(ctx context.Context, j Job) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.MaxAttempts == 0 {
		j.MaxAttempts = 10
	}
	if j.Payload == nil {
		j.Payload = []byte("{}")
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO jobs (id, type, status, payload, run_at, attempts, max_attempts, locked_at, last_error, completed_at, active_key, book_id, borrow_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, j.ID, j.Type, j.Status, j.Payload, j.RunAt, j.Attempts, j.MaxAttempts, j.LockedAt, j.LastError, j.CompletedAt, j.ActiveKey, j.BookID, j.BorrowID)
	return err
}

func (t *postgresTx) CancelJobsByBorrow(ctx context.Context, borrowID string, jobType JobType) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE jobs SET status = 'CANCELED', active_key = NULL
		WHERE borrow_id = $1 AND type = $2 AND active_key IS NOT NULL
	`, borrowID, jobType)
	return err
}

func (t *postgresTx) GetJobByID(ctx context.Context, jobID string) (*Job, error) {
	j, err := scanJobRow(t.tx.QueryRowContext(ctx, jobSelectSQL+` WHERE id = $1`, jobID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}
