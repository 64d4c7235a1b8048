package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/dummy-library/inventory-core/internal/config"
)

// PostgresStore implements Store using PostgreSQL, following the same
// conditional-UPDATE-returns-affected-rows discipline throughout: inventory
// decrements, job claims, and idempotency inserts are all single atomic
// statements rather than read-then-write round trips.
type PostgresStore struct {
	db      *sql.DB
	ownsDB  bool
	archive *EventArchive
}

// NewPostgresStore opens a connection pool, applies pool tuning, and creates
// the schema if it doesn't already exist. If mongoURL is non-empty, it also
// connects a secondary EventArchive that every Tx's AppendEvent/AppendEmail
// mirrors into; a connection failure here fails store construction rather
// than silently running without the archive.
func NewPostgresStore(connectionString string, pool config.PostgresPoolConfig, mongoURL, mongoDatabase string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime.Duration > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime.Duration)
	}

	s := &PostgresStore{db: db, ownsDB: true}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if mongoURL != "" {
		archive, err := NewEventArchive(mongoURL, mongoDatabase)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("connect event archive: %w", err)
		}
		s.archive = archive
	}

	return s, nil
}

// NewPostgresStoreWithDB wraps an existing pool, e.g. one shared with a
// health-check circuit breaker. It never carries an EventArchive; callers
// needing the archive mirror go through NewPostgresStore.
func NewPostgresStoreWithDB(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db, ownsDB: false}
	if err := s.createTables(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	var archiveErr error
	if s.archive != nil {
		archiveErr = s.archive.Close()
	}
	if !s.ownsDB {
		return archiveErr
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	return archiveErr
}

// DB exposes the underlying pool for the health-check circuit breaker.
func (s *PostgresStore) DB() *sql.DB { return s.db }

func (s *PostgresStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS books (
		id TEXT PRIMARY KEY,
		isbn TEXT UNIQUE NOT NULL,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		genre TEXT NOT NULL DEFAULT '',
		sell_cents BIGINT NOT NULL,
		borrow_cents BIGINT NOT NULL,
		stock_cents BIGINT NOT NULL,
		available_copies INT NOT NULL CHECK (available_copies >= 0),
		seeded_copies INT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS borrows (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		book_id TEXT NOT NULL REFERENCES books(id),
		borrowed_at TIMESTAMPTZ NOT NULL,
		due_at TIMESTAMPTZ NOT NULL,
		returned_at TIMESTAMPTZ,
		status TEXT NOT NULL,
		active_key TEXT UNIQUE
	);

	CREATE TABLE IF NOT EXISTS purchases (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		book_id TEXT NOT NULL REFERENCES books(id),
		price_cents BIGINT NOT NULL,
		purchased_at TIMESTAMPTZ NOT NULL,
		canceled_at TIMESTAMPTZ,
		status TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS library_wallets (
		id TEXT PRIMARY KEY,
		milestone_reached BOOLEAN NOT NULL DEFAULT false
	);
	INSERT INTO library_wallets (id, milestone_reached)
		VALUES ('library-wallet', false)
		ON CONFLICT (id) DO NOTHING;

	CREATE TABLE IF NOT EXISTS wallet_movements (
		id TEXT PRIMARY KEY,
		wallet_id TEXT NOT NULL,
		amount_cents BIGINT NOT NULL,
		type TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		related_entity TEXT NOT NULL DEFAULT '',
		dedupe_key TEXT UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		payload JSONB NOT NULL DEFAULT '{}',
		run_at TIMESTAMPTZ NOT NULL,
		attempts INT NOT NULL DEFAULT 0,
		max_attempts INT NOT NULL DEFAULT 10,
		locked_at TIMESTAMPTZ,
		last_error TEXT NOT NULL DEFAULT '',
		completed_at TIMESTAMPTZ,
		active_key TEXT UNIQUE,
		book_id TEXT,
		borrow_id TEXT UNIQUE
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		user_id TEXT,
		book_id TEXT,
		borrow_id TEXT,
		purchase_id TEXT,
		job_id TEXT,
		metadata JSONB NOT NULL DEFAULT '{}',
		dedupe_key TEXT UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS simulated_emails (
		id TEXT PRIMARY KEY,
		recipient TEXT NOT NULL,
		subject TEXT NOT NULL,
		body TEXT NOT NULL,
		type TEXT NOT NULL,
		dedupe_key TEXT UNIQUE NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS idempotency_keys (
		key TEXT NOT NULL,
		user_id TEXT NOT NULL,
		endpoint TEXT NOT NULL,
		response JSONB NOT NULL,
		status_code INT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (key, user_id, endpoint)
	);

	CREATE INDEX IF NOT EXISTS idx_borrows_user_book ON borrows(user_id, book_id);
	CREATE INDEX IF NOT EXISTS idx_purchases_user_book ON purchases(user_id, book_id);
	CREATE INDEX IF NOT EXISTS idx_jobs_run_at ON jobs(run_at) WHERE active_key IS NOT NULL;
	`
	_, err := s.db.Exec(schema)
	return err
}

// WithTx opens a serializable transaction, runs fn, and commits or rolls
// back. A 40001/40P01 SQLSTATE from Postgres is surfaced as
// ErrSerializationFailure so the HTTP layer maps it to the documented
// "client retries" disposition instead of retrying internally.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(ctx, &postgresTx{tx: sqlTx, archive: s.archive}); err != nil {
		_ = sqlTx.Rollback()
		if isSerializationFailure(err) {
			return ErrSerializationFailure
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		if isSerializationFailure(err) {
			return ErrSerializationFailure
		}
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if !asPQError(err, &pqErr) {
		return false
	}
	// 40001: serialization_failure, 40P01: deadlock_detected
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if !asPQError(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505"
}
