package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity is missing from the store.
var ErrNotFound = errors.New("store: not found")

// ErrSerializationFailure is returned when a serializable transaction loses a
// write-write or read-write conflict and must be retried by the caller.
var ErrSerializationFailure = errors.New("store: serialization failure")

// Store is the persistence boundary used by the engines, watchers, and job
// runner. Every state-changing operation runs inside WithTx.
type Store interface {
	// WithTx runs fn inside one serializable transaction. If fn returns an
	// error, the transaction rolls back; ErrSerializationFailure is
	// returned verbatim so callers can distinguish it from domain errors.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// ListBooks is a read path outside any transaction (spec §1 calls book
	// search a thin glue concern, not part of the transactional core).
	ListBooks(ctx context.Context, filter BookFilter) ([]Book, int, error)
	GetBookByISBN(ctx context.Context, isbn string) (Book, error)
	SeedBook(ctx context.Context, b Book) error

	// Job runner primitives. Claiming a job is a single atomic UPDATE, not
	// a multi-statement transaction, so workers never block each other
	// waiting on the poll query.
	ListDueJobs(ctx context.Context, leaseExpiry time.Time, limit int) ([]Job, error)
	ClaimJob(ctx context.Context, jobID string, leaseExpiry time.Time) (bool, error)
	CompleteJob(ctx context.Context, jobID string) error
	FailJob(ctx context.Context, jobID string, lastErr string) error
	RetryJob(ctx context.Context, jobID string, nextRunAt time.Time, lastErr string) error
	RequeueJob(ctx context.Context, jobID string) error
	ListJobs(ctx context.Context, filter JobFilter) ([]Job, int, error)

	// Idempotency cache.
	GetIdempotencyRecord(ctx context.Context, key, userID, endpoint string) (*IdempotencyRecord, error)
	PutIdempotencyRecord(ctx context.Context, rec IdempotencyRecord) error
	DeleteIdempotencyRecord(ctx context.Context, key, userID, endpoint string) error

	// Ledger read path for admin listing.
	ListMovements(ctx context.Context, filter MovementFilter) ([]WalletMovement, int, error)
	WalletBalance(ctx context.Context) (int64, error)

	Close() error
}

// Tx is the set of operations available inside one serializable transaction.
// All engine logic (borrow, return, buy, cancel, watchers) is expressed
// purely in terms of this interface so it runs identically against Postgres
// and the in-memory test store.
type Tx interface {
	// Lock obtains a per-caller advisory lock for the duration of the
	// enclosing transaction, serializing all state-changing operations of
	// a single logical key (typically the user's email).
	Lock(ctx context.Context, key string) error

	UpsertUser(ctx context.Context, email string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)

	GetBookByISBN(ctx context.Context, isbn string) (Book, error)
	GetBookByID(ctx context.Context, id string) (Book, error)
	// DecrementAvailableCopies atomically decrements availableCopies iff it
	// is >= 1, returning the row's new value and whether it was affected.
	DecrementAvailableCopies(ctx context.Context, bookID string) (affected bool, newAvailable int, err error)
	IncrementAvailableCopies(ctx context.Context, bookID string, by int) error
	SetAvailableCopies(ctx context.Context, bookID string, newAvailable int) error

	GetActiveBorrow(ctx context.Context, userID, bookID string) (*Borrow, error)
	GetLatestReturnedBorrow(ctx context.Context, userID, bookID string) (*Borrow, error)
	GetBorrowWithBook(ctx context.Context, borrowID string) (Borrow, Book, error)
	CountActiveBorrows(ctx context.Context, userID string) (int, error)
	InsertBorrow(ctx context.Context, b Borrow) error
	MarkBorrowReturned(ctx context.Context, borrowID string, returnedAt time.Time) error

	CountActivePurchasesForBook(ctx context.Context, userID, bookID string) (int, error)
	CountActivePurchases(ctx context.Context, userID string) (int, error)
	InsertPurchase(ctx context.Context, p Purchase) error
	GetPurchaseForUpdate(ctx context.Context, purchaseID, userID string) (*Purchase, error)
	MarkPurchaseCanceled(ctx context.Context, purchaseID string, canceledAt time.Time) error

	// AppendMovement inserts m; on a dedupe-key conflict it returns the
	// pre-existing row instead, with existing=true.
	AppendMovement(ctx context.Context, m WalletMovement) (row WalletMovement, existing bool, err error)
	WalletBalance(ctx context.Context) (int64, error)
	GetWallet(ctx context.Context) (LibraryWallet, error)
	SetMilestoneReached(ctx context.Context) error

	// AppendEvent and AppendEmail swallow dedupe-key conflicts, treating
	// them as success per the error-handling disposition table.
	AppendEvent(ctx context.Context, e Event) error
	AppendEmail(ctx context.Context, e SimulatedEmail) error
	GetEmailByDedupe(ctx context.Context, dedupeKey string) (*SimulatedEmail, error)

	HasLiveJob(ctx context.Context, jobType JobType, activeKey string) (bool, error)
	InsertJob(ctx context.Context, j Job) error
	CancelJobsByBorrow(ctx context.Context, borrowID string, jobType JobType) error

	GetJobByID(ctx context.Context, jobID string) (*Job, error)
}
