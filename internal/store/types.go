// Package store implements the relational persistence layer: advisory-lock
// serialized transactions, conditional inventory updates, and the append-only
// ledger/event/email tables that back the borrow, purchase, and job engines.
package store

import "time"

// BorrowStatus is the lifecycle state of a Borrow row.
type BorrowStatus string

const (
	BorrowActive   BorrowStatus = "ACTIVE"
	BorrowReturned BorrowStatus = "RETURNED"
)

// PurchaseStatus is the lifecycle state of a Purchase row.
type PurchaseStatus string

const (
	PurchaseActive   PurchaseStatus = "ACTIVE"
	PurchaseCanceled PurchaseStatus = "CANCELED"
)

// JobType identifies which handler dispatches a Job.
type JobType string

const (
	JobRestock  JobType = "RESTOCK"
	JobReminder JobType = "REMINDER"
)

// JobStatus is the lifecycle state of a Job row.
type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobProcessing JobStatus = "PROCESSING"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
	JobCanceled   JobStatus = "CANCELED"
)

// MovementType classifies a WalletMovement's origin.
type MovementType string

const (
	MovementBorrowIncome   MovementType = "BORROW_INCOME"
	MovementBuyIncome      MovementType = "BUY_INCOME"
	MovementCancelRefund   MovementType = "CANCEL_REFUND"
	MovementRestockExpense MovementType = "RESTOCK_EXPENSE"
	MovementInitialBalance MovementType = "INITIAL_BALANCE"
)

// EmailType classifies a SimulatedEmail's purpose.
type EmailType string

const (
	EmailLowStock  EmailType = "LOW_STOCK"
	EmailReminder  EmailType = "REMINDER"
	EmailMilestone EmailType = "MILESTONE"
)

// LibraryWalletID is the singleton key for the one wallet row this system
// tracks; there is no per-user wallet.
const LibraryWalletID = "library-wallet"

// Book is an immutable catalog entry with mutable inventory counters.
type Book struct {
	ID              string
	ISBN            string
	Title           string
	Author          string
	Genre           string
	SellCents       int64
	BorrowCents     int64
	StockCents      int64
	AvailableCopies int
	SeededCopies    int
	CreatedAt       time.Time
}

// User is auto-created on first interaction, identified by email.
type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// Borrow records one checkout of a Book by a User.
type Borrow struct {
	ID         string
	UserID     string
	BookID     string
	BorrowedAt time.Time
	DueAt      time.Time
	ReturnedAt *time.Time
	Status     BorrowStatus
	ActiveKey  *string
}

// Purchase records one sale of a Book to a User.
type Purchase struct {
	ID          string
	UserID      string
	BookID      string
	PriceCents  int64
	PurchasedAt time.Time
	CanceledAt  *time.Time
	Status      PurchaseStatus
}

// LibraryWallet is the singleton ledger anchor row.
type LibraryWallet struct {
	ID               string
	MilestoneReached bool
}

// WalletMovement is one append-only entry in the ledger.
type WalletMovement struct {
	ID            string
	WalletID      string
	AmountCents   int64
	Type          MovementType
	Reason        string
	RelatedEntity string
	DedupeKey     string
	CreatedAt     time.Time
}

// Job is one unit of deferred work claimed by the runner.
type Job struct {
	ID          string
	Type        JobType
	Status      JobStatus
	Payload     []byte
	RunAt       time.Time
	Attempts    int
	MaxAttempts int
	LockedAt    *time.Time
	LastError   string
	CompletedAt *time.Time
	ActiveKey   *string
	BookID      *string
	BorrowID    *string
}

// Event is an immutable audit record with soft foreign keys.
type Event struct {
	ID         string
	Type       string
	UserID     *string
	BookID     *string
	BorrowID   *string
	PurchaseID *string
	JobID      *string
	Metadata   map[string]interface{}
	DedupeKey  string
	CreatedAt  time.Time
}

// SimulatedEmail stands in for real delivery; recorded for audit/dedupe only.
type SimulatedEmail struct {
	ID        string
	Recipient string
	Subject   string
	Body      string
	Type      EmailType
	DedupeKey string
	CreatedAt time.Time
}

// IdempotencyRecord is one cached response for a (key, userID, endpoint) triple.
type IdempotencyRecord struct {
	Key        string
	UserID     string
	Endpoint   string
	Response   []byte
	StatusCode int
	ExpiresAt  time.Time
}

// BookFilter narrows GET /api/books listing.
type BookFilter struct {
	Title    string
	Author   string
	Genre    string
	Page     int
	PageSize int
}

// MovementFilter narrows the admin ledger listing.
type MovementFilter struct {
	Kind     string // "credit", "debit", or "" for all
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// JobFilter narrows the admin job listing.
type JobFilter struct {
	Status   JobStatus
	Page     int
	PageSize int
}
