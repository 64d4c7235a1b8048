package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store suitable for tests and single-instance
// development. A single mutex makes WithTx trivially serializable; it does
// not roll back partial writes on handler error, so it is not meant for
// production use.
type MemoryStore struct {
	mu sync.Mutex

	books       map[string]Book // by id
	booksByISBN map[string]string
	users       map[string]User // by id
	usersByMail map[string]string
	borrows     map[string]Borrow
	purchases   map[string]Purchase
	wallet      LibraryWallet
	movements   map[string]WalletMovement
	movementsByDedupe map[string]string
	jobs        map[string]Job
	events      map[string]Event
	eventsByDedupe map[string]string
	emails      map[string]SimulatedEmail
	emailsByDedupe map[string]string
	idempotency map[string]IdempotencyRecord
}

// NewMemoryStore constructs an empty MemoryStore with the wallet seeded.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		books:             make(map[string]Book),
		booksByISBN:       make(map[string]string),
		users:             make(map[string]User),
		usersByMail:       make(map[string]string),
		borrows:           make(map[string]Borrow),
		purchases:         make(map[string]Purchase),
		wallet:            LibraryWallet{ID: LibraryWalletID},
		movements:         make(map[string]WalletMovement),
		movementsByDedupe: make(map[string]string),
		jobs:              make(map[string]Job),
		events:            make(map[string]Event),
		eventsByDedupe:    make(map[string]string),
		emails:            make(map[string]SimulatedEmail),
		emailsByDedupe:    make(map[string]string),
		idempotency:       make(map[string]IdempotencyRecord),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, &memTx{s: m})
}

func (m *MemoryStore) SeedBook(ctx context.Context, b Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.booksByISBN[b.ISBN]; exists {
		return nil
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	m.books[b.ID] = b
	m.booksByISBN[b.ISBN] = b.ID
	return nil
}

func (m *MemoryStore) GetBookByISBN(ctx context.Context, isbn string) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.booksByISBN[isbn]
	if !ok {
		return Book{}, ErrNotFound
	}
	return m.books[id], nil
}

func (m *MemoryStore) ListBooks(ctx context.Context, filter BookFilter) ([]Book, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []Book
	for _, b := range m.books {
		if filter.Title != "" && !containsFold(b.Title, filter.Title) {
			continue
		}
		if filter.Author != "" && !containsFold(b.Author, filter.Author) {
			continue
		}
		if filter.Genre != "" && !containsFold(b.Genre, filter.Genre) {
			continue
		}
		matched = append(matched, b)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Title < matched[j].Title })

	total := len(matched)
	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	return paginateBooks(matched, page, pageSize), total, nil
}

// --- memTx ---

type memTx struct {
	s       *MemoryStore
	locked  map[int32]bool
}

func (t *memTx) Lock(ctx context.Context, key string) error {
	// WithTx already holds the store-wide mutex for its entire duration,
	// so per-key advisory locking is implied; this just records intent
	// for symmetry with the Postgres implementation.
	if t.locked == nil {
		t.locked = make(map[int32]bool)
	}
	t.locked[LockKeyHash(key)] = true
	return nil
}

func (t *memTx) UpsertUser(ctx context.Context, email string) (User, error) {
	if id, ok := t.s.usersByMail[email]; ok {
		return t.s.users[id], nil
	}
	u := User{ID: uuid.NewString(), Email: email, CreatedAt: time.Now().UTC()}
	t.s.users[u.ID] = u
	t.s.usersByMail[email] = u.ID
	return u, nil
}

func (t *memTx) GetUserByEmail(ctx context.Context, email string) (User, error) {
	id, ok := t.s.usersByMail[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return t.s.users[id], nil
}

func (t *memTx) GetBookByISBN(ctx context.Context, isbn string) (Book, error) {
	id, ok := t.s.booksByISBN[isbn]
	if !ok {
		return Book{}, ErrNotFound
	}
	return t.s.books[id], nil
}

func (t *memTx) GetBookByID(ctx context.Context, id string) (Book, error) {
	b, ok := t.s.books[id]
	if !ok {
		return Book{}, ErrNotFound
	}
	return b, nil
}

func (t *memTx) DecrementAvailableCopies(ctx context.Context, bookID string) (bool, int, error) {
	b, ok := t.s.books[bookID]
	if !ok {
		return false, 0, ErrNotFound
	}
	if b.AvailableCopies < 1 {
		return false, b.AvailableCopies, nil
	}
	b.AvailableCopies--
	t.s.books[bookID] = b
	return true, b.AvailableCopies, nil
}

func (t *memTx) IncrementAvailableCopies(ctx context.Context, bookID string, by int) error {
	b, ok := t.s.books[bookID]
	if !ok {
		return ErrNotFound
	}
	b.AvailableCopies += by
	t.s.books[bookID] = b
	return nil
}

func (t *memTx) SetAvailableCopies(ctx context.Context, bookID string, newAvailable int) error {
	b, ok := t.s.books[bookID]
	if !ok {
		return ErrNotFound
	}
	b.AvailableCopies = newAvailable
	t.s.books[bookID] = b
	return nil
}

func (t *memTx) GetActiveBorrow(ctx context.Context, userID, bookID string) (*Borrow, error) {
	for _, b := range t.s.borrows {
		if b.UserID == userID && b.BookID == bookID && b.Status == BorrowActive {
			cp := b
			return &cp, nil
		}
	}
	return nil, nil
}

func (t *memTx) GetLatestReturnedBorrow(ctx context.Context, userID, bookID string) (*Borrow, error) {
	var latest *Borrow
	for _, b := range t.s.borrows {
		if b.UserID != userID || b.BookID != bookID || b.Status != BorrowReturned {
			continue
		}
		cp := b
		if latest == nil || (cp.ReturnedAt != nil && latest.ReturnedAt != nil && cp.ReturnedAt.After(*latest.ReturnedAt)) {
			latest = &cp
		}
	}
	return latest, nil
}

func (t *memTx) GetBorrowWithBook(ctx context.Context, borrowID string) (Borrow, Book, error) {
	b, ok := t.s.borrows[borrowID]
	if !ok {
		return Borrow{}, Book{}, ErrNotFound
	}
	book, ok := t.s.books[b.BookID]
	if !ok {
		return Borrow{}, Book{}, ErrNotFound
	}
	return b, book, nil
}

func (t *memTx) CountActiveBorrows(ctx context.Context, userID string) (int, error) {
	n := 0
	for _, b := range t.s.borrows {
		if b.UserID == userID && b.Status == BorrowActive {
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertBorrow(ctx context.Context, b Borrow) error {
	if b.ActiveKey != nil {
		for _, existing := range t.s.borrows {
			if existing.ActiveKey != nil && *existing.ActiveKey == *b.ActiveKey {
				return fmt.Errorf("store: duplicate active borrow key %q", *b.ActiveKey)
			}
		}
	}
	t.s.borrows[b.ID] = b
	return nil
}

func (t *memTx) MarkBorrowReturned(ctx context.Context, borrowID string, returnedAt time.Time) error {
	b, ok := t.s.borrows[borrowID]
	if !ok {
		return ErrNotFound
	}
	b.Status = BorrowReturned
	b.ReturnedAt = &returnedAt
	b.ActiveKey = nil
	t.s.borrows[borrowID] = b
	return nil
}

func (t *memTx) CountActivePurchasesForBook(ctx context.Context, userID, bookID string) (int, error) {
	n := 0
	for _, p := range t.s.purchases {
		if p.UserID == userID && p.BookID == bookID && p.Status == PurchaseActive {
			n++
		}
	}
	return n, nil
}

func (t *memTx) CountActivePurchases(ctx context.Context, userID string) (int, error) {
	n := 0
	for _, p := range t.s.purchases {
		if p.UserID == userID && p.Status == PurchaseActive {
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertPurchase(ctx context.Context, p Purchase) error {
	t.s.purchases[p.ID] = p
	return nil
}

func (t *memTx) GetPurchaseForUpdate(ctx context.Context, purchaseID, userID string) (*Purchase, error) {
	p, ok := t.s.purchases[purchaseID]
	if !ok || p.UserID != userID {
		return nil, nil
	}
	cp := p
	return &cp, nil
}

func (t *memTx) MarkPurchaseCanceled(ctx context.Context, purchaseID string, canceledAt time.Time) error {
	p, ok := t.s.purchases[purchaseID]
	if !ok {
		return ErrNotFound
	}
	p.Status = PurchaseCanceled
	p.CanceledAt = &canceledAt
	t.s.purchases[purchaseID] = p
	return nil
}

func (t *memTx) AppendMovement(ctx context.Context, m WalletMovement) (WalletMovement, bool, error) {
	if m.DedupeKey != "" {
		if id, ok := t.s.movementsByDedupe[m.DedupeKey]; ok {
			return t.s.movements[id], true, nil
		}
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.WalletID == "" {
		m.WalletID = LibraryWalletID
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	t.s.movements[m.ID] = m
	if m.DedupeKey != "" {
		t.s.movementsByDedupe[m.DedupeKey] = m.ID
	}
	return m, false, nil
}

func (t *memTx) WalletBalance(ctx context.Context) (int64, error) {
	var total int64
	for _, m := range t.s.movements {
		total += m.AmountCents
	}
	return total, nil
}

func (t *memTx) GetWallet(ctx context.Context) (LibraryWallet, error) {
	return t.s.wallet, nil
}

func (t *memTx) SetMilestoneReached(ctx context.Context) error {
	t.s.wallet.MilestoneReached = true
	return nil
}

func (t *memTx) AppendEvent(ctx context.Context, e Event) error {
	if e.DedupeKey != "" {
		if _, exists := t.s.eventsByDedupe[e.DedupeKey]; exists {
			return nil
		}
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	t.s.events[e.ID] = e
	if e.DedupeKey != "" {
		t.s.eventsByDedupe[e.DedupeKey] = e.ID
	}
	return nil
}

func (t *memTx) AppendEmail(ctx context.Context, e SimulatedEmail) error {
	if e.DedupeKey != "" {
		if _, exists := t.s.emailsByDedupe[e.DedupeKey]; exists {
			return nil
		}
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	t.s.emails[e.ID] = e
	if e.DedupeKey != "" {
		t.s.emailsByDedupe[e.DedupeKey] = e.ID
	}
	return nil
}

func (t *memTx) GetEmailByDedupe(ctx context.Context, dedupeKey string) (*SimulatedEmail, error) {
	id, ok := t.s.emailsByDedupe[dedupeKey]
	if !ok {
		return nil, nil
	}
	e := t.s.emails[id]
	return &e, nil
}

func (t *memTx) HasLiveJob(ctx context.Context, jobType JobType, activeKey string) (bool, error) {
	for _, j := range t.s.jobs {
		if j.Type == jobType && j.ActiveKey != nil && *j.ActiveKey == activeKey {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertJob(ctx context.Context, j Job) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	t.s.jobs[j.ID] = j
	return nil
}

func (t *memTx) CancelJobsByBorrow(ctx context.Context, borrowID string, jobType JobType) error {
	for id, j := range t.s.jobs {
		if j.BorrowID != nil && *j.BorrowID == borrowID && j.Type == jobType && j.ActiveKey != nil {
			j.Status = JobCanceled
			j.ActiveKey = nil
			t.s.jobs[id] = j
		}
	}
	return nil
}

func (t *memTx) GetJobByID(ctx context.Context, jobID string) (*Job, error) {
	j, ok := t.s.jobs[jobID]
	if !ok {
		return nil, nil
	}
	cp := j
	return &cp, nil
}

// --- job runner primitives (outside any Tx, matching the Postgres atomic
// claim-by-UPDATE discipline in spec §4.8) ---

func (m *MemoryStore) ListDueJobs(ctx context.Context, leaseExpiry time.Time, limit int) ([]Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	var due []Job
	for _, j := range m.jobs {
		if j.ActiveKey == nil {
			continue
		}
		if j.Attempts >= j.MaxAttempts {
			continue
		}
		switch {
		case j.Status == JobPending && !j.RunAt.After(now):
			due = append(due, j)
		case j.Status == JobProcessing && j.LockedAt != nil && j.LockedAt.Before(leaseExpiry):
			due = append(due, j)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].RunAt.Before(due[j].RunAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *MemoryStore) ClaimJob(ctx context.Context, jobID string, leaseExpiry time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok || j.ActiveKey == nil {
		return false, nil
	}
	eligible := j.Status == JobPending || (j.Status == JobProcessing && j.LockedAt != nil && j.LockedAt.Before(leaseExpiry))
	if !eligible {
		return false, nil
	}
	now := time.Now().UTC()
	j.Status = JobProcessing
	j.LockedAt = &now
	j.Attempts++
	m.jobs[jobID] = j
	return true, nil
}

func (m *MemoryStore) CompleteJob(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	j.Status = JobCompleted
	j.ActiveKey = nil
	j.CompletedAt = &now
	j.LastError = ""
	m.jobs[jobID] = j
	return nil
}

func (m *MemoryStore) FailJob(ctx context.Context, jobID string, lastErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	j.Status = JobFailed
	j.ActiveKey = nil
	j.CompletedAt = &now
	j.LastError = lastErr
	m.jobs[jobID] = j
	return nil
}

func (m *MemoryStore) RetryJob(ctx context.Context, jobID string, nextRunAt time.Time, lastErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	j.Status = JobPending
	j.LockedAt = nil
	j.RunAt = nextRunAt
	j.LastError = lastErr
	m.jobs[jobID] = j
	return nil
}

func (m *MemoryStore) RequeueJob(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	if j.Status != JobFailed {
		return fmt.Errorf("store: job %s is not FAILED", jobID)
	}
	key := fmt.Sprintf("%s:%s", j.Type, jobID)
	j.Status = JobPending
	j.ActiveKey = &key
	j.Attempts = 0
	j.RunAt = time.Now().UTC()
	j.LastError = ""
	j.CompletedAt = nil
	m.jobs[jobID] = j
	return nil
}

func (m *MemoryStore) ListJobs(ctx context.Context, filter JobFilter) ([]Job, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []Job
	for _, j := range m.jobs {
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		matched = append(matched, j)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].RunAt.After(matched[j].RunAt) })
	total := len(matched)
	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	return paginateJobs(matched, page, pageSize), total, nil
}

func (m *MemoryStore) GetIdempotencyRecord(ctx context.Context, key, userID, endpoint string) (*IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.idempotency[idemKey(key, userID, endpoint)]
	if !ok {
		return nil, nil
	}
	cp := rec
	return &cp, nil
}

func (m *MemoryStore) PutIdempotencyRecord(ctx context.Context, rec IdempotencyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idempotency[idemKey(rec.Key, rec.UserID, rec.Endpoint)] = rec
	return nil
}

func (m *MemoryStore) DeleteIdempotencyRecord(ctx context.Context, key, userID, endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.idempotency, idemKey(key, userID, endpoint))
	return nil
}

func (m *MemoryStore) ListMovements(ctx context.Context, filter MovementFilter) ([]WalletMovement, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []WalletMovement
	for _, mv := range m.movements {
		if filter.Kind == "credit" && mv.AmountCents <= 0 {
			continue
		}
		if filter.Kind == "debit" && mv.AmountCents >= 0 {
			continue
		}
		if filter.From != nil && mv.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && mv.CreatedAt.After(*filter.To) {
			continue
		}
		matched = append(matched, mv)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := len(matched)
	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	return paginateMovements(matched, page, pageSize), total, nil
}

func (m *MemoryStore) WalletBalance(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, mv := range m.movements {
		total += mv.AmountCents
	}
	return total, nil
}

func idemKey(key, userID, endpoint string) string {
	return key + "\x00" + userID + "\x00" + endpoint
}

func containsFold(haystack, needle string) bool {
	return len(needle) == 0 || indexFold(haystack, needle) >= 0
}
