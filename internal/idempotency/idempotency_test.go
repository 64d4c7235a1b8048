package idempotency

import (
	"testing"
	"time"

	"github.com/dummy-library/inventory-core/internal/store"
)

func TestLookupMissReturnsNil(t *testing.T) {
	c := New(store.NewMemoryStore())

	rec, err := c.Lookup(t.Context(), "key-1", "user-1", "buy")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record on miss, got %+v", rec)
	}
}

func TestLookupEmptyKeyIsAlwaysAMiss(t *testing.T) {
	c := New(store.NewMemoryStore())

	rec, err := c.Lookup(t.Context(), "", "user-1", "buy")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record for empty key, got %+v", rec)
	}
}

func TestSaveThenLookupReplays(t *testing.T) {
	c := New(store.NewMemoryStore())

	c.Save(t.Context(), "key-1", "user-1", "buy", 201, []byte(`{"ok":true}`))

	rec, err := c.Lookup(t.Context(), "key-1", "user-1", "buy")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a cached record")
	}
	if rec.StatusCode != 201 {
		t.Fatalf("expected status 201, got %d", rec.StatusCode)
	}
	if string(rec.Body) != `{"ok":true}` {
		t.Fatalf("unexpected body: %s", rec.Body)
	}
}

func TestLookupDifferentUserOrEndpointIsAMiss(t *testing.T) {
	c := New(store.NewMemoryStore())
	c.Save(t.Context(), "key-1", "user-1", "buy", 201, []byte("body"))

	if rec, _ := c.Lookup(t.Context(), "key-1", "user-2", "buy"); rec != nil {
		t.Fatal("expected a miss for a different user")
	}
	if rec, _ := c.Lookup(t.Context(), "key-1", "user-1", "borrow"); rec != nil {
		t.Fatal("expected a miss for a different endpoint")
	}
}

func TestLookupExpiredRecordIsDeletedAndTreatedAsAMiss(t *testing.T) {
	s := store.NewMemoryStore()
	c := New(s)
	c.ttl = -time.Minute // force immediate expiry

	c.Save(t.Context(), "key-1", "user-1", "buy", 200, []byte("body"))

	rec, err := c.Lookup(t.Context(), "key-1", "user-1", "buy")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if rec != nil {
		t.Fatal("expected expired record to be treated as a miss")
	}

	stored, err := s.GetIdempotencyRecord(t.Context(), "key-1", "user-1", "buy")
	if err != nil {
		t.Fatalf("GetIdempotencyRecord: %v", err)
	}
	if stored != nil {
		t.Fatal("expected expired record to be deleted from the store")
	}
}
