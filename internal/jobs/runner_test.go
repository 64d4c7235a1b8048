package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dummy-library/inventory-core/internal/store"
)

func TestNextBackoff(t *testing.T) {
	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{1, 60 * time.Second},
		{2, 120 * time.Second},
		{3, 240 * time.Second},
		{6, 1920 * time.Second},
		{7, 3600 * time.Second},  // 60*2^6=3840, capped at 3600
		{20, 3600 * time.Second}, // far past the cap
	}
	for _, c := range cases {
		got := NextBackoff(c.attempts)
		if got != c.want {
			t.Errorf("NextBackoff(%d) = %v, want %v", c.attempts, got, c.want)
		}
	}
}

func TestRunner_TickCompletesJob(t *testing.T) {
	s := store.NewMemoryStore()
	key := "TEST:1"
	job := store.Job{
		ID:          "job-1",
		Type:        "TEST",
		Status:      store.JobPending,
		RunAt:       time.Now().UTC().Add(-time.Minute),
		MaxAttempts: 10,
		ActiveKey:   &key,
	}
	if err := seedJob(s, job); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	r := New(s)
	handled := false
	r.Register("TEST", func(ctx context.Context, s store.Store, j store.Job) error {
		handled = true
		return nil
	})

	r.tick(context.Background())

	if !handled {
		t.Fatalf("expected handler to run")
	}
	jobs, _, err := s.ListJobs(context.Background(), store.JobFilter{})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Status != store.JobCompleted {
		t.Fatalf("expected job to be COMPLETED, got %+v", jobs)
	}
}

func TestRunner_TickRetriesOnFailure(t *testing.T) {
	s := store.NewMemoryStore()
	key := "TEST:2"
	job := store.Job{
		ID:          "job-2",
		Type:        "TEST",
		Status:      store.JobPending,
		RunAt:       time.Now().UTC().Add(-time.Minute),
		MaxAttempts: 10,
		ActiveKey:   &key,
	}
	if err := seedJob(s, job); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	r := New(s)
	r.Register("TEST", func(ctx context.Context, s store.Store, j store.Job) error {
		return errors.New("boom")
	})

	r.tick(context.Background())

	jobs, _, err := s.ListJobs(context.Background(), store.JobFilter{})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if jobs[0].Status != store.JobPending {
		t.Fatalf("expected job rescheduled to PENDING, got %s", jobs[0].Status)
	}
	if jobs[0].LastError != "boom" {
		t.Fatalf("expected lastError to be recorded, got %q", jobs[0].LastError)
	}
	if !jobs[0].RunAt.After(time.Now().UTC()) {
		t.Fatalf("expected runAt to be rescheduled into the future")
	}
}

func TestRunner_MissingHandlerFails(t *testing.T) {
	s := store.NewMemoryStore()
	key := "UNKNOWN:1"
	job := store.Job{
		ID:          "job-3",
		Type:        "UNKNOWN",
		Status:      store.JobPending,
		RunAt:       time.Now().UTC().Add(-time.Minute),
		MaxAttempts: 10,
		ActiveKey:   &key,
	}
	if err := seedJob(s, job); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	r := New(s)
	r.tick(context.Background())

	jobs, _, err := s.ListJobs(context.Background(), store.JobFilter{})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Status != store.JobFailed {
		t.Fatalf("expected job to be FAILED, got %+v", jobs)
	}
}

func seedJob(s store.Store, j store.Job) error {
	return s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.InsertJob(ctx, j)
	})
}
