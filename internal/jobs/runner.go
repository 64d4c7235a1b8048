// Package jobs implements the background poll loop that claims and
// dispatches deferred work (restocks, reminders) per spec §4.8: atomic
// conditional-UPDATE claiming, lease-based reclaim of stuck workers, and
// exponential backoff on handler failure.
package jobs

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dummy-library/inventory-core/internal/metrics"
	"github.com/dummy-library/inventory-core/internal/store"
)

const (
	// PollInterval is how often the runner checks for due jobs.
	PollInterval = 5 * time.Second
	// Lease is how long a claimed job may stay PROCESSING before another
	// worker is allowed to reclaim it.
	Lease = 60 * time.Second
	// HandlerTimeout bounds a single handler invocation.
	HandlerTimeout = 30 * time.Second
	// BatchSize is the max number of jobs claimed per poll tick.
	BatchSize = 10

	backoffBase = 60 * time.Second
	backoffCap  = 3600 * time.Second
)

// Handler processes one claimed job, typically inside its own store.WithTx
// call. A returned error drives the runner's retry/backoff decision.
type Handler func(ctx context.Context, s store.Store, j store.Job) error

// Transition describes one job state change, published to any registered
// EventSink for admin live-tailing.
type Transition struct {
	JobID     string
	Type      store.JobType
	Status    store.JobStatus
	Attempts  int
	LastError string
	At        time.Time
}

// EventSink receives Transitions as the runner processes jobs. Implemented
// by internal/httpserver's admin websocket hub; nil by default so the
// runner works without an HTTP layer attached (e.g. under test).
type EventSink interface {
	Publish(Transition)
}

// Runner polls store for due jobs and dispatches them to registered handlers.
type Runner struct {
	store    store.Store
	handlers map[store.JobType]Handler
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	sink     EventSink

	started  int32
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New constructs a Runner with no handlers registered; call Register before Start.
func New(s store.Store) *Runner {
	return &Runner{
		store:    s,
		handlers: make(map[store.JobType]Handler),
		logger:   log.Logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// SetMetrics attaches a metrics collector; safe to call with nil to disable.
func (r *Runner) SetMetrics(m *metrics.Metrics) {
	r.metrics = m
}

// SetEventSink attaches a Transition subscriber; safe to call with nil to disable.
func (r *Runner) SetEventSink(sink EventSink) {
	r.sink = sink
}

func (r *Runner) publish(t Transition) {
	if r.sink == nil {
		return
	}
	r.sink.Publish(t)
}

// Register binds a Handler to a JobType.
func (r *Runner) Register(jobType store.JobType, h Handler) {
	r.handlers[jobType] = h
}

// Start launches the poll loop in a background goroutine.
func (r *Runner) Start(ctx context.Context) {
	atomic.StoreInt32(&r.started, 1)
	go r.run(ctx)
}

// Stop signals the poll loop to exit and waits for it to finish the current
// tick. A no-op if Start was never called, so lifecycle.Manager can close a
// Runner it registered but never started (e.g. in an embedding that only
// serves HTTP) without blocking forever on doneCh.
func (r *Runner) Stop() {
	if atomic.LoadInt32(&r.started) == 0 {
		return
	}
	close(r.stopCh)
	<-r.doneCh
}

func (r *Runner) run(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	r.logger.Info().Dur("pollInterval", PollInterval).Msg("job runner started")

	for {
		select {
		case <-r.stopCh:
			r.logger.Info().Msg("job runner stopping")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick runs one poll cycle: list due jobs, attempt to claim each, dispatch
// the ones this worker wins.
func (r *Runner) tick(ctx context.Context) {
	leaseExpiry := time.Now().UTC().Add(-Lease)
	due, err := r.store.ListDueJobs(ctx, leaseExpiry, BatchSize)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to list due jobs")
		return
	}

	for _, j := range due {
		r.processOne(ctx, j, leaseExpiry)
	}
}

func (r *Runner) processOne(ctx context.Context, j store.Job, leaseExpiry time.Time) {
	claimed, err := r.store.ClaimJob(ctx, j.ID, leaseExpiry)
	if err != nil {
		r.logger.Error().Err(err).Str("jobId", j.ID).Msg("failed to claim job")
		return
	}
	if !claimed {
		return // another worker won the race
	}

	attempts := j.Attempts + 1 // ClaimJob already incremented the stored row
	r.publish(Transition{JobID: j.ID, Type: j.Type, Status: store.JobProcessing, Attempts: attempts, At: time.Now().UTC()})

	handler, ok := r.handlers[j.Type]
	if !ok {
		if err := r.store.FailJob(ctx, j.ID, fmt.Sprintf("no handler registered for job type %q", j.Type)); err != nil {
			r.logger.Error().Err(err).Str("jobId", j.ID).Msg("failed to mark unhandled job as failed")
		}
		return
	}

	start := time.Now()
	handlerCtx, cancel := context.WithTimeout(ctx, HandlerTimeout)
	err = handler(handlerCtx, r.store, j)
	cancel()
	duration := time.Since(start)

	if err == nil {
		r.metrics.ObserveJob(string(j.Type), duration, true)
		if err := r.store.CompleteJob(ctx, j.ID); err != nil {
			r.logger.Error().Err(err).Str("jobId", j.ID).Msg("failed to mark job completed")
		}
		r.publish(Transition{JobID: j.ID, Type: j.Type, Status: store.JobCompleted, Attempts: attempts, At: time.Now().UTC()})
		return
	}

	r.handleFailure(ctx, j, attempts, err)
}

func (r *Runner) handleFailure(ctx context.Context, j store.Job, attempts int, handlerErr error) {
	if attempts >= j.MaxAttempts {
		r.metrics.ObserveJob(string(j.Type), 0, false)
		if err := r.store.FailJob(ctx, j.ID, handlerErr.Error()); err != nil {
			r.logger.Error().Err(err).Str("jobId", j.ID).Msg("failed to mark job failed")
		}
		r.logger.Warn().Str("jobId", j.ID).Str("type", string(j.Type)).Int("attempts", attempts).Err(handlerErr).
			Msg("job exhausted retries")
		r.publish(Transition{JobID: j.ID, Type: j.Type, Status: store.JobFailed, Attempts: attempts, LastError: handlerErr.Error(), At: time.Now().UTC()})
		return
	}

	delay := NextBackoff(attempts)
	nextRunAt := time.Now().UTC().Add(delay)
	if err := r.store.RetryJob(ctx, j.ID, nextRunAt, handlerErr.Error()); err != nil {
		r.logger.Error().Err(err).Str("jobId", j.ID).Msg("failed to reschedule job")
	}
	r.logger.Warn().Str("jobId", j.ID).Str("type", string(j.Type)).Int("attempts", attempts).
		Time("nextRunAt", nextRunAt).Err(handlerErr).Msg("job failed, scheduled for retry")
	r.publish(Transition{JobID: j.ID, Type: j.Type, Status: store.JobPending, Attempts: attempts, LastError: handlerErr.Error(), At: time.Now().UTC()})
}

// NextBackoff implements next(attempts) = min(BASE*2^(attempts-1), CAP).
func NextBackoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	multiplier := math.Pow(2, float64(attempts-1))
	delay := time.Duration(float64(backoffBase) * multiplier)
	if delay > backoffCap {
		delay = backoffCap
	}
	return delay
}
