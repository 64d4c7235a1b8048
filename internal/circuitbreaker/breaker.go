// Package circuitbreaker wraps the Postgres health probe in a
// sony/gobreaker circuit breaker so a database outage fails fast instead of
// piling up blocked health checks, grounded on the teacher's
// per-service breaker manager.
package circuitbreaker

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// Config tunes the single breaker this service runs in front of its
// database health probe.
type Config struct {
	Enabled             bool
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// DefaultConfig returns sensible defaults: trip after 5 consecutive
// failures, stay open 30s before probing again.
func DefaultConfig() Config {
	return Config{
		Enabled:             true,
		MaxRequests:         1,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// Breaker wraps one external dependency (the database) with trip/reset logic.
type Breaker struct {
	cfg     Config
	circuit *gobreaker.CircuitBreaker
}

// New constructs a Breaker named "postgres".
func New(cfg Config) *Breaker {
	b := &Breaker{cfg: cfg}
	if !cfg.Enabled {
		return b
	}
	b.circuit = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "postgres",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return cfg.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
	return b
}

// Execute runs fn through the breaker, or directly if the breaker is disabled.
func (b *Breaker) Execute(fn func() error) error {
	if !b.cfg.Enabled || b.circuit == nil {
		return fn()
	}
	_, err := b.circuit.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// State reports the breaker's current state, or "disabled".
func (b *Breaker) State() string {
	if !b.cfg.Enabled || b.circuit == nil {
		return "disabled"
	}
	return b.circuit.State().String()
}
