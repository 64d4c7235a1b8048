// Package metrics registers the Prometheus collectors exposed at
// GET /metrics, grounded on the teacher's payment-domain
// Metrics struct but scoped to borrow/purchase/job throughput.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector this service exposes.
type Metrics struct {
	BorrowsTotal   *prometheus.CounterVec
	PurchasesTotal *prometheus.CounterVec

	JobsProcessedTotal *prometheus.CounterVec
	JobsFailedTotal    *prometheus.CounterVec
	JobDuration        *prometheus.HistogramVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	RateLimitHitsTotal *prometheus.CounterVec

	WalletBalanceCents prometheus.Gauge
	DBQueryDuration    *prometheus.HistogramVec
}

// New creates and registers every collector against registry. A nil
// registry falls back to the default Prometheus registerer.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		BorrowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_borrows_total",
				Help: "Total borrow/return operations by kind and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		PurchasesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_purchases_total",
				Help: "Total buy/cancel operations by kind and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		JobsProcessedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_jobs_processed_total",
				Help: "Total jobs completed by type.",
			},
			[]string{"type"},
		),
		JobsFailedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_jobs_failed_total",
				Help: "Total jobs that exhausted retries by type.",
			},
			[]string{"type"},
		),
		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "inventory_job_duration_seconds",
				Help:    "Handler execution time by job type.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"type"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_http_requests_total",
				Help: "Total HTTP requests by route and status.",
			},
			[]string{"route", "method", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "inventory_http_request_duration_seconds",
				Help:    "HTTP request latency by route.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
			[]string{"route", "method"},
		),
		RateLimitHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_rate_limit_hits_total",
				Help: "Total requests rejected by a rate limiter, by scope.",
			},
			[]string{"scope"},
		),
		WalletBalanceCents: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "inventory_wallet_balance_cents",
				Help: "Current library wallet balance in cents.",
			},
		),
		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "inventory_db_query_duration_seconds",
				Help:    "Store query latency by operation.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"operation"},
		),
	}
}

// ObserveJob records one handler execution's duration and outcome.
func (m *Metrics) ObserveJob(jobType string, d time.Duration, success bool) {
	if m == nil {
		return
	}
	m.JobDuration.WithLabelValues(jobType).Observe(d.Seconds())
	if success {
		m.JobsProcessedTotal.WithLabelValues(jobType).Inc()
	} else {
		m.JobsFailedTotal.WithLabelValues(jobType).Inc()
	}
}

// ObserveRateLimit records a rate-limit rejection for scope ("global", "per_user", "per_ip").
func (m *Metrics) ObserveRateLimit(scope string) {
	if m == nil {
		return
	}
	m.RateLimitHitsTotal.WithLabelValues(scope).Inc()
}
