package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewRegistersAllCollectorsWithoutPanicking(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	if m.BorrowsTotal == nil || m.PurchasesTotal == nil || m.JobsProcessedTotal == nil {
		t.Fatal("expected all collectors to be constructed")
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected at least one registered metric family")
	}
}

func TestNewFallsBackToDefaultRegistererOnNil(t *testing.T) {
	m := New(nil)
	if m == nil {
		t.Fatal("expected a non-nil Metrics even with a nil registerer")
	}
}

func TestObserveJobRecordsSuccessAndFailure(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveJob("restock", 10*time.Millisecond, true)
	m.ObserveJob("restock", 10*time.Millisecond, false)

	var metric dto.Metric
	if err := m.JobsProcessedTotal.WithLabelValues("restock").Write(&metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Fatalf("expected 1 processed job, got %v", metric.Counter.GetValue())
	}

	var failMetric dto.Metric
	if err := m.JobsFailedTotal.WithLabelValues("restock").Write(&failMetric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if failMetric.Counter.GetValue() != 1 {
		t.Fatalf("expected 1 failed job, got %v", failMetric.Counter.GetValue())
	}
}

func TestObserveJobOnNilReceiverIsANoOp(t *testing.T) {
	var m *Metrics
	m.ObserveJob("restock", time.Millisecond, true) // must not panic
}

func TestObserveRateLimitOnNilReceiverIsANoOp(t *testing.T) {
	var m *Metrics
	m.ObserveRateLimit("global") // must not panic
}

func TestObserveRateLimitIncrementsScope(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveRateLimit("global")
	m.ObserveRateLimit("global")

	var metric dto.Metric
	if err := m.RateLimitHitsTotal.WithLabelValues("global").Write(&metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2 {
		t.Fatalf("expected 2 rate limit hits, got %v", metric.Counter.GetValue())
	}
}
