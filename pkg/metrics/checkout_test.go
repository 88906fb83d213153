package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsAreSafe(t *testing.T) {
	t.Parallel()

	var m *CheckoutMetrics
	m.IncAttempt()
	m.IncSuccess()
	m.IncFailure("payment_declined")
	m.ObserveDuration("failure", time.Second)

	unregistered := NewCheckoutMetrics(nil)
	unregistered.IncAttempt()
	unregistered.ObserveDuration("success", time.Second)
}

func TestCountersRecord(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m := NewCheckoutMetrics(registry)

	m.IncAttempt()
	m.IncAttempt()
	m.IncSuccess()
	m.IncFailure("payment_declined")
	m.IncFailure("payment_declined")
	m.IncFailure("")

	if got := testutil.ToFloat64(m.attempts); got != 2 {
		t.Fatalf("expected 2 attempts, got %v", got)
	}
	if got := testutil.ToFloat64(m.success); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues("payment_declined")); got != 2 {
		t.Fatalf("expected 2 declined failures, got %v", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("expected blank reasons normalized to unknown, got %v", got)
	}
}

func TestDurationHistogramRegisters(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m := NewCheckoutMetrics(registry)

	m.ObserveDuration("success", 250*time.Millisecond)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() == "checkout_duration_seconds" {
			return
		}
	}
	t.Fatalf("expected checkout_duration_seconds to be registered")
}
