package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records submission outcomes for the checkout flow.
type CheckoutMetrics struct {
	duration *prometheus.HistogramVec
	attempts prometheus.Counter
	success  prometheus.Counter
	failure  *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout submissions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	attempts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout submissions started.",
	})
	success := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_success_total",
		Help: "Checkout submissions that produced an order.",
	})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failure_total",
		Help: "Checkout submissions that failed, by reason.",
	}, []string{"reason"})
	reg.MustRegister(duration, attempts, success, failure)
	return &CheckoutMetrics{
		duration: duration,
		attempts: attempts,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the duration of a submission with its outcome label.
func (c *CheckoutMetrics) ObserveDuration(outcome string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncAttempt counts a submission entering the flow.
func (c *CheckoutMetrics) IncAttempt() {
	if c == nil || c.attempts == nil {
		return
	}
	c.attempts.Inc()
}

// IncSuccess counts a confirmed order.
func (c *CheckoutMetrics) IncSuccess() {
	if c == nil || c.success == nil {
		return
	}
	c.success.Inc()
}

// IncFailure counts a failed submission for the given reason.
func (c *CheckoutMetrics) IncFailure(reason string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(reason)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
