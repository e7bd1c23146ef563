package jsonrpc

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects Prometheus metrics for a client. A nil *Metrics records
// nothing.
type Metrics struct {
	exchanges prometheus.Counter
	attempts  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	duration  prometheus.Histogram
}

// NewMetrics creates the client metrics and registers them with reg. Passing
// nil skips registration, which is convenient in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		exchanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gripp",
			Subsystem: "client",
			Name:      "exchanges_total",
			Help:      "Completed HTTP exchanges with a 2xx status.",
		}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gripp",
			Subsystem: "client",
			Name:      "attempts_total",
			Help:      "Physical HTTP attempts by outcome, retries included.",
		}, []string{"outcome"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gripp",
			Subsystem: "client",
			Name:      "errors_total",
			Help:      "Errors returned to callers by kind.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gripp",
			Subsystem: "client",
			Name:      "attempt_duration_seconds",
			Help:      "Duration of physical HTTP attempts.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.exchanges, m.attempts, m.errors, m.duration)
	}
	return m
}

func (m *Metrics) observeAttempt(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) observeExchange() {
	if m == nil {
		return
	}
	m.exchanges.Inc()
}

func (m *Metrics) observeError(err error) {
	if m == nil {
		return
	}
	kind := "unknown"
	var apiErr Error
	if errors.As(err, &apiErr) {
		kind = string(apiErr.Kind())
	}
	m.errors.WithLabelValues(kind).Inc()
}
