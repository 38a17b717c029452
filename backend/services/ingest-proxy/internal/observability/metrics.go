package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes ingest pipeline counters. A nil *Metrics is a no-op so
// tests can wire services without a registry.
type Metrics struct {
	accepted      prometheus.Counter
	rejected      prometheus.Counter
	writeFailures *prometheus.CounterVec
	writeLatency  prometheus.Histogram
}

// NewMetrics registers the ingest metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_readings_accepted_total",
			Help: "Readings that passed validation and were written to the store.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_readings_rejected_total",
			Help: "Readings rejected before any store write.",
		}),
		writeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_store_write_failures_total",
			Help: "Store write failures by leg (current or history).",
		}, []string{"leg"}),
		writeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ingest_store_write_seconds",
			Help:    "Wall time of the dual store write.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
	}
	reg.MustRegister(m.accepted, m.rejected, m.writeFailures, m.writeLatency)
	return m
}

// ReadingAccepted counts a fully written reading.
func (m *Metrics) ReadingAccepted() {
	if m != nil {
		m.accepted.Inc()
	}
}

// ReadingRejected counts a validation rejection.
func (m *Metrics) ReadingRejected() {
	if m != nil {
		m.rejected.Inc()
	}
}

// WriteFailed counts a failed store write for the given leg.
func (m *Metrics) WriteFailed(leg string) {
	if m != nil {
		m.writeFailures.WithLabelValues(leg).Inc()
	}
}

// ObserveWriteDuration records the duration of a dual write.
func (m *Metrics) ObserveWriteDuration(d time.Duration) {
	if m != nil {
		m.writeLatency.Observe(d.Seconds())
	}
}
