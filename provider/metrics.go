package provider

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agentplane/agentplane/faults"
)

// Metrics records per-operation counters and latencies for every
// provider sharing the registry. A nil *Metrics disables recording.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentplane",
			Subsystem: "provider",
			Name:      "operations_total",
			Help:      "Resource provider operations by outcome.",
		}, []string{"provider", "operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentplane",
			Subsystem: "provider",
			Name:      "operation_duration_seconds",
			Help:      "Resource provider operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "operation"}),
	}
	registerer.MustRegister(m.operations, m.duration)
	return m
}

func (m *Metrics) observe(provider string, operation string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(faults.CategoryOf(err))
	}
	m.operations.WithLabelValues(provider, operation, outcome).Inc()
	m.duration.WithLabelValues(provider, operation).Observe(elapsed.Seconds())
}
