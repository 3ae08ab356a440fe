// Package metrics provides observability for the operation executor.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers the executed business operations.
type Metrics struct {
	OperationDuration *prometheus.HistogramVec
	TamperRejected    prometheus.Counter
}

// New creates a Metrics instance with all executor metrics registered.
func New() *Metrics {
	return &Metrics{
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gestora_operation_duration_seconds",
			Help:    "Duration of executed business operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"resource", "action", "outcome"}),
		TamperRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gestora_tenant_tamper_rejected_total",
			Help: "Write payloads rejected for carrying a foreign tenant id",
		}),
	}
}

// ObserveOperation records one executed operation.
func (m *Metrics) ObserveOperation(resource, action, outcome string, start time.Time) {
	m.OperationDuration.WithLabelValues(resource, action, outcome).Observe(time.Since(start).Seconds())
}

// IncrementTamperRejected records a rejected tenant-id tampering attempt.
func (m *Metrics) IncrementTamperRejected() {
	m.TamperRejected.Inc()
}
