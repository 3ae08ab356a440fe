package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the audit pipeline. Construct once at
// process start; the publisher treats a nil *Metrics as disabled.
type Metrics struct {
	Emitted prometheus.Counter
	Dropped prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Emitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gestora_audit_events_emitted_total",
			Help: "Audit events accepted into the buffer",
		}),
		Dropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gestora_audit_events_dropped_total",
			Help: "Audit events dropped because the buffer was full",
		}),
	}
}

func (m *Metrics) IncrementEmitted() {
	m.Emitted.Inc()
}

func (m *Metrics) IncrementDropped() {
	m.Dropped.Inc()
}
