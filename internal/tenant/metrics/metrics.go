package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the tenant module.
type Metrics struct {
	TenantCreated       prometheus.Counter
	BindingWrites       prometheus.Counter
	ResolveDuration     prometheus.Histogram
	LifecycleTransition *prometheus.CounterVec
}

// New creates a Metrics instance with all tenant module metrics registered.
func New() *Metrics {
	return &Metrics{
		TenantCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gestora_tenants_created_total",
			Help: "Total number of tenants created",
		}),
		BindingWrites: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gestora_role_binding_writes_total",
			Help: "Total number of role binding upserts and deletes",
		}),
		ResolveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gestora_tenant_resolve_duration_seconds",
			Help:    "Duration of tenant context resolution (authorization critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		LifecycleTransition: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gestora_tenant_lifecycle_transitions_total",
			Help: "Tenant status transitions by target status",
		}, []string{"status"}),
	}
}

// IncrementTenantCreated records a successful tenant creation.
func (m *Metrics) IncrementTenantCreated() {
	m.TenantCreated.Inc()
}

// IncrementBindingWrites records a role binding mutation.
func (m *Metrics) IncrementBindingWrites() {
	m.BindingWrites.Inc()
}

// ObserveResolve records the duration of one tenant context resolution.
// Call with time.Now() captured at the start of the resolution.
func (m *Metrics) ObserveResolve(start time.Time) {
	m.ResolveDuration.Observe(time.Since(start).Seconds())
}

// IncrementLifecycle records a status transition.
func (m *Metrics) IncrementLifecycle(status string) {
	m.LifecycleTransition.WithLabelValues(status).Inc()
}
