package audit

import (
	"context"
	"log/slog"

	auditmetrics "gestora/internal/audit/metrics"
	"gestora/pkg/requestcontext"
)

// DefaultBufferSize bounds in-flight audit events. Under sustained sink
// outage the buffer fills and new events are dropped (and counted) rather
// than blocking request paths.
const DefaultBufferSize = 4096

// Publisher accepts events from request paths and hands them to the worker
// through a bounded channel. Emit never blocks and never returns an error
// to the caller: a full buffer is an operational problem, not the
// requester's.
type Publisher struct {
	inbox   chan Event
	logger  *slog.Logger
	metrics *auditmetrics.Metrics
}

type PublisherOption func(*Publisher)

// WithMetrics attaches pipeline metrics. Wire this once in main; tests
// usually leave it off.
func WithMetrics(m *auditmetrics.Metrics) PublisherOption {
	return func(p *Publisher) { p.metrics = m }
}

// WithBufferSize overrides the default inbox capacity.
func WithBufferSize(n int) PublisherOption {
	return func(p *Publisher) {
		if n > 0 {
			p.inbox = make(chan Event, n)
		}
	}
}

func NewPublisher(logger *slog.Logger, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		inbox:  make(chan Event, DefaultBufferSize),
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit enqueues the event, stamping timestamp and request id from context
// when absent. Dropped events are logged as warnings.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	select {
	case p.inbox <- event:
		if p.metrics != nil {
			p.metrics.IncrementEmitted()
		}
	default:
		if p.metrics != nil {
			p.metrics.IncrementDropped()
		}
		p.logger.WarnContext(ctx, "audit buffer full, event dropped",
			"action", event.Action,
			"entity", event.Entity,
			"tenant_id", event.TenantID,
			"request_id", event.RequestID,
		)
	}
}

// Inbox exposes the channel for the worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}
