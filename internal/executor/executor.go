// Package executor wraps every business operation with the permission
// check, tenant scoping of write payloads, latency measurement, structured
// logging, and audit emission. Handlers never touch the record store
// directly; all reads and mutations pass through here.
package executor

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gestora/internal/audit"
	"gestora/internal/authz"
	"gestora/internal/authz/rbac"
	"gestora/internal/executor/metrics"
	"gestora/internal/records"
	id "gestora/pkg/domain"
	dErrors "gestora/pkg/domain-errors"
	"gestora/pkg/requestcontext"
)

// AuditPublisher is the fire-and-forget audit emission port.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Operation identifies what a request is trying to do, in matrix terms.
type Operation struct {
	Resource string
	Action   rbac.Action
}

// Payload is a write payload after tenant scoping: ClienteID is the
// authoritative owner, and Data no longer carries the tenant field.
type Payload struct {
	ClienteID id.TenantID
	Data      map[string]any
}

// WriteResult is returned by a mutating operation so the executor can
// audit it.
type WriteResult struct {
	Data        any
	EntityID    string
	AuditAction audit.Action
	Details     map[string]any
}

// Executor is the single choke point for business operations.
type Executor struct {
	guard   *rbac.Guard
	audit   AuditPublisher
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Metrics
}

type Option func(*Executor)

func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(e *Executor) { e.audit = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

func New(guard *rbac.Guard, opts ...Option) *Executor {
	e := &Executor{
		guard:  guard,
		logger: slog.Default(),
		tracer: otel.Tracer("gestora/executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs a read-path operation: permission check, timed execution,
// structured outcome log. The operation is never invoked when the
// permission check fails, so a denied request has no side effects.
func (e *Executor) Execute(ctx context.Context, ac *authz.Context, op Operation, fn func(ctx context.Context) (any, error)) (any, error) {
	ctx, span, start := e.begin(ctx, ac, op)
	defer span.End()

	if err := e.guard.ValidatePermission(ac, op.Resource, op.Action); err != nil {
		return nil, e.finish(ctx, span, ac, op, start, nil, false, err)
	}

	data, err := fn(ctx)
	return data, e.finish(ctx, span, ac, op, start, nil, false, err)
}

// ExecuteWrite runs a mutating operation. Before invoking it, the raw
// payload is scoped: a payload carrying a tenant id other than the
// context's is rejected outright, and a missing tenant id is filled in
// from the context. Once the operation has been invoked it is audited
// whichever way it ends: success through the returned WriteResult,
// failure as a write_failed event carrying the error code. Denials and
// scoping rejections short-circuit before the operation and never reach
// the store, so only the tamper event applies there.
func (e *Executor) ExecuteWrite(ctx context.Context, ac *authz.Context, op Operation, payload map[string]any, fn func(ctx context.Context, p Payload) (*WriteResult, error)) (any, error) {
	ctx, span, start := e.begin(ctx, ac, op)
	defer span.End()

	if err := e.guard.ValidatePermission(ac, op.Resource, op.Action); err != nil {
		return nil, e.finish(ctx, span, ac, op, start, nil, false, err)
	}

	scoped, err := e.scopePayload(ctx, ac, op, payload)
	if err != nil {
		return nil, e.finish(ctx, span, ac, op, start, nil, false, err)
	}

	result, err := fn(ctx, scoped)
	var data any
	if result != nil {
		data = result.Data
	}
	return data, e.finish(ctx, span, ac, op, start, result, true, err)
}

// scopePayload enforces the tenant-id immutability rule. The header-derived
// context is the only trusted source of the owning tenant; a payload that
// names a different tenant is treated as a tampering attempt, audited, and
// rejected before the operation runs.
func (e *Executor) scopePayload(ctx context.Context, ac *authz.Context, op Operation, payload map[string]any) (Payload, error) {
	raw, present := payload[records.TenantField]

	if ac.TenantID.IsNil() {
		// Operator scope has no implicit tenant; writes must name one.
		s, ok := raw.(string)
		if !present || !ok {
			return Payload{}, dErrors.New(dErrors.CodeValidation, "cliente_id is required for this operation")
		}
		clienteID, err := id.ParseTenantID(s)
		if err != nil {
			return Payload{}, dErrors.New(dErrors.CodeValidation, "cliente_id must be a valid uuid")
		}
		return Payload{ClienteID: clienteID, Data: payload}, nil
	}

	if present {
		s, ok := raw.(string)
		if !ok || s != ac.TenantID.String() {
			e.rejectTamper(ctx, ac, op, raw)
			return Payload{}, dErrors.New(dErrors.CodeValidation, "cliente_id cannot be set by the caller").
				WithDetails(map[string]string{"field": records.TenantField})
		}
	}
	return Payload{ClienteID: ac.TenantID, Data: payload}, nil
}

func (e *Executor) rejectTamper(ctx context.Context, ac *authz.Context, op Operation, supplied any) {
	e.logger.WarnContext(ctx, "write payload carried a foreign tenant id",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", ac.UserID.String(),
		"tenant_id", ac.TenantID.String(),
		"resource", op.Resource,
		"action", string(op.Action),
		"client_ip", requestcontext.ClientIP(ctx),
		"user_agent", requestcontext.UserAgent(ctx),
	)
	if e.metrics != nil {
		e.metrics.IncrementTamperRejected()
	}
	if e.audit != nil {
		details := map[string]any{
			"action":   string(op.Action),
			"supplied": supplied,
		}
		if ip := requestcontext.ClientIP(ctx); ip != "" {
			details["client_ip"] = ip
		}
		if ua := requestcontext.UserAgent(ctx); ua != "" {
			details["user_agent"] = ua
		}
		e.audit.Emit(ctx, audit.Event{
			TenantID: ac.TenantID.String(),
			UserID:   ac.UserID.String(),
			Action:   audit.ActionTenantTamperRejected,
			Entity:   op.Resource,
			Details:  details,
		})
	}
}

func (e *Executor) begin(ctx context.Context, ac *authz.Context, op Operation) (context.Context, trace.Span, time.Time) {
	ctx, span := e.tracer.Start(ctx, "operation."+op.Resource+"."+string(op.Action))
	span.SetAttributes(
		attribute.String("resource", op.Resource),
		attribute.String("action", string(op.Action)),
		attribute.String("tenant_id", ac.TenantID.String()),
	)
	return ctx, span, time.Now()
}

// finish produces the single outcome log, the metric sample, the audit
// event for the mutation outcome, and the error the transport will see.
// Domain errors pass through untouched; anything else is wrapped as an
// internal error so store-specific detail never reaches a response.
// mutating marks calls where the wrapped operation was actually invoked
// on the write path; those are audited even when they fail.
func (e *Executor) finish(ctx context.Context, span trace.Span, ac *authz.Context, op Operation, start time.Time, result *WriteResult, mutating bool, err error) error {
	latency := time.Since(start)
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"tenant_id", ac.TenantID.String(),
		"user_id", ac.UserID.String(),
		"resource", op.Resource,
		"action", string(op.Action),
		"latency_ms", latency.Milliseconds(),
	}

	if err != nil {
		var dErr *dErrors.Error
		if !dErrors.AsDomain(err, &dErr) {
			err = dErrors.Wrap(err, dErrors.CodeInternal, "operation failed")
		}
		code := dErrors.CodeOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(code))
		e.observe(op, string(code), start)
		e.logger.ErrorContext(ctx, "operation failed", append(attrs, "error", err, "code", string(code))...)
		if mutating && e.audit != nil {
			e.audit.Emit(ctx, audit.Event{
				TenantID: ac.TenantID.String(),
				UserID:   ac.UserID.String(),
				Action:   audit.ActionWriteFailed,
				Entity:   op.Resource,
				Details: map[string]any{
					"action": string(op.Action),
					"code":   string(code),
				},
			})
		}
		return err
	}

	span.SetStatus(codes.Ok, "")
	e.observe(op, "ok", start)
	e.logger.InfoContext(ctx, "operation completed", attrs...)

	if result != nil && result.AuditAction != "" && e.audit != nil {
		e.audit.Emit(ctx, audit.Event{
			TenantID: ac.TenantID.String(),
			UserID:   ac.UserID.String(),
			Action:   result.AuditAction,
			Entity:   op.Resource,
			EntityID: result.EntityID,
			Details:  result.Details,
		})
	}
	return nil
}

func (e *Executor) observe(op Operation, outcome string, start time.Time) {
	if e.metrics != nil {
		e.metrics.ObserveOperation(op.Resource, string(op.Action), outcome, start)
	}
}
