// Package resolver derives the per-request authorization context from the
// tenant header, the tenant registry, and the caller's role bindings.
//
// Every request that reaches a business handler has passed through here,
// so lookups go through the cache layer when one is configured and every
// denial is logged at warn level with its real reason. Responses, by
// contrast, deliberately collapse unknown, inactive, and unbound tenants
// into a single forbidden answer so callers cannot probe which tenant ids
// exist.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gestora/internal/authz"
	"gestora/internal/identity"
	"gestora/internal/platform/servicetoken"
	"gestora/internal/tenant/metrics"
	"gestora/internal/tenant/models"
	id "gestora/pkg/domain"
	dErrors "gestora/pkg/domain-errors"
	"gestora/pkg/platform/httputil"
	"gestora/pkg/platform/sentinel"
	"gestora/pkg/requestcontext"
)

// DefaultHeader names the header carrying the tenant id.
const DefaultHeader = "X-Tenant-ID"

// TenantFinder looks up tenants on the authorization path.
type TenantFinder interface {
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
}

// BindingFinder looks up role bindings on the authorization path.
type BindingFinder interface {
	Find(ctx context.Context, userID id.UserID, tenantID id.TenantID) (*models.RoleBinding, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.RoleBinding, error)
}

// Resolver builds authz contexts for incoming requests.
type Resolver struct {
	tenants  TenantFinder
	bindings BindingFinder
	header   string
	logger   *slog.Logger
	metrics  *metrics.Metrics

	bypassEnabled bool
	serviceTokens *servicetoken.Verifier
}

type Option func(*Resolver)

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

func WithHeader(name string) Option {
	return func(r *Resolver) {
		if name != "" {
			r.header = name
		}
	}
}

// WithAdminBypass enables the headerless admin path. It only takes effect
// with a non-nil verifier, so a deployment that sets the flag but no
// service token hash stays closed.
func WithAdminBypass(v *servicetoken.Verifier) Option {
	return func(r *Resolver) {
		r.bypassEnabled = v != nil
		r.serviceTokens = v
	}
}

func New(tenants TenantFinder, bindings BindingFinder, opts ...Option) *Resolver {
	r := &Resolver{
		tenants:  tenants,
		bindings: bindings,
		header:   DefaultHeader,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// errTenantForbidden is the uniform denial for tenants that are unknown,
// not active, or not bound to the caller.
func errTenantForbidden() error {
	return dErrors.New(dErrors.CodeTenantForbidden, "access to this tenant is not allowed")
}

// Resolve runs the full resolution sequence for one request and returns
// the authorization context, or a domain error describing the denial.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request, principal *identity.Principal, requiresAdmin bool) (*authz.Context, error) {
	start := time.Now()
	if r.metrics != nil {
		defer r.metrics.ObserveResolve(start)
	}

	raw := strings.TrimSpace(req.Header.Get(r.header))
	if raw == "" {
		if requiresAdmin && r.bypassEnabled {
			if ac, ok := r.tryAdminBypass(ctx, req, principal); ok {
				return ac, nil
			}
		}
		r.deny(ctx, principal, "tenant header missing", nil)
		return nil, dErrors.New(dErrors.CodeTenantHeaderRequired, "tenant header is required").
			WithDetails(map[string]string{"header": r.header})
	}

	tenantID, err := id.ParseTenantID(raw)
	if err != nil {
		r.deny(ctx, principal, "tenant header is not a valid uuid", nil)
		return nil, dErrors.New(dErrors.CodeTenantHeaderInvalid, "tenant header must be a valid uuid").
			WithDetails(map[string]string{"header": r.header})
	}

	tenant, err := r.tenants.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			r.deny(ctx, principal, "tenant does not exist", &tenantID)
			return nil, errTenantForbidden()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "tenant lookup failed")
	}

	if !tenant.IsActive() {
		r.deny(ctx, principal, "tenant is not active", &tenantID,
			slog.String("tenant_status", string(tenant.Status)))
		return nil, errTenantForbidden()
	}

	binding, err := r.bindings.Find(ctx, principal.UserID, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			r.deny(ctx, principal, "principal has no binding on tenant", &tenantID)
			return nil, errTenantForbidden()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "role binding lookup failed")
	}

	if requiresAdmin && binding.Role != models.RoleAdmin {
		r.deny(ctx, principal, "admin role required", &tenantID,
			slog.String("role", string(binding.Role)))
		return nil, dErrors.New(dErrors.CodeRoleForbidden, "admin role is required for this operation")
	}

	return &authz.Context{
		TenantID:  tenantID,
		UserID:    principal.UserID,
		Role:      binding.Role,
		Principal: principal,
	}, nil
}

// tryAdminBypass admits a headerless request from a platform operator when
// the service token checks out and the principal is an admin somewhere.
// The returned context carries the nil tenant id and the admin role.
func (r *Resolver) tryAdminBypass(ctx context.Context, req *http.Request, principal *identity.Principal) (*authz.Context, bool) {
	if r.serviceTokens == nil || !r.serviceTokens.Verify(req.Header.Get(servicetoken.Header)) {
		r.deny(ctx, principal, "admin bypass rejected: service token invalid", nil)
		return nil, false
	}
	if !r.isAdminSomewhere(ctx, principal) {
		r.deny(ctx, principal, "admin bypass rejected: principal holds no admin role", nil)
		return nil, false
	}

	r.logger.InfoContext(ctx, "admin bypass granted",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", principal.UserID.String(),
	)
	return &authz.Context{
		TenantID:  id.NilTenantID,
		UserID:    principal.UserID,
		Role:      models.RoleAdmin,
		Principal: principal,
	}, true
}

func (r *Resolver) isAdminSomewhere(ctx context.Context, principal *identity.Principal) bool {
	if principal.IsGlobalAdmin {
		return true
	}
	bindings, err := r.bindings.ListByUser(ctx, principal.UserID)
	if err != nil {
		r.logger.ErrorContext(ctx, "binding list failed during admin bypass",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return false
	}
	for _, b := range bindings {
		if b.Role == models.RoleAdmin {
			return true
		}
	}
	return false
}

func (r *Resolver) deny(ctx context.Context, principal *identity.Principal, reason string, tenantID *id.TenantID, extra ...any) {
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"reason", reason,
	}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		attrs = append(attrs, "client_ip", ip)
	}
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		attrs = append(attrs, "user_agent", ua)
	}
	if principal != nil {
		attrs = append(attrs, "user_id", principal.UserID.String())
	}
	if tenantID != nil {
		attrs = append(attrs, "tenant_id", tenantID.String())
	}
	attrs = append(attrs, extra...)
	r.logger.WarnContext(ctx, "tenant resolution denied", attrs...)
}

// Middleware wires Resolve into an HTTP chain. It must run after the
// authentication middleware; requests without a principal are rejected as
// unauthorized rather than crashing the resolver.
func (r *Resolver) Middleware(requiresAdmin bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := req.Context()
			principal := identity.FromContext(ctx)
			if principal == nil {
				httputil.WriteError(w, ctx, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}

			ac, err := r.Resolve(ctx, req, principal, requiresAdmin)
			if err != nil {
				httputil.WriteError(w, ctx, err)
				return
			}

			next.ServeHTTP(w, req.WithContext(authz.WithContext(ctx, ac)))
		})
	}
}
