// Package service orchestrates tenant lifecycle and role binding
// management. All operations here are admin-facing; request-path
// authorization reads go through internal/authz instead.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gestora/internal/audit"
	tenantmetrics "gestora/internal/tenant/metrics"
	"gestora/internal/tenant/models"
	id "gestora/pkg/domain"
	dErrors "gestora/pkg/domain-errors"
	"gestora/pkg/platform/sentinel"
	"gestora/pkg/requestcontext"
)

// TenantStore is the persistence port for tenants.
type TenantStore interface {
	CreateIfNameAvailable(ctx context.Context, tenant *models.Tenant) error
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	FindByName(ctx context.Context, name string) (*models.Tenant, error)
	Execute(ctx context.Context, tenantID id.TenantID, validate func(*models.Tenant) error, mutate func(*models.Tenant)) (*models.Tenant, error)
	Count(ctx context.Context) (int, error)
}

// BindingStore is the persistence port for role bindings.
type BindingStore interface {
	Upsert(ctx context.Context, binding *models.RoleBinding) error
	Find(ctx context.Context, userID id.UserID, tenantID id.TenantID) (*models.RoleBinding, error)
	Delete(ctx context.Context, userID id.UserID, tenantID id.TenantID) error
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.RoleBinding, error)
	CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error)
}

// AuditPublisher records tenant lifecycle and grant changes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Invalidator drops cached tenant/binding entries after mutations.
type Invalidator interface {
	InvalidateTenant(ctx context.Context, tenantID id.TenantID)
	InvalidateBinding(ctx context.Context, userID id.UserID, tenantID id.TenantID)
}

// TenantDetails is the admin view of a tenant with member counts.
type TenantDetails struct {
	Tenant      *models.Tenant `json:"tenant"`
	MemberCount int            `json:"member_count"`
}

// Service orchestrates tenant and binding management.
type Service struct {
	tenants     TenantStore
	bindings    BindingStore
	logger      *slog.Logger
	publisher   AuditPublisher
	metrics     *tenantmetrics.Metrics
	invalidator Invalidator
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func WithMetrics(m *tenantmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

func New(tenants TenantStore, bindings BindingStore, opts ...Option) *Service {
	s := &Service{
		tenants:  tenants,
		bindings: bindings,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTenant registers a tenant and returns it.
func (s *Service) CreateTenant(ctx context.Context, name string) (*models.Tenant, error) {
	name = strings.TrimSpace(name)

	tenant, err := models.NewTenant(id.NewTenantID(), name, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.tenants.CreateIfNameAvailable(ctx, tenant); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "tenant name must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create tenant")
	}

	s.emit(ctx, audit.Event{
		TenantID: tenant.ID.String(),
		Action:   audit.ActionTenantCreated,
		Entity:   "clientes",
		EntityID: tenant.ID.String(),
		Details:  map[string]any{"name": tenant.Name},
	})
	if s.metrics != nil {
		s.metrics.IncrementTenantCreated()
	}
	return tenant, nil
}

// GetTenant fetches tenant metadata with the member count.
func (s *Service) GetTenant(ctx context.Context, tenantID id.TenantID) (*TenantDetails, error) {
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, wrapTenantErr(err)
	}
	members, err := s.bindings.CountByTenant(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count members")
	}
	return &TenantDetails{Tenant: tenant, MemberCount: members}, nil
}

// SetTenantStatus transitions a tenant's lifecycle state. Self-transitions
// are conflicts so repeated admin calls surface as such instead of silently
// succeeding.
func (s *Service) SetTenantStatus(ctx context.Context, tenantID id.TenantID, status models.TenantStatus) (*models.Tenant, error) {
	if _, err := models.ParseTenantStatus(string(status)); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	tenant, err := s.tenants.Execute(ctx, tenantID,
		func(t *models.Tenant) error { return t.CanTransitionTo(status) },
		func(t *models.Tenant) { t.ApplyStatus(status, now) },
	)
	if err != nil {
		return nil, wrapTenantErr(err)
	}

	if s.invalidator != nil {
		s.invalidator.InvalidateTenant(ctx, tenantID)
	}
	s.emit(ctx, audit.Event{
		TenantID: tenant.ID.String(),
		Action:   audit.ActionTenantStatusChanged,
		Entity:   "clientes",
		EntityID: tenant.ID.String(),
		Details:  map[string]any{"status": string(status)},
	})
	if s.metrics != nil {
		s.metrics.IncrementLifecycle(string(status))
	}
	return tenant, nil
}

// SetBinding grants or replaces a user's role within a tenant. The tenant
// must exist; granting into an unknown tenant is a NOT_FOUND, not a silent
// orphan row.
func (s *Service) SetBinding(ctx context.Context, userID id.UserID, tenantID id.TenantID, role models.Role) (*models.RoleBinding, error) {
	if _, err := s.tenants.FindByID(ctx, tenantID); err != nil {
		return nil, wrapTenantErr(err)
	}

	binding, err := models.NewRoleBinding(userID, tenantID, role, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.bindings.Upsert(ctx, binding); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store role binding")
	}

	if s.invalidator != nil {
		s.invalidator.InvalidateBinding(ctx, userID, tenantID)
	}
	s.emit(ctx, audit.Event{
		TenantID: tenantID.String(),
		UserID:   userID.String(),
		Action:   audit.ActionRoleGranted,
		Entity:   "role_bindings",
		Details:  map[string]any{"role": string(role)},
	})
	if s.metrics != nil {
		s.metrics.IncrementBindingWrites()
	}
	return binding, nil
}

// RemoveBinding revokes a user's role within a tenant.
func (s *Service) RemoveBinding(ctx context.Context, userID id.UserID, tenantID id.TenantID) error {
	if err := s.bindings.Delete(ctx, userID, tenantID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "role binding not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete role binding")
	}

	if s.invalidator != nil {
		s.invalidator.InvalidateBinding(ctx, userID, tenantID)
	}
	s.emit(ctx, audit.Event{
		TenantID: tenantID.String(),
		UserID:   userID.String(),
		Action:   audit.ActionRoleRevoked,
		Entity:   "role_bindings",
	})
	if s.metrics != nil {
		s.metrics.IncrementBindingWrites()
	}
	return nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.publisher == nil {
		return
	}
	s.publisher.Emit(ctx, event)
}

func wrapTenantErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "tenant not found")
	case dErrors.HasCode(err, dErrors.CodeConflict),
		dErrors.HasCode(err, dErrors.CodeValidation):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "tenant store failure")
	}
}
