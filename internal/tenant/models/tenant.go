package models

import (
	"time"

	id "gestora/pkg/domain"
	dErrors "gestora/pkg/domain-errors"
)

// TenantStatus is the lifecycle state of a tenant.
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusInactive  TenantStatus = "inactive"
	TenantStatusSuspended TenantStatus = "suspended"
)

// ParseTenantStatus validates a stored status value.
func ParseTenantStatus(s string) (TenantStatus, error) {
	switch TenantStatus(s) {
	case TenantStatusActive, TenantStatusInactive, TenantStatusSuspended:
		return TenantStatus(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown tenant status %q", s)
	}
}

// Tenant is the aggregate root for a customer organization ("cliente").
//
// Invariants:
//   - Name is non-empty and at most 128 characters
//   - Status is one of active, inactive, suspended
//   - CreatedAt is immutable after construction
//
// A non-active tenant is fully opaque to all non-global-admin callers: the
// tenant context resolver collapses inactive and suspended tenants into the
// same forbidden outcome it uses for unknown tenants, so status can never be
// probed from the outside.
type Tenant struct {
	ID        id.TenantID  `json:"id"`
	Name      string       `json:"name"`
	Status    TenantStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// CanTransitionTo reports whether a status change is allowed. Any state may
// move to any other distinct state; self-transitions are rejected so admin
// operations stay idempotency-visible.
func (t *Tenant) CanTransitionTo(next TenantStatus) error {
	if t.Status == next {
		return dErrors.Newf(dErrors.CodeConflict, "tenant is already %s", next)
	}
	return nil
}

// ApplyStatus transitions the tenant, stamping the change time.
// Call CanTransitionTo first.
func (t *Tenant) ApplyStatus(next TenantStatus, now time.Time) {
	t.Status = next
	t.UpdatedAt = now
}

func NewTenant(tenantID id.TenantID, name string, now time.Time) (*Tenant, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "tenant name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeValidation, "tenant name must be 128 characters or less")
	}
	return &Tenant{
		ID:        tenantID,
		Name:      name,
		Status:    TenantStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
