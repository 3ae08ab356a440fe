package models

import (
	"time"

	id "gestora/pkg/domain"
	dErrors "gestora/pkg/domain-errors"
)

// Role is the part a principal plays within one tenant.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleClient  Role = "client"
	RoleStudent Role = "student"
)

// ParseRole validates a role value coming from storage or an admin request.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleClient, RoleStudent:
		return Role(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown role %q", s)
	}
}

// RoleBinding grants a principal a role within a tenant.
//
// Invariant: at most one binding exists per (UserID, TenantID) pair. Stores
// enforce this with an upsert keyed on the pair; a user's role in a tenant
// is replaced, never duplicated.
type RoleBinding struct {
	UserID    id.UserID   `json:"user_id"`
	TenantID  id.TenantID `json:"tenant_id"`
	Role      Role        `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func NewRoleBinding(userID id.UserID, tenantID id.TenantID, role Role, now time.Time) (*RoleBinding, error) {
	if userID.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "tenant id is required")
	}
	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}
	return &RoleBinding{
		UserID:    userID,
		TenantID:  tenantID,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
