package rbac

import (
	"log/slog"

	"gestora/internal/authz"
	dErrors "gestora/pkg/domain-errors"
)

// Permission pairs a resource with an action for the multi-check helpers.
type Permission struct {
	Resource string
	Action   Action
}

// Guard evaluates the permission matrix for a resolved authorization
// context. Evaluation is pure: the same context and permission always
// yield the same decision, and nothing is mutated.
type Guard struct {
	matrix *Matrix
	logger *slog.Logger
}

type GuardOption func(*Guard)

func WithLogger(l *slog.Logger) GuardOption {
	return func(g *Guard) { g.logger = l }
}

func NewGuard(matrix *Matrix, opts ...GuardOption) *Guard {
	g := &Guard{matrix: matrix, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// HasPermission reports the allow/deny decision without constructing an
// error. Global admins are allowed unconditionally; everyone else is
// checked against the matrix, denying when the resource is unknown.
func (g *Guard) HasPermission(ac *authz.Context, resource string, action Action) bool {
	if ac == nil {
		return false
	}
	if ac.IsGlobalAdmin() {
		return true
	}
	if !g.matrix.Knows(resource) {
		g.logger.Warn("permission check against unknown resource",
			"resource", resource,
			"action", string(action),
		)
		return false
	}
	return g.matrix.Allows(ac.Role, resource, action)
}

// ValidatePermission returns nil when allowed and a role-forbidden domain
// error otherwise. The error carries the denied resource and action so the
// response body can name them.
func (g *Guard) ValidatePermission(ac *authz.Context, resource string, action Action) error {
	if g.HasPermission(ac, resource, action) {
		return nil
	}
	return dErrors.New(dErrors.CodeRoleForbidden, "role does not permit this operation").
		WithDetails(map[string]string{
			"resource": resource,
			"action":   string(action),
		})
}

// RequireAll fails on the first denied permission.
func (g *Guard) RequireAll(ac *authz.Context, perms []Permission) error {
	for _, p := range perms {
		if err := g.ValidatePermission(ac, p.Resource, p.Action); err != nil {
			return err
		}
	}
	return nil
}

// RequireAny succeeds when at least one permission is granted. A full
// denial is composite: the error details list every attempted pair and
// the role that failed them, so the caller sees the whole check, not
// just the last leg.
func (g *Guard) RequireAny(ac *authz.Context, perms []Permission) error {
	for _, p := range perms {
		if g.HasPermission(ac, p.Resource, p.Action) {
			return nil
		}
	}

	attempted := make([]map[string]string, 0, len(perms))
	for _, p := range perms {
		attempted = append(attempted, map[string]string{
			"resource": p.Resource,
			"action":   string(p.Action),
		})
	}
	details := map[string]any{"attempted": attempted}
	if ac != nil {
		details["role"] = string(ac.Role)
	}
	return dErrors.New(dErrors.CodeRoleForbidden, "role does not permit this operation").
		WithDetails(details)
}
