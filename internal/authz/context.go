// Package authz holds the request authorization context and the
// components that produce and consume it: the tenant context resolver and
// the role-based permission guard.
package authz

import (
	"context"

	"gestora/internal/identity"
	"gestora/internal/tenant/models"
	id "gestora/pkg/domain"
)

// Context is the central per-request authorization value. It is constructed
// exactly once by the resolver and threaded explicitly; TenantID and Role
// are never overwritten from request-body data afterwards.
//
// A global-admin bypass context has a nil TenantID and RoleAdmin; every
// other context carries the tenant the caller is bound to and the role of
// that binding.
type Context struct {
	TenantID  id.TenantID
	UserID    id.UserID
	Role      models.Role
	Principal *identity.Principal
}

// IsGlobalAdmin reports whether the identity provider flagged this
// principal as a platform administrator, independent of tenant bindings.
func (c *Context) IsGlobalAdmin() bool {
	return c.Principal != nil && c.Principal.IsGlobalAdmin
}

type contextKey struct{}

// FromContext retrieves the authorization context set by the resolver
// middleware. Returns nil when resolution has not run.
func FromContext(ctx context.Context) *Context {
	if ac, ok := ctx.Value(contextKey{}).(*Context); ok {
		return ac
	}
	return nil
}

// WithContext injects an authorization context. Exposed for handlers and
// for tests that bypass the middleware chain.
func WithContext(ctx context.Context, ac *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}
