// Package identity resolves the calling principal from a bearer credential.
//
// Token verification is delegated to the external identity provider's
// signing contract; this layer only consumes the verified claims. The
// resolved Principal is immutable for the lifetime of the request.
package identity

import (
	"context"

	id "gestora/pkg/domain"
)

// Principal is the authenticated identity making a request.
type Principal struct {
	UserID        id.UserID
	IsGlobalAdmin bool
	RawClaims     map[string]any
}

// TokenValidator verifies a bearer token and maps it to a Principal.
type TokenValidator interface {
	Validate(tokenString string) (*Principal, error)
}

type principalKey struct{}

// FromContext retrieves the principal set by the auth middleware.
// Returns nil when the request was not authenticated.
func FromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(principalKey{}).(*Principal); ok {
		return p
	}
	return nil
}

// WithPrincipal injects a principal into the context. Exposed for tests
// that bypass the HTTP middleware chain.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}
