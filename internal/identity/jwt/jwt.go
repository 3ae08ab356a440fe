// Package jwt validates HS256 access tokens minted by the identity provider.
package jwt

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"gestora/internal/identity"
	id "gestora/pkg/domain"
	dErrors "gestora/pkg/domain-errors"
)

// Claims are the claims this layer consumes. Subject carries the opaque
// user id; the global-admin flag is asserted by the identity provider, not
// by any tenant role binding.
type Claims struct {
	GlobalAdmin bool `json:"global_admin,omitempty"`
	jwt.RegisteredClaims
}

// Validator verifies bearer tokens against the provider's shared secret.
type Validator struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewValidator(signingKey, issuer, audience string) *Validator {
	return &Validator{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// Validate implements identity.TokenValidator.
func (v *Validator) Validate(tokenString string) (*identity.Principal, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	}, jwt.WithIssuer(v.issuer), jwt.WithAudience(v.audience))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.Subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token subject is missing")
	}

	raw := map[string]any{"sub": claims.Subject}
	if claims.GlobalAdmin {
		raw["global_admin"] = true
	}
	return &identity.Principal{
		UserID:        id.UserID(claims.Subject),
		IsGlobalAdmin: claims.GlobalAdmin,
		RawClaims:     raw,
	}, nil
}
