package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "gestora/pkg/domain-errors"
)

const (
	testKey      = "unit-test-signing-key"
	testIssuer   = "gestora-idp"
	testAudience = "gestora-api"
)

func signToken(t *testing.T, claims Claims, key string) string {
	t.Helper()
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func validClaims(subject string) Claims {
	return Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    testIssuer,
			Audience:  []string{testAudience},
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  gojwt.NewNumericDate(time.Now()),
		},
	}
}

func TestValidateResolvesPrincipal(t *testing.T) {
	v := NewValidator(testKey, testIssuer, testAudience)

	claims := validClaims("user-123")
	principal, err := v.Validate(signToken(t, claims, testKey))
	require.NoError(t, err)
	assert.Equal(t, "user-123", principal.UserID.String())
	assert.False(t, principal.IsGlobalAdmin)
	assert.Equal(t, "user-123", principal.RawClaims["sub"])
}

func TestValidateGlobalAdminFlag(t *testing.T) {
	v := NewValidator(testKey, testIssuer, testAudience)

	claims := validClaims("admin-1")
	claims.GlobalAdmin = true
	principal, err := v.Validate(signToken(t, claims, testKey))
	require.NoError(t, err)
	assert.True(t, principal.IsGlobalAdmin)
}

func TestValidateRejections(t *testing.T) {
	v := NewValidator(testKey, testIssuer, testAudience)

	t.Run("wrong signing key", func(t *testing.T) {
		_, err := v.Validate(signToken(t, validClaims("user-1"), "other-key"))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("expired token", func(t *testing.T) {
		claims := validClaims("user-1")
		claims.ExpiresAt = gojwt.NewNumericDate(time.Now().Add(-time.Minute))
		_, err := v.Validate(signToken(t, claims, testKey))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := validClaims("user-1")
		claims.Issuer = "someone-else"
		_, err := v.Validate(signToken(t, claims, testKey))
		require.Error(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		_, err := v.Validate(signToken(t, validClaims(""), testKey))
		require.Error(t, err)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := v.Validate("not.a.jwt")
		require.Error(t, err)
	})
}
