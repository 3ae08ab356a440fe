package identity_test

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestora/internal/identity"
	"gestora/internal/platform/middleware"
	dErrors "gestora/pkg/domain-errors"
	"gestora/pkg/testutil"
)

type fakeValidator struct {
	principals map[string]*identity.Principal
}

func (v *fakeValidator) Validate(token string) (*identity.Principal, error) {
	if p, ok := v.principals[token]; ok {
		return p, nil
	}
	return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
}

func authChain(v identity.TokenValidator, next http.Handler) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return middleware.RequestID(identity.RequireAuth(v, logger)(next))
}

func TestRequireAuth(t *testing.T) {
	validator := &fakeValidator{principals: map[string]*identity.Principal{
		"good-token": {UserID: "user-1"},
	}}

	var captured *identity.Principal
	handler := authChain(validator, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = identity.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid bearer token passes", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/api/contratos")
		req.Header.Set("Authorization", "Bearer good-token")

		rr := testutil.DoRequest(handler, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		require.NotNil(t, captured)
		assert.Equal(t, "user-1", captured.UserID.String())
	})

	t.Run("missing header rejected", func(t *testing.T) {
		captured = nil
		rr := testutil.DoRequest(handler, testutil.NewRequest(t, http.MethodGet, "/api/contratos"))
		testutil.AssertErrorEnvelope(t, rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
		assert.Nil(t, captured)
	})

	t.Run("unknown token rejected", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/api/contratos")
		req.Header.Set("Authorization", "Bearer wrong")
		rr := testutil.DoRequest(handler, req)
		testutil.AssertErrorEnvelope(t, rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})

	t.Run("non-bearer scheme rejected", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/api/contratos")
		req.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
		rr := testutil.DoRequest(handler, req)
		testutil.AssertErrorEnvelope(t, rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})
}
