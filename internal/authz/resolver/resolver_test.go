package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestora/internal/authz"
	"gestora/internal/identity"
	"gestora/internal/platform/servicetoken"
	"gestora/internal/tenant/models"
	bindingstore "gestora/internal/tenant/store/binding"
	tenantstore "gestora/internal/tenant/store/tenant"
	id "gestora/pkg/domain"
	dErrors "gestora/pkg/domain-errors"
	"gestora/pkg/platform/httputil"
	"gestora/pkg/requestcontext"
)

type fixture struct {
	resolver *Resolver
	tenants  *tenantstore.InMemory
	bindings *bindingstore.InMemory
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	tenants := tenantstore.NewInMemory()
	bindings := bindingstore.NewInMemory()
	return &fixture{
		resolver: New(tenants, bindings, opts...),
		tenants:  tenants,
		bindings: bindings,
	}
}

func (f *fixture) seedTenant(t *testing.T, status models.TenantStatus) id.TenantID {
	t.Helper()
	tenantID := id.NewTenantID()
	tenant, err := models.NewTenant(tenantID, "tenant-"+tenantID.String()[:8], time.Now().UTC())
	require.NoError(t, err)
	tenant.Status = status
	require.NoError(t, f.tenants.CreateIfNameAvailable(context.Background(), tenant))
	return tenantID
}

func (f *fixture) seedBinding(t *testing.T, userID id.UserID, tenantID id.TenantID, role models.Role) {
	t.Helper()
	binding, err := models.NewRoleBinding(userID, tenantID, role, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, f.bindings.Upsert(context.Background(), binding))
}

func request(tenantHeader string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/contratos", nil)
	if tenantHeader != "" {
		req.Header.Set(DefaultHeader, tenantHeader)
	}
	return req
}

func principal(userID string) *identity.Principal {
	return &identity.Principal{UserID: id.UserID(userID)}
}

func TestResolveSuccess(t *testing.T) {
	f := newFixture(t)
	tenantID := f.seedTenant(t, models.TenantStatusActive)
	f.seedBinding(t, "user-1", tenantID, models.RoleClient)

	ac, err := f.resolver.Resolve(context.Background(), request(tenantID.String()), principal("user-1"), false)
	require.NoError(t, err)
	assert.Equal(t, tenantID, ac.TenantID)
	assert.Equal(t, id.UserID("user-1"), ac.UserID)
	assert.Equal(t, models.RoleClient, ac.Role)
	assert.False(t, ac.IsGlobalAdmin())
}

func TestResolveMissingHeader(t *testing.T) {
	f := newFixture(t)

	_, err := f.resolver.Resolve(context.Background(), request(""), principal("user-1"), false)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTenantHeaderRequired))
}

func TestResolveMalformedHeader(t *testing.T) {
	f := newFixture(t)

	for _, raw := range []string{"not-a-uuid", "1234", "00000000-0000-0000-0000-000000000000"} {
		_, err := f.resolver.Resolve(context.Background(), request(raw), principal("user-1"), false)
		require.Error(t, err, raw)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTenantHeaderInvalid), raw)
	}
}

// Unknown, inactive, suspended, and unbound tenants must all produce the
// same denial so tenant ids cannot be enumerated.
func TestResolveForbiddenIsUniform(t *testing.T) {
	f := newFixture(t)

	inactive := f.seedTenant(t, models.TenantStatusInactive)
	suspended := f.seedTenant(t, models.TenantStatusSuspended)
	unbound := f.seedTenant(t, models.TenantStatusActive)
	f.seedBinding(t, "user-1", inactive, models.RoleClient)
	f.seedBinding(t, "user-1", suspended, models.RoleClient)

	cases := map[string]id.TenantID{
		"unknown tenant":   id.NewTenantID(),
		"inactive tenant":  inactive,
		"suspended tenant": suspended,
		"no binding":       unbound,
	}
	for name, tenantID := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.resolver.Resolve(context.Background(), request(tenantID.String()), principal("user-1"), false)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeTenantForbidden))

			var dErr *dErrors.Error
			require.ErrorAs(t, err, &dErr)
			assert.Equal(t, "access to this tenant is not allowed", dErr.Message)
		})
	}
}

func TestResolveAdminRequired(t *testing.T) {
	f := newFixture(t)
	tenantID := f.seedTenant(t, models.TenantStatusActive)
	f.seedBinding(t, "client-1", tenantID, models.RoleClient)
	f.seedBinding(t, "admin-1", tenantID, models.RoleAdmin)

	_, err := f.resolver.Resolve(context.Background(), request(tenantID.String()), principal("client-1"), true)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeRoleForbidden))

	ac, err := f.resolver.Resolve(context.Background(), request(tenantID.String()), principal("admin-1"), true)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, ac.Role)
}

func TestAdminBypass(t *testing.T) {
	const token = "svc-secret"
	hash, err := servicetoken.Hash(token)
	require.NoError(t, err)
	f := newFixture(t, WithAdminBypass(servicetoken.New(hash)))
	tenantID := f.seedTenant(t, models.TenantStatusActive)
	f.seedBinding(t, "admin-1", tenantID, models.RoleAdmin)
	f.seedBinding(t, "client-1", tenantID, models.RoleClient)

	bypassRequest := func(svcToken string) *http.Request {
		req := request("")
		if svcToken != "" {
			req.Header.Set(servicetoken.Header, svcToken)
		}
		return req
	}

	t.Run("admin with valid token", func(t *testing.T) {
		ac, err := f.resolver.Resolve(context.Background(), bypassRequest(token), principal("admin-1"), true)
		require.NoError(t, err)
		assert.True(t, ac.TenantID.IsNil())
		assert.Equal(t, models.RoleAdmin, ac.Role)
	})

	t.Run("global admin flag suffices", func(t *testing.T) {
		p := &identity.Principal{UserID: "root-1", IsGlobalAdmin: true}
		ac, err := f.resolver.Resolve(context.Background(), bypassRequest(token), p, true)
		require.NoError(t, err)
		assert.True(t, ac.TenantID.IsNil())
	})

	t.Run("missing service token falls back to header required", func(t *testing.T) {
		_, err := f.resolver.Resolve(context.Background(), bypassRequest(""), principal("admin-1"), true)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTenantHeaderRequired))
	})

	t.Run("wrong service token rejected", func(t *testing.T) {
		_, err := f.resolver.Resolve(context.Background(), bypassRequest("guessed"), principal("admin-1"), true)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTenantHeaderRequired))
	})

	t.Run("non-admin principal rejected", func(t *testing.T) {
		_, err := f.resolver.Resolve(context.Background(), bypassRequest(token), principal("client-1"), true)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTenantHeaderRequired))
	})

	t.Run("non-admin route never bypasses", func(t *testing.T) {
		_, err := f.resolver.Resolve(context.Background(), bypassRequest(token), principal("admin-1"), false)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTenantHeaderRequired))
	})
}

func TestBypassDisabledByDefault(t *testing.T) {
	f := newFixture(t)
	tenantID := f.seedTenant(t, models.TenantStatusActive)
	f.seedBinding(t, "admin-1", tenantID, models.RoleAdmin)

	_, err := f.resolver.Resolve(context.Background(), request(""), principal("admin-1"), true)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTenantHeaderRequired))
}

func TestMiddleware(t *testing.T) {
	f := newFixture(t)
	tenantID := f.seedTenant(t, models.TenantStatusActive)
	f.seedBinding(t, "user-1", tenantID, models.RoleClient)

	var captured *authz.Context
	handler := f.resolver.Middleware(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = authz.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("injects context on success", func(t *testing.T) {
		req := request(tenantID.String())
		req = req.WithContext(identity.WithPrincipal(req.Context(), principal("user-1")))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, captured)
		assert.Equal(t, tenantID, captured.TenantID)
	})

	t.Run("writes envelope on denial", func(t *testing.T) {
		captured = nil
		req := request(id.NewTenantID().String())
		req = req.WithContext(identity.WithPrincipal(req.Context(), principal("user-1")))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Nil(t, captured)

		var env httputil.Envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		require.NotNil(t, env.Error)
		assert.Equal(t, string(dErrors.CodeTenantForbidden), env.Error.Code)
		assert.Nil(t, env.Data)
	})

	t.Run("rejects request without principal", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, request(tenantID.String()))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestDenialLogsClientMetadata(t *testing.T) {
	var buf bytes.Buffer
	f := newFixture(t, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	ctx := requestcontext.WithClientMetadata(context.Background(), "198.51.100.9", "Chrome/142.0 Windows")
	_, err := f.resolver.Resolve(ctx, request(id.NewTenantID().String()), principal("user-1"), false)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTenantForbidden))

	logged := buf.String()
	assert.Contains(t, logged, "client_ip=198.51.100.9")
	assert.Contains(t, logged, "user_agent=")
	assert.Contains(t, logged, "Chrome/142.0")
}
