//go:build integration

package cache_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gestora/internal/platform/config"
	platformredis "gestora/internal/platform/redis"
	"gestora/internal/tenant/cache"
	"gestora/internal/tenant/models"
	bindingstore "gestora/internal/tenant/store/binding"
	tenantstore "gestora/internal/tenant/store/tenant"
	id "gestora/pkg/domain"
	"gestora/pkg/platform/sentinel"
	"gestora/pkg/testutil/containers"
)

type CacheSuite struct {
	suite.Suite
	redis    *containers.RedisContainer
	client   *platformredis.Client
	tenants  *tenantstore.InMemory
	bindings *bindingstore.InMemory
	cache    *cache.Cache
}

func TestCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CacheSuite))
}

func (s *CacheSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())

	client, err := platformredis.New(config.RedisConfig{
		URL:          s.redis.URL,
		PoolSize:     5,
		MinIdleConns: 1,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	s.Require().NoError(err)
	s.Require().NotNil(client)
	s.client = client
}

func (s *CacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.tenants = tenantstore.NewInMemory()
	s.bindings = bindingstore.NewInMemory()
	s.cache = cache.New(s.client, s.tenants, s.bindings, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *CacheSuite) seedTenant(name string) *models.Tenant {
	tenant, err := models.NewTenant(id.NewTenantID(), name, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.tenants.CreateIfNameAvailable(context.Background(), tenant))
	return tenant
}

func (s *CacheSuite) TestTenantReadThrough() {
	ctx := context.Background()
	tenant := s.seedTenant("academia alfa")

	first, err := s.cache.FindByID(ctx, tenant.ID)
	s.Require().NoError(err)
	s.Equal(tenant.Name, first.Name)

	// Mutate the backing row under the cache; a hit must serve the cached
	// copy until invalidation.
	_, err = s.tenants.Execute(ctx, tenant.ID,
		func(*models.Tenant) error { return nil },
		func(t *models.Tenant) { t.ApplyStatus(models.TenantStatusSuspended, time.Now().UTC()) },
	)
	s.Require().NoError(err)

	cached, err := s.cache.FindByID(ctx, tenant.ID)
	s.Require().NoError(err)
	s.Equal(models.TenantStatusActive, cached.Status)

	s.cache.InvalidateTenant(ctx, tenant.ID)

	fresh, err := s.cache.FindByID(ctx, tenant.ID)
	s.Require().NoError(err)
	s.Equal(models.TenantStatusSuspended, fresh.Status)
}

func (s *CacheSuite) TestMissesAreNotCached() {
	ctx := context.Background()
	tenantID := id.NewTenantID()

	_, err := s.cache.FindByID(ctx, tenantID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	// A tenant created after a miss must be visible immediately.
	tenant, err := models.NewTenant(tenantID, "academia nova", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.tenants.CreateIfNameAvailable(ctx, tenant))

	found, err := s.cache.FindByID(ctx, tenantID)
	s.Require().NoError(err)
	s.Equal("academia nova", found.Name)
}

func (s *CacheSuite) TestBindingReadThroughAndInvalidation() {
	ctx := context.Background()
	tenant := s.seedTenant("academia beta")

	binding, err := models.NewRoleBinding("user-1", tenant.ID, models.RoleClient, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.bindings.Upsert(ctx, binding))

	cached, err := s.cache.Find(ctx, "user-1", tenant.ID)
	s.Require().NoError(err)
	s.Equal(models.RoleClient, cached.Role)

	// Revoke under the cache, then invalidate; the miss must reach the store.
	s.Require().NoError(s.bindings.Delete(ctx, "user-1", tenant.ID))

	stale, err := s.cache.Find(ctx, "user-1", tenant.ID)
	s.Require().NoError(err)
	s.Equal(models.RoleClient, stale.Role)

	s.cache.InvalidateBinding(ctx, "user-1", tenant.ID)

	_, err = s.cache.Find(ctx, "user-1", tenant.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *CacheSuite) TestListByUserBypassesCache() {
	ctx := context.Background()
	tenant := s.seedTenant("academia gama")

	binding, err := models.NewRoleBinding("user-1", tenant.ID, models.RoleAdmin, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.bindings.Upsert(ctx, binding))

	listed, err := s.cache.ListByUser(ctx, "user-1")
	s.Require().NoError(err)
	s.Len(listed, 1)

	s.Require().NoError(s.bindings.Delete(ctx, "user-1", tenant.ID))

	listed, err = s.cache.ListByUser(ctx, "user-1")
	s.Require().NoError(err)
	s.Empty(listed)
}
