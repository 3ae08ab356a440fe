// Package cache provides a Redis read-through layer for the two lookups on
// the hot authorization path: tenant-by-id and role-binding-by-pair.
//
// Cache failures are never authorization failures. Any Redis error is
// logged and the lookup falls through to the backing store. Negative
// results are not cached so new tenants and fresh grants take effect
// immediately.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	platformredis "gestora/internal/platform/redis"
	"gestora/internal/tenant/models"
	id "gestora/pkg/domain"
)

// DefaultTTL bounds how stale a cached tenant or binding may be. Tenant
// deactivation and role revocation take at most this long to propagate to
// nodes that miss the invalidation.
const DefaultTTL = 30 * time.Second

// TenantSource is the backing tenant lookup.
type TenantSource interface {
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
}

// BindingSource is the backing role binding lookup.
type BindingSource interface {
	Find(ctx context.Context, userID id.UserID, tenantID id.TenantID) (*models.RoleBinding, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.RoleBinding, error)
}

// Cache fronts a tenant and binding source with Redis.
type Cache struct {
	client   *platformredis.Client
	tenants  TenantSource
	bindings BindingSource
	ttl      time.Duration
	logger   *slog.Logger
}

func New(client *platformredis.Client, tenants TenantSource, bindings BindingSource, logger *slog.Logger) *Cache {
	return &Cache{
		client:   client,
		tenants:  tenants,
		bindings: bindings,
		ttl:      DefaultTTL,
		logger:   logger,
	}
}

func tenantKey(tenantID id.TenantID) string {
	return "gestora:tenant:" + tenantID.String()
}

func bindingKey(userID id.UserID, tenantID id.TenantID) string {
	return "gestora:binding:" + tenantID.String() + ":" + userID.String()
}

// FindByID implements TenantSource with a read-through cache.
func (c *Cache) FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	key := tenantKey(tenantID)
	if cached, ok := get[models.Tenant](ctx, c, key); ok {
		return cached, nil
	}

	tenant, err := c.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, tenant)
	return tenant, nil
}

// Find implements BindingSource with a read-through cache.
func (c *Cache) Find(ctx context.Context, userID id.UserID, tenantID id.TenantID) (*models.RoleBinding, error) {
	key := bindingKey(userID, tenantID)
	if cached, ok := get[models.RoleBinding](ctx, c, key); ok {
		return cached, nil
	}

	binding, err := c.bindings.Find(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, binding)
	return binding, nil
}

// ListByUser goes straight to the backing store. It only serves the rare
// admin-bypass path, so caching a per-user list is not worth the
// invalidation bookkeeping.
func (c *Cache) ListByUser(ctx context.Context, userID id.UserID) ([]*models.RoleBinding, error) {
	return c.bindings.ListByUser(ctx, userID)
}

// InvalidateTenant drops the cached tenant after a lifecycle change.
func (c *Cache) InvalidateTenant(ctx context.Context, tenantID id.TenantID) {
	c.del(ctx, tenantKey(tenantID))
}

// InvalidateBinding drops the cached binding after a grant change.
func (c *Cache) InvalidateBinding(ctx context.Context, userID id.UserID, tenantID id.TenantID) {
	c.del(ctx, bindingKey(userID, tenantID))
}

func get[T any](ctx context.Context, c *Cache, key string) (*T, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.logger.WarnContext(ctx, "cache read failed, falling through", "key", key, "error", err)
		}
		return nil, false
	}
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		c.logger.WarnContext(ctx, "cache entry corrupt, dropping", "key", key, "error", err)
		c.del(ctx, key)
		return nil, false
	}
	return &value, true
}

func (c *Cache) put(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.WarnContext(ctx, "cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
}

func (c *Cache) del(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache invalidation failed", "key", key, "error", err)
	}
}
