// Package binding persists role bindings, the many-to-many relation between
// principals and tenants. The (user, tenant) pair is the primary key: a
// principal holds at most one role per tenant.
package binding

import (
	"context"
	"sync"

	"gestora/internal/tenant/models"
	id "gestora/pkg/domain"
	"gestora/pkg/platform/sentinel"
)

type bindingKey struct {
	userID   id.UserID
	tenantID id.TenantID
}

// InMemory is a mutex-guarded role binding store.
type InMemory struct {
	mu       sync.RWMutex
	bindings map[bindingKey]*models.RoleBinding
}

func NewInMemory() *InMemory {
	return &InMemory{bindings: make(map[bindingKey]*models.RoleBinding)}
}

// Upsert creates or replaces the binding for (user, tenant). Replacing
// preserves CreatedAt so the grant history stays honest.
func (s *InMemory) Upsert(ctx context.Context, binding *models.RoleBinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := bindingKey{userID: binding.UserID, tenantID: binding.TenantID}
	clone := *binding
	if existing, ok := s.bindings[key]; ok {
		clone.CreatedAt = existing.CreatedAt
	}
	s.bindings[key] = &clone
	return nil
}

func (s *InMemory) Find(ctx context.Context, userID id.UserID, tenantID id.TenantID) (*models.RoleBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	binding, ok := s.bindings[bindingKey{userID: userID, tenantID: tenantID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *binding
	return &clone, nil
}

func (s *InMemory) Delete(ctx context.Context, userID id.UserID, tenantID id.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := bindingKey{userID: userID, tenantID: tenantID}
	if _, ok := s.bindings[key]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.bindings, key)
	return nil
}

func (s *InMemory) ListByUser(ctx context.Context, userID id.UserID) ([]*models.RoleBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.RoleBinding
	for key, binding := range s.bindings {
		if key.userID == userID {
			clone := *binding
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *InMemory) CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for key := range s.bindings {
		if key.tenantID == tenantID {
			count++
		}
	}
	return count, nil
}
