// Package tenant provides tenant persistence. The in-memory store backs
// unit tests and local development; PostgresStore is the production
// implementation.
package tenant

import (
	"context"
	"strings"
	"sync"

	"gestora/internal/tenant/models"
	id "gestora/pkg/domain"
	"gestora/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded tenant store.
type InMemory struct {
	mu      sync.RWMutex
	tenants map[id.TenantID]*models.Tenant
}

func NewInMemory() *InMemory {
	return &InMemory{tenants: make(map[id.TenantID]*models.Tenant)}
}

// CreateIfNameAvailable inserts the tenant unless another tenant already
// uses the name (case-insensitive).
func (s *InMemory) CreateIfNameAvailable(ctx context.Context, tenant *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lower := strings.ToLower(tenant.Name)
	for _, existing := range s.tenants {
		if strings.ToLower(existing.Name) == lower {
			return sentinel.ErrAlreadyUsed
		}
	}
	clone := *tenant
	s.tenants[tenant.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenant, ok := s.tenants[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *tenant
	return &clone, nil
}

func (s *InMemory) FindByName(ctx context.Context, name string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lower := strings.ToLower(strings.TrimSpace(name))
	for _, tenant := range s.tenants {
		if strings.ToLower(tenant.Name) == lower {
			clone := *tenant
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// Execute runs validate then mutate on the tenant while holding the store
// lock, so status checks and transitions are atomic.
func (s *InMemory) Execute(ctx context.Context, tenantID id.TenantID, validate func(*models.Tenant) error, mutate func(*models.Tenant)) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenant, ok := s.tenants[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(tenant); err != nil {
		return nil, err
	}
	mutate(tenant)
	clone := *tenant
	return &clone, nil
}

func (s *InMemory) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tenants), nil
}
