// Package memory provides the in-process audit sink used in tests and in
// deployments without a Kafka broker.
package memory

import (
	"context"
	"sync"

	"gestora/internal/audit"
)

// Store is an append-only, mutex-guarded event log.
type Store struct {
	mu     sync.RWMutex
	events []audit.Event
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListByTenant returns events recorded for a tenant, oldest first.
func (s *Store) ListByTenant(ctx context.Context, tenantID string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Event
	for _, event := range s.events {
		if event.TenantID == tenantID {
			out = append(out, event)
		}
	}
	return out, nil
}

// All returns every recorded event, oldest first.
func (s *Store) All() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event(nil), s.events...)
}
