// Package store provides the record store implementations: an in-memory
// store for tests and single-node development, and a Postgres store for
// production.
package store

import (
	"context"
	"sync"

	"gestora/internal/records"
	id "gestora/pkg/domain"
	"gestora/pkg/platform/sentinel"
)

// InMemory is a thread-safe in-memory record store. Records are cloned on
// both write and read so callers can never alias internal state.
type InMemory struct {
	mu   sync.RWMutex
	rows map[id.RecordID]*records.Record
}

func NewInMemory() *InMemory {
	return &InMemory{rows: make(map[id.RecordID]*records.Record)}
}

func (s *InMemory) Create(ctx context.Context, record *records.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rows[record.ID]; exists {
		return sentinel.ErrConflict
	}
	s.rows[record.ID] = record.Clone()
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, resource string, clienteID id.TenantID, recordID id.RecordID) (*records.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[recordID]
	if !ok || !visible(row, resource, clienteID) {
		return nil, sentinel.ErrNotFound
	}
	return row.Clone(), nil
}

func (s *InMemory) List(ctx context.Context, resource string, clienteID id.TenantID, filter records.Filter) ([]*records.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*records.Record
	for _, row := range s.rows {
		if visible(row, resource, clienteID) && filter.Matches(row) {
			out = append(out, row.Clone())
		}
	}
	return out, nil
}

func (s *InMemory) Update(ctx context.Context, record *records.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[record.ID]
	if !ok || !visible(row, record.Resource, record.ClienteID) {
		return sentinel.ErrNotFound
	}
	updated := record.Clone()
	updated.ClienteID = row.ClienteID
	updated.CreatedAt = row.CreatedAt
	s.rows[record.ID] = updated
	return nil
}

func (s *InMemory) Delete(ctx context.Context, resource string, clienteID id.TenantID, recordID id.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[recordID]
	if !ok || !visible(row, resource, clienteID) {
		return sentinel.ErrNotFound
	}
	delete(s.rows, recordID)
	return nil
}

func (s *InMemory) Count(ctx context.Context, resource string, clienteID id.TenantID, filter records.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, row := range s.rows {
		if visible(row, resource, clienteID) && filter.Matches(row) {
			n++
		}
	}
	return n, nil
}

// visible applies the tenant scope: a nil tenant id sees every tenant's
// records, anyone else only their own.
func visible(row *records.Record, resource string, clienteID id.TenantID) bool {
	if row.Resource != resource {
		return false
	}
	return clienteID.IsNil() || row.ClienteID == clienteID
}
