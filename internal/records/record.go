// Package records defines the tenant-scoped business record and the
// narrow store contract the authorization layer depends on. Business
// resources (contratos, produtos, alunos) share one record shape: an
// opaque document owned by exactly one tenant.
package records

import (
	"context"
	"strings"
	"time"

	id "gestora/pkg/domain"
	dErrors "gestora/pkg/domain-errors"
)

// TenantField is the payload key that carries the owning tenant. It is
// written exclusively by the operation executor; caller-supplied values
// are validated against the resolved context and never trusted.
const TenantField = "cliente_id"

// Record is one tenant-scoped business document.
type Record struct {
	ID        id.RecordID    `json:"id"`
	Resource  string         `json:"resource"`
	ClienteID id.TenantID    `json:"cliente_id"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// New validates and builds a record. Data is copied so the caller's map
// cannot mutate the stored document; the tenant field is stripped from
// the copy because ownership lives in ClienteID.
func New(resource string, clienteID id.TenantID, data map[string]any, now time.Time) (*Record, error) {
	resource = strings.TrimSpace(resource)
	if resource == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "record resource is required")
	}
	if clienteID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "record tenant is required")
	}
	return &Record{
		ID:        id.NewRecordID(),
		Resource:  resource,
		ClienteID: clienteID,
		Data:      cloneData(data),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Clone returns an independent copy.
func (r *Record) Clone() *Record {
	c := *r
	c.Data = cloneData(r.Data)
	return &c
}

// Patch merges data into the record's document and bumps UpdatedAt. The
// tenant field is ignored; ownership never changes through a patch.
func (r *Record) Patch(data map[string]any, now time.Time) {
	if r.Data == nil {
		r.Data = make(map[string]any, len(data))
	}
	for k, v := range data {
		if k == TenantField {
			continue
		}
		r.Data[k] = v
	}
	r.UpdatedAt = now
}

func cloneData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if k == TenantField {
			continue
		}
		out[k] = v
	}
	return out
}

// Filter narrows List and Count. A nil or zero filter matches every
// record of the resource within the tenant scope.
type Filter struct {
	// Equals matches records whose document has every listed key equal
	// to the given value.
	Equals map[string]any
}

// Matches reports whether the record's document satisfies the filter.
func (f Filter) Matches(r *Record) bool {
	for k, want := range f.Equals {
		if r.Data[k] != want {
			return false
		}
	}
	return true
}

// Store is the record persistence contract. Every operation is scoped by
// tenant: lookups for a record owned by another tenant report not-found,
// indistinguishable from a record that does not exist. A nil tenant id is
// the platform-operator scope and matches records of every tenant.
type Store interface {
	Create(ctx context.Context, record *Record) error
	FindByID(ctx context.Context, resource string, clienteID id.TenantID, recordID id.RecordID) (*Record, error)
	List(ctx context.Context, resource string, clienteID id.TenantID, filter Filter) ([]*Record, error)
	Update(ctx context.Context, record *Record) error
	Delete(ctx context.Context, resource string, clienteID id.TenantID, recordID id.RecordID) error
	Count(ctx context.Context, resource string, clienteID id.TenantID, filter Filter) (int, error)
}
