// Package domain holds the typed identifiers shared across modules.
//
// Tenant identifiers are strongly typed UUIDs so a raw string from a header
// or payload cannot reach a store without passing through ParseTenantID.
// User identifiers are opaque strings assigned by the external identity
// provider; this layer never inspects their structure.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "gestora/pkg/domain-errors"
)

// TenantID identifies a tenant (a "cliente" in the business vocabulary).
type TenantID uuid.UUID

// NilTenantID is the zero tenant id, used only by the global-admin bypass
// context where no tenant scope applies.
var NilTenantID = TenantID(uuid.Nil)

// ParseTenantID validates s as a canonical RFC 4122 UUID (case-insensitive).
// Empty strings and nil UUIDs are rejected: a tenant id must always point at
// a real tenant.
func ParseTenantID(s string) (TenantID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NilTenantID, dErrors.New(dErrors.CodeValidation, "tenant id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return NilTenantID, dErrors.New(dErrors.CodeValidation, "tenant id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return NilTenantID, dErrors.New(dErrors.CodeValidation, "tenant id must not be the nil UUID")
	}
	return TenantID(parsed), nil
}

func (id TenantID) String() string { return uuid.UUID(id).String() }

func (id TenantID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText renders the id as its canonical UUID string so JSON bodies
// carry "cliente_id" as text, not a byte array.
func (id TenantID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *TenantID) UnmarshalText(data []byte) error {
	parsed, err := ParseTenantID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// NewTenantID generates a fresh tenant id.
func NewTenantID() TenantID { return TenantID(uuid.New()) }

// UserID is the opaque principal identifier issued by the identity provider.
type UserID string

func (id UserID) String() string { return string(id) }

func (id UserID) IsEmpty() bool { return id == "" }

// RecordID identifies a stored business record (contrato, produto, aluno).
type RecordID uuid.UUID

func ParseRecordID(s string) (RecordID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil || parsed == uuid.Nil {
		return RecordID(uuid.Nil), dErrors.New(dErrors.CodeValidation, "record id must be a valid UUID")
	}
	return RecordID(parsed), nil
}

func (id RecordID) String() string { return uuid.UUID(id).String() }

func (id RecordID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id RecordID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *RecordID) UnmarshalText(data []byte) error {
	parsed, err := ParseRecordID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// NewRecordID generates a fresh record id.
func NewRecordID() RecordID { return RecordID(uuid.New()) }
