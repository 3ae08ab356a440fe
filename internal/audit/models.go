// Package audit captures append-only records of mutating actions.
//
// Events are emitted by the operation executor and the tenant service,
// buffered in process, and drained by a worker into a sink (Kafka in
// production, an in-memory store in tests). Emission is fire-and-forget:
// audit durability is best-effort and never fails the request that
// produced the event.
package audit

import (
	"context"
	"time"
)

// Action names the recorded operation.
type Action string

const (
	// Tenant lifecycle
	ActionTenantCreated       Action = "tenant_created"
	ActionTenantStatusChanged Action = "tenant_status_changed"

	// Role bindings
	ActionRoleGranted Action = "role_granted"
	ActionRoleRevoked Action = "role_revoked"

	// Record mutations through the executor
	ActionRecordCreated Action = "record_created"
	ActionRecordUpdated Action = "record_updated"
	ActionRecordDeleted Action = "record_deleted"
	ActionWriteFailed   Action = "write_failed"

	// Security-relevant denials
	ActionTenantTamperRejected Action = "tenant_tamper_rejected"
)

// Event is a single write-once audit record. It is transport-agnostic so
// sinks can fan out without caring where it was produced.
type Event struct {
	RequestID string         `json:"request_id"`
	TenantID  string         `json:"tenant_id,omitempty"`
	UserID    string         `json:"user_id"`
	Action    Action         `json:"action"`
	Entity    string         `json:"entity"`
	EntityID  string         `json:"entity_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Sink persists events. Implementations must be safe for concurrent use.
type Sink interface {
	Append(ctx context.Context, event Event) error
}
