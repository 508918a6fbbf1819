package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry is one row of the append-only action ledger (pms_audit_log).
// Entries are never updated or deleted.
type AuditEntry struct {
	ID         uuid.UUID          `json:"id"`
	ActionID   string             `json:"action_id"`
	ActorID    uuid.UUID          `json:"actor_id"`
	ActorRole  string             `json:"actor_role"` // role at the time of the action
	YachtID    uuid.UUID          `json:"yacht_id"`
	EntityType string             `json:"entity_type,omitempty"`
	EntityID   *uuid.UUID         `json:"entity_id,omitempty"` // nil for entity-less actions
	PriorState map[string]any     `json:"prior_state,omitempty"`
	NewState   map[string]any     `json:"new_state,omitempty"`
	Signature  *SignatureEnvelope `json:"signature,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}
