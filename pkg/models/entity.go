package models

import (
	"github.com/google/uuid"
)

// Entity type constants. Each entity type is also the domain tag of the
// actions that target it.
const (
	EntityTypeWorkOrder       = "work_order"
	EntityTypePart            = "part"
	EntityTypePurchaseRequest = "purchase_request"
	EntityTypeCertificate     = "certificate"
	EntityTypeEquipment       = "equipment"
)

// Entity is a tenant-owned domain record as seen by the engine: opaque beyond
// its id, owning yacht, status and the columns a validator or suggestion needs.
type Entity struct {
	Type    string         `json:"entity_type"`
	ID      uuid.UUID      `json:"id"`
	YachtID uuid.UUID      `json:"yacht_id"`
	Status  string         `json:"status,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Snapshot returns a copy of the entity's columns including id and status,
// suitable for audit prior/new state.
func (e *Entity) Snapshot() map[string]any {
	if e == nil {
		return nil
	}
	out := make(map[string]any, len(e.Fields)+3)
	for k, v := range e.Fields {
		out[k] = v
	}
	out["id"] = e.ID.String()
	out["yacht_id"] = e.YachtID.String()
	if e.Status != "" {
		out["status"] = e.Status
	}
	return out
}

// NumberField returns a numeric column value as float64.
func (e *Entity) NumberField(name string) (float64, bool) {
	switch v := e.Fields[name].(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
