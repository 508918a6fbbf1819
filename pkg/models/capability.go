package models

// CapabilityMapping maps one recognized entity type to a searchable
// table/column combination.
type CapabilityMapping struct {
	EntityType   string `json:"entity_type"`
	CapabilityID string `json:"capability_id"`
	Table        string `json:"table"`
	Column       string `json:"column"`
	// ResultType is the entity type of the rows the capability returns.
	ResultType string `json:"result_type"`
}

// CapabilityDefinition is everything one lens contributes to the registry.
type CapabilityDefinition struct {
	Lens       string                       `json:"lens"`
	Mappings   map[string]CapabilityMapping `json:"mappings"`
	Implements []string                     `json:"implements"`
}

// Capability is the result of resolving a single entity type.
type Capability struct {
	Lens string `json:"lens"`
	CapabilityMapping
}

// AvailabilityMode controls how a microaction reacts to a zero quantity.
type AvailabilityMode string

const (
	AvailabilityHideWhenZero  AvailabilityMode = "hide"
	AvailabilityBoostWhenZero AvailabilityMode = "boost"
)

// Availability ties a microaction to a quantity column on the entity.
type Availability struct {
	Field    string           `json:"field"`
	WhenZero AvailabilityMode `json:"when_zero"`
}

// LensMicroaction is a follow-up action a lens offers for one of its result types.
type LensMicroaction struct {
	ActionID     string        `json:"action_id"`
	BasePriority int           `json:"base_priority"`
	Availability *Availability `json:"availability,omitempty"`
}

// MicroactionSuggestion is a ranked, pre-filled next action. Never persisted.
type MicroactionSuggestion struct {
	ActionID string         `json:"action_id"`
	Label    string         `json:"label"`
	Variant  ActionVariant  `json:"variant"`
	Priority int            `json:"priority"`
	Prefill  map[string]any `json:"prefill"`
}
