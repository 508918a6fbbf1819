// Package lenses implements the capability registry.
//
// A lens is a domain module that maps the entity types it recognizes in
// free-text queries to searchable table/column capabilities, and declares
// the microactions it offers on its result rows. Built-in lenses register
// themselves at package init; Discover validates every registered lens
// against the live schema and seals them into an immutable Registry.
package lenses

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bosun-marine/bosun-engine/pkg/models"
)

// Lens is one domain module contributing capabilities and microactions.
type Lens interface {
	Name() string
	Capabilities() []models.CapabilityMapping
	// Microactions returns, per result entity type, the follow-up actions
	// the lens offers.
	Microactions() map[string][]models.LensMicroaction
}

// SchemaInspector answers whether a column exists on a table in the store.
type SchemaInspector interface {
	ColumnExists(ctx context.Context, table, column string) (bool, error)
}

// ActionLookup is the part of the action catalog the registry cross-checks.
type ActionLookup interface {
	Lookup(id string) (*models.ActionDefinition, error)
}

// RegistrationError is returned when a lens fails validation at startup.
type RegistrationError struct {
	Lens       string
	EntityType string
	Reason     string
}

func (e *RegistrationError) Error() string {
	if e.EntityType == "" {
		return fmt.Sprintf("lens %q: %s", e.Lens, e.Reason)
	}
	return fmt.Sprintf("lens %q, entity type %q: %s", e.Lens, e.EntityType, e.Reason)
}

var (
	builtinMu sync.Mutex
	builtin   []Lens
)

// register is called from the init functions of the built-in lenses.
func register(l Lens) {
	builtinMu.Lock()
	defer builtinMu.Unlock()
	builtin = append(builtin, l)
}

// Builtin returns the lenses registered at package init, sorted by name.
func Builtin() []Lens {
	builtinMu.Lock()
	defer builtinMu.Unlock()
	out := make([]Lens, len(builtin))
	copy(out, builtin)
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Registry is the sealed, read-only result of discovery. Safe for concurrent use.
type Registry struct {
	lenses       []models.CapabilityDefinition
	byEntityType map[string]models.Capability
	microactions map[string][]models.LensMicroaction
	microOwner   map[string]string
}

// Discover validates and seals every built-in lens.
func Discover(ctx context.Context, inspector SchemaInspector) (*Registry, error) {
	return DiscoverLenses(ctx, inspector, Builtin()...)
}

// DiscoverLenses validates and seals the given lenses. Registration is all or
// nothing: the first failure is returned and no registry is produced.
func DiscoverLenses(ctx context.Context, inspector SchemaInspector, lenses ...Lens) (*Registry, error) {
	r := &Registry{
		byEntityType: make(map[string]models.Capability),
		microactions: make(map[string][]models.LensMicroaction),
		microOwner:   make(map[string]string),
	}
	seenLens := make(map[string]bool, len(lenses))

	for _, l := range lenses {
		name := l.Name()
		if name == "" {
			return nil, &RegistrationError{Lens: name, Reason: "lens name is empty"}
		}
		if seenLens[name] {
			return nil, &RegistrationError{Lens: name, Reason: "lens registered twice"}
		}
		seenLens[name] = true

		def := models.CapabilityDefinition{
			Lens:     name,
			Mappings: make(map[string]models.CapabilityMapping),
		}
		implemented := make(map[string]bool)

		for _, m := range l.Capabilities() {
			if m.EntityType == "" || m.CapabilityID == "" || m.Table == "" || m.Column == "" {
				return nil, &RegistrationError{Lens: name, EntityType: m.EntityType, Reason: "mapping requires entity_type, capability_id, table and column"}
			}
			if existing, ok := r.byEntityType[m.EntityType]; ok {
				return nil, &RegistrationError{
					Lens:       name,
					EntityType: m.EntityType,
					Reason:     fmt.Sprintf("entity type already claimed by lens %q", existing.Lens),
				}
			}
			exists, err := inspector.ColumnExists(ctx, m.Table, m.Column)
			if err != nil {
				return nil, &RegistrationError{Lens: name, EntityType: m.EntityType, Reason: fmt.Sprintf("schema lookup failed: %v", err)}
			}
			if !exists {
				return nil, &RegistrationError{
					Lens:       name,
					EntityType: m.EntityType,
					Reason:     fmt.Sprintf("column %s.%s does not exist", m.Table, m.Column),
				}
			}
			if m.ResultType == "" {
				m.ResultType = m.EntityType
			}
			def.Mappings[m.EntityType] = m
			r.byEntityType[m.EntityType] = models.Capability{Lens: name, CapabilityMapping: m}
			if !implemented[m.CapabilityID] {
				implemented[m.CapabilityID] = true
				def.Implements = append(def.Implements, m.CapabilityID)
			}
		}

		for resultType, actions := range l.Microactions() {
			if owner, ok := r.microOwner[resultType]; ok {
				return nil, &RegistrationError{
					Lens:       name,
					EntityType: resultType,
					Reason:     fmt.Sprintf("microactions for result type already declared by lens %q", owner),
				}
			}
			r.microOwner[resultType] = name
			copied := make([]models.LensMicroaction, len(actions))
			copy(copied, actions)
			r.microactions[resultType] = copied
		}

		sort.Strings(def.Implements)
		r.lenses = append(r.lenses, def)
	}
	return r, nil
}

// Resolve returns the capability for entityType. Unmapped types return false
// and are skipped by callers, not treated as errors.
func (r *Registry) Resolve(entityType string) (models.Capability, bool) {
	c, ok := r.byEntityType[entityType]
	return c, ok
}

// ResolveAll resolves each type in order, skipping unmapped ones.
func (r *Registry) ResolveAll(entityTypes []string) []models.Capability {
	var out []models.Capability
	seen := make(map[string]bool, len(entityTypes))
	for _, t := range entityTypes {
		if seen[t] {
			continue
		}
		seen[t] = true
		if c, ok := r.byEntityType[t]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Microactions returns the lens microactions declared for a result entity type.
func (r *Registry) Microactions(resultType string) []models.LensMicroaction {
	actions := r.microactions[resultType]
	out := make([]models.LensMicroaction, len(actions))
	copy(out, actions)
	return out
}

// HasMicroactions reports whether any lens declared actions for resultType.
func (r *Registry) HasMicroactions(resultType string) bool {
	_, ok := r.microactions[resultType]
	return ok
}

// Lenses returns every registered lens definition in registration order.
func (r *Registry) Lenses() []models.CapabilityDefinition {
	out := make([]models.CapabilityDefinition, len(r.lenses))
	copy(out, r.lenses)
	return out
}

// Validate cross-checks lens microactions against the action catalog: every
// microaction must be registered and either belong to the result type's
// domain or reference that entity type in its payload.
func (r *Registry) Validate(actions ActionLookup) error {
	resultTypes := make([]string, 0, len(r.microactions))
	for t := range r.microactions {
		resultTypes = append(resultTypes, t)
	}
	sort.Strings(resultTypes)

	for _, resultType := range resultTypes {
		seen := make(map[string]bool)
		for _, m := range r.microactions[resultType] {
			def, err := actions.Lookup(m.ActionID)
			if err != nil {
				return &RegistrationError{Lens: r.microOwner[resultType], EntityType: resultType, Reason: fmt.Sprintf("microaction %q is not a registered action", m.ActionID)}
			}
			if def.Domain != resultType && !referencesType(def, resultType) {
				return &RegistrationError{Lens: r.microOwner[resultType], EntityType: resultType, Reason: fmt.Sprintf("microaction %q neither targets nor references this entity type", m.ActionID)}
			}
			if seen[m.ActionID] {
				return &RegistrationError{Lens: r.microOwner[resultType], EntityType: resultType, Reason: fmt.Sprintf("microaction %q declared twice", m.ActionID)}
			}
			seen[m.ActionID] = true
		}
	}
	return nil
}

func referencesType(def *models.ActionDefinition, entityType string) bool {
	for _, ref := range def.References {
		if ref.EntityType == entityType {
			return true
		}
	}
	return false
}
