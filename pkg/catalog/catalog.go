// Package catalog holds the registry of every invocable action.
//
// The catalog is a trust boundary, not configuration data: allowed roles and
// required fields are compiled into the binary from catalog.yaml and cannot be
// changed at runtime. Load validates the source and refuses duplicate ids.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
	"github.com/bosun-marine/bosun-engine/pkg/models"
)

//go:embed catalog.yaml
var defaultSource []byte

// Catalog is an immutable, ordered set of action definitions.
type Catalog struct {
	defs  []*models.ActionDefinition
	byID  map[string]*models.ActionDefinition
	order map[string]int
}

type catalogFile struct {
	Actions []models.ActionDefinition `yaml:"actions"`
}

// Default parses the embedded catalog. It fails only if the embedded source
// is invalid, which is a build defect.
func Default() (*Catalog, error) {
	return Load(defaultSource)
}

// MustDefault is Default for process startup.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(fmt.Sprintf("embedded action catalog is invalid: %v", err))
	}
	return c
}

// Load parses and validates a catalog source.
func Load(data []byte) (*Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse action catalog: %w", err)
	}
	if len(file.Actions) == 0 {
		return nil, errors.New("action catalog is empty")
	}

	c := &Catalog{
		defs:  make([]*models.ActionDefinition, 0, len(file.Actions)),
		byID:  make(map[string]*models.ActionDefinition, len(file.Actions)),
		order: make(map[string]int, len(file.Actions)),
	}
	for i := range file.Actions {
		def := file.Actions[i]
		if err := validateDefinition(&def); err != nil {
			return nil, fmt.Errorf("action %q: %w", def.ID, err)
		}
		if _, exists := c.byID[def.ID]; exists {
			return nil, fmt.Errorf("duplicate action id %q", def.ID)
		}
		c.defs = append(c.defs, &def)
		c.byID[def.ID] = &def
		c.order[def.ID] = i
	}
	return c, nil
}

// Lookup returns the definition for id, or apperrors.ErrNotRegistered.
// The returned definition must not be modified.
func (c *Catalog) Lookup(id string) (*models.ActionDefinition, error) {
	def, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNotRegistered, id)
	}
	return def, nil
}

// All returns every definition in declaration order.
func (c *Catalog) All() []*models.ActionDefinition {
	out := make([]*models.ActionDefinition, len(c.defs))
	copy(out, c.defs)
	return out
}

// ByDomain returns the definitions tagged with domain, in declaration order.
func (c *Catalog) ByDomain(domain string) []*models.ActionDefinition {
	var out []*models.ActionDefinition
	for _, def := range c.defs {
		if def.Domain == domain {
			out = append(out, def)
		}
	}
	return out
}

// ForRole returns the definitions role may invoke, in declaration order.
func (c *Catalog) ForRole(role string) []*models.ActionDefinition {
	var out []*models.ActionDefinition
	for _, def := range c.defs {
		if def.AllowsRole(role) {
			out = append(out, def)
		}
	}
	return out
}

// Order returns the declaration index of id, or -1 if unknown.
func (c *Catalog) Order(id string) int {
	if i, ok := c.order[id]; ok {
		return i
	}
	return -1
}

// Len returns the number of registered actions.
func (c *Catalog) Len() int {
	return len(c.defs)
}

func validateDefinition(def *models.ActionDefinition) error {
	if strings.TrimSpace(def.ID) == "" {
		return errors.New("id is required")
	}
	if !def.Variant.IsValid() {
		return fmt.Errorf("unknown variant %q", def.Variant)
	}
	if def.Domain == "" {
		return errors.New("domain is required")
	}
	if len(def.AllowedRoles) == 0 {
		return errors.New("allowed_roles must not be empty")
	}
	for _, role := range def.AllowedRoles {
		if !models.IsValidRole(role) {
			return fmt.Errorf("%w: %q", apperrors.ErrInvalidRole, role)
		}
	}

	seen := make(map[string]bool, len(def.Fields))
	for _, f := range def.Fields {
		if f.Name == "" {
			return errors.New("field name is required")
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = true
		if err := validateField(f); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
	}

	if def.Target != nil {
		if def.Target.EntityType != def.Domain {
			return fmt.Errorf("target entity type %q must match domain %q", def.Target.EntityType, def.Domain)
		}
		if err := validateRef(def, *def.Target, true); err != nil {
			return err
		}
	}
	for _, ref := range def.References {
		if err := validateRef(def, ref, false); err != nil {
			return err
		}
	}

	if def.Storage != nil {
		if def.Variant == models.VariantRead {
			return errors.New("storage policy is not allowed on READ actions")
		}
		if def.Target == nil {
			return errors.New("storage policy requires a target entity")
		}
		if def.Storage.Bucket == "" || def.Storage.PathTemplate == "" {
			return errors.New("storage policy requires bucket and path_template")
		}
		if len(def.Storage.WritablePrefixes) == 0 {
			return errors.New("storage policy requires at least one writable prefix")
		}
		if _, ok := def.Field("filename"); !ok {
			return errors.New("storage policy requires a filename field")
		}
	}

	if def.Creates && def.Target != nil {
		return errors.New("creation actions cannot target an existing entity")
	}
	return nil
}

func validateField(f models.FieldSpec) error {
	if !models.IsValidFieldType(f.Type) {
		return fmt.Errorf("unknown type %q", f.Type)
	}
	if f.Type == models.FieldEnum && len(f.Values) == 0 {
		return errors.New("enum requires values")
	}
	if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
		return errors.New("min is greater than max")
	}
	if (f.Type == models.FieldNumber || f.Type == models.FieldInteger) && (f.Min == nil || f.Max == nil) {
		return errors.New("numeric fields require a bounded range")
	}
	if f.Min != nil && *f.Min < 0 {
		return errors.New("numeric range must not be negative")
	}
	return nil
}

func validateRef(def *models.ActionDefinition, ref models.EntityRef, target bool) error {
	if ref.EntityType == "" || ref.IDField == "" {
		return errors.New("entity reference requires entity_type and id_field")
	}
	f, ok := def.Field(ref.IDField)
	if !ok {
		return fmt.Errorf("entity reference field %q is not declared", ref.IDField)
	}
	if f.Type != models.FieldUUID {
		return fmt.Errorf("entity reference field %q must be a uuid", ref.IDField)
	}
	if target && !f.Required {
		return fmt.Errorf("target field %q must be required", ref.IDField)
	}
	return nil
}
