package models

import (
	"github.com/google/uuid"
)

// ActionVariant classifies the risk of an action.
type ActionVariant string

const (
	VariantRead   ActionVariant = "READ"
	VariantMutate ActionVariant = "MUTATE"
	VariantSigned ActionVariant = "SIGNED"
)

// IsValid returns true if the variant is one of the known variants.
func (v ActionVariant) IsValid() bool {
	switch v {
	case VariantRead, VariantMutate, VariantSigned:
		return true
	default:
		return false
	}
}

// IsMutating returns true for variants that change state and must be audited.
func (v ActionVariant) IsMutating() bool {
	return v == VariantMutate || v == VariantSigned
}

// FieldType is the declared type of a payload field.
type FieldType string

const (
	FieldUUID    FieldType = "uuid"
	FieldNumber  FieldType = "number"
	FieldInteger FieldType = "integer"
	FieldEnum    FieldType = "enum"
	FieldString  FieldType = "string"
	FieldDate    FieldType = "date"
	FieldBool    FieldType = "bool"
)

// ValidFieldTypes contains all valid field type values.
var ValidFieldTypes = []FieldType{FieldUUID, FieldNumber, FieldInteger, FieldEnum, FieldString, FieldDate, FieldBool}

// IsValidFieldType checks if the given field type is valid.
func IsValidFieldType(t FieldType) bool {
	for _, v := range ValidFieldTypes {
		if v == t {
			return true
		}
	}
	return false
}

// FieldSpec declares one payload field of an action.
type FieldSpec struct {
	Name      string    `yaml:"name" json:"name"`
	Type      FieldType `yaml:"type" json:"type"`
	Required  bool      `yaml:"required" json:"required"`
	Min       *float64  `yaml:"min,omitempty" json:"min,omitempty"`
	Max       *float64  `yaml:"max,omitempty" json:"max,omitempty"`
	Values    []string  `yaml:"values,omitempty" json:"values,omitempty"`
	MaxLength int       `yaml:"max_length,omitempty" json:"max_length,omitempty"`
	FreeText  bool      `yaml:"free_text,omitempty" json:"free_text,omitempty"`
}

// EntityRef names a payload field that carries the id of an existing entity.
type EntityRef struct {
	EntityType string `yaml:"entity_type" json:"entity_type"`
	IDField    string `yaml:"id_field" json:"id_field"`
}

// StoragePolicy constrains where a document-attaching action may write.
// PathTemplate placeholders are {yacht_id}, {entity_id} and {filename}.
type StoragePolicy struct {
	Bucket               string   `yaml:"bucket" json:"bucket"`
	PathTemplate         string   `yaml:"path_template" json:"path_template"`
	WritablePrefixes     []string `yaml:"writable_prefixes" json:"writable_prefixes"`
	RequiresConfirmation bool     `yaml:"requires_confirmation" json:"requires_confirmation"`
}

// ActionDefinition is one entry of the action catalog.
// Definitions are loaded once at startup and never mutated.
type ActionDefinition struct {
	ID           string         `yaml:"id" json:"id"`
	Label        string         `yaml:"label" json:"label"`
	Variant      ActionVariant  `yaml:"variant" json:"variant"`
	Domain       string         `yaml:"domain" json:"domain"`
	AllowedRoles []string       `yaml:"allowed_roles" json:"-"`
	Fields       []FieldSpec    `yaml:"fields" json:"fields"`
	Target       *EntityRef     `yaml:"target,omitempty" json:"target,omitempty"`
	References   []EntityRef    `yaml:"references,omitempty" json:"references,omitempty"`
	Storage      *StoragePolicy `yaml:"storage,omitempty" json:"storage,omitempty"`
	Creates      bool           `yaml:"creates,omitempty" json:"creates,omitempty"`
}

// AllowsRole returns true if role may invoke the action.
func (d *ActionDefinition) AllowsRole(role string) bool {
	for _, r := range d.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// RequiredFields returns the names of required fields in declaration order.
func (d *ActionDefinition) RequiredFields() []string {
	var names []string
	for _, f := range d.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// Field returns the FieldSpec with the given name.
func (d *ActionDefinition) Field(name string) (FieldSpec, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// EntityRefs returns the target followed by the additional references.
func (d *ActionDefinition) EntityRefs() []EntityRef {
	refs := make([]EntityRef, 0, len(d.References)+1)
	if d.Target != nil {
		refs = append(refs, *d.Target)
	}
	return append(refs, d.References...)
}

// ActionRequest is what a caller submits to the dispatcher.
type ActionRequest struct {
	ActionID       string         `json:"action_id"`
	Payload        map[string]any `json:"payload"`
	IdempotencyKey string         `json:"-"`
}

// ActionResult is returned to the caller after a successful invocation.
type ActionResult struct {
	ActionID  string        `json:"action_id"`
	Variant   ActionVariant `json:"variant"`
	EntityID  *uuid.UUID    `json:"entity_id,omitempty"`
	Data      any           `json:"data,omitempty"`
	Duplicate bool          `json:"duplicate,omitempty"`
	AuditID   *uuid.UUID    `json:"audit_id,omitempty"`
	Replayed  bool          `json:"replayed,omitempty"`
}
