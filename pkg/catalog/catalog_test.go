package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
	"github.com/bosun-marine/bosun-engine/pkg/models"
)

func TestDefault_Loads(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.Greater(t, c.Len(), 20)

	def, err := c.Lookup("approve_request")
	require.NoError(t, err)
	assert.Equal(t, models.VariantMutate, def.Variant)
	assert.Equal(t, []string{models.RoleHOD, models.RoleCaptain}, def.AllowedRoles)
	assert.Equal(t, []string{"request_id"}, def.RequiredFields())

	def, err = c.Lookup("supersede_certificate")
	require.NoError(t, err)
	assert.Equal(t, models.VariantSigned, def.Variant)
	require.NotNil(t, def.Target)
	assert.Equal(t, models.EntityTypeCertificate, def.Target.EntityType)
}

func TestLookup_Unknown(t *testing.T) {
	c := MustDefault()

	_, err := c.Lookup("launch_tender")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotRegistered))
}

func TestOrder_FollowsDeclaration(t *testing.T) {
	c := MustDefault()

	all := c.All()
	for i, def := range all {
		assert.Equal(t, i, c.Order(def.ID))
	}
	assert.Equal(t, -1, c.Order("nope"))
	assert.Less(t, c.Order("restock_part"), c.Order("consume_part"))
}

func TestByDomainAndRole(t *testing.T) {
	c := MustDefault()

	for _, def := range c.ByDomain(models.EntityTypePurchaseRequest) {
		assert.Equal(t, models.EntityTypePurchaseRequest, def.Domain)
	}

	for _, def := range c.ForRole(models.RoleCrew) {
		assert.True(t, def.AllowsRole(models.RoleCrew), def.ID)
		assert.NotEqual(t, "approve_request", def.ID)
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	c := MustDefault()

	all := c.All()
	all[0] = nil
	assert.NotNil(t, c.All()[0])
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantErr string
	}{
		{
			name:    "empty",
			source:  "actions: []",
			wantErr: "empty",
		},
		{
			name: "duplicate id",
			source: `
actions:
  - {id: a, variant: READ, domain: part, allowed_roles: [crew]}
  - {id: a, variant: READ, domain: part, allowed_roles: [crew]}
`,
			wantErr: "duplicate action id",
		},
		{
			name: "unknown variant",
			source: `
actions:
  - {id: a, variant: DELETE, domain: part, allowed_roles: [crew]}
`,
			wantErr: "unknown variant",
		},
		{
			name: "unknown role",
			source: `
actions:
  - {id: a, variant: READ, domain: part, allowed_roles: [bosun]}
`,
			wantErr: "invalid role",
		},
		{
			name: "no roles",
			source: `
actions:
  - {id: a, variant: READ, domain: part, allowed_roles: []}
`,
			wantErr: "allowed_roles",
		},
		{
			name: "target outside domain",
			source: `
actions:
  - id: a
    variant: MUTATE
    domain: part
    allowed_roles: [crew]
    target: {entity_type: work_order, id_field: work_order_id}
    fields:
      - {name: work_order_id, type: uuid, required: true}
`,
			wantErr: "must match domain",
		},
		{
			name: "undeclared target field",
			source: `
actions:
  - id: a
    variant: MUTATE
    domain: part
    allowed_roles: [crew]
    target: {entity_type: part, id_field: part_id}
`,
			wantErr: "not declared",
		},
		{
			name: "unbounded number",
			source: `
actions:
  - id: a
    variant: MUTATE
    domain: part
    allowed_roles: [crew]
    fields:
      - {name: quantity, type: number}
`,
			wantErr: "bounded range",
		},
		{
			name: "enum without values",
			source: `
actions:
  - id: a
    variant: MUTATE
    domain: part
    allowed_roles: [crew]
    fields:
      - {name: urgency, type: enum}
`,
			wantErr: "enum requires values",
		},
		{
			name: "storage on read",
			source: `
actions:
  - id: a
    variant: READ
    domain: part
    allowed_roles: [crew]
    target: {entity_type: part, id_field: part_id}
    storage: {bucket: b, path_template: "x/{filename}", writable_prefixes: ["x/"]}
    fields:
      - {name: part_id, type: uuid, required: true}
      - {name: filename, type: string, required: true}
`,
			wantErr: "not allowed on READ",
		},
		{
			name: "unknown key",
			source: `
actions:
  - {id: a, variant: READ, domain: part, allowed_roles: [crew], handler: x}
`,
			wantErr: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.source))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
