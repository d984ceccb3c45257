package objects

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/object-registry/object-registry/internal/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewObjectForm_FormatsDocument(t *testing.T) {
	obj := &models.JSONObject{
		ID:             5,
		Name:           "cfg",
		Description:    "d",
		SchemaID:       3,
		OrganizationID: 2,
		Document:       json.RawMessage(`{"b":1,"a":[true]}`),
	}

	form := NewObjectForm(obj)

	assert.Equal(t, "cfg", form.Name)
	assert.Equal(t, "d", form.Description)
	assert.Equal(t, int64(3), form.SchemaID)
	assert.Equal(t, int64(2), form.OrganizationID)
	assert.Equal(t, "{\n    \"a\": [\n        true\n    ],\n    \"b\": 1\n}", form.JSONObject)
}

func TestApply_NewObjectTakesSchema(t *testing.T) {
	form := &ObjectForm{
		Name:           "cfg",
		Description:    "d",
		SchemaID:       3,
		OrganizationID: 2,
		JSONObject:     "{ \"b\": 1, \"a\": 2 }",
	}
	obj := &models.JSONObject{}

	require.NoError(t, form.Apply(obj))

	assert.Equal(t, "cfg", obj.Name)
	assert.Equal(t, "d", obj.Description)
	assert.Equal(t, int64(3), obj.SchemaID)
	assert.Equal(t, int64(2), obj.OrganizationID)
	assert.JSONEq(t, `{"a":2,"b":1}`, string(obj.Document))
	assert.Equal(t, `{"a":2,"b":1}`, string(obj.Document))
}

func TestApply_PersistedObjectKeepsSchema(t *testing.T) {
	form := &ObjectForm{Name: "cfg", SchemaID: 9, OrganizationID: 2, JSONObject: `[]`}
	obj := &models.JSONObject{ID: 5, SchemaID: 3}

	require.NoError(t, form.Apply(obj))

	assert.Equal(t, int64(3), obj.SchemaID)
	assert.Equal(t, int64(5), obj.ID)
}

func TestApply_InvalidDocumentLeavesObjectUntouched(t *testing.T) {
	form := &ObjectForm{Name: "new", JSONObject: `{`}
	obj := &models.JSONObject{Name: "old"}

	assert.Error(t, form.Apply(obj))
	assert.Equal(t, "old", obj.Name)
}

func TestFieldErrors(t *testing.T) {
	errs := FieldErrors{}
	assert.False(t, errs.Any())

	errs.Add("name", msgRequired)
	errs.Add("name", msgDuplicateName)

	assert.True(t, errs.Any())
	assert.True(t, errs.Has("name"))
	assert.False(t, errs.Has("json_object"))
	assert.Equal(t, []string{msgRequired, msgDuplicateName}, errs["name"])
}

func TestAddBindingError_TranslatesValidatorTags(t *testing.T) {
	v := validator.New()
	v.SetTagName("binding")
	err := v.Struct(ObjectForm{Name: string(make([]byte, 101)), JSONObject: "{nope"})
	require.Error(t, err)

	errs := FieldErrors{}
	require.True(t, errs.AddBindingError(err))

	assert.Equal(t, []string{"Field cannot be longer than 100 characters."}, errs["name"])
	assert.Equal(t, []string{msgRequired}, errs["organization_id"])
	assert.Equal(t, []string{msgInvalidJSON}, errs["json_object"])
	assert.False(t, errs.Has("schema_id"))
}

func TestAddBindingError_NonValidationError(t *testing.T) {
	errs := FieldErrors{}
	assert.False(t, errs.AddBindingError(assert.AnError))
	assert.False(t, errs.Any())
}

func TestOrganizationChoices(t *testing.T) {
	orgs := []*models.Organization{
		{ID: 2, Name: "acme", DisplayName: "Acme Corp"},
		{ID: 4, Name: "globex"},
		{ID: 6, Name: "initech"},
	}
	principal := &models.UserWithOrgRoles{
		User: models.User{ID: 1},
		Memberships: []models.UserMembership{
			{OrganizationID: 2, RoleTemplateScopes: []string{"objects:read", "objects:write"}},
			{OrganizationID: 4, RoleTemplateScopes: []string{"objects:write"}},
			{OrganizationID: 6, RoleTemplateScopes: []string{"objects:read"}},
		},
	}

	choices := organizationChoices(principal, orgs, 4)

	require.Len(t, choices, 3)
	assert.Equal(t, Choice{Value: 0, Label: "--"}, choices[0])
	assert.Equal(t, Choice{Value: 2, Label: "Acme Corp"}, choices[1])
	assert.Equal(t, Choice{Value: 4, Label: "globex", Selected: true}, choices[2])
}

func TestOrganizationChoices_ReadOnlyMember(t *testing.T) {
	orgs := []*models.Organization{{ID: 2, Name: "acme"}}
	principal := &models.UserWithOrgRoles{
		Memberships: []models.UserMembership{{OrganizationID: 2, RoleTemplateScopes: []string{"objects:read"}}},
	}

	assert.Equal(t, []Choice{placeholderChoice}, organizationChoices(principal, orgs, 2))
}

func TestSchemaChoices_NoSchemas(t *testing.T) {
	choices := schemaChoices(nil, 0)
	assert.Equal(t, []Choice{placeholderChoice}, choices)
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name       string
		definition string
		document   string
		violations int
	}{
		{"no definition", "", `{"anything":1}`, 0},
		{"valid", personSchema, `{"name":"Alice"}`, 0},
		{"missing required", personSchema, `{}`, 1},
		{"wrong type", personSchema, `{"name":5}`, 1},
		{"wrong root type", personSchema, `[]`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations, err := ValidateDocument([]byte(tt.definition), []byte(tt.document))
			require.NoError(t, err)
			assert.Len(t, violations, tt.violations)
		})
	}
}

func TestValidateDocument_BrokenDefinition(t *testing.T) {
	_, err := ValidateDocument([]byte(`{"type": 12}`), []byte(`{}`))
	assert.Error(t, err)
}
