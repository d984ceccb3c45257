// form.go binds the create/edit form of a JSON object and maps validated input onto
// the stored record field by field.
package objects

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/object-registry/object-registry/internal/auth"
	"github.com/object-registry/object-registry/internal/db/models"
	"github.com/object-registry/object-registry/pkg/jsonfmt"
)

// Field error messages shown next to form inputs
const (
	msgRequired      = "This field is required."
	msgInvalidChoice = "Not a valid choice."
	msgInvalidJSON   = "Invalid JSON."
	msgDuplicateName = "Name already exists."
)

// ObjectForm is the submitted create/edit form. SchemaID is ignored when editing.
type ObjectForm struct {
	Name           string `form:"name" binding:"required,max=100"`
	Description    string `form:"description" binding:"max=2000"`
	SchemaID       int64  `form:"schema_id"`
	OrganizationID int64  `form:"organization_id" binding:"required"`
	JSONObject     string `form:"json_object" binding:"required,json"`
}

// formFieldNames maps struct fields to their input names
var formFieldNames = map[string]string{
	"Name":           "name",
	"Description":    "description",
	"SchemaID":       "schema_id",
	"OrganizationID": "organization_id",
	"JSONObject":     "json_object",
}

// NewObjectForm returns a form pre-populated from an existing object
func NewObjectForm(obj *models.JSONObject) *ObjectForm {
	doc := string(obj.Document)
	if formatted, err := jsonfmt.Format(obj.Document); err == nil {
		doc = string(formatted)
	}
	return &ObjectForm{
		Name:           obj.Name,
		Description:    obj.Description,
		SchemaID:       obj.SchemaID,
		OrganizationID: obj.OrganizationID,
		JSONObject:     doc,
	}
}

// Apply copies the validated form onto obj. The schema is only assigned to objects
// that have not been persisted yet.
func (f *ObjectForm) Apply(obj *models.JSONObject) error {
	doc, err := jsonfmt.Compact([]byte(f.JSONObject))
	if err != nil {
		return fmt.Errorf("failed to apply form: %w", err)
	}

	obj.Name = f.Name
	obj.Description = f.Description
	obj.OrganizationID = f.OrganizationID
	obj.Document = doc
	if obj.ID == 0 {
		obj.SchemaID = f.SchemaID
	}
	return nil
}

// FieldErrors holds validation messages keyed by input name
type FieldErrors map[string][]string

// Add appends a message for the field
func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Has reports whether the field has any message
func (e FieldErrors) Has(field string) bool {
	return len(e[field]) > 0
}

// Any reports whether any field has a message
func (e FieldErrors) Any() bool {
	for _, msgs := range e {
		if len(msgs) > 0 {
			return true
		}
	}
	return false
}

// AddBindingError translates a binding error into field messages. It returns
// false when err is not a validation error (for example an unparsable number).
func (e FieldErrors) AddBindingError(err error) bool {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	for _, fe := range verrs {
		field, ok := formFieldNames[fe.StructField()]
		if !ok {
			field = strings.ToLower(fe.Field())
		}
		e.Add(field, validationMessage(fe))
	}
	return true
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "max":
		return fmt.Sprintf("Field cannot be longer than %s characters.", fe.Param())
	case "json":
		return msgInvalidJSON
	default:
		return "Invalid value."
	}
}

// Choice is one option of a select input
type Choice struct {
	Value    int64
	Label    string
	Selected bool
}

// placeholderChoice is the "no selection" option; its value never validates
var placeholderChoice = Choice{Value: 0, Label: "--"}

// organizationChoices lists the user's organizations the principal may write to,
// behind the placeholder
func organizationChoices(principal *models.UserWithOrgRoles, orgs []*models.Organization, selected int64) []Choice {
	choices := make([]Choice, 0, len(orgs)+1)
	choices = append(choices, placeholderChoice)
	for _, org := range orgs {
		if !auth.CanUseOrganization(principal, org.ID) {
			continue
		}
		choices = append(choices, Choice{
			Value:    org.ID,
			Label:    org.Label(),
			Selected: org.ID == selected,
		})
	}
	return choices
}

// schemaChoices lists every schema behind the placeholder
func schemaChoices(schemas []*models.Schema, selected int64) []Choice {
	choices := make([]Choice, 0, len(schemas)+1)
	choices = append(choices, placeholderChoice)
	for _, s := range schemas {
		choices = append(choices, Choice{
			Value:    s.ID,
			Label:    s.Name,
			Selected: s.ID == selected,
		})
	}
	return choices
}

func editPath(id int64) string {
	return "/object/edit/" + strconv.FormatInt(id, 10)
}
