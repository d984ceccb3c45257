// Package objects implements the pages that create, view, export, edit and delete
// JSON objects. RegisterRoutes attaches the guards; the object-scoped handlers
// read the object loaded by middleware.RequireObjectPermission.
package objects

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/jmoiron/sqlx"
	"github.com/object-registry/object-registry/internal/auth"
	"github.com/object-registry/object-registry/internal/db/models"
	"github.com/object-registry/object-registry/internal/db/repositories"
	"github.com/object-registry/object-registry/internal/middleware"
	"github.com/object-registry/object-registry/internal/telemetry"
	"github.com/object-registry/object-registry/pkg/checksum"
	"github.com/object-registry/object-registry/pkg/jsonfmt"
)

const (
	msgSaveFailed   = "The object could not be saved. Please try again."
	msgUnreadable   = "The submitted form could not be read."
	msgNotFound     = "Object not found."
	resourceType    = "json_object"
	templateForm    = "edit_object.html"
	templateView    = "view_object.html"
	templateObjects = "objects.html"
)

// ObjectHandlers handles the JSON object pages
type ObjectHandlers struct {
	objectRepo *repositories.JSONObjectRepository
	schemaRepo *repositories.SchemaRepository
	orgRepo    *repositories.OrganizationRepository
}

// NewObjectHandlers creates a new ObjectHandlers instance
func NewObjectHandlers(db *sql.DB) *ObjectHandlers {
	dbx := sqlx.NewDb(db, "postgres")
	return &ObjectHandlers{
		objectRepo: repositories.NewJSONObjectRepository(dbx),
		schemaRepo: repositories.NewSchemaRepository(dbx),
		orgRepo:    repositories.NewOrganizationRepository(db),
	}
}

// RegisterRoutes mounts the object pages with their guards
func (h *ObjectHandlers) RegisterRoutes(r gin.IRoutes) {
	login := middleware.RequireLogin()
	canView := middleware.RequireObjectPermission(h.objectRepo, middleware.ViewPermission)
	canEdit := middleware.RequireObjectPermission(h.objectRepo, middleware.EditPermission)

	r.GET("/objects", login, h.ListHandler())
	r.GET("/object/create", login, h.FormHandler())
	r.POST("/object/create", login, h.SubmitHandler())
	r.GET("/object/edit/:id", login, canEdit, h.FormHandler())
	r.POST("/object/edit/:id", login, canEdit, h.SubmitHandler())
	r.GET("/object/view/:id", canView, h.ViewHandler())
	r.GET("/object/get/:id", canView, h.ExportHandler())
	r.GET("/object/delete/:id", login, canEdit, h.DeleteHandler())
}

// formView is the data rendered by edit_object.html
type formView struct {
	Form                *ObjectForm
	Errors              FieldErrors
	FormError           string
	Editing             bool
	ObjectID            int64
	Action              string
	SchemaName          string
	SchemaChoices       []Choice
	OrganizationChoices []Choice
}

// FormHandler renders the create form, or the edit form when an object was loaded
// GET /object/create?schema_id=3
// GET /object/edit/:id
func (h *ObjectHandlers) FormHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		obj := middleware.GetObject(c)
		if obj != nil {
			h.renderForm(c, http.StatusOK, NewObjectForm(obj), obj, FieldErrors{}, "")
			return
		}

		form := &ObjectForm{}
		if raw := c.Query("schema_id"); raw != "" {
			id, err := middleware.ParseID(raw)
			if err != nil {
				middleware.RenderError(c, http.StatusNotFound, "Schema not found.")
				return
			}
			schema, err := h.schemaRepo.GetByID(c.Request.Context(), id)
			if err != nil {
				slog.Error("failed to load schema", "error", err, "schema_id", id)
				middleware.RenderError(c, http.StatusInternalServerError, "Failed to load the schema.")
				return
			}
			if schema == nil {
				middleware.RenderError(c, http.StatusNotFound, "Schema not found.")
				return
			}
			form.SchemaID = schema.ID
		}

		h.renderForm(c, http.StatusOK, form, nil, FieldErrors{}, "")
	}
}

// SubmitHandler validates the form and creates or updates the object, then
// redirects to its edit page. Invalid input re-renders the form and persists nothing.
// POST /object/create
// POST /object/edit/:id
func (h *ObjectHandlers) SubmitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		principal := middleware.GetPrincipal(c)
		existing := middleware.GetObject(c)

		action := "create"
		if existing != nil {
			action = "update"
		}

		form := &ObjectForm{}
		errs := FieldErrors{}
		formErr := ""
		if err := c.ShouldBindWith(form, binding.Form); err != nil {
			if !errs.AddBindingError(err) {
				formErr = msgUnreadable
			}
		}
		if existing != nil {
			form.SchemaID = existing.SchemaID
		}

		if err := h.validate(ctx, principal, form, errs); err != nil {
			slog.Error("failed to validate object form", "error", err, "action", action)
			telemetry.ObjectMutationsTotal.WithLabelValues(action, "error").Inc()
			h.renderForm(c, http.StatusInternalServerError, form, existing, errs, msgSaveFailed)
			return
		}
		if errs.Any() || formErr != "" {
			telemetry.ObjectMutationsTotal.WithLabelValues(action, "invalid").Inc()
			h.renderForm(c, http.StatusUnprocessableEntity, form, existing, errs, formErr)
			return
		}

		obj := &models.JSONObject{}
		if existing != nil {
			copied := *existing
			obj = &copied
		} else {
			creatorID := principal.ID
			obj.CreatorID = &creatorID
		}
		if err := form.Apply(obj); err != nil {
			slog.Error("failed to apply object form", "error", err, "action", action)
			telemetry.ObjectMutationsTotal.WithLabelValues(action, "error").Inc()
			h.renderForm(c, http.StatusInternalServerError, form, existing, errs, msgSaveFailed)
			return
		}

		var err error
		if existing != nil {
			err = h.objectRepo.Update(ctx, obj)
		} else {
			err = h.objectRepo.Create(ctx, obj)
		}
		switch {
		case err == nil:
		case errors.Is(err, repositories.ErrDuplicateName):
			telemetry.ObjectMutationsTotal.WithLabelValues(action, "conflict").Inc()
			errs.Add("name", msgDuplicateName)
			h.renderForm(c, http.StatusConflict, form, existing, errs, "")
			return
		case errors.Is(err, repositories.ErrNotFound):
			// Deleted by another request after the guard loaded it
			telemetry.ObjectMutationsTotal.WithLabelValues(action, "error").Inc()
			middleware.RenderError(c, http.StatusNotFound, msgNotFound)
			return
		default:
			slog.Error("failed to save object",
				"error", err,
				"action", action,
				"name", obj.Name,
				"request_id", middleware.GetRequestID(c),
			)
			telemetry.ObjectMutationsTotal.WithLabelValues(action, "error").Inc()
			h.renderForm(c, http.StatusInternalServerError, form, existing, errs, msgSaveFailed)
			return
		}

		telemetry.ObjectMutationsTotal.WithLabelValues(action, "success").Inc()
		middleware.Audit(c, "object."+action, resourceType, obj.ID, obj.OrganizationID)
		slog.Info("object saved", "action", action, "object_id", obj.ID, "user_id", principal.ID)

		c.Redirect(http.StatusFound, editPath(obj.ID))
	}
}

// validate runs the checks that need the database or the principal: the
// user must be allowed to write to the organization, the schema must exist and the
// document must satisfy the schema's definition.
func (h *ObjectHandlers) validate(ctx context.Context, principal *models.UserWithOrgRoles, form *ObjectForm, errs FieldErrors) error {
	form.Name = strings.TrimSpace(form.Name)
	if form.Name == "" && !errs.Has("name") {
		errs.Add("name", msgRequired)
	}

	if form.OrganizationID != 0 && !auth.CanUseOrganization(principal, form.OrganizationID) {
		errs.Add("organization_id", msgInvalidChoice)
	}

	if form.SchemaID == 0 {
		errs.Add("schema_id", msgRequired)
		return nil
	}
	schema, err := h.schemaRepo.GetByID(ctx, form.SchemaID)
	if err != nil {
		return err
	}
	if schema == nil {
		errs.Add("schema_id", msgInvalidChoice)
		return nil
	}

	switch {
	case errs.Has("json_object"):
		return nil
	case strings.TrimSpace(form.JSONObject) == "":
		errs.Add("json_object", msgRequired)
		return nil
	case !jsonfmt.Valid([]byte(form.JSONObject)):
		errs.Add("json_object", msgInvalidJSON)
		return nil
	}
	violations, err := ValidateDocument(schema.Definition, []byte(form.JSONObject))
	if err != nil {
		return err
	}
	for _, v := range violations {
		errs.Add("json_object", v)
	}
	return nil
}

// renderForm renders edit_object.html. obj is nil on the create path.
func (h *ObjectHandlers) renderForm(c *gin.Context, status int, form *ObjectForm, obj *models.JSONObject, errs FieldErrors, formErr string) {
	ctx := c.Request.Context()
	principal := middleware.GetPrincipal(c)

	orgs, err := h.orgRepo.GetUserOrganizations(ctx, principal.ID)
	if err != nil {
		slog.Error("failed to load organizations", "error", err, "user_id", principal.ID)
		middleware.RenderError(c, http.StatusInternalServerError, "Failed to load your organizations.")
		return
	}

	view := formView{
		Form:                form,
		Errors:              errs,
		FormError:           formErr,
		Action:              "/object/create",
		OrganizationChoices: organizationChoices(principal, orgs, form.OrganizationID),
	}
	title := "Create an object"

	if obj != nil {
		view.Editing = true
		view.ObjectID = obj.ID
		view.Action = editPath(obj.ID)
		title = "Edit " + obj.Name

		schema, err := h.schemaRepo.GetByID(ctx, obj.SchemaID)
		if err != nil {
			slog.Error("failed to load schema", "error", err, "schema_id", obj.SchemaID)
			middleware.RenderError(c, http.StatusInternalServerError, "Failed to load the schema.")
			return
		}
		view.SchemaName = "#" + strconv.FormatInt(obj.SchemaID, 10)
		if schema != nil {
			view.SchemaName = schema.Name
		}
	} else {
		schemas, err := h.schemaRepo.List(ctx)
		if err != nil {
			slog.Error("failed to list schemas", "error", err)
			middleware.RenderError(c, http.StatusInternalServerError, "Failed to load schemas.")
			return
		}
		view.SchemaChoices = schemaChoices(schemas, form.SchemaID)
	}

	c.HTML(status, templateForm, middleware.PageData(c, title, gin.H{"View": view}))
}

// ViewHandler renders the object's document read-only
// GET /object/view/:id
func (h *ObjectHandlers) ViewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		obj := middleware.GetObject(c)

		body, err := jsonfmt.Format(obj.Document)
		if err != nil {
			slog.Error("stored document is not valid JSON", "error", err, "object_id", obj.ID)
			middleware.RenderError(c, http.StatusInternalServerError, "The stored document could not be displayed.")
			return
		}

		schema, err := h.schemaRepo.GetByID(c.Request.Context(), obj.SchemaID)
		if err != nil {
			slog.Error("failed to load schema", "error", err, "schema_id", obj.SchemaID)
			middleware.RenderError(c, http.StatusInternalServerError, "Failed to load the schema.")
			return
		}

		c.HTML(http.StatusOK, templateView, middleware.PageData(c, obj.Name, gin.H{
			"Object":  obj,
			"Schema":  schema,
			"Body":    string(body),
			"CanEdit": auth.CanEditObject(middleware.GetPrincipal(c), obj),
		}))
	}
}

// ExportHandler downloads the object's document as a JSON file
// GET /object/get/:id
func (h *ObjectHandlers) ExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		obj := middleware.GetObject(c)

		body, err := jsonfmt.Format(obj.Document)
		if err != nil {
			slog.Error("stored document is not valid JSON", "error", err, "object_id", obj.ID)
			middleware.RenderError(c, http.StatusInternalServerError, "The stored document could not be exported.")
			return
		}

		etag := checksum.ETag(body)
		c.Header("ETag", etag)
		c.Header("Cache-Control", "private, no-cache")
		if checksum.MatchesETag(c.GetHeader("If-None-Match"), etag) {
			c.Status(http.StatusNotModified)
			return
		}

		telemetry.ObjectExportsTotal.Inc()
		c.Header("Content-Disposition", attachmentDisposition(obj.ExportFilename()))
		c.Data(http.StatusOK, "application/json; charset=utf-8", body)
	}
}

// attachmentDisposition builds a Content-Disposition value that always carries a
// quoted filename, plus an RFC 5987 filename* when the name is not plain ASCII.
func attachmentDisposition(filename string) string {
	var quoted strings.Builder
	ascii := true
	for _, r := range filename {
		switch {
		case r == '"' || r == '\\':
			quoted.WriteByte('\\')
			quoted.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			quoted.WriteByte('_')
		case r > 0x7e:
			ascii = false
			quoted.WriteByte('_')
		default:
			quoted.WriteRune(r)
		}
	}

	value := `attachment; filename="` + quoted.String() + `"`
	if !ascii {
		value += "; filename*=UTF-8''" + encodeExtValue(filename)
	}
	return value
}

// encodeExtValue percent-encodes every byte of s outside the RFC 5987 attr-char set
func encodeExtValue(s string) string {
	const hexDigits = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if isAttrChar(ch) {
			b.WriteByte(ch)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[ch>>4])
		b.WriteByte(hexDigits[ch&0x0f])
	}
	return b.String()
}

func isAttrChar(ch byte) bool {
	switch {
	case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z', '0' <= ch && ch <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", ch) >= 0
}

// DeleteHandler deletes the object and redirects to its schema's page
// GET /object/delete/:id
func (h *ObjectHandlers) DeleteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		obj := middleware.GetObject(c)

		err := h.objectRepo.Delete(c.Request.Context(), obj.ID)
		if errors.Is(err, repositories.ErrNotFound) {
			telemetry.ObjectMutationsTotal.WithLabelValues("delete", "error").Inc()
			middleware.RenderError(c, http.StatusNotFound, msgNotFound)
			return
		}
		if err != nil {
			slog.Error("failed to delete object", "error", err, "object_id", obj.ID)
			telemetry.ObjectMutationsTotal.WithLabelValues("delete", "error").Inc()
			middleware.RenderError(c, http.StatusInternalServerError, "The object could not be deleted.")
			return
		}

		telemetry.ObjectMutationsTotal.WithLabelValues("delete", "success").Inc()
		middleware.Audit(c, "object.delete", resourceType, obj.ID, obj.OrganizationID)
		slog.Info("object deleted", "object_id", obj.ID, "schema_id", obj.SchemaID)

		c.Redirect(http.StatusFound, "/schema/view/"+strconv.FormatInt(obj.SchemaID, 10))
	}
}

// ListHandler lists the objects of the user's organizations; admins see every object
// GET /objects
func (h *ObjectHandlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := middleware.GetPrincipal(c)

		var (
			objects []*models.JSONObject
			err     error
		)
		if principal.HasAdminScope() {
			objects, err = h.objectRepo.ListAll(c.Request.Context())
		} else {
			objects, err = h.objectRepo.ListByOrganizations(c.Request.Context(), principal.OrganizationIDs())
		}
		if err != nil {
			slog.Error("failed to list objects", "error", err, "user_id", principal.ID)
			middleware.RenderError(c, http.StatusInternalServerError, "Failed to list objects.")
			return
		}

		c.HTML(http.StatusOK, templateObjects, middleware.PageData(c, "Objects", gin.H{
			"Objects": objects,
		}))
	}
}
