// Package schemas implements the read-only schema pages. A schema page lists the
// objects bound to it that the current principal may view; it is where users land
// after deleting an object.
package schemas

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/object-registry/object-registry/internal/auth"
	"github.com/object-registry/object-registry/internal/db/models"
	"github.com/object-registry/object-registry/internal/db/repositories"
	"github.com/object-registry/object-registry/internal/middleware"
	"github.com/object-registry/object-registry/pkg/jsonfmt"
)

// SchemaHandlers handles the schema pages
type SchemaHandlers struct {
	schemaRepo *repositories.SchemaRepository
	objectRepo *repositories.JSONObjectRepository
}

// NewSchemaHandlers creates a new SchemaHandlers instance
func NewSchemaHandlers(db *sql.DB) *SchemaHandlers {
	dbx := sqlx.NewDb(db, "postgres")
	return &SchemaHandlers{
		schemaRepo: repositories.NewSchemaRepository(dbx),
		objectRepo: repositories.NewJSONObjectRepository(dbx),
	}
}

// RegisterRoutes mounts the schema pages
func (h *SchemaHandlers) RegisterRoutes(r gin.IRoutes) {
	r.GET("/schemas", h.ListHandler())
	r.GET("/schema/view/:id", h.ViewHandler())
}

// ListHandler lists every schema
// GET /schemas
func (h *SchemaHandlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		schemas, err := h.schemaRepo.List(c.Request.Context())
		if err != nil {
			slog.Error("failed to list schemas", "error", err)
			middleware.RenderError(c, http.StatusInternalServerError, "Failed to list schemas.")
			return
		}

		c.HTML(http.StatusOK, "schemas.html", middleware.PageData(c, "Schemas", gin.H{
			"Schemas": schemas,
		}))
	}
}

// ViewHandler renders a schema with its definition and visible objects
// GET /schema/view/:id
func (h *SchemaHandlers) ViewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		id, err := middleware.ParseID(c.Param("id"))
		if err != nil {
			middleware.RenderError(c, http.StatusNotFound, "Schema not found.")
			return
		}

		schema, err := h.schemaRepo.GetByID(ctx, id)
		if err != nil {
			slog.Error("failed to load schema", "error", err, "schema_id", id)
			middleware.RenderError(c, http.StatusInternalServerError, "Failed to load the schema.")
			return
		}
		if schema == nil {
			middleware.RenderError(c, http.StatusNotFound, "Schema not found.")
			return
		}

		objects, err := h.objectRepo.ListBySchema(ctx, id)
		if err != nil {
			slog.Error("failed to list schema objects", "error", err, "schema_id", id)
			middleware.RenderError(c, http.StatusInternalServerError, "Failed to list objects.")
			return
		}

		definition := string(schema.Definition)
		if formatted, err := jsonfmt.Format(schema.Definition); err == nil {
			definition = string(formatted)
		}

		c.HTML(http.StatusOK, "schema.html", middleware.PageData(c, schema.Name, gin.H{
			"Schema":     schema,
			"Objects":    visibleObjects(middleware.GetPrincipal(c), objects),
			"Definition": definition,
		}))
	}
}

func visibleObjects(principal *models.UserWithOrgRoles, objects []*models.JSONObject) []*models.JSONObject {
	visible := make([]*models.JSONObject, 0, len(objects))
	for _, obj := range objects {
		if auth.CanViewObject(principal, obj) {
			visible = append(visible, obj)
		}
	}
	return visible
}
