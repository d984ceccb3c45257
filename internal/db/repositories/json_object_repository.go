// json_object_repository.go implements JSONObjectRepository, providing the CRUD queries
// for stored JSON objects.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/object-registry/object-registry/internal/db/models"
)

// JSONObjectRepository handles database operations for JSON objects
type JSONObjectRepository struct {
	db *sqlx.DB
}

// NewJSONObjectRepository creates a new JSON object repository
func NewJSONObjectRepository(db *sqlx.DB) *JSONObjectRepository {
	return &JSONObjectRepository{db: db}
}

const jsonObjectColumns = `id, name, description, schema_id, organization_id, json_object, creator_id, created_at, updated_at`

const jsonObjectListQuery = `
	SELECT o.id, o.name, o.description, o.schema_id, o.organization_id, o.json_object,
	       o.creator_id, o.created_at, o.updated_at,
	       COALESCE(s.name, '') AS schema_name, COALESCE(org.name, '') AS organization_name
	FROM json_objects o
	LEFT JOIN schemas s ON o.schema_id = s.id
	LEFT JOIN organizations org ON o.organization_id = org.id
`

// GetByID retrieves an object by ID, returning nil when it does not exist
func (r *JSONObjectRepository) GetByID(ctx context.Context, id int64) (*models.JSONObject, error) {
	query := `SELECT ` + jsonObjectColumns + ` FROM json_objects WHERE id = $1`

	var obj models.JSONObject
	err := r.db.GetContext(ctx, &obj, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return &obj, nil
}

// Create inserts an object and sets its generated ID and timestamps.
// A name collision returns ErrDuplicateName.
func (r *JSONObjectRepository) Create(ctx context.Context, obj *models.JSONObject) error {
	query := `
		INSERT INTO json_objects (name, description, schema_id, organization_id, json_object, creator_id)
		VALUES (:name, :description, :schema_id, :organization_id, :json_object, :creator_id)
		RETURNING id, created_at, updated_at
	`

	rows, err := r.db.NamedQueryContext(ctx, query, obj)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("failed to create object: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateName
			}
			return fmt.Errorf("failed to create object: %w", err)
		}
		return fmt.Errorf("failed to create object: no id returned")
	}
	if err := rows.Scan(&obj.ID, &obj.CreatedAt, &obj.UpdatedAt); err != nil {
		return fmt.Errorf("failed to read object id: %w", err)
	}
	return nil
}

// Update writes the mutable fields of an object. The schema binding is never changed.
// A name collision returns ErrDuplicateName; a missing row returns ErrNotFound.
func (r *JSONObjectRepository) Update(ctx context.Context, obj *models.JSONObject) error {
	query := `
		UPDATE json_objects
		SET name = $2, description = $3, organization_id = $4, json_object = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		obj.ID,
		obj.Name,
		obj.Description,
		obj.OrganizationID,
		[]byte(obj.Document),
	).Scan(&obj.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("failed to update object: %w", err)
	}
	return nil
}

// Delete removes an object by ID. A missing row returns ErrNotFound.
func (r *JSONObjectRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM json_objects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBySchema returns every object bound to the given schema, ordered by name
func (r *JSONObjectRepository) ListBySchema(ctx context.Context, schemaID int64) ([]*models.JSONObject, error) {
	query := jsonObjectListQuery + ` WHERE o.schema_id = $1 ORDER BY o.name`

	objects := make([]*models.JSONObject, 0)
	if err := r.db.SelectContext(ctx, &objects, query, schemaID); err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	return objects, nil
}

// ListByOrganizations returns the objects owned by any of the given organizations, ordered by name
func (r *JSONObjectRepository) ListByOrganizations(ctx context.Context, orgIDs []int64) ([]*models.JSONObject, error) {
	objects := make([]*models.JSONObject, 0)
	if len(orgIDs) == 0 {
		return objects, nil
	}

	query := jsonObjectListQuery + ` WHERE o.organization_id = ANY($1) ORDER BY o.name`
	if err := r.db.SelectContext(ctx, &objects, query, pq.Array(orgIDs)); err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	return objects, nil
}

// ListAll returns every object, ordered by name
func (r *JSONObjectRepository) ListAll(ctx context.Context) ([]*models.JSONObject, error) {
	query := jsonObjectListQuery + ` ORDER BY o.name`

	objects := make([]*models.JSONObject, 0)
	if err := r.db.SelectContext(ctx, &objects, query); err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	return objects, nil
}
