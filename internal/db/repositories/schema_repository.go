// schema_repository.go implements SchemaRepository, the read side of the schemas JSON
// objects are validated against.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/object-registry/object-registry/internal/db/models"
)

// SchemaRepository handles database operations for schemas
type SchemaRepository struct {
	db *sqlx.DB
}

// NewSchemaRepository creates a new schema repository
func NewSchemaRepository(db *sqlx.DB) *SchemaRepository {
	return &SchemaRepository{db: db}
}

const schemaColumns = `id, name, description, definition, organization_id, created_at, updated_at`

// GetByID retrieves a schema by ID, returning nil when it does not exist
func (r *SchemaRepository) GetByID(ctx context.Context, id int64) (*models.Schema, error) {
	query := `SELECT ` + schemaColumns + ` FROM schemas WHERE id = $1`

	var s models.Schema
	err := r.db.GetContext(ctx, &s, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %w", err)
	}
	return &s, nil
}

// List returns every schema ordered by name
func (r *SchemaRepository) List(ctx context.Context) ([]*models.Schema, error) {
	query := `SELECT ` + schemaColumns + ` FROM schemas ORDER BY name`

	schemas := make([]*models.Schema, 0)
	if err := r.db.SelectContext(ctx, &schemas, query); err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	return schemas, nil
}

// Create inserts a schema and sets its generated ID and timestamps
func (r *SchemaRepository) Create(ctx context.Context, s *models.Schema) error {
	query := `
		INSERT INTO schemas (name, description, definition, organization_id)
		VALUES (:name, :description, :definition, :organization_id)
		RETURNING id, created_at, updated_at
	`

	rows, err := r.db.NamedQueryContext(ctx, query, s)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("failed to create schema: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return fmt.Errorf("failed to read schema id: %w", err)
		}
	}
	return rows.Err()
}
