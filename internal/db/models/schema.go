// Package models - schema.go defines the Schema model: a named JSON Schema document that
// JSON objects are validated against.
package models

import (
	"encoding/json"
	"time"
)

// Schema is a named JSON Schema definition
type Schema struct {
	ID             int64           `db:"id"`
	Name           string          `db:"name"`
	Description    string          `db:"description"`
	Definition     json.RawMessage `db:"definition"`
	OrganizationID *int64          `db:"organization_id"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}
