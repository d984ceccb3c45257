// Package models - json_object.go defines JSONObject, a named JSON document owned by an
// organization and bound to exactly one schema.
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// JSONObject is a stored JSON document
type JSONObject struct {
	ID             int64           `db:"id"`
	Name           string          `db:"name"`
	Description    string          `db:"description"`
	SchemaID       int64           `db:"schema_id"`
	OrganizationID int64           `db:"organization_id"`
	Document       json.RawMessage `db:"json_object"`
	CreatorID      *int64          `db:"creator_id"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`

	// Populated by listing queries only
	SchemaName       string `db:"schema_name"`
	OrganizationName string `db:"organization_name"`
}

// ExportFilename returns the download filename for the object: its name with every
// space replaced by an underscore, suffixed with .json.
func (o *JSONObject) ExportFilename() string {
	return strings.ReplaceAll(o.Name, " ", "_") + ".json"
}
