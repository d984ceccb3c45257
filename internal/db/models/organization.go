// Package models - organization.go defines the Organization model representing a tenant
// that owns schemas and JSON objects.
package models

import "time"

// Organization represents a tenant in the registry
type Organization struct {
	ID          int64
	Name        string // URL-safe name
	DisplayName string // Human-readable display name
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Label returns the display name, falling back to the URL-safe name
func (o *Organization) Label() string {
	if o.DisplayName != "" {
		return o.DisplayName
	}
	return o.Name
}
