// Package models - role_template.go defines the RoleTemplate model for named permission sets
// along with the system role templates seeded by the migrations.
package models

import "time"

// RoleTemplate represents a predefined set of scopes assigned through organization membership
type RoleTemplate struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Scopes      []string  `db:"scopes" json:"scopes"`
	IsSystem    bool      `db:"is_system" json:"is_system"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// PredefinedRoleTemplates returns the system role templates
func PredefinedRoleTemplates() []RoleTemplate {
	viewerDesc := "Read access to the organization's objects"
	editorDesc := "Create, edit and delete the organization's objects"
	adminDesc := "Full access"

	return []RoleTemplate{
		{
			Name:        "viewer",
			DisplayName: "Viewer",
			Description: &viewerDesc,
			Scopes:      []string{"objects:read"},
			IsSystem:    true,
		},
		{
			Name:        "editor",
			DisplayName: "Editor",
			Description: &editorDesc,
			Scopes:      []string{"objects:read", "objects:write"},
			IsSystem:    true,
		},
		{
			Name:        "admin",
			DisplayName: "Administrator",
			Description: &adminDesc,
			Scopes:      []string{"admin"},
			IsSystem:    true,
		},
	}
}

// FindPredefinedRoleTemplate returns the system role template with the given name
func FindPredefinedRoleTemplate(name string) (RoleTemplate, bool) {
	for _, rt := range PredefinedRoleTemplates() {
		if rt.Name == name {
			return rt, true
		}
	}
	return RoleTemplate{}, false
}
