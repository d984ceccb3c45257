// Package models - organization_member.go defines the per-organization role template
// scopes a user carries through membership.
package models

import "time"

// UserMembership includes organization details for a user's membership
type UserMembership struct {
	OrganizationID     int64     `json:"organization_id"`
	OrganizationName   string    `json:"organization_name"`
	RoleTemplateName   *string   `json:"role_template_name"`
	RoleTemplateScopes []string  `json:"role_template_scopes"`
	CreatedAt          time.Time `json:"created_at"`
}
