// Package models - user.go defines the User model for registry accounts along with the
// principal view that aggregates a user's per-organization role scopes.
package models

import "time"

// User represents a user in the system
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash *string // bcrypt hash; nil for accounts that cannot log in
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserWithOrgRoles represents a user with their per-organization role template information
type UserWithOrgRoles struct {
	User
	Memberships []UserMembership
}

// HasAdminScope returns true if any organization membership has the admin scope
func (u *UserWithOrgRoles) HasAdminScope() bool {
	for _, m := range u.Memberships {
		for _, scope := range m.RoleTemplateScopes {
			if scope == "admin" {
				return true
			}
		}
	}
	return false
}

// ScopesIn returns the scopes the user holds in the given organization, or nil when
// the user is not a member.
func (u *UserWithOrgRoles) ScopesIn(orgID int64) []string {
	for _, m := range u.Memberships {
		if m.OrganizationID == orgID {
			return m.RoleTemplateScopes
		}
	}
	return nil
}

// IsMemberOf reports whether the user belongs to the given organization
func (u *UserWithOrgRoles) IsMemberOf(orgID int64) bool {
	for _, m := range u.Memberships {
		if m.OrganizationID == orgID {
			return true
		}
	}
	return false
}

// OrganizationIDs returns the ids of every organization the user belongs to, in membership order
func (u *UserWithOrgRoles) OrganizationIDs() []int64 {
	ids := make([]int64, 0, len(u.Memberships))
	for _, m := range u.Memberships {
		ids = append(ids, m.OrganizationID)
	}
	return ids
}
