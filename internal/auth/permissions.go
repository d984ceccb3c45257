package auth

import (
	"github.com/object-registry/object-registry/internal/db/models"
)

// CanViewObject reports whether the principal may read the object. Admins in any
// organization may read everything; everyone else needs objects:read (or objects:write)
// in the organization that owns the object. A nil principal may read nothing.
func CanViewObject(principal *models.UserWithOrgRoles, obj *models.JSONObject) bool {
	return canAccess(principal, obj, ScopeObjectsRead)
}

// CanEditObject reports whether the principal may modify or delete the object
func CanEditObject(principal *models.UserWithOrgRoles, obj *models.JSONObject) bool {
	return canAccess(principal, obj, ScopeObjectsWrite)
}

// CanUseOrganization reports whether the principal may place objects in the organization.
// The principal must belong to it and hold objects:write there, or be an admin.
func CanUseOrganization(principal *models.UserWithOrgRoles, orgID int64) bool {
	if principal == nil || !principal.IsMemberOf(orgID) {
		return false
	}
	return principal.HasAdminScope() || HasScope(principal.ScopesIn(orgID), ScopeObjectsWrite)
}

func canAccess(principal *models.UserWithOrgRoles, obj *models.JSONObject, required Scope) bool {
	if principal == nil || obj == nil {
		return false
	}
	if principal.HasAdminScope() {
		return true
	}
	return HasScope(principal.ScopesIn(obj.OrganizationID), required)
}
