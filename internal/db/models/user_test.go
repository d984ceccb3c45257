package models

import (
	"testing"
)

// ---------------------------------------------------------------------------
// UserWithOrgRoles.HasAdminScope
// ---------------------------------------------------------------------------

func TestHasAdminScope(t *testing.T) {
	t.Run("empty memberships returns false", func(t *testing.T) {
		if (&UserWithOrgRoles{}).HasAdminScope() {
			t.Error("HasAdminScope() = true for empty memberships, want false")
		}
	})

	t.Run("admin scope in second membership returns true", func(t *testing.T) {
		u := &UserWithOrgRoles{
			Memberships: []UserMembership{
				{OrganizationID: 1, RoleTemplateScopes: []string{"objects:read"}},
				{OrganizationID: 2, RoleTemplateScopes: []string{"admin"}},
			},
		}
		if !u.HasAdminScope() {
			t.Error("HasAdminScope() = false when admin scope in second membership, want true")
		}
	})

	t.Run("partial match does not count", func(t *testing.T) {
		u := &UserWithOrgRoles{
			Memberships: []UserMembership{{RoleTemplateScopes: []string{"admin:read"}}},
		}
		if u.HasAdminScope() {
			t.Error("HasAdminScope() = true for admin:read, want false")
		}
	})
}

// ---------------------------------------------------------------------------
// Membership lookups
// ---------------------------------------------------------------------------

func TestMembershipLookups(t *testing.T) {
	u := &UserWithOrgRoles{
		Memberships: []UserMembership{
			{OrganizationID: 7, RoleTemplateScopes: []string{"objects:read"}},
			{OrganizationID: 3, RoleTemplateScopes: []string{"objects:read", "objects:write"}},
		},
	}

	if !u.IsMemberOf(3) {
		t.Error("IsMemberOf(3) = false, want true")
	}
	if u.IsMemberOf(0) {
		t.Error("IsMemberOf(0) = true, want false")
	}

	if got := u.ScopesIn(3); len(got) != 2 {
		t.Errorf("ScopesIn(3) = %v, want 2 scopes", got)
	}
	if got := u.ScopesIn(99); got != nil {
		t.Errorf("ScopesIn(99) = %v, want nil", got)
	}

	ids := u.OrganizationIDs()
	if len(ids) != 2 || ids[0] != 7 || ids[1] != 3 {
		t.Errorf("OrganizationIDs() = %v, want [7 3]", ids)
	}
}

// ---------------------------------------------------------------------------
// JSONObject.ExportFilename
// ---------------------------------------------------------------------------

func TestExportFilename(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"config", "config.json"},
		{"my config", "my_config.json"},
		{"a  b c", "a__b_c.json"},
		{" padded ", "_padded_.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &JSONObject{Name: tt.name}
			if got := o.ExportFilename(); got != tt.want {
				t.Errorf("ExportFilename() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Role templates
// ---------------------------------------------------------------------------

func TestFindPredefinedRoleTemplate(t *testing.T) {
	editor, ok := FindPredefinedRoleTemplate("editor")
	if !ok {
		t.Fatal("FindPredefinedRoleTemplate(editor) not found")
	}
	if len(editor.Scopes) != 2 || editor.Scopes[1] != "objects:write" {
		t.Errorf("editor scopes = %v", editor.Scopes)
	}
	if _, ok := FindPredefinedRoleTemplate("publisher"); ok {
		t.Error("FindPredefinedRoleTemplate(publisher) found, want missing")
	}
}

func TestOrganizationLabel(t *testing.T) {
	if got := (&Organization{Name: "acme", DisplayName: "Acme Inc"}).Label(); got != "Acme Inc" {
		t.Errorf("Label() = %q, want Acme Inc", got)
	}
	if got := (&Organization{Name: "acme"}).Label(); got != "acme" {
		t.Errorf("Label() = %q, want acme", got)
	}
}
