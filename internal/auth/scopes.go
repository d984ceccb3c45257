// Package auth - scopes.go defines the permission scopes carried by role templates
// and the helpers for validating and checking them.
package auth

import (
	"fmt"
)

// Scope represents a permission/scope type
type Scope string

const (
	// Object scopes
	ScopeObjectsRead  Scope = "objects:read"
	ScopeObjectsWrite Scope = "objects:write"

	// Admin scope (wildcard - all permissions)
	ScopeAdmin Scope = "admin"
)

// impliedBy maps a scope to the broader scopes that grant it
var impliedBy = map[Scope][]Scope{
	ScopeObjectsRead: {ScopeObjectsWrite},
}

// AllScopes returns all valid scopes
func AllScopes() []Scope {
	return []Scope{
		ScopeObjectsRead,
		ScopeObjectsWrite,
		ScopeAdmin,
	}
}

// ValidateScopes checks if all provided scopes are valid
func ValidateScopes(scopes []string) error {
	valid := make(map[string]bool)
	for _, scope := range AllScopes() {
		valid[string(scope)] = true
	}

	for _, scope := range scopes {
		if !valid[scope] {
			return fmt.Errorf("invalid scope: %s", scope)
		}
	}

	return nil
}

// HasScope checks if a scope list grants the required scope.
// The admin scope grants everything; write scopes grant the matching read scope.
func HasScope(userScopes []string, required Scope) bool {
	for _, scope := range userScopes {
		if scope == string(required) || scope == string(ScopeAdmin) {
			return true
		}
		for _, broader := range impliedBy[required] {
			if scope == string(broader) {
				return true
			}
		}
	}

	return false
}
