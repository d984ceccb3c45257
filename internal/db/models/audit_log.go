// Package models - audit_log.go defines the AuditLog model for recording object mutations
// and session events, capturing actor, action, affected resource, client IP, and metadata.
package models

import "time"

// AuditLog represents an audit log entry for tracking user actions
type AuditLog struct {
	ID             string
	UserID         *int64 // Nullable for anonymous actions
	OrganizationID *int64
	Action         string                 // "object.create", "object.delete", "session.login"
	ResourceType   *string                // "json_object", "session"
	ResourceID     *string                // id of affected resource
	Metadata       map[string]interface{} // JSONB: additional context
	IPAddress      *string
	CreatedAt      time.Time
}
