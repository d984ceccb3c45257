// audit.go records object mutations and session events in the audit log. Handlers
// describe what happened by setting audit context keys; the middleware writes the
// entry after the handler returns without delaying the response.
package middleware

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/object-registry/object-registry/internal/db/models"
	"github.com/object-registry/object-registry/internal/safego"
)

// Context keys read by AuditMiddleware
const (
	AuditActionKey         = "audit_action"
	AuditResourceTypeKey   = "audit_resource_type"
	AuditResourceIDKey     = "audit_resource_id"
	AuditOrganizationIDKey = "audit_organization_id"
	AuditMetadataKey       = "audit_metadata"
)

const auditWriteTimeout = 5 * time.Second

// AuditWriter persists audit log entries
type AuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Audit records an audited action on the request for AuditMiddleware to write
func Audit(c *gin.Context, action, resourceType string, resourceID, organizationID int64) {
	c.Set(AuditActionKey, action)
	c.Set(AuditResourceTypeKey, resourceType)
	if resourceID != 0 {
		c.Set(AuditResourceIDKey, resourceID)
	}
	if organizationID != 0 {
		c.Set(AuditOrganizationIDKey, organizationID)
	}
}

// AuditMiddleware writes an audit entry for every request whose handler called Audit
func AuditMiddleware(writer AuditWriter, enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if !enabled || writer == nil {
			return
		}
		action := c.GetString(AuditActionKey)
		if action == "" {
			return
		}

		entry := buildAuditLog(c, action)
		requestID := GetRequestID(c)

		safego.Go("audit-write", func() {
			ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
			defer cancel()

			if err := writer.CreateAuditLog(ctx, entry); err != nil {
				slog.Error("failed to write audit log",
					"error", err,
					"action", entry.Action,
					"request_id", requestID,
				)
			}
		})
	}
}

func buildAuditLog(c *gin.Context, action string) *models.AuditLog {
	ip := c.ClientIP()
	entry := &models.AuditLog{
		Action:    action,
		IPAddress: &ip,
	}

	if userID, ok := GetUserID(c); ok {
		entry.UserID = &userID
	}
	if v, ok := c.Get(AuditOrganizationIDKey); ok {
		if orgID, ok := v.(int64); ok {
			entry.OrganizationID = &orgID
		}
	}
	if resourceType := c.GetString(AuditResourceTypeKey); resourceType != "" {
		entry.ResourceType = &resourceType
	}
	if v, ok := c.Get(AuditResourceIDKey); ok {
		if id, ok := v.(int64); ok {
			resourceID := strconv.FormatInt(id, 10)
			entry.ResourceID = &resourceID
		}
	}

	metadata := map[string]interface{}{
		"status_code": c.Writer.Status(),
	}
	if method := c.GetString(AuthMethodKey); method != "" {
		metadata["auth_method"] = method
	}
	if extra, ok := c.Get(AuditMetadataKey); ok {
		if m, ok := extra.(map[string]interface{}); ok {
			for k, v := range m {
				metadata[k] = v
			}
		}
	}
	entry.Metadata = metadata

	return entry
}
