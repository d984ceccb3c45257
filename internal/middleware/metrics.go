// Package middleware provides the Gin middleware of the object registry: request ids,
// metrics, request logging, security headers, rate limiting, session loading,
// object permission guards and audit logging.
//
// Registration order is fixed in internal/api/router.go:
//
//	Recovery → RequestID → Metrics → Logger → SecurityHeaders → Principal → Audit → RateLimit → route guards
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/object-registry/object-registry/internal/telemetry"
)

// MetricsMiddleware records http_requests_total and http_request_duration_seconds
// for every request.
//
// The path label is the matched route template (e.g. /object/view/:id) so that
// object ids do not inflate label cardinality. Unmatched requests use "<no-route>".
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "<no-route>"
		}

		duration := time.Since(start).Seconds()
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}
