// Package api wires together all HTTP routes for the object registry.
//
// Route grouping:
//   - Probe routes (/health, /ready, /version) are registered before the session
//     middleware so that they never touch the users table.
//   - Object, schema and session pages share the principal loader and the audit
//     writer. Per-route guards (login, view and edit permission) are attached by
//     each handler package in RegisterRoutes.
package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/object-registry/object-registry/internal/api/objects"
	"github.com/object-registry/object-registry/internal/api/schemas"
	"github.com/object-registry/object-registry/internal/api/session"
	"github.com/object-registry/object-registry/internal/config"
	"github.com/object-registry/object-registry/internal/db/repositories"
	"github.com/object-registry/object-registry/internal/middleware"
	"github.com/object-registry/object-registry/internal/web"
)

// Version is reported by /version. cmd/server overrides it at startup.
var Version = "dev"

// BackgroundServices holds references to background goroutines that must be
// stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() after the HTTP server has drained.
type BackgroundServices struct {
	rateLimiters []*middleware.RateLimiter
}

// Shutdown stops all background goroutines
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sql.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()
	router.SetHTMLTemplate(web.MustTemplates())

	userRepo := repositories.NewUserRepository(db)
	auditRepo := repositories.NewAuditRepository(db)

	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware(middleware.SecurityHeadersConfigFor(cfg)))

	router.GET("/health", healthCheckHandler(db))
	router.GET("/ready", readinessHandler(db))
	router.GET("/version", versionHandler())
	router.StaticFS("/static", web.Static())

	router.Use(middleware.PrincipalMiddleware(cfg, userRepo))
	router.Use(middleware.AuditMiddleware(auditRepo, cfg.Audit.Enabled))

	bg := &BackgroundServices{}
	var loginLimit []gin.HandlerFunc
	if cfg.Security.RateLimiting.Enabled {
		pageLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig(cfg.Security.RateLimiting))
		loginLimiter := middleware.NewRateLimiter(middleware.LoginRateLimitConfig())
		bg.rateLimiters = append(bg.rateLimiters, pageLimiter, loginLimiter)

		router.Use(middleware.RateLimitMiddleware(pageLimiter))
		loginLimit = append(loginLimit, middleware.RateLimitMiddleware(loginLimiter))
	}

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/schemas")
	})

	session.NewSessionHandlers(cfg, db).RegisterRoutes(router, loginLimit...)
	objects.NewObjectHandlers(db).RegisterRoutes(router)
	schemas.NewSchemaHandlers(db).RegisterRoutes(router)

	router.NoRoute(func(c *gin.Context) {
		middleware.RenderError(c, http.StatusNotFound, "Page not found.")
	})

	return router, bg
}

// healthCheckHandler returns the liveness status of the service
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// readinessHandler reports whether the service can take traffic.
// The templates are parsed at startup, so the database is the only dependency to probe.
func readinessHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if err := db.PingContext(c.Request.Context()); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		stats := db.Stats()
		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"pool": gin.H{
				"open":   stats.OpenConnections,
				"in_use": stats.InUse,
				"idle":   stats.Idle,
			},
			"time": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// versionHandler returns the build version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version": Version,
		})
	}
}
