// session.go loads the acting principal from the session cookie (or a Bearer token)
// and guards pages that require a logged-in user.
package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/object-registry/object-registry/internal/auth"
	"github.com/object-registry/object-registry/internal/config"
	"github.com/object-registry/object-registry/internal/db/models"
	"github.com/object-registry/object-registry/internal/db/repositories"
)

// Context keys set by PrincipalMiddleware
const (
	PrincipalKey  = "principal"
	UserKey       = "user"
	UserIDKey     = "user_id"
	AuthMethodKey = "auth_method"
)

// PrincipalMiddleware resolves the session token into a principal. Requests
// without a valid token continue anonymously; guards decide what that means.
func PrincipalMiddleware(cfg *config.Config, userRepo *repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, method := sessionToken(c, cfg.Auth.CookieName)
		if token == "" {
			c.Next()
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			slog.Debug("ignoring invalid session token", "error", err, "auth_method", method)
			c.Next()
			return
		}

		principal, err := userRepo.GetUserWithOrgRoles(c.Request.Context(), claims.UserID)
		if err != nil {
			slog.Error("failed to load session user", "error", err, "user_id", claims.UserID)
			RenderError(c, http.StatusInternalServerError, "Failed to load the current user.")
			return
		}
		if principal == nil {
			// User deleted after the token was issued
			c.Next()
			return
		}

		c.Set(PrincipalKey, principal)
		c.Set(UserKey, &principal.User)
		c.Set(UserIDKey, principal.ID)
		c.Set(AuthMethodKey, method)

		c.Next()
	}
}

// sessionToken returns the token from the Authorization header or the session cookie
func sessionToken(c *gin.Context, cookieName string) (string, string) {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		if token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")); token != "" {
			return token, "bearer"
		}
	}
	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		return cookie, "cookie"
	}
	return "", ""
}

// GetPrincipal returns the logged-in principal, or nil for anonymous requests
func GetPrincipal(c *gin.Context) *models.UserWithOrgRoles {
	v, exists := c.Get(PrincipalKey)
	if !exists {
		return nil
	}
	principal, _ := v.(*models.UserWithOrgRoles)
	return principal
}

// GetUserID returns the logged-in user's id
func GetUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// RequireLogin redirects anonymous requests to the login page
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetPrincipal(c) == nil {
			redirectToLogin(c)
			return
		}
		c.Next()
	}
}

// LoginURL returns the login page URL that returns to next after logging in
func LoginURL(next string) string {
	if next == "" {
		return "/login"
	}
	return "/login?next=" + url.QueryEscape(next)
}

func redirectToLogin(c *gin.Context) {
	c.Redirect(http.StatusFound, LoginURL(c.Request.URL.RequestURI()))
	c.Abort()
}
