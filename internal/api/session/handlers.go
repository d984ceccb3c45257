// Package session implements the email and password login that issues the signed
// session cookie read by middleware.PrincipalMiddleware.
package session

import (
	"database/sql"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/object-registry/object-registry/internal/auth"
	"github.com/object-registry/object-registry/internal/config"
	"github.com/object-registry/object-registry/internal/db/repositories"
	"github.com/object-registry/object-registry/internal/middleware"
	"github.com/object-registry/object-registry/internal/telemetry"
)

// DefaultRedirect is where users land after logging in without a next page
const DefaultRedirect = "/objects"

const msgInvalidLogin = "Invalid email or password."

// SessionHandlers handles login and logout
type SessionHandlers struct {
	cfg      *config.Config
	userRepo *repositories.UserRepository
}

// NewSessionHandlers creates a new SessionHandlers instance
func NewSessionHandlers(cfg *config.Config, db *sql.DB) *SessionHandlers {
	return &SessionHandlers{
		cfg:      cfg,
		userRepo: repositories.NewUserRepository(db),
	}
}

// RegisterRoutes mounts the session endpoints. limit guards the login POST.
func (h *SessionHandlers) RegisterRoutes(r gin.IRoutes, limit ...gin.HandlerFunc) {
	r.GET("/login", h.LoginPageHandler())
	r.POST("/login", append(limit, h.LoginHandler())...)
	r.POST("/logout", h.LogoutHandler())
}

// LoginPageHandler renders the login form
// GET /login?next=/object/view/5
func (h *SessionHandlers) LoginPageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		next := SafeRedirect(c.Query("next"))
		if middleware.GetPrincipal(c) != nil {
			c.Redirect(http.StatusFound, next)
			return
		}
		renderLogin(c, http.StatusOK, "", next, "")
	}
}

// LoginHandler checks the credentials and sets the session cookie
// POST /login
func (h *SessionHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := strings.ToLower(strings.TrimSpace(c.PostForm("email")))
		password := c.PostForm("password")
		next := SafeRedirect(c.PostForm("next"))

		if email == "" || password == "" {
			telemetry.LoginAttemptsTotal.WithLabelValues("failure").Inc()
			renderLogin(c, http.StatusUnauthorized, email, next, msgInvalidLogin)
			return
		}

		user, err := h.userRepo.GetUserByEmail(c.Request.Context(), email)
		if err != nil {
			slog.Error("failed to load user for login", "error", err)
			middleware.RenderError(c, http.StatusInternalServerError, "Login is temporarily unavailable.")
			return
		}
		if user == nil || auth.CheckPassword(user.PasswordHash, password) != nil {
			telemetry.LoginAttemptsTotal.WithLabelValues("failure").Inc()
			slog.Info("login failed", "email", email, "ip", c.ClientIP())
			renderLogin(c, http.StatusUnauthorized, email, next, msgInvalidLogin)
			return
		}

		token, err := auth.GenerateJWT(user.ID, user.Email, h.cfg.Auth.SessionTTL)
		if err != nil {
			slog.Error("failed to issue session token", "error", err, "user_id", user.ID)
			middleware.RenderError(c, http.StatusInternalServerError, "Login is temporarily unavailable.")
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(h.cfg.Auth.CookieName, token, int(h.cfg.Auth.SessionTTL.Seconds()), "/", "", h.cfg.Auth.SecureCookie, true)

		telemetry.LoginAttemptsTotal.WithLabelValues("success").Inc()
		c.Set(middleware.UserIDKey, user.ID)
		middleware.Audit(c, "session.login", "session", 0, 0)
		slog.Info("user logged in", "user_id", user.ID)

		c.Redirect(http.StatusFound, next)
	}
}

// LogoutHandler clears the session cookie
// POST /logout
func (h *SessionHandlers) LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(h.cfg.Auth.CookieName, "", -1, "/", "", h.cfg.Auth.SecureCookie, true)

		if middleware.GetPrincipal(c) != nil {
			middleware.Audit(c, "session.logout", "session", 0, 0)
		}
		c.Redirect(http.StatusFound, "/login")
	}
}

func renderLogin(c *gin.Context, status int, email, next, errMsg string) {
	c.HTML(status, "login.html", middleware.PageData(c, "Log in", gin.H{
		"Email": email,
		"Next":  next,
		"Error": errMsg,
	}))
}

// SafeRedirect returns next when it is a local path, DefaultRedirect otherwise
func SafeRedirect(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, `/\`) {
		return DefaultRedirect
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return DefaultRedirect
	}
	return next
}
