package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/object-registry/object-registry/internal/config"
)

// applySecurityHeaders runs a GET / through SecurityHeadersMiddleware and returns
// the response recorder so callers can inspect headers.
func applySecurityHeaders(cfg SecurityHeadersConfig) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(SecurityHeadersMiddleware(cfg))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestDefaultSecurityHeadersConfig(t *testing.T) {
	cfg := DefaultSecurityHeadersConfig()

	if !cfg.EnableHSTS {
		t.Error("EnableHSTS = false, want true")
	}
	if cfg.HSTSMaxAge != 31536000 {
		t.Errorf("HSTSMaxAge = %d, want 31536000", cfg.HSTSMaxAge)
	}
	if cfg.FrameOptionsValue != "DENY" {
		t.Errorf("FrameOptionsValue = %q, want DENY", cfg.FrameOptionsValue)
	}
	if !strings.Contains(cfg.ContentSecurityPolicy, "script-src 'none'") {
		t.Errorf("CSP = %q, want scripts disabled", cfg.ContentSecurityPolicy)
	}
}

func TestSecurityHeadersConfigFor(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *config.Config
		wantHSTS bool
	}{
		{"nil config", nil, false},
		{"plain http", &config.Config{}, false},
		{"tls", &config.Config{Security: config.SecurityConfig{TLS: config.TLSConfig{Enabled: true}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SecurityHeadersConfigFor(tt.cfg)
			if got.EnableHSTS != tt.wantHSTS {
				t.Errorf("EnableHSTS = %v, want %v", got.EnableHSTS, tt.wantHSTS)
			}
		})
	}
}

func TestSecurityHeadersMiddleware_HSTS(t *testing.T) {
	tests := []struct {
		name string
		cfg  SecurityHeadersConfig
		want string
	}{
		{
			name: "disabled",
			cfg:  SecurityHeadersConfig{EnableHSTS: false},
			want: "",
		},
		{
			name: "max-age only",
			cfg:  SecurityHeadersConfig{EnableHSTS: true, HSTSMaxAge: 3600},
			want: "max-age=3600",
		},
		{
			name: "include subdomains",
			cfg:  SecurityHeadersConfig{EnableHSTS: true, HSTSMaxAge: 31536000, HSTSIncludeSubdomains: true},
			want: "max-age=31536000; includeSubDomains",
		},
		{
			name: "zero max-age",
			cfg:  SecurityHeadersConfig{EnableHSTS: true},
			want: "max-age=0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := applySecurityHeaders(tt.cfg)
			if got := w.Header().Get("Strict-Transport-Security"); got != tt.want {
				t.Errorf("Strict-Transport-Security = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSecurityHeadersMiddleware_FrameOptions(t *testing.T) {
	w := applySecurityHeaders(SecurityHeadersConfig{EnableFrameOptions: true, FrameOptionsValue: "SAMEORIGIN"})
	if got := w.Header().Get("X-Frame-Options"); got != "SAMEORIGIN" {
		t.Errorf("X-Frame-Options = %q, want SAMEORIGIN", got)
	}

	w = applySecurityHeaders(SecurityHeadersConfig{EnableFrameOptions: true})
	if got := w.Header().Get("X-Frame-Options"); got != "" {
		t.Errorf("X-Frame-Options = %q, want empty when value unset", got)
	}
}

func TestSecurityHeadersMiddleware_DefaultHeaders(t *testing.T) {
	w := applySecurityHeaders(DefaultSecurityHeadersConfig())

	want := map[string]string{
		"X-Content-Type-Options":            "nosniff",
		"Referrer-Policy":                   "same-origin",
		"X-Permitted-Cross-Domain-Policies": "none",
		"Cross-Origin-Opener-Policy":        "same-origin",
		"Cross-Origin-Resource-Policy":      "same-origin",
	}
	for header, value := range want {
		if got := w.Header().Get(header); got != value {
			t.Errorf("%s = %q, want %q", header, got, value)
		}
	}
	if w.Header().Get("Content-Security-Policy") == "" {
		t.Error("Content-Security-Policy not set")
	}
}
