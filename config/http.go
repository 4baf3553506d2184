package config

import (
	"strings"
	"time"
)

// HTTPConfig contains HTTP server, cookie and interception configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// Env is the deployment environment. "production" enables secure cookies and HSTS.
	Env string `env:"APP_ENV" envDefault:"development"`

	// CookieDomain is the domain for session cookies.
	// Leave empty to use the request host.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// CookieSecure forces the Secure attribute outside production (e.g. TLS-terminated staging).
	CookieSecure bool `env:"APP_COOKIE_SECURE" envDefault:"false"`

	LoginPath   string `env:"APP_LOGIN_PATH"   envDefault:"/login"`
	LandingPath string `env:"APP_LANDING_PATH" envDefault:"/admin"`

	// ProtectedPaths and PublicPaths override the interception globs; a trailing /* matches any depth.
	ProtectedPaths []string `env:"APP_PROTECTED_PATHS" envSeparator:","`
	PublicPaths    []string `env:"APP_PUBLIC_PATHS"    envSeparator:","`

	// TrustProxyHeaders uses X-Forwarded-For / X-Real-IP for the client address.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	// APIRateLimitPerMinute caps /api requests per client IP. Zero disables it.
	APIRateLimitPerMinute int `env:"API_RATE_LIMIT_PER_MINUTE" envDefault:"120"`

	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"     envDefault:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT"    envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// IsProduction reports whether APP_ENV names production.
func (h *HTTPConfig) IsProduction() bool {
	return h.Env == "production" || h.Env == "prod"
}

// SecureCookies reports whether cookies must carry the Secure attribute.
func (h *HTTPConfig) SecureCookies() bool {
	return h.IsProduction() || h.CookieSecure
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.Env = strings.ToLower(strings.TrimSpace(h.Env))
	if h.LoginPath == "" {
		h.LoginPath = "/login"
	}
	if h.LandingPath == "" {
		h.LandingPath = "/admin"
	}
	h.ProtectedPaths = trimEmpty(h.ProtectedPaths)
	h.PublicPaths = trimEmpty(h.PublicPaths)
	if h.APIRateLimitPerMinute < 0 {
		h.APIRateLimitPerMinute = 0
	}
	if h.ReadTimeout <= 0 {
		h.ReadTimeout = 15 * time.Second
	}
	if h.WriteTimeout <= 0 {
		h.WriteTimeout = 30 * time.Second
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 15 * time.Second
	}
}

func trimEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
