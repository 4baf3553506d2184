package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: credential, identity provider and profile configuration
//   - database.go: Postgres and Redis configuration
//   - http.go: HTTP server, cookie and interception configuration
//   - ratelimit.go: login limiter configuration
//   - observability.go: logging and metrics
type AppConfig struct {
	// IsDev controls development mode behavior (text logs, .env loading).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	Auth AuthConfig

	// ProfileStore selects where authorization profiles live: "postgres" or "static".
	ProfileStore ProfileStoreBackend `env:"PROFILE_STORE" envDefault:"postgres"`

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	HTTP HTTPConfig

	RateLimit RateLimitConfig

	Observability ObservabilityConfig
}

// ProfileStoreBackend names an authorization profile store implementation.
type ProfileStoreBackend string

const (
	ProfileStorePostgres ProfileStoreBackend = "postgres"
	ProfileStoreStatic   ProfileStoreBackend = "static"
)

// UnmarshalText implements encoding.TextUnmarshaler for ProfileStoreBackend.
func (b *ProfileStoreBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "postgres", "static":
		*b = ProfileStoreBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid ProfileStore: %q (valid options: postgres, static)", v)
	}
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	// Check NODE_ENV for dev mode
	c.detectDevMode()

	c.Auth.Sanitize()
	c.HTTP.Sanitize()
	c.RateLimit.Sanitize()
	c.Observability.Sanitize(c.IsDev)
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// Validate reports configuration that would make the gate unsafe or unable to start.
func (c *AppConfig) Validate() error {
	var errs []error
	errs = append(errs, c.Auth.Validate(c.HTTP.IsProduction()))
	if c.HTTP.IsProduction() && c.Auth.Mode == AuthModeMock {
		errs = append(errs, errors.New("AUTH_MODE=mock is not allowed when APP_ENV=production"))
	}
	if c.Auth.Mode == AuthModeMock && c.ProfileStore == ProfileStoreStatic && len(c.Auth.StaticProfiles) == 0 {
		errs = append(errs, errors.New("PROFILE_STORE=static requires STATIC_PROFILES"))
	}
	if c.RateLimit.Backend == RateLimitBackendRedis && strings.TrimSpace(c.Redis.URI) == "" {
		errs = append(errs, errors.New("LOGIN_RATE_LIMIT_BACKEND=redis requires a Redis address"))
	}
	return errors.Join(errs...)
}

// NeedsRedis reports whether any component requires a Redis connection.
func (c *AppConfig) NeedsRedis() bool {
	return c.RateLimit.Backend == RateLimitBackendRedis
}

// NeedsPostgres reports whether any component requires a Postgres connection.
func (c *AppConfig) NeedsPostgres() bool {
	return c.ProfileStore == ProfileStorePostgres
}
