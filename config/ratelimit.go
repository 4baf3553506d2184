package config

import (
	"fmt"
	"strings"
	"time"
)

// RateLimitBackend selects the login limiter implementation.
type RateLimitBackend string

const (
	RateLimitBackendMemory RateLimitBackend = "memory"
	RateLimitBackendRedis  RateLimitBackend = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for RateLimitBackend.
func (b *RateLimitBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "memory", "redis":
		*b = RateLimitBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid RateLimitBackend: %q (valid options: memory, redis)", v)
	}
}

// RateLimitKey selects what a failed login is counted against.
type RateLimitKey string

const (
	RateLimitKeyIP    RateLimitKey = "ip"
	RateLimitKeyEmail RateLimitKey = "email"
)

// UnmarshalText implements encoding.TextUnmarshaler for RateLimitKey.
func (k *RateLimitKey) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "ip", "email":
		*k = RateLimitKey(v)
		return nil
	default:
		return fmt.Errorf("invalid RateLimitKey: %q (valid options: ip, email)", v)
	}
}

// RateLimitConfig controls failed-login limiting.
type RateLimitConfig struct {
	Backend     RateLimitBackend `env:"LOGIN_RATE_LIMIT_BACKEND"      envDefault:"memory"`
	MaxAttempts int              `env:"LOGIN_RATE_LIMIT_MAX_ATTEMPTS" envDefault:"5"`
	Window      time.Duration    `env:"LOGIN_RATE_LIMIT_WINDOW"       envDefault:"15m"`
	Key         RateLimitKey     `env:"LOGIN_RATE_LIMIT_KEY"          envDefault:"ip"`
	// SweepInterval controls how often the memory backend drops expired windows.
	SweepInterval time.Duration `env:"LOGIN_RATE_LIMIT_SWEEP_INTERVAL" envDefault:"1m"`
}

// Sanitize applies defaults to invalid limiter values.
func (c *RateLimitConfig) Sanitize() {
	if c.Backend == "" {
		c.Backend = RateLimitBackendMemory
	}
	if c.Key == "" {
		c.Key = RateLimitKeyIP
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.Window <= 0 {
		c.Window = 15 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
}
