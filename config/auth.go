package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const minJWTSecretBytes = 32

// AuthMode represents the identity provider the gate talks to.
type AuthMode string

const (
	// AuthModeOIDC uses an OIDC provider's token and userinfo endpoints.
	AuthModeOIDC AuthMode = "oidc"
	// AuthModeMock uses locally configured users (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oidc", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oidc, mock)", v)
	}
}

// OIDCConfig contains the upstream identity provider client configuration.
type OIDCConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email offline_access"`
	// DiscoveryURL is the issuer URL or its /.well-known/openid-configuration document.
	DiscoveryURL string `env:"DISCOVERY_URL"`
}

// DevAuthConfig lists local accounts for AUTH_MODE=mock.
// Each entry is "id:email:bcrypt-hash"; use `admingate-admin hash-password` to produce hashes.
type DevAuthConfig struct {
	Users []string `env:"USERS" envSeparator:";"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which identity provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oidc"`

	OIDC    OIDCConfig    `envPrefix:"OIDC_"`
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// JWTSecret signs the self-issued token. At least 32 bytes.
	JWTSecret string `env:"AUTH_JWT_SECRET"`
	// JWTIssuer is set as and required in the iss claim when non-empty.
	JWTIssuer string        `env:"AUTH_JWT_ISSUER" envDefault:"admingate"`
	TokenTTL  time.Duration `env:"AUTH_TOKEN_TTL"  envDefault:"24h"`
	// LegacyTokenEnabled mints the self-issued token at login and accepts it when no upstream cookie is present.
	LegacyTokenEnabled bool `env:"AUTH_LEGACY_TOKEN_ENABLED" envDefault:"true"`

	UpstreamTimeout      time.Duration `env:"AUTH_UPSTREAM_TIMEOUT"       envDefault:"5s"`
	ProfileLookupTimeout time.Duration `env:"AUTH_PROFILE_LOOKUP_TIMEOUT" envDefault:"3s"`
	RefreshTokenTTL      time.Duration `env:"AUTH_REFRESH_TOKEN_TTL"      envDefault:"168h"`
	LastLoginTimeout     time.Duration `env:"AUTH_LAST_LOGIN_TIMEOUT"     envDefault:"5s"`

	// StaticProfiles seeds the static profile store: "user_id:email:name:role:active" entries.
	StaticProfiles []string `env:"STATIC_PROFILES" envSeparator:";"`
}

// Sanitize applies defaults to zero or negative durations.
func (a *AuthConfig) Sanitize() {
	a.JWTSecret = strings.TrimSpace(a.JWTSecret)
	a.OIDC.DiscoveryURL = strings.TrimSpace(a.OIDC.DiscoveryURL)
	if a.TokenTTL <= 0 {
		a.TokenTTL = 24 * time.Hour
	}
	if a.UpstreamTimeout <= 0 {
		a.UpstreamTimeout = 5 * time.Second
	}
	if a.ProfileLookupTimeout <= 0 {
		a.ProfileLookupTimeout = 3 * time.Second
	}
	if a.RefreshTokenTTL <= 0 {
		a.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if a.LastLoginTimeout <= 0 {
		a.LastLoginTimeout = 5 * time.Second
	}
}

// Validate checks that the selected mode has what it needs.
func (a *AuthConfig) Validate(production bool) error {
	var errs []error
	if a.LegacyTokenEnabled && len(a.JWTSecret) < minJWTSecretBytes {
		errs = append(errs, fmt.Errorf("AUTH_JWT_SECRET must be at least %d bytes", minJWTSecretBytes))
	}
	switch a.Mode {
	case AuthModeOIDC:
		if a.OIDC.ClientID == "" || a.OIDC.DiscoveryURL == "" {
			errs = append(errs, errors.New("AUTH_MODE=oidc requires OIDC_CLIENT_ID and OIDC_DISCOVERY_URL"))
		}
		if production && a.OIDC.ClientSecret == "" {
			errs = append(errs, errors.New("OIDC_CLIENT_SECRET is required in production"))
		}
	case AuthModeMock:
		if len(a.DevAuth.Users) == 0 {
			errs = append(errs, errors.New("AUTH_MODE=mock requires DEV_AUTH_USERS"))
		}
	}
	return errors.Join(errs...)
}
