package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/campus-admin/admingate/config"
	"github.com/campus-admin/admingate/internal/adapters/apptoken"
	"github.com/campus-admin/admingate/internal/adapters/authroles"
	"github.com/campus-admin/admingate/internal/adapters/devauth"
	"github.com/campus-admin/admingate/internal/adapters/oidc"
	"github.com/campus-admin/admingate/internal/adapters/ratelimit"
	redisadapter "github.com/campus-admin/admingate/internal/adapters/redis"
	"github.com/campus-admin/admingate/internal/data"
	"github.com/campus-admin/admingate/internal/observability/metrics"
	"github.com/campus-admin/admingate/internal/ports"
	"github.com/campus-admin/admingate/internal/service"
)

// AuthDeps contains the configuration and connections the auth components are built from.
type AuthDeps struct {
	Config      *config.AppConfig
	DB          *data.DB
	RedisClient redis.UniversalClient
	Metrics     metrics.Recorder
	Logger      *slog.Logger
}

// AuthComponents holds the wired auth stack.
type AuthComponents struct {
	Provider      ports.IdentityProvider
	Profiles      ports.ProfileStore
	Tokens        *apptoken.Manager
	Limiter       ports.LoginLimiter
	Authenticator *service.Authenticator
	Service       *service.AuthService

	// memoryLimiter is set when the limiter needs a sweep loop.
	memoryLimiter *ratelimit.Memory
}

// RunBackground starts maintenance loops until ctx is cancelled.
func (c *AuthComponents) RunBackground(ctx context.Context, cfg config.RateLimitConfig) {
	if c.memoryLimiter != nil {
		c.memoryLimiter.Run(ctx, cfg.SweepInterval)
	}
}

// BuildAuth wires the identity provider, profile store, token manager, limiter and services.
func BuildAuth(ctx context.Context, deps AuthDeps) (*AuthComponents, error) {
	if deps.Config == nil {
		return nil, errors.New("auth config is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	provider, err := buildIdentityProvider(ctx, cfg.Auth, deps.Metrics)
	if err != nil {
		return nil, err
	}
	profiles, err := buildProfileStore(cfg, deps.DB)
	if err != nil {
		return nil, err
	}
	tokens, err := buildTokenManager(cfg.Auth)
	if err != nil {
		return nil, err
	}

	comps := &AuthComponents{Provider: provider, Profiles: profiles, Tokens: tokens}
	if err := comps.buildLimiter(cfg, deps.RedisClient); err != nil {
		return nil, err
	}

	var tokenManager ports.TokenManager
	if tokens != nil {
		tokenManager = tokens
	}

	authorizer := service.NewAuthorizer(service.AuthorizerOptions{
		Profiles: profiles,
		Timeout:  cfg.Auth.ProfileLookupTimeout,
		Logger:   logger,
		Metrics:  deps.Metrics,
	})
	comps.Authenticator = service.NewAuthenticator(service.AuthenticatorOptions{
		Provider:     provider,
		Tokens:       tokenManager,
		Authorizer:   authorizer,
		LegacyTokens: cfg.Auth.LegacyTokenEnabled,
		Logger:       logger,
		Metrics:      deps.Metrics,
	})
	comps.Service = service.NewAuthService(service.AuthServiceOptions{
		Provider:         provider,
		Profiles:         profiles,
		Authorizer:       authorizer,
		Tokens:           tokenManager,
		Limiter:          comps.Limiter,
		LimitKey:         service.LimitKeyStrategy(cfg.RateLimit.Key),
		IssueAppToken:    cfg.Auth.LegacyTokenEnabled,
		LastLoginTimeout: cfg.Auth.LastLoginTimeout,
		Logger:           logger,
		Metrics:          deps.Metrics,
	})

	logger.Info("auth configured",
		"mode", cfg.Auth.Mode,
		"profile_store", cfg.ProfileStore,
		"limiter", cfg.RateLimit.Backend,
		"limit_key", cfg.RateLimit.Key,
		"legacy_token", cfg.Auth.LegacyTokenEnabled,
	)
	return comps, nil
}

//nolint:ireturn // the provider implementation is selected by AUTH_MODE.
func buildIdentityProvider(ctx context.Context, cfg config.AuthConfig, rec metrics.Recorder) (ports.IdentityProvider, error) {
	switch cfg.Mode {
	case config.AuthModeMock:
		users, err := devauth.ParseUsers(cfg.DevAuth.Users)
		if err != nil {
			return nil, fmt.Errorf("parse DEV_AUTH_USERS: %w", err)
		}
		prov, err := devauth.NewProvider(devauth.Config{
			Users:      users,
			RefreshTTL: cfg.RefreshTokenTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("create dev auth provider: %w", err)
		}
		return prov, nil

	case config.AuthModeOIDC:
		prov, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
			ClientID:     cfg.OIDC.ClientID,
			ClientSecret: cfg.OIDC.ClientSecret,
			Scope:        cfg.OIDC.Scope,
			DiscoveryURL: cfg.OIDC.DiscoveryURL,
			Timeout:      cfg.UpstreamTimeout,
			Metrics:      rec,
		})
		if err != nil {
			return nil, fmt.Errorf("create oidc provider: %w", err)
		}
		return prov, nil

	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}

//nolint:ireturn // the profile store is selected by PROFILE_STORE.
func buildProfileStore(cfg *config.AppConfig, db *data.DB) (ports.ProfileStore, error) {
	switch cfg.ProfileStore {
	case config.ProfileStoreStatic:
		profiles, err := authroles.ParseProfiles(cfg.Auth.StaticProfiles)
		if err != nil {
			return nil, fmt.Errorf("parse STATIC_PROFILES: %w", err)
		}
		return authroles.NewStaticProfileStore(profiles...), nil
	case config.ProfileStorePostgres:
		if db == nil {
			return nil, errors.New("postgres profile store requires a database connection")
		}
		return data.NewProfileRepo(db), nil
	default:
		return nil, fmt.Errorf("unsupported profile store %q", cfg.ProfileStore)
	}
}

func buildTokenManager(cfg config.AuthConfig) (*apptoken.Manager, error) {
	if !cfg.LegacyTokenEnabled {
		return nil, nil
	}
	m, err := apptoken.NewManager(apptoken.Options{
		Secret: []byte(cfg.JWTSecret),
		TTL:    cfg.TokenTTL,
		Issuer: cfg.JWTIssuer,
	})
	if err != nil {
		return nil, fmt.Errorf("create token manager: %w", err)
	}
	return m, nil
}

func (c *AuthComponents) buildLimiter(cfg *config.AppConfig, client redis.UniversalClient) error {
	rl := cfg.RateLimit
	switch rl.Backend {
	case config.RateLimitBackendRedis:
		if client == nil {
			return errors.New("redis login limiter requires a redis client")
		}
		l, err := redisadapter.NewLoginLimiter(client, redisadapter.LoginLimiterOptions{
			Prefix:      cfg.Redis.KeyPrefix,
			MaxAttempts: rl.MaxAttempts,
			Window:      rl.Window,
		})
		if err != nil {
			return fmt.Errorf("create redis login limiter: %w", err)
		}
		c.Limiter = l
	default:
		m, err := ratelimit.NewMemory(ratelimit.MemoryOptions{
			MaxAttempts: rl.MaxAttempts,
			Window:      rl.Window,
		})
		if err != nil {
			return fmt.Errorf("create memory login limiter: %w", err)
		}
		c.Limiter = m
		c.memoryLimiter = m
	}
	return nil
}
