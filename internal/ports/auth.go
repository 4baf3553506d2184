package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"time"

	domainauth "github.com/campus-admin/admingate/internal/domain/auth"
)

// IdentityProvider wraps the upstream identity provider.
//
// SignIn returns an invalid-credential error for rejected credentials.
// ResolveUser and Refresh return (nil, nil) when the provider rejects the token;
// a non-nil error always means the provider could not be consulted.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*domainauth.UpstreamSession, error)
	ResolveUser(ctx context.Context, accessToken string) (*domainauth.Identity, error)
	Refresh(ctx context.Context, refreshToken string) (*domainauth.UpstreamSession, error)
}

// ProfileStore looks up authorization profiles by upstream user id.
// GetByUserID returns (nil, nil) when no profile exists.
type ProfileStore interface {
	GetByUserID(ctx context.Context, userID string) (*domainauth.Profile, error)
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error
}

// TokenManager issues and verifies self-issued tokens.
// Verify never returns an error: any failure collapses to ok=false.
type TokenManager interface {
	Issue(claims domainauth.Claims) (token string, expiresAt time.Time, err error)
	Verify(token string) (domainauth.Claims, bool)
}

// LimitDecision is the result of checking a login rate-limit key.
type LimitDecision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// LoginLimiter counts login attempts per key within a fixed window.
//
// Acquire reserves an attempt atomically: the count is raised and compared in one step,
// so concurrent attempts cannot all observe the same remaining budget. A reserved attempt
// that turns out to be a rejected credential keeps its slot. Release hands the slot back
// when the attempt was not a credential failure, and Reset clears the key after a success.
// Check reports the current state without reserving.
type LoginLimiter interface {
	Check(ctx context.Context, key string) (LimitDecision, error)
	Acquire(ctx context.Context, key string) (LimitDecision, error)
	Release(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}
