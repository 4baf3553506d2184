package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	domainauth "github.com/campus-admin/admingate/internal/domain/auth"
	apperrors "github.com/campus-admin/admingate/internal/errors"
	"github.com/campus-admin/admingate/internal/observability/metrics"
	"github.com/campus-admin/admingate/internal/ports"
)

const defaultProfileLookupTimeout = 3 * time.Second

// AuthorizerOptions groups dependencies for Authorizer.
type AuthorizerOptions struct {
	Profiles ports.ProfileStore
	// Timeout bounds each profile lookup. Defaults to 3s.
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics metrics.Recorder
}

// Authorizer resolves an identity against its authorization profile.
// It is read-only; the last-login write lives on the login path.
type Authorizer struct {
	profiles ports.ProfileStore
	timeout  time.Duration
	logger   *slog.Logger
	metrics  metrics.Recorder
}

// NewAuthorizer constructs an Authorizer.
func NewAuthorizer(opts AuthorizerOptions) *Authorizer {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultProfileLookupTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{
		profiles: opts.Profiles,
		timeout:  timeout,
		logger:   logger.With("component", "authorizer"),
		metrics:  metrics.OrNop(opts.Metrics),
	}
}

// Resolve performs a single profile lookup and applies the admin decision table.
// Any lookup failure returns an upstream_unavailable error and a deny decision.
func (a *Authorizer) Resolve(ctx context.Context, userID string) (domainauth.Decision, error) {
	if userID == "" {
		return domainauth.Decide(nil), nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	profile, err := a.profiles.GetByUserID(ctx, userID)
	a.metrics.ObserveUpstream("profile_lookup", time.Since(start))
	if err != nil {
		a.logger.WarnContext(ctx, "profile lookup failed", "user_id", userID, "error", err)
		return domainauth.Decide(nil), asUnavailable(err, "profile store")
	}
	return domainauth.Decide(profile), nil
}

// asUnavailable keeps an existing upstream_unavailable classification or wraps err in one.
func asUnavailable(err error, dependency string) error {
	if apperrors.IsUpstreamUnavailable(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Unavailable(err, dependency+" (timeout)")
	}
	return apperrors.Unavailable(err, dependency)
}

// DenyError maps a deny decision to its taxonomy error.
func DenyError(d domainauth.Decision) error {
	switch {
	case d.IsAdmin:
		return nil
	case d.Reason == domainauth.DenyAccountDisabled:
		return apperrors.New(apperrors.ErrCodeAccountDisabled, "Account is disabled")
	default:
		return apperrors.New(apperrors.ErrCodeNotAuthorized, "Unauthorized access - Not an admin")
	}
}
