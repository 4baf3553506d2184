package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	domainauth "github.com/campus-admin/admingate/internal/domain/auth"
	apperrors "github.com/campus-admin/admingate/internal/errors"
	"github.com/campus-admin/admingate/internal/observability/metrics"
	"github.com/campus-admin/admingate/internal/ports"
)

// Login outcomes used as metric labels.
const (
	LoginSuccess     = "success"
	LoginInvalid     = "invalid_credentials"
	LoginNotAdmin    = "not_admin"
	LoginDisabled    = "disabled"
	LoginRateLimited = "rate_limited"
	LoginValidation  = "validation"
	LoginError       = "error"
)

// LimitKeyStrategy selects what the login limiter counts by.
type LimitKeyStrategy string

const (
	LimitByIP    LimitKeyStrategy = "ip"
	LimitByEmail LimitKeyStrategy = "email"
)

const defaultLastLoginTimeout = 5 * time.Second

// RateLimitedError is returned by Login when the limiter rejects the attempt.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many login attempts, retry after %s", e.RetryAfter)
}

// Unwrap exposes the taxonomy code to apperrors predicates.
func (e *RateLimitedError) Unwrap() error {
	return apperrors.New(apperrors.ErrCodeRateLimited, "Too many login attempts. Please try again later.")
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider   ports.IdentityProvider
	Profiles   ports.ProfileStore
	Authorizer *Authorizer
	Tokens     ports.TokenManager
	Limiter    ports.LoginLimiter
	// LimitKey defaults to LimitByIP.
	LimitKey LimitKeyStrategy
	// IssueAppToken mints the self-issued token on successful login.
	IssueAppToken bool
	// LastLoginTimeout bounds the asynchronous last-login write. Defaults to 5s.
	LastLoginTimeout time.Duration
	Logger           *slog.Logger
	Metrics          metrics.Recorder
	// Now is overridable for tests.
	Now func() time.Time
}

// AuthService orchestrates the login flow: validation, rate limiting, upstream sign-in,
// authorization and credential issuance.
type AuthService struct {
	provider         ports.IdentityProvider
	profiles         ports.ProfileStore
	authorizer       *Authorizer
	tokens           ports.TokenManager
	limiter          ports.LoginLimiter
	limitKey         LimitKeyStrategy
	issueAppToken    bool
	lastLoginTimeout time.Duration
	logger           *slog.Logger
	metrics          metrics.Recorder
	now              func() time.Time

	bg sync.WaitGroup
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limitKey := opts.LimitKey
	if limitKey == "" {
		limitKey = LimitByIP
	}
	timeout := opts.LastLoginTimeout
	if timeout <= 0 {
		timeout = defaultLastLoginTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		provider:         opts.Provider,
		profiles:         opts.Profiles,
		authorizer:       opts.Authorizer,
		tokens:           opts.Tokens,
		limiter:          opts.Limiter,
		limitKey:         limitKey,
		issueAppToken:    opts.IssueAppToken && opts.Tokens != nil,
		lastLoginTimeout: timeout,
		logger:           logger.With("component", "auth_service"),
		metrics:          metrics.OrNop(opts.Metrics),
		now:              now,
	}
}

// LoginInput groups parameters for a login attempt.
type LoginInput struct {
	Email    string
	Password string
	ClientIP string
}

// LoginResult contains the credentials to hand back to the client.
type LoginResult struct {
	User     domainauth.User
	Session  domainauth.UpstreamSession
	AppToken string
	// AppTokenExpiresAt is zero when no self-issued token was minted.
	AppTokenExpiresAt time.Time
}

// Login authenticates email/password upstream and authorizes the identity as an active admin.
//
// Errors carry apperrors codes: validation, rate_limited (*RateLimitedError), invalid_credential,
// not_authorized, account_disabled, upstream_unavailable.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := domainauth.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		s.metrics.LoginAttempt(LoginValidation)
		return nil, apperrors.Validation("Email and password are required")
	}

	key := s.LimitKey(in.ClientIP, email)
	if s.limiter != nil {
		decision, err := s.limiter.Acquire(ctx, key)
		if err != nil {
			s.metrics.LoginAttempt(LoginError)
			s.logger.ErrorContext(ctx, "login limiter acquire failed", "key", key, "error", err)
			return nil, asUnavailable(err, "rate limiter")
		}
		if !decision.Allowed {
			s.metrics.LoginAttempt(LoginRateLimited)
			s.logger.InfoContext(ctx, "login rate limited", "key", key, "retry_after", decision.RetryAfter)
			return nil, &RateLimitedError{RetryAfter: decision.RetryAfter}
		}
	}

	res, slot, err := s.login(ctx, email, in.Password, key)
	if s.limiter != nil {
		s.settleSlot(ctx, key, slot)
	}
	return res, err
}

// login runs the upstream and authorization steps. The returned slotOutcome says what
// happens to the attempt reserved with the limiter: only rejected credentials keep it.
func (s *AuthService) login(ctx context.Context, email, password, key string) (*LoginResult, slotOutcome, error) {
	sess, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		if apperrors.IsInvalidCredential(err) {
			s.metrics.LoginAttempt(LoginInvalid)
			s.logger.InfoContext(ctx, "login rejected by identity provider", "key", key)
			return nil, keepSlot, apperrors.Wrap(err, apperrors.ErrCodeInvalidCredential, "Invalid email or password")
		}
		s.metrics.LoginAttempt(LoginError)
		s.logger.ErrorContext(ctx, "identity provider sign-in failed", "error", err)
		return nil, releaseSlot, asUnavailable(err, "identity provider")
	}

	identity, err := s.provider.ResolveUser(ctx, sess.AccessToken)
	if err != nil || identity == nil || identity.IsZero() {
		if err == nil {
			err = errors.New("freshly issued access token did not resolve")
		}
		s.metrics.LoginAttempt(LoginError)
		s.logger.ErrorContext(ctx, "resolve signed-in user failed", "error", err)
		return nil, releaseSlot, asUnavailable(err, "identity provider")
	}

	decision, err := s.authorizer.Resolve(ctx, identity.ID)
	if err != nil {
		s.metrics.LoginAttempt(LoginError)
		return nil, releaseSlot, err
	}
	if !decision.IsAdmin {
		outcome := LoginNotAdmin
		if decision.Reason == domainauth.DenyAccountDisabled {
			outcome = LoginDisabled
		}
		s.metrics.LoginAttempt(outcome)
		s.logger.InfoContext(ctx, "login denied", "user_id", identity.ID, "reason", string(decision.Reason))
		return nil, releaseSlot, DenyError(decision)
	}

	res := &LoginResult{User: *decision.User, Session: *sess}
	if res.User.Email == "" {
		res.User.Email = identity.Email
	}

	if s.issueAppToken {
		token, exp, issueErr := s.tokens.Issue(domainauth.Claims{
			UserID: res.User.ID,
			Email:  res.User.Email,
			Name:   res.User.Name,
			Role:   res.User.Role,
		})
		if issueErr != nil {
			s.metrics.LoginAttempt(LoginError)
			return nil, releaseSlot, apperrors.Wrap(issueErr, apperrors.ErrCodeInternal, "issue token")
		}
		res.AppToken = token
		res.AppTokenExpiresAt = exp
	}

	s.touchLastLogin(ctx, identity.ID)
	s.metrics.LoginAttempt(LoginSuccess)
	s.logger.InfoContext(ctx, "admin logged in", "user_id", identity.ID)
	return res, resetSlot, nil
}

// LimitKey builds the limiter key for a login attempt.
func (s *AuthService) LimitKey(clientIP, email string) string {
	if s.limitKey == LimitByEmail {
		return "email:" + domainauth.NormalizeEmail(email)
	}
	ip := strings.TrimSpace(clientIP)
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// Wait blocks until background last-login writes finish. Used at shutdown and in tests.
func (s *AuthService) Wait() { s.bg.Wait() }

type slotOutcome int

const (
	releaseSlot slotOutcome = iota
	keepSlot
	resetSlot
)

// settleSlot finishes a reserved limiter attempt. Failures are logged: the login outcome
// has already been decided.
func (s *AuthService) settleSlot(ctx context.Context, key string, outcome slotOutcome) {
	ctx = context.WithoutCancel(ctx)
	var err error
	switch outcome {
	case keepSlot:
		return
	case resetSlot:
		err = s.limiter.Reset(ctx, key)
	default:
		err = s.limiter.Release(ctx, key)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "login limiter settle failed", "key", key, "error", err)
	}
}

// touchLastLogin updates last_login without blocking the login response.
func (s *AuthService) touchLastLogin(ctx context.Context, userID string) {
	if s.profiles == nil {
		return
	}
	at := s.now().UTC()
	bgCtx := context.WithoutCancel(ctx)

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		tctx, cancel := context.WithTimeout(bgCtx, s.lastLoginTimeout)
		defer cancel()
		if err := s.profiles.TouchLastLogin(tctx, userID, at); err != nil {
			s.logger.WarnContext(tctx, "update last login failed", "user_id", userID, "error", err)
		}
	}()
}
