package service

import (
	"context"
	"log/slog"

	domainauth "github.com/campus-admin/admingate/internal/domain/auth"
	apperrors "github.com/campus-admin/admingate/internal/errors"
	"github.com/campus-admin/admingate/internal/observability/metrics"
	"github.com/campus-admin/admingate/internal/ports"
)

// GateState is a state of the request authentication machine.
type GateState string

const (
	StateNoToken          GateState = "no_token"
	StateTokenInvalid     GateState = "token_invalid"
	StateTokenValid       GateState = "token_valid"
	StateRefreshSucceeded GateState = "refresh_succeeded"
	StateRefreshFailed    GateState = "refresh_failed"
	StateAuthorized       GateState = "authorized"
	StateNotAdmin         GateState = "not_admin"
	StateUnavailable      GateState = "unavailable"
)

// CredentialSource names the credential an identity was derived from.
type CredentialSource string

const (
	SourceNone     CredentialSource = ""
	SourceUpstream CredentialSource = "upstream"
	SourceAppToken CredentialSource = "app_token"
)

// Credentials are the raw cookie values presented with a request.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	AppToken     string
}

func (c Credentials) hasUpstream() bool { return c.AccessToken != "" || c.RefreshToken != "" }

// Empty reports whether no credential was presented.
func (c Credentials) Empty() bool { return !c.hasUpstream() && c.AppToken == "" }

// AuthenticateOptions tunes one evaluation.
type AuthenticateOptions struct {
	// AllowRefresh permits the single refresh attempt. The edge enables it; the guard does not.
	AllowRefresh bool
}

// Outcome is the terminal result of one evaluation.
type Outcome struct {
	State    GateState
	Trace    []GateState
	Source   CredentialSource
	Identity *domainauth.Identity
	Decision domainauth.Decision
	// Refreshed is set when the refresh exchange produced a new session that callers must persist.
	Refreshed *domainauth.UpstreamSession
	// Cause holds the dependency failure for StateUnavailable.
	Cause error
}

// Allowed reports whether the request may proceed.
func (o Outcome) Allowed() bool { return o.State == StateAuthorized }

// Err maps a denied outcome to the error taxonomy. It returns nil when allowed.
func (o Outcome) Err() error {
	switch o.State {
	case StateAuthorized:
		return nil
	case StateNoToken:
		return apperrors.New(apperrors.ErrCodeMissingCredential, "no credential presented")
	case StateTokenInvalid:
		return apperrors.InvalidCredential("credential rejected")
	case StateRefreshFailed:
		return apperrors.New(apperrors.ErrCodeRefreshExhausted, "refresh failed")
	case StateNotAdmin:
		return DenyError(o.Decision)
	default:
		if o.Cause != nil {
			return asUnavailable(o.Cause, "auth dependency")
		}
		return apperrors.New(apperrors.ErrCodeUpstreamUnavailable, "auth dependency unavailable")
	}
}

// AuthenticatorOptions groups dependencies for Authenticator.
type AuthenticatorOptions struct {
	Provider   ports.IdentityProvider
	Tokens     ports.TokenManager
	Authorizer *Authorizer
	// LegacyTokens enables the self-issued token as a fallback when no upstream cookie is present.
	LegacyTokens bool
	Logger       *slog.Logger
	Metrics      metrics.Recorder
}

// Authenticator runs the credential state machine shared by the edge gatekeeper and the server-side guard.
//
// The upstream session is the primary credential. The self-issued token is only consulted when
// neither upstream cookie is present. Authorization always comes from the profile store.
type Authenticator struct {
	provider     ports.IdentityProvider
	tokens       ports.TokenManager
	authorizer   *Authorizer
	legacyTokens bool
	logger       *slog.Logger
	metrics      metrics.Recorder
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(opts AuthenticatorOptions) *Authenticator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		provider:     opts.Provider,
		tokens:       opts.Tokens,
		authorizer:   opts.Authorizer,
		legacyTokens: opts.LegacyTokens && opts.Tokens != nil,
		logger:       logger.With("component", "authenticator"),
		metrics:      metrics.OrNop(opts.Metrics),
	}
}

type run struct {
	out Outcome
}

func (r *run) to(s GateState) {
	r.out.State = s
	r.out.Trace = append(r.out.Trace, s)
}

// Authenticate evaluates creds. Verification always precedes authorization and at most
// one refresh exchange is attempted.
func (a *Authenticator) Authenticate(ctx context.Context, creds Credentials, opts AuthenticateOptions) Outcome {
	r := &run{}

	switch {
	case creds.hasUpstream():
		r.out.Source = SourceUpstream
		if !a.verifyUpstream(ctx, r, creds, opts) {
			return r.out
		}
	case a.legacyTokens && creds.AppToken != "":
		r.out.Source = SourceAppToken
		claims, ok := a.tokens.Verify(creds.AppToken)
		if !ok {
			a.logger.DebugContext(ctx, "self-issued token rejected")
			r.to(StateTokenInvalid)
			return r.out
		}
		id := claims.Identity()
		r.out.Identity = &id
		r.to(StateTokenValid)
	default:
		r.to(StateNoToken)
		return r.out
	}

	decision, err := a.authorizer.Resolve(ctx, r.out.Identity.ID)
	r.out.Decision = decision
	if err != nil {
		r.out.Cause = err
		r.to(StateUnavailable)
		return r.out
	}
	if !decision.IsAdmin {
		r.to(StateNotAdmin)
		return r.out
	}
	r.to(StateAuthorized)
	return r.out
}

// verifyUpstream resolves the access token, refreshing once when allowed.
// It returns true when r holds a verified identity.
func (a *Authenticator) verifyUpstream(ctx context.Context, r *run, creds Credentials, opts AuthenticateOptions) bool {
	if creds.AccessToken != "" {
		id, err := a.provider.ResolveUser(ctx, creds.AccessToken)
		if err != nil {
			a.logger.WarnContext(ctx, "access token resolution failed", "error", err)
			r.out.Cause = err
			r.to(StateUnavailable)
			return false
		}
		if id != nil && !id.IsZero() {
			r.out.Identity = id
			r.to(StateTokenValid)
			return true
		}
	}
	r.to(StateTokenInvalid)

	if !opts.AllowRefresh || creds.RefreshToken == "" {
		return false
	}

	sess, err := a.provider.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		a.logger.WarnContext(ctx, "session refresh failed", "error", err)
		a.metrics.Refresh(metrics.ResultError)
		r.out.Cause = err
		r.to(StateUnavailable)
		return false
	}
	if sess == nil || sess.AccessToken == "" {
		a.metrics.Refresh(metrics.ResultFailure)
		r.to(StateRefreshFailed)
		return false
	}

	id, err := a.provider.ResolveUser(ctx, sess.AccessToken)
	if err != nil {
		a.metrics.Refresh(metrics.ResultError)
		r.out.Cause = err
		r.to(StateUnavailable)
		return false
	}
	if id == nil || id.IsZero() {
		a.metrics.Refresh(metrics.ResultFailure)
		r.to(StateRefreshFailed)
		return false
	}

	a.metrics.Refresh(metrics.ResultSuccess)
	r.out.Identity = id
	r.out.Refreshed = sess
	r.to(StateRefreshSucceeded)
	return true
}
