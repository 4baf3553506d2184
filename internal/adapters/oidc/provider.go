package oidc

// Package oidc adapts an OpenID Connect identity provider to ports.IdentityProvider.
// Sign-in uses the resource owner password grant; sessions are refreshed with the
// refresh_token grant and access tokens are resolved against the userinfo endpoint.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	domainauth "github.com/campus-admin/admingate/internal/domain/auth"
	apperrors "github.com/campus-admin/admingate/internal/errors"
	"github.com/campus-admin/admingate/internal/observability/metrics"
	"github.com/campus-admin/admingate/internal/ports"
)

const (
	defaultTimeout = 5 * time.Second
	maxUserInfo    = 1 << 20

	opSignIn   = "sign_in"
	opUserInfo = "user_info"
	opRefresh  = "refresh"
)

// Provider implements ports.IdentityProvider using OIDC/OAuth2 endpoints.
type Provider struct {
	config           *oauth2.Config
	userInfoEndpoint string
	httpClient       *http.Client
	timeout          time.Duration

	metrics metrics.Recorder
	tracer  trace.Tracer
	group   singleflight.Group
}

var _ ports.IdentityProvider = (*Provider)(nil)

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	Scope        string
	DiscoveryURL string
	// Timeout bounds every upstream call. Defaults to 5s.
	Timeout    time.Duration
	HTTPClient *http.Client // Optional, defaults to a client with a 30s timeout
	Metrics    metrics.Recorder
}

// DiscoveryDocument represents the subset of the OIDC discovery document this adapter needs.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JwksURI               string `json:"jwks_uri"`
}

// NewProvider performs discovery and returns a ready Provider.
func NewProvider(ctx context.Context, config ProviderConfig) (*Provider, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	dctx, cancel := context.WithTimeout(context.WithValue(ctx, oauth2.HTTPClient, httpClient), timeout)
	defer cancel()

	issuer := strings.TrimSuffix(config.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(dctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}
	if op.UserInfoEndpoint() == "" {
		return nil, errors.New("discovery document has no userinfo endpoint")
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Scopes:       strings.Fields(config.Scope),
			Endpoint:     op.Endpoint(),
		},
		userInfoEndpoint: op.UserInfoEndpoint(),
		httpClient:       httpClient,
		timeout:          timeout,
		metrics:          metrics.OrNop(config.Metrics),
		tracer:           otel.Tracer("admingate/oidc"),
	}, nil
}

// SignIn exchanges email and password for an upstream session.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*domainauth.UpstreamSession, error) {
	if email == "" || password == "" {
		return nil, apperrors.InvalidCredential("email and password are required")
	}

	ctx, span := p.tracer.Start(ctx, "oidc.SignIn")
	defer span.End()
	ctx, cancel := p.callContext(ctx)
	defer cancel()

	start := time.Now()
	tok, err := p.config.PasswordCredentialsToken(ctx, email, password)
	p.metrics.ObserveUpstream(opSignIn, time.Since(start))
	if err != nil {
		if isRejection(err) {
			span.SetAttributes(attribute.Bool("auth.rejected", true))
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidCredential, "Invalid email or password")
		}
		recordSpanError(span, err)
		return nil, apperrors.Unavailable(err, "identity provider")
	}
	return sessionFromToken(tok), nil
}

// ResolveUser returns the identity owning accessToken, or (nil, nil) if the provider rejects it.
func (p *Provider) ResolveUser(ctx context.Context, accessToken string) (*domainauth.Identity, error) {
	if accessToken == "" {
		return nil, nil
	}

	ctx, span := p.tracer.Start(ctx, "oidc.ResolveUser")
	defer span.End()
	ctx, cancel := p.callContext(ctx)
	defer cancel()

	start := time.Now()
	id, err := p.fetchUserInfo(ctx, accessToken)
	p.metrics.ObserveUpstream(opUserInfo, time.Since(start))
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return id, nil
}

// Refresh exchanges a refresh token for a new session, or returns (nil, nil) if the provider rejects it.
// Concurrent refreshes of the same token share one upstream exchange.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*domainauth.UpstreamSession, error) {
	if refreshToken == "" {
		return nil, nil
	}

	ctx, span := p.tracer.Start(ctx, "oidc.Refresh")
	defer span.End()

	v, err, shared := p.group.Do(refreshToken, func() (any, error) {
		// Shared by every caller holding this refresh token, so one caller going away
		// must not cancel the exchange for the rest. The timeout still bounds it.
		cctx, cancel := p.callContext(context.WithoutCancel(ctx))
		defer cancel()

		start := time.Now()
		tok, err := p.config.TokenSource(cctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
		p.metrics.ObserveUpstream(opRefresh, time.Since(start))
		if err != nil {
			if isRejection(err) {
				return (*domainauth.UpstreamSession)(nil), nil
			}
			return nil, apperrors.Unavailable(err, "identity provider")
		}
		return sessionFromToken(tok), nil
	})
	span.SetAttributes(attribute.Bool("singleflight.shared", shared))
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	sess, _ := v.(*domainauth.UpstreamSession)
	return sess, nil
}

type userInfoClaims struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
}

func (p *Provider) fetchUserInfo(ctx context.Context, accessToken string) (*domainauth.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Unavailable(err, "identity provider")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxUserInfo))
		return nil, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, apperrors.Unavailable(fmt.Errorf("userinfo status %d", resp.StatusCode), "identity provider")
	}

	var claims userInfoClaims
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxUserInfo)).Decode(&claims); err != nil {
		return nil, apperrors.Unavailable(fmt.Errorf("decode userinfo: %w", err), "identity provider")
	}
	if claims.Subject == "" {
		return nil, nil
	}
	return &domainauth.Identity{ID: claims.Subject, Email: claims.Email}, nil
}

func (p *Provider) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	return context.WithTimeout(ctx, p.timeout)
}

// isRejection reports whether err is the provider refusing the grant rather than failing to answer.
func isRejection(err error) bool {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) || re.Response == nil {
		return false
	}
	switch re.Response.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized:
		return true
	}
	return false
}

func sessionFromToken(tok *oauth2.Token) *domainauth.UpstreamSession {
	sess := &domainauth.UpstreamSession{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	switch {
	case tok.ExpiresIn > 0:
		sess.ExpiresInSeconds = int(tok.ExpiresIn)
	case !tok.Expiry.IsZero():
		sess.ExpiresInSeconds = int(time.Until(tok.Expiry).Round(time.Second).Seconds())
	}
	if sess.ExpiresInSeconds < 0 {
		sess.ExpiresInSeconds = 0
	}
	return sess
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
