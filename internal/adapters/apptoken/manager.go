// Package apptoken issues and verifies the self-issued admin token.
package apptoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	domainauth "github.com/campus-admin/admingate/internal/domain/auth"
	"github.com/campus-admin/admingate/internal/ports"
)

// DefaultTTL is the lifetime of a self-issued token.
const DefaultTTL = 24 * time.Hour

const minSecretLen = 32

// ErrWeakSecret is returned when the signing secret is too short.
var ErrWeakSecret = errors.New("apptoken: signing secret must be at least 32 bytes")

type tokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Options configures a Manager.
type Options struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	// Now is overridable for tests.
	Now func() time.Time
}

// Manager signs and verifies HS256 tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

var _ ports.TokenManager = (*Manager)(nil)

// NewManager constructs a Manager. The secret is required.
func NewManager(opts Options) (*Manager, error) {
	if len(opts.Secret) < minSecretLen {
		return nil, ErrWeakSecret
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(now),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}

	return &Manager{
		secret: opts.Secret,
		ttl:    ttl,
		issuer: opts.Issuer,
		now:    now,
		parser: jwt.NewParser(parserOpts...),
	}, nil
}

// TTL returns the configured token lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue signs a token for the given claims. IssuedAt and ExpiresAt on the input
// are ignored and replaced with now and now+TTL.
func (m *Manager) Issue(c domainauth.Claims) (string, time.Time, error) {
	if c.UserID == "" {
		return "", time.Time{}, errors.New("apptoken: user id is required")
	}
	now := m.now().UTC().Truncate(time.Second)
	exp := now.Add(m.ttl)

	claims := tokenClaims{
		Email: c.Email,
		Name:  c.Name,
		Role:  string(c.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.UserID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks signature, algorithm and expiry. Any failure yields ok=false.
func (m *Manager) Verify(token string) (domainauth.Claims, bool) {
	if token == "" {
		return domainauth.Claims{}, false
	}

	var claims tokenClaims
	parsed, err := m.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return domainauth.Claims{}, false
	}

	out := domainauth.Claims{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		Role:      domainauth.Role(claims.Role),
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if out.Expired(m.now()) {
		return domainauth.Claims{}, false
	}
	return out, true
}
