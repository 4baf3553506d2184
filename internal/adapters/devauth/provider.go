package devauth

// Package devauth provides a simple, config-driven IdentityProvider for local development.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/campus-admin/admingate/internal/domain/auth"
	apperrors "github.com/campus-admin/admingate/internal/errors"
	"github.com/campus-admin/admingate/internal/ports"
)

// User is a locally configured account. PasswordHash is a bcrypt hash.
type User struct {
	ID           string
	Email        string
	PasswordHash string
}

// Config controls the dev auth provider behavior.
type Config struct {
	Users []User
	// AccessTTL defaults to 1h; RefreshTTL defaults to 7 days.
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now is overridable for tests.
	Now func() time.Time
}

type grant struct {
	userID    string
	expiresAt time.Time
}

// Provider implements ports.IdentityProvider for local development.
// Tokens are opaque random strings held in memory; restarting the process
// invalidates every session.
type Provider struct {
	users      map[string]User // by normalized email
	byID       map[string]User
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	// dummyHash is compared for unknown emails so a miss costs as much as a wrong password.
	dummyHash []byte
	compare   func(hash, password []byte) error

	mu      sync.Mutex
	access  map[string]grant
	refresh map[string]grant
}

var _ ports.IdentityProvider = (*Provider)(nil)

// NewProvider constructs a dev auth provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if len(cfg.Users) == 0 {
		return nil, errors.New("dev auth: at least one user is required")
	}
	p := &Provider{
		users:      make(map[string]User, len(cfg.Users)),
		byID:       make(map[string]User, len(cfg.Users)),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
		access:     make(map[string]grant),
		refresh:    make(map[string]grant),
		compare:    bcrypt.CompareHashAndPassword,
	}
	if p.accessTTL <= 0 {
		p.accessTTL = time.Hour
	}
	if p.refreshTTL <= 0 {
		p.refreshTTL = 7 * 24 * time.Hour
	}
	if p.now == nil {
		p.now = time.Now
	}
	maxCost := bcrypt.MinCost
	for _, u := range cfg.Users {
		if u.ID == "" || u.Email == "" || u.PasswordHash == "" {
			return nil, fmt.Errorf("dev auth: user %q needs id, email and password hash", u.Email)
		}
		cost, err := bcrypt.Cost([]byte(u.PasswordHash))
		if err != nil {
			return nil, fmt.Errorf("dev auth: user %q: invalid bcrypt hash: %w", u.Email, err)
		}
		maxCost = max(maxCost, cost)
		u.Email = domainauth.NormalizeEmail(u.Email)
		p.users[u.Email] = u
		p.byID[u.ID] = u
	}

	secret, err := randomString(16)
	if err != nil {
		return nil, err
	}
	if p.dummyHash, err = bcrypt.GenerateFromPassword([]byte(secret), maxCost); err != nil {
		return nil, fmt.Errorf("dev auth: dummy hash: %w", err)
	}
	return p, nil
}

// SignIn checks the password against the configured bcrypt hash. Unknown emails are
// checked against a dummy hash of the same cost.
func (p *Provider) SignIn(_ context.Context, email, password string) (*domainauth.UpstreamSession, error) {
	u, ok := p.users[domainauth.NormalizeEmail(email)]
	hash := p.dummyHash
	if ok {
		hash = []byte(u.PasswordHash)
	}
	if err := p.compare(hash, []byte(password)); err != nil || !ok {
		return nil, apperrors.InvalidCredential("Invalid email or password")
	}
	return p.issue(u.ID)
}

// ResolveUser returns the owner of a live access token.
func (p *Provider) ResolveUser(_ context.Context, accessToken string) (*domainauth.Identity, error) {
	p.mu.Lock()
	g, ok := p.access[accessToken]
	if ok && !p.now().Before(g.expiresAt) {
		delete(p.access, accessToken)
		ok = false
	}
	p.mu.Unlock()
	if !ok {
		return nil, nil
	}
	u, ok := p.byID[g.userID]
	if !ok {
		return nil, nil
	}
	return &domainauth.Identity{ID: u.ID, Email: u.Email}, nil
}

// Refresh rotates a live refresh token. The old refresh token is consumed.
func (p *Provider) Refresh(_ context.Context, refreshToken string) (*domainauth.UpstreamSession, error) {
	p.mu.Lock()
	g, ok := p.refresh[refreshToken]
	delete(p.refresh, refreshToken)
	p.mu.Unlock()
	if !ok || !p.now().Before(g.expiresAt) {
		return nil, nil
	}
	return p.issue(g.userID)
}

func (p *Provider) issue(userID string) (*domainauth.UpstreamSession, error) {
	at, err := randomString(32)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	rt, err := randomString(32)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	now := p.now()

	p.mu.Lock()
	p.access[at] = grant{userID: userID, expiresAt: now.Add(p.accessTTL)}
	p.refresh[rt] = grant{userID: userID, expiresAt: now.Add(p.refreshTTL)}
	p.mu.Unlock()

	return &domainauth.UpstreamSession{
		AccessToken:      at,
		RefreshToken:     rt,
		ExpiresInSeconds: int(p.accessTTL / time.Second),
	}, nil
}

// ParseUsers parses "id:email:bcrypt-hash" entries. Bcrypt hashes contain '$' but never ':'.
func ParseUsers(entries []string) ([]User, error) {
	users := make([]User, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		parts := strings.SplitN(e, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("dev auth: malformed user entry %q", e)
		}
		users = append(users, User{ID: parts[0], Email: parts[1], PasswordHash: parts[2]})
	}
	return users, nil
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
