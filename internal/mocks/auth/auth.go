package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	domainauth "github.com/campus-admin/admingate/internal/domain/auth"
	apperrors "github.com/campus-admin/admingate/internal/errors"
	"github.com/campus-admin/admingate/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider = (*MockIdentityProvider)(nil)
	_ ports.ProfileStore     = (*MemoryProfileStore)(nil)
	_ ports.LoginLimiter     = (*MockLimiter)(nil)
)

// MockIdentityProvider simulates an IdP. Accounts maps email to password;
// tokens it issues resolve back to the account's identity. The Func fields
// override the default behavior when set.
type MockIdentityProvider struct {
	SignInFunc      func(ctx context.Context, email, password string) (*domainauth.UpstreamSession, error)
	ResolveUserFunc func(ctx context.Context, accessToken string) (*domainauth.Identity, error)
	RefreshFunc     func(ctx context.Context, refreshToken string) (*domainauth.UpstreamSession, error)

	SignInCalls  atomic.Int32
	ResolveCalls atomic.Int32
	RefreshCalls atomic.Int32

	mu       sync.Mutex
	accounts map[string]account
	access   map[string]string // token -> user id
	refresh  map[string]string
	seq      int
}

type account struct {
	id       string
	email    string
	password string
}

// NewMockIdentityProvider creates an empty MockIdentityProvider.
func NewMockIdentityProvider() *MockIdentityProvider {
	return &MockIdentityProvider{
		accounts: make(map[string]account),
		access:   make(map[string]string),
		refresh:  make(map[string]string),
	}
}

// AddAccount registers a user that can sign in.
func (m *MockIdentityProvider) AddAccount(id, email, password string) *MockIdentityProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = domainauth.NormalizeEmail(email)
	m.accounts[email] = account{id: id, email: email, password: password}
	return m
}

// IssueSession mints a session for a registered user id without a password check.
func (m *MockIdentityProvider) IssueSession(userID string) *domainauth.UpstreamSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.issueLocked(userID)
}

// ExpireAccess invalidates an access token while keeping its refresh token usable.
func (m *MockIdentityProvider) ExpireAccess(accessToken string) {
	m.mu.Lock()
	delete(m.access, accessToken)
	m.mu.Unlock()
}

func (m *MockIdentityProvider) SignIn(ctx context.Context, email, password string) (*domainauth.UpstreamSession, error) {
	m.SignInCalls.Add(1)
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, password)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[email]
	if !ok || acct.password != password {
		return nil, apperrors.InvalidCredential("Invalid email or password")
	}
	return m.issueLocked(acct.id), nil
}

func (m *MockIdentityProvider) ResolveUser(ctx context.Context, accessToken string) (*domainauth.Identity, error) {
	m.ResolveCalls.Add(1)
	if m.ResolveUserFunc != nil {
		return m.ResolveUserFunc(ctx, accessToken)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.access[accessToken]
	if !ok {
		return nil, nil
	}
	return &domainauth.Identity{ID: id, Email: m.emailLocked(id)}, nil
}

func (m *MockIdentityProvider) Refresh(ctx context.Context, refreshToken string) (*domainauth.UpstreamSession, error) {
	m.RefreshCalls.Add(1)
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.refresh[refreshToken]
	if !ok {
		return nil, nil
	}
	delete(m.refresh, refreshToken)
	return m.issueLocked(id), nil
}

func (m *MockIdentityProvider) issueLocked(userID string) *domainauth.UpstreamSession {
	m.seq++
	at := "access-" + userID + "-" + strconv.Itoa(m.seq)
	rt := "refresh-" + userID + "-" + strconv.Itoa(m.seq)
	m.access[at] = userID
	m.refresh[rt] = userID
	return &domainauth.UpstreamSession{AccessToken: at, RefreshToken: rt, ExpiresInSeconds: 3600}
}

func (m *MockIdentityProvider) emailLocked(userID string) string {
	for _, a := range m.accounts {
		if a.id == userID {
			return a.email
		}
	}
	return ""
}

// MemoryProfileStore is an in-memory ProfileStore with call counters and an
// injectable failure.
type MemoryProfileStore struct {
	// Err, when set, is returned by GetByUserID.
	Err error

	GetCalls   atomic.Int32
	TouchCalls atomic.Int32
	touched    chan string

	mu       sync.RWMutex
	profiles map[string]domainauth.Profile
}

// NewMemoryProfileStore creates a store seeded with profiles.
func NewMemoryProfileStore(profiles ...domainauth.Profile) *MemoryProfileStore {
	s := &MemoryProfileStore{
		profiles: make(map[string]domainauth.Profile),
		touched:  make(chan string, 16),
	}
	for _, p := range profiles {
		s.profiles[p.UserID] = p
	}
	return s
}

// Put replaces a profile.
func (s *MemoryProfileStore) Put(p domainauth.Profile) {
	s.mu.Lock()
	s.profiles[p.UserID] = p
	s.mu.Unlock()
}

// Touched delivers the user id of every TouchLastLogin call.
func (s *MemoryProfileStore) Touched() <-chan string { return s.touched }

func (s *MemoryProfileStore) GetByUserID(_ context.Context, userID string) (*domainauth.Profile, error) {
	s.GetCalls.Add(1)
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *MemoryProfileStore) TouchLastLogin(_ context.Context, userID string, at time.Time) error {
	s.TouchCalls.Add(1)
	s.mu.Lock()
	if p, ok := s.profiles[userID]; ok {
		t := at
		p.LastLogin = &t
		s.profiles[userID] = p
	}
	s.mu.Unlock()
	select {
	case s.touched <- userID:
	default:
	}
	return nil
}

// MockLimiter is a LoginLimiter double with Func overrides. Without overrides
// it allows every request and records the keys it was called with.
type MockLimiter struct {
	CheckFunc   func(ctx context.Context, key string) (ports.LimitDecision, error)
	AcquireFunc func(ctx context.Context, key string) (ports.LimitDecision, error)
	ReleaseFunc func(ctx context.Context, key string) error
	ResetFunc   func(ctx context.Context, key string) error

	mu       sync.Mutex
	Acquires []string
	Releases []string
	Resets   []string
}

func (m *MockLimiter) Check(ctx context.Context, key string) (ports.LimitDecision, error) {
	if m.CheckFunc != nil {
		return m.CheckFunc(ctx, key)
	}
	return ports.LimitDecision{Allowed: true}, nil
}

func (m *MockLimiter) Acquire(ctx context.Context, key string) (ports.LimitDecision, error) {
	m.mu.Lock()
	m.Acquires = append(m.Acquires, key)
	m.mu.Unlock()
	if m.AcquireFunc != nil {
		return m.AcquireFunc(ctx, key)
	}
	return ports.LimitDecision{Allowed: true}, nil
}

func (m *MockLimiter) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	m.Releases = append(m.Releases, key)
	m.mu.Unlock()
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, key)
	}
	return nil
}

// Kept returns the acquired keys that were neither released nor reset.
func (m *MockLimiter) Kept() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	settled := map[string]int{}
	for _, k := range m.Releases {
		settled[k]++
	}
	for _, k := range m.Resets {
		settled[k]++
	}
	var kept []string
	for _, k := range m.Acquires {
		if settled[k] > 0 {
			settled[k]--
			continue
		}
		kept = append(kept, k)
	}
	return kept
}

func (m *MockLimiter) Reset(ctx context.Context, key string) error {
	m.mu.Lock()
	m.Resets = append(m.Resets, key)
	m.mu.Unlock()
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, key)
	}
	return nil
}
