package apptoken

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/campus-admin/admingate/internal/domain/auth"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestManager(t *testing.T, clock *fakeClock) *Manager {
	t.Helper()
	m, err := NewManager(Options{Secret: testSecret, Issuer: "admingate", Now: clock.Now})
	require.NoError(t, err)
	return m
}

func TestNewManager_RejectsWeakSecret(t *testing.T) {
	_, err := NewManager(Options{Secret: []byte("short")})
	require.ErrorIs(t, err, ErrWeakSecret)
}

func TestManager_IssueVerifyRoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	m := newTestManager(t, clock)

	token, exp, err := m.Issue(domainauth.Claims{
		UserID: "user-1",
		Email:  "admin@test.com",
		Name:   "Admin",
		Role:   domainauth.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(DefaultTTL), exp)

	got, ok := m.Verify(token)
	require.True(t, ok)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "admin@test.com", got.Email)
	assert.Equal(t, domainauth.RoleAdmin, got.Role)
	assert.Equal(t, exp, got.ExpiresAt.UTC())
}

func TestManager_IssueRequiresUserID(t *testing.T) {
	m := newTestManager(t, &fakeClock{t: time.Now()})
	_, _, err := m.Issue(domainauth.Claims{Email: "x@y.z"})
	require.Error(t, err)
}

func TestManager_VerifyRejectsExpired(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := newTestManager(t, clock)

	token, exp, err := m.Issue(domainauth.Claims{UserID: "user-1", Role: domainauth.RoleAdmin})
	require.NoError(t, err)

	clock.t = exp.Add(-time.Second)
	_, ok := m.Verify(token)
	assert.True(t, ok, "token must be valid one second before expiry")

	clock.t = exp
	_, ok = m.Verify(token)
	assert.False(t, ok, "token must be invalid at its expiry instant")

	clock.t = exp.Add(time.Hour)
	_, ok = m.Verify(token)
	assert.False(t, ok)
}

func TestManager_VerifyRejectsTampering(t *testing.T) {
	m := newTestManager(t, &fakeClock{t: time.Now()})
	token, _, err := m.Issue(domainauth.Claims{UserID: "user-1", Role: domainauth.RoleStaff})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-token"},
		{name: "bad signature", token: parts[0] + "." + parts[1] + ".AAAA"},
		{name: "swapped payload", token: parts[0] + "." + parts[0] + "." + parts[2]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := m.Verify(tt.token)
			assert.False(t, ok)
		})
	}
}

func TestManager_VerifyRejectsOtherSecret(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	m := newTestManager(t, clock)
	other, err := NewManager(Options{Secret: []byte("ffffffffffffffffffffffffffffffff"), Issuer: "admingate", Now: clock.Now})
	require.NoError(t, err)

	token, _, err := other.Issue(domainauth.Claims{UserID: "user-1"})
	require.NoError(t, err)

	_, ok := m.Verify(token)
	assert.False(t, ok)
}

func TestManager_VerifyRejectsNoneAlgorithm(t *testing.T) {
	now := time.Now()
	m := newTestManager(t, &fakeClock{t: now})

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "admingate",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, ok := m.Verify(token)
	assert.False(t, ok)
}

func TestManager_VerifyRejectsMissingExpiry(t *testing.T) {
	now := time.Now()
	m := newTestManager(t, &fakeClock{t: now})

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "user-1",
		Issuer:  "admingate",
	}).SignedString(testSecret)
	require.NoError(t, err)

	_, ok := m.Verify(token)
	assert.False(t, ok)
}
