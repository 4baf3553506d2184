package main

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campus-admin/admingate/config"
	"github.com/campus-admin/admingate/internal/adapters/apptoken"
	domainauth "github.com/campus-admin/admingate/internal/domain/auth"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testContext(cfg config.AppConfig) *commandContext {
	return &commandContext{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		cfg:    &cfg,
	}
}

func execute(t *testing.T, cc *commandContext, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(cc)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestHashPassword(t *testing.T) {
	out, err := execute(t, testContext(config.AppConfig{}), "correct-horse\n", "hash-password", "--cost", "4")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct-horse")))
	require.NotContains(t, hash, ":", "hash must be usable inside DEV_AUTH_USERS entries")
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := execute(t, testContext(config.AppConfig{}), "\n", "hash-password")
	require.Error(t, err)
}

func TestTokenInspect(t *testing.T) {
	auth := config.AuthConfig{JWTSecret: testSecret, JWTIssuer: "admingate", TokenTTL: time.Hour}
	m, err := apptoken.NewManager(apptoken.Options{Secret: []byte(testSecret), Issuer: "admingate", TTL: time.Hour})
	require.NoError(t, err)
	token, _, err := m.Issue(domainauth.Claims{UserID: "admin-1", Email: "ada@example.com", Role: domainauth.RoleAdmin})
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		out, err := execute(t, testContext(config.AppConfig{Auth: auth}), "", "token", "inspect", token)
		require.NoError(t, err)
		require.Contains(t, out, "valid\n")
		require.Contains(t, out, "sub: admin-1")
		require.Contains(t, out, "role: admin")
	})

	t.Run("from stdin", func(t *testing.T) {
		out, err := execute(t, testContext(config.AppConfig{Auth: auth}), token+"\n", "token", "inspect", "-")
		require.NoError(t, err)
		require.Contains(t, out, "email: ada@example.com")
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := auth
		other.JWTSecret = strings.Repeat("x", 32)
		out, err := execute(t, testContext(config.AppConfig{Auth: other}), "", "token", "inspect", token)
		require.ErrorIs(t, err, errTokenInvalid)
		require.Contains(t, out, "signature, issuer or expiry check failed")
		require.Contains(t, out, "sub: admin-1")
	})

	t.Run("malformed", func(t *testing.T) {
		out, err := execute(t, testContext(config.AppConfig{Auth: auth}), "", "token", "inspect", "not-a-jwt")
		require.ErrorIs(t, err, errTokenInvalid)
		require.Contains(t, out, "malformed token")
	})
}

func TestRateLimitRequiresRedisBackend(t *testing.T) {
	cfg := config.AppConfig{RateLimit: config.RateLimitConfig{Backend: config.RateLimitBackendMemory}}
	_, err := execute(t, testContext(cfg), "", "ratelimit", "reset", "ip:192.0.2.1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not redis")
}

func TestParseRole(t *testing.T) {
	r, err := parseRole("admin")
	require.NoError(t, err)
	require.Equal(t, domainauth.RoleAdmin, r)

	_, err = parseRole("owner")
	require.Error(t, err)
}

func TestPrintProfile(t *testing.T) {
	var buf bytes.Buffer
	p := &domainauth.Profile{UserID: "staff-1", Email: "s@example.com", Name: "Sam", Role: domainauth.RoleStaff, IsActive: true}
	require.NoError(t, printProfile(&buf, p))

	out := buf.String()
	require.Contains(t, out, "staff-1")
	require.Contains(t, out, "never")
	require.Contains(t, out, "denied: "+string(domainauth.DenyNotAdmin))
}
