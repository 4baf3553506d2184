package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/campus-admin/admingate/internal/domain/auth"
	apperrors "github.com/campus-admin/admingate/internal/errors"
	"github.com/campus-admin/admingate/internal/service"
)

type loginServiceFunc func(ctx context.Context, in service.LoginInput) (*service.LoginResult, error)

func (f loginServiceFunc) Login(ctx context.Context, in service.LoginInput) (*service.LoginResult, error) {
	return f(ctx, in)
}

func TestAuthHandlers_LoginPassesClientIP(t *testing.T) {
	var got service.LoginInput
	h := &AuthHandlers{Svc: loginServiceFunc(func(_ context.Context, in service.LoginInput) (*service.LoginResult, error) {
		got = in
		return &service.LoginResult{
			User:    domainauth.User{ID: "u1", Email: "a@test.com", Role: domainauth.RoleAdmin},
			Session: domainauth.UpstreamSession{AccessToken: "a", RefreshToken: "r", ExpiresInSeconds: 60},
		}, nil
	})}

	r := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"a@test.com","password":"pw","extra":1}`))
	r.RemoteAddr = "203.0.113.7:51234"
	rec := httptest.NewRecorder()
	h.Login(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.LoginInput{Email: "a@test.com", Password: "pw", ClientIP: "203.0.113.7"}, got)
	set := responseCookies(rec)
	assert.Contains(t, set, CookieAccessToken)
	assert.NotContains(t, set, CookieAppToken, "no self-issued token was minted")
}

func TestAuthHandlers_LoginErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
		wantRetry  string
	}{
		{name: "rate limited", err: &service.RateLimitedError{RetryAfter: 90500 * time.Millisecond}, wantStatus: http.StatusTooManyRequests, wantMsg: msgRateLimited, wantRetry: "91"},
		{name: "rate limited sub-second", err: &service.RateLimitedError{RetryAfter: time.Millisecond}, wantStatus: http.StatusTooManyRequests, wantMsg: msgRateLimited, wantRetry: "1"},
		{name: "unavailable", err: apperrors.Unavailable(errors.New("pq: password authentication failed for user admin"), "profile store"), wantStatus: http.StatusInternalServerError, wantMsg: msgInternal},
		{name: "unclassified", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantMsg: msgInternal},
		{name: "timeout", err: apperrors.New(apperrors.ErrCodeTimeout, "deadline"), wantStatus: http.StatusInternalServerError, wantMsg: msgInternal},
		{name: "refresh exhausted", err: apperrors.New(apperrors.ErrCodeRefreshExhausted, "x"), wantStatus: http.StatusUnauthorized, wantMsg: msgAuthRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &AuthHandlers{Svc: loginServiceFunc(func(context.Context, service.LoginInput) (*service.LoginResult, error) {
				return nil, tt.err
			})}
			rec := httptest.NewRecorder()
			h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"a@test.com","password":"pw"}`)))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, `{"success":false,"error":"`+tt.wantMsg+`"}`, rec.Body.String())
			assert.Equal(t, tt.wantRetry, rec.Header().Get("Retry-After"))
			assert.NotContains(t, rec.Body.String(), "pq:")
		})
	}
}

func TestAuthHandlers_LoginRejectsWhitespaceEmail(t *testing.T) {
	h := &AuthHandlers{Svc: loginServiceFunc(func(context.Context, service.LoginInput) (*service.LoginResult, error) {
		t.Fatal("service must not be called")
		return nil, nil
	})}
	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"   ","password":"pw"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginErrorCode(t *testing.T) {
	assert.Equal(t, "missing", loginErrorCode(http.StatusBadRequest, msgCredentialsRequired))
	assert.Equal(t, "invalid", loginErrorCode(http.StatusUnauthorized, msgInvalidCredentials))
	assert.Equal(t, "disabled", loginErrorCode(http.StatusForbidden, msgAccountDisabled))
	assert.Equal(t, "not_admin", loginErrorCode(http.StatusForbidden, msgNotAdmin))
	assert.Equal(t, "rate_limited", loginErrorCode(http.StatusTooManyRequests, msgRateLimited))
	assert.Equal(t, "internal", loginErrorCode(http.StatusInternalServerError, msgInternal))
}
