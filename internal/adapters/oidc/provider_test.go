package oidc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/campus-admin/admingate/internal/domain/auth"
	apperrors "github.com/campus-admin/admingate/internal/errors"
)

// fakeIdP is a minimal OIDC provider supporting the password and refresh_token grants.
type fakeIdP struct {
	srv *httptest.Server

	tokenStatus    int
	userInfoStatus int
	refreshCalls   atomic.Int32
	tokenDelay     time.Duration
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	f := &fakeIdP{}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(DiscoveryDocument{
			Issuer:                f.srv.URL,
			AuthorizationEndpoint: f.srv.URL + "/authorize",
			TokenEndpoint:         f.srv.URL + "/token",
			UserinfoEndpoint:      f.srv.URL + "/userinfo",
			JwksURI:               f.srv.URL + "/jwks",
		})
	})
	mux.HandleFunc("/token", f.handleToken)
	mux.HandleFunc("/userinfo", f.handleUserInfo)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeIdP) handleToken(w http.ResponseWriter, r *http.Request) {
	if f.tokenDelay > 0 {
		time.Sleep(f.tokenDelay)
	}
	if f.tokenStatus != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.tokenStatus)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		return
	}
	_ = r.ParseForm()
	w.Header().Set("Content-Type", "application/json")
	switch r.PostForm.Get("grant_type") {
	case "password":
		if r.PostForm.Get("username") != "admin@test.com" || r.PostForm.Get("password") != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"access-1","refresh_token":"refresh-1","token_type":"bearer","expires_in":3600}`))
	case "refresh_token":
		f.refreshCalls.Add(1)
		if r.PostForm.Get("refresh_token") != "refresh-1" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"access-2","refresh_token":"refresh-2","token_type":"bearer","expires_in":1800}`))
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (f *fakeIdP) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	if f.userInfoStatus != 0 {
		w.WriteHeader(f.userInfoStatus)
		return
	}
	switch r.Header.Get("Authorization") {
	case "Bearer access-1", "Bearer access-2":
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"user-1","email":"admin@test.com"}`))
	default:
		w.WriteHeader(http.StatusUnauthorized)
	}
}

func newTestProvider(t *testing.T, f *fakeIdP) *Provider {
	t.Helper()
	p, err := NewProvider(context.Background(), ProviderConfig{
		ClientID:     "admin-ui",
		ClientSecret: "client-secret",
		Scope:        "openid email",
		DiscoveryURL: f.srv.URL + "/.well-known/openid-configuration",
		Timeout:      time.Second,
	})
	require.NoError(t, err)
	return p
}

func TestNewProvider_Discovery(t *testing.T) {
	f := newFakeIdP(t)
	p := newTestProvider(t, f)

	assert.Equal(t, f.srv.URL+"/token", p.config.Endpoint.TokenURL)
	assert.Equal(t, f.srv.URL+"/userinfo", p.userInfoEndpoint)
	assert.Equal(t, []string{"openid", "email"}, p.config.Scopes)
}

func TestNewProvider_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		config ProviderConfig
		errMsg string
	}{
		{name: "missing client ID", config: ProviderConfig{DiscoveryURL: "http://example.com"}, errMsg: "client ID is required"},
		{name: "missing discovery URL", config: ProviderConfig{ClientID: "client"}, errMsg: "discovery URL is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(context.Background(), tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestProvider_SignIn(t *testing.T) {
	f := newFakeIdP(t)
	p := newTestProvider(t, f)

	sess, err := p.SignIn(context.Background(), "admin@test.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "access-1", sess.AccessToken)
	assert.Equal(t, "refresh-1", sess.RefreshToken)
	assert.InDelta(t, 3600, sess.ExpiresInSeconds, 1)
}

func TestProvider_SignInRejected(t *testing.T) {
	f := newFakeIdP(t)
	p := newTestProvider(t, f)

	_, err := p.SignIn(context.Background(), "admin@test.com", "wrong")
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidCredential(err))
}

func TestProvider_SignInUpstreamFailure(t *testing.T) {
	f := newFakeIdP(t)
	p := newTestProvider(t, f)
	f.tokenStatus = http.StatusBadGateway

	_, err := p.SignIn(context.Background(), "admin@test.com", "secret")
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstreamUnavailable(err))
}

func TestProvider_SignInTimeout(t *testing.T) {
	f := newFakeIdP(t)
	p := newTestProvider(t, f)
	p.timeout = 20 * time.Millisecond
	f.tokenDelay = 200 * time.Millisecond

	_, err := p.SignIn(context.Background(), "admin@test.com", "secret")
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstreamUnavailable(err))
}

func TestProvider_ResolveUser(t *testing.T) {
	tests := []struct {
		name        string
		token       string
		status      int
		wantID      string
		wantNil     bool
		wantUnavail bool
	}{
		{name: "valid token", token: "access-1", wantID: "user-1"},
		{name: "empty token", token: "", wantNil: true},
		{name: "rejected token", token: "bogus", wantNil: true},
		{name: "provider 5xx", token: "access-1", status: http.StatusServiceUnavailable, wantUnavail: true},
		{name: "provider 403", token: "access-1", status: http.StatusForbidden, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeIdP(t)
			p := newTestProvider(t, f)
			f.userInfoStatus = tt.status

			id, err := p.ResolveUser(context.Background(), tt.token)
			if tt.wantUnavail {
				require.Error(t, err)
				assert.True(t, apperrors.IsUpstreamUnavailable(err))
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, id)
				return
			}
			require.NotNil(t, id)
			assert.Equal(t, tt.wantID, id.ID)
			assert.Equal(t, "admin@test.com", id.Email)
		})
	}
}

func TestProvider_Refresh(t *testing.T) {
	f := newFakeIdP(t)
	p := newTestProvider(t, f)

	sess, err := p.Refresh(context.Background(), "refresh-1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "access-2", sess.AccessToken)
	assert.Equal(t, "refresh-2", sess.RefreshToken)

	sess, err = p.Refresh(context.Background(), "revoked")
	require.NoError(t, err)
	assert.Nil(t, sess)

	sess, err = p.Refresh(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestProvider_RefreshSharesConcurrentExchanges(t *testing.T) {
	f := newFakeIdP(t)
	f.tokenDelay = 300 * time.Millisecond
	p := newTestProvider(t, f)

	const callers = 5
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		got   = make([]string, callers)
	)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			sess, err := p.Refresh(context.Background(), "refresh-1")
			if err == nil && sess != nil {
				got[i] = sess.AccessToken
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), f.refreshCalls.Load())
	for _, tok := range got {
		assert.Equal(t, "access-2", tok)
	}
}

func TestProvider_RefreshSurvivesFirstCallerCancel(t *testing.T) {
	f := newFakeIdP(t)
	f.tokenDelay = 300 * time.Millisecond
	p := newTestProvider(t, f)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, err := p.Refresh(firstCtx, "refresh-1")
		firstDone <- err
	}()

	time.Sleep(50 * time.Millisecond)
	secondDone := make(chan *domainauth.UpstreamSession, 1)
	go func() {
		sess, err := p.Refresh(context.Background(), "refresh-1")
		if err != nil {
			sess = nil
		}
		secondDone <- sess
	}()

	time.Sleep(50 * time.Millisecond)
	cancelFirst()

	select {
	case sess := <-secondDone:
		require.NotNil(t, sess, "a cancelled caller must not fail the shared exchange")
		assert.Equal(t, "access-2", sess.AccessToken)
	case <-time.After(2 * time.Second):
		t.Fatal("shared refresh did not finish")
	}
	assert.NoError(t, <-firstDone)
	assert.Equal(t, int32(1), f.refreshCalls.Load())
}

func TestProvider_RefreshUpstreamFailure(t *testing.T) {
	f := newFakeIdP(t)
	p := newTestProvider(t, f)
	f.tokenStatus = http.StatusInternalServerError

	_, err := p.Refresh(context.Background(), "refresh-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstreamUnavailable(err))
}
