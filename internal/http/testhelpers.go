package httpx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campus-admin/admingate/internal/adapters/apptoken"
	"github.com/campus-admin/admingate/internal/adapters/ratelimit"
	domainauth "github.com/campus-admin/admingate/internal/domain/auth"
	mocks "github.com/campus-admin/admingate/internal/mocks/auth"
	"github.com/campus-admin/admingate/internal/service"
	"github.com/campus-admin/admingate/internal/testutil"
)

const testPassword = "correct-horse"

// testClock is a mutable clock shared by the limiter and handlers under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// gateHarness wires the full router against in-memory doubles.
type gateHarness struct {
	IdP      *mocks.MockIdentityProvider
	Profiles *mocks.MemoryProfileStore
	Tokens   *apptoken.Manager
	Clock    *testClock
	Authn    *service.Authenticator
	Auth     *service.AuthService
	Cookies  CookiePolicy
	Handler  http.Handler
}

type harnessOptions struct {
	legacyTokens bool
}

func newGateHarness(t *testing.T, opts ...func(*harnessOptions)) *gateHarness {
	t.Helper()
	o := harnessOptions{legacyTokens: true}
	for _, fn := range opts {
		fn(&o)
	}

	idp := mocks.NewMockIdentityProvider().
		AddAccount("admin-1", "admin@test.com", testPassword).
		AddAccount("staff-1", "staff@test.com", testPassword).
		AddAccount("disabled-1", "disabled@test.com", testPassword)
	profiles := mocks.NewMemoryProfileStore(
		testutil.NewProfile("admin-1").WithEmail("admin@test.com").WithName("Ada Admin").Build(),
		testutil.NewProfile("staff-1").WithEmail("staff@test.com").WithRole(domainauth.RoleStaff).Build(),
		testutil.NewProfile("disabled-1").WithEmail("disabled@test.com").Disabled().Build(),
	)
	clock := &testClock{now: time.Now().Truncate(time.Second)}

	tokens, err := apptoken.NewManager(apptoken.Options{
		Secret: []byte("0123456789abcdef0123456789abcdef"),
		Now:    clock.Now,
	})
	require.NoError(t, err)
	limiter, err := ratelimit.NewMemory(ratelimit.MemoryOptions{MaxAttempts: 5, Window: 15 * time.Minute, Now: clock.Now})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authorizer := service.NewAuthorizer(service.AuthorizerOptions{Profiles: profiles, Logger: logger})
	authn := service.NewAuthenticator(service.AuthenticatorOptions{
		Provider:     idp,
		Tokens:       tokens,
		Authorizer:   authorizer,
		LegacyTokens: o.legacyTokens,
		Logger:       logger,
	})
	authSvc := service.NewAuthService(service.AuthServiceOptions{
		Provider:      idp,
		Profiles:      profiles,
		Authorizer:    authorizer,
		Tokens:        tokens,
		Limiter:       limiter,
		IssueAppToken: true,
		Logger:        logger,
		Now:           clock.Now,
	})
	t.Cleanup(authSvc.Wait)

	cookies, err := NewCookiePolicy("", false, 0)
	require.NoError(t, err)

	return &gateHarness{
		IdP:      idp,
		Profiles: profiles,
		Tokens:   tokens,
		Clock:    clock,
		Authn:    authn,
		Auth:     authSvc,
		Cookies:  cookies,
		Handler: NewRouter(RouterOptions{
			Auth:          authSvc,
			Authenticator: authn,
			Cookies:       cookies,
			Logger:        logger,
			Now:           clock.Now,
		}),
	}
}

// browser is a minimal cookie-carrying client for driving the router in-process.
type browser struct {
	t       *testing.T
	h       http.Handler
	cookies map[string]string
}

func (g *gateHarness) browser(t *testing.T) *browser {
	return &browser{t: t, h: g.Handler, cookies: map[string]string{}}
}

func (b *browser) do(r *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	for name, value := range b.cookies {
		r.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	rec := httptest.NewRecorder()
	b.h.ServeHTTP(rec, r)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c.Value
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) postJSON(path, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return b.do(r)
}

func (b *browser) login(email, password string) *httptest.ResponseRecorder {
	return b.postJSON("/api/auth/login", `{"email":"`+email+`","password":"`+password+`"}`)
}

// responseCookies indexes the Set-Cookie headers of rec by name.
func responseCookies(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}
