package httpx

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/campus-admin/admingate/internal/observability/metrics"
	"github.com/campus-admin/admingate/internal/service"
)

// GatekeeperOptions groups dependencies for the edge gatekeeper.
type GatekeeperOptions struct {
	Authenticator *service.Authenticator
	Paths         *PathMatcher
	Cookies       CookiePolicy
	// LoginPath is where unauthenticated page requests are sent. Defaults to "/login".
	LoginPath string
	// LandingPath is where an already-authorized admin visiting LoginPath is sent. Defaults to "/admin".
	LandingPath string
	Logger      *slog.Logger
	Metrics     metrics.Recorder
}

type gatekeeper struct {
	authn       *service.Authenticator
	paths       *PathMatcher
	cookies     CookiePolicy
	loginPath   string
	landingPath string
	logger      *slog.Logger
	metrics     metrics.Recorder
}

// Gatekeeper returns the edge middleware. It runs before routing, authenticates
// requests to protected paths (refreshing the upstream session at most once) and
// turns denials into a login redirect or a JSON error. Its only side effects are
// cookie writes.
func Gatekeeper(opts GatekeeperOptions) func(http.Handler) http.Handler {
	g := &gatekeeper{
		authn:       opts.Authenticator,
		paths:       opts.Paths,
		cookies:     opts.Cookies,
		loginPath:   opts.LoginPath,
		landingPath: opts.LandingPath,
		logger:      opts.Logger,
		metrics:     metrics.OrNop(opts.Metrics),
	}
	if g.paths == nil {
		g.paths = MustPathMatcher(DefaultProtectedPatterns, DefaultPublicPatterns)
	}
	if g.loginPath == "" {
		g.loginPath = "/login"
	}
	if g.landingPath == "" {
		g.landingPath = "/admin"
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	g.logger = g.logger.With("component", "gatekeeper")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.URL.Path == g.loginPath && (r.Method == http.MethodGet || r.Method == http.MethodHead):
				g.serveLogin(w, r, next)
			case g.paths.Protected(r.URL.Path):
				g.serveProtected(w, r, next)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func (g *gatekeeper) serveProtected(w http.ResponseWriter, r *http.Request, next http.Handler) {
	creds := readCredentials(r)
	out := g.authn.Authenticate(r.Context(), creds, service.AuthenticateOptions{AllowRefresh: true})
	g.metrics.GateDecision(metrics.LayerEdge, string(out.State))

	if out.Allowed() {
		if out.Refreshed != nil {
			g.cookies.SetSession(w, *out.Refreshed)
			replaceSessionCookies(r, *out.Refreshed)
		}
		next.ServeHTTP(w, r)
		return
	}

	if out.State == service.StateUnavailable {
		g.logger.ErrorContext(r.Context(), "auth dependency unavailable",
			"path", r.URL.Path, "trace", out.Trace, "error", out.Cause)
		if isAPIRequest(r) {
			writeFailure(w, http.StatusInternalServerError, msgInternal)
			return
		}
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}

	g.logger.DebugContext(r.Context(), "request denied", "path", r.URL.Path, "trace", out.Trace)
	if !creds.Empty() {
		g.cookies.ClearAll(w)
	}
	if isAPIRequest(r) {
		status, msg := authErrorResponse(out.Err())
		if status == http.StatusUnauthorized {
			msg = msgAuthRequired
		}
		writeFailure(w, status, msg)
		return
	}
	redirectToLogin(w, r, g.loginPath)
}

// serveLogin short-circuits the login page for a request that already holds a
// valid admin credential.
func (g *gatekeeper) serveLogin(w http.ResponseWriter, r *http.Request, next http.Handler) {
	creds := readCredentials(r)
	if creds.Empty() {
		next.ServeHTTP(w, r)
		return
	}

	out := g.authn.Authenticate(r.Context(), creds, service.AuthenticateOptions{AllowRefresh: true})
	g.metrics.GateDecision(metrics.LayerEdge, string(out.State))
	switch {
	case out.Allowed():
		if out.Refreshed != nil {
			g.cookies.SetSession(w, *out.Refreshed)
		}
		dest := safeRedirectPath(r.URL.Query().Get("redirect_uri"))
		if dest == "/" || strings.HasPrefix(dest, g.loginPath) {
			dest = g.landingPath
		}
		http.Redirect(w, r, dest, http.StatusSeeOther)
	case out.State == service.StateUnavailable:
		g.logger.WarnContext(r.Context(), "auth dependency unavailable on login page", "error", out.Cause)
		next.ServeHTTP(w, r)
	default:
		g.cookies.ClearAll(w)
		next.ServeHTTP(w, r)
	}
}

// redirectToLogin sends a page request to the login path with the current URL as redirect_uri.
func redirectToLogin(w http.ResponseWriter, r *http.Request, loginPath string) {
	q := url.Values{}
	q.Set("redirect_uri", safeRedirectPath(r.URL.RequestURI()))
	http.Redirect(w, r, loginPath+"?"+q.Encode(), http.StatusSeeOther)
}

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute URL. Returns "/" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	if strings.HasPrefix(candidate, "//") || strings.Contains(candidate, `\`) {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return candidate
}

func isAPIRequest(r *http.Request) bool {
	return r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/")
}
