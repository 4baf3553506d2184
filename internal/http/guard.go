package httpx

import (
	"log/slog"
	"net/http"

	"github.com/campus-admin/admingate/internal/observability/metrics"
	"github.com/campus-admin/admingate/internal/service"
)

// GuardOptions groups dependencies for Guard.
type GuardOptions struct {
	Authenticator *service.Authenticator
	LoginPath     string
	Logger        *slog.Logger
	Metrics       metrics.Recorder
}

// Guard re-derives identity and authorization where protected content is produced.
// It reads only the auth cookies and never trusts anything the gatekeeper decided.
// It does not refresh: a stale access token here is a denial.
type Guard struct {
	authn     *service.Authenticator
	loginPath string
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// NewGuard constructs a Guard.
func NewGuard(opts GuardOptions) *Guard {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loginPath := opts.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}
	return &Guard{
		authn:     opts.Authenticator,
		loginPath: loginPath,
		logger:    logger.With("component", "guard"),
		metrics:   metrics.OrNop(opts.Metrics),
	}
}

func (g *Guard) check(r *http.Request) service.Outcome {
	out := g.authn.Authenticate(r.Context(), readCredentials(r), service.AuthenticateOptions{})
	g.metrics.GateDecision(metrics.LayerGuard, string(out.State))
	if out.State == service.StateUnavailable {
		g.logger.ErrorContext(r.Context(), "auth dependency unavailable",
			"path", r.URL.Path, "trace", out.Trace, "error", out.Cause)
	}
	return out
}

// RequireAdminPage wraps a page handler. Denied requests are redirected to the login path.
func (g *Guard) RequireAdminPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := g.check(r)
		switch {
		case out.Allowed():
			next.ServeHTTP(w, r.WithContext(SetUserInContext(r.Context(), out.Decision.User)))
		case out.State == service.StateUnavailable:
			http.Error(w, msgInternal, http.StatusInternalServerError)
		default:
			redirectToLogin(w, r, g.loginPath)
		}
	})
}

// RequireAdminAPI wraps an API handler. Denied requests get a JSON 401, 403 or 500.
func (g *Guard) RequireAdminAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := g.check(r)
		if out.Allowed() {
			next.ServeHTTP(w, r.WithContext(SetUserInContext(r.Context(), out.Decision.User)))
			return
		}
		status, msg := authErrorResponse(out.Err())
		if status == http.StatusUnauthorized {
			msg = msgAuthRequired
		}
		writeFailure(w, status, msg)
	})
}
