package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/campus-admin/admingate/internal/observability/metrics"
	"github.com/campus-admin/admingate/internal/service"
)

const defaultReadinessTimeout = 2 * time.Second

// RouterOptions holds everything the HTTP router needs.
type RouterOptions struct {
	Auth          LoginService
	Authenticator *service.Authenticator
	Paths         *PathMatcher
	Cookies       CookiePolicy
	LoginPath     string
	LandingPath   string
	// TrustProxyHeaders applies X-Forwarded-For / X-Real-IP to the client address.
	TrustProxyHeaders bool
	// APIRateLimitPerMinute is a coarse per-IP throttle on /api. Zero disables it.
	APIRateLimitPerMinute int
	Production            bool
	// MetricsHandler serves MetricsPath (default /metrics) when set.
	MetricsHandler  http.Handler
	MetricsPath     string
	ReadinessChecks map[string]ReadinessCheck
	Logger          *slog.Logger
	Metrics         metrics.Recorder
	Now             func() time.Time
}

// NewRouter creates the HTTP router. The gatekeeper runs before route matching;
// protected handlers are additionally wrapped by the server-side guard.
func NewRouter(opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loginPath := opts.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}
	landingPath := opts.LandingPath
	if landingPath == "" {
		landingPath = "/admin"
	}

	guard := NewGuard(GuardOptions{
		Authenticator: opts.Authenticator,
		LoginPath:     loginPath,
		Logger:        logger,
		Metrics:       opts.Metrics,
	})
	authHandlers := &AuthHandlers{
		Svc:           opts.Auth,
		Authenticator: opts.Authenticator,
		Cookies:       opts.Cookies,
		LoginPath:     loginPath,
		LandingPath:   landingPath,
		Logger:        logger,
		Now:           opts.Now,
	}
	pages := &Pages{LoginPath: loginPath, Cookies: opts.Cookies, Logger: logger}

	r := chi.NewRouter()
	if opts.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(
		middleware.RequestID,
		Recover(logger),
		Logging(logger),
		SecureHeaders(opts.Production, logger),
		Gatekeeper(GatekeeperOptions{
			Authenticator: opts.Authenticator,
			Paths:         opts.Paths,
			Cookies:       opts.Cookies,
			LoginPath:     loginPath,
			LandingPath:   landingPath,
			Logger:        logger,
			Metrics:       opts.Metrics,
		}),
	)
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/healthz", healthHandler)
	r.Head("/healthz", healthHandler)
	r.Get("/readyz", readinessHandler(opts.ReadinessChecks, defaultReadinessTimeout, logger))
	if opts.MetricsHandler != nil {
		metricsPath := opts.MetricsPath
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		r.Handle(metricsPath, opts.MetricsHandler)
	}

	r.With(NoStore).Get(loginPath, pages.Login)
	r.Group(func(r chi.Router) {
		r.Use(NoStore, guard.RequireAdminPage)
		r.Get(landingPath, pages.Admin)
		r.Get(landingPath+"/*", pages.Admin)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(NoStore, RequireFormCSRF)
		if opts.APIRateLimitPerMinute > 0 {
			r.Use(httprate.LimitByIP(opts.APIRateLimitPerMinute, time.Minute))
		}
		r.Post("/auth/login", authHandlers.Login)
		r.Get("/auth/validate", authHandlers.Validate)
		r.Post("/auth/logout", authHandlers.Logout)

		r.Route("/admin", func(r chi.Router) {
			r.Use(guard.RequireAdminAPI)
			r.Get("/me", pages.Me)
		})
	})

	return r
}
