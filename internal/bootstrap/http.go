package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/campus-admin/admingate/config"
	"github.com/campus-admin/admingate/internal/data"
	httpx "github.com/campus-admin/admingate/internal/http"
	"github.com/campus-admin/admingate/internal/observability/metrics"
	"github.com/campus-admin/admingate/internal/observability/statsd"
)

// MetricsBundle pairs the auth recorder with the handler exposing it.
type MetricsBundle struct {
	Recorder metrics.Recorder
	Handler  http.Handler
	// Close releases sink connections. Never nil.
	Close func() error
}

// BuildMetrics registers the auth collectors on a dedicated registry and, when configured,
// mirrors every event to StatsD. Disabled metrics yield a no-op recorder and no handler.
func BuildMetrics(ctx context.Context, cfg config.ObservabilityConfig, logger *slog.Logger) (MetricsBundle, error) {
	bundle := MetricsBundle{Close: func() error { return nil }}
	var recs []metrics.Recorder

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		recs = append(recs, metrics.NewAuth(reg))
		bundle.Handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}

	if cfg.StatsD.Enabled {
		client, err := statsd.Dial(ctx, statsd.Config{
			Address: cfg.StatsD.Address,
			Prefix:  cfg.StatsD.Prefix,
			Logger:  logger,
		})
		if err != nil {
			return MetricsBundle{}, fmt.Errorf("statsd: %w", err)
		}
		recs = append(recs, statsd.NewRecorder(client))
		bundle.Close = client.Close
	}

	bundle.Recorder = metrics.Combine(recs...)
	return bundle, nil
}

// ReadinessChecks builds a probe per configured dependency.
func ReadinessChecks(db *data.DB, redisClient redis.UniversalClient) map[string]httpx.ReadinessCheck {
	checks := make(map[string]httpx.ReadinessCheck)
	if db != nil {
		checks["postgres"] = func(ctx context.Context) error { return db.Pool.Ping(ctx) }
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	return checks
}

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config  *config.AppConfig
	Auth    *AuthComponents
	Metrics MetricsBundle
	Checks  map[string]httpx.ReadinessCheck
	Logger  *slog.Logger
}

// BuildHTTPHandler assembles the router from the wired components.
func BuildHTTPHandler(cfg *HTTPServerConfig) (http.Handler, error) {
	if cfg == nil || cfg.Config == nil || cfg.Auth == nil {
		return nil, errors.New("http server config, app config and auth components are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config

	protected := appCfg.HTTP.ProtectedPaths
	if len(protected) == 0 {
		protected = httpx.DefaultProtectedPatterns
	}
	public := appCfg.HTTP.PublicPaths
	if len(public) == 0 {
		public = httpx.DefaultPublicPatterns
	}
	paths, err := httpx.NewPathMatcher(protected, public)
	if err != nil {
		return nil, fmt.Errorf("path patterns: %w", err)
	}

	cookies, err := httpx.NewCookiePolicy(appCfg.HTTP.CookieDomain, appCfg.HTTP.SecureCookies(), appCfg.Auth.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("cookie policy: %w", err)
	}

	recorder := cfg.Metrics.Recorder
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	return httpx.NewRouter(httpx.RouterOptions{
		Auth:                  cfg.Auth.Service,
		Authenticator:         cfg.Auth.Authenticator,
		Paths:                 paths,
		Cookies:               cookies,
		LoginPath:             appCfg.HTTP.LoginPath,
		LandingPath:           appCfg.HTTP.LandingPath,
		TrustProxyHeaders:     appCfg.HTTP.TrustProxyHeaders,
		APIRateLimitPerMinute: appCfg.HTTP.APIRateLimitPerMinute,
		Production:            appCfg.HTTP.IsProduction(),
		MetricsHandler:        cfg.Metrics.Handler,
		MetricsPath:           appCfg.Observability.Metrics.Path,
		ReadinessChecks:       cfg.Checks,
		Logger:                logger,
		Metrics:               recorder,
	}), nil
}

// NewHTTPServer wraps handler in an http.Server with the configured timeouts.
func NewHTTPServer(cfg config.HTTPConfig, handler http.Handler) *http.Server {
	addr := cfg.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}
}

func startServer(logger *slog.Logger, server *http.Server, errCh chan<- error) {
	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Timeout time.Duration
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(cfg.Context, timeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}
