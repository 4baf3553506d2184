package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/campus-admin/admingate/config"
	"github.com/campus-admin/admingate/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger(config.LoggingConfig{Format: "json", Level: "info"})
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	// Re-initialise with the configured level and format.
	logger = bootstrap.InitLogger(cfg.Observability.Logging)

	logStartupInfo(ctx, logger, &cfg)

	return bootstrap.Run(ctx, &cfg, logger)
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting admingate",
		"addr", cfg.HTTP.Addr,
		"env", cfg.HTTP.Env,
		"auth_mode", cfg.Auth.Mode,
		"profile_store", cfg.ProfileStore,
		"limiter", cfg.RateLimit.Backend,
		"cookie_domain", cfg.HTTP.CookieDomain,
	)
}
