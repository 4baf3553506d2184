package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/campus-admin/admingate/config"
	"github.com/campus-admin/admingate/internal/data"
)

// Infrastructure holds the optional shared connections.
type Infrastructure struct {
	DB          *data.DB
	RedisClient redis.UniversalClient
}

// Close releases every open connection.
func (i *Infrastructure) Close(logger *slog.Logger) {
	if i.DB != nil {
		i.DB.Close()
	}
	if i.RedisClient != nil {
		if err := i.RedisClient.Close(); err != nil {
			logger.Error("close redis failed", "error", err)
		}
	}
}

// ConnectInfrastructure opens only the connections the configuration needs.
func ConnectInfrastructure(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*Infrastructure, error) {
	infra := &Infrastructure{}
	dbCfg := DatabaseConfig{DBConfig: cfg.Postgres, RedisConfig: cfg.Redis, Logger: logger}

	if cfg.NeedsPostgres() {
		if cfg.Postgres.RunMigrationsOnStart {
			if err := RunMigrations(ctx, cfg.Postgres, logger); err != nil {
				return nil, err
			}
		} else {
			logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
		}
		db, err := ConnectDB(ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
		}
		infra.DB = db
	}

	if cfg.NeedsRedis() {
		client, err := ConnectRedis(ctx, dbCfg)
		if err != nil {
			infra.Close(logger)
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		infra.RedisClient = client
	}

	return infra, nil
}

// Run wires the gate and serves until SIGINT/SIGTERM or a server failure.
func Run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	if err := ValidateConfig(cfg); err != nil {
		return err
	}
	if logger == nil {
		logger = slog.Default()
	}

	infra, err := ConnectInfrastructure(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close(logger)

	bundle, err := BuildMetrics(ctx, cfg.Observability, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := bundle.Close(); cerr != nil {
			logger.Error("close metrics sink failed", "error", cerr)
		}
	}()

	auth, err := BuildAuth(ctx, AuthDeps{
		Config:      cfg,
		DB:          infra.DB,
		RedisClient: infra.RedisClient,
		Metrics:     bundle.Recorder,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	handler, err := BuildHTTPHandler(&HTTPServerConfig{
		Config:  cfg,
		Auth:    auth,
		Metrics: bundle,
		Checks:  ReadinessChecks(infra.DB, infra.RedisClient),
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	serviceCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var bg sync.WaitGroup
	bg.Add(1)
	go func() {
		defer bg.Done()
		auth.RunBackground(serviceCtx, cfg.RateLimit)
	}()

	server := NewHTTPServer(cfg.HTTP, handler)
	errCh := make(chan error, 1)
	startServer(logger, server, errCh)

	var runErr error
	select {
	case <-serviceCtx.Done():
		logger.Info("shutting down services...")
	case runErr = <-errCh:
		logger.Error("service error", "error", runErr)
	}
	stop()

	shutdownErr := ShutdownHTTPServer(ShutdownConfig{
		Context: context.WithoutCancel(ctx),
		Server:  server,
		Timeout: cfg.HTTP.ShutdownTimeout,
		Logger:  logger,
	})
	// Let in-flight last-login writes finish before the profile store closes.
	auth.Service.Wait()
	bg.Wait()

	return errors.Join(runErr, shutdownErr)
}
