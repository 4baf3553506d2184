package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/campus-admin/admingate/config"
	redisadapter "github.com/campus-admin/admingate/internal/adapters/redis"
	"github.com/campus-admin/admingate/internal/bootstrap"
)

const rateLimitCommandTimeout = 10 * time.Second

func rateLimitCmd(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Inspect or clear shared login limiter state",
		Long: `Inspect or clear login limiter counters held in Redis.

Keys are "ip:<address>" or "email:<normalized address>" depending on
LOGIN_RATE_LIMIT_KEY. The memory backend is per-process and cannot be
reached from here.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "status <key>",
			Short: "Show remaining attempts for a key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRedisLimiter(cmd.Context(), cc, func(ctx context.Context, l *redisadapter.LoginLimiter) error {
					d, err := l.Check(ctx, args[0])
					if err != nil {
						return err
					}
					if d.Allowed {
						return writef(cmd.OutOrStdout(), "%s: allowed, %d attempts remaining\n", args[0], d.Remaining)
					}
					return writef(cmd.OutOrStdout(), "%s: blocked, retry after %s\n", args[0], d.RetryAfter.Round(time.Second))
				})
			},
		},
		&cobra.Command{
			Use:   "reset <key>",
			Short: "Clear the failure counter for a key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRedisLimiter(cmd.Context(), cc, func(ctx context.Context, l *redisadapter.LoginLimiter) error {
					if err := l.Reset(ctx, args[0]); err != nil {
						return err
					}
					return writef(cmd.OutOrStdout(), "%s: reset\n", args[0])
				})
			},
		},
	)
	return cmd
}

func withRedisLimiter(ctx context.Context, cc *commandContext, fn func(context.Context, *redisadapter.LoginLimiter) error) error {
	cfg, err := cc.config()
	if err != nil {
		return err
	}
	if cfg.RateLimit.Backend != config.RateLimitBackendRedis {
		return errors.New("LOGIN_RATE_LIMIT_BACKEND is not redis; counters live in server memory")
	}
	client, err := bootstrap.ConnectRedis(ctx, bootstrap.DatabaseConfig{RedisConfig: cfg.Redis, Logger: cc.Logger})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			cc.Logger.Error("close redis failed", "error", cerr)
		}
	}()

	l, err := redisadapter.NewLoginLimiter(client, redisadapter.LoginLimiterOptions{
		Prefix:      cfg.Redis.KeyPrefix,
		MaxAttempts: cfg.RateLimit.MaxAttempts,
		Window:      cfg.RateLimit.Window,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, rateLimitCommandTimeout)
	defer cancel()
	return fn(ctx, l)
}
