package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/campus-admin/admingate/config"
	"github.com/campus-admin/admingate/internal/bootstrap"
)

const defaultMigrationTimeout = 5 * time.Minute

// commandContext carries what every subcommand needs. Config is loaded lazily
// so hash-password works without any environment.
type commandContext struct {
	Logger *slog.Logger
	load   func() (config.AppConfig, error)
	cfg    *config.AppConfig
}

func (c *commandContext) config() (*config.AppConfig, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := c.load()
	if err != nil {
		return nil, err
	}
	c.cfg = &cfg
	return c.cfg, nil
}

func main() {
	logger := bootstrap.InitLogger(config.LoggingConfig{Format: "text", Level: "info"})
	cc := &commandContext{Logger: logger, load: bootstrap.LoadConfig}

	if err := newRootCmd(cc).ExecuteContext(context.Background()); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func newRootCmd(cc *commandContext) *cobra.Command {
	root := &cobra.Command{
		Use:   "admingate-admin",
		Short: "Operator tooling for the admin gate",
		Long: `admingate-admin manages the pieces of the admin gate that live outside the
request path: schema migrations, authorization profiles, limiter state and
credential debugging.

Configuration is read from the same environment variables as the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		migrateCmd(cc),
		profileCmd(cc),
		tokenCmd(cc),
		rateLimitCmd(cc),
		hashPasswordCmd(),
	)
	return root
}

func migrateCmd(cc *commandContext) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cc.config()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := bootstrap.RunMigrations(ctx, cfg.Postgres, cc.Logger); err != nil {
				return err
			}
			return writef(cmd.OutOrStdout(), "migrations applied to %s\n", cfg.Postgres.Name)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", defaultMigrationTimeout, "Maximum time to wait for migrations")
	return cmd
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
