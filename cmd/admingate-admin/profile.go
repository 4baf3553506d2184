package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/campus-admin/admingate/internal/bootstrap"
	"github.com/campus-admin/admingate/internal/data"
	domainauth "github.com/campus-admin/admingate/internal/domain/auth"
)

const profileCommandTimeout = 30 * time.Second

func profileCmd(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage admin authorization profiles",
		Long: `Manage the profiles that decide who may use the admin surface.

A user must authenticate upstream AND have an active profile with role "admin".

Examples:
  admingate-admin profile upsert --user-id 7f9c... --email ada@example.com --name "Ada" --role admin
  admingate-admin profile disable 7f9c...
  admingate-admin profile show 7f9c...`,
	}
	cmd.AddCommand(
		profileUpsertCmd(cc),
		profileSetActiveCmd(cc, "enable", true),
		profileSetActiveCmd(cc, "disable", false),
		profileShowCmd(cc),
	)
	return cmd
}

// withProfileRepo opens the database for the duration of fn.
func withProfileRepo(ctx context.Context, cc *commandContext, fn func(context.Context, *data.ProfileRepo) error) error {
	cfg, err := cc.config()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, profileCommandTimeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(ctx, bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, Logger: cc.Logger})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer db.Close()

	return fn(ctx, data.NewProfileRepo(db))
}

func profileUpsertCmd(cc *commandContext) *cobra.Command {
	var (
		p        domainauth.Profile
		role     string
		disabled bool
	)
	cmd := &cobra.Command{
		Use:   "upsert",
		Short: "Create or replace a profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := parseRole(role)
			if err != nil {
				return err
			}
			p.Role = r
			p.IsActive = !disabled
			return withProfileRepo(cmd.Context(), cc, func(ctx context.Context, repo *data.ProfileRepo) error {
				stored, err := repo.Upsert(ctx, p)
				if err != nil {
					return err
				}
				return printProfile(cmd.OutOrStdout(), stored)
			})
		},
	}
	cmd.Flags().StringVar(&p.UserID, "user-id", "", "Upstream user id (required)")
	cmd.Flags().StringVar(&p.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&p.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&role, "role", string(domainauth.RoleAdmin), "Role: admin or staff")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Store the profile as inactive")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func profileSetActiveCmd(cc *commandContext, verb string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <user-id>",
		Short: verb + " an existing profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProfileRepo(cmd.Context(), cc, func(ctx context.Context, repo *data.ProfileRepo) error {
				if err := repo.SetActive(ctx, args[0], active); err != nil {
					if errors.Is(err, data.ErrProfileNotFound) {
						return fmt.Errorf("no profile for user %q", args[0])
					}
					return err
				}
				return writef(cmd.OutOrStdout(), "profile %s: active=%t\n", args[0], active)
			})
		},
	}
}

func profileShowCmd(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Print a profile and the gate decision it produces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProfileRepo(cmd.Context(), cc, func(ctx context.Context, repo *data.ProfileRepo) error {
				p, err := repo.GetByUserID(ctx, args[0])
				if err != nil {
					return err
				}
				if p == nil {
					return writef(cmd.OutOrStdout(), "no profile for user %q (decision: %s)\n",
						args[0], domainauth.DenyNotAdmin)
				}
				return printProfile(cmd.OutOrStdout(), p)
			})
		},
	}
}

func parseRole(s string) (domainauth.Role, error) {
	switch r := domainauth.Role(s); r {
	case domainauth.RoleAdmin, domainauth.RoleStaff:
		return r, nil
	default:
		return "", fmt.Errorf("invalid role %q (valid options: admin, staff)", s)
	}
}

func printProfile(w io.Writer, p *domainauth.Profile) error {
	decision := "allowed"
	if d := domainauth.Decide(p); !d.IsAdmin {
		decision = "denied: " + string(d.Reason)
	}
	lastLogin := "never"
	if p.LastLogin != nil {
		lastLogin = p.LastLogin.UTC().Format(time.RFC3339)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"user_id", p.UserID},
		{"email", p.Email},
		{"name", p.Name},
		{"role", string(p.Role)},
		{"active", fmt.Sprintf("%t", p.IsActive)},
		{"last_login", lastLogin},
		{"decision", decision},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}
