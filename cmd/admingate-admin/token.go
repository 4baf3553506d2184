package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/campus-admin/admingate/config"
	"github.com/campus-admin/admingate/internal/adapters/apptoken"
)

func tokenCmd(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Debug self-issued admin tokens",
	}
	cmd.AddCommand(tokenInspectCmd(cc))
	return cmd
}

func tokenInspectCmd(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <token|->",
		Short: "Verify an admin_token value against AUTH_JWT_SECRET and print its claims",
		Long: `Verify an admin_token value and print its claims.

The role claim is informational only: the gate always authorizes from the
profile store. Pass "-" to read the token from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.config()
			if err != nil {
				return err
			}
			raw := args[0]
			if raw == "-" {
				if raw, err = readLine(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			return inspectToken(cmd.OutOrStdout(), cfg.Auth, raw)
		},
	}
}

var errTokenInvalid = errors.New("token is not valid")

func inspectToken(w io.Writer, cfg config.AuthConfig, raw string) error {
	m, err := apptoken.NewManager(apptoken.Options{
		Secret: []byte(cfg.JWTSecret),
		TTL:    cfg.TokenTTL,
		Issuer: cfg.JWTIssuer,
	})
	if err != nil {
		return err
	}

	if claims, ok := m.Verify(raw); ok {
		return writef(w, "valid\nsub: %s\nemail: %s\nname: %s\nrole: %s\niat: %s\nexp: %s\n",
			claims.UserID, claims.Email, claims.Name, claims.Role,
			claims.IssuedAt.UTC().Format(time.RFC3339), claims.ExpiresAt.UTC().Format(time.RFC3339))
	}

	// Show what the token claims to be so operators can see why it failed.
	unverified := jwt.MapClaims{}
	if _, _, perr := jwt.NewParser().ParseUnverified(raw, unverified); perr != nil {
		if err := writef(w, "invalid: malformed token: %v\n", perr); err != nil {
			return err
		}
		return errTokenInvalid
	}
	if err := writef(w, "invalid: signature, issuer or expiry check failed\n"); err != nil {
		return err
	}
	for _, key := range []string{"sub", "email", "role", "iss", "exp"} {
		if v, ok := unverified[key]; ok {
			if err := writef(w, "  %s: %v\n", key, v); err != nil {
				return err
			}
		}
	}
	return errTokenInvalid
}

func hashPasswordCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Read a password from stdin and print a bcrypt hash for DEV_AUTH_USERS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := readLine(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if pw == "" {
				return errors.New("password must not be empty")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			return writef(cmd.OutOrStdout(), "%s\n", hash)
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
