package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	internaldb "keyshelf/internal/db"
	"keyshelf/internal/db/crypto"
	"keyshelf/internal/db/repository"
	"keyshelf/internal/middleware"
	"keyshelf/internal/service/hygiene"
)

func newMigrateCmd(rt *state) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			writeDB, readDB, err := rt.openDB()
			if err != nil {
				return err
			}
			defer writeDB.Close() //nolint:errcheck
			defer readDB.Close()  //nolint:errcheck

			v, err := internaldb.MigrationVersion(writeDB)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
			return nil
		},
	}
}

func newTokenCmd(rt *state) *cobra.Command {
	var (
		subject string
		email   string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an HS256 development token",
		Long:  "Mint a bearer token signed with JWT_SECRET. The server accepts it only when OIDC is not configured.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rt.cfg.Auth.OIDCEnabled() {
				return fmt.Errorf("OIDC is configured; HS256 tokens would be rejected")
			}
			if subject == "" {
				subject = email
			}
			tok, err := middleware.MintHS256(rt.cfg.Auth.JWTSecret, rt.cfg.Auth.JWTIssuer, subject, email, ttl)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim (required)")
	cmd.Flags().StringVar(&subject, "subject", "", "sub claim (default: the email)")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print a random ENCRYPTION_KEY",
		Args:  cobra.NoArgs,
		// Needs no config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := crypto.GenerateKey()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}

func newSweepGrantsCmd(rt *state) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-grants",
		Short: "Remove share grants whose grantee is no longer a member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			writeDB, readDB, err := rt.openDB()
			if err != nil {
				return err
			}
			defer writeDB.Close() //nolint:errcheck
			defer readDB.Close()  //nolint:errcheck

			sweeper := hygiene.NewSweeper(repository.NewGrantRepo(writeDB).WithReadPool(readDB), "", rt.logger)
			n, err := sweeper.SweepOnce(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %d orphaned grant(s)\n", n)
			return nil
		},
	}
}
