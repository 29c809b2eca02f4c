// Package cli implements the keyshelf command-line interface.
package cli

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"keyshelf/internal/config"
	internaldb "keyshelf/internal/db"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// state is resolved once in PersistentPreRunE and shared by subcommands.
type state struct {
	cfg    *config.Config
	logger *slog.Logger
}

// openDB opens the write/read pool pair and applies pending migrations.
func (rt *state) openDB() (writeDB, readDB *sql.DB, err error) {
	writeDB, readDB, err = internaldb.OpenSQLitePair(rt.cfg.DBPath, 4)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := internaldb.RunMigrations(writeDB); err != nil {
		_ = writeDB.Close()
		_ = readDB.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return writeDB, readDB, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func newRootCmd() *cobra.Command {
	var (
		configFile string
		envFile    string
		logLevel   string
	)
	rt := &state{}

	rootCmd := &cobra.Command{
		Use:           "keyshelf",
		Short:         "Shared API key vault",
		Long:          "keyshelf stores provider API keys encrypted at rest and shares them with team members.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			rt.cfg = cfg
			rt.logger = newLogger(cmd.ErrOrStderr(), cfg.SlogLevel())
			slog.SetDefault(rt.logger)
			for _, w := range cfg.Warnings {
				rt.logger.Warn(w)
			}
			cmd.Flags().Visit(func(f *pflag.Flag) {
				rt.logger.Debug("flag set", "command", cmd.Name(), "flag", f.Name, "value", f.Value.String())
			})
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (default $CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	rootCmd.AddCommand(newServeCmd(rt))
	rootCmd.AddCommand(newMigrateCmd(rt))
	rootCmd.AddCommand(newTokenCmd(rt))
	rootCmd.AddCommand(newKeygenCmd())
	rootCmd.AddCommand(newSweepGrantsCmd(rt))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the keyshelf version",
		Args:  cobra.NoArgs,
		// Skip config loading.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "keyshelf version %s (commit: %s)\n", version, commit)
			return nil
		},
	}
}
