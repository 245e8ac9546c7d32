// Package cli implements the blogd command line: the HTTP server plus the
// operator commands for migrations, admin accounts and the audit consumer.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/funyblog/funyblog/internal/config"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "blogd",
		Short:         "funyblog admin API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return config.LoadDotEnv(envFile)
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to seed the environment from (missing file is ignored)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newCreateAdminCmd())
	rootCmd.AddCommand(newSetPasswordCmd())
	rootCmd.AddCommand(newHashPasswordCmd())
	rootCmd.AddCommand(newAuditCmd())
	return rootCmd
}

// newLogger builds the JSON process logger and installs it as the default.
func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	return logger
}
