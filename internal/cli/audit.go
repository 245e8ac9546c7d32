package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/funyblog/funyblog/internal/config"
	"github.com/funyblog/funyblog/internal/queue"
)

func newAuditCmd() *cobra.Command {
	var (
		url    string
		logDir string
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Consume login events and append them to <log-dir>/auth.log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if url == "" {
				url = os.Getenv("AMQP_URL")
			}
			if url == "" {
				url = os.Getenv("RABBITMQ_URL")
			}
			if url == "" {
				return errors.New("no broker configured: set AMQP_URL or pass --url")
			}
			logger := newLogger(cmd.ErrOrStderr(), config.Config{LogLevel: os.Getenv("LOG_LEVEL")})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c := &queue.Consumer{URL: url, LogDir: logDir, Logger: logger}
			if err := c.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			logger.Info("audit consumer stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "AMQP broker URL (defaults to AMQP_URL or RABBITMQ_URL)")
	cmd.Flags().StringVar(&logDir, "log-dir", "logs", "directory for auth.log")
	return cmd
}
