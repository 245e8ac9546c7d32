package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/funyblog/funyblog/internal/config"
	"github.com/funyblog/funyblog/internal/database"
	"github.com/funyblog/funyblog/internal/repository"
	"github.com/funyblog/funyblog/internal/server"
	"github.com/funyblog/funyblog/internal/service"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg)

			db, err := database.Open(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if migrate {
				if err := database.Migrate(db, cfg.DBDriver, logger); err != nil {
					return err
				}
			}

			rdb, err := config.NewRedisClient(cfg.Redis)
			if err != nil {
				logger.Warn("redis unreachable, login throttle falls back to memory", "addr", cfg.Redis.Addr, "error", err)
			}
			if rdb != nil {
				defer rdb.Close()
			}

			deps := server.Deps{
				Config: cfg,
				Users:  repository.NewUserRepo(db),
				Redis:  rdb,
				Logger: logger,
			}
			if p := service.NewAuditPublisher(cfg.AMQPURL); p != nil {
				deps.Audit = p
			}
			e, err := server.New(deps)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr := ":" + cfg.Port
			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening", "addr", addr, "env", cfg.Env, "db", cfg.DBDriver)
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}
