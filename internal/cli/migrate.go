package cli

import (
	"github.com/spf13/cobra"

	"github.com/funyblog/funyblog/internal/config"
	"github.com/funyblog/funyblog/internal/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
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

			if err := database.Migrate(db, cfg.DBDriver, logger); err != nil {
				return err
			}
			logger.Info("migrations applied", "driver", cfg.DBDriver)
			return nil
		},
	}
}
