package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/sentinel/integration/database/pg"
	"github.com/dmitrymomot/sentinel/internal/bootstrap"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded Postgres migrations (rate_limits, security_events)",
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := bootstrap.Load()
			if err != nil {
				return err
			}
			log := bootstrap.Logger(cfg)

			pool, err := pg.Connect(c.Context(), cfg.Postgres)
			if err != nil {
				return err
			}
			defer pool.Close()

			return pg.Migrate(c.Context(), pool, cfg.Postgres, log)
		},
	}
}
