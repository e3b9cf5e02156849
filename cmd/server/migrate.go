package main

import (
	"errors"

	"github.com/spf13/cobra"

	"courier/internal/platform/config"
	"courier/internal/platform/logger"
	"courier/internal/platform/postgres"
)

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the principal and security event tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := logger.New(cfg.LogLevel)

			ctx := cmd.Context()
			db, err := postgres.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			if db == nil {
				return errors.New("database.url is not configured")
			}
			defer db.Close()

			if err := postgres.Migrate(ctx, db); err != nil {
				return err
			}
			log.InfoContext(ctx, "schema migrated")
			return nil
		},
	}
}
