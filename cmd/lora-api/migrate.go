package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorahealth/lora/backend/internal/config"
	"github.com/lorahealth/lora/backend/internal/logger"
	"github.com/lorahealth/lora/backend/internal/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the sample store schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		log := newLogger(cfg)

		db, err := repository.Open(cmd.Context(), cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(cmd.Context()); err != nil {
			return err
		}
		log.Info("migrations applied", logger.String("driver", db.Driver()))
		return nil
	},
}
