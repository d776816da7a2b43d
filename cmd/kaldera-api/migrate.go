package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kaldera-app/backend/internal/config"
	"github.com/kaldera-app/backend/internal/logger"
	"github.com/kaldera-app/backend/internal/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Create or update the database schema and exit.`,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := repository.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := repository.Migrate(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	logger.Default().Info("migrations applied",
		logger.String("driver", cfg.Database.Driver),
	)
	return nil
}
