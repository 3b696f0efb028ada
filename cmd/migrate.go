package cmd

import (
	"github.com/spf13/cobra"

	"metro-ticketing/internal/config"
	"metro-ticketing/internal/db"
	"metro-ticketing/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration(db.Up)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert all migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration(db.Down)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}

func runMigration(dir db.Direction) error {
	cfg := config.LoadConfig()
	log := logger.InitLogger(cfg.LogLevel, cfg.LogFormat)

	if err := db.Migrate(cfg.DBUrl, dir); err != nil {
		log.Error().Err(err).Str("direction", string(dir)).Msg("Migration failed")
		return err
	}
	log.Info().Str("direction", string(dir)).Msg("Migrations applied")
	return nil
}
