package main

import (
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/stwalsh4118/reelplay/internal/config"
	"github.com/stwalsh4118/reelplay/internal/db"
	"github.com/stwalsh4118/reelplay/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrations(cmd, func(database *db.DB, cfg *config.Config) error {
			sqlDB, err := database.GetSQLDB()
			if err != nil {
				return err
			}
			if err := db.RunMigrations(sqlDB, cfg.Database.MigrationsPath); err != nil {
				return err
			}
			return printVersion(cmd, database, cfg)
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back applied migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		steps := lo.Must(cmd.Flags().GetInt("steps"))
		return withMigrations(cmd, func(database *db.DB, cfg *config.Config) error {
			sqlDB, err := database.GetSQLDB()
			if err != nil {
				return err
			}
			if err := db.RollbackMigrations(sqlDB, cfg.Database.MigrationsPath, steps); err != nil {
				return err
			}
			return printVersion(cmd, database, cfg)
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrations(cmd, func(database *db.DB, cfg *config.Config) error {
			return printVersion(cmd, database, cfg)
		})
	},
}

func init() {
	migrateDownCmd.Flags().Int("steps", 1, "Number of migrations to roll back")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}

func withMigrations(cmd *cobra.Command, fn func(database *db.DB, cfg *config.Config) error) error {
	cfg, database, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	return fn(database, cfg)
}

func printVersion(cmd *cobra.Command, database *db.DB, cfg *config.Config) error {
	sqlDB, err := database.GetSQLDB()
	if err != nil {
		return err
	}
	version, dirty, err := db.MigrationVersion(sqlDB, cfg.Database.MigrationsPath)
	if err != nil {
		return err
	}

	logger.Log.Info().
		Uint("version", version).
		Bool("dirty", dirty).
		Msg("Schema version")
	cmd.Printf("schema version %d (dirty=%t)\n", version, dirty)
	return nil
}
