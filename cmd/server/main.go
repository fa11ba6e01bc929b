// Command server runs the reelplay HTTP service and its database migrations.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/stwalsh4118/reelplay/internal/config"
	"github.com/stwalsh4118/reelplay/internal/db"
	"github.com/stwalsh4118/reelplay/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "reelplay",
	Short:         "Synchronized reel playback service",
	Long:          "Serves stored reels and headless preview sessions that play photo sequences or videos against an offset music track.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().String("migrations", "", "Migrations source URL (overrides database.migrationspath)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration, initializes logging and opens the database
func bootstrap(cmd *cobra.Command) (*config.Config, *db.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if path := lo.Must(cmd.Flags().GetString("migrations")); path != "" {
		cfg.Database.MigrationsPath = path
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Pretty)

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	database, err := db.Open(cfg.Database.Path, db.Options{
		ConnectionTimeout: cfg.Database.ConnectionTimeout,
		DisableWAL:        !cfg.Database.EnableWAL,
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Log.Info().
		Str("path", cfg.Database.Path).
		Bool("wal", cfg.Database.EnableWAL).
		Msg("Database opened")

	return cfg, database, nil
}
