package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/reelplay/internal/db"
	"github.com/stwalsh4118/reelplay/internal/logger"
	"github.com/stwalsh4118/reelplay/internal/media"
	"github.com/stwalsh4118/reelplay/internal/preview"
	"github.com/stwalsh4118/reelplay/internal/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Apply pending migrations and serve the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, database, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	sqlDB, err := database.GetSQLDB()
	if err != nil {
		return err
	}
	if err := db.RunMigrations(sqlDB, cfg.Database.MigrationsPath); err != nil {
		return err
	}

	var prober preview.DurationProber
	if cfg.Preview.ProbeEnabled {
		if err := media.CheckFFprobeInstalled(); err != nil {
			logger.Log.Warn().
				Err(err).
				Dur("default_video_duration", cfg.Preview.DefaultVideoDuration).
				Msg("FFprobe unavailable, only HLS playlists are measured")
			prober = media.NewPlaylistProber(nil, nil)
		} else {
			prober = media.NewGuardedProber(
				media.NewPlaylistProber(media.NewProber(cfg.Preview.ProbeTimeout), nil),
				cfg.Preview.ProbeFailures,
				cfg.Preview.ProbeCooldown,
			)
		}
	}

	host, err := preview.NewHost(cfg.Preview.HostConfig(), prober)
	if err != nil {
		return fmt.Errorf("failed to create preview host: %w", err)
	}

	srv := server.New(cfg, database, host)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Log.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return <-errCh
}
