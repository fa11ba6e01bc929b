// Package server provides the HTTP server setup and routing configuration.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stwalsh4118/reelplay/internal/api"
	"github.com/stwalsh4118/reelplay/internal/config"
	"github.com/stwalsh4118/reelplay/internal/db"
	"github.com/stwalsh4118/reelplay/internal/logger"
	"github.com/stwalsh4118/reelplay/internal/middleware"
	"github.com/stwalsh4118/reelplay/internal/preview"
)

// Server represents the HTTP server
type Server struct {
	config *config.Config
	db     *db.DB
	repos  *db.Repositories
	host   *preview.Host
	router *gin.Engine
	server *http.Server
	log    zerolog.Logger
}

// New creates a new server instance. The preview host is owned by the server
// from here on: Start starts it and Shutdown stops it.
func New(cfg *config.Config, database *db.DB, host *preview.Host) *Server {
	return &Server{
		config: cfg,
		db:     database,
		repos:  db.NewRepositories(database),
		host:   host,
		log:    logger.Component("server"),
	}
}

// Router returns the configured router, building it on first use
func (s *Server) Router() *gin.Engine {
	if s.router == nil {
		s.setupRouter()
	}
	return s.router
}

// setupRouter initializes the Gin router with middleware and routes
func (s *Server) setupRouter() {
	if s.config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.router.Use(middleware.RequestLogger())
	s.router.Use(gin.Recovery())
	s.router.Use(cors.Default())

	defaults := s.config.Playback.Defaults()
	apiGroup := s.router.Group("/api")

	api.SetupHealthRoutes(apiGroup, s.db, s.host)
	api.SetupReelRoutes(apiGroup, s.repos.Reels, defaults)
	api.SetupSessionRoutes(apiGroup, s.host, s.repos.Reels, defaults)
}

// Start starts the preview host and serves HTTP until Shutdown
func (s *Server) Start() error {
	s.Router()

	if err := s.host.Start(); err != nil {
		return fmt.Errorf("failed to start preview host: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:           addr,
		Handler:        s.router,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	s.log.Info().
		Str("host", s.config.Server.Host).
		Int("port", s.config.Server.Port).
		Int("tick_rate", s.config.Preview.TickRate).
		Msg("Starting HTTP server")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down server gracefully")

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	// stop sessions after the listener so in-flight control calls finish first
	if s.host != nil {
		s.host.Stop()
	}

	s.log.Info().Msg("Server stopped")
	return nil
}
