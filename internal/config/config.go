// Package config provides configuration management using Viper.
// It loads configuration from environment variables, .env files, and config files.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/stwalsh4118/reelplay/internal/gesture"
	"github.com/stwalsh4118/reelplay/internal/media"
	"github.com/stwalsh4118/reelplay/internal/player"
	"github.com/stwalsh4118/reelplay/internal/preview"
)

const (
	defaultServerPort                = 8080
	defaultServerHost                = "0.0.0.0"
	defaultReadTimeout               = 30 * time.Second
	defaultWriteTimeout              = 30 * time.Second
	defaultDatabasePath              = "./data/reelplay.db"
	defaultDatabaseConnectionTimeout = 5 * time.Second
	defaultDatabaseEnableWAL         = true
	defaultMigrationsPath            = "file://./migrations"
	defaultLogLevel                  = "info"
	defaultLogPretty                 = false
	defaultPlaybackLoop              = true
	defaultPreviewTickRate           = 60
	defaultPreviewIdleTimeout        = 5 * time.Minute
	defaultPreviewCleanupInterval    = 30 * time.Second
	defaultPreviewProbeEnabled       = true
	defaultPreviewProbeFailures      = 5
	defaultPreviewProbeCooldown      = time.Minute
	envPrefix                        = "REELPLAY"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Playback PlaybackConfig
	Preview  PreviewConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Path              string
	ConnectionTimeout time.Duration
	EnableWAL         bool
	MigrationsPath    string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Pretty bool
}

// PlaybackConfig holds the defaults applied to every new playback session
type PlaybackConfig struct {
	Interval        time.Duration
	MusicGain       float64
	VideoGain       float64
	Loop            bool
	HoldDelay       time.Duration
	DragThreshold   float64
	JitterThreshold float64
	TapZone         float64
}

// PreviewConfig holds the headless preview host configuration
type PreviewConfig struct {
	TickRate             int
	IdleTimeout          time.Duration
	CleanupInterval      time.Duration
	ProbeEnabled         bool
	ProbeTimeout         time.Duration
	ProbeFailures        int
	ProbeCooldown        time.Duration
	DefaultVideoDuration time.Duration
	EventLogSize         int
}

// Load reads configuration from .env file, config files, environment variables, and defaults
func Load() (*Config, error) {
	// .env files are optional in production and CI where env vars are set directly
	_ = godotenv.Load() // nolint:errcheck // .env file is optional

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/reelplay")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.host", defaultServerHost)
	v.SetDefault("server.readtimeout", defaultReadTimeout)
	v.SetDefault("server.writetimeout", defaultWriteTimeout)

	v.SetDefault("database.path", defaultDatabasePath)
	v.SetDefault("database.connectiontimeout", defaultDatabaseConnectionTimeout)
	v.SetDefault("database.enablewal", defaultDatabaseEnableWAL)
	v.SetDefault("database.migrationspath", defaultMigrationsPath)

	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.pretty", defaultLogPretty)

	gestures := gesture.DefaultConfig()
	v.SetDefault("playback.interval", player.DefaultInterval)
	v.SetDefault("playback.musicgain", player.DefaultMusicGain)
	v.SetDefault("playback.videogain", player.DefaultVideoGain)
	v.SetDefault("playback.loop", defaultPlaybackLoop)
	v.SetDefault("playback.holddelay", gestures.HoldDelay)
	v.SetDefault("playback.dragthreshold", gestures.DragThreshold)
	v.SetDefault("playback.jitterthreshold", gestures.JitterThreshold)
	v.SetDefault("playback.tapzone", gestures.TapZone)

	v.SetDefault("preview.tickrate", defaultPreviewTickRate)
	v.SetDefault("preview.idletimeout", defaultPreviewIdleTimeout)
	v.SetDefault("preview.cleanupinterval", defaultPreviewCleanupInterval)
	v.SetDefault("preview.probeenabled", defaultPreviewProbeEnabled)
	v.SetDefault("preview.probetimeout", media.DefaultProbeTimeout)
	v.SetDefault("preview.probefailures", defaultPreviewProbeFailures)
	v.SetDefault("preview.probecooldown", defaultPreviewProbeCooldown)
	v.SetDefault("preview.defaultvideoduration", preview.DefaultVideoDuration)
	v.SetDefault("preview.eventlogsize", preview.DefaultEventLogSize)
}

// Validate checks that configuration values are valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("invalid read timeout: %v (must be > 0)", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("invalid write timeout: %v (must be > 0)", c.Server.WriteTimeout)
	}
	if c.Database.ConnectionTimeout <= 0 {
		return fmt.Errorf("invalid database connection timeout: %v (must be > 0)", c.Database.ConnectionTimeout)
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !lo.Contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.Logging.Level, strings.Join(validLevels, ", "))
	}

	if err := c.Playback.Validate(); err != nil {
		return err
	}
	return c.Preview.Validate()
}

// Validate checks the playback defaults
func (p PlaybackConfig) Validate() error {
	if p.Interval <= 0 {
		return fmt.Errorf("invalid playback interval: %v (must be > 0)", p.Interval)
	}
	if p.MusicGain < 0 || p.MusicGain > 1 {
		return fmt.Errorf("invalid music gain: %v (must be between 0 and 1)", p.MusicGain)
	}
	if p.VideoGain < 0 || p.VideoGain > 1 {
		return fmt.Errorf("invalid video gain: %v (must be between 0 and 1)", p.VideoGain)
	}
	if p.HoldDelay < 0 {
		return fmt.Errorf("invalid hold delay: %v (must be >= 0)", p.HoldDelay)
	}
	if p.DragThreshold <= 0 {
		return fmt.Errorf("invalid drag threshold: %v (must be > 0)", p.DragThreshold)
	}
	if p.JitterThreshold < 0 {
		return fmt.Errorf("invalid jitter threshold: %v (must be >= 0)", p.JitterThreshold)
	}
	if p.TapZone <= 0 || p.TapZone >= 1 {
		return fmt.Errorf("invalid tap zone: %v (must be between 0 and 1, exclusive)", p.TapZone)
	}
	return nil
}

// Validate checks the preview host settings
func (p PreviewConfig) Validate() error {
	if p.TickRate < 1 || p.TickRate > 240 {
		return fmt.Errorf("invalid preview tick rate: %d (must be between 1 and 240)", p.TickRate)
	}
	if p.IdleTimeout <= 0 {
		return fmt.Errorf("invalid preview idle timeout: %v (must be > 0)", p.IdleTimeout)
	}
	if p.CleanupInterval <= 0 {
		return fmt.Errorf("invalid preview cleanup interval: %v (must be > 0)", p.CleanupInterval)
	}
	if p.ProbeEnabled && p.ProbeTimeout <= 0 {
		return fmt.Errorf("invalid probe timeout: %v (must be > 0)", p.ProbeTimeout)
	}
	if p.ProbeEnabled && p.ProbeFailures < 1 {
		return fmt.Errorf("invalid probe failure threshold: %d (must be >= 1)", p.ProbeFailures)
	}
	if p.ProbeEnabled && p.ProbeCooldown <= 0 {
		return fmt.Errorf("invalid probe cooldown: %v (must be > 0)", p.ProbeCooldown)
	}
	if p.EventLogSize < 0 {
		return fmt.Errorf("invalid event log size: %d (must be >= 0)", p.EventLogSize)
	}
	return nil
}

// Defaults converts the playback section into the defaults applied to new sessions
func (p PlaybackConfig) Defaults() player.Defaults {
	return player.Defaults{
		Interval:  p.Interval,
		MusicGain: p.MusicGain,
		VideoGain: p.VideoGain,
		Loop:      p.Loop,
		Gesture: gesture.Config{
			HoldDelay:       p.HoldDelay,
			JitterThreshold: p.JitterThreshold,
			DragThreshold:   p.DragThreshold,
			TapZone:         p.TapZone,
		},
	}
}

// HostConfig converts the preview section into the host settings
func (p PreviewConfig) HostConfig() preview.Config {
	return preview.Config{
		TickRate:             p.TickRate,
		IdleTimeout:          p.IdleTimeout,
		CleanupInterval:      p.CleanupInterval,
		ProbeTimeout:         p.ProbeTimeout,
		DefaultVideoDuration: p.DefaultVideoDuration,
		EventLogSize:         p.EventLogSize,
	}
}
