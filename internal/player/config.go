package player

import (
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/stwalsh4118/reelplay/internal/gesture"
	"github.com/stwalsh4118/reelplay/internal/visual"
)

const (
	// DefaultInterval is the photo duration when neither the segment nor the config sets one
	DefaultInterval = 3 * time.Second

	// DefaultMusicGain is the linear gain of the audio track
	DefaultMusicGain = 0.8

	// DefaultVideoGain is the linear gain of the video's own sound
	DefaultVideoGain = 1.0
)

// Config is the construction-time and reactive configuration of one player
type Config struct {
	Segments []visual.Segment
	AudioURL string

	// Interval is the shared photo duration in photo-sequence mode
	Interval time.Duration

	// Paused is the externally imposed pause (e.g. the card is off-screen)
	Paused bool
	Muted  bool

	// AudioAllowed is the external permission gate for the audio track
	AudioAllowed bool

	// Offset is the audio start relative to the main timeline zero. Positive lags, negative leads.
	Offset time.Duration

	MusicGain float64
	VideoGain float64
	Loop      bool

	Gesture gesture.Config
}

// Defaults holds the values a deployment applies to every new Config
type Defaults struct {
	Interval  time.Duration
	MusicGain float64
	VideoGain float64
	Loop      bool
	Gesture   gesture.Config
}

// Config returns a Config carrying these defaults and no sources
func (d Defaults) Config() Config {
	return Config{
		Interval:     d.Interval,
		AudioAllowed: true,
		MusicGain:    d.MusicGain,
		VideoGain:    d.VideoGain,
		Loop:         d.Loop,
		Gesture:      d.Gesture,
	}
}

// DefaultDefaults returns the built-in defaults
func DefaultDefaults() Defaults {
	return Defaults{
		Interval:  DefaultInterval,
		MusicGain: DefaultMusicGain,
		VideoGain: DefaultVideoGain,
		Loop:      true,
		Gesture:   gesture.DefaultConfig(),
	}
}

// DefaultConfig returns a Config with the built-in defaults and no sources
func DefaultConfig() Config {
	return DefaultDefaults().Config()
}

// Validate checks the configuration preconditions. A session is never built from
// a configuration that fails validation.
func (c Config) Validate() error {
	if len(c.Segments) == 0 {
		return NewPlaybackError(ErrorTypeInvalidConfig, "segments are required", ErrNoSegments)
	}
	for i, seg := range c.Segments {
		if seg.PrimaryURL == "" {
			return NewPlaybackError(ErrorTypeInvalidConfig, fmt.Sprintf("segment %d has no primary url", i), nil)
		}
		if seg.Duration < 0 {
			return NewPlaybackError(ErrorTypeInvalidConfig, fmt.Sprintf("segment %d has a negative duration", i), nil)
		}
	}
	if c.Interval <= 0 {
		return NewPlaybackError(ErrorTypeInvalidConfig, "interval must be positive", nil)
	}
	if c.MusicGain < 0 || c.MusicGain > 1 {
		return NewPlaybackError(ErrorTypeInvalidConfig, fmt.Sprintf("music gain %v outside [0, 1]", c.MusicGain), nil)
	}
	if c.VideoGain < 0 || c.VideoGain > 1 {
		return NewPlaybackError(ErrorTypeInvalidConfig, fmt.Sprintf("video gain %v outside [0, 1]", c.VideoGain), nil)
	}
	return nil
}

// durations resolves the per-segment photo durations
func (c Config) durations(segments []visual.Segment) []time.Duration {
	return lo.Map(segments, func(seg visual.Segment, _ int) time.Duration {
		if seg.Duration > 0 {
			return seg.Duration
		}
		return c.Interval
	})
}
