package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"time"

	"github.com/stwalsh4118/reelplay/internal/logger"
)

// DefaultProbeTimeout bounds a single FFprobe execution
const DefaultProbeTimeout = 10 * time.Second

// Common errors
var (
	ErrFFprobeNotFound = errors.New("ffprobe not found in PATH")
	ErrUnreachable     = errors.New("asset not found or not readable")
	ErrInvalidAsset    = errors.New("invalid or corrupted media asset")
	ErrTimeout         = errors.New("ffprobe execution timed out")
)

// FFprobeResult represents the top-level JSON output from FFprobe
type FFprobeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream represents a video or audio stream
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"` // "video" or "audio"
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

// Format represents the container information
type Format struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

// Metadata is the subset of probe output playback needs
type Metadata struct {
	Duration   time.Duration
	VideoCodec string
	AudioCodec string
	Width      int
	Height     int
}

// HasVideo reports whether a video stream was found
func (m *Metadata) HasVideo() bool {
	return m.VideoCodec != ""
}

// HasAudio reports whether an audio stream was found
func (m *Metadata) HasAudio() bool {
	return m.AudioCodec != ""
}

// Prober runs FFprobe against asset URLs or paths
type Prober struct {
	timeout time.Duration
}

// NewProber creates a prober. A non-positive timeout uses DefaultProbeTimeout.
func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{timeout: timeout}
}

// CheckFFprobeInstalled checks if FFprobe is available in PATH
func CheckFFprobeInstalled() error {
	_, err := exec.LookPath("ffprobe")
	if err != nil {
		return ErrFFprobeNotFound
	}
	return nil
}

// Probe executes FFprobe on the given asset and returns its metadata
func (p *Prober) Probe(ctx context.Context, asset string) (*Metadata, error) {
	if err := CheckFFprobeInstalled(); err != nil {
		return nil, err
	}

	logger.Log.Debug().
		Str("asset", asset).
		Msg("Probing media asset with FFprobe")

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx,
		"ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		asset,
	)

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			logger.Log.Warn().
				Str("asset", asset).
				Dur("timeout", p.timeout).
				Msg("FFprobe execution timed out")
			return nil, ErrTimeout
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			logger.Log.Warn().
				Str("asset", asset).
				Str("stderr", string(exitErr.Stderr)).
				Msg("FFprobe execution failed")
			return nil, fmt.Errorf("%w: %s", ErrInvalidAsset, exitErr.Stderr)
		}

		logger.Log.Warn().
			Err(err).
			Str("asset", asset).
			Msg("FFprobe command failed")
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	var result FFprobeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	metadata, err := extractMetadata(&result)
	if err != nil {
		return nil, fmt.Errorf("failed to extract metadata: %w", err)
	}

	logger.Log.Debug().
		Str("asset", asset).
		Dur("duration", metadata.Duration).
		Str("video_codec", metadata.VideoCodec).
		Str("audio_codec", metadata.AudioCodec).
		Msg("Probed media asset")

	return metadata, nil
}

// ProbeDuration returns only the asset's duration
func (p *Prober) ProbeDuration(ctx context.Context, asset string) (time.Duration, error) {
	metadata, err := p.Probe(ctx, asset)
	if err != nil {
		return 0, err
	}
	return metadata.Duration, nil
}

// extractMetadata converts FFprobeResult to Metadata
func extractMetadata(result *FFprobeResult) (*Metadata, error) {
	metadata := &Metadata{}

	var videoStream, audioStream *Stream
	for i := range result.Streams {
		stream := &result.Streams[i]
		if stream.CodecType == "video" && videoStream == nil {
			videoStream = stream
		}
		if stream.CodecType == "audio" && audioStream == nil {
			audioStream = stream
		}
	}

	if videoStream != nil {
		metadata.VideoCodec = videoStream.CodecName
		metadata.Width = videoStream.Width
		metadata.Height = videoStream.Height
	}
	if audioStream != nil {
		metadata.AudioCodec = audioStream.CodecName
	}

	// stream duration first, then the container's
	for _, candidate := range []*Stream{videoStream, audioStream} {
		if candidate != nil && metadata.Duration == 0 {
			metadata.Duration = parseSeconds(candidate.Duration)
		}
	}
	if metadata.Duration == 0 {
		metadata.Duration = parseSeconds(result.Format.Duration)
	}

	if metadata.Duration <= 0 {
		return nil, fmt.Errorf("%w: could not determine duration", ErrInvalidAsset)
	}

	return metadata, nil
}

// parseSeconds converts FFprobe's decimal seconds to a millisecond-precision duration
func parseSeconds(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(math.Round(seconds*1000)) * time.Millisecond
}
