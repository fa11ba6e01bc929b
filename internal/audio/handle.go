// Package audio owns the independently timed music track of a playback session and
// the process-wide registry that keeps at most one audio handle audible.
package audio

import (
	"errors"
	"time"
)

var (
	// ErrNilHandle is returned when a nil handle is claimed
	ErrNilHandle = errors.New("audio handle is nil")

	// ErrStartRejected wraps a platform refusal to start audio (e.g. no prior user gesture)
	ErrStartRejected = errors.New("audio start rejected")

	// ErrNoSource is returned when an operation needs an audio source and none is set
	ErrNoSource = errors.New("no audio source")
)

// Handle is a platform audio output. Implementations must be comparable (pointer
// receivers) and must not call back into the Registry from these methods.
type Handle interface {
	// Play starts or continues output. It may be rejected by the platform.
	Play() error
	Pause()
	Seek(pos time.Duration)
	Position() time.Duration
	SetVolume(v float64)
	SetLoop(loop bool)
	// Release frees the underlying resource. The handle is unusable afterwards.
	Release()
}

// Factory creates a handle for an audio source URL
type Factory func(url string) (Handle, error)

// IsStartRejected checks if the error is an audio start rejection
func IsStartRejected(err error) bool {
	return errors.Is(err, ErrStartRejected)
}

// TimelineToAudio maps a main-timeline position to the audio position for a given
// offset. Positive offsets mean the audio lags the visual track.
func TimelineToAudio(pos, offset time.Duration) time.Duration {
	return max(0, pos-offset)
}
