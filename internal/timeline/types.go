package timeline

import "time"

// Mode selects which clock is authoritative for a playback session.
// It is resolved once when the session is built and never re-evaluated.
type Mode string

const (
	// ModeVideo means the video handle's native position drives the timeline
	ModeVideo Mode = "video"

	// ModePhotoSequence means the timeline is synthesized from per-segment durations
	ModePhotoSequence Mode = "photo_sequence"
)

// String returns the string representation of the mode
func (m Mode) String() string {
	return string(m)
}

// PlayState represents the user-visible state of a playback session
type PlayState string

const (
	// PlayStatePlaying indicates the timeline is allowed to advance
	PlayStatePlaying PlayState = "playing"

	// PlayStatePaused indicates playback is held (external pause, hold gesture, user pause, finished)
	PlayStatePaused PlayState = "paused"

	// PlayStateScrubbing indicates the user is stepping through segments with a drag gesture
	PlayStateScrubbing PlayState = "scrubbing"
)

// String returns the string representation of the play state
func (s PlayState) String() string {
	return string(s)
}

// IsPlaying returns true if the state allows the timeline to advance
func (s PlayState) IsPlaying() bool {
	return s == PlayStatePlaying
}

// Position is the published playback position: the current segment and the
// fraction of it that has elapsed.
type Position struct {
	// Index is the current segment, always within [0, segment count)
	Index int `json:"index"`

	// Progress is the advancement through the current segment, always within [0, 1]
	Progress float64 `json:"progress"`
}

// VideoSource is the read side of a video handle, used as the authoritative
// clock in ModeVideo.
type VideoSource interface {
	Position() time.Duration
	Duration() time.Duration
	Ended() bool
}
