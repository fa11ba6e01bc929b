// Package visual presents the segment at the current index: either a single video
// whose native clock is authoritative, or a photo sequence that swaps images and
// shows a low-resolution preview until each primary asset has loaded.
package visual

import (
	"errors"
	"time"
)

var (
	// ErrNoSegments is returned when a controller is built without segments
	ErrNoSegments = errors.New("no visual segments")

	// ErrNoVideo is returned when a video controller is built without a video segment
	ErrNoVideo = errors.New("no video segment")
)

// Segment is one visual unit: a photo shown for a duration, or the session's video
type Segment struct {
	// PrimaryURL is the full-resolution asset
	PrimaryURL string `json:"primary_url"`

	// PreviewURL is an optional low-resolution placeholder shown until the primary loads
	PreviewURL string `json:"preview_url,omitempty"`

	// Video marks the segment as a video source; its presence selects video mode
	Video bool `json:"video,omitempty"`

	// Duration overrides the shared photo interval for this segment when positive
	Duration time.Duration `json:"duration,omitempty"`
}

// Video is a platform video output. Loads complete asynchronously through done.
type Video interface {
	Load(url string, done func(err error))
	Play() error
	Pause()
	Seek(pos time.Duration)
	Position() time.Duration
	Duration() time.Duration
	Ended() bool
	SetVolume(v float64)
	SetMuted(muted bool)
	Release()
}

// Surface is a platform image output. Show displays a URL immediately (cached or
// not); Load fetches and decodes one, completing asynchronously through done.
type Surface interface {
	Show(url string)
	Load(url string, done func(err error))
	Release()
}

// VideoFactory creates a video output for one session
type VideoFactory func() (Video, error)

// SurfaceFactory creates an image output for one session
type SurfaceFactory func() (Surface, error)
