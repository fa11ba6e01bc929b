package timeline

import "errors"

var (
	// ErrNoSegments is returned when a clock is built without any segment durations
	ErrNoSegments = errors.New("timeline has no segments")

	// ErrInvalidDuration is returned when a photo segment has a non-positive duration
	ErrInvalidDuration = errors.New("segment duration must be positive")

	// ErrNoVideoSource is returned when a video clock is built without a video source
	ErrNoVideoSource = errors.New("video mode requires a video source")

	// ErrInvalidFrameInterval is returned when a scheduler is built with a non-positive frame interval
	ErrInvalidFrameInterval = errors.New("frame interval must be positive")
)
