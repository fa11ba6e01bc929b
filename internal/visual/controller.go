package visual

import (
	"time"

	"github.com/stwalsh4118/reelplay/internal/logger"
	"github.com/stwalsh4118/reelplay/internal/timeline"
)

// Hooks report load outcomes. Any of them may be nil.
type Hooks struct {
	// FirstReady fires exactly once per controller, when the first segment ever
	// shown settles (successfully or not)
	FirstReady func()

	// LoadError reports a failed primary load for a segment
	LoadError func(index int, url string, err error)
}

// Controller owns the visual output of one session
type Controller struct {
	mode     timeline.Mode
	segments []Segment
	video    Video
	surface  Surface
	hooks    Hooks

	index      int
	firstShown int
	shown      bool
	requested  map[int]bool
	loaded     map[int]bool
	failed     map[int]bool
	firstReady bool
	started    bool
	closed     bool
}

// NewVideoController binds a single video segment to a video output
func NewVideoController(seg Segment, video Video, hooks Hooks) (*Controller, error) {
	if video == nil || seg.PrimaryURL == "" {
		return nil, ErrNoVideo
	}
	return newController(timeline.ModeVideo, []Segment{seg}, hooks, video, nil), nil
}

// NewPhotoController binds a photo sequence to an image output
func NewPhotoController(segments []Segment, surface Surface, hooks Hooks) (*Controller, error) {
	if len(segments) == 0 || surface == nil {
		return nil, ErrNoSegments
	}
	return newController(timeline.ModePhotoSequence, segments, hooks, nil, surface), nil
}

func newController(mode timeline.Mode, segments []Segment, hooks Hooks, video Video, surface Surface) *Controller {
	return &Controller{
		mode:      mode,
		segments:  append([]Segment(nil), segments...),
		video:     video,
		surface:   surface,
		hooks:     hooks,
		requested: make(map[int]bool),
		loaded:    make(map[int]bool),
		failed:    make(map[int]bool),
	}
}

// Mode returns the controller's mode
func (c *Controller) Mode() timeline.Mode {
	return c.mode
}

// Index returns the segment currently presented
func (c *Controller) Index() int {
	return c.index
}

// Ready reports whether the first-ready signal has fired
func (c *Controller) Ready() bool {
	return c.firstReady
}

// Started reports whether the visual track is running
func (c *Controller) Started() bool {
	return c.started
}

// Load begins presenting the current segment (0 unless Show was called earlier)
func (c *Controller) Load() {
	if c.mode == timeline.ModeVideo {
		if c.requested[0] {
			return
		}
		c.requested[0] = true
		c.shown = true
		url := c.segments[0].PrimaryURL
		c.video.Load(url, func(err error) { c.settle(0, url, err) })
		return
	}
	c.Show(c.index)
}

// Show presents segment index. In photo mode the preview is shown until the
// primary has loaded, and the next segment's primary is requested ahead of time.
func (c *Controller) Show(index int) {
	if c.closed || index < 0 || index >= len(c.segments) {
		return
	}
	c.index = index
	if c.mode == timeline.ModeVideo {
		return
	}

	if !c.shown {
		c.shown = true
		c.firstShown = index
	}

	seg := c.segments[index]
	url := seg.PrimaryURL
	if (!c.loaded[index] || c.failed[index]) && seg.PreviewURL != "" {
		url = seg.PreviewURL
	}
	c.surface.Show(url)

	c.request(index)
	if index+1 < len(c.segments) {
		c.request(index + 1)
	}
}

func (c *Controller) request(index int) {
	if c.requested[index] {
		return
	}
	c.requested[index] = true
	url := c.segments[index].PrimaryURL
	c.surface.Load(url, func(err error) { c.settle(index, url, err) })
}

// settle records a load outcome. Failures are reported and never block the sequence.
func (c *Controller) settle(index int, url string, err error) {
	if c.closed {
		return
	}
	c.loaded[index] = true

	if err != nil {
		c.failed[index] = true
		logger.Log.Warn().
			Err(err).
			Int("index", index).
			Str("url", url).
			Msg("Visual asset failed to load")
		if c.hooks.LoadError != nil {
			c.hooks.LoadError(index, url, err)
		}
	} else if c.mode == timeline.ModePhotoSequence && index == c.index {
		c.surface.Show(url)
	}

	if !c.firstReady && index == c.firstShown {
		c.firstReady = true
		if c.hooks.FirstReady != nil {
			c.hooks.FirstReady()
		}
	}
}

// Start runs the visual track. For photos this only marks the track as running;
// the timeline clock advances the sequence.
func (c *Controller) Start() error {
	if c.closed {
		return nil
	}
	c.started = true
	if c.mode == timeline.ModeVideo {
		return c.video.Play()
	}
	return nil
}

// Pause stops the visual track
func (c *Controller) Pause() {
	c.started = false
	if c.mode == timeline.ModeVideo && !c.closed {
		c.video.Pause()
	}
}

// Seek moves the video to pos. It is a no-op for photo sequences.
func (c *Controller) Seek(pos time.Duration) {
	if c.mode == timeline.ModeVideo && !c.closed {
		c.video.Seek(max(0, pos))
	}
}

// SetVolume applies the video gain
func (c *Controller) SetVolume(v float64) {
	if c.mode == timeline.ModeVideo && !c.closed {
		c.video.SetVolume(v)
	}
}

// SetMuted mutes the video's own sound
func (c *Controller) SetMuted(muted bool) {
	if c.mode == timeline.ModeVideo && !c.closed {
		c.video.SetMuted(muted)
	}
}

// Source returns the video as the timeline's authoritative clock, or nil in photo mode
func (c *Controller) Source() timeline.VideoSource {
	if c.mode != timeline.ModeVideo {
		return nil
	}
	return c.video
}

// Close releases the output. Late load callbacks are dropped.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.started = false
	if c.video != nil {
		c.video.Release()
	}
	if c.surface != nil {
		c.surface.Release()
	}
}
