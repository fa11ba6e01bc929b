// Package timeline provides the playback clock that advances a session's position
// on every animation frame, together with the scheduler capability it runs on.
package timeline

import (
	"time"

	"github.com/samber/lo"
)

// ClockConfig describes the timeline a Clock drives
type ClockConfig struct {
	// Mode selects the authoritative clock
	Mode Mode

	// Durations holds one duration per segment (ModePhotoSequence only)
	Durations []time.Duration

	// Video is the native clock (ModeVideo only)
	Video VideoSource

	// Loop restarts at index 0 after the last segment instead of stopping
	Loop bool
}

// ClockHooks are invoked synchronously from Tick. Any of them may be nil.
type ClockHooks struct {
	// Tick publishes the position after every advancing tick
	Tick func(pos Position)

	// Advance reports an automatic segment change in ModePhotoSequence
	Advance func(from, to int)

	// Loop reports that the video ended and the timeline wrapped to zero
	Loop func()

	// Finish reports that a non-looping timeline reached its end
	Finish func()
}

// Clock advances a session's (index, progress) pair once per frame.
// In ModePhotoSequence it integrates elapsed frame time against segment durations;
// in ModeVideo it reads the video's own position and only detects the end.
type Clock struct {
	sched     Scheduler
	mode      Mode
	durations []time.Duration
	video     VideoSource
	loop      bool
	hooks     ClockHooks

	index     int
	progress  float64
	lastTick  time.Duration
	hasTick   bool
	advancing bool
	ready     bool
	finished  bool
	cancel    Cancel
}

// NewClock validates the configuration and returns a stopped clock at (0, 0)
func NewClock(sched Scheduler, cfg ClockConfig, hooks ClockHooks) (*Clock, error) {
	switch cfg.Mode {
	case ModeVideo:
		if cfg.Video == nil {
			return nil, ErrNoVideoSource
		}
	default:
		if len(cfg.Durations) == 0 {
			return nil, ErrNoSegments
		}
		for _, d := range cfg.Durations {
			if d <= 0 {
				return nil, ErrInvalidDuration
			}
		}
	}

	return &Clock{
		sched:     sched,
		mode:      cfg.Mode,
		durations: append([]time.Duration(nil), cfg.Durations...),
		video:     cfg.Video,
		loop:      cfg.Loop,
		hooks:     hooks,
	}, nil
}

// Start begins the per-frame loop. Calling Start on a running clock is a no-op.
func (c *Clock) Start() {
	if c.cancel != nil {
		return
	}
	c.hasTick = false
	c.cancel = c.sched.RequestFrame(c.frame)
}

// Stop cancels the per-frame loop
func (c *Clock) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.cancel = nil
}

// Running reports whether the per-frame loop is active
func (c *Clock) Running() bool {
	return c.cancel != nil
}

func (c *Clock) frame(now time.Duration) {
	c.Tick(now)
	if c.cancel != nil {
		c.cancel = c.sched.RequestFrame(c.frame)
	}
}

// Tick processes one frame at time now. While the clock is not advancing, not ready,
// or finished, it only records now as the reference time so that resuming never jumps.
func (c *Clock) Tick(now time.Duration) {
	last, first := c.lastTick, !c.hasTick
	c.lastTick, c.hasTick = now, true

	if first || !c.advancing || !c.ready || c.finished {
		return
	}

	if c.mode == ModeVideo {
		c.tickVideo()
	} else {
		c.tickPhoto(now - last)
	}

	if c.hooks.Tick != nil {
		c.hooks.Tick(c.Position())
	}
}

func (c *Clock) tickPhoto(dt time.Duration) {
	if dt <= 0 {
		return
	}
	c.progress += float64(dt) / float64(c.durations[c.index])

	for c.progress >= 1 {
		last := c.index == len(c.durations)-1
		if last && !c.loop {
			c.progress = 1
			c.finish()
			return
		}

		// carry the overshoot into the next segment so a full loop takes sum(durations)
		overshoot := (c.progress - 1) * float64(c.durations[c.index])
		from := c.index
		c.index = (c.index + 1) % len(c.durations)
		c.progress = overshoot / float64(c.durations[c.index])

		if c.hooks.Advance != nil {
			c.hooks.Advance(from, c.index)
		}
	}
}

func (c *Clock) tickVideo() {
	if c.video.Ended() {
		if c.loop {
			c.progress = 0
			if c.hooks.Loop != nil {
				c.hooks.Loop()
			}
			return
		}
		c.progress = 1
		c.finish()
		return
	}

	if d := c.video.Duration(); d > 0 {
		c.progress = lo.Clamp(float64(c.video.Position())/float64(d), 0, 1)
	}
}

func (c *Clock) finish() {
	c.finished = true
	if c.hooks.Finish != nil {
		c.hooks.Finish()
	}
}

// SetAdvancing enables or disables advancement. The frame loop keeps running
// either way so the reference time stays fresh.
func (c *Clock) SetAdvancing(advancing bool) {
	c.advancing = advancing
}

// Advancing reports whether ticks currently move the position
func (c *Clock) Advancing() bool {
	return c.advancing
}

// MarkReady unblocks advancement once the first visual asset has settled
func (c *Clock) MarkReady() {
	c.ready = true
}

// Ready reports whether MarkReady has been called
func (c *Clock) Ready() bool {
	return c.ready
}

// Finished reports whether a non-looping timeline has reached its end
func (c *Clock) Finished() bool {
	return c.finished
}

// Seek moves the clock to an explicit position and clears the finished flag
func (c *Clock) Seek(index int, progress float64) {
	c.index = lo.Clamp(index, 0, c.Count()-1)
	c.progress = lo.Clamp(progress, 0, 1)
	c.finished = false
}

// Position returns the current (index, progress) pair
func (c *Clock) Position() Position {
	return Position{Index: c.index, Progress: c.progress}
}

// Mode returns the authoritative clock mode
func (c *Clock) Mode() Mode {
	return c.mode
}

// Count returns the number of segments on the timeline
func (c *Clock) Count() int {
	if c.mode == ModeVideo {
		return 1
	}
	return len(c.durations)
}

// Loop reports whether the timeline wraps at the end
func (c *Clock) Loop() bool {
	return c.loop
}

// Total returns the length of one pass through the timeline
func (c *Clock) Total() time.Duration {
	if c.mode == ModeVideo {
		return c.video.Duration()
	}
	return lo.Sum(c.durations)
}

// Elapsed returns the main-timeline position of the current (index, progress)
func (c *Clock) Elapsed() time.Duration {
	if c.mode == ModeVideo {
		return c.video.Position()
	}
	return c.SegmentStart(c.index) + time.Duration(c.progress*float64(c.durations[c.index]))
}

// SegmentStart returns the main-timeline position at which segment index begins
func (c *Clock) SegmentStart(index int) time.Duration {
	if c.mode == ModeVideo {
		return 0
	}
	return lo.Sum(c.durations[:lo.Clamp(index, 0, len(c.durations))])
}

// Locate maps a main-timeline position to (index, progress), clamping to the timeline bounds
func (c *Clock) Locate(at time.Duration) Position {
	if at < 0 {
		at = 0
	}

	if c.mode == ModeVideo {
		d := c.video.Duration()
		if d <= 0 {
			return Position{}
		}
		return Position{Index: 0, Progress: lo.Clamp(float64(at)/float64(d), 0, 1)}
	}

	var start time.Duration
	for i, d := range c.durations {
		if at < start+d {
			return Position{Index: i, Progress: float64(at-start) / float64(d)}
		}
		start += d
	}
	return Position{Index: len(c.durations) - 1, Progress: 1}
}
