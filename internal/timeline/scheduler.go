package timeline

import (
	"sync"
	"time"
)

// DefaultFrameInterval is the animation-frame cadence used when none is configured (60 frames per second)
const DefaultFrameInterval = time.Second / 60

// Cancel stops a pending frame or timer callback. Calling it more than once is a no-op.
type Cancel func()

// Scheduler is the scheduling capability injected into every playback component.
// Frame callbacks are one-shot: a periodic loop re-requests a frame from inside its callback.
// Implementations run all callbacks on a single logical thread.
type Scheduler interface {
	// Now returns the scheduler's current time, measured from its own origin
	Now() time.Duration

	// RequestFrame runs fn on the next frame with that frame's timestamp
	RequestFrame(fn func(now time.Duration)) Cancel

	// AfterFunc runs fn once d has elapsed. A non-positive d fires on the next advance.
	AfterFunc(d time.Duration, fn func()) Cancel
}

type frameEntry struct {
	fn        func(now time.Duration)
	cancelled bool
}

type timerEntry struct {
	at        time.Duration
	seq       uint64
	fn        func()
	cancelled bool
}

// FrameScheduler is a virtual-time Scheduler. Time only moves when Advance is called,
// which makes tick sequences deterministic in tests and lets a host drive it from a
// wall-clock ticker.
//
// FrameScheduler is not safe for concurrent use except for Post, which may be called
// from any goroutine.
type FrameScheduler struct {
	now           time.Duration
	frameInterval time.Duration
	nextFrame     time.Duration
	frames        []*frameEntry
	timers        []*timerEntry
	seq           uint64

	postMu sync.Mutex
	posted []func()
}

// NewFrameScheduler creates a scheduler that fires frames every frameInterval
func NewFrameScheduler(frameInterval time.Duration) (*FrameScheduler, error) {
	if frameInterval <= 0 {
		return nil, ErrInvalidFrameInterval
	}
	return &FrameScheduler{
		frameInterval: frameInterval,
		nextFrame:     frameInterval,
	}, nil
}

// Now returns the current virtual time
func (s *FrameScheduler) Now() time.Duration {
	return s.now
}

// FrameInterval returns the configured frame cadence
func (s *FrameScheduler) FrameInterval() time.Duration {
	return s.frameInterval
}

// RequestFrame schedules fn for the next frame
func (s *FrameScheduler) RequestFrame(fn func(now time.Duration)) Cancel {
	entry := &frameEntry{fn: fn}
	s.frames = append(s.frames, entry)
	return func() { entry.cancelled = true }
}

// AfterFunc schedules fn to run once d has elapsed
func (s *FrameScheduler) AfterFunc(d time.Duration, fn func()) Cancel {
	if d < 0 {
		d = 0
	}
	s.seq++
	entry := &timerEntry{at: s.now + d, seq: s.seq, fn: fn}
	s.timers = append(s.timers, entry)
	return func() { entry.cancelled = true }
}

// Post queues fn to run at the start of the next Advance. It is the only method
// safe to call from other goroutines and is used to hand asynchronous completions
// (probes, loads) back to the playback thread.
func (s *FrameScheduler) Post(fn func()) {
	s.postMu.Lock()
	defer s.postMu.Unlock()
	s.posted = append(s.posted, fn)
}

// Pending reports whether any frame, timer or posted callback is waiting
func (s *FrameScheduler) Pending() bool {
	s.postMu.Lock()
	posted := len(s.posted)
	s.postMu.Unlock()
	return posted > 0 || s.liveFrames() > 0 || s.nextTimer() != nil
}

// Advance moves virtual time forward by d, firing every timer and frame that falls
// inside the window in chronological order. Timers due at the same instant as a
// frame fire before it.
func (s *FrameScheduler) Advance(d time.Duration) {
	if d < 0 {
		d = 0
	}
	target := s.now + d
	s.drainPosted()

	for {
		timer := s.nextTimer()
		if timer != nil && timer.at <= s.nextFrame && timer.at <= target {
			s.fireTimer(timer)
			continue
		}
		if s.nextFrame <= target {
			s.fireFrame()
			continue
		}
		break
	}

	s.now = target
	s.drainPosted()
}

func (s *FrameScheduler) fireTimer(timer *timerEntry) {
	s.removeTimer(timer)
	if timer.at > s.now {
		s.now = timer.at
	}
	timer.fn()
}

func (s *FrameScheduler) fireFrame() {
	s.now = s.nextFrame
	s.nextFrame += s.frameInterval

	batch := s.frames
	s.frames = nil
	for _, entry := range batch {
		if !entry.cancelled {
			entry.fn(s.now)
		}
	}
}

// nextTimer returns the earliest live timer, dropping cancelled ones along the way
func (s *FrameScheduler) nextTimer() *timerEntry {
	var earliest *timerEntry
	live := s.timers[:0]
	for _, t := range s.timers {
		if t.cancelled {
			continue
		}
		live = append(live, t)
		if earliest == nil || t.at < earliest.at || (t.at == earliest.at && t.seq < earliest.seq) {
			earliest = t
		}
	}
	s.timers = live
	return earliest
}

func (s *FrameScheduler) removeTimer(target *timerEntry) {
	for i, t := range s.timers {
		if t == target {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			return
		}
	}
}

func (s *FrameScheduler) liveFrames() int {
	count := 0
	for _, entry := range s.frames {
		if !entry.cancelled {
			count++
		}
	}
	return count
}

func (s *FrameScheduler) drainPosted() {
	s.postMu.Lock()
	posted := s.posted
	s.posted = nil
	s.postMu.Unlock()

	for _, fn := range posted {
		fn()
	}
}
