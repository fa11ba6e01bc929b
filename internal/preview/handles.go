package preview

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/reelplay/internal/media"
	"github.com/stwalsh4118/reelplay/internal/timeline"
)

// ErrUnsupportedAsset is reported when a URL is not a media kind the output can present
var ErrUnsupportedAsset = errors.New("unsupported asset")

// playhead is a position that advances with the scheduler clock while playing
type playhead struct {
	sched    timeline.Scheduler
	playing  bool
	base     time.Duration
	since    time.Duration
	duration time.Duration
	loop     bool
}

func (p *playhead) start() {
	if p.playing {
		return
	}
	p.playing = true
	p.since = p.sched.Now()
}

func (p *playhead) stop() {
	if !p.playing {
		return
	}
	p.base = p.position()
	p.playing = false
}

func (p *playhead) seek(pos time.Duration) {
	p.base = max(0, pos)
	p.since = p.sched.Now()
}

func (p *playhead) position() time.Duration {
	pos := p.base
	if p.playing {
		pos += p.sched.Now() - p.since
	}
	if p.duration <= 0 {
		return pos
	}
	if p.loop {
		return pos % p.duration
	}
	return min(pos, p.duration)
}

// VirtualAudio is an audio handle without an output device. Its position follows the
// scheduler clock while it holds the audible claim.
type VirtualAudio struct {
	playhead
	id       uuid.UUID
	url      string
	volume   float64
	released bool
}

func newVirtualAudio(sched timeline.Scheduler, url string) *VirtualAudio {
	return &VirtualAudio{
		playhead: playhead{sched: sched},
		id:       uuid.New(),
		url:      url,
		volume:   1,
	}
}

// Play starts the playhead
func (a *VirtualAudio) Play() error {
	if a.released {
		return fmt.Errorf("audio handle %s released", a.id)
	}
	a.start()
	return nil
}

func (a *VirtualAudio) Pause()                  { a.stop() }
func (a *VirtualAudio) Seek(pos time.Duration)  { a.seek(pos) }
func (a *VirtualAudio) Position() time.Duration { return a.position() }
func (a *VirtualAudio) SetVolume(v float64)     { a.volume = v }
func (a *VirtualAudio) SetLoop(loop bool)       { a.loop = loop }

// Release stops the handle for good
func (a *VirtualAudio) Release() {
	a.stop()
	a.released = true
}

// Playing reports whether the playhead is moving
func (a *VirtualAudio) Playing() bool {
	return a.playing
}

// VirtualVideo is a video handle whose native clock is the scheduler clock
type VirtualVideo struct {
	playhead
	host   *Host
	url    string
	volume float64
	muted  bool
}

// Load resolves the video's duration, by probing when enabled
func (v *VirtualVideo) Load(url string, done func(err error)) {
	v.url = url
	if kind := media.Classify(url); kind != media.KindVideo && kind != media.KindUnknown {
		v.host.sched.AfterFunc(0, func() {
			done(fmt.Errorf("%w: %s is %s", ErrUnsupportedAsset, url, kind))
		})
		return
	}

	v.host.resolveDuration(url, func(d time.Duration, err error) {
		if err != nil {
			done(err)
			return
		}
		v.duration = d
		done(nil)
	})
}

func (v *VirtualVideo) Play() error {
	v.start()
	return nil
}

func (v *VirtualVideo) Pause()                  { v.stop() }
func (v *VirtualVideo) Seek(pos time.Duration)  { v.seek(pos) }
func (v *VirtualVideo) Position() time.Duration { return v.position() }
func (v *VirtualVideo) Duration() time.Duration { return v.duration }

// Ended reports whether the playhead reached a known duration
func (v *VirtualVideo) Ended() bool {
	return v.duration > 0 && v.position() >= v.duration
}

func (v *VirtualVideo) SetVolume(vol float64) { v.volume = vol }
func (v *VirtualVideo) SetMuted(muted bool)   { v.muted = muted }
func (v *VirtualVideo) Release()              { v.stop() }

// VirtualSurface is an image output that records what it displays
type VirtualSurface struct {
	sched   timeline.Scheduler
	current string
}

// Show displays url
func (s *VirtualSurface) Show(url string) {
	s.current = url
}

// Load completes on the next scheduler advance. Non-image URLs fail.
func (s *VirtualSurface) Load(url string, done func(err error)) {
	s.sched.AfterFunc(0, func() {
		if kind := media.Classify(url); kind != media.KindImage {
			done(fmt.Errorf("%w: %s is %s", ErrUnsupportedAsset, url, kind))
			return
		}
		done(nil)
	})
}

func (s *VirtualSurface) Release() {
	s.current = ""
}

// Current returns the URL on display
func (s *VirtualSurface) Current() string {
	return s.current
}
