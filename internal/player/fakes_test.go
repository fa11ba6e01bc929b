package player

import (
	"errors"
	"time"

	"github.com/stwalsh4118/reelplay/internal/audio"
	"github.com/stwalsh4118/reelplay/internal/timeline"
	"github.com/stwalsh4118/reelplay/internal/visual"
)

var errAutoplay = errors.New("autoplay blocked")

// clocked tracks a playhead that moves with the scheduler while playing
type clocked struct {
	sched   *timeline.FrameScheduler
	playing bool
	base    time.Duration
	since   time.Duration
	plays   []time.Duration
}

func (c *clocked) play() {
	if !c.playing {
		c.playing = true
		c.since = c.sched.Now()
	}
	c.plays = append(c.plays, c.sched.Now())
}

func (c *clocked) pause() {
	if c.playing {
		c.base = c.position()
		c.playing = false
	}
}

func (c *clocked) seek(pos time.Duration) {
	c.base = pos
	c.since = c.sched.Now()
}

func (c *clocked) position() time.Duration {
	if c.playing {
		return c.base + c.sched.Now() - c.since
	}
	return c.base
}

type fakeAudio struct {
	clocked
	url      string
	volume   float64
	loop     bool
	reject   bool
	released bool
}

func (a *fakeAudio) Play() error {
	if a.reject {
		return errAutoplay
	}
	a.play()
	return nil
}

func (a *fakeAudio) Pause()                  { a.pause() }
func (a *fakeAudio) Seek(pos time.Duration)  { a.seek(pos) }
func (a *fakeAudio) Position() time.Duration { return a.position() }
func (a *fakeAudio) SetVolume(v float64)     { a.volume = v }
func (a *fakeAudio) SetLoop(loop bool)       { a.loop = loop }
func (a *fakeAudio) Release()                { a.pause(); a.released = true }

type fakeVideo struct {
	clocked
	duration time.Duration
	fail     bool
	volume   float64
	muted    bool
	released bool
}

func (v *fakeVideo) Load(url string, done func(err error)) {
	v.sched.AfterFunc(0, func() {
		if v.fail {
			done(errors.New("decode failed"))
			return
		}
		done(nil)
	})
}

func (v *fakeVideo) Play() error            { v.play(); return nil }
func (v *fakeVideo) Pause()                 { v.pause() }
func (v *fakeVideo) Seek(pos time.Duration) { v.seek(pos) }
func (v *fakeVideo) Duration() time.Duration { return v.duration }
func (v *fakeVideo) Position() time.Duration { return min(v.position(), v.duration) }
func (v *fakeVideo) Ended() bool             { return v.position() >= v.duration }
func (v *fakeVideo) SetVolume(vol float64)   { v.volume = vol }
func (v *fakeVideo) SetMuted(muted bool)     { v.muted = muted }
func (v *fakeVideo) Release()                { v.pause(); v.released = true }

type fakeSurface struct {
	sched    *timeline.FrameScheduler
	failing  map[string]bool
	shown    []string
	released bool
}

func (s *fakeSurface) Show(url string) { s.shown = append(s.shown, url) }

func (s *fakeSurface) Load(url string, done func(err error)) {
	s.sched.AfterFunc(0, func() {
		if s.failing[url] {
			done(errors.New("404"))
			return
		}
		done(nil)
	})
}

func (s *fakeSurface) Release() { s.released = true }

// harness wires players to fake outputs on a shared virtual clock
type harness struct {
	sched         *timeline.FrameScheduler
	registry      *audio.Registry
	audios        []*fakeAudio
	videos        []*fakeVideo
	surfaces      []*fakeSurface
	failing       map[string]bool
	rejectAudio   bool
	videoDuration time.Duration
}

const tick = 10 * time.Millisecond

func newHarness() *harness {
	sched, err := timeline.NewFrameScheduler(tick)
	if err != nil {
		panic(err)
	}
	return &harness{
		sched:         sched,
		registry:      audio.NewRegistry(),
		failing:       make(map[string]bool),
		videoDuration: time.Second,
	}
}

func (h *harness) deps() Deps {
	return Deps{
		Scheduler: h.sched,
		Registry:  h.registry,
		NewAudio: func(url string) (audio.Handle, error) {
			a := &fakeAudio{clocked: clocked{sched: h.sched}, url: url, reject: h.rejectAudio}
			h.audios = append(h.audios, a)
			return a, nil
		},
		NewVideo: func() (visual.Video, error) {
			v := &fakeVideo{clocked: clocked{sched: h.sched}, duration: h.videoDuration}
			h.videos = append(h.videos, v)
			return v, nil
		},
		NewSurface: func() (visual.Surface, error) {
			s := &fakeSurface{sched: h.sched, failing: h.failing}
			h.surfaces = append(h.surfaces, s)
			return s, nil
		},
	}
}

func (h *harness) playingAudios() int {
	count := 0
	for _, a := range h.audios {
		if a.playing {
			count++
		}
	}
	return count
}

func photos(urls ...string) []visual.Segment {
	segs := make([]visual.Segment, len(urls))
	for i, url := range urls {
		segs[i] = visual.Segment{PrimaryURL: url}
	}
	return segs
}

func photoConfig(interval time.Duration, urls ...string) Config {
	cfg := DefaultConfig()
	cfg.Segments = photos(urls...)
	cfg.Interval = interval
	return cfg
}
