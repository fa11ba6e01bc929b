// Package player composes the timeline clock, the visual and audio track controllers
// and the gesture interpreter into one playback session with a small public contract.
//
// A Player is single-threaded: every method and every scheduler callback must run
// on the same logical thread. Cross-session coordination happens only through the
// shared audio.Registry.
package player

import (
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/stwalsh4118/reelplay/internal/audio"
	"github.com/stwalsh4118/reelplay/internal/gesture"
	"github.com/stwalsh4118/reelplay/internal/logger"
	"github.com/stwalsh4118/reelplay/internal/timeline"
	"github.com/stwalsh4118/reelplay/internal/visual"
)

// videoScrubStep is how far one drag step moves a video session
const videoScrubStep = time.Second

// Deps are the capabilities injected into a Player
type Deps struct {
	Scheduler  timeline.Scheduler
	Registry   *audio.Registry
	NewAudio   audio.Factory
	NewVideo   visual.VideoFactory
	NewSurface visual.SurfaceFactory
}

// Player is one playback session
type Player struct {
	deps     Deps
	cfg      Config
	signals  Signals
	gestures *gesture.Interpreter

	clock  *timeline.Clock
	visual *visual.Controller
	audio  *audio.Track

	// segments are the resolved segments of the current session
	segments []visual.Segment

	started    bool
	torn       bool
	userPaused bool
	holding    bool
	scrubbing  bool

	// rolling is true while both tracks are meant to run
	rolling bool

	// fresh is true until the session has been choreographed from its zero point once
	fresh bool

	// playing is the last play state reported through PlayStateChanged
	playing bool

	pendingAudio  timeline.Cancel
	pendingVisual timeline.Cancel
}

// New validates cfg and builds a stopped session. Nothing is loaded or scheduled
// until Start is called.
func New(cfg Config, deps Deps, signals Signals) (*Player, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Scheduler == nil || deps.Registry == nil {
		return nil, fmt.Errorf("%w: scheduler and registry are required", ErrMissingDependency)
	}
	if cfg.AudioURL != "" && deps.NewAudio == nil {
		return nil, fmt.Errorf("%w: audio factory is required when an audio url is set", ErrMissingDependency)
	}

	cfg.Segments = append([]visual.Segment(nil), cfg.Segments...)
	if cfg.Gesture == (gesture.Config{}) {
		cfg.Gesture = gesture.DefaultConfig()
	}

	p := &Player{
		deps:    deps,
		cfg:     cfg,
		signals: signals,
	}
	p.gestures = gesture.NewInterpreter(cfg.Gesture, deps.Scheduler, p.handleGesture)

	if err := p.build(); err != nil {
		return nil, err
	}
	return p, nil
}

// build creates the clock and both track controllers for the current sources
func (p *Player) build() error {
	segments, mode := resolveSegments(p.cfg.Segments)
	hooks := visual.Hooks{
		FirstReady: p.onFirstReady,
		LoadError:  p.onLoadError,
	}
	clockCfg := timeline.ClockConfig{Mode: mode, Loop: p.cfg.Loop}

	var ctrl *visual.Controller
	switch mode {
	case timeline.ModeVideo:
		if p.deps.NewVideo == nil {
			return fmt.Errorf("%w: video factory is required for a video segment", ErrMissingDependency)
		}
		video, err := p.deps.NewVideo()
		if err != nil {
			return NewPlaybackError(ErrorTypeAssetLoad, "failed to create video output", err)
		}
		ctrl, err = visual.NewVideoController(segments[0], video, hooks)
		if err != nil {
			video.Release()
			return NewPlaybackError(ErrorTypeInvalidConfig, "invalid video segment", err)
		}
		clockCfg.Video = ctrl.Source()
	default:
		if p.deps.NewSurface == nil {
			return fmt.Errorf("%w: surface factory is required for photo segments", ErrMissingDependency)
		}
		surface, err := p.deps.NewSurface()
		if err != nil {
			return NewPlaybackError(ErrorTypeAssetLoad, "failed to create image output", err)
		}
		ctrl, err = visual.NewPhotoController(segments, surface, hooks)
		if err != nil {
			surface.Release()
			return NewPlaybackError(ErrorTypeInvalidConfig, "invalid photo segments", err)
		}
		clockCfg.Durations = p.cfg.durations(segments)
	}

	clock, err := timeline.NewClock(p.deps.Scheduler, clockCfg, timeline.ClockHooks{
		Tick:    p.onTick,
		Advance: p.onAdvance,
		Loop:    p.onLoop,
		Finish:  p.onFinish,
	})
	if err != nil {
		ctrl.Close()
		return NewPlaybackError(ErrorTypeInvalidConfig, "invalid timeline", err)
	}

	ctrl.SetVolume(p.cfg.VideoGain)
	ctrl.SetMuted(p.cfg.Muted)

	p.segments = segments
	p.visual = ctrl
	p.clock = clock
	p.audio = audio.NewTrack(p.deps.Registry, p.deps.NewAudio, audio.TrackConfig{
		URL:     p.cfg.AudioURL,
		Offset:  p.cfg.Offset,
		Gain:    p.cfg.MusicGain,
		Loop:    p.cfg.Loop,
		Muted:   p.cfg.Muted,
		Allowed: p.cfg.AudioAllowed,
	})
	p.fresh = true
	p.torn = false

	logger.Log.Debug().
		Str("mode", mode.String()).
		Int("segments", len(segments)).
		Bool("audio", p.cfg.AudioURL != "").
		Dur("offset", p.cfg.Offset).
		Msg("Playback session built")

	return nil
}

// resolveSegments derives the session mode once. A video anywhere in the set selects
// video mode with that video as the only segment.
func resolveSegments(segments []visual.Segment) ([]visual.Segment, timeline.Mode) {
	video, _, ok := lo.FindIndexOf(segments, func(seg visual.Segment) bool {
		return seg.Video
	})
	if !ok {
		return segments, timeline.ModePhotoSequence
	}
	if len(segments) > 1 {
		logger.Log.Debug().
			Int("dropped", len(segments)-1).
			Str("video_url", video.PrimaryURL).
			Msg("Video present, ignoring other segments")
	}
	return []visual.Segment{video}, timeline.ModeVideo
}

// Start mounts the session: the first segment starts loading and the frame loop runs.
// Playback begins once the first visual asset settles. Starting a stopped player
// rebuilds it from the current configuration.
func (p *Player) Start() error {
	if p.started {
		return nil
	}
	if p.torn {
		if err := p.build(); err != nil {
			return err
		}
	}

	p.started = true
	p.clock.Start()
	p.visual.Load()
	p.reconcile(false)
	return nil
}

// Stop unmounts the session. The frame loop stops, pending timers are cancelled, the
// audio handle is released through the registry and the visual handles are released.
func (p *Player) Stop() {
	if p.torn {
		return
	}
	p.teardown()
	p.started = false
	p.notifyPlayState()
}

func (p *Player) teardown() {
	p.cancelPending()
	p.clock.Stop()
	p.visual.Close()
	p.audio.Close()
	p.gestures.Reset()
	p.rolling = false
	p.holding = false
	p.scrubbing = false
	p.torn = true
}

// Play resumes after a user pause. It is a user-initiated action, so a previously
// rejected audio start is retried. A finished session restarts from the beginning.
func (p *Player) Play() {
	p.userPaused = false
	if p.clock.Finished() {
		p.jump(0, 0, true)
		return
	}
	p.reconcile(true)
}

// Pause holds playback until Play is called
func (p *Player) Pause() {
	p.userPaused = true
	p.reconcile(false)
}

// SetPaused applies the externally imposed pause flag
func (p *Player) SetPaused(paused bool) {
	p.cfg.Paused = paused
	p.reconcile(false)
}

// SetMuted mutes the whole session. The audio handle is paused regardless of gain.
func (p *Player) SetMuted(muted bool) {
	p.cfg.Muted = muted
	p.visual.SetMuted(muted)
	p.audio.SetMuted(muted)
	p.resyncAudio()
}

// SetAudioAllowed applies the external audio permission gate
func (p *Player) SetAudioAllowed(allowed bool) {
	p.cfg.AudioAllowed = allowed
	p.audio.SetAllowed(allowed)
	p.resyncAudio()
}

// SetMusicGain sets the audio track's linear gain, clamped to [0, 1]
func (p *Player) SetMusicGain(gain float64) {
	p.cfg.MusicGain = lo.Clamp(gain, 0, 1)
	p.audio.SetGain(p.cfg.MusicGain)
}

// SetVideoGain sets the video's own linear gain, clamped to [0, 1]
func (p *Player) SetVideoGain(gain float64) {
	p.cfg.VideoGain = lo.Clamp(gain, 0, 1)
	p.visual.SetVolume(p.cfg.VideoGain)
}

// SetOffset changes the audio offset and re-aligns the audio at the current position
func (p *Player) SetOffset(offset time.Duration) {
	p.cfg.Offset = offset
	p.audio.SetOffset(offset)
	if p.rolling {
		p.resyncAudio()
		return
	}
	p.seekAudio(p.clock.Elapsed())
}

// SetSources replaces the segments and audio source. The session is torn down and
// rebuilt at index 0; a running session starts again immediately.
func (p *Player) SetSources(segments []visual.Segment, audioURL string) error {
	next := p.cfg
	next.Segments = append([]visual.Segment(nil), segments...)
	next.AudioURL = audioURL
	if err := next.Validate(); err != nil {
		return err
	}
	if next.AudioURL != "" && p.deps.NewAudio == nil {
		return fmt.Errorf("%w: audio factory is required when an audio url is set", ErrMissingDependency)
	}

	wasStarted := p.started
	prevIndex := p.clock.Position().Index
	if !p.torn {
		p.teardown()
	}
	p.started = false
	p.cfg = next

	if err := p.build(); err != nil {
		p.notifyPlayState()
		return err
	}
	if prevIndex != 0 && p.signals.IndexChanged != nil {
		p.signals.IndexChanged(0)
	}
	if wasStarted {
		return p.Start()
	}
	p.notifyPlayState()
	return nil
}

// StepNext moves to the next segment, wrapping to the first when looping
func (p *Player) StepNext() {
	p.step(1, p.cfg.Loop, true)
}

// StepPrev moves to the previous segment, clamped at the first
func (p *Player) StepPrev() {
	p.step(-1, false, true)
}

// GoTo jumps to the start of segment index
func (p *Player) GoTo(index int) error {
	if index < 0 || index >= p.clock.Count() {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	p.jump(index, 0, true)
	return nil
}

// Scrub jumps to main-timeline position to, clamped to the timeline bounds
func (p *Player) Scrub(to time.Duration) {
	pos := p.clock.Locate(to)
	p.jump(pos.Index, pos.Progress, false)
}

// PointerDown feeds a pointer-down at x inside a container of the given width
func (p *Player) PointerDown(x, width float64) {
	p.gestures.PointerDown(x, width)
}

// PointerMove feeds a pointer-move to x
func (p *Player) PointerMove(x float64) {
	p.gestures.PointerMove(x)
}

// PointerUp feeds a pointer-up at x
func (p *Player) PointerUp(x float64) {
	p.gestures.PointerUp(x)
}

// PointerCancel feeds a pointer-cancel
func (p *Player) PointerCancel() {
	p.gestures.PointerCancel()
}

// State returns the effective play state
func (p *Player) State() timeline.PlayState {
	if p.scrubbing {
		return timeline.PlayStateScrubbing
	}
	if p.cfg.Paused || p.userPaused || p.holding || p.clock.Finished() {
		return timeline.PlayStatePaused
	}
	return timeline.PlayStatePlaying
}

// Position returns the current segment and progress
func (p *Player) Position() timeline.Position {
	return p.clock.Position()
}

// Mode returns the session's authoritative clock mode
func (p *Player) Mode() timeline.Mode {
	return p.clock.Mode()
}

// Started reports whether the session is mounted
func (p *Player) Started() bool {
	return p.started
}

// Snapshot returns a point-in-time view of the session
func (p *Player) Snapshot() Snapshot {
	pos := p.clock.Position()
	audioPos, _ := p.audio.Position()
	state := p.State()

	return Snapshot{
		Index:           pos.Index,
		Progress:        pos.Progress,
		Count:           p.clock.Count(),
		Mode:            p.clock.Mode(),
		State:           state,
		Playing:         p.started && state.IsPlaying(),
		PositionMs:      p.clock.Elapsed().Milliseconds(),
		TotalMs:         p.clock.Total().Milliseconds(),
		FirstReady:      p.clock.Ready(),
		Finished:        p.clock.Finished(),
		Loop:            p.cfg.Loop,
		Muted:           p.cfg.Muted,
		AudioURL:        p.cfg.AudioURL,
		AudioAllowed:    p.cfg.AudioAllowed,
		AudioPlaying:    p.audio.Playing(),
		AudioBlocked:    p.audio.Blocked(),
		AudioPositionMs: audioPos.Milliseconds(),
		OffsetMs:        p.cfg.Offset.Milliseconds(),
		MusicGain:       p.cfg.MusicGain,
		VideoGain:       p.cfg.VideoGain,
	}
}

func (p *Player) step(delta int, wrap, user bool) {
	if p.clock.Mode() == timeline.ModeVideo {
		// a video is one segment: previous restarts it, next restarts it only when looping
		if delta > 0 && !wrap {
			return
		}
		p.jump(0, 0, user)
		return
	}

	next := p.clock.Position().Index + delta
	switch {
	case next < 0:
		next = 0
	case next >= p.clock.Count():
		if !wrap {
			return
		}
		next = 0
	}
	p.jump(next, 0, user)
}

// scrubStep moves one drag step without wrapping
func (p *Player) scrubStep(delta int) {
	if p.clock.Mode() == timeline.ModeVideo {
		p.Scrub(p.clock.Elapsed() + time.Duration(delta)*videoScrubStep)
		return
	}

	pos := p.clock.Position()
	next := lo.Clamp(pos.Index+delta, 0, p.clock.Count()-1)
	if next != pos.Index {
		p.jump(next, 0, false)
	}
}

// jump moves the session to an explicit position and re-aligns both tracks
func (p *Player) jump(index int, progress float64, user bool) {
	prev := p.clock.Position().Index
	p.clock.Seek(index, progress)
	pos := p.clock.Position()

	if p.clock.Mode() == timeline.ModeVideo {
		p.visual.Seek(time.Duration(pos.Progress * float64(p.clock.Total())))
	} else {
		p.visual.Show(pos.Index)
	}
	p.fresh = false

	if pos.Index != prev && p.signals.IndexChanged != nil {
		p.signals.IndexChanged(pos.Index)
	}
	if p.signals.Progress != nil {
		p.signals.Progress(pos)
	}

	if p.rolling {
		p.choreograph(p.clock.Elapsed(), false, user)
	} else {
		p.seekAudio(p.clock.Elapsed())
	}
	p.reconcile(user)
}

// reconcile brings the tracks in line with the effective play state
func (p *Player) reconcile(user bool) {
	roll := p.started && p.State().IsPlaying() && p.clock.Ready()

	switch {
	case roll && !p.rolling:
		p.rolling = true
		at := p.clock.Elapsed()
		p.choreograph(at, p.fresh && at == 0, user)
	case !roll && p.rolling:
		p.halt()
	case roll && user && p.audio.Blocked() && p.pendingAudio == nil:
		p.startAudio(true)
	}

	p.notifyPlayState()
}

func (p *Player) notifyPlayState() {
	playing := p.started && p.State().IsPlaying()
	if playing == p.playing {
		return
	}
	p.playing = playing
	if p.signals.PlayStateChanged != nil {
		p.signals.PlayStateChanged(playing)
	}
}

// halt pauses both tracks and freezes the clock
func (p *Player) halt() {
	p.rolling = false
	p.cancelPending()
	p.clock.SetAdvancing(false)
	p.visual.Pause()
	p.audio.Pause()
}

func (p *Player) onFirstReady() {
	p.clock.MarkReady()
	if p.signals.FirstReady != nil {
		p.signals.FirstReady()
	}
	p.reconcile(false)
}

func (p *Player) onLoadError(index int, url string, err error) {
	if p.signals.LoadError != nil {
		p.signals.LoadError(index, url, NewPlaybackError(ErrorTypeAssetLoad, fmt.Sprintf("segment %d failed to load", index), err))
	}
}

func (p *Player) onTick(pos timeline.Position) {
	if p.signals.Progress != nil {
		p.signals.Progress(pos)
	}
}

func (p *Player) onAdvance(_, to int) {
	p.visual.Show(to)
	if p.signals.IndexChanged != nil {
		p.signals.IndexChanged(to)
	}
}

// onLoop restarts a looping video and its audio from the timeline zero
func (p *Player) onLoop() {
	p.cancelPending()
	p.clock.SetAdvancing(false)
	p.visual.Pause()
	p.audio.Pause()
	p.visual.Seek(0)
	p.clock.Seek(0, 0)
	p.choreograph(0, true, false)
}

func (p *Player) onFinish() {
	p.halt()
	logger.Log.Debug().Msg("Playback session finished")
	if p.signals.Finished != nil {
		p.signals.Finished()
	}
	p.notifyPlayState()
}

func (p *Player) handleGesture(action gesture.Action) {
	switch action {
	case gesture.ActionStepPrev:
		p.step(-1, false, true)
	case gesture.ActionStepNext:
		p.step(1, p.cfg.Loop, true)
	case gesture.ActionHoldStart:
		p.holding = true
		p.reconcile(false)
	case gesture.ActionScrubPrev:
		p.scrubbing = true
		p.reconcile(false)
		p.scrubStep(-1)
	case gesture.ActionScrubNext:
		p.scrubbing = true
		p.reconcile(false)
		p.scrubStep(1)
	case gesture.ActionHoldEnd:
		p.holding = false
		p.scrubbing = false
		p.reconcile(true)
	}
}
