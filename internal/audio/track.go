package audio

import (
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/stwalsh4118/reelplay/internal/logger"
)

// TrackConfig holds the initial settings of an audio track
type TrackConfig struct {
	URL     string
	Offset  time.Duration
	Gain    float64
	Loop    bool
	Muted   bool
	Allowed bool
}

// Track controls one session's music track. The handle is created lazily on first
// need and replaced whenever the source URL changes. All playback goes through the
// Registry, so a Track never assumes it owns global audio state.
type Track struct {
	registry *Registry
	factory  Factory
	handle   Handle

	url     string
	offset  time.Duration
	gain    float64
	loop    bool
	muted   bool
	allowed bool

	// blocked is set when the platform rejected a start; only a user-initiated
	// start retries until it clears
	blocked bool
}

// NewTrack creates a track without creating its handle
func NewTrack(registry *Registry, factory Factory, cfg TrackConfig) *Track {
	return &Track{
		registry: registry,
		factory:  factory,
		url:      cfg.URL,
		offset:   cfg.Offset,
		gain:     lo.Clamp(cfg.Gain, 0, 1),
		loop:     cfg.Loop,
		muted:    cfg.Muted,
		allowed:  cfg.Allowed,
	}
}

// URL returns the current source URL
func (t *Track) URL() string {
	return t.url
}

// HasSource reports whether an audio source is configured
func (t *Track) HasSource() bool {
	return t.url != ""
}

// Audible reports whether the track may produce sound at all
func (t *Track) Audible() bool {
	return t.HasSource() && !t.muted && t.allowed
}

// Blocked reports whether the last start was rejected by the platform
func (t *Track) Blocked() bool {
	return t.blocked
}

// Offset returns the audio offset relative to the main timeline
func (t *Track) Offset() time.Duration {
	return t.offset
}

// SetOffset changes the offset used by SeekTimeline
func (t *Track) SetOffset(offset time.Duration) {
	t.offset = offset
}

// Gain returns the linear gain
func (t *Track) Gain() float64 {
	return t.gain
}

// SetGain applies a linear gain in [0, 1] directly to the handle volume
func (t *Track) SetGain(gain float64) {
	t.gain = lo.Clamp(gain, 0, 1)
	if t.handle != nil {
		t.handle.SetVolume(t.gain)
	}
}

// SetMuted mutes or unmutes the track. Muting pauses the handle regardless of gain.
func (t *Track) SetMuted(muted bool) {
	t.muted = muted
	if !t.Audible() {
		t.Pause()
	}
}

// SetAllowed applies the external permission gate. A closed gate pauses the handle.
func (t *Track) SetAllowed(allowed bool) {
	t.allowed = allowed
	if !t.Audible() {
		t.Pause()
	}
}

// SetSource switches to a new URL. The old handle is released through the Registry
// and the new one is created on next need, starting at the offset-adjusted zero.
func (t *Track) SetSource(url string) {
	if url == t.url {
		return
	}
	t.releaseHandle()
	t.url = url
	t.blocked = false
}

// Start makes the track audible through the Registry. When the track cannot be
// audible it is paused instead. After a platform rejection, only a user-initiated
// start tries again.
func (t *Track) Start(userInitiated bool) error {
	if !t.Audible() {
		t.Pause()
		return nil
	}
	if t.blocked && !userInitiated {
		return nil
	}

	h, err := t.ensure()
	if err != nil {
		return err
	}

	if err := t.registry.Claim(h); err != nil {
		t.blocked = true
		return fmt.Errorf("%w: %v", ErrStartRejected, err)
	}
	t.blocked = false
	return nil
}

// Pause silences the track, giving up its claim if it holds one
func (t *Track) Pause() {
	if t.handle == nil {
		return
	}
	t.registry.Release(t.handle)
	t.handle.Pause()
}

// Playing reports whether this track currently holds the audible claim
func (t *Track) Playing() bool {
	return t.registry.Holds(t.handle)
}

// SeekTimeline positions the audio for main-timeline position pos, honouring the offset
func (t *Track) SeekTimeline(pos time.Duration) error {
	return t.SeekAudio(TimelineToAudio(pos, t.offset))
}

// SeekAudio positions the audio handle directly, creating it if needed
func (t *Track) SeekAudio(pos time.Duration) error {
	if !t.HasSource() {
		return nil
	}
	h, err := t.ensure()
	if err != nil {
		return err
	}
	h.Seek(max(0, pos))
	return nil
}

// Position returns the handle's position, or false when no handle exists
func (t *Track) Position() (time.Duration, bool) {
	if t.handle == nil {
		return 0, false
	}
	return t.handle.Position(), true
}

// Close releases the handle. The track can be reused; a new handle is created on next need.
func (t *Track) Close() {
	t.releaseHandle()
}

func (t *Track) ensure() (Handle, error) {
	if t.handle != nil {
		return t.handle, nil
	}
	if !t.HasSource() {
		return nil, ErrNoSource
	}

	h, err := t.factory(t.url)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio handle: %w", err)
	}
	h.SetVolume(t.gain)
	h.SetLoop(t.loop)
	t.handle = h

	logger.Log.Debug().
		Str("url", t.url).
		Float64("gain", t.gain).
		Bool("loop", t.loop).
		Msg("Audio handle created")

	return h, nil
}

func (t *Track) releaseHandle() {
	if t.handle == nil {
		return
	}
	t.registry.Release(t.handle)
	t.handle.Release()
	t.handle = nil
}
