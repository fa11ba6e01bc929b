package player

import (
	"time"

	"github.com/stwalsh4118/reelplay/internal/audio"
	"github.com/stwalsh4118/reelplay/internal/logger"
)

// choreograph starts both tracks for main-timeline position at.
//
// From the session's zero point a negative offset leads with the audio: it starts
// at its own zero and the visual follows |offset| later. Everywhere else the visual
// starts now and the audio is cued at max(0, at-offset), starting late when that
// position is still ahead of the audio's zero.
func (p *Player) choreograph(at time.Duration, fromStart, user bool) {
	p.cancelPending()
	p.fresh = false
	offset := p.audio.Offset()

	if fromStart && offset < 0 && p.audio.HasSource() {
		p.clock.SetAdvancing(false)
		p.visual.Pause()
		if err := p.audio.SeekAudio(0); err != nil {
			p.audioUnavailable(err)
		}
		p.startAudio(user)
		p.pendingVisual = p.deps.Scheduler.AfterFunc(-offset, func() {
			p.pendingVisual = nil
			p.startVisual()
		})
		return
	}

	p.startVisual()
	p.cueAudio(at, user)
}

// cueAudio aligns the audio with main-timeline position at and starts it now or once
// the offset has elapsed
func (p *Player) cueAudio(at time.Duration, user bool) {
	if !p.audio.HasSource() {
		return
	}
	if wait := p.audio.Offset() - at; wait > 0 {
		p.audio.Pause()
		p.seekAudio(at)
		p.pendingAudio = p.deps.Scheduler.AfterFunc(wait, func() {
			p.pendingAudio = nil
			p.startAudio(user)
		})
		return
	}
	p.seekAudio(at)
	p.startAudio(user)
}

// resyncAudio re-cues a rolling session's audio after its settings changed.
// During an audio lead-in the audio is already positioned and is left alone.
func (p *Player) resyncAudio() {
	if !p.rolling || p.pendingVisual != nil {
		return
	}
	if p.pendingAudio != nil {
		p.pendingAudio()
		p.pendingAudio = nil
	}
	p.cueAudio(p.clock.Elapsed(), false)
}

func (p *Player) startVisual() {
	if err := p.visual.Start(); err != nil {
		index := p.clock.Position().Index
		p.onLoadError(index, p.segments[index].PrimaryURL, err)
	}
	p.clock.SetAdvancing(true)
}

// startAudio starts the audio track. A platform rejection is swallowed and retried
// on the next user-initiated play.
func (p *Player) startAudio(user bool) {
	if !p.audio.HasSource() {
		return
	}
	err := p.audio.Start(user)
	if err == nil {
		return
	}
	if audio.IsStartRejected(err) {
		perr := NewPlaybackError(ErrorTypeAudioRejected, "audio start rejected", err)
		logger.Log.Debug().
			Err(perr).
			Str("audio_url", p.audio.URL()).
			Bool("user_initiated", user).
			Msg("Audio start rejected, waiting for user play")
		return
	}
	p.audioUnavailable(err)
}

// seekAudio positions the audio for main-timeline position at. An unmounted session
// holds no audio handle, so seeking it must not create one.
func (p *Player) seekAudio(at time.Duration) {
	if p.torn {
		return
	}
	if err := p.audio.SeekTimeline(at); err != nil {
		p.audioUnavailable(err)
	}
}

func (p *Player) audioUnavailable(err error) {
	logger.Log.Warn().
		Err(NewPlaybackError(ErrorTypeAssetLoad, "audio track unavailable", err)).
		Str("audio_url", p.audio.URL()).
		Msg("Audio track failed, continuing without sound")
}

func (p *Player) cancelPending() {
	if p.pendingAudio != nil {
		p.pendingAudio()
		p.pendingAudio = nil
	}
	if p.pendingVisual != nil {
		p.pendingVisual()
		p.pendingVisual = nil
	}
}
