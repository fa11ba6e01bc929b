package audio

import (
	"sync"

	"github.com/stwalsh4118/reelplay/internal/logger"
)

// Registry is the single arbiter of which audio handle may produce sound.
// One Registry is shared by every player in a process and injected into each session.
// Claim and Release are idempotent and safe to call redundantly.
type Registry struct {
	mu      sync.Mutex
	current Handle
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Claim makes h the audible handle. A different previous claimant is paused and
// rewound to zero before being displaced. If h refuses to play, the claim is
// dropped and the platform error returned.
func (r *Registry) Claim(h Handle) error {
	if h == nil {
		return ErrNilHandle
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil && r.current != h {
		r.current.Pause()
		r.current.Seek(0)
		logger.Log.Debug().Msg("Audio claim displaced previous handle")
	}

	r.current = h
	if err := h.Play(); err != nil {
		r.current = nil
		return err
	}
	return nil
}

// Release pauses h and clears the claim if h is the current claimant; otherwise it is a no-op
func (r *Registry) Release(h Handle) {
	if h == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != h {
		return
	}
	r.current = nil
	h.Pause()
}

// Current returns the audible handle, or nil
func (r *Registry) Current() Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Holds reports whether h is the current claimant
func (r *Registry) Holds(h Handle) bool {
	if h == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current == h
}
