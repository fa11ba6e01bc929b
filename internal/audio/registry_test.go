package audio

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHandle records the calls made on it
type fakeHandle struct {
	name     string
	playing  bool
	position time.Duration
	volume   float64
	loop     bool
	released bool
	playErr  error
	plays    int
	seeks    []time.Duration
}

func (h *fakeHandle) Play() error {
	h.plays++
	if h.playErr != nil {
		return h.playErr
	}
	h.playing = true
	return nil
}

func (h *fakeHandle) Pause()                  { h.playing = false }
func (h *fakeHandle) Seek(pos time.Duration)  { h.position = pos; h.seeks = append(h.seeks, pos) }
func (h *fakeHandle) Position() time.Duration { return h.position }
func (h *fakeHandle) SetVolume(v float64)     { h.volume = v }
func (h *fakeHandle) SetLoop(loop bool)       { h.loop = loop }
func (h *fakeHandle) Release()                { h.released = true; h.playing = false }

func TestRegistry_ClaimPlaysHandle(t *testing.T) {
	reg := NewRegistry()
	h := &fakeHandle{name: "a"}

	require.NoError(t, reg.Claim(h))

	assert.True(t, h.playing)
	assert.True(t, reg.Holds(h))
	assert.Equal(t, Handle(h), reg.Current())
}

func TestRegistry_ClaimDisplacesPrevious(t *testing.T) {
	reg := NewRegistry()
	a := &fakeHandle{name: "a", position: 5 * time.Second}
	b := &fakeHandle{name: "b"}

	require.NoError(t, reg.Claim(a))
	a.position = 5 * time.Second
	require.NoError(t, reg.Claim(b))

	assert.False(t, a.playing)
	assert.Equal(t, time.Duration(0), a.position, "displaced handle is rewound")
	assert.True(t, b.playing)
	assert.True(t, reg.Holds(b))
	assert.False(t, reg.Holds(a))
}

func TestRegistry_ClaimIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	a := &fakeHandle{name: "a"}

	require.NoError(t, reg.Claim(a))
	a.position = 3 * time.Second
	require.NoError(t, reg.Claim(a))

	assert.True(t, a.playing)
	assert.Equal(t, 3*time.Second, a.position, "re-claiming does not rewind the claimant")
}

func TestRegistry_ClaimRejected(t *testing.T) {
	reg := NewRegistry()
	rejection := errors.New("NotAllowedError")
	a := &fakeHandle{name: "a", playErr: rejection}

	err := reg.Claim(a)

	assert.ErrorIs(t, err, rejection)
	assert.Nil(t, reg.Current())
}

func TestRegistry_ClaimNil(t *testing.T) {
	assert.ErrorIs(t, NewRegistry().Claim(nil), ErrNilHandle)
}

func TestRegistry_ReleaseOnlyAffectsClaimant(t *testing.T) {
	reg := NewRegistry()
	a := &fakeHandle{name: "a"}
	b := &fakeHandle{name: "b", playing: true}

	require.NoError(t, reg.Claim(a))
	reg.Release(b)

	assert.True(t, a.playing)
	assert.True(t, b.playing, "release of a non-claimant is a no-op")
	assert.True(t, reg.Holds(a))

	reg.Release(a)
	reg.Release(a)
	reg.Release(nil)

	assert.False(t, a.playing)
	assert.Nil(t, reg.Current())
}

func TestRegistry_SingleClaimInvariant(t *testing.T) {
	reg := NewRegistry()
	rng := rand.New(rand.NewSource(42))

	handles := make([]*fakeHandle, 8)
	for i := range handles {
		handles[i] = &fakeHandle{}
	}

	for step := 0; step < 2000; step++ {
		h := handles[rng.Intn(len(handles))]
		if rng.Intn(3) == 0 {
			reg.Release(h)
		} else {
			require.NoError(t, reg.Claim(h))
		}

		playing := 0
		for _, candidate := range handles {
			if candidate.playing {
				playing++
				assert.True(t, reg.Holds(candidate), "step %d: playing handle must be the claimant", step)
			}
		}
		assert.LessOrEqual(t, playing, 1, "step %d", step)
	}
}
