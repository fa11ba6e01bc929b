package player

import "github.com/stwalsh4118/reelplay/internal/timeline"

// Signals are the callbacks a surrounding screen may subscribe to. Any of them may be nil.
// They are invoked synchronously on the playback thread.
type Signals struct {
	// IndexChanged reports a new current segment, whether automatic or user driven
	IndexChanged func(index int)

	// FirstReady fires once per session when the first visual asset settles
	FirstReady func()

	// LoadError reports a visual asset that failed to load. Playback continues.
	LoadError func(index int, url string, err error)

	// PlayStateChanged reports transitions of the effective playing flag
	PlayStateChanged func(playing bool)

	// Progress publishes the position after every advancing tick and every jump
	Progress func(pos timeline.Position)

	// Finished fires when a non-looping session reaches its end
	Finished func()
}

// Snapshot is a point-in-time view of a session
type Snapshot struct {
	Index      int                `json:"index"`
	Progress   float64            `json:"progress"`
	Count      int                `json:"count"`
	Mode       timeline.Mode      `json:"mode"`
	State      timeline.PlayState `json:"state"`
	Playing    bool               `json:"playing"`
	PositionMs int64              `json:"position_ms"`
	TotalMs    int64              `json:"total_ms"`
	FirstReady bool               `json:"first_ready"`
	Finished   bool               `json:"finished"`
	Loop       bool               `json:"loop"`
	Muted      bool               `json:"muted"`

	AudioURL        string  `json:"audio_url,omitempty"`
	AudioAllowed    bool    `json:"audio_allowed"`
	AudioPlaying    bool    `json:"audio_playing"`
	AudioBlocked    bool    `json:"audio_blocked"`
	AudioPositionMs int64   `json:"audio_position_ms"`
	OffsetMs        int64   `json:"offset_ms"`
	MusicGain       float64 `json:"music_gain"`
	VideoGain       float64 `json:"video_gain"`
}
