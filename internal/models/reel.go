// Package models holds the persisted documents served by the API.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stwalsh4118/reelplay/internal/media"
	"github.com/stwalsh4118/reelplay/internal/player"
	"github.com/stwalsh4118/reelplay/internal/visual"
)

// Reel is a stored playback configuration: an ordered set of segments plus the
// audio track and mixing settings that go with them
type Reel struct {
	ID         uuid.UUID `json:"id" gorm:"type:text;primaryKey;column:id"`
	Title      string    `json:"title" gorm:"type:text;not null;column:title"`
	AudioURL   *string   `json:"audio_url,omitempty" gorm:"type:text;column:audio_url"`
	OffsetMs   int64     `json:"offset_ms" gorm:"type:integer;not null;default:0;column:offset_ms"`
	MusicGain  *float64  `json:"music_gain,omitempty" gorm:"type:real;column:music_gain"`
	VideoGain  *float64  `json:"video_gain,omitempty" gorm:"type:real;column:video_gain"`
	Loop       bool      `json:"loop" gorm:"type:integer;not null;column:loop"`
	IntervalMs *int64    `json:"interval_ms,omitempty" gorm:"type:integer;column:interval_ms"`
	CreatedAt  time.Time `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`

	Segments []ReelSegment `json:"segments" gorm:"foreignKey:ReelID;references:ID"`
}

// ReelSegment is one visual unit of a reel
type ReelSegment struct {
	ID         uuid.UUID  `json:"id" gorm:"type:text;primaryKey;column:id"`
	ReelID     uuid.UUID  `json:"reel_id" gorm:"type:text;not null;column:reel_id"`
	Position   int        `json:"position" gorm:"type:integer;not null;column:position"`
	PrimaryURL string     `json:"primary_url" gorm:"type:text;not null;column:primary_url"`
	PreviewURL *string    `json:"preview_url,omitempty" gorm:"type:text;column:preview_url"`
	Kind       media.Kind `json:"kind" gorm:"type:text;not null;column:kind"`
	DurationMs *int64     `json:"duration_ms,omitempty" gorm:"type:integer;column:duration_ms"`
}

// NewReel creates a new Reel with generated UUID and timestamps. Segment
// positions follow slice order and kinds default to the URL classification.
func NewReel(title string, loop bool, segments []ReelSegment) *Reel {
	now := time.Now().UTC()
	reel := &Reel{
		ID:        uuid.New(),
		Title:     title,
		Loop:      loop,
		CreatedAt: now,
		UpdatedAt: now,
	}
	reel.Segments = lo.Map(segments, func(seg ReelSegment, i int) ReelSegment {
		seg.ID = uuid.New()
		seg.ReelID = reel.ID
		seg.Position = i
		if seg.Kind == "" || seg.Kind == media.KindUnknown {
			seg.Kind = classifySegment(seg.PrimaryURL)
		}
		return seg
	})
	return reel
}

// classifySegment maps a URL onto the two visual kinds a segment may have
func classifySegment(url string) media.Kind {
	if media.Classify(url) == media.KindVideo {
		return media.KindVideo
	}
	return media.KindImage
}

// VisualSegment converts the stored segment to the player's segment type
func (s ReelSegment) VisualSegment() visual.Segment {
	seg := visual.Segment{
		PrimaryURL: s.PrimaryURL,
		PreviewURL: lo.FromPtr(s.PreviewURL),
		Video:      s.Kind == media.KindVideo,
	}
	if s.DurationMs != nil && *s.DurationMs > 0 {
		seg.Duration = time.Duration(*s.DurationMs) * time.Millisecond
	}
	return seg
}

// PlayerConfig builds a player configuration from the reel. Settings the reel
// leaves unset come from defaults.
func (r *Reel) PlayerConfig(defaults player.Defaults) player.Config {
	cfg := defaults.Config()
	cfg.Segments = lo.Map(r.Segments, func(seg ReelSegment, _ int) visual.Segment {
		return seg.VisualSegment()
	})
	cfg.AudioURL = lo.FromPtr(r.AudioURL)
	cfg.Offset = time.Duration(r.OffsetMs) * time.Millisecond
	cfg.Loop = r.Loop
	if r.MusicGain != nil {
		cfg.MusicGain = *r.MusicGain
	}
	if r.VideoGain != nil {
		cfg.VideoGain = *r.VideoGain
	}
	if r.IntervalMs != nil && *r.IntervalMs > 0 {
		cfg.Interval = time.Duration(*r.IntervalMs) * time.Millisecond
	}
	return cfg
}
