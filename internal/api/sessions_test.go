package api

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/reelplay/internal/models"
	"github.com/stwalsh4118/reelplay/internal/player"
	"github.com/stwalsh4118/reelplay/internal/preview"
	"github.com/stwalsh4118/reelplay/internal/timeline"
)

type sessionFixture struct {
	router *gin.Engine
	host   *preview.Host
	reels  *memoryReelStore
}

// setupSessionTestRouter wires a real, unstarted preview host; tests move its
// clock explicitly with Step
func setupSessionTestRouter(t *testing.T) *sessionFixture {
	t.Helper()

	host, err := preview.NewHost(preview.Config{
		TickRate:        100,
		IdleTimeout:     time.Minute,
		CleanupInterval: time.Minute,
	}, nil)
	require.NoError(t, err)

	defaults := player.DefaultDefaults()
	defaults.Interval = time.Second

	gin.SetMode(gin.TestMode)
	router := gin.New()
	reels := newMemoryReelStore()
	SetupSessionRoutes(router.Group("/api"), host, reels, defaults)

	return &sessionFixture{router: router, host: host, reels: reels}
}

func inlineReel(urls ...string) map[string]any {
	return map[string]any{
		"title": "inline",
		"segments": lo.Map(urls, func(url string, _ int) map[string]any {
			return map[string]any{"primary_url": url}
		}),
	}
}

func (f *sessionFixture) create(t *testing.T, body map[string]any) preview.SessionInfo {
	t.Helper()
	w := doJSON(t, f.router, http.MethodPost, "/api/sessions", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[preview.SessionInfo](t, w)
}

func TestCreateSession_Inline(t *testing.T) {
	f := setupSessionTestRouter(t)

	info := f.create(t, map[string]any{"reel": inlineReel("a.jpg", "b.jpg", "c.jpg")})

	assert.NotEqual(t, uuid.Nil, info.ID)
	assert.Empty(t, info.ReelID)
	assert.Equal(t, timeline.ModePhotoSequence, info.Snapshot.Mode)
	assert.Equal(t, 3, info.Snapshot.Count)

	f.host.Step(0)
	f.host.Step(1500 * time.Millisecond)

	w := doJSON(t, f.router, http.MethodGet, "/api/sessions/"+info.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[preview.SessionInfo](t, w)
	assert.Equal(t, 1, got.Snapshot.Index)
	assert.True(t, got.Snapshot.Playing)
}

func TestCreateSession_FromStoredReel(t *testing.T) {
	f := setupSessionTestRouter(t)
	reel := models.NewReel("Stored", false, []models.ReelSegment{{PrimaryURL: "a.jpg"}, {PrimaryURL: "b.jpg"}})
	reel.OffsetMs = 250
	require.NoError(t, f.reels.Create(context.Background(), reel))

	info := f.create(t, map[string]any{"reel_id": reel.ID.String(), "muted": true})

	assert.Equal(t, reel.ID.String(), info.ReelID)
	assert.Equal(t, int64(250), info.Snapshot.OffsetMs)
	assert.False(t, info.Snapshot.Loop)
	assert.True(t, info.Snapshot.Muted)
}

func TestCreateSession_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		wantError  string
	}{
		{"neither source", map[string]any{}, http.StatusBadRequest, "invalid_request"},
		{"both sources", map[string]any{"reel_id": uuid.NewString(), "reel": inlineReel("a.jpg")}, http.StatusBadRequest, "invalid_request"},
		{"empty segments", map[string]any{"reel": inlineReel()}, http.StatusBadRequest, "invalid_config"},
		{"bad reel id", map[string]any{"reel_id": "nope"}, http.StatusBadRequest, "invalid_id"},
		{"unknown reel", map[string]any{"reel_id": uuid.NewString()}, http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupSessionTestRouter(t)

			w := doJSON(t, f.router, http.MethodPost, "/api/sessions", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantError, decode[ErrorResponse](t, w).Error)
			assert.Zero(t, f.host.Count())
		})
	}
}

func TestSession_PlayPause(t *testing.T) {
	f := setupSessionTestRouter(t)
	info := f.create(t, map[string]any{"reel": inlineReel("a.jpg", "b.jpg")})
	f.host.Step(0)
	path := "/api/sessions/" + info.ID.String()

	w := doJSON(t, f.router, http.MethodPost, path+"/pause", nil)
	require.Equal(t, http.StatusOK, w.Code)
	paused := decode[preview.SessionInfo](t, w)
	assert.False(t, paused.Snapshot.Playing)
	assert.Equal(t, timeline.PlayStatePaused, paused.Snapshot.State)

	f.host.Step(500 * time.Millisecond)
	got, err := f.host.Get(info.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Snapshot.Progress)

	w = doJSON(t, f.router, http.MethodPost, path+"/play", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[preview.SessionInfo](t, w).Snapshot.Playing)
}

func TestSession_ScrubAndStep(t *testing.T) {
	f := setupSessionTestRouter(t)
	info := f.create(t, map[string]any{"reel": inlineReel("a.jpg", "b.jpg", "c.jpg")})
	f.host.Step(0)
	path := "/api/sessions/" + info.ID.String()

	w := doJSON(t, f.router, http.MethodPost, path+"/scrub", map[string]any{"position_ms": 1500})
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[preview.SessionInfo](t, w).Snapshot
	assert.Equal(t, 1, snap.Index)
	assert.InDelta(t, 0.5, snap.Progress, 0.001)

	w = doJSON(t, f.router, http.MethodPost, path+"/step", map[string]any{"direction": "next"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[preview.SessionInfo](t, w).Snapshot.Index)

	w = doJSON(t, f.router, http.MethodPost, path+"/step", map[string]any{"direction": "goto", "index": 0})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[preview.SessionInfo](t, w).Snapshot.Index)

	w = doJSON(t, f.router, http.MethodPost, path+"/step", map[string]any{"direction": "goto", "index": 7})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_index", decode[ErrorResponse](t, w).Error)

	w = doJSON(t, f.router, http.MethodPost, path+"/step", map[string]any{"direction": "goto"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, f.router, http.MethodPost, path+"/step", map[string]any{"direction": "sideways"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, f.router, http.MethodPost, path+"/scrub", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSession_ScrubRejectsOutOfRangePositions(t *testing.T) {
	f := setupSessionTestRouter(t)
	info := f.create(t, map[string]any{"reel": inlineReel("a.jpg", "b.jpg", "c.jpg")})
	f.host.Step(0)
	path := "/api/sessions/" + info.ID.String() + "/scrub"

	w := doJSON(t, f.router, http.MethodPost, path, map[string]any{"position_ms": 1500})
	require.Equal(t, http.StatusOK, w.Code)

	tests := []struct {
		name       string
		positionMs int64
	}{
		{"negative", -1},
		{"overflows duration", maxPositionMs + 1},
		{"max int64", math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, f.router, http.MethodPost, path, map[string]any{"position_ms": tt.positionMs})
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "invalid_request", decode[ErrorResponse](t, w).Error)

			got, err := f.host.Get(info.ID)
			require.NoError(t, err)
			assert.Equal(t, 1, got.Snapshot.Index, "rejected scrub leaves the position alone")
		})
	}

	w = doJSON(t, f.router, http.MethodPost, path, map[string]any{"position_ms": 0})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[preview.SessionInfo](t, w).Snapshot.Index)
}

func TestSession_PointerTap(t *testing.T) {
	f := setupSessionTestRouter(t)
	info := f.create(t, map[string]any{"reel": inlineReel("a.jpg", "b.jpg", "c.jpg")})
	f.host.Step(0)
	path := "/api/sessions/" + info.ID.String() + "/pointer"

	w := doJSON(t, f.router, http.MethodPost, path, map[string]any{"type": "down", "x": 90, "width": 100})
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, f.router, http.MethodPost, path, map[string]any{"type": "up", "x": 90})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[preview.SessionInfo](t, w).Snapshot.Index)

	w = doJSON(t, f.router, http.MethodPost, path, map[string]any{"type": "cancel"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, f.router, http.MethodPost, path, map[string]any{"type": "wiggle"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSession_UpdateSettings(t *testing.T) {
	f := setupSessionTestRouter(t)
	info := f.create(t, map[string]any{"reel": inlineReel("a.jpg")})
	path := "/api/sessions/" + info.ID.String() + "/settings"

	w := doJSON(t, f.router, http.MethodPut, path, map[string]any{
		"muted":      true,
		"music_gain": 0.3,
		"video_gain": 0.6,
		"offset_ms":  -400,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	snap := decode[preview.SessionInfo](t, w).Snapshot
	assert.True(t, snap.Muted)
	assert.Equal(t, 0.3, snap.MusicGain)
	assert.Equal(t, 0.6, snap.VideoGain)
	assert.Equal(t, int64(-400), snap.OffsetMs)

	w = doJSON(t, f.router, http.MethodPut, path, map[string]any{"paused": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, timeline.PlayStatePaused, decode[preview.SessionInfo](t, w).Snapshot.State)

	w = doJSON(t, f.router, http.MethodPut, path, map[string]any{"music_gain": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSession_UpdateSources(t *testing.T) {
	f := setupSessionTestRouter(t)
	info := f.create(t, map[string]any{"reel": inlineReel("a.jpg", "b.jpg")})
	path := "/api/sessions/" + info.ID.String() + "/sources"

	w := doJSON(t, f.router, http.MethodPut, path, map[string]any{
		"segments":  []map[string]any{{"primary_url": "x.jpg"}, {"primary_url": "y.jpg"}, {"primary_url": "z.jpg"}},
		"audio_url": "song.mp3",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	snap := decode[preview.SessionInfo](t, w).Snapshot
	assert.Equal(t, 3, snap.Count)
	assert.Equal(t, "song.mp3", snap.AudioURL)

	w = doJSON(t, f.router, http.MethodPut, path, map[string]any{"segments": []map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_config", decode[ErrorResponse](t, w).Error)
}

func TestSession_Events(t *testing.T) {
	f := setupSessionTestRouter(t)
	info := f.create(t, map[string]any{"reel": inlineReel("a.jpg", "b.jpg")})
	f.host.Step(0)
	f.host.Step(1200 * time.Millisecond)
	path := "/api/sessions/" + info.ID.String() + "/events"

	w := doJSON(t, f.router, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	events := decode[EventListResponse](t, w).Events
	require.NotEmpty(t, events)
	assert.Contains(t, lo.Map(events, func(ev preview.Event, _ int) preview.EventType { return ev.Type }), preview.EventFirstReady)

	last := events[len(events)-1].Seq
	w = doJSON(t, f.router, http.MethodGet, fmt.Sprintf("%s?since=%d", path, last), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[EventListResponse](t, w).Events)
	assert.Contains(t, w.Body.String(), `"events":[]`)

	w = doJSON(t, f.router, http.MethodGet, path+"?since=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSession_ListAndDelete(t *testing.T) {
	f := setupSessionTestRouter(t)
	first := f.create(t, map[string]any{"reel": inlineReel("a.jpg")})
	f.create(t, map[string]any{"reel": inlineReel("b.jpg")})

	w := doJSON(t, f.router, http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[SessionListResponse](t, w).Sessions, 2)

	w = doJSON(t, f.router, http.MethodDelete, "/api/sessions/"+first.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, f.router, http.MethodDelete, "/api/sessions/"+first.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, f.router, http.MethodPost, "/api/sessions/"+first.ID.String()+"/play", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 1, f.host.Count())
}
