package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/reelplay/internal/db"
	"github.com/stwalsh4118/reelplay/internal/media"
	"github.com/stwalsh4118/reelplay/internal/models"
	"github.com/stwalsh4118/reelplay/internal/player"
)

// memoryReelStore is an in-memory reelStore
type memoryReelStore struct {
	mu        sync.Mutex
	reels     map[uuid.UUID]*models.Reel
	createErr error
}

func newMemoryReelStore() *memoryReelStore {
	return &memoryReelStore{reels: make(map[uuid.UUID]*models.Reel)}
}

func (m *memoryReelStore) Create(_ context.Context, reel *models.Reel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.reels[reel.ID] = reel
	return nil
}

func (m *memoryReelStore) GetByID(_ context.Context, id uuid.UUID) (*models.Reel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reel, ok := m.reels[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return reel, nil
}

func (m *memoryReelStore) List(_ context.Context) ([]*models.Reel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reels := lo.Values(m.reels)
	sort.Slice(reels, func(i, j int) bool { return reels[i].CreatedAt.After(reels[j].CreatedAt) })
	return reels, nil
}

func (m *memoryReelStore) Update(_ context.Context, reel *models.Reel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reels[reel.ID]; !ok {
		return db.ErrNotFound
	}
	m.reels[reel.ID] = reel
	return nil
}

func (m *memoryReelStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reels[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.reels, id)
	return nil
}

func setupReelTestRouter(store reelStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupReelRoutes(router.Group("/api"), store, player.DefaultDefaults())
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateReel_Success(t *testing.T) {
	store := newMemoryReelStore()
	router := setupReelTestRouter(store)

	w := doJSON(t, router, http.MethodPost, "/api/reels", map[string]any{
		"title":     "Summer",
		"audio_url": "https://cdn.example.com/song.mp3",
		"offset_ms": -300,
		"segments": []map[string]any{
			{"primary_url": "https://cdn.example.com/a.jpg", "preview_url": "https://cdn.example.com/a_s.jpg"},
			{"primary_url": "https://cdn.example.com/b.jpg", "duration_ms": 1500},
		},
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reel := decode[models.Reel](t, w)
	assert.Equal(t, "Summer", reel.Title)
	assert.Equal(t, int64(-300), reel.OffsetMs)
	assert.True(t, reel.Loop, "loop follows the deployment default")
	require.Len(t, reel.Segments, 2)
	assert.Equal(t, media.KindImage, reel.Segments[0].Kind)
	assert.Equal(t, 1, reel.Segments[1].Position)

	stored, err := store.GetByID(context.Background(), reel.ID)
	require.NoError(t, err)
	assert.Equal(t, "Summer", stored.Title)
}

func TestCreateReel_Validation(t *testing.T) {
	tests := []struct {
		name      string
		body      map[string]any
		wantError string
	}{
		{
			name:      "missing title",
			body:      map[string]any{"segments": []map[string]any{{"primary_url": "a.jpg"}}},
			wantError: "invalid_request",
		},
		{
			name:      "empty segments",
			body:      map[string]any{"title": "Empty", "segments": []map[string]any{}},
			wantError: "invalid_config",
		},
		{
			name:      "segments omitted",
			body:      map[string]any{"title": "Empty"},
			wantError: "invalid_config",
		},
		{
			name: "gain out of range",
			body: map[string]any{
				"title":      "Loud",
				"music_gain": 1.5,
				"segments":   []map[string]any{{"primary_url": "a.jpg"}},
			},
			wantError: "invalid_config",
		},
		{
			name: "unknown kind",
			body: map[string]any{
				"title":    "Odd",
				"segments": []map[string]any{{"primary_url": "a.jpg", "kind": "document"}},
			},
			wantError: "invalid_config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupReelTestRouter(newMemoryReelStore())

			w := doJSON(t, router, http.MethodPost, "/api/reels", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantError, decode[ErrorResponse](t, w).Error)
		})
	}
}

func TestCreateReel_StoreFailure(t *testing.T) {
	store := newMemoryReelStore()
	store.createErr = assert.AnError
	router := setupReelTestRouter(store)

	w := doJSON(t, router, http.MethodPost, "/api/reels", map[string]any{
		"title":    "Fails",
		"segments": []map[string]any{{"primary_url": "a.jpg"}},
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "create_failed", decode[ErrorResponse](t, w).Error)
}

func TestGetReel(t *testing.T) {
	store := newMemoryReelStore()
	reel := models.NewReel("Stored", true, []models.ReelSegment{{PrimaryURL: "a.jpg"}})
	require.NoError(t, store.Create(context.Background(), reel))
	router := setupReelTestRouter(store)

	t.Run("found", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/reels/"+reel.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, reel.ID, decode[models.Reel](t, w).ID)
	})

	t.Run("not found", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/reels/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/reels/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_id", decode[ErrorResponse](t, w).Error)
	})
}

func TestListReels(t *testing.T) {
	store := newMemoryReelStore()
	router := setupReelTestRouter(store)

	w := doJSON(t, router, http.MethodGet, "/api/reels", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[ReelListResponse](t, w).Reels)
	assert.Contains(t, w.Body.String(), `"reels":[]`)

	require.NoError(t, store.Create(context.Background(), models.NewReel("One", true, []models.ReelSegment{{PrimaryURL: "a.jpg"}})))

	w = doJSON(t, router, http.MethodGet, "/api/reels", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[ReelListResponse](t, w).Reels, 1)
}

func TestUpdateReel(t *testing.T) {
	store := newMemoryReelStore()
	reel := models.NewReel("Before", true, []models.ReelSegment{{PrimaryURL: "a.jpg"}})
	require.NoError(t, store.Create(context.Background(), reel))
	router := setupReelTestRouter(store)

	w := doJSON(t, router, http.MethodPut, "/api/reels/"+reel.ID.String(), map[string]any{
		"title":    "After",
		"loop":     false,
		"segments": []map[string]any{{"primary_url": "clip.mp4"}},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.Reel](t, w)
	assert.Equal(t, reel.ID, updated.ID)
	assert.Equal(t, "After", updated.Title)
	assert.False(t, updated.Loop)
	require.Len(t, updated.Segments, 1)
	assert.Equal(t, media.KindVideo, updated.Segments[0].Kind)
	assert.Equal(t, reel.ID, updated.Segments[0].ReelID)

	w = doJSON(t, router, http.MethodPut, "/api/reels/"+uuid.NewString(), map[string]any{
		"title":    "Ghost",
		"segments": []map[string]any{{"primary_url": "a.jpg"}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteReel(t *testing.T) {
	store := newMemoryReelStore()
	reel := models.NewReel("Doomed", true, []models.ReelSegment{{PrimaryURL: "a.jpg"}})
	require.NoError(t, store.Create(context.Background(), reel))
	router := setupReelTestRouter(store)

	w := doJSON(t, router, http.MethodDelete, "/api/reels/"+reel.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/reels/"+reel.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
