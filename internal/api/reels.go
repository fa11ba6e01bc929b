// Package api provides HTTP handlers for the REST API endpoints.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stwalsh4118/reelplay/internal/db"
	"github.com/stwalsh4118/reelplay/internal/logger"
	"github.com/stwalsh4118/reelplay/internal/media"
	"github.com/stwalsh4118/reelplay/internal/models"
	"github.com/stwalsh4118/reelplay/internal/player"
)

const requestTimeout = 5 * time.Second

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// reelStore defines the persistence operations ReelHandler needs
type reelStore interface {
	Create(ctx context.Context, reel *models.Reel) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Reel, error)
	List(ctx context.Context) ([]*models.Reel, error)
	Update(ctx context.Context, reel *models.Reel) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SegmentRequest describes one segment in a request body
type SegmentRequest struct {
	PrimaryURL string  `json:"primary_url" binding:"required"`
	PreviewURL *string `json:"preview_url,omitempty"`
	Kind       *string `json:"kind,omitempty"`
	DurationMs *int64  `json:"duration_ms,omitempty"`
}

// ReelRequest represents a request to create or replace a reel
type ReelRequest struct {
	Title      string           `json:"title" binding:"required"`
	AudioURL   *string          `json:"audio_url,omitempty"`
	OffsetMs   int64            `json:"offset_ms"`
	MusicGain  *float64         `json:"music_gain,omitempty"`
	VideoGain  *float64         `json:"video_gain,omitempty"`
	Loop       *bool            `json:"loop,omitempty"`
	IntervalMs *int64           `json:"interval_ms,omitempty"`
	Segments   []SegmentRequest `json:"segments" binding:"dive"`
}

// ReelListResponse represents a list of reels
type ReelListResponse struct {
	Reels []*models.Reel `json:"reels"`
}

// ReelHandler handles reel-related API requests
type ReelHandler struct {
	store    reelStore
	defaults player.Defaults
}

// NewReelHandler creates a new reel handler instance
func NewReelHandler(store reelStore, defaults player.Defaults) *ReelHandler {
	return &ReelHandler{store: store, defaults: defaults}
}

// toReel builds a reel from the request and checks it would produce a playable session
func (r ReelRequest) toReel(defaults player.Defaults) (*models.Reel, error) {
	for _, seg := range r.Segments {
		if seg.Kind == nil {
			continue
		}
		if kind := media.Kind(*seg.Kind); kind != media.KindImage && kind != media.KindVideo {
			return nil, player.NewPlaybackError(player.ErrorTypeInvalidConfig, "segment kind must be image or video", nil)
		}
	}

	segments := lo.Map(r.Segments, func(seg SegmentRequest, _ int) models.ReelSegment {
		return models.ReelSegment{
			PrimaryURL: seg.PrimaryURL,
			PreviewURL: seg.PreviewURL,
			Kind:       media.Kind(lo.FromPtr(seg.Kind)),
			DurationMs: seg.DurationMs,
		}
	})

	reel := models.NewReel(r.Title, lo.FromPtrOr(r.Loop, defaults.Loop), segments)
	reel.AudioURL = r.AudioURL
	reel.OffsetMs = r.OffsetMs
	reel.MusicGain = r.MusicGain
	reel.VideoGain = r.VideoGain
	reel.IntervalMs = r.IntervalMs

	if err := reel.PlayerConfig(defaults).Validate(); err != nil {
		return nil, err
	}
	return reel, nil
}

// respondInvalidConfig writes the 400 for a configuration that cannot be played
func respondInvalidConfig(c *gin.Context, err error) {
	var perr *player.PlaybackError
	message := err.Error()
	if errors.As(err, &perr) {
		message = perr.Message
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_config",
		Message: message,
	})
}

// parseID reads the :id path parameter, writing a 400 when it is not a UUID
func parseID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid " + what + " ID format",
		})
		return uuid.Nil, false
	}
	return id, true
}

// CreateReel handles POST /api/reels
func (h *ReelHandler) CreateReel(c *gin.Context) {
	var req ReelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
		})
		return
	}

	reel, err := req.toReel(h.defaults)
	if err != nil {
		respondInvalidConfig(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.store.Create(ctx, reel); err != nil {
		logger.Log.Error().
			Err(err).
			Str("title", reel.Title).
			Msg("Failed to create reel")

		if db.IsInvalidInput(err) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_config",
				Message: "Reel rejected by storage constraints",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "create_failed",
			Message: "Failed to create reel",
		})
		return
	}

	logger.Log.Info().
		Str("reel_id", reel.ID.String()).
		Str("title", reel.Title).
		Int("segments", len(reel.Segments)).
		Msg("Reel created successfully")

	c.JSON(http.StatusCreated, reel)
}

// ListReels handles GET /api/reels
func (h *ReelHandler) ListReels(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	reels, err := h.store.List(ctx)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Msg("Failed to list reels")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "query_failed",
			Message: "Failed to retrieve reel list",
		})
		return
	}

	if reels == nil {
		reels = []*models.Reel{}
	}
	c.JSON(http.StatusOK, ReelListResponse{Reels: reels})
}

// GetReel handles GET /api/reels/:id
func (h *ReelHandler) GetReel(c *gin.Context) {
	id, ok := parseID(c, "reel")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	reel, err := h.store.GetByID(ctx, id)
	if err != nil {
		h.respondLookupError(c, id, err, "Failed to retrieve reel")
		return
	}

	c.JSON(http.StatusOK, reel)
}

// UpdateReel handles PUT /api/reels/:id. The request replaces the whole reel.
func (h *ReelHandler) UpdateReel(c *gin.Context) {
	id, ok := parseID(c, "reel")
	if !ok {
		return
	}

	var req ReelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
		})
		return
	}

	reel, err := req.toReel(h.defaults)
	if err != nil {
		respondInvalidConfig(c, err)
		return
	}
	reel.ID = id
	for i := range reel.Segments {
		reel.Segments[i].ReelID = id
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.store.Update(ctx, reel); err != nil {
		h.respondLookupError(c, id, err, "Failed to update reel")
		return
	}

	updated, err := h.store.GetByID(ctx, id)
	if err != nil {
		h.respondLookupError(c, id, err, "Failed to retrieve reel")
		return
	}

	logger.Log.Info().
		Str("reel_id", id.String()).
		Msg("Reel updated successfully")

	c.JSON(http.StatusOK, updated)
}

// DeleteReel handles DELETE /api/reels/:id
func (h *ReelHandler) DeleteReel(c *gin.Context) {
	id, ok := parseID(c, "reel")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.store.Delete(ctx, id); err != nil {
		h.respondLookupError(c, id, err, "Failed to delete reel")
		return
	}

	logger.Log.Info().
		Str("reel_id", id.String()).
		Msg("Reel deleted successfully")

	c.Status(http.StatusNoContent)
}

func (h *ReelHandler) respondLookupError(c *gin.Context, id uuid.UUID, err error, message string) {
	if db.IsNotFound(err) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Reel not found",
		})
		return
	}

	logger.Log.Error().
		Err(err).
		Str("reel_id", id.String()).
		Msg(message)

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "query_failed",
		Message: message,
	})
}

// SetupReelRoutes registers reel routes
func SetupReelRoutes(apiGroup *gin.RouterGroup, store reelStore, defaults player.Defaults) {
	handler := NewReelHandler(store, defaults)

	reels := apiGroup.Group("/reels")
	reels.POST("", handler.CreateReel)
	reels.GET("", handler.ListReels)
	reels.GET("/:id", handler.GetReel)
	reels.PUT("/:id", handler.UpdateReel)
	reels.DELETE("/:id", handler.DeleteReel)
}
