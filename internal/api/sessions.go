package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stwalsh4118/reelplay/internal/db"
	"github.com/stwalsh4118/reelplay/internal/logger"
	"github.com/stwalsh4118/reelplay/internal/player"
	"github.com/stwalsh4118/reelplay/internal/preview"
)

// sessionHost defines the preview operations SessionHandler needs
type sessionHost interface {
	Create(cfg player.Config, reelID string) (*preview.SessionInfo, error)
	Get(id uuid.UUID) (*preview.SessionInfo, error)
	List() []preview.SessionInfo
	Delete(id uuid.UUID) error
	Do(id uuid.UUID, fn func(p *player.Player) error) (*preview.SessionInfo, error)
	Events(id uuid.UUID, seq int64) ([]preview.Event, error)
}

// CreateSessionRequest starts a preview session from a stored reel or an inline reel
type CreateSessionRequest struct {
	ReelID *string      `json:"reel_id,omitempty"`
	Reel   *ReelRequest `json:"reel,omitempty"`

	Paused       bool  `json:"paused"`
	Muted        bool  `json:"muted"`
	AudioAllowed *bool `json:"audio_allowed,omitempty"`
}

// ScrubRequest moves a session to a main-timeline position
type ScrubRequest struct {
	PositionMs *int64 `json:"position_ms" binding:"required,gte=0"`
}

// maxPositionMs is the largest position that still fits in a time.Duration
const maxPositionMs = math.MaxInt64 / int64(time.Millisecond)

// StepRequest steps a session. Direction is "next", "prev" or "goto" (with Index).
type StepRequest struct {
	Direction string `json:"direction" binding:"required,oneof=next prev goto"`
	Index     *int   `json:"index,omitempty"`
}

// PointerRequest feeds one pointer event into a session's gesture interpreter
type PointerRequest struct {
	Type  string  `json:"type" binding:"required,oneof=down move up cancel"`
	X     float64 `json:"x"`
	Width float64 `json:"width"`
}

// SettingsRequest changes a session's reactive settings. Omitted fields are left alone.
type SettingsRequest struct {
	Paused       *bool    `json:"paused,omitempty"`
	Muted        *bool    `json:"muted,omitempty"`
	AudioAllowed *bool    `json:"audio_allowed,omitempty"`
	MusicGain    *float64 `json:"music_gain,omitempty" binding:"omitempty,gte=0,lte=1"`
	VideoGain    *float64 `json:"video_gain,omitempty" binding:"omitempty,gte=0,lte=1"`
	OffsetMs     *int64   `json:"offset_ms,omitempty"`
}

// SourcesRequest swaps a session's segments and audio
type SourcesRequest struct {
	Segments []SegmentRequest `json:"segments" binding:"dive"`
	AudioURL string           `json:"audio_url"`
}

// SessionListResponse represents a list of preview sessions
type SessionListResponse struct {
	Sessions []preview.SessionInfo `json:"sessions"`
}

// EventListResponse represents a page of session events
type EventListResponse struct {
	Events []preview.Event `json:"events"`
}

// SessionHandler handles preview-session API requests
type SessionHandler struct {
	host     sessionHost
	reels    reelStore
	defaults player.Defaults
}

// NewSessionHandler creates a new session handler instance
func NewSessionHandler(host sessionHost, reels reelStore, defaults player.Defaults) *SessionHandler {
	return &SessionHandler{host: host, reels: reels, defaults: defaults}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_request",
		Message: "Invalid request body: " + err.Error(),
	})
}

// CreateSession handles POST /api/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if (req.ReelID == nil) == (req.Reel == nil) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Exactly one of reel_id or reel is required",
		})
		return
	}

	var (
		cfg    player.Config
		reelID string
	)
	if req.ReelID != nil {
		id, err := uuid.Parse(*req.ReelID)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_id",
				Message: "Invalid reel ID format",
			})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		reel, err := h.reels.GetByID(ctx, id)
		if err != nil {
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
				Msg("Failed to load reel for session")
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "query_failed",
				Message: "Failed to retrieve reel",
			})
			return
		}
		cfg = reel.PlayerConfig(h.defaults)
		reelID = id.String()
	} else {
		reel, err := req.Reel.toReel(h.defaults)
		if err != nil {
			respondInvalidConfig(c, err)
			return
		}
		cfg = reel.PlayerConfig(h.defaults)
	}

	cfg.Paused = req.Paused
	cfg.Muted = req.Muted
	if req.AudioAllowed != nil {
		cfg.AudioAllowed = *req.AudioAllowed
	}

	info, err := h.host.Create(cfg, reelID)
	if err != nil {
		switch {
		case player.IsInvalidConfig(err):
			respondInvalidConfig(c, err)
		case errors.Is(err, preview.ErrHostStopped):
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Error:   "unavailable",
				Message: "Preview host is shutting down",
			})
		default:
			logger.Log.Error().
				Err(err).
				Str("reel_id", reelID).
				Msg("Failed to create preview session")
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "create_failed",
				Message: "Failed to create preview session",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, info)
}

// ListSessions handles GET /api/sessions
func (h *SessionHandler) ListSessions(c *gin.Context) {
	sessions := h.host.List()
	if sessions == nil {
		sessions = []preview.SessionInfo{}
	}
	c.JSON(http.StatusOK, SessionListResponse{Sessions: sessions})
}

// GetSession handles GET /api/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := parseID(c, "session")
	if !ok {
		return
	}

	info, err := h.host.Get(id)
	if err != nil {
		respondSessionError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// DeleteSession handles DELETE /api/sessions/:id
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	id, ok := parseID(c, "session")
	if !ok {
		return
	}

	if err := h.host.Delete(id); err != nil {
		respondSessionError(c, id, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Play handles POST /api/sessions/:id/play
func (h *SessionHandler) Play(c *gin.Context) {
	h.control(c, func(p *player.Player) error {
		p.Play()
		return nil
	})
}

// Pause handles POST /api/sessions/:id/pause
func (h *SessionHandler) Pause(c *gin.Context) {
	h.control(c, func(p *player.Player) error {
		p.Pause()
		return nil
	})
}

// Scrub handles POST /api/sessions/:id/scrub
func (h *SessionHandler) Scrub(c *gin.Context) {
	var req ScrubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if *req.PositionMs > maxPositionMs {
		badRequest(c, fmt.Errorf("position_ms must be at most %d", maxPositionMs))
		return
	}

	h.control(c, func(p *player.Player) error {
		p.Scrub(time.Duration(*req.PositionMs) * time.Millisecond)
		return nil
	})
}

// Step handles POST /api/sessions/:id/step
func (h *SessionHandler) Step(c *gin.Context) {
	var req StepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Direction == "goto" && req.Index == nil {
		badRequest(c, errors.New("index is required for goto"))
		return
	}

	h.control(c, func(p *player.Player) error {
		switch req.Direction {
		case "next":
			p.StepNext()
		case "prev":
			p.StepPrev()
		default:
			return p.GoTo(*req.Index)
		}
		return nil
	})
}

// Pointer handles POST /api/sessions/:id/pointer
func (h *SessionHandler) Pointer(c *gin.Context) {
	var req PointerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	h.control(c, func(p *player.Player) error {
		switch req.Type {
		case "down":
			p.PointerDown(req.X, req.Width)
		case "move":
			p.PointerMove(req.X)
		case "up":
			p.PointerUp(req.X)
		default:
			p.PointerCancel()
		}
		return nil
	})
}

// UpdateSettings handles PUT /api/sessions/:id/settings
func (h *SessionHandler) UpdateSettings(c *gin.Context) {
	var req SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	h.control(c, func(p *player.Player) error {
		if req.MusicGain != nil {
			p.SetMusicGain(*req.MusicGain)
		}
		if req.VideoGain != nil {
			p.SetVideoGain(*req.VideoGain)
		}
		if req.OffsetMs != nil {
			p.SetOffset(time.Duration(*req.OffsetMs) * time.Millisecond)
		}
		if req.Muted != nil {
			p.SetMuted(*req.Muted)
		}
		if req.AudioAllowed != nil {
			p.SetAudioAllowed(*req.AudioAllowed)
		}
		if req.Paused != nil {
			p.SetPaused(*req.Paused)
		}
		return nil
	})
}

// UpdateSources handles PUT /api/sessions/:id/sources
func (h *SessionHandler) UpdateSources(c *gin.Context) {
	var req SourcesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	reel, err := ReelRequest{Title: "sources", Segments: req.Segments, AudioURL: &req.AudioURL}.toReel(h.defaults)
	if err != nil {
		respondInvalidConfig(c, err)
		return
	}
	cfg := reel.PlayerConfig(h.defaults)

	h.control(c, func(p *player.Player) error {
		return p.SetSources(cfg.Segments, cfg.AudioURL)
	})
}

// Events handles GET /api/sessions/:id/events?since=<seq>
func (h *SessionHandler) Events(c *gin.Context) {
	id, ok := parseID(c, "session")
	if !ok {
		return
	}

	var since int64
	if raw := c.Query("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_query",
				Message: "since must be a non-negative integer",
			})
			return
		}
		since = parsed
	}

	events, err := h.host.Events(id, since)
	if err != nil {
		respondSessionError(c, id, err)
		return
	}
	if events == nil {
		events = []preview.Event{}
	}
	c.JSON(http.StatusOK, EventListResponse{Events: events})
}

// control runs fn against the session named by :id and responds with its new view
func (h *SessionHandler) control(c *gin.Context, fn func(p *player.Player) error) {
	id, ok := parseID(c, "session")
	if !ok {
		return
	}

	info, err := h.host.Do(id, fn)
	if err != nil {
		respondSessionError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func respondSessionError(c *gin.Context, id uuid.UUID, err error) {
	switch {
	case errors.Is(err, preview.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Session not found",
		})
	case errors.Is(err, player.ErrIndexOutOfRange):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_index",
			Message: err.Error(),
		})
	case player.IsInvalidConfig(err):
		respondInvalidConfig(c, err)
	default:
		logger.Log.Error().
			Err(err).
			Str("session_id", id.String()).
			Msg("Preview session call failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "session_failed",
			Message: fmt.Sprintf("Session call failed: %v", err),
		})
	}
}

// SetupSessionRoutes registers preview-session routes
func SetupSessionRoutes(apiGroup *gin.RouterGroup, host sessionHost, reels reelStore, defaults player.Defaults) {
	handler := NewSessionHandler(host, reels, defaults)

	sessions := apiGroup.Group("/sessions")
	sessions.POST("", handler.CreateSession)
	sessions.GET("", handler.ListSessions)
	sessions.GET("/:id", handler.GetSession)
	sessions.DELETE("/:id", handler.DeleteSession)
	sessions.POST("/:id/play", handler.Play)
	sessions.POST("/:id/pause", handler.Pause)
	sessions.POST("/:id/scrub", handler.Scrub)
	sessions.POST("/:id/step", handler.Step)
	sessions.POST("/:id/pointer", handler.Pointer)
	sessions.PUT("/:id/settings", handler.UpdateSettings)
	sessions.PUT("/:id/sources", handler.UpdateSources)
	sessions.GET("/:id/events", handler.Events)
}
