// Package preview hosts headless playback sessions for the HTTP API. Every session
// shares one audio registry and one virtual-time scheduler; a ticker goroutine moves
// the scheduler by real elapsed time, and every player call runs under the host lock
// so the playback core stays single-threaded.
package preview

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stwalsh4118/reelplay/internal/audio"
	"github.com/stwalsh4118/reelplay/internal/logger"
	"github.com/stwalsh4118/reelplay/internal/media"
	"github.com/stwalsh4118/reelplay/internal/player"
	"github.com/stwalsh4118/reelplay/internal/timeline"
	"github.com/stwalsh4118/reelplay/internal/visual"
)

// Common errors
var (
	ErrSessionNotFound = errors.New("preview session not found")
	ErrHostStopped     = errors.New("preview host has been stopped")
)

const (
	// DefaultEventLogSize is the number of events retained per session
	DefaultEventLogSize = 256

	// DefaultVideoDuration is assumed for videos when probing is disabled
	DefaultVideoDuration = 15 * time.Second
)

// DurationProber resolves the duration of a media asset
type DurationProber interface {
	ProbeDuration(ctx context.Context, asset string) (time.Duration, error)
}

// Config holds the host settings
type Config struct {
	TickRate             int
	IdleTimeout          time.Duration
	CleanupInterval      time.Duration
	ProbeTimeout         time.Duration
	DefaultVideoDuration time.Duration
	EventLogSize         int
}

// Session is one hosted player
type Session struct {
	ID         uuid.UUID `json:"id"`
	ReelID     string    `json:"reel_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`

	player *player.Player
	events *EventLog
}

// SessionInfo is the listing view of a session
type SessionInfo struct {
	ID         uuid.UUID       `json:"id"`
	ReelID     string          `json:"reel_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	LastActive time.Time       `json:"last_active"`
	Snapshot   player.Snapshot `json:"snapshot"`
}

// Host owns every preview session in the process
type Host struct {
	cfg      Config
	sched    *timeline.FrameScheduler
	registry *audio.Registry
	prober   DurationProber
	now      func() time.Time

	sessions map[uuid.UUID]*Session

	tickTicker    *time.Ticker
	cleanupTicker *time.Ticker
	stopChan      chan struct{}
	tickDone      chan struct{}
	cleanupDone   chan struct{}
	mu            sync.Mutex
	running       bool
	stopped       bool
}

// NewHost creates a host. A nil prober disables probing; videos then use the
// configured default duration.
func NewHost(cfg Config, prober DurationProber) (*Host, error) {
	if cfg.TickRate <= 0 {
		return nil, fmt.Errorf("tick rate must be positive, got %d", cfg.TickRate)
	}
	if cfg.DefaultVideoDuration <= 0 {
		cfg.DefaultVideoDuration = DefaultVideoDuration
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = media.DefaultProbeTimeout
	}
	if cfg.EventLogSize <= 0 {
		cfg.EventLogSize = DefaultEventLogSize
	}

	sched, err := timeline.NewFrameScheduler(time.Second / time.Duration(cfg.TickRate))
	if err != nil {
		return nil, err
	}

	return &Host{
		cfg:         cfg,
		sched:       sched,
		registry:    audio.NewRegistry(),
		prober:      prober,
		now:         time.Now,
		sessions:    make(map[uuid.UUID]*Session),
		stopChan:    make(chan struct{}),
		tickDone:    make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}, nil
}

// Start launches the tick loop and the idle cleanup loop
func (h *Host) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return ErrHostStopped
	}
	if h.running {
		return nil
	}
	h.running = true

	h.tickTicker = time.NewTicker(h.sched.FrameInterval())
	go h.runTickLoop()

	if h.cfg.CleanupInterval > 0 && h.cfg.IdleTimeout > 0 {
		h.cleanupTicker = time.NewTicker(h.cfg.CleanupInterval)
		go h.runCleanupLoop()
	} else {
		close(h.cleanupDone)
	}

	logger.Log.Info().
		Int("tick_rate", h.cfg.TickRate).
		Dur("idle_timeout", h.cfg.IdleTimeout).
		Dur("cleanup_interval", h.cfg.CleanupInterval).
		Bool("probe_enabled", h.prober != nil).
		Msg("Preview host started")

	return nil
}

// Stop shuts down the loops and stops every session
func (h *Host) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	running := h.running
	h.mu.Unlock()

	logger.Log.Info().Msg("Stopping preview host...")

	close(h.stopChan)
	if running {
		<-h.tickDone
		h.tickTicker.Stop()
		<-h.cleanupDone
		if h.cleanupTicker != nil {
			h.cleanupTicker.Stop()
		}
	}

	h.mu.Lock()
	count := len(h.sessions)
	for id, session := range h.sessions {
		session.player.Stop()
		delete(h.sessions, id)
	}
	h.mu.Unlock()

	logger.Log.Info().
		Int("stopped_sessions", count).
		Msg("Preview host stopped")
}

func (h *Host) runTickLoop() {
	defer close(h.tickDone)

	last := h.now()
	for {
		select {
		case <-h.stopChan:
			return
		case <-h.tickTicker.C:
			now := h.now()
			h.Step(now.Sub(last))
			last = now
		}
	}
}

func (h *Host) runCleanupLoop() {
	defer close(h.cleanupDone)

	for {
		select {
		case <-h.stopChan:
			return
		case <-h.cleanupTicker.C:
			h.performCleanup()
		}
	}
}

// Step advances the shared scheduler by d under the host lock
func (h *Host) Step(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sched.Advance(d)
}

// performCleanup stops sessions that have seen no control call within the idle timeout
func (h *Host) performCleanup() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	stopped := 0
	for id, session := range h.sessions {
		idle := now.Sub(session.LastActive)
		if idle < h.cfg.IdleTimeout {
			continue
		}
		session.player.Stop()
		delete(h.sessions, id)
		stopped++

		logger.Log.Info().
			Str("session_id", id.String()).
			Dur("idle_duration", idle).
			Msg("Cleaned up idle preview session")
	}

	if stopped > 0 {
		logger.Log.Info().
			Int("stopped_count", stopped).
			Int("active_count", len(h.sessions)).
			Msg("Cleanup cycle completed")
	}
	return stopped
}

// Create builds and starts a session for cfg
func (h *Host) Create(cfg player.Config, reelID string) (*SessionInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return nil, ErrHostStopped
	}

	now := h.now()
	session := &Session{
		ID:         uuid.New(),
		ReelID:     reelID,
		CreatedAt:  now,
		LastActive: now,
		events:     NewEventLog(h.cfg.EventLogSize),
	}

	p, err := player.New(cfg, h.deps(), h.signals(session))
	if err != nil {
		return nil, err
	}
	session.player = p

	if err := p.Start(); err != nil {
		p.Stop()
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	h.sessions[session.ID] = session

	logger.Log.Info().
		Str("session_id", session.ID.String()).
		Str("reel_id", reelID).
		Str("mode", p.Mode().String()).
		Int("segments", len(cfg.Segments)).
		Msg("Preview session created")

	info := session.info()
	return &info, nil
}

// Get returns a session's current view
func (h *Host) Get(id uuid.UUID) (*SessionInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	info := session.info()
	return &info, nil
}

// List returns every session, oldest first
func (h *Host) List() []SessionInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	infos := lo.MapToSlice(h.sessions, func(_ uuid.UUID, s *Session) SessionInfo {
		return s.info()
	})
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Delete stops and removes a session
func (h *Host) Delete(id uuid.UUID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	session.player.Stop()
	delete(h.sessions, id)

	logger.Log.Info().
		Str("session_id", id.String()).
		Msg("Preview session deleted")
	return nil
}

// Do runs a control call against a session's player under the host lock and
// returns the resulting view. It counts as activity for idle cleanup.
func (h *Host) Do(id uuid.UUID, fn func(p *player.Player) error) (*SessionInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	session.LastActive = h.now()

	if err := fn(session.player); err != nil {
		return nil, err
	}
	info := session.info()
	return &info, nil
}

// Events returns a session's recorded events after seq
func (h *Host) Events(id uuid.UUID, seq int64) ([]Event, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session.events.Since(seq), nil
}

// Count returns the number of live sessions
func (h *Host) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (s *Session) info() SessionInfo {
	return SessionInfo{
		ID:         s.ID,
		ReelID:     s.ReelID,
		CreatedAt:  s.CreatedAt,
		LastActive: s.LastActive,
		Snapshot:   s.player.Snapshot(),
	}
}

// deps builds the player capabilities backed by virtual handles
func (h *Host) deps() player.Deps {
	return player.Deps{
		Scheduler: h.sched,
		Registry:  h.registry,
		NewAudio: func(url string) (audio.Handle, error) {
			a := newVirtualAudio(h.sched, url)
			if h.prober != nil {
				// loop wrapping needs the real length; without a probe the playhead runs on
				h.resolveDuration(url, func(d time.Duration, err error) {
					if err == nil {
						a.duration = d
					}
				})
			}
			return a, nil
		},
		NewVideo: func() (visual.Video, error) {
			return &VirtualVideo{playhead: playhead{sched: h.sched}, host: h}, nil
		},
		NewSurface: func() (visual.Surface, error) {
			return &VirtualSurface{sched: h.sched}, nil
		},
	}
}

// signals records a session's player signals into its event log
func (h *Host) signals(session *Session) player.Signals {
	record := func(ev Event) {
		ev.AtMs = h.sched.Now().Milliseconds()
		session.events.Append(ev)
	}

	return player.Signals{
		IndexChanged: func(index int) {
			record(Event{Type: EventIndexChanged, Index: index})
		},
		FirstReady: func() {
			record(Event{Type: EventFirstReady})
		},
		LoadError: func(index int, url string, err error) {
			record(Event{Type: EventLoadError, Index: index, URL: url, Error: err.Error()})
		},
		PlayStateChanged: func(playing bool) {
			record(Event{Type: EventPlayStateChanged, Playing: playing})
		},
		Finished: func() {
			record(Event{Type: EventFinished})
		},
	}
}

// resolveDuration delivers an asset's duration on the playback thread. Probes run
// on their own goroutine and hand the result back through the scheduler.
func (h *Host) resolveDuration(url string, apply func(time.Duration, error)) {
	if h.prober == nil {
		h.sched.AfterFunc(0, func() { apply(h.cfg.DefaultVideoDuration, nil) })
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.ProbeTimeout)
		defer cancel()

		d, err := h.prober.ProbeDuration(ctx, url)
		if errors.Is(err, media.ErrNotProbed) {
			d, err = h.cfg.DefaultVideoDuration, nil
		}
		if err != nil {
			logger.Log.Warn().
				Err(err).
				Str("url", url).
				Msg("Failed to probe media duration")
		}
		h.sched.Post(func() { apply(d, err) })
	}()
}
