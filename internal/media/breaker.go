package media

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stwalsh4118/reelplay/internal/logger"
)

// BreakerState represents the state of a probe circuit breaker
type BreakerState int

const (
	// BreakerClosed lets every probe through
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects probes until the cooldown has elapsed
	BreakerOpen
	// BreakerHalfOpen lets one trial probe through
	BreakerHalfOpen
)

// String returns the string representation of BreakerState
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrProbeSuspended is returned while the breaker is open
var ErrProbeSuspended = errors.New("probing suspended after repeated failures")

// DurationProber resolves the duration of one asset
type DurationProber interface {
	ProbeDuration(ctx context.Context, asset string) (time.Duration, error)
}

// GuardedProber stops calling FFprobe after repeated infrastructure failures
// (missing binary, timeouts, unreachable hosts) and retries after a cooldown.
// A corrupt asset is the asset's fault and never trips the breaker.
type GuardedProber struct {
	prober    DurationProber
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	trial    bool
}

// NewGuardedProber wraps prober with a breaker that opens after threshold
// consecutive infrastructure failures
func NewGuardedProber(prober DurationProber, threshold int, cooldown time.Duration) *GuardedProber {
	return &GuardedProber{
		prober:    prober,
		threshold: max(1, threshold),
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// ProbeDuration probes asset unless the breaker is open
func (g *GuardedProber) ProbeDuration(ctx context.Context, asset string) (time.Duration, error) {
	if !g.allow() {
		return 0, ErrProbeSuspended
	}

	d, err := g.prober.ProbeDuration(ctx, asset)
	g.record(err)
	return d, err
}

// State returns the current breaker state
func (g *GuardedProber) State() BreakerState {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refreshLocked()
	return g.state
}

// allow admits a probe. While half-open only one trial probe is in flight at a time.
func (g *GuardedProber) allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refreshLocked()

	switch g.state {
	case BreakerOpen:
		return false
	case BreakerHalfOpen:
		if g.trial {
			return false
		}
		g.trial = true
	}
	return true
}

// refreshLocked moves an open breaker to half-open once the cooldown has elapsed
func (g *GuardedProber) refreshLocked() {
	if g.state == BreakerOpen && g.now().Sub(g.openedAt) >= g.cooldown {
		g.state = BreakerHalfOpen
		g.failures = 0
		g.trial = false
	}
}

func (g *GuardedProber) record(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.trial = false

	if !isInfrastructureFailure(err) {
		g.failures = 0
		g.state = BreakerClosed
		return
	}

	g.failures++
	if g.state == BreakerHalfOpen || g.failures >= g.threshold {
		g.state = BreakerOpen
		g.openedAt = g.now()
		logger.Log.Warn().
			Err(err).
			Int("failures", g.failures).
			Dur("cooldown", g.cooldown).
			Msg("Probing suspended")
	}
}

func isInfrastructureFailure(err error) bool {
	return errors.Is(err, ErrFFprobeNotFound) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrUnreachable)
}
