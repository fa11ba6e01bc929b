// Package gesture classifies raw pointer input into playback intents: tap to step,
// hold to pause, and hold-and-drag to scrub. It depends only on pointer coordinates
// and elapsed time, never on a platform gesture framework.
package gesture

import (
	"math"
	"time"
)

// Phase is the interpreter's position in the pointer state machine
type Phase int

const (
	// PhaseIdle means no pointer is down
	PhaseIdle Phase = iota
	// PhaseDown means a pointer is down and holds are disabled, so only a tap can follow
	PhaseDown
	// PhaseHoldPending means a pointer is down and the hold timer is armed
	PhaseHoldPending
	// PhaseHolding means the hold timer fired and playback is paused for the hold
	PhaseHolding
	// PhaseScrubbing means the held pointer has been dragged past the drag threshold
	PhaseScrubbing
)

// String returns the string representation of Phase
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDown:
		return "down"
	case PhaseHoldPending:
		return "hold_pending"
	case PhaseHolding:
		return "holding"
	case PhaseScrubbing:
		return "scrubbing"
	default:
		return "unknown"
	}
}

// EventType identifies a pointer or timer input
type EventType int

const (
	EventPointerDown EventType = iota
	EventPointerMove
	EventPointerUp
	EventPointerCancel
	EventHoldTimer
)

// String returns the string representation of EventType
func (e EventType) String() string {
	switch e {
	case EventPointerDown:
		return "pointer_down"
	case EventPointerMove:
		return "pointer_move"
	case EventPointerUp:
		return "pointer_up"
	case EventPointerCancel:
		return "pointer_cancel"
	case EventHoldTimer:
		return "hold_timer"
	default:
		return "unknown"
	}
}

// Event is one input to the state machine. Width is only read on pointer-down.
type Event struct {
	Type  EventType
	X     float64
	Width float64
}

// Action is the classified intent produced by a transition
type Action int

const (
	ActionNone Action = iota
	// ActionStepPrev is a tap in the left tap zone
	ActionStepPrev
	// ActionStepNext is a tap in the right tap zone
	ActionStepNext
	// ActionHoldStart pauses playback for the duration of a hold
	ActionHoldStart
	// ActionHoldEnd resumes playback after a hold or scrub
	ActionHoldEnd
	// ActionScrubPrev is a rightward drag threshold crossing while held
	ActionScrubPrev
	// ActionScrubNext is a leftward drag threshold crossing while held
	ActionScrubNext
)

// String returns the string representation of Action
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionStepPrev:
		return "step_prev"
	case ActionStepNext:
		return "step_next"
	case ActionHoldStart:
		return "hold_start"
	case ActionHoldEnd:
		return "hold_end"
	case ActionScrubPrev:
		return "scrub_prev"
	case ActionScrubNext:
		return "scrub_next"
	default:
		return "unknown"
	}
}

// TimerOp tells the caller what to do with the hold timer
type TimerOp int

const (
	TimerKeep TimerOp = iota
	TimerArm
	TimerCancel
)

// State is the transient gesture state. It is never persisted.
type State struct {
	Phase  Phase
	StartX float64
	LastX  float64
	Width  float64
}

// Result is the outcome of one transition
type Result struct {
	State  State
	Action Action
	Timer  TimerOp
}

// Config holds the gesture thresholds
type Config struct {
	// HoldDelay is how long a pointer must stay down before it becomes a hold. Zero disables holds.
	HoldDelay time.Duration
	// JitterThreshold is the movement (px) that cancels a pending hold
	JitterThreshold float64
	// DragThreshold is the movement (px) from the drag origin that steps one segment while held
	DragThreshold float64
	// TapZone is the fraction of the container width, from the left, that steps backwards
	TapZone float64
}

// DefaultConfig returns the empirically tuned thresholds
func DefaultConfig() Config {
	return Config{
		HoldDelay:       180 * time.Millisecond,
		JitterThreshold: 8,
		DragThreshold:   22,
		TapZone:         0.35,
	}
}

// Transition is the pure state machine: given the current state and an input it
// returns the next state, the classified action, and the hold timer operation.
func Transition(s State, ev Event, cfg Config) Result {
	switch s.Phase {
	case PhaseIdle:
		if ev.Type != EventPointerDown {
			return Result{State: s}
		}
		next := State{Phase: PhaseDown, StartX: ev.X, LastX: ev.X, Width: ev.Width}
		if cfg.HoldDelay > 0 {
			next.Phase = PhaseHoldPending
			return Result{State: next, Timer: TimerArm}
		}
		return Result{State: next}

	case PhaseDown, PhaseHoldPending:
		timer := TimerKeep
		if s.Phase == PhaseHoldPending {
			timer = TimerCancel
		}

		switch ev.Type {
		case EventPointerMove:
			s.LastX = ev.X
			if math.Abs(ev.X-s.StartX) > cfg.JitterThreshold {
				return Result{State: State{Phase: PhaseIdle}, Timer: timer}
			}
			return Result{State: s}
		case EventHoldTimer:
			if s.Phase != PhaseHoldPending {
				return Result{State: s}
			}
			s.Phase = PhaseHolding
			s.StartX = s.LastX
			return Result{State: s, Action: ActionHoldStart}
		case EventPointerUp:
			return Result{State: State{Phase: PhaseIdle}, Action: classifyTap(ev.X, s.Width, cfg), Timer: timer}
		case EventPointerCancel:
			return Result{State: State{Phase: PhaseIdle}, Timer: timer}
		}
		return Result{State: s}

	case PhaseHolding, PhaseScrubbing:
		switch ev.Type {
		case EventPointerMove:
			s.LastX = ev.X
			delta := ev.X - s.StartX
			if math.Abs(delta) < cfg.DragThreshold {
				return Result{State: s}
			}
			s.Phase = PhaseScrubbing
			s.StartX = ev.X
			if delta > 0 {
				return Result{State: s, Action: ActionScrubPrev}
			}
			return Result{State: s, Action: ActionScrubNext}
		case EventPointerUp, EventPointerCancel:
			return Result{State: State{Phase: PhaseIdle}, Action: ActionHoldEnd}
		}
		return Result{State: s}
	}

	return Result{State: s}
}

// classifyTap maps a tap position to a step direction
func classifyTap(x, width float64, cfg Config) Action {
	if width <= 0 {
		return ActionNone
	}
	if x < cfg.TapZone*width {
		return ActionStepPrev
	}
	return ActionStepNext
}
