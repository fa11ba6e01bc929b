package gesture

import (
	"github.com/stwalsh4118/reelplay/internal/timeline"
)

// Handler receives every non-empty action the interpreter classifies
type Handler func(Action)

// Interpreter drives Transition from pointer callbacks and owns the hold timer
type Interpreter struct {
	cfg        Config
	sched      timeline.Scheduler
	handle     Handler
	state      State
	cancelHold timeline.Cancel
}

// NewInterpreter creates an idle interpreter
func NewInterpreter(cfg Config, sched timeline.Scheduler, handle Handler) *Interpreter {
	return &Interpreter{
		cfg:    cfg,
		sched:  sched,
		handle: handle,
	}
}

// PointerDown feeds a pointer-down at x inside a container of the given width
func (i *Interpreter) PointerDown(x, width float64) {
	i.Feed(Event{Type: EventPointerDown, X: x, Width: width})
}

// PointerMove feeds a pointer-move to x
func (i *Interpreter) PointerMove(x float64) {
	i.Feed(Event{Type: EventPointerMove, X: x})
}

// PointerUp feeds a pointer-up at x
func (i *Interpreter) PointerUp(x float64) {
	i.Feed(Event{Type: EventPointerUp, X: x})
}

// PointerCancel feeds a pointer-cancel
func (i *Interpreter) PointerCancel() {
	i.Feed(Event{Type: EventPointerCancel})
}

// Feed applies one event and performs the resulting timer operation and action
func (i *Interpreter) Feed(ev Event) {
	res := Transition(i.state, ev, i.cfg)
	i.state = res.State

	switch res.Timer {
	case TimerArm:
		i.stopHoldTimer()
		i.cancelHold = i.sched.AfterFunc(i.cfg.HoldDelay, func() {
			i.cancelHold = nil
			i.Feed(Event{Type: EventHoldTimer})
		})
	case TimerCancel:
		i.stopHoldTimer()
	}

	if res.Action != ActionNone && i.handle != nil {
		i.handle(res.Action)
	}
}

// Phase returns the current phase
func (i *Interpreter) Phase() Phase {
	return i.state.Phase
}

// Reset drops any in-flight gesture without emitting actions
func (i *Interpreter) Reset() {
	i.stopHoldTimer()
	i.state = State{}
}

func (i *Interpreter) stopHoldTimer() {
	if i.cancelHold != nil {
		i.cancelHold()
		i.cancelHold = nil
	}
}
