package preview

import "github.com/samber/lo"

// EventType names a player signal recorded in a session's event log
type EventType string

const (
	EventIndexChanged     EventType = "index_changed"
	EventFirstReady       EventType = "first_ready"
	EventLoadError        EventType = "load_error"
	EventPlayStateChanged EventType = "play_state_changed"
	EventFinished         EventType = "finished"
)

// Event is one recorded signal. AtMs is the host scheduler time.
type Event struct {
	Seq     int64     `json:"seq"`
	AtMs    int64     `json:"at_ms"`
	Type    EventType `json:"type"`
	Index   int       `json:"index"`
	URL     string    `json:"url,omitempty"`
	Error   string    `json:"error,omitempty"`
	Playing bool      `json:"playing"`
}

// EventLog is a bounded log of the most recent events. It is guarded by the host lock.
type EventLog struct {
	events []Event
	size   int
	next   int64
}

// NewEventLog creates a log that keeps at most size events
func NewEventLog(size int) *EventLog {
	if size <= 0 {
		size = DefaultEventLogSize
	}
	return &EventLog{size: size, next: 1}
}

// Append records ev, assigning its sequence number
func (l *EventLog) Append(ev Event) {
	ev.Seq = l.next
	l.next++
	l.events = append(l.events, ev)
	if len(l.events) > l.size {
		l.events = append([]Event(nil), l.events[len(l.events)-l.size:]...)
	}
}

// Since returns the retained events with a sequence number greater than seq
func (l *EventLog) Since(seq int64) []Event {
	return lo.Filter(l.events, func(ev Event, _ int) bool {
		return ev.Seq > seq
	})
}

// Len returns the number of retained events
func (l *EventLog) Len() int {
	return len(l.events)
}
