package domain

import "time"

// EventAction is the lifecycle action a runtime event reports.
type EventAction string

const (
	EventActionCreate       EventAction = "create"
	EventActionStart        EventAction = "start"
	EventActionStop         EventAction = "stop"
	EventActionRestart      EventAction = "restart"
	EventActionDie          EventAction = "die"
	EventActionDestroy      EventAction = "destroy"
	EventActionHealthStatus EventAction = "health_status"
)

// Event is an immutable lifecycle notification. Critical is advisory metadata
// marking destructive actions (die, destroy); delivery is never filtered or
// reordered by it.
type Event struct {
	Timestamp time.Time   `json:"timestamp"`
	Action    EventAction `json:"action"`
	Container string      `json:"container"`
	Stack     string      `json:"stack,omitempty"`
	Critical  bool        `json:"critical,omitempty"`
}

// StreamMessageType distinguishes real events from synthetic connectivity
// markers on the subscriber stream.
type StreamMessageType string

const (
	StreamConnected          StreamMessageType = "connected"
	StreamEvent              StreamMessageType = "event"
	StreamConnectionLost     StreamMessageType = "connection_lost"
	StreamConnectionRestored StreamMessageType = "connection_restored"
)

// StreamMessage is one unit delivered to an event subscriber.
type StreamMessage struct {
	Type         StreamMessageType `json:"type"`
	Event        *Event            `json:"event,omitempty"`
	DroppedCount uint64            `json:"dropped_count,omitempty"`
}

// CriticalAction reports whether an action should carry the critical tag.
func CriticalAction(a EventAction) bool {
	return a == EventActionDie || a == EventActionDestroy
}
