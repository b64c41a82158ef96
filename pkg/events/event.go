package events

import "time"

const (
	// AssistantSecurityAlert is published for malicious queries and redacted responses.
	AssistantSecurityAlert = "ASSISTANT_SECURITY_ALERT"

	// StreamName is the JetStream stream carrying every assistant event.
	StreamName    = "EVENTS"
	SubjectPrefix = "events."
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "ASSISTANT_SECURITY_ALERT").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Subject returns the NATS subject an event type is published on.
func Subject(eventType string) string {
	return SubjectPrefix + eventType
}
