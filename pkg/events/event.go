package events

import (
	"encoding/json"
	"time"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "WORKFLOW_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
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

// Encode serialises any Event for an in-process transport.
func Encode(e Event) ([]byte, error) {
	return json.Marshal(BaseEvent{Type: e.EventType(), Data: e.Payload(), OccurredAt: e.Timestamp()})
}

func Decode(raw []byte) (BaseEvent, error) {
	var e BaseEvent
	err := json.Unmarshal(raw, &e)
	return e, err
}
