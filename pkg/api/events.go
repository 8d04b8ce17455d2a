package api

import "time"

// EventType identifies a journey history event.
type EventType string

const (
	EventInstanceCreated   EventType = "instance.created"
	EventStateUpdated      EventType = "instance.state_updated"
	EventStepRecorded      EventType = "instance.step_recorded"
	EventInstanceCompleted EventType = "instance.completed"
	EventInstanceDeleted   EventType = "instance.deleted"
)

// Event is a minimal append-only history record for audit/debugging.
// It is intentionally small and stable; richer history can be layered later.
type Event struct {
	InstanceID string
	At         time.Time
	Type       EventType

	// Optional context.
	JourneyName string

	// Small, human-oriented details (e.g. the recorded step path).
	// Keep this low-volume: do NOT dump state payloads here.
	Detail string
}
