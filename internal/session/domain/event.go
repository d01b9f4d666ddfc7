package domain

import "time"

// EventType names a sync bus transition.
type EventType string

const (
	EventStateCached       EventType = "state_cached"
	EventStateCleared      EventType = "state_cleared"
	EventStateSynchronized EventType = "state_synchronized"
	EventAppForegrounded   EventType = "app_foregrounded"
)

// Event is delivered to every sync listener.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Payload    any       `json:"payload,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// StateClearedPayload accompanies EventStateCleared.
type StateClearedPayload struct {
	Reason string `json:"reason"`
}

// StateCachedPayload accompanies EventStateCached.
type StateCachedPayload struct {
	State    CachedAuthState `json:"state"`
	Metadata CacheMetadata   `json:"metadata"`
}
