// Package events defines the event types and the observer registry used
// to fan robot state changes out to the API, telemetry, and CLI layers.
package events

import "time"

// Type identifies the kind of event.
type Type string

const (
	EventPositionUpdated Type = "position_updated"
	EventConnectionState Type = "connection_state"
	EventQueryError      Type = "query_error"
	EventShutdown        Type = "shutdown"
)

// Event is one occurrence delivered to subscribed handlers.
type Event struct {
	Type    Type
	Source  string
	Payload any
}

// PositionPayload carries one decoded position sample.
type PositionPayload struct {
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Angle      float64   `json:"angle"`
	Confidence float64   `json:"confidence"`
	Station    string    `json:"current_station,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// StateChangePayload carries a connection state transition.
type StateChangePayload struct {
	State string `json:"state"`
	Addr  string `json:"addr,omitempty"`
}

// ErrorPayload carries a query or connection failure description.
type ErrorPayload struct {
	Message string `json:"message"`
}
