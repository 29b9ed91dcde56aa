// Package robot implements the SEER robot driver core: the synchronous
// request/response client, the background position monitor, and the
// controller facade tying them together.
package robot

import (
	"encoding/json"
	"time"
)

// ConnState describes the controller's connection to the robot.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

var connStateStrings = map[ConnState]string{
	StateDisconnected: "disconnected",
	StateConnecting:   "connecting",
	StateConnected:    "connected",
}

// String returns the lowercase name of the state.
func (s ConnState) String() string {
	if str, ok := connStateStrings[s]; ok {
		return str
	}
	return "disconnected"
}

// MarshalJSON serializes ConnState as a JSON string (e.g. "connected").
func (s ConnState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// PositionSample is one localized pose reading reported by the robot.
// Samples are immutable once constructed; the monitor replaces its
// current sample, never mutates one in place.
type PositionSample struct {
	X              float64   `json:"x"`
	Y              float64   `json:"y"`
	Angle          float64   `json:"angle"` // radians, (-pi, pi]
	Confidence     float64   `json:"confidence"`
	CurrentStation string    `json:"current_station,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// sampleFromBody builds a PositionSample from a decoded position
// response payload. Missing fields stay at their zero values, matching
// the tolerant reads of the original driver.
func sampleFromBody(body map[string]any, at time.Time) PositionSample {
	s := PositionSample{Timestamp: at}
	s.X = numField(body, "x")
	s.Y = numField(body, "y")
	s.Angle = numField(body, "angle")
	s.Confidence = numField(body, "confidence")
	if v, ok := body["current_station"].(string); ok {
		s.CurrentStation = v
	}
	return s
}

// numField extracts a numeric payload field, accepting both json.Number
// (the codec's default) and plain float64.
func numField(body map[string]any, key string) float64 {
	switch v := body[key].(type) {
	case json.Number:
		f, _ := v.Float64()
		return f
	case float64:
		return v
	}
	return 0
}

// HistoryEntry is one recorded (timestamp, sample) pair.
type HistoryEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Sample    PositionSample `json:"data"`
}

// CommandResult is the structured outcome of a one-shot robot command.
// A non-zero RetCode is a reported, recoverable failure at the protocol
// level, not a transport error.
type CommandResult struct {
	OK      bool           `json:"ok"`
	RetCode int            `json:"ret_code"`
	ErrMsg  string         `json:"err_msg,omitempty"`
	Body    map[string]any `json:"body,omitempty"`
}

// Stats holds the controller's monotonic counters. Counters only reset
// when a new controller is created.
type Stats struct {
	Queries            uint64    `json:"position_queries"`
	Successful         uint64    `json:"successful_queries"`
	Failed             uint64    `json:"failed_queries"`
	ConnectionAttempts uint64    `json:"connection_attempts"`
	StartTime          time.Time `json:"start_time"`
	LastUpdate         time.Time `json:"last_update"`
}

// MotionParams are the open-loop motion command arguments. Zero-valued
// velocity components and nil optionals are omitted from the payload,
// matching the wire behavior of the original controller.
type MotionParams struct {
	VX        float64
	VY        float64
	W         float64
	Duration  *int     // milliseconds
	Steer     *int     // steering wheel index
	RealSteer *float64 // radians
}

// payload builds the JSON body for a motion command.
func (p MotionParams) payload() map[string]any {
	body := map[string]any{}
	if p.VX != 0 {
		body["vx"] = p.VX
	}
	if p.VY != 0 {
		body["vy"] = p.VY
	}
	if p.W != 0 {
		body["w"] = p.W
	}
	if p.Duration != nil {
		body["duration"] = *p.Duration
	}
	if p.Steer != nil {
		body["steer"] = *p.Steer
	}
	if p.RealSteer != nil {
		body["real_steer"] = *p.RealSteer
	}
	return body
}
