// Package protocol implements the SEER robot wire protocol: a fixed
// 16-byte header in network byte order followed by an optional UTF-8
// JSON payload. Every request type has exactly one response type; the
// catalog is closed and fixed at build time.
package protocol

// Header field constants.
const (
	MagicByte byte = 0x5A // frame-boundary sentinel
	Version   byte = 0x01

	// HeaderSize is the fixed wire header length in bytes.
	HeaderSize = 16
)

// MessageType is the numeric opcode identifying a request or response kind.
type MessageType uint16

// Message catalog. Response opcodes are request + 10000.
const (
	TypePositionReq   MessageType = 1004  // robot_status_loc_req
	TypePositionRes   MessageType = 11004 // robot_status_loc_res
	TypeMotionReq     MessageType = 2010  // robot_control_motion_req
	TypeMotionRes     MessageType = 12010 // robot_control_motion_res
	TypeNavigationReq MessageType = 3051  // navigation_req
	TypeNavigationRes MessageType = 13051 // navigation_res
	TypeRotationReq   MessageType = 3056  // robot_task_turn_req
	TypeRotationRes   MessageType = 13056 // robot_task_turn_res
)

// messageNames maps opcodes to their protocol-level names.
var messageNames = map[MessageType]string{
	TypePositionReq:   "robot_status_loc_req",
	TypePositionRes:   "robot_status_loc_res",
	TypeMotionReq:     "robot_control_motion_req",
	TypeMotionRes:     "robot_control_motion_res",
	TypeNavigationReq: "navigation_req",
	TypeNavigationRes: "navigation_res",
	TypeRotationReq:   "robot_task_turn_req",
	TypeRotationRes:   "robot_task_turn_res",
}

// responseFor maps each request opcode to its response opcode.
var responseFor = map[MessageType]MessageType{
	TypePositionReq:   TypePositionRes,
	TypeMotionReq:     TypeMotionRes,
	TypeNavigationReq: TypeNavigationRes,
	TypeRotationReq:   TypeRotationRes,
}

// String returns the protocol-level name of the message type.
func (t MessageType) String() string {
	if name, ok := messageNames[t]; ok {
		return name
	}
	return "unknown"
}

// Response returns the response opcode paired with a request opcode.
func (t MessageType) Response() (MessageType, bool) {
	res, ok := responseFor[t]
	return res, ok
}

// Header is the parsed 16-byte frame header.
type Header struct {
	Magic      byte
	Version    byte
	RequestID  uint16
	PayloadLen uint32
	Type       MessageType
}
