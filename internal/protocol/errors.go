package protocol

import "fmt"

// EncodingError reports a request that could not be serialized.
type EncodingError struct {
	Msg string
	Err error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("encoding: %s: %v", e.Msg, e.Err)
	}
	return "encoding: " + e.Msg
}

func (e *EncodingError) Unwrap() error { return e.Err }

// FramingError reports a malformed frame: short header, bad magic byte,
// or a body whose length does not match the header's payload_length.
type FramingError struct {
	Msg string
}

func (e *FramingError) Error() string { return "framing: " + e.Msg }

// PayloadError reports a frame body that is not valid UTF-8 JSON.
type PayloadError struct {
	Msg string
	Err error
}

func (e *PayloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payload: %s: %v", e.Msg, e.Err)
	}
	return "payload: " + e.Msg
}

func (e *PayloadError) Unwrap() error { return e.Err }

// ProtocolError reports a well-formed response carrying a non-zero
// ret_code. It is an expected, recoverable outcome (robot busy, bad
// argument) and never implies the connection is broken.
type ProtocolError struct {
	RetCode int
	ErrMsg  string
}

func (e *ProtocolError) Error() string {
	if e.ErrMsg != "" {
		return fmt.Sprintf("robot returned ret_code %d: %s", e.RetCode, e.ErrMsg)
	}
	return fmt.Sprintf("robot returned ret_code %d", e.RetCode)
}
