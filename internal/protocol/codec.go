package protocol

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Encode serializes a request into wire form: the 16-byte header followed
// by the JSON body. A nil payload or one that serializes to an empty JSON
// object produces a header-only frame with payload_length 0 — the body is
// omitted entirely, not sent as "{}".
func Encode(requestID uint16, msgType MessageType, payload any) ([]byte, error) {
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, &EncodingError{Msg: "marshal payload", Err: err}
		}
		if !isEmptyJSON(b) {
			body = b
		}
	}

	frame := make([]byte, HeaderSize+len(body))
	frame[0] = MagicByte
	frame[1] = Version
	binary.BigEndian.PutUint16(frame[2:4], requestID)
	binary.BigEndian.PutUint32(frame[4:8], uint32(len(body)))
	binary.BigEndian.PutUint16(frame[8:10], uint16(msgType))
	// frame[10:16] is the reserved block, already zero-filled
	copy(frame[HeaderSize:], body)

	return frame, nil
}

// EncodeHeader serializes a header without a body. Used by peers
// (and test fixtures) that build response frames field by field.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	buf[0] = h.Magic
	buf[1] = h.Version
	binary.BigEndian.PutUint16(buf[2:4], h.RequestID)
	binary.BigEndian.PutUint32(buf[4:8], h.PayloadLen)
	binary.BigEndian.PutUint16(buf[8:10], uint16(h.Type))
	return buf
}

// DecodeHeader parses the fixed 16-byte header. The reserved block is
// ignored on receive.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, &FramingError{Msg: fmt.Sprintf("short header: %d bytes, want %d", len(b), HeaderSize)}
	}
	if b[0] != MagicByte {
		return Header{}, &FramingError{Msg: fmt.Sprintf("bad magic byte 0x%02X, want 0x%02X", b[0], MagicByte)}
	}
	return Header{
		Magic:      b[0],
		Version:    b[1],
		RequestID:  binary.BigEndian.Uint16(b[2:4]),
		PayloadLen: binary.BigEndian.Uint32(b[4:8]),
		Type:       MessageType(binary.BigEndian.Uint16(b[8:10])),
	}, nil
}

// DecodeBody parses a frame body against the header's declared length.
// A zero expected length requires an empty body and yields a nil map —
// the protocol distinguishes "no body" from an empty JSON object.
func DecodeBody(b []byte, expectedLen uint32) (map[string]any, error) {
	if uint32(len(b)) != expectedLen {
		return nil, &FramingError{Msg: fmt.Sprintf("body length %d does not match declared payload_length %d", len(b), expectedLen)}
	}
	if expectedLen == 0 {
		return nil, nil
	}
	if !utf8.Valid(b) {
		return nil, &PayloadError{Msg: "body is not valid UTF-8"}
	}

	var m map[string]any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, &PayloadError{Msg: "body is not valid JSON", Err: err}
	}
	return m, nil
}

// Decode parses one complete frame (header plus body) from a byte slice.
func Decode(b []byte) (Header, map[string]any, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return Header{}, nil, err
	}
	body, err := DecodeBody(b[HeaderSize:], h.PayloadLen)
	if err != nil {
		return Header{}, nil, err
	}
	return h, body, nil
}

// isEmptyJSON reports whether serialized JSON carries no fields.
func isEmptyJSON(b []byte) bool {
	s := string(bytes.TrimSpace(b))
	return s == "{}" || s == "null" || s == ""
}

// RetCode extracts the protocol-level return code and error message from
// a decoded response body. A missing ret_code is treated as success,
// matching the position responses which carry none.
func RetCode(body map[string]any) (int, string) {
	if body == nil {
		return 0, ""
	}
	code := 0
	if v, ok := body["ret_code"]; ok {
		switch n := v.(type) {
		case json.Number:
			if i, err := n.Int64(); err == nil {
				code = int(i)
			}
		case float64:
			code = int(n)
		}
	}
	msg := ""
	if v, ok := body["err_msg"].(string); ok {
		msg = v
	}
	return code, msg
}
