package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestEncodeEmptyPayloadHeaderOnly(t *testing.T) {
	frame, err := Encode(1, TypePositionReq, map[string]any{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// 5A 01 0001 00000000 03EC + 6 reserved zero bytes, no body.
	want := []byte{0x5A, 0x01, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x03, 0xEC, 0, 0, 0, 0, 0, 0}
	if !bytes.Equal(frame, want) {
		t.Fatalf("frame mismatch:\n got %X\nwant %X", frame, want)
	}

	h, body, err := Decode(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if h.RequestID != 1 || h.Type != TypePositionReq || h.PayloadLen != 0 {
		t.Fatalf("header mismatch: %+v", h)
	}
	if body != nil {
		t.Fatalf("expected nil body for header-only frame, got %v", body)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		id      uint16
		msgType MessageType
		payload map[string]any
	}{
		{"rotation", 7, TypeRotationReq, map[string]any{"angle": 3.14159, "vw": -0.5, "mode": 1}},
		{"motion", 65535, TypeMotionReq, map[string]any{"vx": 0.5, "duration": 2000}},
		{"nested", 42, TypeNavigationReq, map[string]any{
			"operation":   "Script",
			"script_args": map[string]any{"x": 1.0, "y": -2.5, "coordinate": "world"},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			frame, err := Encode(tc.id, tc.msgType, tc.payload)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}

			h, body, err := Decode(frame)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if h.Magic != MagicByte || h.Version != Version {
				t.Fatalf("bad magic/version: %+v", h)
			}
			if h.RequestID != tc.id || h.Type != tc.msgType {
				t.Fatalf("id/type mismatch: %+v", h)
			}
			if int(h.PayloadLen) != len(frame)-HeaderSize {
				t.Fatalf("payload_length %d, body is %d bytes", h.PayloadLen, len(frame)-HeaderSize)
			}

			// Compare through canonical JSON so numeric representation
			// differences don't matter.
			wantJSON, _ := json.Marshal(tc.payload)
			gotJSON, _ := json.Marshal(body)
			var want, got map[string]any
			json.Unmarshal(wantJSON, &want)
			json.Unmarshal(gotJSON, &got)
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("payload mismatch: got %v want %v", got, want)
			}
		})
	}
}

func TestDecodeHeaderShortBuffer(t *testing.T) {
	for _, n := range []int{0, 1, 15} {
		_, err := DecodeHeader(make([]byte, n))
		var fe *FramingError
		if !errors.As(err, &fe) {
			t.Fatalf("len %d: expected FramingError, got %v", n, err)
		}
	}
}

func TestDecodeHeaderBadMagic(t *testing.T) {
	frame, _ := Encode(1, TypePositionReq, nil)
	frame[0] = 0xA5
	_, err := DecodeHeader(frame)
	var fe *FramingError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FramingError for bad magic, got %v", err)
	}
}

func TestDecodeBodyLengthMismatch(t *testing.T) {
	body := []byte(`{"x":1.0}`)
	n := uint32(len(body))

	if _, err := DecodeBody(body, n); err != nil {
		t.Fatalf("exact length should decode: %v", err)
	}

	var fe *FramingError
	if _, err := DecodeBody(body, n+1); !errors.As(err, &fe) {
		t.Fatalf("N+1 declared: expected FramingError, got %v", err)
	}
	if _, err := DecodeBody(body, n-1); !errors.As(err, &fe) {
		t.Fatalf("N-1 declared: expected FramingError, got %v", err)
	}
}

func TestDecodeBodyInvalidContent(t *testing.T) {
	bad := []byte{0xFF, 0xFE, 0xFD}
	var pe *PayloadError
	if _, err := DecodeBody(bad, uint32(len(bad))); !errors.As(err, &pe) {
		t.Fatalf("expected PayloadError for invalid UTF-8, got %v", err)
	}

	notJSON := []byte("not json at all")
	if _, err := DecodeBody(notJSON, uint32(len(notJSON))); !errors.As(err, &pe) {
		t.Fatalf("expected PayloadError for invalid JSON, got %v", err)
	}
}

func TestDecodePositionResponsePayload(t *testing.T) {
	raw := []byte(`{"x":1.0,"y":0.0,"angle":-1.5708,"confidence":0.95}`)
	body, err := DecodeBody(raw, uint32(len(raw)))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	angle, _ := body["angle"].(json.Number).Float64()
	if math.Abs(angle-(-math.Pi/2)) > 1e-4 {
		t.Fatalf("angle = %v, want ~ -pi/2", angle)
	}
	conf, _ := body["confidence"].(json.Number).Float64()
	if conf != 0.95 {
		t.Fatalf("confidence = %v, want 0.95", conf)
	}
}

func TestRetCode(t *testing.T) {
	cases := []struct {
		name     string
		body     map[string]any
		wantCode int
		wantMsg  string
	}{
		{"nil body", nil, 0, ""},
		{"no ret_code", map[string]any{"x": json.Number("1")}, 0, ""},
		{"success", map[string]any{"ret_code": json.Number("0")}, 0, ""},
		{"failure", map[string]any{"ret_code": json.Number("50002"), "err_msg": "robot busy"}, 50002, "robot busy"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, msg := RetCode(tc.body)
			if code != tc.wantCode || msg != tc.wantMsg {
				t.Fatalf("got (%d, %q), want (%d, %q)", code, msg, tc.wantCode, tc.wantMsg)
			}
		})
	}
}

func TestMessageCatalog(t *testing.T) {
	for _, req := range []MessageType{TypePositionReq, TypeMotionReq, TypeNavigationReq, TypeRotationReq} {
		res, ok := req.Response()
		if !ok {
			t.Fatalf("no response registered for %v", req)
		}
		if uint16(res) != uint16(req)+10000 {
			t.Fatalf("response for %d is %d, want %d", req, res, uint16(req)+10000)
		}
	}
	if _, ok := TypePositionRes.Response(); ok {
		t.Fatal("response opcodes must not have a response pair")
	}
}
