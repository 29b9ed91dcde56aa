package robot

import (
	"encoding/json"
	"io"
	"net"
	"testing"

	"github.com/seer-project/seerd/internal/config"
	"github.com/seer-project/seerd/internal/protocol"
)

// fakeHandler produces the response to one decoded request frame.
// Returning dropConn instead of a response type makes the server close
// the connection without answering, simulating a robot-side failure.
type fakeHandler func(h protocol.Header, body map[string]any) (protocol.MessageType, any)

// dropConn is a sentinel response type: close the connection instead
// of replying.
const dropConn protocol.MessageType = 0

// fakeRobot is a minimal in-process robot speaking the framed protocol
// on a loopback listener.
type fakeRobot struct {
	ln      net.Listener
	handler fakeHandler
}

func startFakeRobot(t *testing.T, handler fakeHandler) *fakeRobot {
	t.Helper()
	return startFakeRobotAt(t, "127.0.0.1:0", handler)
}

// startFakeRobotAt binds a specific address, for tests that reserve a
// port up front and bring the robot up mid-test.
func startFakeRobotAt(t *testing.T, addr string, handler fakeHandler) *fakeRobot {
	t.Helper()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	f := &fakeRobot{ln: ln, handler: handler}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go f.serve(conn)
		}
	}()
	return f
}

func (f *fakeRobot) port() int {
	return f.ln.Addr().(*net.TCPAddr).Port
}

func (f *fakeRobot) serve(conn net.Conn) {
	defer conn.Close()

	for {
		raw := make([]byte, protocol.HeaderSize)
		if _, err := io.ReadFull(conn, raw); err != nil {
			return
		}
		h, err := protocol.DecodeHeader(raw)
		if err != nil {
			return
		}

		var body map[string]any
		if h.PayloadLen > 0 {
			rawBody := make([]byte, h.PayloadLen)
			if _, err := io.ReadFull(conn, rawBody); err != nil {
				return
			}
			body, err = protocol.DecodeBody(rawBody, h.PayloadLen)
			if err != nil {
				return
			}
		}

		respType, respBody := f.handler(h, body)
		if respType == dropConn {
			return
		}

		var payload []byte
		if respBody != nil {
			payload, err = json.Marshal(respBody)
			if err != nil {
				return
			}
		}
		frame := protocol.EncodeHeader(protocol.Header{
			Magic:      protocol.MagicByte,
			Version:    protocol.Version,
			RequestID:  h.RequestID,
			PayloadLen: uint32(len(payload)),
			Type:       respType,
		})
		frame = append(frame, payload...)
		if _, err := conn.Write(frame); err != nil {
			return
		}
	}
}

// positionHandler answers every position request with a fixed pose and
// echoes an ok ret_code for everything else.
func positionHandler(x, y, angle float64) fakeHandler {
	return func(h protocol.Header, _ map[string]any) (protocol.MessageType, any) {
		if h.Type == protocol.TypePositionReq {
			return protocol.TypePositionRes, map[string]any{
				"x": x, "y": y, "angle": angle, "confidence": 0.97,
			}
		}
		res, _ := h.Type.Response()
		return res, map[string]any{"ret_code": 0}
	}
}

// testRobotConfig points every port family at the fake robot.
func testRobotConfig(port int) config.RobotData {
	return config.RobotData{
		IP:                 "127.0.0.1",
		StatusPort:         port,
		NavigationPort:     port,
		MotionPort:         port,
		RotationPort:       port,
		ConnectTimeoutSec:  2,
		ResponseTimeoutSec: 2,
		MonitorIntervalMS:  20,
		HistorySize:        100,
	}
}
