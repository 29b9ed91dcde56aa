package robot

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/seer-project/seerd/internal/protocol"
	"github.com/seer-project/seerd/internal/transport"
)

func dialTestClient(t *testing.T, f *fakeRobot) *Client {
	t.Helper()
	client, err := dialClient("127.0.0.1", f.port(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestClientCallRoundTrip(t *testing.T) {
	f := startFakeRobot(t, positionHandler(1.5, -2.25, 0.5))
	client := dialTestClient(t, f)

	body, err := client.Call(protocol.TypePositionReq, nil, 2*time.Second)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got := numField(body, "x"); got != 1.5 {
		t.Errorf("x = %v, want 1.5", got)
	}
	if got := numField(body, "y"); got != -2.25 {
		t.Errorf("y = %v, want -2.25", got)
	}
	if client.Broken() {
		t.Error("client marked broken after successful exchange")
	}
}

func TestClientHeaderOnlyResponse(t *testing.T) {
	f := startFakeRobot(t, func(h protocol.Header, _ map[string]any) (protocol.MessageType, any) {
		res, _ := h.Type.Response()
		return res, nil
	})
	client := dialTestClient(t, f)

	body, err := client.Call(protocol.TypeMotionReq, MotionParams{VX: 0.1}.payload(), 2*time.Second)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if body != nil {
		t.Fatalf("body = %v, want nil for header-only response", body)
	}
}

func TestClientBrokenAfterPeerClose(t *testing.T) {
	f := startFakeRobot(t, func(protocol.Header, map[string]any) (protocol.MessageType, any) {
		return dropConn, nil
	})
	client := dialTestClient(t, f)

	_, err := client.Call(protocol.TypePositionReq, nil, 2*time.Second)
	if !errors.Is(err, transport.ErrConnectionClosed) {
		t.Fatalf("err = %v, want connection closed", err)
	}
	if !client.Broken() {
		t.Fatal("client not marked broken after peer close")
	}

	// Later calls fail fast without touching the socket.
	if _, err := client.Call(protocol.TypePositionReq, nil, 2*time.Second); err == nil {
		t.Fatal("call on broken client succeeded")
	}
}

func TestClientTimeoutMarksBroken(t *testing.T) {
	// Handler that never answers: accept the frame, then stall by
	// answering only after the client has given up.
	f := startFakeRobot(t, func(protocol.Header, map[string]any) (protocol.MessageType, any) {
		time.Sleep(500 * time.Millisecond)
		return dropConn, nil
	})
	client := dialTestClient(t, f)

	_, err := client.Call(protocol.TypePositionReq, nil, 100*time.Millisecond)
	if !errors.Is(err, transport.ErrTimeout) {
		t.Fatalf("err = %v, want timeout", err)
	}
	if !client.Broken() {
		t.Fatal("client not marked broken after timeout")
	}
}

func TestClientRequestIDsIncrement(t *testing.T) {
	var mu sync.Mutex
	var seen []uint16
	f := startFakeRobot(t, func(h protocol.Header, _ map[string]any) (protocol.MessageType, any) {
		mu.Lock()
		seen = append(seen, h.RequestID)
		mu.Unlock()
		res, _ := h.Type.Response()
		return res, map[string]any{"ret_code": 0}
	})
	client := dialTestClient(t, f)

	for i := 0; i < 3; i++ {
		if _, err := client.Call(protocol.TypePositionReq, nil, 2*time.Second); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 || seen[0]+1 != seen[1] || seen[1]+1 != seen[2] {
		t.Fatalf("request ids %v, want three consecutive values", seen)
	}
}
