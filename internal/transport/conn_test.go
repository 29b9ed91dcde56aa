package transport

import (
	"errors"
	"net"
	"testing"
	"time"
)

// startListener returns a listening socket on an ephemeral loopback port
// and a channel delivering the first accepted connection.
func startListener(t *testing.T) (net.Listener, <-chan net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		accepted <- conn
	}()
	return ln, accepted
}

func dialListener(t *testing.T, ln net.Listener) *Conn {
	t.Helper()

	addr := ln.Addr().(*net.TCPAddr)
	c, err := Dial("127.0.0.1", addr.Port, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestReceiveExactAccumulatesPartialReads(t *testing.T) {
	ln, accepted := startListener(t)
	c := dialListener(t, ln)

	peer := <-accepted
	defer peer.Close()

	payload := []byte("0123456789abcdef")
	go func() {
		// Dribble the bytes out in three writes with gaps so the
		// client sees partial reads.
		peer.Write(payload[:5])
		time.Sleep(20 * time.Millisecond)
		peer.Write(payload[5:11])
		time.Sleep(20 * time.Millisecond)
		peer.Write(payload[11:])
	}()

	got, err := c.ReceiveExact(len(payload), 2*time.Second)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestReceiveExactTimeout(t *testing.T) {
	ln, accepted := startListener(t)
	c := dialListener(t, ln)

	peer := <-accepted
	defer peer.Close()

	_, err := c.ReceiveExact(16, 50*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestReceiveExactPeerClose(t *testing.T) {
	ln, accepted := startListener(t)
	c := dialListener(t, ln)

	peer := <-accepted
	peer.Write([]byte("abc")) // fewer than requested
	peer.Close()

	_, err := c.ReceiveExact(16, time.Second)
	if !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
}

func TestDialRefused(t *testing.T) {
	// Grab a port that is certainly unbound by closing a listener first.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	_, err = Dial("127.0.0.1", port, time.Second)
	var ce *ConnectError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConnectError, got %v", err)
	}
	if ce.Kind != ConnectRefused {
		t.Fatalf("expected refused, got %v", ce.Kind)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	ln, _ := startListener(t)
	c := dialListener(t, ln)

	for i := 0; i < 3; i++ {
		if err := c.Close(); err != nil {
			t.Fatalf("close #%d: %v", i+1, err)
		}
	}
	if !c.IsClosed() {
		t.Fatal("connection should report closed")
	}
}

func TestSendFrameAfterClose(t *testing.T) {
	ln, _ := startListener(t)
	c := dialListener(t, ln)
	c.Close()

	err := c.SendFrame([]byte{0x5A})
	var ioe *IOError
	if !errors.As(err, &ioe) {
		t.Fatalf("expected IOError on closed connection, got %v", err)
	}
}
