// Package transport owns the TCP connection to the robot and provides
// the blocking send-frame / receive-exact primitives the protocol client
// is built on. The socket handle never leaves this package.
package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const writeTimeout = 10 * time.Second

// Conn wraps one TCP connection to a robot endpoint. The robot speaks
// strict request-then-response on each socket, so reads and writes are
// driven by a single caller at a time.
type Conn struct {
	mu     sync.Mutex
	conn   net.Conn
	logger zerolog.Logger

	connectedAt  time.Time
	lastActivity time.Time

	closed bool
}

// Dial establishes a TCP connection to host:port within connectTimeout.
// Failures are reported as *ConnectError with the failure kind classified.
func Dial(host string, port int, connectTimeout time.Duration) (*Conn, error) {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	conn, err := net.DialTimeout("tcp", addr, connectTimeout)
	if err != nil {
		return nil, &ConnectError{Addr: addr, Kind: classifyDialError(err), Err: err}
	}

	now := time.Now()
	return &Conn{
		conn:         conn,
		connectedAt:  now,
		lastActivity: now,
		logger:       log.With().Str("component", "transport").Str("remote", addr).Logger(),
	}, nil
}

// SendFrame writes one complete frame. A short or failed write leaves the
// connection in an undefined protocol state; the caller must treat the
// connection as broken.
func (c *Conn) SendFrame(frame []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return &IOError{Op: "write", Err: net.ErrClosed}
	}
	conn := c.conn
	c.mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := conn.Write(frame); err != nil {
		return &IOError{Op: "write", Err: err}
	}

	c.touch()
	return nil
}

// ReceiveExact blocks until exactly n bytes arrive, the timeout elapses,
// or the peer closes. The protocol has no frame delimiter beyond the
// declared length, so partial reads are accumulated until n bytes are in.
func (c *Conn) ReceiveExact(n int, timeout time.Duration) ([]byte, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrConnectionClosed
	}
	conn := c.conn
	c.mu.Unlock()

	if timeout > 0 {
		conn.SetReadDeadline(time.Now().Add(timeout))
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(conn, buf); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w after %s waiting for %d bytes", ErrTimeout, timeout, n)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrConnectionClosed
		}
		return nil, &IOError{Op: "read", Err: err}
	}

	c.touch()
	return buf, nil
}

// Close shuts the connection down. Safe to call any number of times.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.logger.Debug().Msg("connection closed")
	return c.conn.Close()
}

// IsClosed returns whether Close has been called.
func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// LastActivity returns the time of the last successful read or write.
func (c *Conn) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// ConnectedAt returns the time the connection was established.
func (c *Conn) ConnectedAt() time.Time {
	return c.connectedAt
}

// RemoteAddr returns the remote address of the connection.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *Conn) touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

// classifyDialError distinguishes the connect failure kinds callers care
// about: a robot that is off (refused), unroutable (unreachable/DNS), or
// simply slow (timeout).
func classifyDialError(err error) ConnectFailure {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ConnectTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ConnectRefused
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) {
		return ConnectUnreachable
	}
	return ConnectUnreachable
}
