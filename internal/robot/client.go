package robot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/seer-project/seerd/internal/protocol"
	"github.com/seer-project/seerd/internal/transport"
	"github.com/seer-project/seerd/internal/util"
)

// Client runs synchronous request/response exchanges over a single
// robot connection. Calls are serialized: one request is fully sent and
// its response fully received before the next begins. After any
// transport or framing failure the client is broken and every later
// call fails fast until the caller reconnects.
type Client struct {
	conn   *transport.Conn
	logger zerolog.Logger

	nextID uint16
	broken bool
}

// NewClient wraps an established connection.
func NewClient(conn *transport.Conn) *Client {
	return &Client{
		conn:   conn,
		logger: util.ComponentLogger("client"),
		nextID: 1,
	}
}

// Broken reports whether a previous exchange failed at the transport or
// framing level, invalidating the connection.
func (c *Client) Broken() bool {
	return c.broken
}

// Conn exposes the underlying connection.
func (c *Client) Conn() *transport.Conn {
	return c.conn
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Call sends one request and waits for its framed response. The payload
// may be nil for body-less requests. The returned body is nil when the
// response carries no payload.
//
// The caller is expected to hold any cross-goroutine serialization; the
// controller guards its persistent client with a mutex.
func (c *Client) Call(msgType protocol.MessageType, payload any, timeout time.Duration) (map[string]any, error) {
	if c.broken {
		return nil, fmt.Errorf("connection invalidated by previous failure")
	}
	if c.conn.IsClosed() {
		c.broken = true
		return nil, transport.ErrConnectionClosed
	}

	id := c.nextID
	c.nextID++ // uint16 wraps naturally at 65535

	frame, err := protocol.Encode(id, msgType, payload)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(timeout)

	if err := c.conn.SendFrame(frame); err != nil {
		c.broken = true
		return nil, err
	}

	remaining := time.Until(deadline)
	if remaining <= 0 {
		c.broken = true
		return nil, transport.ErrTimeout
	}

	raw, err := c.conn.ReceiveExact(protocol.HeaderSize, remaining)
	if err != nil {
		c.broken = true
		return nil, err
	}

	header, err := protocol.DecodeHeader(raw)
	if err != nil {
		// The stream is out of sync; nothing after a bad header
		// can be trusted.
		c.broken = true
		return nil, err
	}

	var body map[string]any
	if header.PayloadLen > 0 {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			c.broken = true
			return nil, transport.ErrTimeout
		}
		rawBody, err := c.conn.ReceiveExact(int(header.PayloadLen), remaining)
		if err != nil {
			c.broken = true
			return nil, err
		}
		body, err = protocol.DecodeBody(rawBody, header.PayloadLen)
		if err != nil {
			// Malformed payloads are recoverable: the frame
			// boundary held, only the content is bad.
			return nil, err
		}
	}

	if header.RequestID != id {
		c.logger.Debug().
			Uint16("sent", id).
			Uint16("received", header.RequestID).
			Msg("response request_id does not match request")
	}
	if want, ok := msgType.Response(); ok && header.Type != want {
		c.logger.Warn().
			Str("expected", want.String()).
			Str("received", header.Type.String()).
			Msg("unexpected response message type")
	}

	return body, nil
}

// dialClient establishes a fresh connection and wraps it in a Client.
func dialClient(host string, port int, connectTimeout time.Duration) (*Client, error) {
	conn, err := transport.Dial(host, port, connectTimeout)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}
