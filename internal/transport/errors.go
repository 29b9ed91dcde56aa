package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout reports that no data arrived within the read deadline.
	ErrTimeout = errors.New("transport: receive timeout")

	// ErrConnectionClosed reports that the peer closed the connection
	// mid-frame or before a response arrived.
	ErrConnectionClosed = errors.New("transport: connection closed by peer")
)

// ConnectFailure classifies why a connection attempt failed.
type ConnectFailure int

const (
	ConnectTimeout ConnectFailure = iota
	ConnectRefused
	ConnectUnreachable
)

// String returns the failure kind as a short label.
func (f ConnectFailure) String() string {
	switch f {
	case ConnectTimeout:
		return "timeout"
	case ConnectRefused:
		return "refused"
	case ConnectUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// ConnectError reports a failed connection attempt.
type ConnectError struct {
	Addr string
	Kind ConnectFailure
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to %s failed (%s): %v", e.Addr, e.Kind, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// IOError reports a socket failure during an established exchange. The
// connection must be considered broken after one of these.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("socket %s failed: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
