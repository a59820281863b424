package client

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"connectrpc.com/connect"
)

// Sentinel errors for the client.
var (
	// ErrConnectionLost marks transport failures the caller can recover
	// from by issuing a fresh query on a new connection.
	ErrConnectionLost = errors.New("connection lost")

	// ErrQueryInFlight is returned when Query is called while a previous
	// stream is still being consumed.
	ErrQueryInFlight = errors.New("a query is already in flight")
)

// ConnectionLostNotice is the user-facing message shown when a stream
// dies mid-turn. The next query opens a fresh connection on its own.
const ConnectionLostNotice = "Connection was lost. A new connection will be created automatically."

// IsTransient reports whether an error is a connection-level failure
// rather than a fault in the request itself.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConnectionLost) {
		return true
	}

	var cerr *connect.Error
	if errors.As(err, &cerr) {
		switch cerr.Code() {
		case connect.CodeUnavailable, connect.CodeAborted, connect.CodeCanceled:
			return true
		}
	}

	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, net.ErrClosed)
}

// classify wraps transient failures in ErrConnectionLost so callers can
// branch on errors.Is without knowing every underlying cause.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if IsTransient(err) && !errors.Is(err, ErrConnectionLost) {
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	return err
}
