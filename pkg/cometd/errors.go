package cometd

import (
	"errors"
	"fmt"
)

// Connection errors.
var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrConnectionClosed = errors.New("connection closed")
)

// TransportError is a socket-level failure on the streaming connection.
// The session decides whether it triggers reconnection; the transport
// itself never retries.
type TransportError struct {
	// Op names the operation that failed ("dial", "read", "write").
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns the error text.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is a malformed or unparseable payload received on the
// streaming connection. Processing of the offending frame is abandoned;
// the connection itself stays up.
type ProtocolError struct {
	// Payload is the offending payload, truncated for readability.
	Payload string

	// Err is the underlying decode error.
	Err error
}

// maxErrPayload limits how much of the offending payload appears in the
// error text.
const maxErrPayload = 256

// Error returns the error text naming the offending payload.
func (e *ProtocolError) Error() string {
	p := e.Payload
	if len(p) > maxErrPayload {
		p = p[:maxErrPayload] + "..."
	}
	return fmt.Sprintf("protocol error: %v (payload: %q)", e.Err, p)
}

// Unwrap returns the underlying error.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}
