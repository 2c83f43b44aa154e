package rpc

import (
	"fmt"
)

// NetworkError is an HTTP or socket-level failure of an RPC call.
// RPC calls are fire-and-forget relative to the session's retry loop:
// the error is logged by the caller and the call is not retried.
type NetworkError struct {
	// URL is the endpoint the call targeted.
	URL string

	// Err is the underlying error.
	Err error
}

// Error returns the error text.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("rpc network error (%s): %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ProtocolError is a malformed or unparseable RPC response. The call's
// effect is treated as not applied.
type ProtocolError struct {
	// Payload is the offending response body, truncated for readability.
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
	return fmt.Sprintf("rpc protocol error: %v (payload: %q)", e.Err, p)
}

// Unwrap returns the underlying error.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}
