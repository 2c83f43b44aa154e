package log

import (
	"time"
)

// Event represents a protocol capture event recorded at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the socket connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the hub address (IP:port).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// PlayerID is the player the event relates to, when known.
	PlayerID string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"8,keyasint,omitempty"`  // Transport layer
	Message     *MessageEvent     `cbor:"9,keyasint,omitempty"`  // CometD layer (decoded)
	StateChange *StateChangeEvent `cbor:"10,keyasint,omitempty"` // Session/connection state
	Error       *ErrorEventData   `cbor:"11,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes on the socket).
	LayerTransport Layer = 0
	// LayerCometd is the message layer (decoded CometD messages).
	LayerCometd Layer = 1
	// LayerSession is the session state machine layer.
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "transport"
	case LayerCometd:
		return "cometd"
	case LayerSession:
		return "session"
	default:
		return "unknown"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage is a protocol message (frame or decoded).
	CategoryMessage Category = 0
	// CategoryState is a state change.
	CategoryState Category = 1
	// CategoryError is an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "message"
	case CategoryState:
		return "state"
	case CategoryError:
		return "error"
	default:
		return "unknown"
	}
}

// FrameEvent captures a raw frame at the transport layer.
type FrameEvent struct {
	// Size is the total frame size in bytes, including the preamble.
	Size int `cbor:"1,keyasint"`

	// Data is the frame payload, possibly truncated.
	Data []byte `cbor:"2,keyasint"`

	// Truncated indicates the data was truncated for the log.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MessageEvent captures a decoded CometD message.
type MessageEvent struct {
	// Channel is the CometD channel name (e.g. "/meta/handshake").
	Channel string `cbor:"1,keyasint"`

	// ID is the correlation id, when the message carries one.
	ID *int `cbor:"2,keyasint,omitempty"`

	// Successful is the ack success flag, when the message carries one.
	Successful *bool `cbor:"3,keyasint,omitempty"`
}

// StateChangeEvent captures a session or connection state change.
type StateChangeEvent struct {
	// Entity identifies what changed state.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state name.
	OldState string `cbor:"2,keyasint"`

	// NewState is the new state name.
	NewState string `cbor:"3,keyasint"`

	// Reason optionally explains the transition.
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity identifies the entity whose state changed.
type StateEntity uint8

const (
	// EntityConnection is the socket connection.
	EntityConnection StateEntity = 0
	// EntitySession is the session state machine.
	EntitySession StateEntity = 1
	// EntityPlayer is a single player.
	EntityPlayer StateEntity = 2
)

// String returns the entity name.
func (e StateEntity) String() string {
	switch e {
	case EntityConnection:
		return "connection"
	case EntitySession:
		return "session"
	case EntityPlayer:
		return "player"
	default:
		return "unknown"
	}
}

// ErrorEventData captures an error at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error text.
	Message string `cbor:"2,keyasint"`

	// Context optionally describes what was being attempted.
	Context string `cbor:"3,keyasint,omitempty"`
}
