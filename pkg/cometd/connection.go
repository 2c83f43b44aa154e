package cometd

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/slimproto/slim-go/pkg/log"
)

// Connection states.
type ConnectionState int

const (
	// StateDisconnected indicates no connection.
	StateDisconnected ConnectionState = iota

	// StateConnecting indicates connection in progress.
	StateConnecting

	// StateConnected indicates an active connection.
	StateConnected
)

// String returns the connection state name.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// ConnectionConfig configures a hub streaming connection.
type ConnectionConfig struct {
	// MaxMessageSize is the maximum payload size (default: 512KB).
	MaxMessageSize int

	// DialTimeout is the timeout for establishing the TCP connection
	// (default: 3s, matching the session's connection timer).
	DialTimeout time.Duration

	// WriteTimeout is the timeout for write operations (0 = no timeout).
	WriteTimeout time.Duration

	// ProtocolLogger receives capture events (optional).
	ProtocolLogger log.Logger
}

// DefaultConnectionConfig returns the default connection configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxMessageSize: DefaultMaxMessageSize,
		DialTimeout:    3 * time.Second,
	}
}

// ConnectionHandler handles connection events. OnConnected and OnError are
// delivered on their own goroutines; OnMessages is delivered from the
// single read loop, so message batches arrive strictly in socket order.
type ConnectionHandler interface {
	// OnConnected is called once the socket is established.
	OnConnected()

	// OnMessages is called with each decoded inbound message array.
	OnMessages(msgs []Message)

	// OnError is called when a transport or protocol error occurs.
	// A *ProtocolError aborts only the offending frame; a
	// *TransportError means the connection is gone.
	OnError(err error)
}

// Connection owns one streaming socket to the hub.
type Connection struct {
	config  ConnectionConfig
	handler ConnectionHandler

	// Network connection
	conn   net.Conn
	framer *Framer
	connID string

	// State
	state     atomic.Int32
	closeOnce sync.Once
	closed    atomic.Bool

	mu sync.RWMutex
}

// NewConnection creates a new connection (not yet connected).
func NewConnection(config ConnectionConfig, handler ConnectionHandler) *Connection {
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 3 * time.Second
	}

	c := &Connection{
		config:  config,
		handler: handler,
		connID:  uuid.NewString(),
	}
	c.state.Store(int32(StateDisconnected))

	return c
}

// State returns the current connection state.
func (c *Connection) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// ID returns the connection id used in capture events.
func (c *Connection) ID() string {
	return c.connID
}

// Connect establishes the socket to the hub event endpoint and starts the
// read loop. OnConnected fires asynchronously once the socket is up.
func (c *Connection) Connect(ctx context.Context, address string) error {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return ErrAlreadyConnected
	}
	c.notifyStateChange(StateDisconnected, StateConnecting, "")

	dialer := &net.Dialer{Timeout: c.config.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		c.notifyStateChange(StateConnecting, StateDisconnected, "dial failed")
		te := &TransportError{Op: "dial", Err: err}
		c.captureError(log.LayerTransport, te, "dial "+address)
		return te
	}

	framer := NewFramer(conn)
	framer.FrameReader.maxMessageSize = c.config.MaxMessageSize
	framer.FrameWriter.maxMessageSize = c.config.MaxMessageSize
	if c.config.ProtocolLogger != nil {
		framer.SetLogger(c.config.ProtocolLogger, c.connID)
	}

	// Close may have run while the dial was in flight. The socket it
	// never saw must not be installed, and the handler must not hear
	// about it.
	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		conn.Close()
		c.state.Store(int32(StateDisconnected))
		return &TransportError{Op: "dial", Err: ErrConnectionClosed}
	}
	c.conn = conn
	c.framer = framer
	c.state.Store(int32(StateConnected))
	c.mu.Unlock()

	c.notifyStateChange(StateConnecting, StateConnected, "")

	go c.handler.OnConnected()
	go c.readLoop()

	return nil
}

// Send encodes the messages as a JSON array and writes one framed POST.
func (c *Connection) Send(msgs []Message) error {
	if c.State() != StateConnected {
		return ErrNotConnected
	}

	payload, err := EncodeMessages(msgs)
	if err != nil {
		return err
	}

	c.mu.RLock()
	framer := c.framer
	conn := c.conn
	c.mu.RUnlock()

	if framer == nil {
		return ErrNotConnected
	}

	if c.config.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
		defer conn.SetWriteDeadline(time.Time{})
	}

	if err := framer.WriteFrame(payload); err != nil {
		c.captureError(log.LayerTransport, err, "write")
		return err
	}
	c.captureMessages(log.DirectionOut, msgs)
	return nil
}

// Close closes the connection. It is safe to call multiple times and
// suppresses the read-loop error the close provokes.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		currentState := c.State()

		c.mu.Lock()
		if c.conn != nil {
			err = c.conn.Close()
			c.conn = nil
		}
		c.framer = nil
		c.mu.Unlock()

		c.state.Store(int32(StateDisconnected))
		if currentState != StateDisconnected {
			c.notifyStateChange(currentState, StateDisconnected, "closed")
		}
	})
	return err
}

// readLoop reads frames from the socket and delivers decoded message
// arrays to the handler. Protocol errors abort only the offending frame.
func (c *Connection) readLoop() {
	for {
		c.mu.RLock()
		framer := c.framer
		c.mu.RUnlock()

		if framer == nil {
			return
		}

		payload, err := framer.ReadFrame()
		if err != nil {
			if c.closed.Load() {
				return // Expected during close
			}
			te, ok := err.(*TransportError)
			if !ok {
				te = &TransportError{Op: "read", Err: err}
			}
			c.captureError(log.LayerTransport, te, "read")
			c.handler.OnError(te)
			c.Close()
			return
		}

		msgs, err := DecodeMessages(payload)
		if err != nil {
			// Malformed frame - abandon it, keep the connection
			c.captureError(log.LayerCometd, err, "decode")
			c.handler.OnError(err)
			continue
		}

		c.captureMessages(log.DirectionIn, msgs)
		c.handler.OnMessages(msgs)
	}
}

// captureMessages records decoded messages in the protocol capture, one
// event per message.
func (c *Connection) captureMessages(direction log.Direction, msgs []Message) {
	if c.config.ProtocolLogger == nil {
		return
	}
	now := time.Now()
	for i := range msgs {
		m := &msgs[i]
		ev := log.Event{
			Timestamp:    now,
			ConnectionID: c.connID,
			Direction:    direction,
			Layer:        log.LayerCometd,
			Category:     log.CategoryMessage,
			Message:      &log.MessageEvent{Channel: m.Channel},
		}
		if m.ID != 0 {
			id := m.ID
			ev.Message.ID = &id
		}
		if m.Successful != nil {
			ok := *m.Successful
			ev.Message.Successful = &ok
		}
		c.config.ProtocolLogger.Log(ev)
	}
}

// captureError records an error in the protocol capture.
func (c *Connection) captureError(layer log.Layer, err error, context string) {
	if c.config.ProtocolLogger == nil {
		return
	}
	c.config.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Direction:    log.DirectionIn,
		Layer:        layer,
		Category:     log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Context: context,
		},
	})
}

// notifyStateChange records a state change in the protocol capture.
func (c *Connection) notifyStateChange(oldState, newState ConnectionState, reason string) {
	if c.config.ProtocolLogger == nil {
		return
	}
	c.config.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.EntityConnection,
			OldState: oldState.String(),
			NewState: newState.String(),
			Reason:   reason,
		},
	})
}
