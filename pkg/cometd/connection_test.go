package cometd

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/slimproto/slim-go/pkg/log"
)

// recordingHandler collects handler callbacks for assertions.
type recordingHandler struct {
	mu        sync.Mutex
	connected int
	batches   [][]Message
	errs      []error
}

func (h *recordingHandler) OnConnected() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connected++
}

func (h *recordingHandler) OnMessages(msgs []Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.batches = append(h.batches, msgs)
}

func (h *recordingHandler) OnError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, err)
}

func (h *recordingHandler) connectedCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

func (h *recordingHandler) errorCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.errs)
}

func (h *recordingHandler) batchCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.batches)
}

// syncCaptureLogger collects events arriving from connection goroutines.
type syncCaptureLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (l *syncCaptureLogger) Log(event log.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *syncCaptureLogger) contains(match func(log.Event) bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ev := range l.events {
		if match(ev) {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal(msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestConnectionCloseBeforeDialCompletes(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	h := &recordingHandler{}
	c := NewConnection(DefaultConnectionConfig(), h)

	// Close wins the race with the dial: the socket the dial produces
	// must be discarded, not installed.
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	err = c.Connect(context.Background(), ln.Addr().String())
	if !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("Connect after Close = %v, want ErrConnectionClosed", err)
	}
	if got := c.State(); got != StateDisconnected {
		t.Errorf("State = %v, want %v", got, StateDisconnected)
	}
	if err := c.Send([]Message{NewHandshake()}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send = %v, want ErrNotConnected", err)
	}

	time.Sleep(20 * time.Millisecond)
	if n := h.connectedCalls(); n != 0 {
		t.Errorf("OnConnected fired %d times for a closed connection", n)
	}
}

func TestConnectionConnectAndClose(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		// Hold the socket open until the client hangs up
		buf := make([]byte, 1024)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}()

	h := &recordingHandler{}
	c := NewConnection(DefaultConnectionConfig(), h)
	if err := c.Connect(context.Background(), ln.Addr().String()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if got := c.State(); got != StateConnected {
		t.Errorf("State = %v, want %v", got, StateConnected)
	}

	waitFor(t, func() bool { return h.connectedCalls() == 1 }, "waiting for OnConnected")

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := c.State(); got != StateDisconnected {
		t.Errorf("State after Close = %v, want %v", got, StateDisconnected)
	}

	// The read loop exits silently; the close must not surface an error
	time.Sleep(20 * time.Millisecond)
	if n := h.errorCount(); n != 0 {
		t.Errorf("OnError fired %d times after Close, want 0", n)
	}
}

func TestConnectionCapturesMessagesAndErrors(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		// A frame that fails to decode, then a good one
		conn.Write([]byte("e\r\n[{\"channel\":}]\r\n"))
		conn.Write([]byte("31\r\n[{\"channel\":\"/meta/handshake\",\"successful\":true}]\r\n"))
		buf := make([]byte, 4096)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}()

	logger := &syncCaptureLogger{}
	cfg := DefaultConnectionConfig()
	cfg.ProtocolLogger = logger
	h := &recordingHandler{}
	c := NewConnection(cfg, h)
	if err := c.Connect(context.Background(), ln.Addr().String()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	waitFor(t, func() bool { return h.batchCount() == 1 }, "waiting for the decoded batch")
	if err := c.Send([]Message{NewHandshake()}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	// The inbound handshake ack is captured as a decoded message
	if !logger.contains(func(ev log.Event) bool {
		return ev.Layer == log.LayerCometd && ev.Category == log.CategoryMessage &&
			ev.Direction == log.DirectionIn && ev.Message != nil &&
			ev.Message.Channel == ChannelHandshake &&
			ev.Message.Successful != nil && *ev.Message.Successful
	}) {
		t.Error("no capture event for the inbound handshake ack")
	}

	// The outbound handshake request is captured too
	if !logger.contains(func(ev log.Event) bool {
		return ev.Layer == log.LayerCometd && ev.Category == log.CategoryMessage &&
			ev.Direction == log.DirectionOut && ev.Message != nil &&
			ev.Message.Channel == ChannelHandshake
	}) {
		t.Error("no capture event for the outbound handshake request")
	}

	// The undecodable frame is captured as an error
	if !logger.contains(func(ev log.Event) bool {
		return ev.Layer == log.LayerCometd && ev.Category == log.CategoryError &&
			ev.Error != nil && ev.Error.Layer == log.LayerCometd
	}) {
		t.Error("no capture event for the decode error")
	}
}
