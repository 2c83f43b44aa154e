package cometd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/slimproto/slim-go/pkg/log"
)

// Framing constants.
const (
	// DefaultMaxMessageSize is the default maximum payload size (512 KB).
	// Hub status pushes for large playlists can run well past 64 KB.
	DefaultMaxMessageSize = 512 * 1024

	// MaxLogFrameDataSize is the maximum frame data size to include in
	// capture events (4 KB). Larger frames are truncated in the capture
	// to avoid excessive memory usage.
	MaxLogFrameDataSize = 4096
)

// Framing errors.
var (
	// ErrMessageTooLarge indicates the payload exceeds the maximum size.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrMessageEmpty indicates an empty payload.
	ErrMessageEmpty = errors.New("message is empty")
)

// FrameWriter writes outgoing payloads to the hub socket, wrapped in the
// synthetic HTTP POST preamble the event endpoint expects.
type FrameWriter struct {
	w              io.Writer
	maxMessageSize int
	mu             sync.Mutex

	// Capture support (optional)
	logger log.Logger
	connID string
}

// NewFrameWriter creates a new frame writer.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{
		w:              w,
		maxMessageSize: DefaultMaxMessageSize,
	}
}

// SetLogger configures protocol capture for this writer.
// Pass nil to disable capture.
func (fw *FrameWriter) SetLogger(logger log.Logger, connID string) {
	fw.logger = logger
	fw.connID = connID
}

// WriteFrame frames the payload with the POST /cometd preamble and writes
// it to the socket.
// Thread-safe: can be called from multiple goroutines.
func (fw *FrameWriter) WriteFrame(payload []byte) error {
	if len(payload) == 0 {
		return ErrMessageEmpty
	}
	if len(payload) > fw.maxMessageSize {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(payload), fw.maxMessageSize)
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	frame := make([]byte, 0, len(payload)+96)
	frame = append(frame, "POST /cometd HTTP/1.1\n"...)
	frame = append(frame, fmt.Sprintf("Content-Length: %d\n", len(payload))...)
	frame = append(frame, "Content-Type: application/json\n\n"...)
	frame = append(frame, payload...)
	frame = append(frame, '\n')

	if _, err := fw.w.Write(frame); err != nil {
		return &TransportError{Op: "write", Err: err}
	}

	// Capture the frame if a logger is configured
	if fw.logger != nil {
		fw.logger.Log(makeFrameEvent(fw.connID, payload, len(frame), log.DirectionOut))
	}

	return nil
}

// FrameReader de-frames inbound hub traffic into discrete JSON payloads.
//
// The hub sends either a full HTTP/200 envelope (for the handshake reply)
// or bare two-line chunks (length line plus body) once streaming is
// active. In both shapes the final non-empty line carries the JSON array;
// chunked envelope bodies put a chunk-size line in front of it, which is
// skipped. Frames matching neither shape are silently discarded.
type FrameReader struct {
	r              *bufio.Reader
	maxMessageSize int

	// Capture support (optional)
	logger log.Logger
	connID string
}

// NewFrameReader creates a new frame reader.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{
		r:              bufio.NewReader(r),
		maxMessageSize: DefaultMaxMessageSize,
	}
}

// SetLogger configures protocol capture for this reader.
// Pass nil to disable capture.
func (fr *FrameReader) SetLogger(logger log.Logger, connID string) {
	fr.logger = logger
	fr.connID = connID
}

// ReadFrame reads the next JSON payload from the socket, skipping frames
// that match neither accepted shape. It blocks until a payload or an I/O
// error arrives.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	for {
		line, size, err := fr.readLine()
		if err != nil {
			return nil, err
		}
		if line == "" {
			continue
		}

		// A JSON document arriving without a length line in front is
		// taken as-is, keeping the reader synchronized.
		if isPayloadLine(line) {
			fr.capture([]byte(line), size)
			return []byte(line), nil
		}

		if strings.HasPrefix(line, "HTTP/") {
			if !strings.HasSuffix(line, "200 OK") {
				// Unexpected status - drop the whole envelope
				if err := fr.skipHeaders(); err != nil {
					return nil, err
				}
				continue
			}

			// HTTP/200 envelope: headers, blank line, then the body.
			// Chunked bodies put a chunk-size line before the payload.
			if err := fr.skipHeaders(); err != nil {
				return nil, err
			}
			payload, bodySize, err := fr.readPayloadLine()
			if err != nil {
				return nil, err
			}
			fr.capture(payload, size+bodySize)
			return payload, nil
		}

		// Bare two-line frame: this line is the chunk length, the next
		// non-size line carries the payload.
		payload, bodySize, err := fr.readPayloadLine()
		if err != nil {
			return nil, err
		}
		fr.capture(payload, size+bodySize)
		return payload, nil
	}
}

// readLine reads one line, stripping CR/LF. The returned size counts the
// raw bytes consumed.
func (fr *FrameReader) readLine() (string, int, error) {
	line, err := fr.r.ReadString('\n')
	if err != nil {
		if err == io.EOF && line == "" {
			return "", 0, io.EOF
		}
		if err != io.EOF {
			return "", 0, &TransportError{Op: "read", Err: err}
		}
	}
	size := len(line)
	if size > fr.maxMessageSize {
		return "", size, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, size, fr.maxMessageSize)
	}
	return strings.TrimRight(line, "\r\n"), size, nil
}

// skipHeaders consumes header lines up to and including the blank line.
func (fr *FrameReader) skipHeaders() error {
	for {
		line, _, err := fr.readLine()
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
	}
}

// readPayloadLine reads body lines until the JSON document. Chunk-size
// lines and blank lines in front of it are skipped, so the payload is
// the final non-empty line of the frame.
func (fr *FrameReader) readPayloadLine() ([]byte, int, error) {
	total := 0
	for {
		line, size, err := fr.readLine()
		if err != nil {
			return nil, 0, err
		}
		total += size
		if isPayloadLine(line) {
			return []byte(line), total, nil
		}
	}
}

// isPayloadLine reports whether the line opens a JSON document. The hub
// sends message batches as arrays; a single object is accepted too.
func isPayloadLine(line string) bool {
	return strings.HasPrefix(line, "[") || strings.HasPrefix(line, "{")
}

// capture records an inbound frame event if a logger is configured.
func (fr *FrameReader) capture(payload []byte, frameSize int) {
	if fr.logger == nil {
		return
	}
	fr.logger.Log(makeFrameEvent(fr.connID, payload, frameSize, log.DirectionIn))
}

// makeFrameEvent creates a capture event for a frame.
func makeFrameEvent(connID string, payload []byte, frameSize int, direction log.Direction) log.Event {
	data := payload
	truncated := false

	if len(payload) > MaxLogFrameDataSize {
		data = payload[:MaxLogFrameDataSize]
		truncated = true
	}

	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    direction,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		Frame: &log.FrameEvent{
			Size:      frameSize,
			Data:      data,
			Truncated: truncated,
		},
	}
}

// Framer combines frame reading and writing on one socket.
type Framer struct {
	*FrameReader
	*FrameWriter
}

// NewFramer creates a new framer for bidirectional communication.
func NewFramer(rw io.ReadWriter) *Framer {
	return &Framer{
		FrameReader: NewFrameReader(rw),
		FrameWriter: NewFrameWriter(rw),
	}
}

// SetLogger configures protocol capture for both reader and writer.
// Pass nil to disable capture.
func (f *Framer) SetLogger(logger log.Logger, connID string) {
	f.FrameReader.SetLogger(logger, connID)
	f.FrameWriter.SetLogger(logger, connID)
}
