package commands

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/slimproto/slim-go/pkg/log"
)

// createTestLogFile writes events to a temporary capture file.
func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.slog")
	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return path
}

func testEvents(ts time.Time) []log.Event {
	id1 := 1
	ok := true
	return []log.Event{
		{
			Timestamp:    ts,
			ConnectionID: "abc12345-6789-0123-4567-890abcdef012",
			Direction:    log.DirectionOut,
			Layer:        log.LayerTransport,
			Category:     log.CategoryMessage,
			Frame:        &log.FrameEvent{Size: 128, Data: []byte(`[{"channel":"/meta/handshake"}]`)},
		},
		{
			Timestamp:    ts.Add(time.Second),
			ConnectionID: "abc12345-6789-0123-4567-890abcdef012",
			Direction:    log.DirectionIn,
			Layer:        log.LayerCometd,
			Category:     log.CategoryMessage,
			PlayerID:     "00:04:20:ab:cd:ef",
			Message:      &log.MessageEvent{Channel: "/slim/subscribe", ID: &id1, Successful: &ok},
		},
		{
			Timestamp:    ts.Add(2 * time.Second),
			ConnectionID: "abc12345-6789-0123-4567-890abcdef012",
			Direction:    log.DirectionIn,
			Layer:        log.LayerSession,
			Category:     log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.EntitySession,
				OldState: "subscribe",
				NewState: "connected",
				Reason:   "all players subscribed",
			},
		},
		{
			Timestamp:    ts.Add(3 * time.Second),
			ConnectionID: "ffff0000-1111-2222-3333-444455556666",
			Direction:    log.DirectionIn,
			Layer:        log.LayerTransport,
			Category:     log.CategoryError,
			Error:        &log.ErrorEventData{Layer: log.LayerTransport, Message: "connection reset"},
		},
	}
}

func TestFormatFrameEvent(t *testing.T) {
	ts := time.Date(2026, 8, 28, 10, 15, 32, 123456000, time.UTC)
	events := testEvents(ts)

	var buf bytes.Buffer
	formatEvent(&buf, events[0])
	output := buf.String()

	if !strings.Contains(output, "2026-08-28T10:15:32.123456Z") {
		t.Errorf("expected timestamp, got: %s", output)
	}
	if !strings.Contains(output, "[conn:abc12345]") {
		t.Errorf("expected shortened connection id, got: %s", output)
	}
	if !strings.Contains(output, "OUT") {
		t.Errorf("expected OUT direction, got: %s", output)
	}
	if !strings.Contains(output, "transport") {
		t.Errorf("expected transport layer, got: %s", output)
	}
	if !strings.Contains(output, "128 bytes") {
		t.Errorf("expected frame size, got: %s", output)
	}
	if !strings.Contains(output, `/meta/handshake`) {
		t.Errorf("expected frame payload, got: %s", output)
	}
}

func TestFormatMessageEvent(t *testing.T) {
	ts := time.Date(2026, 8, 28, 10, 15, 32, 0, time.UTC)
	events := testEvents(ts)

	var buf bytes.Buffer
	formatEvent(&buf, events[1])
	output := buf.String()

	if !strings.Contains(output, "/slim/subscribe") {
		t.Errorf("expected channel label, got: %s", output)
	}
	if !strings.Contains(output, "ID: 1") {
		t.Errorf("expected correlation id, got: %s", output)
	}
	if !strings.Contains(output, "Successful: true") {
		t.Errorf("expected success flag, got: %s", output)
	}
	if !strings.Contains(output, "Player: 00:04:20:ab:cd:ef") {
		t.Errorf("expected player id, got: %s", output)
	}
}

func TestFormatStateChangeEvent(t *testing.T) {
	ts := time.Date(2026, 8, 28, 10, 15, 32, 0, time.UTC)
	events := testEvents(ts)

	var buf bytes.Buffer
	formatEvent(&buf, events[2])
	output := buf.String()

	if !strings.Contains(output, "subscribe -> connected") {
		t.Errorf("expected state transition, got: %s", output)
	}
	if !strings.Contains(output, "Reason: all players subscribed") {
		t.Errorf("expected reason, got: %s", output)
	}
}

func TestRunViewWithFilter(t *testing.T) {
	ts := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	path := createTestLogFile(t, testEvents(ts))

	layer := log.LayerSession
	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{Layer: &layer}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "connected") {
		t.Errorf("expected the session event, got: %s", output)
	}
	if strings.Contains(output, "/slim/subscribe") {
		t.Errorf("cometd event should be filtered out, got: %s", output)
	}
}

func TestParseFlags(t *testing.T) {
	if l, err := ParseLayerFlag("Session"); err != nil || l != log.LayerSession {
		t.Errorf("ParseLayerFlag(Session) = %v, %v", l, err)
	}
	if _, err := ParseLayerFlag("bogus"); err == nil {
		t.Error("ParseLayerFlag(bogus) expected error")
	}
	if d, err := ParseDirectionFlag("IN"); err != nil || d != log.DirectionIn {
		t.Errorf("ParseDirectionFlag(IN) = %v, %v", d, err)
	}
	if _, err := ParseDirectionFlag("sideways"); err == nil {
		t.Error("ParseDirectionFlag(sideways) expected error")
	}
	if c, err := ParseCategoryFlag("error"); err != nil || c != log.CategoryError {
		t.Errorf("ParseCategoryFlag(error) = %v, %v", c, err)
	}
	if _, err := ParseCategoryFlag("bogus"); err == nil {
		t.Error("ParseCategoryFlag(bogus) expected error")
	}
}

func TestRunExportJSONL(t *testing.T) {
	ts := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	path := createTestLogFile(t, testEvents(ts))
	out := filepath.Join(t.TempDir(), "out.jsonl")

	if err := RunExport(path, "jsonl", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(lines))
	}
	for i, line := range lines {
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			t.Errorf("line %d is not valid JSON: %v", i, err)
		}
	}
}

func TestRunExportCSV(t *testing.T) {
	ts := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	path := createTestLogFile(t, testEvents(ts))
	out := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, "csv", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("got %d rows, want header + 4", len(rows))
	}
	if rows[0][0] != "timestamp" || rows[0][7] != "channel" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[2][7] != "/slim/subscribe" || rows[2][8] != "1" {
		t.Errorf("unexpected message row: %v", rows[2])
	}
}

func TestRunExportUnknownFormat(t *testing.T) {
	ts := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	path := createTestLogFile(t, testEvents(ts))

	if err := RunExport(path, "xml", ""); err == nil {
		t.Error("RunExport expected error for unknown format")
	}
}

func TestRunFilter(t *testing.T) {
	ts := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	path := createTestLogFile(t, testEvents(ts))
	out := filepath.Join(t.TempDir(), "filtered.slog")

	opts := FilterOptions{
		Output: out,
		ConnID: "abc12345-6789-0123-4567-890abcdef012",
		Layer:  "cometd",
	}
	if err := RunFilter(path, opts); err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	r, err := log.NewReader(out)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	count := 0
	for {
		e, err := r.Next()
		if err != nil {
			break
		}
		count++
		if e.Layer != log.LayerCometd {
			t.Errorf("filtered file contains layer %s", e.Layer)
		}
	}
	if count != 1 {
		t.Errorf("filtered file has %d events, want 1", count)
	}
}

func TestRunFilterBadTime(t *testing.T) {
	ts := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	path := createTestLogFile(t, testEvents(ts))

	opts := FilterOptions{Output: filepath.Join(t.TempDir(), "out.slog"), TimeStart: "yesterday"}
	if err := RunFilter(path, opts); err == nil {
		t.Error("RunFilter expected error for bad time format")
	}
}

func TestRunStats(t *testing.T) {
	ts := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	path := createTestLogFile(t, testEvents(ts))

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Total Events: 4") {
		t.Errorf("expected total, got: %s", output)
	}
	if !strings.Contains(output, "transport:") || !strings.Contains(output, "session:") {
		t.Errorf("expected layer breakdown, got: %s", output)
	}
	if !strings.Contains(output, "/slim/subscribe:") {
		t.Errorf("expected channel breakdown, got: %s", output)
	}
	if !strings.Contains(output, "Connections: 2") {
		t.Errorf("expected connection count, got: %s", output)
	}
	if !strings.Contains(output, "Player 00:04:20:ab:cd:ef: 1 events") {
		t.Errorf("expected per-player count, got: %s", output)
	}
	if !strings.Contains(output, "Errors: 1") {
		t.Errorf("expected error count, got: %s", output)
	}
}
