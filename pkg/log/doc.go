// Package log provides structured protocol capture for the slim driver.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at multiple layers (transport frames, decoded
// CometD messages, session state changes). It is separate from operational
// logging (slog) - protocol capture produces a complete machine-readable
// event trace for debugging a hub connection.
//
// # Basic Usage
//
// Applications configure capture by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/slim/hub.slog")
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    log.NewFileLogger("/var/log/slim/hub.slog"),
//	)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Transport: raw CometD frame bytes (FrameEvent)
//   - CometD: decoded messages with channel and correlation id (MessageEvent)
//   - Session: protocol and connection state changes (StateChangeEvent)
//
// Errors at any layer have a dedicated event type.
//
// # File Format
//
// Capture files use CBOR encoding with .slog extension. The slim-log CLI
// tool provides viewing, filtering, and export capabilities.
package log
