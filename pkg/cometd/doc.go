// Package cometd provides the streaming transport to a slim hub.
//
// The hub exposes a CometD-style event endpoint on its plain HTTP port.
// The transport layer handles:
//   - A persistent TCP socket to the hub
//   - Synthetic HTTP POST framing for outgoing message arrays
//   - De-framing of HTTP-response-shaped and bare inbound frames
//   - Connection state management
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│   JSON Message Arrays          │
//	├────────────────────────────────┤
//	│   Pseudo-HTTP POST Framing     │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// # Framing
//
// Outgoing messages are wrapped in a synthetic "POST /cometd HTTP/1.1"
// preamble carrying Content-Length and Content-Type headers, followed by
// the JSON array body and a trailing newline.
//
// Inbound frames are either a full "HTTP/1.1 200 OK" envelope (status
// line, headers, blank line, body) or a bare two-line chunk (length line
// plus body). In both shapes the final non-empty line is a single JSON
// array of message objects. Frames matching neither shape are silently
// discarded.
//
// # Session Establishment
//
// The session establishment sequence (handshake, connect, subscribe) is
// driven by the session package; this package only moves message arrays.
package cometd
