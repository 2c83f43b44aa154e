// Package session drives the hub connection state machine.
//
// A session walks the establishment sequence
//
//	idle → playerInfo → handshake → connect → subscribe → connected
//
// over the streaming transport: RPC discovery seeds the player registry,
// the CometD handshake yields a client id, the connect ack opens the
// subscribe burst, and the session reports CONNECTED once every
// connected player's subscribe ack has arrived. Status pushes on the
// derived subscription channel are correlated back to players and
// applied to the registry and the entity sink.
//
// # Dispatch
//
// Incoming messages are routed by a single dispatch keyed on
// (current phase, message channel, success flag). An ack on the wrong
// channel for the current phase is ignored, not an error - this makes
// the establishment sequence tolerant of stray or delayed frames.
//
// # Failure handling
//
// A single-shot connection timer bounds each attempt. On expiry the
// attempt counter is bumped and the sequence restarts immediately; after
// the configured number of consecutive failures the session disconnects,
// raises one user-facing reconnect notification, and resets the counter.
// Socket errors feed the same timer-driven retry path. All error and
// retry handling is suppressed after a user-initiated disconnect.
//
// # Progress clock
//
// Between status pushes a shared ticker advances the position of every
// playing player by the tick interval. The position is a best-effort
// local extrapolation; each authoritative push corrects it. Standby
// stops the ticker outright, and leaving standby re-polls every player
// last known playing.
package session
