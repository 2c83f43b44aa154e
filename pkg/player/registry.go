// Package player provides the in-memory directory of managed players.
//
// Players are registered from configuration and never removed during a
// session; discovery only flips their connected flag. Only the session
// state machine and the status applier mutate the registry.
package player

import (
	"sync"
)

// Player is one addressable playback endpoint managed by the hub.
type Player struct {
	// ID is the hub-assigned stable identifier (usually the player MAC).
	ID string

	// Name is the display name reported by discovery.
	Name string

	// CanPowerOff reports whether the player supports power control.
	CanPowerOff bool

	// Connected is set when discovery enumerates the player.
	Connected bool

	// Subscribed is set when the player's subscribe ack arrives.
	// A player only becomes subscribed after being connected.
	Subscribed bool

	// Playing is derived from the last status mode.
	Playing bool

	// Position is the playback position in seconds. It advances locally
	// between pushes and is corrected by each authoritative status.
	Position float64
}

// Registry is the session-scoped player directory keyed by player id.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	players map[string]*Player
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		players: make(map[string]*Player),
	}
}

// Register adds a player with the given id if not already present.
func (r *Registry) Register(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[id]; ok {
		return
	}
	r.players[id] = &Player{ID: id}
	r.order = append(r.order, id)
}

// Contains reports whether the player is registered.
func (r *Registry) Contains(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.players[id]
	return ok
}

// Get returns a snapshot of the player, and whether it exists.
func (r *Registry) Get(id string) (Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.players[id]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// All returns a snapshot of every registered player in registration order.
func (r *Registry) All() []Player {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Player, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.players[id])
	}
	return out
}

// SetConnected marks the player's discovery state. Losing connected also
// clears subscribed. Reports whether the player exists.
func (r *Registry) SetConnected(id string, connected bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return false
	}
	p.Connected = connected
	if !connected {
		p.Subscribed = false
	}
	return true
}

// SetInfo records the discovery metadata for a player.
func (r *Registry) SetInfo(id, name string, canPowerOff bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.players[id]; ok {
		p.Name = name
		p.CanPowerOff = canPowerOff
	}
}

// SetSubscribed marks the player's subscription state. A player that is
// not connected stays unsubscribed. Reports whether the player exists.
func (r *Registry) SetSubscribed(id string, subscribed bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return false
	}
	if subscribed && !p.Connected {
		return true
	}
	p.Subscribed = subscribed
	return true
}

// SetPlaying marks whether the player is playing.
func (r *Registry) SetPlaying(id string, playing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.players[id]; ok {
		p.Playing = playing
	}
}

// SetPosition stores an authoritative playback position.
func (r *Registry) SetPosition(id string, position float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.players[id]; ok {
		p.Position = position
	}
}

// ProgressUpdate is one advanced position produced by a clock tick.
type ProgressUpdate struct {
	PlayerID string
	Position float64
}

// AdvancePlaying advances the position of every playing player by delta
// seconds and returns the updated positions. An empty result means no
// player is playing.
func (r *Registry) AdvancePlaying(delta float64) []ProgressUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updates []ProgressUpdate
	for _, id := range r.order {
		p := r.players[id]
		if !p.Playing {
			continue
		}
		p.Position += delta
		updates = append(updates, ProgressUpdate{PlayerID: id, Position: p.Position})
	}
	return updates
}

// Playing returns the ids of all players currently marked playing.
func (r *Registry) Playing() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for _, id := range r.order {
		if r.players[id].Playing {
			out = append(out, id)
		}
	}
	return out
}

// AllSubscribed reports whether every connected player is also
// subscribed. This is the predicate that gates the session's CONNECTED
// transition; with no connected players it is vacuously true.
func (r *Registry) AllSubscribed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.players {
		if p.Connected && !p.Subscribed {
			return false
		}
	}
	return true
}

// ResetSession clears the connected and subscribed flags on every player.
// Called at the start of each connection attempt; players themselves are
// never removed.
func (r *Registry) ResetSession() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.players {
		p.Connected = false
		p.Subscribed = false
	}
}
