// Package entity defines the boundary to the host's entity layer.
//
// The driver never owns entity objects; it reports normalized player
// state and attributes through the Sink interface and accepts playback
// commands expressed as the Command vocabulary. The host side of this
// boundary (entity registry, notification center) is out of scope.
package entity

// Type is the entity type the driver manages.
const TypeMediaPlayer = "media_player"

// PlayerState is the normalized playback state of a player entity.
type PlayerState int

const (
	// StateOff - the player is powered off.
	StateOff PlayerState = iota

	// StateOn - powered on, playback state unknown.
	StateOn

	// StatePlaying - actively playing.
	StatePlaying

	// StateIdle - powered on but paused or stopped.
	StateIdle
)

// String returns the state name.
func (s PlayerState) String() string {
	switch s {
	case StateOff:
		return "OFF"
	case StateOn:
		return "ON"
	case StatePlaying:
		return "PLAYING"
	case StateIdle:
		return "IDLE"
	default:
		return "UNKNOWN"
	}
}

// TrackInfo is the current-track attribute set. An empty CoverURL clears
// the entity's image.
type TrackInfo struct {
	Artist   string
	Title    string
	CoverURL string
}

// AvailablePlayer announces a hub-reported player the host may adopt.
type AvailablePlayer struct {
	// ID is the hub-assigned player identifier.
	ID string

	// Name is the player's display name.
	Name string

	// Features lists the media-player features the player supports.
	Features []string
}

// Sink receives normalized state from the driver. Implementations belong
// to the host; all methods are invoked from driver goroutines and must
// not block.
type Sink interface {
	// StateChanged reports the player's normalized playback state.
	StateChanged(playerID string, state PlayerState)

	// TrackChanged reports the current track attributes.
	TrackChanged(playerID string, track TrackInfo)

	// MutedChanged reports the muted flag.
	MutedChanged(playerID string, muted bool)

	// VolumeChanged reports the literal volume (0-100). Only called when
	// the player is not muted.
	VolumeChanged(playerID string, volume int)

	// DurationChanged reports the current track duration in seconds.
	DurationChanged(playerID string, seconds float64)

	// ProgressChanged reports the playback position in seconds. Between
	// status pushes the position is a local best-effort extrapolation.
	ProgressChanged(playerID string, position float64)

	// PlayerDiscovered announces a hub-reported player available for
	// adoption.
	PlayerDiscovered(p AvailablePlayer)

	// Notify raises a user-facing notification. A non-nil action is the
	// notification's retry callback (e.g. reconnect).
	Notify(warning bool, text, actionLabel string, action func())
}

// baseFeatures are supported by every player.
var baseFeatures = []string{
	"MEDIA_ALBUM", "MEDIA_ARTIST", "MEDIA_DURATION", "MEDIA_POSITION",
	"MEDIA_IMAGE", "MEDIA_TITLE", "MEDIA_TYPE", "MUTE", "MUTE_SET",
	"NEXT", "PAUSE", "PLAY", "PREVIOUS", "SEARCH", "SEEK", "STOP",
	"VOLUME", "VOLUME_SET", "VOLUME_UP", "VOLUME_DOWN",
}

// PlayerFeatures returns the feature list for a discovered player. Power
// features are only offered when the player can power off.
func PlayerFeatures(canPowerOff bool) []string {
	features := make([]string, len(baseFeatures), len(baseFeatures)+2)
	copy(features, baseFeatures)
	if canPowerOff {
		features = append(features, "TURN_OFF", "TURN_ON")
	}
	return features
}
