// Package status decodes and normalizes per-player status payloads.
//
// The same payload shape arrives on two paths: as the result of a
// one-shot RPC status poll, and as the data of a streaming status push.
// Normalization derives the entity state and attribute updates the
// driver forwards to the host.
package status

import (
	"encoding/json"

	"github.com/slimproto/slim-go/pkg/entity"
)

// Playback modes reported by the hub.
const (
	ModePlay  = "play"
	ModePause = "pause"
	ModeStop  = "stop"
)

// Track is one playlist_loop entry.
type Track struct {
	Artist   string     `json:"artist"`
	Title    string     `json:"title"`
	CoverArt flexBool   `json:"coverart"`
	CoverID  flexString `json:"coverid"`
}

// Payload is a raw per-player status as sent by the hub.
type Payload struct {
	Power         flexBool  `json:"power"`
	Mode          string    `json:"mode"`
	PlaylistIndex flexInt   `json:"playlist_curr_index"`
	PlaylistLoop  []Track   `json:"playlist_loop"`
	MixerVolume   flexInt   `json:"mixer_volume"`
	Duration      flexFloat `json:"duration"`
	Time          flexFloat `json:"time"`
}

// Decode parses a raw status result or push payload.
func Decode(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update is a normalized status, ready to apply to the registry and
// forward to the entity sink.
type Update struct {
	// State is the derived entity state.
	State entity.PlayerState

	// Playing reports whether the player is actively playing.
	Playing bool

	// HasTrack reports whether Track carries valid current-track
	// attributes. False when the playlist index is out of range.
	HasTrack bool

	// Track is the current track, with the derived cover URL.
	Track entity.TrackInfo

	// Muted is the muted flag (negative mixer volume).
	Muted bool

	// HasVolume reports whether Volume carries a literal value. False
	// while muted.
	HasVolume bool

	// Volume is the literal volume (0-100).
	Volume int

	// Duration is the track duration in seconds.
	Duration float64

	// Position is the authoritative playback position in seconds.
	Position float64
}

// Normalize derives the entity updates from a payload. baseURL is the
// hub's HTTP base URL ("http://host:port/") used to build cover-art URLs.
func Normalize(p *Payload, baseURL string) Update {
	u := Update{
		Duration: float64(p.Duration),
		Position: float64(p.Time),
	}

	// Playback state from power and mode
	switch {
	case !bool(p.Power):
		u.State = entity.StateOff
	case p.Mode == ModePlay:
		u.State = entity.StatePlaying
		u.Playing = true
	case p.Mode == ModePause || p.Mode == ModeStop:
		u.State = entity.StateIdle
	default:
		u.State = entity.StateOn
	}

	// Current track by playlist index; an out-of-range index means no
	// current track and the track attributes are skipped
	idx := int(p.PlaylistIndex)
	if idx >= 0 && idx < len(p.PlaylistLoop) {
		track := p.PlaylistLoop[idx]
		u.HasTrack = true
		u.Track = entity.TrackInfo{
			Artist: track.Artist,
			Title:  track.Title,
		}
		if bool(track.CoverArt) {
			u.Track.CoverURL = baseURL + "music/" + string(track.CoverID) + "/cover.jpg"
		}
	}

	// Negative mixer volume is the hub's convention for muted
	if volume := int(p.MixerVolume); volume < 0 {
		u.Muted = true
	} else {
		u.HasVolume = true
		u.Volume = volume
	}

	return u
}
