package entity

import (
	"fmt"
)

// Command is a playback command accepted by the driver.
type Command int

const (
	CmdPlay Command = iota
	CmdPause
	CmdStop
	CmdNext
	CmdPrevious
	CmdPowerOn
	CmdPowerOff
	CmdMute
	CmdVolumeUp
	CmdVolumeDown
	CmdVolumeSet
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CmdPlay:
		return "play"
	case CmdPause:
		return "pause"
	case CmdStop:
		return "stop"
	case CmdNext:
		return "next"
	case CmdPrevious:
		return "previous"
	case CmdPowerOn:
		return "power-on"
	case CmdPowerOff:
		return "power-off"
	case CmdMute:
		return "mute"
	case CmdVolumeUp:
		return "volume-up"
	case CmdVolumeDown:
		return "volume-down"
	case CmdVolumeSet:
		return "set-volume"
	default:
		return "unknown"
	}
}

// SlimCommand translates a Command into the hub's slim command string.
// CmdVolumeSet requires the target volume as param.
func SlimCommand(cmd Command, param any) (string, error) {
	switch cmd {
	case CmdPlay:
		return "play", nil
	case CmdPause:
		return "pause 1", nil
	case CmdStop:
		return "stop", nil
	case CmdNext:
		return "playlist jump +1", nil
	case CmdPrevious:
		return "playlist jump -1", nil
	case CmdPowerOn:
		return "power 1", nil
	case CmdPowerOff:
		return "power 0", nil
	case CmdMute:
		return "mixer muting 1", nil
	case CmdVolumeUp:
		return "button volume_up", nil
	case CmdVolumeDown:
		return "button volume_down", nil
	case CmdVolumeSet:
		if param == nil {
			return "", fmt.Errorf("set-volume requires a value")
		}
		return fmt.Sprintf("mixer volume %v", param), nil
	default:
		return "", fmt.Errorf("unsupported command %d", cmd)
	}
}
