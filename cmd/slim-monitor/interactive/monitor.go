// Package interactive provides the interactive command-line interface
// for slim-monitor.
package interactive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/slimproto/slim-go/pkg/driver"
	"github.com/slimproto/slim-go/pkg/entity"
)

const commandTimeout = 10 * time.Second

// Monitor handles interactive mode for slim-monitor.
type Monitor struct {
	drv *driver.Driver
	rl  *readline.Instance
}

// New creates a new interactive monitor handler.
func New(drv *driver.Driver) (*Monitor, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "slim> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Monitor{drv: drv, rl: rl}, nil
}

// Stdout returns a writer that properly coordinates with the readline
// input. Use this for log output to avoid interfering with the prompt.
func (m *Monitor) Stdout() io.Writer {
	return m.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (m *Monitor) Stderr() io.Writer {
	return m.rl.Stderr()
}

// Run starts the interactive command loop.
func (m *Monitor) Run(ctx context.Context, cancel context.CancelFunc) {
	defer m.rl.Close()

	m.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := m.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(m.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			m.printHelp()

		case "players", "ls":
			m.cmdPlayers()

		case "state":
			m.cmdState()

		case "status":
			m.cmdStatus(ctx, args)

		case "play":
			m.cmdSimple(ctx, entity.CmdPlay, args)

		case "pause":
			m.cmdSimple(ctx, entity.CmdPause, args)

		case "stop":
			m.cmdSimple(ctx, entity.CmdStop, args)

		case "next", "n":
			m.cmdSimple(ctx, entity.CmdNext, args)

		case "prev", "previous":
			m.cmdSimple(ctx, entity.CmdPrevious, args)

		case "power":
			m.cmdPower(ctx, args)

		case "mute":
			m.cmdSimple(ctx, entity.CmdMute, args)

		case "volume", "vol":
			m.cmdVolume(ctx, args)

		case "connect":
			m.cmdConnect(ctx)

		case "disconnect":
			m.drv.Disconnect()
			fmt.Fprintln(m.rl.Stdout(), "Disconnected")

		case "standby":
			m.drv.EnterStandby()
			fmt.Fprintln(m.rl.Stdout(), "Standby: position extrapolation suspended")

		case "resume":
			m.drv.LeaveStandby()
			fmt.Fprintln(m.rl.Stdout(), "Resumed: re-polling playing players")

		case "quit", "exit", "q":
			fmt.Fprintln(m.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(m.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (m *Monitor) printHelp() {
	fmt.Fprintln(m.rl.Stdout(), `
Hub Monitor Commands:
  Connection:
    connect                 - (Re)connect to the hub
    disconnect              - Close the hub connection
    state                   - Show connection state
    standby / resume        - Suspend / resume position tracking

  Players:
    players                 - List managed players
    status <id>             - Poll a player's raw status

  Playback:
    play <id>               - Start playback
    pause <id>              - Pause playback
    stop <id>               - Stop playback
    next <id>               - Next track
    prev <id>               - Previous track
    power <id> on|off       - Power on/off
    mute <id>               - Mute
    volume <id> up|down|<n> - Volume step or set (0-100)

  General:
    help                    - Show this help
    quit                    - Exit monitor`)
}

func (m *Monitor) cmdPlayers() {
	players := m.drv.Players()
	if len(players) == 0 {
		fmt.Fprintln(m.rl.Stdout(), "No managed players")
		return
	}
	for _, p := range players {
		name := p.Name
		if name == "" {
			name = "(unknown)"
		}
		fmt.Fprintf(m.rl.Stdout(), "  %s  %s\n", p.ID, name)
		fmt.Fprintf(m.rl.Stdout(), "    connected=%t subscribed=%t playing=%t position=%.1fs\n",
			p.Connected, p.Subscribed, p.Playing, p.Position)
	}
}

func (m *Monitor) cmdState() {
	fmt.Fprintf(m.rl.Stdout(), "Connection state: %s\n", m.drv.State())
}

func (m *Monitor) cmdStatus(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(m.rl.Stdout(), "Usage: status <player-id>")
		return
	}
	cctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	raw, err := m.drv.Status(cctx, args[0])
	if err != nil {
		fmt.Fprintf(m.rl.Stdout(), "Error: %v\n", err)
		return
	}
	var pretty map[string]any
	if err := json.Unmarshal(raw, &pretty); err != nil {
		fmt.Fprintf(m.rl.Stdout(), "%s\n", raw)
		return
	}
	out, _ := json.MarshalIndent(pretty, "", "  ")
	fmt.Fprintf(m.rl.Stdout(), "%s\n", out)
}

func (m *Monitor) cmdSimple(ctx context.Context, cmd entity.Command, args []string) {
	if len(args) < 1 {
		fmt.Fprintf(m.rl.Stdout(), "Usage: %s <player-id>\n", cmd)
		return
	}
	m.send(ctx, args[0], cmd, nil)
}

func (m *Monitor) cmdPower(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(m.rl.Stdout(), "Usage: power <player-id> on|off")
		return
	}
	switch strings.ToLower(args[1]) {
	case "on":
		m.send(ctx, args[0], entity.CmdPowerOn, nil)
	case "off":
		m.send(ctx, args[0], entity.CmdPowerOff, nil)
	default:
		fmt.Fprintln(m.rl.Stdout(), "Usage: power <player-id> on|off")
	}
}

func (m *Monitor) cmdVolume(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(m.rl.Stdout(), "Usage: volume <player-id> up|down|<0-100>")
		return
	}
	switch strings.ToLower(args[1]) {
	case "up":
		m.send(ctx, args[0], entity.CmdVolumeUp, nil)
	case "down":
		m.send(ctx, args[0], entity.CmdVolumeDown, nil)
	default:
		v, err := strconv.Atoi(args[1])
		if err != nil || v < 0 || v > 100 {
			fmt.Fprintln(m.rl.Stdout(), "Volume must be up, down, or 0-100")
			return
		}
		m.send(ctx, args[0], entity.CmdVolumeSet, v)
	}
}

func (m *Monitor) cmdConnect(ctx context.Context) {
	if err := m.drv.Connect(ctx); err != nil {
		fmt.Fprintf(m.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintln(m.rl.Stdout(), "Connecting...")
}

func (m *Monitor) send(ctx context.Context, playerID string, cmd entity.Command, param any) {
	cctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	if err := m.drv.SendCommand(cctx, entity.TypeMediaPlayer, playerID, cmd, param); err != nil {
		fmt.Fprintf(m.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintln(m.rl.Stdout(), "OK")
}
