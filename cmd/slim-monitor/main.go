// Command slim-monitor is a reference host for the hub driver.
//
// It connects to a media hub, adopts the configured players, prints
// every normalized state update, and offers an interactive command
// interface for playback control.
//
// Usage:
//
//	slim-monitor [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-host string          Hub hostname or IP (empty: discover via mDNS)
//	-port int             Hub TCP port (default 9000)
//	-players string       Comma-separated player ids to manage
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-protocol-log string  Write protocol capture to this .slog file
//	-interactive          Enable interactive command mode
//
// Examples:
//
//	# Discover a hub via mDNS and watch all pushed updates
//	slim-monitor -players 00:04:20:12:34:56
//
//	# Explicit hub, interactive control, protocol capture
//	slim-monitor -host 10.0.0.5 -port 9000 \
//	    -players 00:04:20:12:34:56 -interactive -protocol-log hub.slog
//
// Interactive Commands:
//
//	players     - List managed players
//	state       - Show connection state
//	status <id> - Poll a player's raw status
//	play/pause/stop/next/prev <id> - Playback control
//	power <id> on|off - Power control
//	mute <id>   - Mute
//	volume <id> up|down|<0-100> - Volume control
//	standby / resume - Toggle position extrapolation
//	quit        - Exit the monitor
package main

import (
	"context"
	"flag"
	stdlog "log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/slimproto/slim-go/cmd/slim-monitor/interactive"
	"github.com/slimproto/slim-go/pkg/config"
	"github.com/slimproto/slim-go/pkg/driver"
	"github.com/slimproto/slim-go/pkg/entity"
	"github.com/slimproto/slim-go/pkg/log"
	"github.com/slimproto/slim-go/pkg/session"
)

type cliConfig struct {
	ConfigFile  string
	Host        string
	Port        int
	Players     string
	LogLevel    string
	ProtocolLog string
	Interactive bool
}

var cli cliConfig

func init() {
	flag.StringVar(&cli.ConfigFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&cli.Host, "host", "", "Hub hostname or IP (empty: discover via mDNS)")
	flag.IntVar(&cli.Port, "port", 0, "Hub TCP port")
	flag.StringVar(&cli.Players, "players", "", "Comma-separated player ids to manage")
	flag.StringVar(&cli.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&cli.ProtocolLog, "protocol-log", "", "Write protocol capture to this .slog file")
	flag.BoolVar(&cli.Interactive, "interactive", false, "Enable interactive command mode")
}

func main() {
	flag.Parse()

	logger := setupLogging(cli.LogLevel)

	cfg := config.DefaultConfig()
	if cli.ConfigFile != "" {
		loaded, err := config.Load(cli.ConfigFile)
		if err != nil {
			stdlog.Fatalf("Failed to load configuration: %v", err)
		}
		cfg = loaded
	}
	if cli.Host != "" {
		cfg.Host = cli.Host
	}
	if cli.Port != 0 {
		cfg.Port = cli.Port
	}
	if cli.Players != "" {
		cfg.Players = splitPlayers(cli.Players)
	}

	var protocolLogger log.Logger
	if cli.ProtocolLog != "" {
		fl, err := log.NewFileLogger(cli.ProtocolLog)
		if err != nil {
			stdlog.Fatalf("Failed to create protocol log: %v", err)
		}
		defer fl.Close()
		protocolLogger = fl
		logger.Info("protocol capture enabled", "path", cli.ProtocolLog)
	}

	sink := &consoleSink{}

	drv, err := driver.New(cfg, sink, driver.Options{
		Logger:         logger,
		ProtocolLogger: protocolLogger,
		OnStateChange: func(state session.State) {
			stdlog.Printf("[STATE] connection %s", state)
		},
	})
	if err != nil {
		stdlog.Fatalf("Failed to create driver: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := drv.Connect(ctx); err != nil {
		stdlog.Fatalf("Failed to connect: %v", err)
	}

	if cli.Interactive {
		im, err := interactive.New(drv)
		if err != nil {
			stdlog.Fatalf("Failed to create interactive monitor: %v", err)
		}
		// Redirect log output through readline to avoid interfering
		// with the command prompt.
		stdlog.SetOutput(im.Stdout())
		go im.Run(ctx, cancel)
	}

	// Wait for shutdown signal or context cancellation
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		stdlog.Printf("Received signal: %v", sig)
	case <-ctx.Done():
		// Context was cancelled (e.g., by interactive quit command)
	}

	stdlog.Println("Shutting down...")
	drv.Disconnect()
	stdlog.Println("Goodbye!")
}

func setupLogging(level string) *slog.Logger {
	stdlog.SetFlags(stdlog.Ltime | stdlog.Lmicroseconds)

	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

func splitPlayers(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// consoleSink prints every normalized update.
type consoleSink struct{}

func (consoleSink) StateChanged(playerID string, state entity.PlayerState) {
	stdlog.Printf("[PLAYER] %s state: %s", playerID, state)
}

func (consoleSink) TrackChanged(playerID string, track entity.TrackInfo) {
	stdlog.Printf("[PLAYER] %s track: %s - %s", playerID, track.Artist, track.Title)
	if track.CoverURL != "" {
		stdlog.Printf("[PLAYER] %s cover: %s", playerID, track.CoverURL)
	}
}

func (consoleSink) MutedChanged(playerID string, muted bool) {
	stdlog.Printf("[PLAYER] %s muted: %t", playerID, muted)
}

func (consoleSink) VolumeChanged(playerID string, volume int) {
	stdlog.Printf("[PLAYER] %s volume: %d", playerID, volume)
}

func (consoleSink) DurationChanged(playerID string, seconds float64) {
	stdlog.Printf("[PLAYER] %s duration: %.0fs", playerID, seconds)
}

func (consoleSink) ProgressChanged(playerID string, position float64) {
	stdlog.Printf("[PLAYER] %s position: %.1fs", playerID, position)
}

func (consoleSink) PlayerDiscovered(p entity.AvailablePlayer) {
	stdlog.Printf("[HUB] player available: %s (%s)", p.Name, p.ID)
}

func (consoleSink) Notify(warning bool, text, actionLabel string, action func()) {
	prefix := "[NOTICE]"
	if warning {
		prefix = "[WARNING]"
	}
	stdlog.Printf("%s %s", prefix, text)
	if actionLabel != "" {
		stdlog.Printf("%s action available: %s (use 'connect' to retry)", prefix, actionLabel)
	}
	_ = action
}

var _ entity.Sink = consoleSink{}
