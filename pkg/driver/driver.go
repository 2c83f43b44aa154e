// Package driver is the top-level facade of the hub driver. It wires
// the RPC client, the session state machine, and optional mDNS hub
// discovery behind a small lifecycle API for the host integration.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/slimproto/slim-go/pkg/config"
	"github.com/slimproto/slim-go/pkg/discovery"
	"github.com/slimproto/slim-go/pkg/entity"
	"github.com/slimproto/slim-go/pkg/log"
	"github.com/slimproto/slim-go/pkg/player"
	"github.com/slimproto/slim-go/pkg/rpc"
	"github.com/slimproto/slim-go/pkg/session"
)

// ErrNotConnected is returned for operations that need a resolved hub
// before Connect has run.
var ErrNotConnected = errors.New("driver: not connected to a hub")

// Options tune a driver beyond its configuration file.
type Options struct {
	// Logger is the operational logger (default: slog.Default()).
	Logger *slog.Logger

	// ProtocolLogger receives protocol capture events (optional).
	ProtocolLogger log.Logger

	// OnStateChange is invoked on connection state transitions. Must
	// not call back into the driver.
	OnStateChange func(session.State)
}

// Driver owns one hub connection and the players it manages.
type Driver struct {
	cfg      config.Config
	opts     Options
	logger   *slog.Logger
	rpc      *rpc.Client
	registry *player.Registry
	session  *session.Session
	sink     entity.Sink
}

// New builds a driver for the given configuration and sink. The
// configuration is validated; the players it names are registered
// immediately so they survive hub restarts and reconnects.
func New(cfg config.Config, sink entity.Sink, opts Options) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	d := &Driver{
		cfg:      cfg,
		opts:     opts,
		logger:   opts.Logger,
		registry: player.NewRegistry(),
		sink:     sink,
	}
	for _, id := range cfg.Players {
		d.registry.Register(id)
	}
	return d, nil
}

// Connect resolves the hub address (via mDNS when no host is
// configured) and starts the session establishment sequence. It
// returns once the sequence is running; track completion through
// Options.OnStateChange.
func (d *Driver) Connect(ctx context.Context) error {
	host := d.cfg.Host
	port := d.cfg.Port
	if host == "" {
		hub, err := d.discoverHub(ctx)
		if err != nil {
			return err
		}
		host = hub.Host
		port = hub.Port
		d.logger.Info("discovered hub", "instance", hub.InstanceName, "addr", hub.Addr())
	}

	d.rpc = rpc.NewClient(rpc.DefaultClientConfig(host, port))

	sessCfg := session.DefaultConfig(host, port)
	sessCfg.ConnectionTimeout = d.cfg.ConnectionTimeout
	sessCfg.MaxConnectionAttempts = d.cfg.MaxConnectionAttempts
	sessCfg.ProgressInterval = d.cfg.ProgressInterval
	sessCfg.SubscribeSeconds = d.cfg.SubscribeSeconds
	sessCfg.Logger = d.logger
	sessCfg.ProtocolLogger = d.opts.ProtocolLogger
	sessCfg.OnStateChange = d.opts.OnStateChange

	d.session = session.New(sessCfg, d.rpc, d.registry, d.sink)
	d.session.Connect(ctx)
	return nil
}

func (d *Driver) discoverHub(ctx context.Context) (*discovery.Hub, error) {
	d.logger.Info("no hub configured, browsing mdns", "service", discovery.ServiceType)
	browser := discovery.NewBrowser(discovery.DefaultBrowserConfig())
	hub, err := browser.FindFirst(ctx)
	if err != nil {
		return nil, fmt.Errorf("hub discovery: %w", err)
	}
	return hub, nil
}

// Disconnect closes the hub connection. Idempotent.
func (d *Driver) Disconnect() {
	if d.session != nil {
		d.session.Disconnect()
	}
}

// State returns the externally visible connection state.
func (d *Driver) State() session.State {
	if d.session == nil {
		return session.StateDisconnected
	}
	return d.session.State()
}

// EnterStandby suspends local playback-position extrapolation.
func (d *Driver) EnterStandby() {
	if d.session != nil {
		d.session.EnterStandby()
	}
}

// LeaveStandby resumes position tracking and re-polls playing players.
func (d *Driver) LeaveStandby() {
	if d.session != nil {
		d.session.LeaveStandby()
	}
}

// Players returns a snapshot of the managed players.
func (d *Driver) Players() []player.Player {
	return d.registry.All()
}

// SendCommand dispatches a playback command to one player. Only the
// media-player entity type is supported; anything else is an error,
// not a silent no-op.
func (d *Driver) SendCommand(ctx context.Context, entityType, playerID string, cmd entity.Command, param any) error {
	if entityType != entity.TypeMediaPlayer {
		return fmt.Errorf("unsupported entity type %q for command %s", entityType, cmd)
	}
	if d.rpc == nil {
		return ErrNotConnected
	}
	command, err := entity.SlimCommand(cmd, param)
	if err != nil {
		return err
	}
	d.logger.Debug("sending command", "player_id", playerID, "command", command)
	return d.rpc.Command(ctx, playerID, command)
}

// Status polls one player's status over RPC and returns the raw result.
// Mainly useful for diagnostics; the session applies pushed status on
// its own.
func (d *Driver) Status(ctx context.Context, playerID string) ([]byte, error) {
	if d.rpc == nil {
		return nil, ErrNotConnected
	}
	return d.rpc.PlayerStatus(ctx, playerID)
}
