package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/slimproto/slim-go/pkg/cometd"
	"github.com/slimproto/slim-go/pkg/entity"
	"github.com/slimproto/slim-go/pkg/log"
	"github.com/slimproto/slim-go/pkg/player"
	"github.com/slimproto/slim-go/pkg/rpc"
	"github.com/slimproto/slim-go/pkg/status"
)

// Phase is the internal establishment phase of the session.
type Phase int

const (
	// PhaseIdle - no connection attempt in progress.
	PhaseIdle Phase = iota
	// PhasePlayerInfo - querying the hub's player list over RPC.
	PhasePlayerInfo
	// PhaseHandshake - socket open, handshake sent, waiting for the ack.
	PhaseHandshake
	// PhaseConnect - handshake acked, connect sent, waiting for the ack.
	PhaseConnect
	// PhaseSubscribe - connect acked, subscribe requests in flight.
	PhaseSubscribe
	// PhaseConnected - every connected player is subscribed.
	PhaseConnected
	// PhaseError - socket failure, waiting for the retry timer.
	PhaseError
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePlayerInfo:
		return "playerInfo"
	case PhaseHandshake:
		return "handshake"
	case PhaseConnect:
		return "connect"
	case PhaseSubscribe:
		return "subscribe"
	case PhaseConnected:
		return "connected"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// State is the externally visible connection state.
type State int

const (
	// StateDisconnected - not connected and not trying.
	StateDisconnected State = iota
	// StateConnecting - establishment sequence in progress.
	StateConnecting
	// StateConnected - session fully established.
	StateConnected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config configures a session.
type Config struct {
	// Host is the hub's hostname or IP.
	Host string

	// Port is the hub's HTTP/streaming port.
	Port int

	// ConnectionTimeout bounds each establishment attempt (default: 3s).
	ConnectionTimeout time.Duration

	// MaxConnectionAttempts is the number of consecutive timeouts before
	// the session gives up and raises a notification (default: 3).
	MaxConnectionAttempts int

	// ProgressInterval is the progress clock tick (default: 500ms).
	ProgressInterval time.Duration

	// SubscribeSeconds is the hub-side periodic status push interval
	// requested in subscriptions (default: 60).
	SubscribeSeconds int

	// Priority of status subscriptions (default: 1).
	Priority int

	// Logger is the operational logger (default: slog.Default()).
	Logger *slog.Logger

	// ProtocolLogger receives capture events (optional).
	ProtocolLogger log.Logger

	// OnStateChange is invoked on every external state transition. It is
	// called with the session lock held and must not call back into the
	// session.
	OnStateChange func(State)
}

// DefaultConfig returns a session configuration with defaults applied.
func DefaultConfig(host string, port int) Config {
	return Config{
		Host:                  host,
		Port:                  port,
		ConnectionTimeout:     3 * time.Second,
		MaxConnectionAttempts: 3,
		ProgressInterval:      500 * time.Millisecond,
		SubscribeSeconds:      60,
		Priority:              1,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig(c.Host, c.Port)
	if c.ConnectionTimeout <= 0 {
		c.ConnectionTimeout = d.ConnectionTimeout
	}
	if c.MaxConnectionAttempts <= 0 {
		c.MaxConnectionAttempts = d.MaxConnectionAttempts
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = d.ProgressInterval
	}
	if c.SubscribeSeconds <= 0 {
		c.SubscribeSeconds = d.SubscribeSeconds
	}
	if c.Priority <= 0 {
		c.Priority = d.Priority
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// transport abstracts the streaming connection for tests.
type transport interface {
	Connect(ctx context.Context, address string) error
	Send(msgs []cometd.Message) error
	Close() error
	ID() string
}

// connHandler ties transport callbacks to the attempt that dialed the
// connection. A socket superseded by a retry delivers its callbacks
// with a stale attempt number and the session drops them.
type connHandler struct {
	s       *Session
	attempt uint64
}

func (h *connHandler) OnConnected() { h.s.onConnected(h.attempt) }

func (h *connHandler) OnMessages(msgs []cometd.Message) { h.s.onMessages(h.attempt, msgs) }

func (h *connHandler) OnError(err error) { h.s.onError(h.attempt, err) }

// Session owns the hub connection lifecycle.
type Session struct {
	cfg      Config
	rpc      *rpc.Client
	registry *player.Registry
	sink     entity.Sink
	logger   *slog.Logger
	progress *progressClock

	// dialTransport builds a fresh streaming connection per attempt,
	// wired to the given handler. Replaced in tests.
	dialTransport func(h cometd.ConnectionHandler) transport

	mu             sync.Mutex
	ctx            context.Context
	conn           transport
	phase          Phase
	state          State
	clientID       string
	subChannel     string
	pending        map[int]string // correlation id -> player id
	nextID         int
	tries          int
	attempt        uint64 // bumped per attempt, fences stale goroutines and callbacks
	userDisconnect bool
	inStandby      bool
	timer          *time.Timer
	timerActive    bool
}

// New creates a session. The registry should already hold the configured
// players; the sink receives all normalized updates.
func New(cfg Config, rpcClient *rpc.Client, registry *player.Registry, sink entity.Sink) *Session {
	cfg.applyDefaults()
	s := &Session{
		cfg:      cfg,
		rpc:      rpcClient,
		registry: registry,
		sink:     sink,
		logger:   cfg.Logger,
		ctx:      context.Background(),
		phase:    PhaseIdle,
		state:    StateDisconnected,
		pending:  make(map[int]string),
	}
	s.progress = newProgressClock(cfg.ProgressInterval, registry, sink.ProgressChanged)
	s.dialTransport = func(h cometd.ConnectionHandler) transport {
		connCfg := cometd.DefaultConnectionConfig()
		connCfg.DialTimeout = cfg.ConnectionTimeout
		connCfg.ProtocolLogger = cfg.ProtocolLogger
		return cometd.NewConnection(connCfg, h)
	}
	return s
}

// State returns the externally visible connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Phase returns the internal establishment phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Connect starts the establishment sequence. The context bounds RPC
// calls for the lifetime of the session; cancelling it does not close
// an established connection, use Disconnect for that.
func (s *Session) Connect(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.connectLocked()
	s.mu.Unlock()
}

// connectLocked resets session state and kicks off one attempt.
func (s *Session) connectLocked() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.userDisconnect = false
	s.clientID = ""
	s.subChannel = ""
	s.pending = make(map[int]string)
	s.attempt++
	s.registry.ResetSession()
	s.setPhaseLocked(PhasePlayerInfo, "connect")
	s.setStateLocked(StateConnecting)
	s.armTimerLocked()
	s.logger.Debug("connecting to hub",
		"host", s.cfg.Host, "port", s.cfg.Port, "attempt", s.tries+1)
	go s.queryPlayers(s.ctx, s.attempt)
}

// Disconnect closes the connection and stops all timers. Safe to call
// at any time; repeated calls are no-ops.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnectLocked()
}

func (s *Session) disconnectLocked() {
	s.userDisconnect = true
	s.stopTimerLocked()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.progress.Stop()
	s.setPhaseLocked(PhaseIdle, "disconnect")
	s.setStateLocked(StateDisconnected)
}

// EnterStandby suspends the progress clock. The connection and hub-side
// subscriptions stay up.
func (s *Session) EnterStandby() {
	s.mu.Lock()
	s.inStandby = true
	s.mu.Unlock()
	s.progress.Stop()
}

// LeaveStandby resumes progress tracking and re-polls the status of
// every player last known playing, so positions catch up immediately.
func (s *Session) LeaveStandby() {
	s.mu.Lock()
	s.inStandby = false
	ctx := s.ctx
	s.mu.Unlock()
	for _, id := range s.registry.Playing() {
		go s.queryStatus(ctx, id)
	}
}

// queryPlayers runs the RPC player discovery that seeds the registry,
// then opens the streaming socket.
func (s *Session) queryPlayers(ctx context.Context, attempt uint64) {
	players, count, err := s.rpc.Players(ctx)
	if err != nil {
		s.rpcError(err)
		return
	}

	s.mu.Lock()
	if s.userDisconnect || s.phase != PhasePlayerInfo || s.attempt != attempt {
		s.mu.Unlock()
		return
	}
	s.logger.Debug("hub reported players", "count", count)
	for _, p := range players {
		s.sink.PlayerDiscovered(entity.AvailablePlayer{
			ID:       p.ID,
			Name:     p.Name,
			Features: entity.PlayerFeatures(p.CanPowerOff),
		})
		if !s.registry.Contains(p.ID) {
			continue
		}
		s.registry.SetConnected(p.ID, true)
		s.registry.SetInfo(p.ID, p.Name, p.CanPowerOff)
		go s.queryStatus(ctx, p.ID)
	}
	conn := s.dialTransport(&connHandler{s: s, attempt: attempt})
	s.conn = conn
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	s.mu.Unlock()

	if err := conn.Connect(ctx, addr); err != nil {
		s.socketError(attempt, err)
	}
}

// queryStatus polls one player's status over RPC and applies the result.
func (s *Session) queryStatus(ctx context.Context, playerID string) {
	result, err := s.rpc.PlayerStatus(ctx, playerID)
	if err != nil {
		s.rpcError(err)
		return
	}
	s.mu.Lock()
	s.applyStatusLocked(playerID, result)
	s.mu.Unlock()
}

// onConnected handles the socket coming up for one attempt, opening
// the handshake.
func (s *Session) onConnected(attempt uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userDisconnect || s.attempt != attempt || s.phase != PhasePlayerInfo {
		return
	}
	s.setPhaseLocked(PhaseHandshake, "socket open")
	s.sendLocked([]cometd.Message{cometd.NewHandshake()})
}

// onMessages handles one inbound batch. Batches arrive in socket order
// from the single read loop.
func (s *Session) onMessages(attempt uint64, msgs []cometd.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userDisconnect || s.attempt != attempt {
		return
	}
	for i := range msgs {
		s.dispatchLocked(&msgs[i])
	}
}

// onError handles a transport callback error. Malformed frames are
// dropped; socket errors schedule a timer-driven reconnect.
func (s *Session) onError(attempt uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userDisconnect || s.attempt != attempt {
		return
	}
	var pe *cometd.ProtocolError
	if errors.As(err, &pe) {
		s.logger.Warn("dropping malformed frame", "error", err)
		return
	}
	s.logger.Error("socket error, scheduling reconnect", "error", err)
	s.setPhaseLocked(PhaseError, err.Error())
	if !s.timerActive {
		s.armTimerLocked()
	}
}

// dispatchLocked routes one message by (phase, channel, success flag).
// Anything that does not match the current phase is ignored.
func (s *Session) dispatchLocked(m *cometd.Message) {
	switch {
	case s.phase == PhaseHandshake && m.Channel == cometd.ChannelHandshake && m.OK():
		s.clientID = m.ClientID
		s.subChannel = cometd.StatusChannel(s.clientID)
		s.logger.Info("handshake complete", "client_id", s.clientID)
		s.setPhaseLocked(PhaseConnect, "handshake ack")
		s.sendLocked([]cometd.Message{cometd.NewConnect(s.clientID)})

	case s.phase == PhaseConnect && m.Channel == cometd.ChannelConnect && m.OK():
		s.setPhaseLocked(PhaseSubscribe, "connect ack")
		s.subscribePlayersLocked()

	case s.phase == PhaseSubscribe && m.Channel == cometd.ChannelSubscribe && m.OK():
		playerID, ok := s.pending[m.ID]
		if !ok {
			s.logger.Debug("subscribe ack with unknown id", "id", m.ID)
			return
		}
		s.capturePlayerMessageLocked(playerID, m)
		s.registry.SetSubscribed(playerID, true)
		s.logger.Debug("player subscribed", "player_id", playerID)
		s.checkConnectedLocked()

	case s.subChannel != "" && m.Channel == s.subChannel:
		playerID, ok := s.pending[m.ID]
		if !ok {
			s.logger.Debug("status push with unknown id", "id", m.ID)
			return
		}
		s.capturePlayerMessageLocked(playerID, m)
		s.applyStatusLocked(playerID, m.Data)

	default:
		s.logger.Debug("ignoring message",
			"phase", s.phase, "channel", m.Channel, "successful", m.OK())
	}
}

// subscribePlayersLocked sends one subscribe request per connected,
// not-yet-subscribed player, correlated by sequential ids.
func (s *Session) subscribePlayersLocked() {
	command := fmt.Sprintf("%s subscribe:%d", rpc.PlayerStatusCommand, s.cfg.SubscribeSeconds)
	for _, p := range s.registry.All() {
		if !p.Connected || p.Subscribed {
			continue
		}
		s.nextID++
		msg, err := cometd.NewSubscribe(s.clientID, s.nextID, s.subChannel, p.ID, command, s.cfg.Priority)
		if err != nil {
			s.logger.Error("building subscribe request", "player_id", p.ID, "error", err)
			continue
		}
		s.pending[s.nextID] = p.ID
		s.sendLocked([]cometd.Message{msg})
	}
	// With no connected players there is nothing to wait for.
	s.checkConnectedLocked()
}

// checkConnectedLocked promotes the session to connected once every
// connected player's subscribe ack is in.
func (s *Session) checkConnectedLocked() {
	if s.phase != PhaseSubscribe || !s.registry.AllSubscribed() {
		return
	}
	s.setPhaseLocked(PhaseConnected, "all players subscribed")
	s.setStateLocked(StateConnected)
	s.stopTimerLocked()
	s.tries = 0
	s.logger.Info("session established", "host", s.cfg.Host)
}

// applyStatusLocked decodes a status payload and pushes the normalized
// updates to the registry and the sink.
func (s *Session) applyStatusLocked(playerID string, data []byte) {
	p, err := status.Decode(data)
	if err != nil {
		s.logger.Warn("bad status payload", "player_id", playerID, "error", err)
		return
	}
	u := status.Normalize(p, s.rpc.BaseURL())

	s.sink.StateChanged(playerID, u.State)
	s.registry.SetPlaying(playerID, u.Playing)
	if u.Playing && !s.inStandby {
		s.progress.Start()
	}
	if u.HasTrack {
		s.sink.TrackChanged(playerID, u.Track)
	}
	s.sink.MutedChanged(playerID, u.Muted)
	if u.HasVolume {
		s.sink.VolumeChanged(playerID, u.Volume)
	}
	s.sink.DurationChanged(playerID, u.Duration)
	s.registry.SetPosition(playerID, u.Position)
	s.sink.ProgressChanged(playerID, u.Position)
}

// sendLocked writes a message batch to the streaming connection.
func (s *Session) sendLocked(msgs []cometd.Message) {
	if s.conn == nil {
		return
	}
	if err := s.conn.Send(msgs); err != nil {
		s.logger.Error("sending messages", "error", err)
	}
}

// rpcError logs a failed RPC call. RPC failures are never retried and
// never tear down the session.
func (s *Session) rpcError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userDisconnect {
		return
	}
	s.logger.Error("rpc call failed, no retry", "error", err)
	s.captureErrorLocked(err, "rpc")
}

// socketError handles a dial failure outside the handler callbacks.
func (s *Session) socketError(attempt uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userDisconnect || s.attempt != attempt {
		return
	}
	s.logger.Error("opening streaming socket", "error", err)
	s.setPhaseLocked(PhaseError, err.Error())
	if !s.timerActive {
		s.armTimerLocked()
	}
}

func (s *Session) armTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerActive = true
	s.timer = time.AfterFunc(s.cfg.ConnectionTimeout, s.onTimeout)
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerActive = false
}

// onTimeout fires when an establishment attempt exceeds the connection
// timeout. Retries immediately until the attempt budget is spent, then
// disconnects and raises exactly one notification.
func (s *Session) onTimeout() {
	s.mu.Lock()
	s.timerActive = false
	if s.userDisconnect || s.phase == PhaseConnected {
		s.mu.Unlock()
		return
	}
	s.tries++
	if s.tries < s.cfg.MaxConnectionAttempts {
		s.logger.Warn("connection attempt timed out, retrying",
			"attempt", s.tries, "max", s.cfg.MaxConnectionAttempts)
		s.connectLocked()
		s.mu.Unlock()
		return
	}
	s.logger.Error("cannot reach hub, giving up",
		"host", s.cfg.Host, "attempts", s.tries)
	s.tries = 0
	s.disconnectLocked()
	s.mu.Unlock()

	s.sink.Notify(true, "Cannot connect to the hub.", "Reconnect", func() {
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()
		s.Connect(ctx)
	})
}

func (s *Session) setPhaseLocked(phase Phase, reason string) {
	if s.phase == phase {
		return
	}
	old := s.phase
	s.phase = phase
	s.logger.Debug("session phase", "from", old, "to", phase, "reason", reason)
	s.captureStateLocked(log.EntitySession, old.String(), phase.String(), reason)
}

func (s *Session) setStateLocked(state State) {
	if s.state == state {
		return
	}
	s.state = state
	if s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(state)
	}
}

// capturePlayerMessageLocked records a decoded message in the protocol
// capture once the correlation id has resolved it to a player.
func (s *Session) capturePlayerMessageLocked(playerID string, m *cometd.Message) {
	if s.cfg.ProtocolLogger == nil {
		return
	}
	connID := ""
	if s.conn != nil {
		connID = s.conn.ID()
	}
	ev := log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerSession,
		Category:     log.CategoryMessage,
		PlayerID:     playerID,
		Message:      &log.MessageEvent{Channel: m.Channel},
	}
	if m.ID != 0 {
		id := m.ID
		ev.Message.ID = &id
	}
	if m.Successful != nil {
		ok := *m.Successful
		ev.Message.Successful = &ok
	}
	s.cfg.ProtocolLogger.Log(ev)
}

// captureErrorLocked records a session-layer error in the protocol
// capture.
func (s *Session) captureErrorLocked(err error, context string) {
	if s.cfg.ProtocolLogger == nil {
		return
	}
	connID := ""
	if s.conn != nil {
		connID = s.conn.ID()
	}
	s.cfg.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerSession,
		Category:     log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerSession,
			Message: err.Error(),
			Context: context,
		},
	})
}

func (s *Session) captureStateLocked(e log.StateEntity, oldState, newState, reason string) {
	if s.cfg.ProtocolLogger == nil {
		return
	}
	connID := ""
	if s.conn != nil {
		connID = s.conn.ID()
	}
	s.cfg.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerSession,
		Category:     log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   e,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}
