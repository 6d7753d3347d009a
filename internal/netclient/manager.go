package netclient

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"chase-arena/netcode/internal/events"
	"chase-arena/netcode/internal/proto"
	"chase-arena/netcode/internal/replication"
	"chase-arena/netcode/logging"
	"chase-arena/netcode/logging/gameplay"
	"chase-arena/netcode/logging/lifecycle"
)

// State is the connection lifecycle position.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateAwaitingJoin
	StateJoined
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateAwaitingJoin:
		return "awaiting_join"
	case StateJoined:
		return "joined"
	default:
		return "unknown"
	}
}

// Manager owns the socket and drives the session state machine. A socket
// being open is not a usable connection: gameplay traffic is accepted only
// after the two-phase auth+join handshake lands in StateJoined.
//
// All inbound frames are processed on one read-loop goroutine, so the
// internal side effects of a frame (storing the player id, sending
// join_session) always complete before its public dispatcher emissions.
type Manager struct {
	cfg        Config
	dialer     Dialer
	dispatcher *events.Dispatcher
	publisher  logging.Publisher
	logger     *log.Logger
	now        func() time.Time

	mu               sync.Mutex
	state            State
	conn             Conn
	gen              uint64
	playerID         string
	playerName       string
	sessionKey       string
	reconnectAttempt int
	reconnectTimer   *time.Timer
	handshake        chan error
	pingStop         chan struct{}
	closed           bool

	seq     replication.SequenceCounter
	gate    *replication.SendGate
	shots   *replication.ShotFilter
	remotes *replication.RemoteRegistry
}

// New constructs a manager. A nil publisher disables structured events and a
// nil logger falls back to the process default.
func New(cfg Config, dialer Dialer, dispatcher *events.Dispatcher, publisher logging.Publisher, logger *log.Logger) *Manager {
	cfg = cfg.Normalized()
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	if logger == nil {
		logger = log.Default()
	}
	m := &Manager{
		cfg:        cfg,
		dialer:     dialer,
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
	m.gate = replication.NewSendGate(cfg.SendInterval, func() time.Time { return m.now() })
	m.shots = replication.NewShotFilter(cfg.DedupWindow, func() time.Time { return m.now() })
	m.remotes = replication.NewRemoteRegistry(func() time.Time { return m.now() })
	return m
}

// State reports the current lifecycle position.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// PlayerID reports the relay-assigned id, empty until authenticated.
func (m *Manager) PlayerID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playerID
}

// SessionKey reports the joined room, empty until joined.
func (m *Manager) SessionKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionKey
}

// RemoteStates snapshots the freshest accepted pose per remote player.
func (m *Manager) RemoteStates() []proto.PlayerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	states := make([]proto.PlayerState, 0, m.remotes.Len())
	for _, id := range m.remotes.IDs() {
		if remote, ok := m.remotes.Get(id); ok {
			states = append(states, remote.State)
		}
	}
	return states
}

// Connect opens the channel and blocks until the join handshake completes,
// the handshake window elapses, or the context is cancelled. Exactly one
// Connected dispatcher event fires per successful call.
func (m *Manager) Connect(ctx context.Context, playerName, sessionKey string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.state != StateDisconnected {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}
	m.state = StateConnecting
	m.playerName = playerName
	m.sessionKey = sessionKey
	m.reconnectAttempt = 0
	handshake := make(chan error, 1)
	m.handshake = handshake
	m.mu.Unlock()

	if err := m.dial(ctx); err != nil {
		m.mu.Lock()
		m.state = StateDisconnected
		m.handshake = nil
		m.mu.Unlock()
		return err
	}

	select {
	case err := <-handshake:
		return err
	case <-ctx.Done():
		m.handleDisconnect(m.currentGen(), "connect cancelled", ctx.Err(), false)
		return ctx.Err()
	}
}

// Close shuts the session down and cancels any pending reconnect. The
// manager cannot be reused afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	timer := m.reconnectTimer
	m.reconnectTimer = nil
	gen := m.gen
	m.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	m.handleDisconnect(gen, "closed by client", ErrClosed, false)
	return nil
}

func (m *Manager) currentGen() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// dial opens the socket, sends auth, and arms the read loop plus the
// handshake watchdog for this connection generation.
func (m *Manager) dial(ctx context.Context) error {
	conn, err := m.dialer.Dial(ctx, m.cfg.ServerURL)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	m.conn = conn
	m.gen++
	gen := m.gen
	m.state = StateAuthenticating
	playerName := m.playerName
	m.mu.Unlock()

	data, err := proto.EncodeFrame(proto.AuthFrame{PlayerName: playerName})
	if err != nil {
		m.handleDisconnect(gen, "auth encode failed", err, false)
		return err
	}
	if err := conn.WriteFrame(data); err != nil {
		m.handleDisconnect(gen, "auth send failed", err, true)
		return err
	}

	go m.readLoop(conn, gen)

	if m.cfg.HandshakeTimeout > 0 {
		time.AfterFunc(m.cfg.HandshakeTimeout, func() {
			m.mu.Lock()
			stalled := m.gen == gen && m.state != StateJoined && m.state != StateDisconnected
			m.mu.Unlock()
			if stalled {
				m.handleDisconnect(gen, "handshake timed out", ErrHandshakeTimeout, true)
			}
		})
	}
	return nil
}

func (m *Manager) readLoop(conn Conn, gen uint64) {
	for {
		data, err := conn.ReadFrame()
		if err != nil {
			m.handleDisconnect(gen, "connection lost", err, true)
			return
		}
		m.handleFrame(gen, data)
	}
}

// handleFrame routes one inbound frame. Malformed and unexpected frames are
// dropped with a warning, never fatal.
func (m *Manager) handleFrame(gen uint64, data []byte) {
	frame, err := proto.DecodeFrame(data)
	if err != nil {
		m.logger.Printf("discarding malformed frame: %v", err)
		return
	}

	switch f := frame.(type) {
	case proto.AuthSuccessFrame:
		m.handleAuthSuccess(gen, f)
	case proto.JoinSuccessFrame:
		m.handleJoinSuccess(gen, f)
	case proto.PlayerUpdateFrame:
		m.handlePlayerUpdate(f)
	case proto.GameEventFrame:
		m.handleGameEvent(f)
	case proto.ChatFrame:
		m.dispatcher.Emit(events.Chat{PlayerID: f.PlayerID, PlayerName: f.PlayerName, Message: f.Message})
	case proto.PlayerJoinedFrame:
		m.dispatcher.Emit(events.PlayerJoined{Player: f.Player})
	case proto.PlayerLeftFrame:
		m.mu.Lock()
		m.remotes.Remove(f.ID)
		m.mu.Unlock()
		m.dispatcher.Emit(events.PlayerLeft{PlayerID: f.ID})
	case proto.PongFrame:
		rtt := time.Duration(m.now().UnixMilli()-f.SentAt) * time.Millisecond
		if rtt < 0 {
			rtt = 0
		}
		m.dispatcher.Emit(events.LatencyUpdate{RTT: rtt})
	case proto.ErrorFrame:
		m.logger.Printf("relay error: %s", f.Message)
		m.dispatcher.Emit(events.Error{Message: f.Message})
	default:
		m.logger.Printf("unexpected frame type %q", frame.FrameType())
	}
}

func (m *Manager) handleAuthSuccess(gen uint64, frame proto.AuthSuccessFrame) {
	m.mu.Lock()
	if m.gen != gen || m.state != StateAuthenticating {
		m.mu.Unlock()
		m.logger.Printf("ignoring auth_success in state %s", m.State())
		return
	}
	m.playerID = frame.Player.ID
	m.state = StateAwaitingJoin
	conn := m.conn
	playerName := m.playerName
	sessionKey := m.sessionKey
	m.mu.Unlock()

	data, err := proto.EncodeFrame(proto.JoinSessionFrame{PlayerName: playerName, SessionKey: sessionKey})
	if err != nil {
		m.handleDisconnect(gen, "join encode failed", err, false)
		return
	}
	if err := conn.WriteFrame(data); err != nil {
		m.handleDisconnect(gen, "join send failed", err, true)
	}
}

func (m *Manager) handleJoinSuccess(gen uint64, frame proto.JoinSuccessFrame) {
	m.mu.Lock()
	if m.gen != gen || m.state != StateAwaitingJoin {
		m.mu.Unlock()
		m.logger.Printf("ignoring join_success in state %s", m.State())
		return
	}
	m.state = StateJoined
	m.reconnectAttempt = 0
	if frame.SessionKey != "" {
		m.sessionKey = frame.SessionKey
	}
	playerID := m.playerID
	sessionKey := m.sessionKey
	handshake := m.handshake
	m.handshake = nil
	pingStop := make(chan struct{})
	m.pingStop = pingStop
	m.mu.Unlock()

	if m.cfg.PingInterval > 0 {
		go m.pingLoop(pingStop)
	}

	lifecycle.SessionConnected(context.Background(), m.publisher, m.actorRef(playerID), lifecycle.ConnectedPayload{
		PlayerID:   playerID,
		SessionKey: sessionKey,
	})

	if handshake != nil {
		handshake <- nil
	}

	// Internal handshake state is settled; only now does the public
	// connected event fire.
	m.dispatcher.Emit(events.Connected{PlayerID: playerID, SessionKey: sessionKey})
	for _, player := range frame.Players {
		if player.ID == playerID {
			continue
		}
		m.dispatcher.Emit(events.PlayerJoined{Player: player})
	}
}

func (m *Manager) handlePlayerUpdate(frame proto.PlayerUpdateFrame) {
	m.mu.Lock()
	if frame.State.ID == m.playerID {
		// The relay echoed our own pose back; nothing to track.
		m.mu.Unlock()
		return
	}
	held, accepted := m.remotes.Apply(frame.State)
	m.mu.Unlock()
	if !accepted {
		gameplay.StaleUpdateDropped(context.Background(), m.publisher, m.actorRef(frame.State.ID), gameplay.StaleUpdatePayload{
			Held:     held,
			Received: frame.State.Sequence,
		})
		return
	}
	m.dispatcher.Emit(events.PlayerUpdate{State: frame.State})
}

func (m *Manager) handleGameEvent(frame proto.GameEventFrame) {
	event, err := frame.DecodeEvent()
	if err != nil {
		m.logger.Printf("discarding malformed game event: %v", err)
		return
	}

	if shoot, ok := event.(proto.ShootEvent); ok {
		m.mu.Lock()
		first := m.shots.Observe(shoot.ShotID)
		m.mu.Unlock()
		if !first {
			gameplay.ShotDeduplicated(context.Background(), m.publisher, m.shotRef(shoot.ShotID), gameplay.ShotPayload{ShotID: shoot.ShotID})
			return
		}
	}

	m.dispatcher.Emit(events.GameEvent{Event: event})
}

// handleDisconnect tears down one connection generation exactly once and,
// when asked, schedules the next reconnect attempt.
func (m *Manager) handleDisconnect(gen uint64, reason string, cause error, reconnect bool) {
	m.mu.Lock()
	if m.gen != gen || m.state == StateDisconnected {
		m.mu.Unlock()
		return
	}
	conn := m.conn
	m.conn = nil
	m.state = StateDisconnected
	handshake := m.handshake
	m.handshake = nil
	pingStop := m.pingStop
	m.pingStop = nil
	playerID := m.playerID
	closed := m.closed
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if pingStop != nil {
		close(pingStop)
	}
	if handshake != nil {
		if cause == nil {
			cause = fmt.Errorf("netclient: %s", reason)
		}
		handshake <- cause
	}

	m.logger.Printf("disconnected: %s", reason)
	lifecycle.SessionDisconnected(context.Background(), m.publisher, m.actorRef(playerID), lifecycle.DisconnectedPayload{Reason: reason})
	m.dispatcher.Emit(events.Disconnected{Reason: reason})

	if reconnect && !closed {
		m.scheduleReconnect()
	}
}

// scheduleReconnect queues the next attempt after the fixed delay, or
// surfaces the terminal error once the cap is reached.
func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	if m.closed || m.playerName == "" {
		m.mu.Unlock()
		return
	}
	m.reconnectAttempt++
	attempt := m.reconnectAttempt
	playerID := m.playerID
	if attempt > m.cfg.MaxReconnectAttempts {
		m.mu.Unlock()
		lifecycle.ReconnectExhausted(context.Background(), m.publisher, m.actorRef(playerID), lifecycle.ReconnectPayload{
			Attempt:     attempt - 1,
			MaxAttempts: m.cfg.MaxReconnectAttempts,
		})
		m.dispatcher.Emit(events.Error{Message: reconnectFailedMessage, Terminal: true})
		return
	}
	m.reconnectTimer = time.AfterFunc(m.cfg.ReconnectDelay, m.attemptReconnect)
	m.mu.Unlock()

	lifecycle.ReconnectScheduled(context.Background(), m.publisher, m.actorRef(playerID), lifecycle.ReconnectPayload{
		Attempt:     attempt,
		MaxAttempts: m.cfg.MaxReconnectAttempts,
		DelayMillis: m.cfg.ReconnectDelay.Milliseconds(),
	})
}

func (m *Manager) attemptReconnect() {
	m.mu.Lock()
	if m.closed || m.state != StateDisconnected {
		m.mu.Unlock()
		return
	}
	m.state = StateConnecting
	m.reconnectTimer = nil
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.HandshakeTimeout)
	defer cancel()
	if err := m.dial(ctx); err != nil {
		m.logger.Printf("reconnect attempt failed: %v", err)
		m.mu.Lock()
		if m.state == StateConnecting {
			m.state = StateDisconnected
		}
		m.mu.Unlock()
		m.scheduleReconnect()
	}
}

// pingLoop samples latency and sweeps silent remotes while joined.
func (m *Manager) pingLoop(stop chan struct{}) {
	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := m.Ping(); err != nil {
				return
			}
			m.sweepRemotes()
		}
	}
}

func (m *Manager) sweepRemotes() {
	m.mu.Lock()
	dropped := m.remotes.SweepStale(m.cfg.RemoteSilence)
	m.mu.Unlock()
	for _, id := range dropped {
		m.logger.Printf("dropping silent remote %s", id)
		m.dispatcher.Emit(events.PlayerLeft{PlayerID: id})
	}
}

func (m *Manager) actorRef(playerID string) logging.EntityRef {
	if playerID == "" {
		return logging.EntityRef{Kind: logging.EntityKindSession}
	}
	return logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer}
}

func (m *Manager) shotRef(shotID string) logging.EntityRef {
	return logging.EntityRef{ID: shotID, Kind: logging.EntityKindShot}
}
