package netclient

import (
	"github.com/google/uuid"

	"chase-arena/netcode/internal/proto"
)

// SendPlayerUpdate replicates the local pose, subject to the cadence floor.
// Sends below the floor are dropped silently; the next allowed send carries
// the freshest pose anyway. Not joined is a fail-soft rejection.
func (m *Manager) SendPlayerUpdate(state proto.PlayerState) error {
	m.mu.Lock()
	if m.state != StateJoined {
		m.mu.Unlock()
		m.logger.Printf("dropping player update: %v", ErrNotJoined)
		return ErrNotJoined
	}
	if !m.gate.Allow() {
		m.mu.Unlock()
		return nil
	}
	conn := m.conn
	gen := m.gen
	state.ID = m.playerID
	state.Sequence = m.seq.Next()
	if state.Role == "" {
		state.Role = m.cfg.Role
	}
	state.Timestamp = m.now().UnixMilli()
	m.mu.Unlock()

	return m.writeFrame(conn, gen, proto.PlayerUpdateFrame{State: state})
}

// SendShot broadcasts a projectile with a fresh globally unique shot id and
// returns it. The local shot filter records the id so a relay echo is not
// re-applied.
func (m *Manager) SendShot(origin, direction proto.Vec3) (string, error) {
	m.mu.Lock()
	if m.state != StateJoined {
		m.mu.Unlock()
		m.logger.Printf("dropping shot: %v", ErrNotJoined)
		return "", ErrNotJoined
	}
	conn := m.conn
	gen := m.gen
	shotID := uuid.NewString()
	m.shots.Observe(shotID)
	event := proto.ShootEvent{
		ShotID:    shotID,
		Origin:    origin,
		Direction: direction.Normalized(),
		PlayerID:  m.playerID,
		Role:      m.cfg.Role,
		Timestamp: m.now().UnixMilli(),
	}
	m.mu.Unlock()

	frame, err := proto.NewGameEventFrame(event)
	if err != nil {
		return "", err
	}
	if err := m.writeFrame(conn, gen, frame); err != nil {
		return "", err
	}
	return shotID, nil
}

// SendRespawnRequest asks the named player to respawn. A nil spawn lets the
// addressee resolve one from its local spawn allocator.
func (m *Manager) SendRespawnRequest(targetID string, spawn *proto.Vec3) error {
	m.mu.Lock()
	if m.state != StateJoined {
		m.mu.Unlock()
		m.logger.Printf("dropping respawn request: %v", ErrNotJoined)
		return ErrNotJoined
	}
	conn := m.conn
	gen := m.gen
	event := proto.RespawnEvent{
		PlayerID:      targetID,
		RequestedBy:   m.playerID,
		SpawnPosition: spawn,
		Timestamp:     m.now().UnixMilli(),
	}
	m.mu.Unlock()

	frame, err := proto.NewGameEventFrame(event)
	if err != nil {
		return err
	}
	return m.writeFrame(conn, gen, frame)
}

// SendGameEvent broadcasts one game-event union member as-is.
func (m *Manager) SendGameEvent(event proto.GameEvent) error {
	m.mu.Lock()
	if m.state != StateJoined {
		m.mu.Unlock()
		m.logger.Printf("dropping game event: %v", ErrNotJoined)
		return ErrNotJoined
	}
	conn := m.conn
	gen := m.gen
	m.mu.Unlock()

	frame, err := proto.NewGameEventFrame(event)
	if err != nil {
		return err
	}
	return m.writeFrame(conn, gen, frame)
}

// SendChat broadcasts a chat line to the session.
func (m *Manager) SendChat(message string) error {
	m.mu.Lock()
	if m.state != StateJoined {
		m.mu.Unlock()
		m.logger.Printf("dropping chat: %v", ErrNotJoined)
		return ErrNotJoined
	}
	conn := m.conn
	gen := m.gen
	frame := proto.ChatFrame{PlayerID: m.playerID, PlayerName: m.playerName, Message: message}
	m.mu.Unlock()

	return m.writeFrame(conn, gen, frame)
}

// Ping sends one latency probe; the matching pong becomes a latency_update
// dispatcher event.
func (m *Manager) Ping() error {
	m.mu.Lock()
	if m.state != StateJoined {
		m.mu.Unlock()
		return ErrNotJoined
	}
	conn := m.conn
	gen := m.gen
	frame := proto.PingFrame{SentAt: m.now().UnixMilli()}
	m.mu.Unlock()

	return m.writeFrame(conn, gen, frame)
}

func (m *Manager) writeFrame(conn Conn, gen uint64, frame proto.Frame) error {
	data, err := proto.EncodeFrame(frame)
	if err != nil {
		m.logger.Printf("failed to encode %s frame: %v", frame.FrameType(), err)
		return err
	}
	if err := conn.WriteFrame(data); err != nil {
		m.handleDisconnect(gen, "write failed", err, true)
		return err
	}
	return nil
}
