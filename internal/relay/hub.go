package relay

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"chase-arena/netcode/internal/proto"
	"chase-arena/netcode/logging"
	"chase-arena/netcode/logging/lifecycle"
)

// wire is the writable half of one client connection.
type wire interface {
	WriteFrame(data []byte) error
	Close() error
}

type member struct {
	info       proto.PlayerInfo
	wire       wire
	sessionKey string
	joined     bool
	lastSeen   time.Time
}

// Hub owns every authenticated client and the session rooms they joined. It
// validates nothing about gameplay; frames from joined members are fanned out
// to their room as-is.
type Hub struct {
	cfg       Config
	logger    *log.Logger
	publisher logging.Publisher
	now       func() time.Time

	mu      sync.Mutex
	members map[string]*member
	rooms   map[string]map[string]*member
	started time.Time
}

// NewHub creates an empty hub. A nil publisher disables structured events.
func NewHub(cfg Config, logger *log.Logger, publisher logging.Publisher) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	h := &Hub{
		cfg:       cfg.Normalized(),
		logger:    logger,
		publisher: publisher,
		now:       time.Now,
		members:   make(map[string]*member),
		rooms:     make(map[string]map[string]*member),
	}
	h.started = h.now()
	return h
}

// Register authenticates a client and assigns its player id.
func (h *Hub) Register(playerName string, w wire) proto.PlayerInfo {
	info := proto.PlayerInfo{ID: uuid.NewString(), Name: playerName}

	h.mu.Lock()
	h.members[info.ID] = &member{
		info:     info,
		wire:     w,
		lastSeen: h.now(),
	}
	h.mu.Unlock()

	h.logger.Printf("registered %s as %s", playerName, info.ID)
	return info
}

// Join puts an authenticated member into a session room and returns the
// roster as it stood before the join. The newcomer is announced to the rest
// of the room.
func (h *Hub) Join(playerID, sessionKey string) ([]proto.PlayerInfo, bool) {
	h.mu.Lock()
	m, ok := h.members[playerID]
	if !ok {
		h.mu.Unlock()
		return nil, false
	}
	m.joined = true
	m.sessionKey = sessionKey
	m.lastSeen = h.now()

	room := h.rooms[sessionKey]
	if room == nil {
		room = make(map[string]*member)
		h.rooms[sessionKey] = room
	}
	roster := make([]proto.PlayerInfo, 0, len(room)+1)
	for _, other := range room {
		roster = append(roster, other.info)
	}
	roster = append(roster, m.info)
	room[playerID] = m
	h.mu.Unlock()

	lifecycle.SessionConnected(context.Background(), h.publisher, logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer}, lifecycle.ConnectedPayload{
		PlayerID:   playerID,
		SessionKey: sessionKey,
	})
	h.broadcast(sessionKey, playerID, proto.PlayerJoinedFrame{Player: m.info})
	return roster, true
}

// Leave removes a member entirely and announces the departure to its room.
func (h *Hub) Leave(playerID string) {
	h.mu.Lock()
	m, ok := h.members[playerID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.members, playerID)
	sessionKey := m.sessionKey
	joined := m.joined
	if room, ok := h.rooms[sessionKey]; ok {
		delete(room, playerID)
		if len(room) == 0 {
			delete(h.rooms, sessionKey)
		}
	}
	h.mu.Unlock()

	m.wire.Close()
	if joined {
		lifecycle.SessionDisconnected(context.Background(), h.publisher, logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer}, lifecycle.DisconnectedPayload{Reason: "left"})
		h.broadcast(sessionKey, playerID, proto.PlayerLeftFrame{ID: playerID})
	}
}

// Touch refreshes a member's silence clock.
func (h *Hub) Touch(playerID string) {
	h.mu.Lock()
	if m, ok := h.members[playerID]; ok {
		m.lastSeen = h.now()
	}
	h.mu.Unlock()
}

// NoteRole records the role a member reports in its pose updates so later
// rosters carry it.
func (h *Hub) NoteRole(playerID string, role proto.Role) {
	if role == "" {
		return
	}
	h.mu.Lock()
	if m, ok := h.members[playerID]; ok && m.info.Role == "" {
		m.info.Role = role
	}
	h.mu.Unlock()
}

// Relay fans an already-encoded frame out to the sender's room, sender
// excluded.
func (h *Hub) Relay(playerID string, data []byte) {
	h.mu.Lock()
	m, ok := h.members[playerID]
	if !ok || !m.joined {
		h.mu.Unlock()
		return
	}
	targets := h.roomTargetsLocked(m.sessionKey, playerID)
	h.mu.Unlock()

	h.deliver(targets, data)
}

// broadcast encodes a frame and fans it out to one room, one id excluded.
func (h *Hub) broadcast(sessionKey, exceptID string, frame proto.Frame) {
	data, err := proto.EncodeFrame(frame)
	if err != nil {
		h.logger.Printf("failed to encode %s broadcast: %v", frame.FrameType(), err)
		return
	}

	h.mu.Lock()
	targets := h.roomTargetsLocked(sessionKey, exceptID)
	h.mu.Unlock()

	h.deliver(targets, data)
}

func (h *Hub) roomTargetsLocked(sessionKey, exceptID string) map[string]wire {
	room := h.rooms[sessionKey]
	targets := make(map[string]wire, len(room))
	for id, other := range room {
		if id == exceptID {
			continue
		}
		targets[id] = other.wire
	}
	return targets
}

func (h *Hub) deliver(targets map[string]wire, data []byte) {
	for id, w := range targets {
		if err := w.WriteFrame(data); err != nil {
			h.logger.Printf("failed to send to %s: %v", id, err)
			h.Leave(id)
		}
	}
}

// Run sweeps silent clients until the stop channel closes.
func (h *Hub) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(h.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.sweep()
		}
	}
}

func (h *Hub) sweep() {
	now := h.now()
	h.mu.Lock()
	silent := make([]string, 0)
	for id, m := range h.members {
		if now.Sub(m.lastSeen) > h.cfg.ClientSilence {
			silent = append(silent, id)
		}
	}
	h.mu.Unlock()

	for _, id := range silent {
		h.logger.Printf("dropping %s after silence", id)
		h.Leave(id)
	}
}

// StatusPlayer is one member's row in the status snapshot.
type StatusPlayer struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SessionKey string `json:"sessionKey,omitempty"`
	LastSeen   int64  `json:"lastSeen"`
}

// Status is the diagnostics snapshot served over HTTP.
type Status struct {
	UptimeSeconds int64          `json:"uptimeSeconds"`
	Sessions      map[string]int `json:"sessions"`
	Players       []StatusPlayer `json:"players"`
}

// StatusSnapshot reports uptime, room sizes, and member liveness.
func (h *Hub) StatusSnapshot() Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	status := Status{
		UptimeSeconds: int64(h.now().Sub(h.started).Seconds()),
		Sessions:      make(map[string]int, len(h.rooms)),
		Players:       make([]StatusPlayer, 0, len(h.members)),
	}
	for key, room := range h.rooms {
		status.Sessions[key] = len(room)
	}
	for _, m := range h.members {
		status.Players = append(status.Players, StatusPlayer{
			ID:         m.info.ID,
			Name:       m.info.Name,
			SessionKey: m.sessionKey,
			LastSeen:   m.lastSeen.UnixMilli(),
		})
	}
	return status
}
