package events

import (
	"time"

	"chase-arena/netcode/internal/proto"
)

// Kind names one dispatcher channel.
type Kind string

const (
	KindConnected     Kind = "connected"
	KindDisconnected  Kind = "disconnected"
	KindPlayerUpdate  Kind = "player_update"
	KindGameEvent     Kind = "game_event"
	KindChat          Kind = "chat"
	KindError         Kind = "error"
	KindPlayerJoined  Kind = "player_joined"
	KindPlayerLeft    Kind = "player_left"
	KindLatencyUpdate Kind = "latency_update"
)

// Payload is one member of the closed dispatcher payload union.
type Payload interface {
	EventKind() Kind
}

// Connected fires once per completed auth+join handshake.
type Connected struct {
	PlayerID   string
	SessionKey string
}

func (Connected) EventKind() Kind { return KindConnected }

// Disconnected fires when the socket drops or is closed locally.
type Disconnected struct {
	Reason string
}

func (Disconnected) EventKind() Kind { return KindDisconnected }

// PlayerUpdate carries one remote pose that survived sequence filtering.
type PlayerUpdate struct {
	State proto.PlayerState
}

func (PlayerUpdate) EventKind() Kind { return KindPlayerUpdate }

// GameEvent carries one decoded game-event union member.
type GameEvent struct {
	Event proto.GameEvent
}

func (GameEvent) EventKind() Kind { return KindGameEvent }

// Chat carries one chat line.
type Chat struct {
	PlayerID   string
	PlayerName string
	Message    string
}

func (Chat) EventKind() Kind { return KindChat }

// Error surfaces a transport or protocol failure. Terminal errors require a
// user-initiated reconnect.
type Error struct {
	Message  string
	Terminal bool
}

func (Error) EventKind() Kind { return KindError }

// PlayerJoined announces a new room member to UI widgets.
type PlayerJoined struct {
	Player proto.PlayerInfo
}

func (PlayerJoined) EventKind() Kind { return KindPlayerJoined }

// PlayerLeft announces a departed room member to UI widgets.
type PlayerLeft struct {
	PlayerID string
}

func (PlayerLeft) EventKind() Kind { return KindPlayerLeft }

// LatencyUpdate carries a fresh round-trip sample for observability widgets.
type LatencyUpdate struct {
	RTT time.Duration
}

func (LatencyUpdate) EventKind() Kind { return KindLatencyUpdate }
