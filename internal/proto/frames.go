package proto

import (
	"encoding/json"
	"fmt"
)

const (
	// Version tracks the wire-protocol revision expected by relays.
	Version = 1

	// Frame type identifiers.
	TypeAuth         = "auth"
	TypeAuthSuccess  = "auth_success"
	TypeJoinSession  = "join_session"
	TypeJoinSuccess  = "join_success"
	TypePlayerUpdate = "player_update"
	TypeGameEvent    = "game_event"
	TypeChat         = "chat"
	TypePlayerJoined = "player_joined"
	TypePlayerLeft   = "player_left"
	TypePing         = "ping"
	TypePong         = "pong"
	TypeError        = "error"
)

// Frame is one decoded wire message. Every frame carries a type
// discriminator; payload fields live on the concrete struct.
type Frame interface {
	FrameType() string
}

// PlayerInfo is the identity block a relay shares about a player.
type PlayerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"playerType,omitempty"`
}

// AuthFrame opens the handshake immediately after the socket opens.
type AuthFrame struct {
	Type       string `json:"type"`
	PlayerName string `json:"playerName"`
}

func (AuthFrame) FrameType() string { return TypeAuth }

// AuthSuccessFrame confirms authentication and assigns the player id.
type AuthSuccessFrame struct {
	Type   string     `json:"type"`
	Player PlayerInfo `json:"player"`
}

func (AuthSuccessFrame) FrameType() string { return TypeAuthSuccess }

// JoinSessionFrame requests membership in a session room.
type JoinSessionFrame struct {
	Type       string `json:"type"`
	PlayerName string `json:"playerName"`
	SessionKey string `json:"sessionKey"`
}

func (JoinSessionFrame) FrameType() string { return TypeJoinSession }

// JoinSuccessFrame completes the handshake and carries the current roster.
type JoinSuccessFrame struct {
	Type       string       `json:"type"`
	SessionKey string       `json:"sessionKey"`
	Players    []PlayerInfo `json:"players,omitempty"`
}

func (JoinSuccessFrame) FrameType() string { return TypeJoinSuccess }

// PlayerUpdateFrame replicates one player's pose.
type PlayerUpdateFrame struct {
	Type  string      `json:"type"`
	State PlayerState `json:"state"`
}

func (PlayerUpdateFrame) FrameType() string { return TypePlayerUpdate }

// GameEventFrame wraps one game-event union member. The event payload stays
// raw until the receiver asks for it, so a malformed event never poisons
// frame routing.
type GameEventFrame struct {
	Type  string          `json:"type"`
	Event json.RawMessage `json:"event"`
}

func (GameEventFrame) FrameType() string { return TypeGameEvent }

// DecodeEvent parses the wrapped union member.
func (f GameEventFrame) DecodeEvent() (GameEvent, error) {
	return DecodeGameEvent(f.Event)
}

// NewGameEventFrame wraps a union member for sending.
func NewGameEventFrame(ev GameEvent) (GameEventFrame, error) {
	raw, err := EncodeGameEvent(ev)
	if err != nil {
		return GameEventFrame{}, err
	}
	return GameEventFrame{Type: TypeGameEvent, Event: raw}, nil
}

// ChatFrame carries a chat line in either direction.
type ChatFrame struct {
	Type       string `json:"type"`
	PlayerID   string `json:"id,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
	Message    string `json:"message"`
}

func (ChatFrame) FrameType() string { return TypeChat }

// PlayerJoinedFrame announces a new room member.
type PlayerJoinedFrame struct {
	Type   string     `json:"type"`
	Player PlayerInfo `json:"player"`
}

func (PlayerJoinedFrame) FrameType() string { return TypePlayerJoined }

// PlayerLeftFrame announces a departed room member.
type PlayerLeftFrame struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func (PlayerLeftFrame) FrameType() string { return TypePlayerLeft }

// PingFrame samples round-trip latency.
type PingFrame struct {
	Type   string `json:"type"`
	SentAt int64  `json:"sentAt"`
}

func (PingFrame) FrameType() string { return TypePing }

// PongFrame echoes a ping with the relay clock attached.
type PongFrame struct {
	Type       string `json:"type"`
	SentAt     int64  `json:"sentAt"`
	ServerTime int64  `json:"serverTime"`
}

func (PongFrame) FrameType() string { return TypePong }

// ErrorFrame reports a relay-side failure.
type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (ErrorFrame) FrameType() string { return TypeError }

// EncodeFrame renders a frame with its discriminator stamped.
func EncodeFrame(frame Frame) ([]byte, error) {
	switch f := frame.(type) {
	case AuthFrame:
		f.Type = TypeAuth
		return json.Marshal(f)
	case AuthSuccessFrame:
		f.Type = TypeAuthSuccess
		return json.Marshal(f)
	case JoinSessionFrame:
		f.Type = TypeJoinSession
		return json.Marshal(f)
	case JoinSuccessFrame:
		f.Type = TypeJoinSuccess
		return json.Marshal(f)
	case PlayerUpdateFrame:
		f.Type = TypePlayerUpdate
		return json.Marshal(f)
	case GameEventFrame:
		f.Type = TypeGameEvent
		return json.Marshal(f)
	case ChatFrame:
		f.Type = TypeChat
		return json.Marshal(f)
	case PlayerJoinedFrame:
		f.Type = TypePlayerJoined
		return json.Marshal(f)
	case PlayerLeftFrame:
		f.Type = TypePlayerLeft
		return json.Marshal(f)
	case PingFrame:
		f.Type = TypePing
		return json.Marshal(f)
	case PongFrame:
		f.Type = TypePong
		return json.Marshal(f)
	case ErrorFrame:
		f.Type = TypeError
		return json.Marshal(f)
	default:
		return nil, fmt.Errorf("proto: unknown frame %T", frame)
	}
}

// DecodeFrame parses one text frame into its typed form.
func DecodeFrame(data []byte) (Frame, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("proto: malformed frame: %w", err)
	}

	switch probe.Type {
	case TypeAuth:
		return decodeInto[AuthFrame](data)
	case TypeAuthSuccess:
		return decodeInto[AuthSuccessFrame](data)
	case TypeJoinSession:
		return decodeInto[JoinSessionFrame](data)
	case TypeJoinSuccess:
		return decodeInto[JoinSuccessFrame](data)
	case TypePlayerUpdate:
		return decodeInto[PlayerUpdateFrame](data)
	case TypeGameEvent:
		return decodeInto[GameEventFrame](data)
	case TypeChat:
		return decodeInto[ChatFrame](data)
	case TypePlayerJoined:
		return decodeInto[PlayerJoinedFrame](data)
	case TypePlayerLeft:
		return decodeInto[PlayerLeftFrame](data)
	case TypePing:
		return decodeInto[PingFrame](data)
	case TypePong:
		return decodeInto[PongFrame](data)
	case TypeError:
		return decodeInto[ErrorFrame](data)
	default:
		return nil, fmt.Errorf("proto: unknown frame type %q", probe.Type)
	}
}

func decodeInto[T Frame](data []byte) (Frame, error) {
	var frame T
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, err
	}
	return frame, nil
}
