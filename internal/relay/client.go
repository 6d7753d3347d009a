package relay

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chase-arena/netcode/internal/proto"
)

// wsWire serializes frame writes onto one websocket connection.
type wsWire struct {
	conn    *websocket.Conn
	timeout time.Duration
	mu      sync.Mutex
}

func (w *wsWire) WriteFrame(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn.SetWriteDeadline(time.Now().Add(w.timeout))
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *wsWire) Close() error {
	return w.conn.Close()
}

// client walks one connection through the relay-side handshake and then
// forwards its gameplay frames. Frames arriving out of phase draw an error
// frame but never kill the connection.
type client struct {
	hub    *Hub
	wire   wire
	logger *log.Logger
	now    func() time.Time

	playerID string
	joined   bool
}

func newClient(hub *Hub, w wire) *client {
	return &client{
		hub:    hub,
		wire:   w,
		logger: hub.logger,
		now:    hub.now,
	}
}

// serve drives the read loop until the connection drops.
func (c *client) serve(conn *websocket.Conn) {
	defer func() {
		if c.playerID != "" {
			c.hub.Leave(c.playerID)
		} else {
			c.wire.Close()
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleFrame(payload)
	}
}

func (c *client) handleFrame(data []byte) {
	frame, err := proto.DecodeFrame(data)
	if err != nil {
		c.logger.Printf("discarding malformed frame: %v", err)
		return
	}
	if c.playerID != "" {
		c.hub.Touch(c.playerID)
	}

	switch f := frame.(type) {
	case proto.AuthFrame:
		c.handleAuth(f)
	case proto.JoinSessionFrame:
		c.handleJoin(f)
	case proto.PlayerUpdateFrame:
		c.handlePlayerUpdate(f, data)
	case proto.GameEventFrame, proto.ChatFrame:
		if !c.requireJoined(frame.FrameType()) {
			return
		}
		c.hub.Relay(c.playerID, data)
	case proto.PingFrame:
		c.sendFrame(proto.PongFrame{SentAt: f.SentAt, ServerTime: c.now().UnixMilli()})
	default:
		c.logger.Printf("unexpected frame type %q", frame.FrameType())
	}
}

func (c *client) handleAuth(frame proto.AuthFrame) {
	if c.playerID != "" {
		c.sendError("already authenticated")
		return
	}
	if frame.PlayerName == "" {
		c.sendError("missing player name")
		return
	}
	info := c.hub.Register(frame.PlayerName, c.wire)
	c.playerID = info.ID
	c.sendFrame(proto.AuthSuccessFrame{Player: info})
}

func (c *client) handleJoin(frame proto.JoinSessionFrame) {
	if c.playerID == "" {
		c.sendError("authenticate first")
		return
	}
	if c.joined {
		c.sendError("already joined")
		return
	}
	if frame.SessionKey == "" {
		c.sendError("missing session key")
		return
	}
	roster, ok := c.hub.Join(c.playerID, frame.SessionKey)
	if !ok {
		c.sendError("unknown player")
		return
	}
	c.joined = true
	c.sendFrame(proto.JoinSuccessFrame{SessionKey: frame.SessionKey, Players: roster})
}

func (c *client) handlePlayerUpdate(frame proto.PlayerUpdateFrame, data []byte) {
	if !c.requireJoined(frame.FrameType()) {
		return
	}
	if frame.State.ID != c.playerID {
		c.logger.Printf("dropping update from %s claiming to be %s", c.playerID, frame.State.ID)
		return
	}
	c.hub.NoteRole(c.playerID, frame.State.Role)
	c.hub.Relay(c.playerID, data)
}

func (c *client) requireJoined(frameType string) bool {
	if c.joined {
		return true
	}
	c.logger.Printf("dropping %s frame before join", frameType)
	c.sendError("join a session first")
	return false
}

func (c *client) sendFrame(frame proto.Frame) {
	data, err := proto.EncodeFrame(frame)
	if err != nil {
		c.logger.Printf("failed to encode %s frame: %v", frame.FrameType(), err)
		return
	}
	if err := c.wire.WriteFrame(data); err != nil {
		c.logger.Printf("failed to write %s frame: %v", frame.FrameType(), err)
	}
}

func (c *client) sendError(message string) {
	c.sendFrame(proto.ErrorFrame{Message: message})
}
