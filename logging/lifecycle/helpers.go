package lifecycle

import (
	"context"

	"chase-arena/netcode/logging"
)

const (
	// EventSessionConnected is emitted when the join handshake completes.
	EventSessionConnected logging.EventType = "lifecycle.session_connected"
	// EventSessionDisconnected is emitted when the socket drops or is closed.
	EventSessionDisconnected logging.EventType = "lifecycle.session_disconnected"
	// EventReconnectScheduled is emitted when a reconnect attempt is queued.
	EventReconnectScheduled logging.EventType = "lifecycle.reconnect_scheduled"
	// EventReconnectExhausted is emitted when the attempt cap is reached.
	EventReconnectExhausted logging.EventType = "lifecycle.reconnect_exhausted"
)

// ConnectedPayload captures the identity assigned by the relay.
type ConnectedPayload struct {
	PlayerID   string `json:"playerId"`
	SessionKey string `json:"sessionKey"`
}

// DisconnectedPayload captures why the session ended.
type DisconnectedPayload struct {
	Reason string `json:"reason"`
}

// ReconnectPayload captures retry scheduling details.
type ReconnectPayload struct {
	Attempt     int   `json:"attempt"`
	MaxAttempts int   `json:"maxAttempts"`
	DelayMillis int64 `json:"delayMillis,omitempty"`
}

// SessionConnected publishes a successful handshake event.
func SessionConnected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ConnectedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:       EventSessionConnected,
		Actor:      actor,
		Severity:   logging.SeverityInfo,
		Category:   logging.CategoryNetwork,
		SessionKey: payload.SessionKey,
		Payload:    payload,
	})
}

// SessionDisconnected publishes a socket-loss event.
func SessionDisconnected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload DisconnectedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSessionDisconnected,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

// ReconnectScheduled publishes a queued retry event.
func ReconnectScheduled(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ReconnectPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventReconnectScheduled,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

// ReconnectExhausted publishes the terminal retry failure.
func ReconnectExhausted(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ReconnectPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventReconnectExhausted,
		Actor:    actor,
		Severity: logging.SeverityError,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}
