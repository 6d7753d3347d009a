package gameplay

import (
	"context"

	"chase-arena/netcode/logging"
)

const (
	// EventShotDeduplicated is emitted when a replayed shot id is dropped.
	EventShotDeduplicated logging.EventType = "gameplay.shot_deduplicated"
	// EventPlayerScored is emitted when the local evader triggers the goal.
	EventPlayerScored logging.EventType = "gameplay.player_scored"
	// EventPlayerRespawned is emitted when a respawn teleport is applied.
	EventPlayerRespawned logging.EventType = "gameplay.player_respawned"
	// EventStaleUpdateDropped is emitted when an out-of-order pose arrives.
	EventStaleUpdateDropped logging.EventType = "gameplay.stale_update_dropped"
)

// ShotPayload identifies a deduplicated projectile.
type ShotPayload struct {
	ShotID string `json:"shotId"`
}

// ScorePayload captures awarded points.
type ScorePayload struct {
	Points int `json:"points"`
}

// RespawnPayload captures the applied spawn position.
type RespawnPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// StaleUpdatePayload captures a rejected sequence regression.
type StaleUpdatePayload struct {
	Held     uint64 `json:"held"`
	Received uint64 `json:"received"`
}

// ShotDeduplicated publishes a debug event for a replayed shot.
func ShotDeduplicated(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ShotPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventShotDeduplicated,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}

// PlayerScored publishes a scoring event.
func PlayerScored(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ScorePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerScored,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}

// PlayerRespawned publishes an applied respawn teleport.
func PlayerRespawned(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload RespawnPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerRespawned,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}

// StaleUpdateDropped publishes a debug event for a rejected pose.
func StaleUpdateDropped(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload StaleUpdatePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventStaleUpdateDropped,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}
