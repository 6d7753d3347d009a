package proto

import (
	"encoding/json"
	"fmt"
)

// EventKind discriminates the game-event union on the wire.
type EventKind string

const (
	EventPlayerShoot   EventKind = "player_shoot"
	EventPlayerRespawn EventKind = "player_respawn"
	EventPlayerScored  EventKind = "player_scored"
	EventPlayerHit     EventKind = "player_hit"
)

// GameEvent is one member of the closed game-event union. Events are
// immutable once constructed; receivers dedup shots by ShotID.
type GameEvent interface {
	Kind() EventKind
}

// ShootEvent announces a fired projectile.
type ShootEvent struct {
	EventType EventKind `json:"event_type"`
	ShotID    string    `json:"shotId"`
	Origin    Vec3      `json:"origin"`
	Direction Vec3      `json:"direction"`
	PlayerID  string    `json:"player_id"`
	Role      Role      `json:"playerType"`
	Timestamp int64     `json:"timestamp"`
}

func (ShootEvent) Kind() EventKind { return EventPlayerShoot }

// RespawnEvent asks the addressed player to teleport to a spawn point.
// SpawnPosition may be nil, in which case the addressee resolves one locally.
type RespawnEvent struct {
	EventType     EventKind `json:"event_type"`
	PlayerID      string    `json:"player_id"`
	RequestedBy   string    `json:"requestedBy"`
	SpawnPosition *Vec3     `json:"spawnPosition,omitempty"`
	Timestamp     int64     `json:"timestamp"`
}

func (RespawnEvent) Kind() EventKind { return EventPlayerRespawn }

// ScoredEvent reports points awarded to a player.
type ScoredEvent struct {
	EventType EventKind `json:"event_type"`
	PlayerID  string    `json:"player_id"`
	Points    int       `json:"points"`
	TargetID  string    `json:"target_id,omitempty"`
}

func (ScoredEvent) Kind() EventKind { return EventPlayerScored }

// HitEvent reports damage applied to a player.
type HitEvent struct {
	EventType EventKind `json:"event_type"`
	PlayerID  string    `json:"player_id"`
	HitBy     string    `json:"hit_by"`
	Damage    float64   `json:"damage"`
}

func (HitEvent) Kind() EventKind { return EventPlayerHit }

// EncodeGameEvent renders a union member with its discriminator stamped.
func EncodeGameEvent(ev GameEvent) (json.RawMessage, error) {
	switch e := ev.(type) {
	case ShootEvent:
		e.EventType = EventPlayerShoot
		return json.Marshal(e)
	case RespawnEvent:
		e.EventType = EventPlayerRespawn
		return json.Marshal(e)
	case ScoredEvent:
		e.EventType = EventPlayerScored
		return json.Marshal(e)
	case HitEvent:
		e.EventType = EventPlayerHit
		return json.Marshal(e)
	default:
		return nil, fmt.Errorf("proto: unknown game event %T", ev)
	}
}

// DecodeGameEvent parses one union member from its wire form.
func DecodeGameEvent(data []byte) (GameEvent, error) {
	var probe struct {
		EventType EventKind `json:"event_type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("proto: malformed game event: %w", err)
	}

	switch probe.EventType {
	case EventPlayerShoot:
		var ev ShootEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventPlayerRespawn:
		var ev RespawnEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventPlayerScored:
		var ev ScoredEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventPlayerHit:
		var ev HitEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("proto: unknown event_type %q", probe.EventType)
	}
}
