package arena

import (
	"time"

	"chase-arena/netcode/internal/proto"
)

// Config captures the movement and respawn tuning for one entity.
type Config struct {
	BaseSpeed        float64
	SprintMultiplier float64
	TurnRate         float64 // radians per second toward the target facing
	Gravity          float64
	JumpImpulse      float64
	HopImpulse       float64
	HopInterval      time.Duration
	SprintHopDivisor float64 // shortens the hop cadence while sprinting
	MinWorldY        float64
	FloorRecovery    float64 // corrective upward velocity applied below MinWorldY

	RespawnDuration time.Duration
	InvulnerableFor time.Duration
	GoalPoint       proto.Vec3
	GoalRadius      float64
	GoalPoints      int
}

// DefaultConfig returns the arena's stock tuning.
func DefaultConfig() Config {
	return Config{
		BaseSpeed:        8,
		SprintMultiplier: 1.6,
		TurnRate:         10,
		Gravity:          25,
		JumpImpulse:      9,
		HopImpulse:       2,
		HopInterval:      350 * time.Millisecond,
		SprintHopDivisor: 1.5,
		MinWorldY:        -20,
		FloorRecovery:    2,
		RespawnDuration:  300 * time.Millisecond,
		InvulnerableFor:  3000 * time.Millisecond,
		GoalRadius:       3,
		GoalPoints:       1,
	}
}

// Normalized returns a config with defaults applied to unset fields.
func (cfg Config) Normalized() Config {
	defaults := DefaultConfig()
	normalized := cfg
	if normalized.BaseSpeed <= 0 {
		normalized.BaseSpeed = defaults.BaseSpeed
	}
	if normalized.SprintMultiplier <= 0 {
		normalized.SprintMultiplier = defaults.SprintMultiplier
	}
	if normalized.TurnRate <= 0 {
		normalized.TurnRate = defaults.TurnRate
	}
	if normalized.Gravity <= 0 {
		normalized.Gravity = defaults.Gravity
	}
	if normalized.JumpImpulse <= 0 {
		normalized.JumpImpulse = defaults.JumpImpulse
	}
	if normalized.HopImpulse <= 0 {
		normalized.HopImpulse = defaults.HopImpulse
	}
	if normalized.HopInterval <= 0 {
		normalized.HopInterval = defaults.HopInterval
	}
	if normalized.SprintHopDivisor <= 0 {
		normalized.SprintHopDivisor = defaults.SprintHopDivisor
	}
	if normalized.FloorRecovery <= 0 {
		normalized.FloorRecovery = defaults.FloorRecovery
	}
	if normalized.RespawnDuration <= 0 {
		normalized.RespawnDuration = defaults.RespawnDuration
	}
	if normalized.InvulnerableFor <= 0 {
		normalized.InvulnerableFor = defaults.InvulnerableFor
	}
	if normalized.GoalRadius <= 0 {
		normalized.GoalRadius = defaults.GoalRadius
	}
	if normalized.GoalPoints <= 0 {
		normalized.GoalPoints = defaults.GoalPoints
	}
	return normalized
}
