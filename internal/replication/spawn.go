package replication

import "chase-arena/netcode/internal/proto"

// SpawnConfig captures the one-axis spawn ladder used for evader respawns.
type SpawnConfig struct {
	BaseX    float64
	MinX     float64
	StepSize float64
	Height   float64
	Z        float64
}

// DefaultSpawnConfig mirrors the arena's back-wall spawn ladder.
func DefaultSpawnConfig() SpawnConfig {
	return SpawnConfig{
		BaseX:    -100,
		MinX:     -500,
		StepSize: 50,
		Height:   2,
	}
}

// Normalized returns a config with degenerate values repaired.
func (cfg SpawnConfig) Normalized() SpawnConfig {
	normalized := cfg
	if normalized.StepSize <= 0 {
		normalized.StepSize = 50
	}
	if normalized.MinX > normalized.BaseX {
		normalized.MinX = normalized.BaseX
	}
	return normalized
}

// SpawnAllocator hands out progressively distant respawn positions along one
// axis. Invariant: MinX <= currentX <= BaseX. Mutated only by respawn and
// scoring handling; Reset restores the base position.
type SpawnAllocator struct {
	cfg      SpawnConfig
	currentX float64
}

// NewSpawnAllocator starts the ladder at its base position.
func NewSpawnAllocator(cfg SpawnConfig) *SpawnAllocator {
	cfg = cfg.Normalized()
	return &SpawnAllocator{cfg: cfg, currentX: cfg.BaseX}
}

// Next steps the ladder toward MinX and returns the new spawn position.
func (a *SpawnAllocator) Next() proto.Vec3 {
	a.currentX -= a.cfg.StepSize
	if a.currentX < a.cfg.MinX {
		a.currentX = a.cfg.MinX
	}
	return proto.Vec3{X: a.currentX, Y: a.cfg.Height, Z: a.cfg.Z}
}

// Reset restores the ladder to its base position.
func (a *SpawnAllocator) Reset() {
	a.currentX = a.cfg.BaseX
}

// CurrentX reports the ladder position without advancing it.
func (a *SpawnAllocator) CurrentX() float64 {
	return a.currentX
}
