package arena

import (
	"math"
	"time"

	"chase-arena/netcode/internal/proto"
)

// Phase is the respawn sub-state of one entity. Transitions are driven by
// timeouts alone; no event shortens or extends a window.
type Phase int

const (
	PhaseNormal Phase = iota
	PhaseRespawning
	PhaseInvulnerable
)

func (p Phase) String() string {
	switch p {
	case PhaseNormal:
		return "normal"
	case PhaseRespawning:
		return "respawning"
	case PhaseInvulnerable:
		return "invulnerable"
	default:
		return "unknown"
	}
}

// Entity is the kinematic state machine for one player. One goroutine drives
// it from the host tick; it is not safe for concurrent use.
type Entity struct {
	PlayerID string
	Role     proto.Role

	cfg     Config
	sweeper Sweeper
	now     func() time.Time

	position     proto.Vec3
	velocity     proto.Vec3
	facing       float64
	targetFacing float64

	hopTimer    time.Duration
	lastIntent  Intent
	wasGrounded bool

	phase      Phase
	phaseUntil time.Time
}

// NewEntity builds an entity at the given spawn position.
func NewEntity(playerID string, role proto.Role, spawn proto.Vec3, cfg Config, sweeper Sweeper, now func() time.Time) *Entity {
	if now == nil {
		now = time.Now
	}
	return &Entity{
		PlayerID: playerID,
		Role:     role,
		cfg:      cfg.Normalized(),
		sweeper:  sweeper,
		now:      now,
		position: spawn,
	}
}

// Position returns the current world position.
func (e *Entity) Position() proto.Vec3 { return e.position }

// Velocity returns the current velocity.
func (e *Entity) Velocity() proto.Vec3 { return e.velocity }

// Facing returns the current yaw in radians.
func (e *Entity) Facing() float64 { return e.facing }

// Phase returns the current respawn sub-state.
func (e *Entity) Phase() Phase {
	e.advancePhase()
	return e.phase
}

// Vulnerable reports whether scoring and hit checks may apply right now.
func (e *Entity) Vulnerable() bool {
	return e.Phase() == PhaseNormal
}

// BeginRespawn teleports the entity to the spawn position, zeroes velocity,
// and enters the respawning window.
func (e *Entity) BeginRespawn(spawn proto.Vec3) {
	e.position = spawn
	e.velocity = proto.Vec3{}
	e.hopTimer = 0
	e.phase = PhaseRespawning
	e.phaseUntil = e.now().Add(e.cfg.RespawnDuration)
}

func (e *Entity) advancePhase() {
	now := e.now()
	for {
		switch e.phase {
		case PhaseRespawning:
			if now.Before(e.phaseUntil) {
				return
			}
			e.phase = PhaseInvulnerable
			e.phaseUntil = e.phaseUntil.Add(e.cfg.InvulnerableFor)
		case PhaseInvulnerable:
			if now.Before(e.phaseUntil) {
				return
			}
			e.phase = PhaseNormal
		default:
			return
		}
	}
}

// AtGoal reports whether the entity currently satisfies the scoring
// proximity check. Respawning and invulnerable entities never do.
func (e *Entity) AtGoal() bool {
	if e.Role != proto.RoleEvader {
		return false
	}
	if !e.Vulnerable() {
		return false
	}
	return e.position.Sub(e.cfg.GoalPoint).Length() < e.cfg.GoalRadius
}

// Step resolves one tick of movement from the given intent and camera frame.
func (e *Entity) Step(dt float64, intent Intent, camera CameraBasis) {
	if dt <= 0 {
		return
	}
	e.advancePhase()
	e.lastIntent = intent

	if e.phase == PhaseRespawning {
		// The teleport window freezes the body.
		return
	}

	grounded := e.sweeper.IsGrounded()
	desired := e.desiredDirection(intent, camera)

	if desired.Length() > 0 {
		e.targetFacing = math.Atan2(desired.X, desired.Z)
	}
	e.blendFacing(dt)

	speed := e.cfg.BaseSpeed
	if intent.Sprint {
		speed *= e.cfg.SprintMultiplier
	}
	e.velocity.X = desired.X * speed
	e.velocity.Z = desired.Z * speed

	e.applyHop(dt, intent, desired, grounded)

	if intent.Jump && grounded {
		e.velocity.Y = e.cfg.JumpImpulse
		grounded = false
	}

	if !grounded {
		e.velocity.Y -= e.cfg.Gravity * dt
	} else if e.velocity.Y < 0 {
		e.velocity.Y = 0
	}

	safe := e.sweeper.Sweep(e.velocity.Scale(dt))
	e.position = e.position.Add(safe)

	if e.position.Y < e.cfg.MinWorldY {
		e.position.Y = e.cfg.MinWorldY
		e.velocity.Y = e.cfg.FloorRecovery
	}

	e.wasGrounded = grounded
}

// desiredDirection projects the intent flags onto the camera's horizontal
// frame and normalizes the result.
func (e *Entity) desiredDirection(intent Intent, camera CameraBasis) proto.Vec3 {
	var dir proto.Vec3
	if intent.Forward {
		dir = dir.Add(camera.Forward)
	}
	if intent.Backward {
		dir = dir.Sub(camera.Forward)
	}
	if intent.Right {
		dir = dir.Add(camera.Right)
	}
	if intent.Left {
		dir = dir.Sub(camera.Right)
	}
	dir.Y = 0
	return dir.Normalized()
}

// blendFacing rotates the current yaw toward the target at the configured
// angular rate instead of snapping.
func (e *Entity) blendFacing(dt float64) {
	delta := normalizeAngle(e.targetFacing - e.facing)
	maxStep := e.cfg.TurnRate * dt
	if math.Abs(delta) <= maxStep {
		e.facing = e.targetFacing
		return
	}
	if delta > 0 {
		e.facing = normalizeAngle(e.facing + maxStep)
	} else {
		e.facing = normalizeAngle(e.facing - maxStep)
	}
}

// applyHop runs the idle gait oscillator: while moving on the ground the
// timer accumulates, and each elapsed interval fires an upward impulse.
// Sprinting shortens the cadence.
func (e *Entity) applyHop(dt float64, intent Intent, desired proto.Vec3, grounded bool) {
	if !grounded || desired.Length() == 0 {
		e.hopTimer = 0
		return
	}
	interval := e.cfg.HopInterval
	if intent.Sprint {
		interval = time.Duration(float64(interval) / e.cfg.SprintHopDivisor)
	}
	e.hopTimer += time.Duration(dt * float64(time.Second))
	if e.hopTimer >= interval {
		e.hopTimer = 0
		e.velocity.Y = e.cfg.HopImpulse
	}
}

func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// Snapshot renders the entity's pose as a replicated player state. The
// sequence tag is assigned by the replication layer, not here.
func (e *Entity) Snapshot() proto.PlayerState {
	velocity := e.velocity
	return proto.PlayerState{
		ID:        e.PlayerID,
		Position:  e.position,
		Rotation:  proto.QuatFromYaw(e.facing),
		Velocity:  &velocity,
		Role:      e.Role,
		Jumping:   !e.wasGrounded,
		Running:   e.lastIntent.Sprint && e.lastIntent.Moving(),
		Timestamp: e.now().UnixMilli(),
	}
}
