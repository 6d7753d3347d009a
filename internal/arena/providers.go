package arena

import "chase-arena/netcode/internal/proto"

// Intent is the directional input resolved by the host's input layer. Raw
// key and gamepad polling stays outside this package.
type Intent struct {
	Forward  bool
	Backward bool
	Left     bool
	Right    bool
	Jump     bool
	Sprint   bool
}

// Moving reports whether any directional flag is held.
func (i Intent) Moving() bool {
	return i.Forward || i.Backward || i.Left || i.Right
}

// CameraBasis is the camera-relative movement frame supplied per tick.
// Forward and Right are expected to be horizontal unit vectors.
type CameraBasis struct {
	Forward proto.Vec3
	Right   proto.Vec3
}

// Sweeper is the kinematic collision contract delegated to the physics
// collaborator: given a desired displacement it returns the largest safe
// displacement, and reports ground contact.
type Sweeper interface {
	Sweep(desired proto.Vec3) proto.Vec3
	IsGrounded() bool
}

// SweeperFunc adapts a bare sweep function with a fixed grounded answer,
// which is what most tests want.
type SweeperFunc func(desired proto.Vec3) proto.Vec3

func (f SweeperFunc) Sweep(desired proto.Vec3) proto.Vec3 { return f(desired) }

func (SweeperFunc) IsGrounded() bool { return true }
