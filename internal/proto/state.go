package proto

import "math"

// Role identifies which side of the chase a player is on.
type Role string

const (
	RolePursuer Role = "pursuer"
	RoleEvader  Role = "evader"
)

// ParseRole validates a role string received from the wire.
func ParseRole(value string) (Role, bool) {
	switch Role(value) {
	case RolePursuer, RoleEvader:
		return Role(value), true
	default:
		return "", false
	}
}

// Vec3 is a position, direction, or velocity in world space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns the component-wise sum of two vectors.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns the component-wise difference of two vectors.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns the vector multiplied by a scalar.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Length returns the Euclidean magnitude of the vector.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalized returns a unit vector, or the zero vector unchanged.
func (v Vec3) Normalized() Vec3 {
	length := v.Length()
	if length == 0 {
		return Vec3{}
	}
	return v.Scale(1 / length)
}

// Quat is a unit rotation quaternion.
type Quat struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// IdentityQuat returns the no-rotation quaternion.
func IdentityQuat() Quat {
	return Quat{W: 1}
}

// QuatFromYaw builds a rotation of the given angle around the world up axis.
func QuatFromYaw(radians float64) Quat {
	half := radians / 2
	return Quat{Y: math.Sin(half), W: math.Cos(half)}
}

// PlayerState is the replicated pose and status of one player.
type PlayerState struct {
	ID        string `json:"id,omitempty"`
	Position  Vec3   `json:"position"`
	Rotation  Quat   `json:"rotation"`
	Velocity  *Vec3  `json:"velocity,omitempty"`
	Sequence  uint64 `json:"sequence"`
	Role      Role   `json:"playerType"`
	Jumping   bool   `json:"jumping,omitempty"`
	Running   bool   `json:"running,omitempty"`
	Shooting  bool   `json:"shooting,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
