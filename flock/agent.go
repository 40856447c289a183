// Package flock implements the per-tick steering computation for a population
// of boids: an exhaustive neighbor scan, two interchangeable heading
// resolvers, and the motion integrators that apply them.
//
// The package has no knowledge of entity storage. A host hands it a slice of
// Agent records once per tick and reads the mutated local transforms back.
package flock

import "github.com/go-gl/mathgl/mgl64"

// Axis conventions are right-handed with Y up. An identity rotation faces -Z.
var (
	WorldUp = mgl64.Vec3{0, 1, 0}

	localForward = mgl64.Vec3{0, 0, -1}
	localUp      = mgl64.Vec3{0, 1, 0}
	localRight   = mgl64.Vec3{1, 0, 0}
)

// Transform is a position plus a unit-quaternion orientation.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// NewTransform returns a transform at pos with identity rotation.
func NewTransform(pos mgl64.Vec3) Transform {
	return Transform{Position: pos, Rotation: mgl64.QuatIdent()}
}

// Forward returns the direction the transform faces.
func (t Transform) Forward() mgl64.Vec3 { return Forward(t.Rotation) }

// Agent is one boid as seen by the core for a single tick.
//
// Global is read during the scan; only Local is mutated. Local is relative to
// the agent's parent, so Global.Rotation = parent * Local.Rotation.
type Agent struct {
	ID     uint32
	Local  Transform
	Global Transform
}

// ParentRotation returns the world rotation of the frame Local is expressed
// in, recovered from the two transforms. Unparented agents get identity.
func (a *Agent) ParentRotation() mgl64.Quat {
	if a.Local.Rotation == a.Global.Rotation {
		return mgl64.QuatIdent()
	}
	return a.Global.Rotation.Mul(a.Local.Rotation.Conjugate()).Normalize()
}

// ToLocal maps a world-space direction into the frame Local is expressed in.
func (a *Agent) ToLocal(v mgl64.Vec3) mgl64.Vec3 {
	if a.Local.Rotation == a.Global.Rotation {
		return v
	}
	return a.ParentRotation().Conjugate().Rotate(v)
}

// Forward returns the local forward axis of rotation r.
func Forward(r mgl64.Quat) mgl64.Vec3 { return r.Rotate(localForward) }

// Up returns the local up axis of rotation r.
func Up(r mgl64.Quat) mgl64.Vec3 { return r.Rotate(localUp) }

// Right returns the local right axis of rotation r.
func Right(r mgl64.Quat) mgl64.Vec3 { return r.Rotate(localRight) }

// Left returns the local left axis of rotation r.
func Left(r mgl64.Quat) mgl64.Vec3 { return r.Rotate(localRight.Mul(-1)) }
