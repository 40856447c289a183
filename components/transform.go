// Package components defines ECS components for the simulation.
package components

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/flock/flock"
)

// Transform is an entity's position and orientation relative to its parent,
// or to the world when it has none.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// NewTransform returns a transform at pos facing rot.
func NewTransform(pos mgl64.Vec3, rot mgl64.Quat) Transform {
	return Transform{Position: pos, Rotation: rot}
}

// Flock converts to the core's transform type.
func (t Transform) Flock() flock.Transform {
	return flock.Transform{Position: t.Position, Rotation: t.Rotation}
}

// SetFlock copies a core transform back.
func (t *Transform) SetFlock(f flock.Transform) {
	t.Position = f.Position
	t.Rotation = f.Rotation
}

// GlobalTransform is the world-space transform, recomputed from the hierarchy
// once per tick before steering.
type GlobalTransform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// Flock converts to the core's transform type.
func (g GlobalTransform) Flock() flock.Transform {
	return flock.Transform{Position: g.Position, Rotation: g.Rotation}
}

// Compose returns the world transform of a child with the given local
// transform under g.
func (g GlobalTransform) Compose(local Transform) GlobalTransform {
	return GlobalTransform{
		Position: g.Position.Add(g.Rotation.Rotate(local.Position)),
		Rotation: g.Rotation.Mul(local.Rotation).Normalize(),
	}
}

// Root returns the global transform of an unparented entity.
func Root(local Transform) GlobalTransform {
	return GlobalTransform{Position: local.Position, Rotation: local.Rotation}
}

// Parent attaches an entity to another; its Transform is then relative to
// the parent's GlobalTransform.
type Parent struct {
	Entity ecs.Entity
}

// Boid marks a steered agent.
type Boid struct {
	ID   uint32 // unique within a run; entity IDs are recycled, these are not
	Born int32  // tick of spawn
}

// Drift moves an anchor at constant velocity and spin. Anchors carry no Boid
// and are never steered.
type Drift struct {
	Velocity mgl64.Vec3
	Spin     float64 // radians per second about world up
}
