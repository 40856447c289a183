package flock

import "github.com/go-gl/mathgl/mgl64"

// Discrete steers each agent with exactly one rule per tick, chosen by the
// distance to its nearest neighbor, and turns toward that heading by
// spherical interpolation.
type Discrete struct {
	Params DiscreteParams
}

// NewDiscrete returns a discrete policy over p.
func NewDiscrete(p DiscreteParams) *Discrete {
	return &Discrete{Params: p}
}

// Vision implements Policy.
func (d *Discrete) Vision() float64 { return d.Params.MaximumVision }

// Resolve implements Policy. The heading is returned unnormalized, rotated
// from world space into self's parent frame.
func (d *Discrete) Resolve(agg Aggregates, self *Agent) Steering {
	return Steering{Heading: self.ToLocal(d.Select(agg))}
}

// Select picks one weighted rule vector:
//   - nearest < minimum_distance: separation
//   - nearest > maximum_distance: cohesion
//   - otherwise: alignment
//
// With no neighbor in range nearest equals the vision radius, which selects
// an empty cohesion sum.
func (d *Discrete) Select(agg Aggregates) mgl64.Vec3 {
	p := &d.Params
	switch {
	case agg.Nearest < p.MinimumDistance:
		return agg.Separation.Mul(p.MinimumDistance)
	case agg.Nearest > p.MaximumDistance:
		return agg.Cohesion.Mul(1 / p.MaximumDistance)
	default:
		return agg.Alignment
	}
}

// Apply implements Policy.
func (d *Discrete) Apply(agents []Agent, scratch *Scratch, dt float64) {
	for i := range agents {
		d.Integrate(&agents[i].Local, scratch.Get(i).Heading, dt)
	}
}

// TurnFactor is the slerp fraction for one tick of dt, saturated at 1.
func (d *Discrete) TurnFactor(dt float64) float64 {
	return clamp01(d.Params.RotationalEnergy * dt / d.Params.RotationalInertia)
}

// Integrate turns t toward heading and moves it forward by speed*dt. The
// heading is in the same frame as t. A zero heading leaves the rotation
// untouched.
func (d *Discrete) Integrate(t *Transform, heading mgl64.Vec3, dt float64) {
	heading = normalizeOrZero(heading)
	if !isZero(heading) {
		arc := mgl64.QuatBetweenVectors(Forward(t.Rotation), heading)
		target := arc.Mul(t.Rotation)
		t.Rotation = slerp(t.Rotation, target, d.TurnFactor(dt))
	}
	t.Position = t.Position.Add(Forward(t.Rotation).Mul(d.Params.Speed * dt))
}
