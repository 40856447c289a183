package flock

import "github.com/go-gl/mathgl/mgl64"

// Steering is the resolved per-agent signal produced in pass 1 and consumed
// in pass 2. The discrete policy fills Heading; the flight policy fills the
// two rates and Up. Vectors are in the agent's parent frame, the frame its
// Local transform moves in. The zero value means "no steering".
type Steering struct {
	Heading  mgl64.Vec3
	Lateral  float64
	Vertical float64

	// Up is the world vertical in the parent frame. Zero means the parent
	// frame is the world.
	Up mgl64.Vec3
}

// WorldUp returns Up, or the world vertical when Up is unset.
func (s Steering) WorldUp() mgl64.Vec3 {
	if isZero(s.Up) {
		return WorldUp
	}
	return s.Up
}

// Policy turns scan results into steering and applies steering to motion.
//
// Resolve must only read; it runs concurrently for different agents.
// Apply runs once per tick after every agent has been resolved and may
// mutate the Local transform of any agent.
type Policy interface {
	// Vision is the sensing radius used for the scan.
	Vision() float64

	// Resolve converts the scan of self into a steering signal.
	Resolve(agg Aggregates, self *Agent) Steering

	// Apply integrates the resolved steering for all agents over dt.
	Apply(agents []Agent, scratch *Scratch, dt float64)
}
