package flock

import "github.com/go-gl/mathgl/mgl64"

// Flight blends all three rules into one steering force every tick and flies
// the agent like a glider: the force becomes roll and pitch rates, a physics
// pass adds thrust, lift and gravity, and bank angle induces yaw.
type Flight struct {
	Params FlightParams
}

// NewFlight returns a flight policy over p.
func NewFlight(p FlightParams) *Flight {
	return &Flight{Params: p}
}

// Vision implements Policy.
func (f *Flight) Vision() float64 { return f.Params.MaximumVision }

// Force sums the weighted rule vectors.
func (f *Flight) Force(agg Aggregates) mgl64.Vec3 {
	w := agg.Scaled(f.Params.Separation, f.Params.Alignment, f.Params.Cohesion)
	return w.Separation.Add(w.Alignment).Add(w.Cohesion)
}

// Resolve implements Policy. The force is projected onto the agent's left and
// up axes; the world-up terms pull the agent back toward level flight.
func (f *Flight) Resolve(agg Aggregates, self *Agent) Steering {
	force := f.Force(agg)
	rot := self.Global.Rotation
	left, up := Left(rot), Up(rot)

	levelUp := up.Dot(WorldUp)
	return Steering{
		Lateral:  f.Params.BankRate * (force.Dot(left) + levelUp - left.Dot(WorldUp)),
		Vertical: f.Params.RiseRate * (force.Dot(up) + levelUp),
		Up:       self.ToLocal(WorldUp),
	}
}

// Apply implements Policy. Intent is applied to every agent before physics
// runs for any of them.
func (f *Flight) Apply(agents []Agent, scratch *Scratch, dt float64) {
	for i := range agents {
		f.ApplyIntent(&agents[i].Local, scratch.Get(i), dt)
	}
	for i := range agents {
		f.ApplyPhysics(&agents[i].Local, scratch.Get(i).WorldUp(), dt)
	}
}

// ApplyIntent rolls t about its forward axis by the lateral rate, then pitches
// it about its lateral axis by the vertical rate. Both rotations are in the
// local frame and compose onto the current orientation.
func (f *Flight) ApplyIntent(t *Transform, s Steering, dt float64) {
	roll := mgl64.QuatRotate(s.Lateral*dt, mgl64.Vec3{0, 0, 1})
	pitch := mgl64.QuatRotate(s.Vertical*dt, localRight)
	t.Rotation = t.Rotation.Mul(roll).Mul(pitch).Normalize()
}

// ApplyPhysics moves t by thrust, lift and gravity over dt and yaws it about
// the world vertical in proportion to its bank. worldUp is the world
// vertical expressed in t's frame (WorldUp for an unparented agent). No
// velocity is carried between ticks.
func (f *Flight) ApplyPhysics(t *Transform, worldUp mgl64.Vec3, dt float64) {
	t.Position = t.Position.Add(f.NetForce(t.Rotation, worldUp).Mul(dt))

	if torque := f.BankTorque(t.Rotation, worldUp); torque != 0 {
		yaw := mgl64.QuatRotate(torque*dt, worldUp)
		t.Rotation = yaw.Mul(t.Rotation).Normalize()
	}
}

// NetForce is forward*thrust + up*lift + down*gravity for rotation r.
func (f *Flight) NetForce(r mgl64.Quat, worldUp mgl64.Vec3) mgl64.Vec3 {
	return Forward(r).Mul(f.Params.Thrust).
		Add(Up(r).Mul(f.Params.Lift)).
		Add(worldUp.Mul(-f.Params.Gravity))
}

// BankTorque is the yaw rate induced by rolling the right wing up.
func (f *Flight) BankTorque(r mgl64.Quat, worldUp mgl64.Vec3) float64 {
	return Right(r).Dot(worldUp) * f.Params.Bank
}
