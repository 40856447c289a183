package flock

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestFlightLevelWithNoNeighbors(t *testing.T) {
	f := NewFlight(DefaultFlightParams())
	self := agentAt(1, mgl64.Vec3{}, mgl64.QuatIdent())

	s := f.Resolve(Aggregates{Nearest: f.Vision()}, &self)

	// At identity up.world_up = 1 and left.world_up = 0.
	if math.Abs(s.Lateral-f.Params.BankRate) > eps {
		t.Errorf("Lateral = %v, want bank_rate %v", s.Lateral, f.Params.BankRate)
	}
	if math.Abs(s.Vertical-f.Params.RiseRate) > eps {
		t.Errorf("Vertical = %v, want rise_rate %v", s.Vertical, f.Params.RiseRate)
	}
	if !isZero(s.Heading) {
		t.Errorf("Heading = %v, want zero", s.Heading)
	}
}

func TestFlightResolveProjectsForce(t *testing.T) {
	p := DefaultFlightParams()
	p.BankRate = 2
	p.RiseRate = 3
	f := NewFlight(p)
	self := agentAt(1, mgl64.Vec3{}, mgl64.QuatIdent())

	// Alignment alone contributes; left is -X and up is +Y at identity.
	agg := Aggregates{Alignment: mgl64.Vec3{-1, 2, 0}, Nearest: 1, Neighbors: 1}
	s := f.Resolve(agg, &self)

	if want := 2.0 * (1 + 1 - 0); math.Abs(s.Lateral-want) > eps {
		t.Errorf("Lateral = %v, want %v", s.Lateral, want)
	}
	if want := 3.0 * (2 + 1); math.Abs(s.Vertical-want) > eps {
		t.Errorf("Vertical = %v, want %v", s.Vertical, want)
	}
}

func TestFlightForceWeights(t *testing.T) {
	p := DefaultFlightParams()
	p.Separation, p.Alignment, p.Cohesion = 2, 3, 0.5
	f := NewFlight(p)

	got := f.Force(Aggregates{
		Separation: mgl64.Vec3{1, 0, 0},
		Alignment:  mgl64.Vec3{0, 1, 0},
		Cohesion:   mgl64.Vec3{0, 0, 4},
	})

	if want := (mgl64.Vec3{2, 3, 2}); !got.ApproxEqualThreshold(want, eps) {
		t.Errorf("Force = %v, want %v", got, want)
	}
}

// Identity orientation with thrust 2, lift 1, gravity 1 and bank 1 over a
// unit tick: lift cancels gravity and the wings are level.
func TestFlightPhysicsLevel(t *testing.T) {
	f := NewFlight(FlightParams{
		Thrust: 2, Lift: 1, Gravity: 1, Bank: 1,
		Separation: 1, Alignment: 1, Cohesion: 1,
		BankRate: 1, RiseRate: 1, MaximumVision: 4,
	})
	tr := NewTransform(mgl64.Vec3{})

	if torque := f.BankTorque(tr.Rotation, WorldUp); torque != 0 {
		t.Errorf("BankTorque = %v, want 0", torque)
	}

	f.ApplyPhysics(&tr, WorldUp, 1.0)

	if want := (mgl64.Vec3{0, 0, -2}); !tr.Position.ApproxEqualThreshold(want, eps) {
		t.Errorf("Position = %v, want %v", tr.Position, want)
	}
	if tr.Rotation != mgl64.QuatIdent() {
		t.Errorf("Rotation changed with zero torque: %v", tr.Rotation)
	}
}

func TestFlightIntentAxes(t *testing.T) {
	f := NewFlight(DefaultFlightParams())

	tests := []struct {
		name  string
		steer Steering
		check func(r mgl64.Quat) bool
		desc  string
	}{
		{
			name:  "positive lateral raises right wing",
			steer: Steering{Lateral: 0.3},
			check: func(r mgl64.Quat) bool { return Right(r).Dot(WorldUp) > 0 },
			desc:  "right.y > 0",
		},
		{
			name:  "negative lateral lowers right wing",
			steer: Steering{Lateral: -0.3},
			check: func(r mgl64.Quat) bool { return Right(r).Dot(WorldUp) < 0 },
			desc:  "right.y < 0",
		},
		{
			name:  "positive vertical pitches nose up",
			steer: Steering{Vertical: 0.3},
			check: func(r mgl64.Quat) bool { return Forward(r).Dot(WorldUp) > 0 },
			desc:  "forward.y > 0",
		},
		{
			name:  "roll keeps heading",
			steer: Steering{Lateral: 0.8},
			check: func(r mgl64.Quat) bool {
				return Forward(r).ApproxEqualThreshold(mgl64.Vec3{0, 0, -1}, 1e-9)
			},
			desc: "forward == -Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTransform(mgl64.Vec3{})
			f.ApplyIntent(&tr, tt.steer, 1.0)
			if !tt.check(tr.Rotation) {
				t.Errorf("after ApplyIntent(%+v): want %s, rotation %v", tt.steer, tt.desc, tr.Rotation)
			}
		})
	}
}

func TestFlightBankInducesYaw(t *testing.T) {
	f := NewFlight(DefaultFlightParams())
	tr := NewTransform(mgl64.Vec3{})
	f.ApplyIntent(&tr, Steering{Lateral: 0.5}, 1.0)

	if torque := f.BankTorque(tr.Rotation, WorldUp); torque <= 0 {
		t.Fatalf("BankTorque = %v, want > 0 with right wing up", torque)
	}

	f.ApplyPhysics(&tr, WorldUp, 0.5)

	// Positive yaw about +Y swings the nose from -Z toward -X.
	if fwd := tr.Forward(); fwd.X() >= 0 {
		t.Errorf("forward after banked tick = %v, want negative X", fwd)
	}
}

func TestFlightApplyNoNaN(t *testing.T) {
	agents := []Agent{
		agentAt(1, mgl64.Vec3{0, 0, 0}, mgl64.QuatIdent()),
		agentAt(2, mgl64.Vec3{0, 0, 0}, mgl64.QuatIdent()),
		agentAt(3, mgl64.Vec3{1, 0, 0}, facing(mgl64.Vec3{0, 1, 0})),
	}
	f := NewFlight(DefaultFlightParams())

	for tick := 0; tick < 20; tick++ {
		Advance(agents, 0.1, f)
	}

	for i, a := range agents {
		if !isFinite(a.Local.Position) {
			t.Errorf("agent %d position non-finite: %v", i, a.Local.Position)
		}
		if l := a.Local.Rotation.Len(); math.Abs(l-1) > 1e-6 {
			t.Errorf("agent %d rotation not unit: |q| = %v", i, l)
		}
	}
}

func TestFlightParamsValidate(t *testing.T) {
	if err := DefaultFlightParams().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}

	p := DefaultFlightParams()
	p.Thrust = 0
	p.Gravity = -1
	err := p.Validate()
	if err == nil {
		t.Fatal("expected error for zero thrust and negative gravity")
	}
	if !errors.Is(err, ErrParams) {
		t.Errorf("error %v does not wrap ErrParams", err)
	}
}

// A level agent under a rolled parent must fall, lift and yaw about the world
// vertical, not the parent's.
func TestFlightPhysicsInParentFrame(t *testing.T) {
	f := NewFlight(FlightParams{
		Thrust: 2, Lift: 1, Gravity: 1, Bank: 1,
		Separation: 1, Alignment: 1, Cohesion: 1,
		BankRate: 1, RiseRate: 1, MaximumVision: 4,
	})
	parent := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})

	tests := []struct {
		name      string
		world     mgl64.Quat // agent's world rotation
		wantPos   mgl64.Vec3 // world displacement
		wantTurns bool
	}{
		{"level", mgl64.QuatIdent(), mgl64.Vec3{0, 0, -2}, false},
		{"banked", mgl64.QuatRotate(0.5, mgl64.Vec3{0, 0, 1}), mgl64.Vec3{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Agent{
				Local:  Transform{Rotation: parent.Conjugate().Mul(tt.world)},
				Global: Transform{Rotation: tt.world},
			}
			s := f.Resolve(Aggregates{Nearest: 4}, &a)
			if !s.WorldUp().ApproxEqualThreshold(parent.Conjugate().Rotate(WorldUp), 1e-9) {
				t.Fatalf("Up = %v, want world up in the parent frame", s.Up)
			}

			rootT := Transform{Rotation: tt.world}
			f.ApplyPhysics(&rootT, WorldUp, 1.0)
			f.ApplyPhysics(&a.Local, s.WorldUp(), 1.0)

			worldPos := parent.Rotate(a.Local.Position)
			if !worldPos.ApproxEqualThreshold(rootT.Position, 1e-9) {
				t.Errorf("world displacement = %v, unparented agent moved %v", worldPos, rootT.Position)
			}
			if !tt.wantTurns && !worldPos.ApproxEqualThreshold(tt.wantPos, 1e-9) {
				t.Errorf("world displacement = %v, want %v", worldPos, tt.wantPos)
			}
			worldRot := parent.Mul(a.Local.Rotation)
			if angle := quatAngle(worldRot, rootT.Rotation); angle > 1e-6 {
				t.Errorf("world rotation differs from unparented agent by %.4f rad", angle)
			}
			if turned := quatAngle(worldRot, tt.world) > 1e-6; turned != tt.wantTurns {
				t.Errorf("turned = %v, want %v", turned, tt.wantTurns)
			}
		})
	}
}

func TestSteeringWorldUpDefault(t *testing.T) {
	if got := (Steering{}).WorldUp(); got != WorldUp {
		t.Errorf("zero Steering WorldUp = %v, want %v", got, WorldUp)
	}
}
