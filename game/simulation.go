package game

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/flock/flock"
	"github.com/pthm-cable/flock/telemetry"
)

// Step runs a single tick of the simulation.
func (s *Simulation) Step() {
	s.perfCollector.StartTick()

	// 1. Move anchors
	s.perfCollector.StartPhase(telemetry.PhaseDrift)
	s.applyDrift()

	// 2. Recompute world transforms
	s.perfCollector.StartPhase(telemetry.PhaseHierarchy)
	s.syncHierarchy()

	// 3. Copy boids out of the world
	s.perfCollector.StartPhase(telemetry.PhaseSnapshot)
	s.snapshot()
	s.writeTrace()

	// 4. Steer
	s.perfCollector.StartPhase(telemetry.PhaseSteer)
	s.stepper.Advance(s.agents, s.cfg.Physics.DT)

	// 5. Copy local transforms back
	s.perfCollector.StartPhase(telemetry.PhaseWriteBack)
	s.writeBack()

	s.tick++

	// 6. Stats
	s.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	s.collector.RecordTick(telemetry.Polarization(s.headings()))
	s.flushTelemetry()

	s.perfCollector.EndTick()
}

// Run steps n ticks.
func (s *Simulation) Run(n int) {
	for i := 0; i < n; i++ {
		s.Step()
	}
}

// snapshot fills the agent slice from the world. Slot order follows the
// query and is stable while the population is unchanged.
func (s *Simulation) snapshot() {
	s.entities = s.entities[:0]
	s.agents = s.agents[:0]
	s.prevPos = s.prevPos[:0]

	query := s.boidFilter.Query()
	for query.Next() {
		e := query.Entity()
		local, global, boid := query.Get()
		s.entities = append(s.entities, e)
		s.agents = append(s.agents, flock.Agent{
			ID:     boid.ID,
			Local:  local.Flock(),
			Global: global.Flock(),
		})
		s.prevPos = append(s.prevPos, local.Position)
	}
}

// writeBack stores the steered local transforms and measures per-tick speed.
func (s *Simulation) writeBack() {
	dt := s.cfg.Physics.DT
	if cap(s.speeds) < len(s.agents) {
		s.speeds = make([]float64, len(s.agents))
	}
	s.speeds = s.speeds[:len(s.agents)]

	for i, e := range s.entities {
		t := s.transformMap.Get(e)
		t.SetFlock(s.agents[i].Local)
		s.speeds[i] = s.agents[i].Local.Position.Sub(s.prevPos[i]).Len() / dt
	}
}

// headings returns the world-space forward axis of each boid as steered
// from. The slice is reused across ticks.
func (s *Simulation) headings() []mgl64.Vec3 {
	s.heads = s.heads[:0]
	for i := range s.agents {
		s.heads = append(s.heads, s.agents[i].Global.Forward())
	}
	return s.heads
}
