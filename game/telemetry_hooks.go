package game

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/flock/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (s *Simulation) flushTelemetry() {
	if !s.collector.ShouldFlush(s.tick) {
		return
	}

	stats := s.collector.Flush(s.tick, s.sample())
	perfStats := s.perfCollector.Stats()

	if s.statsCallback != nil {
		s.statsCallback(stats)
	}

	if s.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := s.outputManager.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := s.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	for _, bm := range s.bookmarkDetector.Check(stats) {
		if s.logStats {
			bm.LogBookmark()
		}
		if err := s.outputManager.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
	}
}

// sample gathers the end-of-window measurements from the last tick.
func (s *Simulation) sample() telemetry.Sample {
	n := len(s.agents)
	sm := telemetry.Sample{
		Headings:  s.headings(),
		Positions: make([]mgl64.Vec3, n),
		Nearest:   make([]float64, n),
		Neighbors: make([]int, n),
		Speeds:    s.speeds,
	}
	for i := range s.agents {
		sm.Positions[i] = s.agents[i].Global.Position
		sensed := s.stepper.Sensed(i)
		sm.Nearest[i] = sensed.Nearest
		sm.Neighbors[i] = sensed.Neighbors
	}
	return sm
}

// writeTrace records the snapshot about to be steered.
func (s *Simulation) writeTrace() {
	if !s.trace.Due(s.tick) {
		return
	}
	frame := telemetry.TraceFrame{
		Tick:   s.tick,
		Agents: make([]telemetry.TraceAgent, len(s.agents)),
	}
	for i, a := range s.agents {
		p, q := a.Global.Position, a.Global.Rotation
		frame.Agents[i] = telemetry.TraceAgent{
			ID: a.ID,
			P:  [3]float64{p[0], p[1], p[2]},
			Q:  [4]float64{q.W, q.V[0], q.V[1], q.V[2]},
		}
	}
	if err := s.trace.Write(frame); err != nil {
		slog.Error("failed to write trace", "error", err)
	}
}
