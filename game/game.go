// Package game hosts a flock in an ark ECS world: it spawns boids, keeps the
// transform hierarchy in sync, drives the steering core once per tick and
// feeds the telemetry pipeline.
package game

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/flock/components"
	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/flock"
	"github.com/pthm-cable/flock/telemetry"
)

// Options holds runtime options for a simulation.
type Options struct {
	Seed      int64  // RNG seed for spawning
	Workers   int    // scan workers; 0 uses the config value
	OutputDir string // directory for CSV logs (empty = disabled)
	TracePath string // zstd JSONL trajectory file (empty = disabled)
	LogStats  bool   // log window stats and bookmarks via slog

	// StatsCallback is called after each window flush. Used by the tuner.
	StatsCallback func(telemetry.WindowStats)
}

// Simulation is a headless flock world.
type Simulation struct {
	cfg   *config.Config
	world *ecs.World
	rng   *rand.Rand

	boidMapper   *ecs.Map3[components.Transform, components.GlobalTransform, components.Boid]
	anchorMapper *ecs.Map3[components.Transform, components.GlobalTransform, components.Drift]
	boidFilter   *ecs.Filter3[components.Transform, components.GlobalTransform, components.Boid]
	nodeFilter   *ecs.Filter2[components.Transform, components.GlobalTransform]
	driftFilter  *ecs.Filter2[components.Transform, components.Drift]

	transformMap *ecs.Map[components.Transform]
	globalMap    *ecs.Map[components.GlobalTransform]
	parentMap    *ecs.Map[components.Parent]
	boidMap      *ecs.Map[components.Boid]

	// Steering core
	stepper *flock.Stepper

	// Per-tick snapshot, indexed alike
	entities []ecs.Entity
	agents   []flock.Agent
	prevPos  []mgl64.Vec3
	speeds   []float64
	heads    []mgl64.Vec3

	hierarchy  hierarchy
	lastBoidID uint32

	// Telemetry
	collector        *telemetry.Collector
	perfCollector    *telemetry.PerfCollector
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager
	trace            *telemetry.TraceWriter
	statsCallback    func(telemetry.WindowStats)
	logStats         bool

	tick int32
}

// New creates a simulation from cfg and spawns the configured population.
func New(cfg *config.Config, opts Options) (*Simulation, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	workers := cfg.Flock.Workers
	if opts.Workers > 0 {
		workers = opts.Workers
	}

	world := ecs.NewWorld()
	s := &Simulation{
		cfg:   cfg,
		world: world,
		rng:   rand.New(rand.NewSource(opts.Seed)),

		boidMapper:   ecs.NewMap3[components.Transform, components.GlobalTransform, components.Boid](world),
		anchorMapper: ecs.NewMap3[components.Transform, components.GlobalTransform, components.Drift](world),
		boidFilter:   ecs.NewFilter3[components.Transform, components.GlobalTransform, components.Boid](world),
		nodeFilter:   ecs.NewFilter2[components.Transform, components.GlobalTransform](world),
		driftFilter:  ecs.NewFilter2[components.Transform, components.Drift](world),
		transformMap: ecs.NewMap[components.Transform](world),
		globalMap:    ecs.NewMap[components.GlobalTransform](world),
		parentMap:    ecs.NewMap[components.Parent](world),
		boidMap:      ecs.NewMap[components.Boid](world),

		stepper:   flock.NewStepper(policy, flock.Options{Workers: workers}),
		hierarchy: newHierarchy(),

		collector:        telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Physics.DT),
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		bookmarkDetector: telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistorySize, cfg.Bookmarks),
		statsCallback:    opts.StatsCallback,
		logStats:         opts.LogStats,
	}

	if s.outputManager, err = telemetry.NewOutputManager(opts.OutputDir); err != nil {
		s.stepper.Close()
		return nil, fmt.Errorf("setting up output: %w", err)
	}
	if err := s.outputManager.WriteConfig(cfg); err != nil {
		s.Close()
		return nil, fmt.Errorf("writing config snapshot: %w", err)
	}
	if opts.TracePath != "" {
		if s.trace, err = telemetry.NewTraceWriter(opts.TracePath, cfg.Trace.Every); err != nil {
			s.Close()
			return nil, err
		}
	}

	s.spawnInitialPopulation()

	return s, nil
}

// Tick returns the number of completed ticks.
func (s *Simulation) Tick() int32 { return s.tick }

// World returns the underlying ECS world.
func (s *Simulation) World() *ecs.World { return s.world }

// Config returns the configuration the simulation was built from.
func (s *Simulation) Config() *config.Config { return s.cfg }

// Agents returns a copy of the flock as of the last tick: Local holds the
// steered transform, Global the world transform it was steered from.
func (s *Simulation) Agents() []flock.Agent {
	out := make([]flock.Agent, len(s.agents))
	copy(out, s.agents)
	return out
}

// BoidID returns the agent ID of boid e, as used in Agents and traces.
func (s *Simulation) BoidID(e ecs.Entity) (uint32, bool) {
	if !s.world.Alive(e) || !s.boidMap.Has(e) {
		return 0, false
	}
	return s.boidMap.Get(e).ID, true
}

// Result summarizes the current flock for the run index.
func (s *Simulation) Result() telemetry.RunResult {
	headings := make([]mgl64.Vec3, len(s.agents))
	positions := make([]mgl64.Vec3, len(s.agents))
	for i := range s.agents {
		headings[i] = s.agents[i].Global.Forward()
		positions[i] = s.agents[i].Global.Position
	}
	return telemetry.RunResult{
		Ticks:        s.tick,
		Polarization: telemetry.Polarization(headings),
		GroupRadius:  telemetry.GroupRadius(positions),
	}
}

// Close stops the scan workers and closes every output.
func (s *Simulation) Close() error {
	s.stepper.Close()
	return errors.Join(s.outputManager.Close(), s.trace.Close())
}
