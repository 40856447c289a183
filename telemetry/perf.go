package telemetry

import (
	"log/slog"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Phase is one timed section of a simulation step.
type Phase uint8

// Step phases, in execution order.
const (
	PhaseDrift Phase = iota
	PhaseHierarchy
	PhaseSnapshot
	PhaseSteer
	PhaseWriteBack
	PhaseTelemetry
	numPhases
)

var phaseNames = [numPhases]string{"drift", "hierarchy", "snapshot", "steer", "write_back", "telemetry"}

func (p Phase) String() string {
	if p < numPhases {
		return phaseNames[p]
	}
	return "unknown"
}

type phaseTimes [numPhases]time.Duration

// PerfCollector times simulation steps over a rolling window of ticks.
// Phases are fixed, so recording a tick allocates nothing.
type PerfCollector struct {
	ticks  []time.Duration
	phases []phaseTimes
	next   int
	filled int

	current    phaseTimes
	tickStart  time.Time
	phaseStart time.Time
	phase      Phase
	inPhase    bool
}

// NewPerfCollector returns a collector averaging over window ticks.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{
		ticks:  make([]time.Duration, window),
		phases: make([]phaseTimes, window),
	}
}

// StartTick begins timing a new simulation tick.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.current = phaseTimes{}
	p.inPhase = false
}

// StartPhase closes the running phase, if any, and starts timing phase.
func (p *PerfCollector) StartPhase(phase Phase) {
	now := time.Now()
	p.closePhase(now)
	p.phase, p.phaseStart, p.inPhase = phase, now, true
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.inPhase && p.phase < numPhases {
		p.current[p.phase] += now.Sub(p.phaseStart)
	}
}

// EndTick closes the running phase and records the tick.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	p.closePhase(now)
	p.inPhase = false

	p.ticks[p.next] = now.Sub(p.tickStart)
	p.phases[p.next] = p.current
	p.next = (p.next + 1) % len(p.ticks)
	p.filled = min(p.filled+1, len(p.ticks))
}

// PerfStats summarizes the collector's window.
type PerfStats struct {
	AvgTick        time.Duration
	MinTick        time.Duration
	MaxTick        time.Duration
	TicksPerSecond float64

	// PhasePct is each phase's share of total tick time, in percent.
	PhasePct [numPhases]float64
}

// Stats aggregates the recorded ticks. An empty window yields zero stats.
func (p *PerfCollector) Stats() PerfStats {
	if p.filled == 0 {
		return PerfStats{}
	}

	ticks := make([]float64, p.filled)
	var phaseSum phaseTimes
	for i := range ticks {
		ticks[i] = float64(p.ticks[i])
		for ph, d := range p.phases[i] {
			phaseSum[ph] += d
		}
	}

	avg := stat.Mean(ticks, nil)
	s := PerfStats{
		AvgTick: time.Duration(avg),
		MinTick: time.Duration(floats.Min(ticks)),
		MaxTick: time.Duration(floats.Max(ticks)),
	}
	if avg > 0 {
		s.TicksPerSecond = float64(time.Second) / avg
		total := avg * float64(p.filled)
		for ph, sum := range phaseSum {
			s.PhasePct[ph] = float64(sum) / total * 100
		}
	}
	return s
}

// LogStats logs tick timing and every phase above 0.1% of the tick.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_tick_us", s.AvgTick.Microseconds(),
		"max_tick_us", s.MaxTick.Microseconds(),
		"ticks_per_sec", int(s.TicksPerSecond),
	}
	for ph, pct := range s.PhasePct {
		if pct > 0.1 {
			attrs = append(attrs, Phase(ph).String()+"_pct", int(pct*10)/10.0)
		}
	}
	slog.Info("perf", attrs...)
}

// PerfStatsCSV is one perf.csv row.
type PerfStatsCSV struct {
	WindowEnd    int32   `csv:"window_end"`
	AvgTickUS    int64   `csv:"avg_tick_us"`
	MinTickUS    int64   `csv:"min_tick_us"`
	MaxTickUS    int64   `csv:"max_tick_us"`
	TicksPerSec  float64 `csv:"ticks_per_sec"`
	DriftPct     float64 `csv:"drift_pct"`
	HierarchyPct float64 `csv:"hierarchy_pct"`
	SnapshotPct  float64 `csv:"snapshot_pct"`
	SteerPct     float64 `csv:"steer_pct"`
	WriteBackPct float64 `csv:"write_back_pct"`
	TelemetryPct float64 `csv:"telemetry_pct"`
}

// ToCSV flattens s into a perf.csv row for the window ending at windowEnd.
func (s PerfStats) ToCSV(windowEnd int32) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:    windowEnd,
		AvgTickUS:    s.AvgTick.Microseconds(),
		MinTickUS:    s.MinTick.Microseconds(),
		MaxTickUS:    s.MaxTick.Microseconds(),
		TicksPerSec:  s.TicksPerSecond,
		DriftPct:     s.PhasePct[PhaseDrift],
		HierarchyPct: s.PhasePct[PhaseHierarchy],
		SnapshotPct:  s.PhasePct[PhaseSnapshot],
		SteerPct:     s.PhasePct[PhaseSteer],
		WriteBackPct: s.PhasePct[PhaseWriteBack],
		TelemetryPct: s.PhasePct[PhaseTelemetry],
	}
}
