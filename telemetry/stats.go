package telemetry

import (
	"log/slog"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated flock statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	Agents int `csv:"agents"`

	// Alignment of headings: 1 when every boid flies the same way.
	Polarization     float64 `csv:"polarization"`      // at window end
	PolarizationMean float64 `csv:"polarization_mean"` // over every tick in the window

	// Nearest-neighbor distance, capped at the vision radius
	NearestMean float64 `csv:"nearest_mean"`
	NearestP10  float64 `csv:"nearest_p10"`
	NearestP50  float64 `csv:"nearest_p50"`
	NearestP90  float64 `csv:"nearest_p90"`

	NeighborsMean float64 `csv:"neighbors_mean"`
	IsolatedFrac  float64 `csv:"isolated_frac"` // boids with nobody in range

	GroupRadius float64 `csv:"group_radius"` // mean distance from the centroid

	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
}

// Sample is the per-agent state the host hands over when a window closes.
// All slices are indexed alike.
type Sample struct {
	Headings  []mgl64.Vec3
	Positions []mgl64.Vec3
	Nearest   []float64
	Neighbors []int
	Speeds    []float64
}

// Percentile returns the p-th quantile of a sorted slice by linear
// interpolation. p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	return stat.Quantile(p, stat.LinInterp, sorted, nil)
}

// ComputeDistribution calculates mean and percentiles of values.
func ComputeDistribution(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}

	mean = stat.Mean(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return mean, Percentile(sorted, 0.10), Percentile(sorted, 0.50), Percentile(sorted, 0.90)
}

// Polarization is the length of the mean unit heading. Zero-length headings
// count toward n but add nothing.
func Polarization(headings []mgl64.Vec3) float64 {
	if len(headings) == 0 {
		return 0
	}
	var sum mgl64.Vec3
	for _, h := range headings {
		if l := h.Len(); l > 0 {
			sum = sum.Add(h.Mul(1 / l))
		}
	}
	return sum.Len() / float64(len(headings))
}

// GroupRadius is the mean distance of positions from their centroid.
func GroupRadius(positions []mgl64.Vec3) float64 {
	n := len(positions)
	if n == 0 {
		return 0
	}
	var centroid mgl64.Vec3
	for _, p := range positions {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Mul(1 / float64(n))

	var sum float64
	for _, p := range positions {
		sum += p.Sub(centroid).Len()
	}
	return sum / float64(n)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("agents", s.Agents),
		slog.Float64("polarization", s.Polarization),
		slog.Float64("polarization_mean", s.PolarizationMean),
		slog.Float64("nearest_mean", s.NearestMean),
		slog.Float64("nearest_p10", s.NearestP10),
		slog.Float64("nearest_p50", s.NearestP50),
		slog.Float64("nearest_p90", s.NearestP90),
		slog.Float64("neighbors_mean", s.NeighborsMean),
		slog.Float64("isolated_frac", s.IsolatedFrac),
		slog.Float64("group_radius", s.GroupRadius),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"agents", s.Agents,
		"polarization", s.Polarization,
		"polarization_mean", s.PolarizationMean,
		"nearest_mean", s.NearestMean,
		"nearest_p50", s.NearestP50,
		"neighbors_mean", s.NeighborsMean,
		"isolated_frac", s.IsolatedFrac,
		"group_radius", s.GroupRadius,
		"speed_mean", s.SpeedMean,
	)
}
