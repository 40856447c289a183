package telemetry

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Collector accumulates per-tick flock measurements within time windows and
// produces WindowStats.
type Collector struct {
	windowDurationTicks int32
	dt                  float64

	// Current window tracking
	windowStartTick int32

	polarizationSum   float64
	polarizationTicks int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int32(math.Round(windowDurationSec / dt))
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// RecordTick adds one tick's polarization to the window mean.
func (c *Collector) RecordTick(polarization float64) {
	c.polarizationSum += polarization
	c.polarizationTicks++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats from the end-of-window sample and resets the
// accumulators for the next window.
func (c *Collector) Flush(currentTick int32, s Sample) WindowStats {
	n := len(s.Headings)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,
		Agents:          n,
		Polarization:    Polarization(s.Headings),
		GroupRadius:     GroupRadius(s.Positions),
	}

	if c.polarizationTicks > 0 {
		stats.PolarizationMean = c.polarizationSum / float64(c.polarizationTicks)
	} else {
		stats.PolarizationMean = stats.Polarization
	}

	stats.NearestMean, stats.NearestP10, stats.NearestP50, stats.NearestP90 = ComputeDistribution(s.Nearest)

	if len(s.Neighbors) > 0 {
		var total, isolated int
		for _, k := range s.Neighbors {
			total += k
			if k == 0 {
				isolated++
			}
		}
		stats.NeighborsMean = float64(total) / float64(len(s.Neighbors))
		stats.IsolatedFrac = float64(isolated) / float64(len(s.Neighbors))
	}

	switch len(s.Speeds) {
	case 0:
	case 1:
		stats.SpeedMean = s.Speeds[0]
	default:
		stats.SpeedMean, stats.SpeedStd = stat.MeanStdDev(s.Speeds, nil)
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.polarizationSum = 0
	c.polarizationTicks = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
