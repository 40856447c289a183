package main

import (
	"errors"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/game"
	"github.com/pthm-cable/flock/telemetry"
)

// invalidFitness is returned for candidates that fail config validation.
// Real fitness lies in [-1, 0].
const invalidFitness = 1.0

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params       *ParamVector
	warmupTicks  int32
	measureTicks int32
	seeds        []int64
	baseConfig   *config.Config

	mu          sync.Mutex
	lastQuality float64 // mean polarization of the most recent evaluation
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, warmupTicks, measureTicks int32, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:       params,
		warmupTicks:  warmupTicks,
		measureTicks: measureTicks,
		seeds:        seeds,
		baseConfig:   baseCfg,
	}
}

// LastQuality returns the mean polarization from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// Evaluate computes fitness for a raw parameter vector (lower = better):
// the negated mean polarization after warm-up, averaged over seeds.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)
	if err := cfg.Refresh(); err != nil {
		if !errors.Is(err, config.ErrInvalid) {
			slog.Error("candidate config", "error", err)
		}
		fe.setQuality(0)
		return invalidFitness
	}

	// Run all seeds in parallel
	results := make([]float64, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			pol, err := fe.runSimulation(cfg, s)
			if err != nil {
				slog.Error("evaluation run", "seed", s, "error", err)
				pol = 0
			}
			results[idx] = pol
		}(i, seed)
	}
	wg.Wait()

	mean := stat.Mean(results, nil)
	fe.setQuality(mean)
	return -mean
}

func (fe *FitnessEvaluator) setQuality(q float64) {
	fe.mu.Lock()
	fe.lastQuality = q
	fe.mu.Unlock()
}

// runSimulation runs one seed and returns the mean per-window polarization
// over windows that close after warm-up.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) (float64, error) {
	var polarizations []float64
	sim, err := game.New(cfg, game.Options{
		Seed:    seed,
		Workers: 1, // seeds already run in parallel
		StatsCallback: func(stats telemetry.WindowStats) {
			if stats.WindowStartTick >= fe.warmupTicks {
				polarizations = append(polarizations, stats.PolarizationMean)
			}
		},
	})
	if err != nil {
		return 0, err
	}
	defer sim.Close()

	sim.Run(int(fe.warmupTicks + fe.measureTicks))

	if len(polarizations) == 0 {
		// Measurement shorter than one window: use the final state.
		return sim.Result().Polarization, nil
	}
	return clamp01(stat.Mean(polarizations, nil)), nil
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return min(max(x, 0), 1)
}
