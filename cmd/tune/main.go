package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/telemetry"
)

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}

func main() {
	configPath := flag.String("config", "", "Base config file, YAML or TOML (empty = use defaults)")
	agents := flag.Int("agents", 60, "Free boids per run")
	warmup := flag.Int("warmup-ticks", 600, "Ticks before polarization is measured")
	measure := flag.Int("measure-ticks", 1800, "Ticks of polarization measurement")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	runDB := flag.String("rundb", "", "SQLite run index (default <output>/runs.db)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if *outputDir == "" {
		fatal("--output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fatal("failed to create output directory", "error", err)
	}

	baseCfg, err := config.Load(*configPath)
	if err != nil {
		fatal("failed to load config", "error", err)
	}
	baseCfg.Population.Initial = *agents
	baseCfg.Population.Anchors = 0
	baseCfg.Population.BoidsPerAnchor = 0
	if err := baseCfg.Refresh(); err != nil {
		fatal("invalid base config", "error", err)
	}

	if *runDB == "" {
		*runDB = filepath.Join(*outputDir, "runs.db")
	}
	index, err := telemetry.OpenRunIndex(*runDB)
	if err != nil {
		fatal("failed to open run index", "error", err)
	}
	defer index.Close()

	ctx := context.Background()
	runID, err := index.BeginRun(ctx, telemetry.RunInfo{
		Kind:      telemetry.RunKindTune,
		Variant:   config.VariantDiscrete,
		Agents:    *agents,
		OutputDir: *outputDir,
	})
	if err != nil {
		fatal("failed to record run", "error", err)
	}

	params := NewParamVector()

	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}

	evaluator := NewFitnessEvaluator(params, int32(*warmup), int32(*measure), evalSeeds, baseCfg)

	dim := params.Dim()
	initX := params.Normalize(params.ExtractFromConfig(baseCfg))

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // Sequential evaluation; seeds run in parallel
	}

	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}

	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}

	tlog, err := newTuneLog(filepath.Join(*outputDir, "tune_log.csv"), params.Names())
	if err != nil {
		fatal("failed to create tune log", "error", err)
	}

	evalCount := 0
	bestFitness := invalidFitness
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Denormalize(x)
			fitness := evaluator.Evaluate(raw)

			clamped := params.Clamp(raw)
			if fitness < bestFitness || bestParams == nil {
				bestFitness = fitness
				bestParams = clamped
			}

			if err := tlog.Record(evalCount, fitness, clamped); err != nil {
				slog.Error("failed to write tune log", "error", err)
			}

			if err := index.RecordEvaluation(ctx, runID, telemetry.Evaluation{
				Index:   evalCount,
				Params:  params.Named(clamped),
				Fitness: fitness,
			}); err != nil {
				slog.Error("failed to record evaluation", "error", err)
			}
			evalCount++

			elapsed := time.Since(startTime)
			remaining := time.Duration(*maxEvals-evalCount) * (elapsed / time.Duration(evalCount))
			slog.Info("evaluation",
				"eval", evalCount,
				"max_evals", *maxEvals,
				"polarization", evaluator.LastQuality(),
				"best", -bestFitness,
				"elapsed", formatDuration(elapsed),
				"eta", formatDuration(remaining),
			)

			return fitness
		},
	}

	slog.Info("starting CMA-ES",
		"params", dim,
		"population", popSize,
		"max_evals", *maxEvals,
		"seeds", *seeds,
		"ticks", *warmup+*measure,
	)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		slog.Warn("optimization ended", "error", err)
	}
	if err := tlog.Close(); err != nil {
		slog.Error("failed to close tune log", "error", err)
	}

	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		fatal("no evaluations completed")
	}

	if err := index.FinishRun(ctx, runID, telemetry.RunResult{
		Ticks:        int32(*warmup + *measure),
		Polarization: -bestFitness,
	}); err != nil {
		slog.Error("failed to finish run", "error", err)
	}
	if best, err := index.BestEvaluation(ctx, runID); err == nil {
		slog.Info("best evaluation", "eval", best.Index, "fitness", best.Fitness, "params", best.Params)
	}

	slog.Info("optimization complete",
		"evals", evalCount,
		"duration", formatDuration(time.Since(startTime)),
		"best_polarization", -bestFitness,
	)

	bestCfg := baseCfg.Clone()
	params.ApplyToConfig(bestCfg, bestParams)
	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		slog.Error("failed to write best config", "error", err)
		return
	}
	slog.Info("best config saved", "path", configOutPath)
}
