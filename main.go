package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/game"
	"github.com/pthm-cable/flock/telemetry"
)

func fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml or config.toml (empty = use defaults)")
	variant := flag.String("variant", "", "Steering variant: discrete or flight (empty = use config)")
	agents := flag.Int("agents", -1, "Free boids to spawn (-1 = use config)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 3600, "Stop after N ticks")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	tracePath := flag.String("trace", "", "Write a zstd JSONL trajectory trace to this file")
	traceEvery := flag.Int("trace-every", 0, "Ticks between trace frames (0 = use config)")
	runDB := flag.String("rundb", "", "Record the run in this SQLite index")
	workers := flag.Int("workers", 0, "Scan workers (0 = use config)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logStats := flag.Bool("log-stats", true, "Log window stats and bookmarks")
	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		fatal("failed to load config", "error", err)
	}
	cfg := config.Cfg()

	if *variant != "" {
		cfg.Flock.Variant = strings.ToLower(*variant)
	}
	if *agents >= 0 {
		cfg.Population.Initial = *agents
	}
	if *traceEvery > 0 {
		cfg.Trace.Every = *traceEvery
	}
	if err := cfg.Refresh(); err != nil {
		fatal("invalid configuration", "error", err)
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	var (
		index *telemetry.RunIndex
		runID int64
		ctx   = context.Background()
	)
	if *runDB != "" {
		var err error
		if index, err = telemetry.OpenRunIndex(*runDB); err != nil {
			fatal("failed to open run index", "error", err)
		}
		defer index.Close()

		snapshot, err := yaml.Marshal(cfg)
		if err != nil {
			fatal("failed to encode config", "error", err)
		}
		outDir := *outputDir
		if outDir != "" {
			if abs, err := filepath.Abs(outDir); err == nil {
				outDir = abs
			}
		}
		if runID, err = index.BeginRun(ctx, telemetry.RunInfo{
			Kind:      telemetry.RunKindSim,
			Variant:   cfg.Flock.Variant,
			Seed:      rngSeed,
			Agents:    cfg.Derived.Population,
			OutputDir: outDir,
			Config:    string(snapshot),
		}); err != nil {
			fatal("failed to record run", "error", err)
		}
	}

	sim, err := game.New(cfg, game.Options{
		Seed:      rngSeed,
		Workers:   *workers,
		OutputDir: *outputDir,
		TracePath: *tracePath,
		LogStats:  *logStats,
	})
	if err != nil {
		fatal("failed to create simulation", "error", err)
	}

	slog.Info("starting headless simulation",
		"seed", rngSeed,
		"variant", cfg.Flock.Variant,
		"agents", cfg.Derived.Population,
		"max_ticks", *maxTicks,
	)

	start := time.Now()
	for int(sim.Tick()) < *maxTicks {
		sim.Step()
	}
	result := sim.Result()

	if err := sim.Close(); err != nil {
		slog.Error("failed to close outputs", "error", err)
	}

	slog.Info("max ticks reached",
		"tick", sim.Tick(),
		"polarization", result.Polarization,
		"group_radius", result.GroupRadius,
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)

	if index != nil {
		if err := index.FinishRun(ctx, runID, result); err != nil {
			slog.Error("failed to finish run", "error", err)
		}
	}
}
