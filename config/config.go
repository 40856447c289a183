// Package config provides configuration loading and access for the simulation.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/flock/flock"
)

//go:embed defaults.yaml
var defaultsYAML []byte

//go:embed config.schema.json
var schemaJSON []byte

const schemaURL = "mem://flock/config.schema.json"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Steering variants.
const (
	VariantDiscrete = "discrete"
	VariantFlight   = "flight"
)

// Config holds all simulation configuration parameters.
type Config struct {
	Physics    PhysicsConfig        `yaml:"physics"`
	Flock      FlockConfig          `yaml:"flock"`
	Discrete   flock.DiscreteParams `yaml:"discrete"`
	Flight     flock.FlightParams   `yaml:"flight"`
	Population PopulationConfig     `yaml:"population"`
	Telemetry  TelemetryConfig      `yaml:"telemetry"`
	Trace      TraceConfig          `yaml:"trace"`
	Bookmarks  BookmarksConfig      `yaml:"bookmarks"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// PhysicsConfig holds the fixed timestep.
type PhysicsConfig struct {
	DT float64 `yaml:"dt"` // seconds per tick
}

// FlockConfig selects the steering model.
type FlockConfig struct {
	Variant string `yaml:"variant"` // discrete | flight
	Workers int    `yaml:"workers"` // 0 = GOMAXPROCS
}

// PopulationConfig controls the initial spawn.
type PopulationConfig struct {
	Initial        int     `yaml:"initial"`          // free boids
	SpawnRadius    float64 `yaml:"spawn_radius"`     // boids start inside this sphere
	Anchors        int     `yaml:"anchors"`          // drifting parents
	BoidsPerAnchor int     `yaml:"boids_per_anchor"` // children spawned under each anchor
	AnchorSpeed    float64 `yaml:"anchor_speed"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"` // seconds
	BookmarkHistorySize int     `yaml:"bookmark_history_size"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// TraceConfig controls trajectory export.
type TraceConfig struct {
	Every int `yaml:"every"` // ticks between frames
}

// BookmarksConfig holds bookmark detection thresholds.
type BookmarksConfig struct {
	FlockFormed    FlockFormedConfig    `yaml:"flock_formed"`
	FlockScattered FlockScatteredConfig `yaml:"flock_scattered"`
	StableFlock    StableFlockConfig    `yaml:"stable_flock"`
}

// FlockFormedConfig fires when polarization first rises past Threshold.
type FlockFormedConfig struct {
	Threshold float64 `yaml:"threshold"`
}

// FlockScatteredConfig fires when polarization falls by DropFraction from a
// recent peak of at least MinPeak.
type FlockScatteredConfig struct {
	DropFraction float64 `yaml:"drop_fraction"`
	MinPeak      float64 `yaml:"min_peak"`
}

// StableFlockConfig fires once polarization has stayed above MinPolarization
// with a low coefficient of variation for Windows consecutive windows.
type StableFlockConfig struct {
	MinPolarization float64 `yaml:"min_polarization"`
	CVThreshold     float64 `yaml:"cv_threshold"`
	Windows         int     `yaml:"windows"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	WindowTicks int32 // Telemetry.StatsWindow in ticks, at least 1
	Population  int   // Initial + Anchors*BoidsPerAnchor
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load reads a YAML or TOML file over the embedded defaults and validates the
// result. Only fields present in the file overwrite defaults. If path is
// empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if strings.EqualFold(filepath.Ext(path), ".toml") {
			if data, err = tomlToYAML(data); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.computeDerived()
	return cfg, nil
}

// tomlToYAML re-encodes a TOML document as YAML so both formats share the
// yaml field tags and the overlay semantics.
func tomlToYAML(data []byte) ([]byte, error) {
	var doc map[string]any
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

// Validate checks the config against the embedded schema, then the ordering
// invariants of the parameter sets.
func (c *Config) Validate() error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("re-reading config: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	switch c.Flock.Variant {
	case VariantDiscrete:
		if err := c.Discrete.Validate(); err != nil {
			return fmt.Errorf("%w: discrete: %w", ErrInvalid, err)
		}
	case VariantFlight:
		if err := c.Flight.Validate(); err != nil {
			return fmt.Errorf("%w: flight: %w", ErrInvalid, err)
		}
	}
	return nil
}

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("loading config schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compiling config schema: %w", err)
	}
	return schema, nil
}

// Refresh re-validates c after in-place overrides and recomputes the derived
// values.
func (c *Config) Refresh() error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.computeDerived()
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	ticks := int32(math.Round(c.Telemetry.StatsWindow / c.Physics.DT))
	if ticks < 1 {
		ticks = 1
	}
	c.Derived.WindowTicks = ticks
	c.Derived.Population = c.Population.Initial + c.Population.Anchors*c.Population.BoidsPerAnchor
}

// Policy builds the steering policy for the configured variant.
func (c *Config) Policy() (flock.Policy, error) {
	switch c.Flock.Variant {
	case VariantDiscrete:
		return flock.NewDiscrete(c.Discrete), nil
	case VariantFlight:
		return flock.NewFlight(c.Flight), nil
	default:
		return nil, fmt.Errorf("%w: unknown variant %q", ErrInvalid, c.Flock.Variant)
	}
}

// Clone returns a copy of c. Config has no reference fields.
func (c *Config) Clone() *Config {
	out := *c
	return &out
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
