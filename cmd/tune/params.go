// Package main tunes the discrete steering parameters with CMA-ES.
package main

import (
	"github.com/pthm-cable/flock/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the discrete steering parameter set.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "speed", Path: "discrete.speed", Min: 0.25, Max: 4.0, Default: 1.0},
			{Name: "minimum_distance", Path: "discrete.minimum_distance", Min: 0.5, Max: 4.0, Default: 2.0},
			{Name: "maximum_distance", Path: "discrete.maximum_distance", Min: 1.0, Max: 6.0, Default: 3.0},
			{Name: "maximum_vision", Path: "discrete.maximum_vision", Min: 2.0, Max: 10.0, Default: 4.0},
			{Name: "rotational_inertia", Path: "discrete.rotational_inertia", Min: 0.2, Max: 4.0, Default: 1.0},
			{Name: "rotational_energy", Path: "discrete.rotational_energy", Min: 0.2, Max: 4.0, Default: 1.0},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// Names returns the parameter names in vector order.
func (pv *ParamVector) Names() []string {
	names := make([]string, len(pv.Specs))
	for i, spec := range pv.Specs {
		names[i] = spec.Name
	}
	return names
}

// Named returns the clamped values keyed by parameter name.
func (pv *ParamVector) Named(values []float64) map[string]float64 {
	clamped := pv.Clamp(values)
	out := make(map[string]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		out[spec.Name] = clamped[i]
	}
	return out
}

// ApplyToConfig applies clamped parameter values to cfg and selects the
// discrete variant. The result may still violate the distance ordering;
// callers validate with cfg.Refresh.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	// Order must match Specs order
	d := &cfg.Discrete
	d.Speed = clamped[0]
	d.MinimumDistance = clamped[1]
	d.MaximumDistance = clamped[2]
	d.MaximumVision = clamped[3]
	d.RotationalInertia = clamped[4]
	d.RotationalEnergy = clamped[5]

	cfg.Flock.Variant = config.VariantDiscrete
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	d := cfg.Discrete
	return []float64{
		d.Speed,
		d.MinimumDistance,
		d.MaximumDistance,
		d.MaximumVision,
		d.RotationalInertia,
		d.RotationalEnergy,
	}
}
