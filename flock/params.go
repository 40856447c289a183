package flock

import (
	"errors"
	"fmt"
)

// ErrParams is wrapped by every parameter validation failure.
var ErrParams = errors.New("invalid flock parameters")

// DiscreteParams tunes the pick-one-rule steering model.
type DiscreteParams struct {
	Speed             float64 `yaml:"speed" json:"speed"`
	MinimumDistance   float64 `yaml:"minimum_distance" json:"minimum_distance"`
	MaximumDistance   float64 `yaml:"maximum_distance" json:"maximum_distance"`
	MaximumVision     float64 `yaml:"maximum_vision" json:"maximum_vision"`
	RotationalInertia float64 `yaml:"rotational_inertia" json:"rotational_inertia"`
	RotationalEnergy  float64 `yaml:"rotational_energy" json:"rotational_energy"`
}

// DefaultDiscreteParams returns the stock discrete parameter set.
func DefaultDiscreteParams() DiscreteParams {
	return DiscreteParams{
		Speed:             1.0,
		MinimumDistance:   2.0,
		MaximumDistance:   3.0,
		MaximumVision:     4.0,
		RotationalInertia: 1.0,
		RotationalEnergy:  1.0,
	}
}

// Validate checks positivity and the minimum < maximum <= vision ordering.
// The integrator still runs with invalid values; the thresholds just
// degenerate.
func (p DiscreteParams) Validate() error {
	if err := positive([]field{
		{"speed", p.Speed},
		{"minimum_distance", p.MinimumDistance},
		{"maximum_distance", p.MaximumDistance},
		{"maximum_vision", p.MaximumVision},
		{"rotational_inertia", p.RotationalInertia},
		{"rotational_energy", p.RotationalEnergy},
	}); err != nil {
		return err
	}
	if p.MinimumDistance >= p.MaximumDistance {
		return fmt.Errorf("%w: minimum_distance %g must be below maximum_distance %g",
			ErrParams, p.MinimumDistance, p.MaximumDistance)
	}
	if p.MaximumDistance > p.MaximumVision {
		return fmt.Errorf("%w: maximum_distance %g exceeds maximum_vision %g",
			ErrParams, p.MaximumDistance, p.MaximumVision)
	}
	return nil
}

// FlightParams tunes the continuous flight-dynamics model.
type FlightParams struct {
	Thrust        float64 `yaml:"thrust" json:"thrust"`
	Lift          float64 `yaml:"lift" json:"lift"`
	Gravity       float64 `yaml:"gravity" json:"gravity"`
	Bank          float64 `yaml:"bank" json:"bank"`
	Separation    float64 `yaml:"separation" json:"separation"`
	Alignment     float64 `yaml:"alignment" json:"alignment"`
	Cohesion      float64 `yaml:"cohesion" json:"cohesion"`
	BankRate      float64 `yaml:"bank_rate" json:"bank_rate"`
	RiseRate      float64 `yaml:"rise_rate" json:"rise_rate"`
	MaximumVision float64 `yaml:"maximum_vision" json:"maximum_vision"`
}

// DefaultFlightParams returns the stock flight parameter set. Lift balances
// gravity so a level boid holds altitude.
func DefaultFlightParams() FlightParams {
	return FlightParams{
		Thrust:        2.0,
		Lift:          1.0,
		Gravity:       1.0,
		Bank:          1.0,
		Separation:    1.0,
		Alignment:     1.0,
		Cohesion:      1.0,
		BankRate:      1.0,
		RiseRate:      1.0,
		MaximumVision: 4.0,
	}
}

// Validate checks that every field is strictly positive.
func (p FlightParams) Validate() error {
	return positive([]field{
		{"thrust", p.Thrust},
		{"lift", p.Lift},
		{"gravity", p.Gravity},
		{"bank", p.Bank},
		{"separation", p.Separation},
		{"alignment", p.Alignment},
		{"cohesion", p.Cohesion},
		{"bank_rate", p.BankRate},
		{"rise_rate", p.RiseRate},
		{"maximum_vision", p.MaximumVision},
	})
}

type field struct {
	name  string
	value float64
}

func positive(fields []field) error {
	var errs []error
	for _, f := range fields {
		if !(f.value > 0) {
			errs = append(errs, fmt.Errorf("%w: %s must be > 0, got %g", ErrParams, f.name, f.value))
		}
	}
	return errors.Join(errs...)
}
