package main

import (
	"github.com/pthm-cable/forage/config"
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

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Mutation
			{Name: "swap_rate", Path: "mutation.swap_rate", Min: 0.0, Max: 0.3, Default: 0.05},
			{Name: "eps_rate", Path: "mutation.eps_rate", Min: 0.0, Max: 0.5, Default: 0.05},
			{Name: "strength", Path: "mutation.strength", Min: 0.05, Max: 2.0, Default: 0.5},
			{Name: "decay", Path: "mutation.decay", Min: 0.5, Max: 1.0, Default: 0.9},
			// Energy
			{Name: "loss_energy", Path: "energy.loss_energy", Min: 0.01, Max: 0.5, Default: 0.1},
			{Name: "gain_energy", Path: "energy.gain_energy", Min: 2.0, Max: 50.0, Default: 20.0},
			{Name: "spawn_energy_required", Path: "energy.spawn_energy_required", Min: 1.0, Max: 40.0, Default: 3.0},
			{Name: "spawn_chance", Path: "energy.spawn_chance", Min: 0.001, Max: 0.5, Default: 0.1},
			// Resources
			{Name: "growth_rate", Path: "resources.growth_rate", Min: 10, Max: 400, Default: 120},
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
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	i := 0

	cfg.Mutation.SwapRate = clamped[i]
	i++
	cfg.Mutation.EpsRate = clamped[i]
	i++
	cfg.Mutation.Strength = clamped[i]
	i++
	cfg.Mutation.Decay = clamped[i]
	i++

	cfg.Energy.LossEnergy = clamped[i]
	i++
	cfg.Energy.GainEnergy = clamped[i]
	i++
	cfg.Energy.SpawnEnergyRequired = clamped[i]
	i++
	cfg.Energy.SpawnChance = clamped[i]
	i++

	cfg.Resources.GrowthRate = clamped[i]
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Mutation.SwapRate,
		cfg.Mutation.EpsRate,
		cfg.Mutation.Strength,
		cfg.Mutation.Decay,
		cfg.Energy.LossEnergy,
		cfg.Energy.GainEnergy,
		cfg.Energy.SpawnEnergyRequired,
		cfg.Energy.SpawnChance,
		cfg.Resources.GrowthRate,
	}
}
