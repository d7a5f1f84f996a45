package main

import "github.com/pthm-cable/sph/config"

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string  // Column name in the log
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Starting value
}

// ParamVector holds the set of tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector builds the search space from the tune section of cfg.
// Defaults come from the fluid section, clamped into range.
func NewParamVector(cfg *config.Config) *ParamVector {
	t := cfg.Tune
	pv := &ParamVector{
		Specs: []ParamSpec{
			{Name: "pressure_multiplier", Path: "fluid.pressure_multiplier", Min: t.PressureMin, Max: t.PressureMax},
			{Name: "viscosity_strength", Path: "fluid.viscosity_strength", Min: t.ViscosityMin, Max: t.ViscosityMax},
		},
	}
	defaults := pv.Clamp(pv.ExtractFromConfig(cfg))
	for i := range pv.Specs {
		pv.Specs[i].Default = defaults[i]
	}
	return pv
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the starting values.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize maps raw values to [0,1]. A degenerate range maps to 0.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		if span := spec.Max - spec.Min; span > 0 {
			normalized[i] = (raw[i] - spec.Min) / span
		}
	}
	return normalized
}

// Denormalize maps [0,1] values back to raw values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp returns v with every value inside its bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes clamped values into cfg. Order matches Specs.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	cfg.Fluid.PressureMultiplier = clamped[0]
	cfg.Fluid.ViscosityStrength = clamped[1]
}

// ExtractFromConfig reads the current values from cfg. Order matches Specs.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Fluid.PressureMultiplier,
		cfg.Fluid.ViscosityStrength,
	}
}
