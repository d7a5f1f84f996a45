package viewer

import "github.com/pthm-cable/sph/config"

// FluidParam describes one live-editable fluid parameter for the slider panel.
type FluidParam struct {
	Label string
	Min   float64
	Max   float64
	Get   func(*config.FluidConfig) float64
	Set   func(*config.FluidConfig, float64)
}

// Apply clamps v to the parameter range and writes it to f.
// Reports whether the stored value changed.
func (p FluidParam) Apply(f *config.FluidConfig, v float64) bool {
	v = min(max(v, p.Min), p.Max)
	if p.Get(f) == v {
		return false
	}
	p.Set(f, v)
	return true
}

// FluidParams lists the sliders shown in the panel.
var FluidParams = []FluidParam{
	{
		Label: "Viscosity",
		Min:   0, Max: 2,
		Get: func(f *config.FluidConfig) float64 { return f.ViscosityStrength },
		Set: func(f *config.FluidConfig, v float64) { f.ViscosityStrength = v },
	},
	{
		Label: "Pressure multiplier",
		Min:   0, Max: 200,
		Get: func(f *config.FluidConfig) float64 { return f.PressureMultiplier },
		Set: func(f *config.FluidConfig, v float64) { f.PressureMultiplier = v },
	},
	{
		Label: "Target density",
		Min:   0.5, Max: 50,
		Get: func(f *config.FluidConfig) float64 { return f.TargetDensity },
		Set: func(f *config.FluidConfig, v float64) { f.TargetDensity = v },
	},
	{
		Label: "Gravity",
		Min:   -20, Max: 20,
		Get: func(f *config.FluidConfig) float64 { return f.Gravity },
		Set: func(f *config.FluidConfig, v float64) { f.Gravity = v },
	},
	{
		Label: "Smoothing radius",
		Min:   0.1, Max: 2,
		Get: func(f *config.FluidConfig) float64 { return f.SmoothingRadius },
		Set: func(f *config.FluidConfig, v float64) { f.SmoothingRadius = v },
	},
}
