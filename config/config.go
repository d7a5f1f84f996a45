// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is wrapped by every error returned from Validate.
var ErrInvalid = errors.New("invalid config")

// Config holds all simulation configuration parameters.
type Config struct {
	Screen      ScreenConfig      `yaml:"screen"`
	Fluid       FluidConfig       `yaml:"fluid"`
	Spawn       SpawnConfig       `yaml:"spawn"`
	Interaction InteractionConfig `yaml:"interaction"`
	Solver      SolverConfig      `yaml:"solver"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Tune        TuneConfig        `yaml:"tune"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	TargetFPS     int     `yaml:"target_fps"`
	PixelsPerUnit float64 `yaml:"pixels_per_unit"` // Initial camera zoom
}

// Vec2 is the YAML form of a 2D vector.
type Vec2 struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// R2 converts to a gonum vector.
func (v Vec2) R2() r2.Vec {
	return r2.Vec{X: v.X, Y: v.Y}
}

// FluidConfig holds the SPH parameters. These are read-only during a step but
// may be swapped between steps (see sim.Simulation.SetFluid).
type FluidConfig struct {
	ParticleCount      int     `yaml:"particle_count"`
	SmoothingRadius    float64 `yaml:"smoothing_radius"`
	ParticleRadius     float64 `yaml:"particle_radius"` // Collision and draw size
	Gravity            float64 `yaml:"gravity"`         // Magnitude, applied along -Y
	Mass               float64 `yaml:"mass"`
	DampingFactor      float64 `yaml:"damping_factor"` // Velocity retained on bounce, (0, 1]
	Bounds             Vec2    `yaml:"bounds"`         // Half extents of the box, centred on the origin
	ViscosityStrength  float64 `yaml:"viscosity_strength"`
	TargetDensity      float64 `yaml:"target_density"`
	PressureMultiplier float64 `yaml:"pressure_multiplier"`
	Timestep           float64 `yaml:"timestep"`
}

// SpawnConfig controls initial particle placement.
type SpawnConfig struct {
	Layout  string  `yaml:"layout"`  // "grid" or "random"
	Spacing float64 `yaml:"spacing"` // Gap between particle edges for grid layout
	Jitter  float64 `yaml:"jitter"`  // Max random offset for grid layout
	Margin  float64 `yaml:"margin"`  // Distance kept from the walls for random layout
	Seed    int64   `yaml:"seed"`    // 0 = caller decides
}

// InteractionConfig holds pointer interaction parameters.
type InteractionConfig struct {
	Radius   float64 `yaml:"radius"`
	Strength float64 `yaml:"strength"`
}

// SolverConfig holds numerical and scheduling parameters.
type SolverConfig struct {
	Workers           int     `yaml:"workers"`            // 0 = GOMAXPROCS
	ParallelThreshold int     `yaml:"parallel_threshold"` // Below this many particles phases run inline
	DensityFloor      float64 `yaml:"density_floor"`      // Lower clamp for densities used as divisors
	MinDistance       float64 `yaml:"min_distance"`       // Pair distance treated as coincident
	MaxStepsPerFrame  int     `yaml:"max_steps_per_frame"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// TuneConfig holds parameters for cmd/tune.
type TuneConfig struct {
	Steps         int     `yaml:"steps"`
	SpeedPenalty  float64 `yaml:"speed_penalty"`
	PressureMin   float64 `yaml:"pressure_min"`
	PressureMax   float64 `yaml:"pressure_max"`
	ViscosityMin  float64 `yaml:"viscosity_min"`
	ViscosityMax  float64 `yaml:"viscosity_max"`
	MaxIterations int     `yaml:"max_iterations"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	HalfBounds   r2.Vec  // Fluid.Bounds as a vector
	GridSpacing  float64 // Effective grid spawn spacing
	StatsWindowN int     // Steps per telemetry window
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

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Defaults returns a fresh copy of the embedded defaults.
func Defaults() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are broken: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
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
		// Unmarshal into same struct - only overwrites fields present in file
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

// Validate reports configuration that would make the solver meaningless.
// Numerical edge cases inside a step are never errors; only these are.
func (c *Config) Validate() error {
	if err := c.Fluid.Validate(); err != nil {
		return err
	}
	switch c.Spawn.Layout {
	case "", "grid", "random":
	default:
		return fmt.Errorf("%w: spawn.layout %q (want grid or random)", ErrInvalid, c.Spawn.Layout)
	}
	if c.Solver.DensityFloor <= 0 {
		return fmt.Errorf("%w: solver.density_floor must be positive, got %g", ErrInvalid, c.Solver.DensityFloor)
	}
	if c.Solver.MinDistance < 0 {
		return fmt.Errorf("%w: solver.min_distance must not be negative, got %g", ErrInvalid, c.Solver.MinDistance)
	}
	return nil
}

// Validate checks the fluid parameters on their own, so they can be checked
// when swapped in between steps.
func (f *FluidConfig) Validate() error {
	switch {
	case f.ParticleCount <= 0:
		return fmt.Errorf("%w: fluid.particle_count must be positive, got %d", ErrInvalid, f.ParticleCount)
	case !(f.SmoothingRadius > 0):
		return fmt.Errorf("%w: fluid.smoothing_radius must be positive, got %g", ErrInvalid, f.SmoothingRadius)
	case f.ParticleRadius < 0:
		return fmt.Errorf("%w: fluid.particle_radius must not be negative, got %g", ErrInvalid, f.ParticleRadius)
	case !(f.Mass > 0):
		return fmt.Errorf("%w: fluid.mass must be positive, got %g", ErrInvalid, f.Mass)
	case !(f.DampingFactor > 0) || f.DampingFactor > 1:
		return fmt.Errorf("%w: fluid.damping_factor must be in (0, 1], got %g", ErrInvalid, f.DampingFactor)
	case f.Bounds.X <= f.ParticleRadius || f.Bounds.Y <= f.ParticleRadius:
		return fmt.Errorf("%w: fluid.bounds (%g, %g) must exceed particle_radius %g",
			ErrInvalid, f.Bounds.X, f.Bounds.Y, f.ParticleRadius)
	case !(f.TargetDensity > 0):
		return fmt.Errorf("%w: fluid.target_density must be positive, got %g", ErrInvalid, f.TargetDensity)
	case !(f.Timestep > 0) || math.IsInf(f.Timestep, 0):
		return fmt.Errorf("%w: fluid.timestep must be positive, got %g", ErrInvalid, f.Timestep)
	case f.ViscosityStrength < 0:
		return fmt.Errorf("%w: fluid.viscosity_strength must not be negative, got %g", ErrInvalid, f.ViscosityStrength)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.HalfBounds = c.Fluid.Bounds.R2()

	spacing := c.Spawn.Spacing
	if spacing <= 0 {
		spacing = 0.1
	}
	c.Derived.GridSpacing = c.Fluid.ParticleRadius*2 + spacing

	if c.Spawn.Layout == "" {
		c.Spawn.Layout = "grid"
	}
	if c.Solver.MaxStepsPerFrame < 1 {
		c.Solver.MaxStepsPerFrame = 1
	}

	c.Derived.StatsWindowN = max(int(math.Round(c.Telemetry.StatsWindow/c.Fluid.Timestep)), 1)
}

// Recompute refreshes derived values after fields were edited in place.
func (c *Config) Recompute() error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.computeDerived()
	return nil
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
