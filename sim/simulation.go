// Package sim runs the fluid model: it owns the particle state, the
// neighbour grid and the worker pool, and sequences the solver phases.
package sim

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sph/components"
	"github.com/pthm-cable/sph/config"
	"github.com/pthm-cable/sph/systems"
	"github.com/pthm-cable/sph/telemetry"
)

// Phase is the last completed stage of the current step.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePredicted
	PhaseGridBuilt
	PhaseDensityKnown
	PhaseForcesApplied
	PhaseIntegrated
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePredicted:
		return "predicted"
	case PhaseGridBuilt:
		return "grid_built"
	case PhaseDensityKnown:
		return "density_known"
	case PhaseForcesApplied:
		return "forces_applied"
	case PhaseIntegrated:
		return "integrated"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Interaction is a pointer force request. Positive strength attracts,
// negative repels and zero does nothing.
type Interaction struct {
	Point    r2.Vec
	Radius   float64
	Strength float64
}

// Active reports whether the interaction would exert any force.
func (in Interaction) Active() bool {
	return in.Strength != 0 && in.Radius > 0
}

// Options configures a Simulation beyond the YAML config.
type Options struct {
	Seed          int64  // Overrides spawn.seed when non-zero
	LogStats      bool   // Log window and perf stats via slog
	OutputDir     string // CSV output directory, empty disables
	StatsCallback func(telemetry.WindowStats)
}

// Simulation advances one particle set in fixed or caller-chosen steps.
// It is not safe for concurrent use; Step parallelises internally.
type Simulation struct {
	cfg   config.Config
	fluid config.FluidConfig

	particles *components.Particles
	grid      *systems.SpatialHash
	solver    *systems.Solver
	pool      *workerPool
	counters  []systems.Counters

	seed        int64
	rng         *rand.Rand
	tick        int32
	phase       Phase
	accumulator float64

	// Telemetry
	perf          *telemetry.PerfCollector
	collector     *telemetry.Collector
	output        *telemetry.OutputManager
	logStats      bool
	statsCallback func(telemetry.WindowStats)
	speeds        []float64
	densities     []float64
}

// New validates cfg, allocates the particle set and spawns it.
// cfg is copied; later edits to it have no effect.
func New(cfg *config.Config, opts Options) (*Simulation, error) {
	if err := cfg.Recompute(); err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}

	seed := cfg.Spawn.Seed
	if opts.Seed != 0 {
		seed = opts.Seed
	}

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}
	if err := output.WriteConfig(cfg); err != nil {
		output.Close()
		return nil, fmt.Errorf("sim: writing config: %w", err)
	}

	n := cfg.Fluid.ParticleCount
	pool := newWorkerPool(cfg.Solver.Workers, cfg.Solver.ParallelThreshold)

	s := &Simulation{
		cfg:           *cfg,
		fluid:         cfg.Fluid,
		particles:     components.NewParticles(n),
		grid:          systems.NewSpatialHash(n),
		pool:          pool,
		counters:      make([]systems.Counters, pool.Workers()),
		seed:          seed,
		perf:          telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		collector:     telemetry.NewCollector(cfg.Derived.StatsWindowN),
		output:        output,
		logStats:      opts.LogStats,
		statsCallback: opts.StatsCallback,
	}
	s.solver = systems.NewSolver(s.particles, s.grid, s.fluid, cfg.Solver)
	s.Reset()

	return s, nil
}

// Reset respawns the particles from the seed and restarts the clock.
func (s *Simulation) Reset() {
	s.rng = rand.New(rand.NewSource(s.seed))
	p := s.particles

	p.SeedDirections(s.rng)
	switch s.cfg.Spawn.Layout {
	case "random":
		p.SpawnRandom(s.cfg.Derived.HalfBounds, s.cfg.Spawn.Margin, s.rng)
	default:
		p.SpawnGrid(s.cfg.Derived.GridSpacing, s.cfg.Spawn.Jitter, s.rng)
	}
	p.Reset()

	s.tick = 0
	s.accumulator = 0
	s.collector.Reset()
	s.refreshDensity()
	s.phase = PhaseIdle
}

// refreshDensity indexes the current positions and recomputes densities so
// snapshots are meaningful before the first step.
func (s *Simulation) refreshDensity() {
	p := s.particles
	copy(p.Predicted, p.Position)
	s.grid.Build(p.Predicted, s.fluid.SmoothingRadius, s.pool)
	s.pool.Run(p.Len(), func(start, end, _ int) {
		for i := start; i < end; i++ {
			p.Density[i] = s.solver.CalculateDensity(i)
		}
	})
}

// Step advances the simulation by dt without any pointer interaction.
func (s *Simulation) Step(dt float64) {
	s.step(dt, Interaction{})
}

func (s *Simulation) step(dt float64, in Interaction) {
	p := s.particles
	n := p.Len()
	fluid := &s.fluid
	halfBounds := s.cfg.Derived.HalfBounds

	s.perf.StartTick()

	s.perf.StartPhase(telemetry.PhasePredict)
	s.pool.Run(n, func(start, end, _ int) {
		systems.ApplyGravityAndPredict(p, start, end, fluid.Gravity, dt)
	})
	s.phase = PhasePredicted

	s.perf.StartPhase(telemetry.PhaseSpatialGrid)
	s.grid.Build(p.Predicted, fluid.SmoothingRadius, s.pool)
	s.phase = PhaseGridBuilt

	s.perf.StartPhase(telemetry.PhaseDensity)
	s.pool.Run(n, func(start, end, _ int) {
		for i := start; i < end; i++ {
			p.Density[i] = s.solver.CalculateDensity(i)
		}
	})
	s.phase = PhaseDensityKnown

	s.perf.StartPhase(telemetry.PhaseForces)
	clear(s.counters)
	s.pool.Run(n, func(start, end, worker int) {
		c := &s.counters[worker]
		for i := start; i < end; i++ {
			p.Accel[i] = s.solver.Acceleration(i, c)
		}
	})
	s.phase = PhaseForcesApplied

	s.perf.StartPhase(telemetry.PhaseIntegrate)
	s.pool.Run(n, func(start, end, worker int) {
		s.counters[worker].Collisions += systems.Integrate(p, start, end, fluid, halfBounds, dt)
	})
	s.phase = PhaseIntegrated

	if in.Active() {
		s.perf.StartPhase(telemetry.PhaseInteraction)
		s.ApplyInteraction(in, dt)
		s.collector.RecordInteraction()
	}

	s.tick++

	s.perf.StartPhase(telemetry.PhaseTelemetry)
	var total systems.Counters
	for _, c := range s.counters {
		total.Add(c)
	}
	s.collector.RecordStep(dt, total.Collisions, total.Fallbacks, total.FloorHits)
	s.flushTelemetry()

	s.perf.EndTick()
}

// ApplyInteraction folds the pointer force into velocities over dt.
func (s *Simulation) ApplyInteraction(in Interaction, dt float64) {
	if !in.Active() {
		return
	}
	vel := s.particles.Velocity
	for i := range vel {
		f := s.solver.InteractionForce(in.Point, in.Radius, in.Strength, i)
		vel[i] = r2.Add(vel[i], r2.Scale(dt, f))
	}
}

// Advance consumes frameDt of wall time in fixed timesteps, applying in after
// each step. At most solver.max_steps_per_frame steps run; any time beyond
// that is dropped. Returns the number of steps taken.
func (s *Simulation) Advance(frameDt float64, in Interaction) int {
	if !(frameDt > 0) || math.IsInf(frameDt, 0) {
		return 0
	}
	ts := s.fluid.Timestep
	s.accumulator += frameDt

	steps := 0
	for s.accumulator >= ts && steps < s.cfg.Solver.MaxStepsPerFrame {
		s.step(ts, in)
		s.accumulator -= ts
		steps++
	}
	if s.accumulator >= ts {
		s.accumulator = 0
	}
	return steps
}

// SetFluid swaps the fluid parameters between steps. The particle count is
// fixed for the lifetime of the simulation. Changing the smoothing radius or
// mass reindexes the particles and refreshes their densities.
func (s *Simulation) SetFluid(f config.FluidConfig) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if f.ParticleCount != s.particles.Len() {
		return fmt.Errorf("%w: particle_count cannot change from %d to %d",
			config.ErrInvalid, s.particles.Len(), f.ParticleCount)
	}
	s.cfg.Fluid = f
	if err := s.cfg.Recompute(); err != nil {
		return err
	}
	prev := s.fluid
	s.fluid = f
	s.solver.Fluid = f
	s.collector.SetWindow(s.cfg.Derived.StatsWindowN)

	// The grid cell size tracks the smoothing radius.
	if f.SmoothingRadius != prev.SmoothingRadius || f.Mass != prev.Mass {
		s.refreshDensity()
	}
	return nil
}

// Fluid returns the active fluid parameters.
func (s *Simulation) Fluid() config.FluidConfig {
	return s.fluid
}

// Config returns a copy of the active configuration.
func (s *Simulation) Config() config.Config {
	return s.cfg
}

// Positions copies particle positions into dst, reusing its storage.
func (s *Simulation) Positions(dst []r2.Vec) []r2.Vec {
	return s.particles.CopyPositions(dst)
}

// Velocities copies particle velocities into dst, reusing its storage.
func (s *Simulation) Velocities(dst []r2.Vec) []r2.Vec {
	return s.particles.CopyVelocities(dst)
}

// Densities copies the densities of the last step into dst.
func (s *Simulation) Densities(dst []float64) []float64 {
	return s.particles.CopyDensities(dst)
}

// ParticleRadius returns the collision and draw radius of a particle.
func (s *Simulation) ParticleRadius() float64 {
	return s.fluid.ParticleRadius
}

// HalfBounds returns the half extents of the box.
func (s *Simulation) HalfBounds() r2.Vec {
	return s.cfg.Derived.HalfBounds
}

// SampleDensity fills f with the density field of the last step.
func (s *Simulation) SampleDensity(f *systems.FieldSampler) {
	f.SampleDensity(s.solver, s.pool)
}

// SampleSpeed fills f with the particle speed field interpolated through
// the smoothing kernel.
func (s *Simulation) SampleSpeed(f *systems.FieldSampler) {
	s.updateSpeeds()
	f.SampleValues(s.solver, s.speeds, s.pool)
}

// Len returns the particle count.
func (s *Simulation) Len() int {
	return s.particles.Len()
}

// Tick returns the number of completed steps since the last reset.
func (s *Simulation) Tick() int32 {
	return s.tick
}

// Phase returns the last completed stage.
func (s *Simulation) Phase() Phase {
	return s.phase
}

// Seed returns the RNG seed used for spawning.
func (s *Simulation) Seed() int64 {
	return s.seed
}

// PerfStats returns timing statistics over the recent window.
func (s *Simulation) PerfStats() telemetry.PerfStats {
	return s.perf.Stats()
}

// Close stops the worker pool and closes output files.
func (s *Simulation) Close() error {
	s.pool.stop()
	return s.output.Close()
}
