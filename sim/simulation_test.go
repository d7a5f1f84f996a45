package sim

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sph/config"
	"github.com/pthm-cable/sph/systems"
	"github.com/pthm-cable/sph/telemetry"
)

func testConfig(n int) *config.Config {
	cfg := config.Defaults()
	cfg.Fluid.ParticleCount = n
	cfg.Solver.Workers = 1
	cfg.Spawn.Seed = 1
	return cfg
}

func newTestSim(t *testing.T, cfg *config.Config) *Simulation {
	t.Helper()
	s, err := New(cfg, Options{})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(0)
	_, err := New(cfg, Options{})
	if err == nil {
		t.Fatal("expected error for zero particles")
	}
	if !errors.Is(err, config.ErrInvalid) {
		t.Errorf("error %v does not wrap ErrInvalid", err)
	}
}

func TestStillFluidStaysPut(t *testing.T) {
	// Four particles on a 1-unit square, out of each other's reach.
	cfg := testConfig(4)
	cfg.Fluid.Gravity = 0
	cfg.Fluid.ViscosityStrength = 0
	cfg.Fluid.PressureMultiplier = 0
	cfg.Fluid.ParticleRadius = 0.05
	cfg.Spawn.Spacing = 0.9
	cfg.Spawn.Jitter = 0
	s := newTestSim(t, cfg)

	before := s.Positions(nil)
	want := []r2.Vec{{X: -0.5, Y: -0.5}, {X: 0.5, Y: -0.5}, {X: -0.5, Y: 0.5}, {X: 0.5, Y: 0.5}}
	for i, w := range want {
		if math.Abs(before[i].X-w.X) > 1e-12 || math.Abs(before[i].Y-w.Y) > 1e-12 {
			t.Fatalf("spawn Position[%d] = %v, want %v", i, before[i], w)
		}
	}

	for i := 0; i < 20; i++ {
		s.Step(cfg.Fluid.Timestep)
	}
	after := s.Positions(nil)

	for i := range before {
		if before[i] != after[i] {
			t.Errorf("Position[%d] moved from %v to %v", i, before[i], after[i])
		}
	}
	for i, v := range s.Velocities(nil) {
		if v != (r2.Vec{}) {
			t.Errorf("Velocity[%d] = %v, want zero", i, v)
		}
	}
	if s.Tick() != 20 {
		t.Errorf("Tick() = %d, want 20", s.Tick())
	}
	if s.Phase() != PhaseIntegrated {
		t.Errorf("Phase() = %v, want %v", s.Phase(), PhaseIntegrated)
	}
}

func TestBouncingParticleLosesEnergy(t *testing.T) {
	cfg := testConfig(1)
	cfg.Fluid.Bounds = config.Vec2{X: 1, Y: 1}
	cfg.Fluid.DampingFactor = 0.5
	cfg.Fluid.ViscosityStrength = 0
	s := newTestSim(t, cfg)

	dt := cfg.Fluid.Timestep
	floor := -(cfg.Fluid.Bounds.Y - cfg.Fluid.ParticleRadius)

	var bounceSpeeds []float64
	for step := 0; step < 5000 && len(bounceSpeeds) < 3; step++ {
		v0 := s.Velocities(nil)[0].Y
		s.Step(dt)

		pos := s.Positions(nil)[0]
		vel := s.Velocities(nil)[0]
		if pos.Y < floor {
			t.Fatalf("step %d: particle below floor at %f", step, pos.Y)
		}
		if pos.Y != floor || vel.Y <= 0 {
			continue
		}

		impact := v0 - cfg.Fluid.Gravity*dt
		want := -cfg.Fluid.DampingFactor * impact
		if math.Abs(vel.Y-want) > 1e-9 {
			t.Errorf("bounce %d: vel.Y = %f, want %f", len(bounceSpeeds), vel.Y, want)
		}
		bounceSpeeds = append(bounceSpeeds, vel.Y)
	}

	if len(bounceSpeeds) < 3 {
		t.Fatalf("observed %d bounces, want 3", len(bounceSpeeds))
	}
	for k := 1; k < len(bounceSpeeds); k++ {
		if bounceSpeeds[k] >= bounceSpeeds[k-1] {
			t.Errorf("bounce speeds not decreasing: %v", bounceSpeeds)
		}
	}
}

func TestTwoParticlesRepel(t *testing.T) {
	cfg := testConfig(2)
	cfg.Fluid.Gravity = 0
	cfg.Fluid.ViscosityStrength = 0
	cfg.Fluid.TargetDensity = 1
	s := newTestSim(t, cfg)

	start := s.Positions(nil)
	startDist := r2.Norm(r2.Sub(start[1], start[0]))

	for i := 0; i < 30; i++ {
		s.Step(cfg.Fluid.Timestep)
	}

	pos := s.Positions(nil)
	dist := r2.Norm(r2.Sub(pos[1], pos[0]))
	if dist <= startDist {
		t.Errorf("distance = %f, want > %f", dist, startDist)
	}
	if math.Abs(pos[0].X+pos[1].X) > 1e-12 {
		t.Errorf("motion not symmetric: %v, %v", pos[0], pos[1])
	}
	if pos[0].Y != 0 || pos[1].Y != 0 {
		t.Errorf("particles left the x axis: %v, %v", pos[0], pos[1])
	}
}

func TestDeterministicForSeed(t *testing.T) {
	run := func() []r2.Vec {
		cfg := testConfig(200)
		cfg.Spawn.Layout = "random"
		cfg.Spawn.Seed = 5
		s := newTestSim(t, cfg)
		for i := 0; i < 30; i++ {
			s.Step(cfg.Fluid.Timestep)
		}
		return s.Positions(nil)
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Position[%d] differs between runs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	run := func(workers, threshold int) ([]r2.Vec, []float64) {
		cfg := testConfig(500)
		cfg.Spawn.Layout = "random"
		cfg.Solver.Workers = workers
		cfg.Solver.ParallelThreshold = threshold
		s := newTestSim(t, cfg)
		in := Interaction{Point: r2.Vec{X: 1, Y: -1}, Radius: 2, Strength: -50}
		for i := 0; i < 20; i++ {
			s.Step(cfg.Fluid.Timestep)
			s.ApplyInteraction(in, cfg.Fluid.Timestep)
		}
		return s.Positions(nil), s.Densities(nil)
	}

	serialPos, serialDensity := run(1, 0)
	parPos, parDensity := run(4, 1)

	for i := range serialPos {
		if serialPos[i] != parPos[i] {
			t.Fatalf("Position[%d]: serial %v, parallel %v", i, serialPos[i], parPos[i])
		}
		if serialDensity[i] != parDensity[i] {
			t.Fatalf("Density[%d]: serial %f, parallel %f", i, serialDensity[i], parDensity[i])
		}
	}
}

func TestParticlesStayInBounds(t *testing.T) {
	cfg := testConfig(300)
	cfg.Spawn.Layout = "random"
	cfg.Fluid.Bounds = config.Vec2{X: 3, Y: 2}
	s := newTestSim(t, cfg)

	limit := r2.Sub(s.HalfBounds(), r2.Vec{X: s.ParticleRadius(), Y: s.ParticleRadius()})
	in := Interaction{Point: r2.Vec{}, Radius: 3, Strength: -400}

	for frame := 0; frame < 60; frame++ {
		s.Advance(1.0/60, in)
		for i, pos := range s.Positions(nil) {
			if math.Abs(pos.X) > limit.X || math.Abs(pos.Y) > limit.Y {
				t.Fatalf("frame %d: Position[%d] = %v outside %v", frame, i, pos, limit)
			}
			if math.IsNaN(pos.X) || math.IsNaN(pos.Y) {
				t.Fatalf("frame %d: Position[%d] is NaN", frame, i)
			}
		}
	}
}

func TestAdvanceFixedSteps(t *testing.T) {
	cfg := testConfig(4)
	cfg.Solver.MaxStepsPerFrame = 4
	s := newTestSim(t, cfg)
	ts := cfg.Fluid.Timestep

	tests := []struct {
		name    string
		frameDt float64
		want    int
	}{
		{"two and a half steps", 2.5 * ts, 2},
		{"carries remainder", 0.6 * ts, 1},
		{"capped", 100 * ts, 4},
		{"excess dropped", 0.5 * ts, 0},
		{"zero", 0, 0},
		{"negative", -1, 0},
	}
	for _, tt := range tests {
		if got := s.Advance(tt.frameDt, Interaction{}); got != tt.want {
			t.Errorf("%s: Advance = %d steps, want %d", tt.name, got, tt.want)
		}
	}
	if s.Tick() != 7 {
		t.Errorf("Tick() = %d, want 7", s.Tick())
	}
}

func TestInteractionAttracts(t *testing.T) {
	cfg := testConfig(1)
	cfg.Fluid.Gravity = 0
	s := newTestSim(t, cfg)

	in := Interaction{Point: r2.Vec{X: 1}, Radius: 3, Strength: 100}
	s.Advance(cfg.Fluid.Timestep, in)

	if v := s.Velocities(nil)[0]; !(v.X > 0) || math.Abs(v.Y) > 1e-12 {
		t.Errorf("velocity = %v, want +x", v)
	}

	s.Reset()
	s.Advance(cfg.Fluid.Timestep, Interaction{Point: r2.Vec{X: 1}, Radius: 3, Strength: -100})
	if v := s.Velocities(nil)[0]; !(v.X < 0) {
		t.Errorf("velocity = %v, want -x", v)
	}
}

func TestSetFluid(t *testing.T) {
	s := newTestSim(t, testConfig(16))

	f := s.Fluid()
	f.ParticleCount = 17
	if err := s.SetFluid(f); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("changing particle count: err = %v, want ErrInvalid", err)
	}

	f = s.Fluid()
	f.Mass = -1
	if err := s.SetFluid(f); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("negative mass: err = %v, want ErrInvalid", err)
	}

	f = s.Fluid()
	f.ViscosityStrength = 1.25
	f.Bounds = config.Vec2{X: 4, Y: 3}
	if err := s.SetFluid(f); err != nil {
		t.Fatalf("SetFluid error: %v", err)
	}
	if s.Fluid().ViscosityStrength != 1.25 {
		t.Errorf("ViscosityStrength = %f, want 1.25", s.Fluid().ViscosityStrength)
	}
	if s.HalfBounds() != (r2.Vec{X: 4, Y: 3}) {
		t.Errorf("HalfBounds() = %v, want (4, 3)", s.HalfBounds())
	}
}

// densityAtBrute sums every particle's kernel contribution at point.
func densityAtBrute(s *Simulation, point r2.Vec) float64 {
	f := s.Fluid()
	density := 0.0
	for _, p := range s.Positions(nil) {
		density += f.Mass * systems.SmoothingKernel(r2.Norm(r2.Sub(p, point)), f.SmoothingRadius)
	}
	return density
}

func TestSetFluidReindexesForNewRadius(t *testing.T) {
	cfg := testConfig(400)
	cfg.Spawn.Layout = "random"
	s := newTestSim(t, cfg)
	for i := 0; i < 5; i++ {
		s.Step(cfg.Fluid.Timestep)
	}

	tests := []struct {
		name  string
		scale float64
	}{
		{"wider", 3},
		{"narrower", 0.5},
		{"back to start", 1},
	}
	sampler := systems.NewFieldSampler(1, 1, s.HalfBounds())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := s.Fluid()
			f.SmoothingRadius = cfg.Fluid.SmoothingRadius * tt.scale
			if err := s.SetFluid(f); err != nil {
				t.Fatalf("SetFluid error: %v", err)
			}

			s.SampleDensity(sampler)
			got := sampler.At(0, 0)
			want := densityAtBrute(s, r2.Vec{})
			if math.Abs(got-want) > 1e-9*math.Max(want, 1) {
				t.Errorf("density at origin = %f, want %f", got, want)
			}

			densities := s.Densities(nil)
			for i, p := range s.Positions(nil) {
				want := densityAtBrute(s, p)
				if math.Abs(densities[i]-want) > 1e-9*math.Max(want, 1) {
					t.Fatalf("Density[%d] = %f, want %f", i, densities[i], want)
				}
			}
		})
	}
}

func TestSampleSpeed(t *testing.T) {
	cfg := testConfig(300)
	cfg.Spawn.Layout = "random"
	s := newTestSim(t, cfg)

	sampler := systems.NewFieldSampler(12, 8, s.HalfBounds())
	s.SampleSpeed(sampler)
	for i, v := range sampler.Values {
		if v != 0 {
			t.Fatalf("Values[%d] = %f at rest, want 0", i, v)
		}
	}

	// A uniform speed scales the kernel-weighted partition of unity.
	for i := range s.particles.Velocity {
		s.particles.Velocity[i] = r2.Vec{X: 3, Y: 4}
	}
	ones := make([]float64, s.Len())
	for i := range ones {
		ones[i] = 1
	}
	s.SampleSpeed(sampler)

	covered := 0
	for row := 0; row < sampler.Rows; row++ {
		for col := 0; col < sampler.Cols; col++ {
			weight := s.solver.InterpolateAt(sampler.CellCentre(col, row), ones)
			want := 5 * weight
			got := sampler.At(col, row)
			if math.Abs(got-want) > 1e-9 {
				t.Errorf("cell (%d, %d) = %f, want %f", col, row, got, want)
			}
			if weight > 0 {
				covered++
			}
		}
	}
	if covered == 0 {
		t.Error("no sampled cell had particle support")
	}
}

func TestResetRestoresSpawn(t *testing.T) {
	s := newTestSim(t, testConfig(64))
	spawn := s.Positions(nil)

	for i := 0; i < 10; i++ {
		s.Step(s.Fluid().Timestep)
	}
	s.Reset()

	if s.Tick() != 0 {
		t.Errorf("Tick() = %d after reset, want 0", s.Tick())
	}
	for i, pos := range s.Positions(nil) {
		if pos != spawn[i] {
			t.Fatalf("Position[%d] = %v after reset, want %v", i, pos, spawn[i])
		}
	}
	for i, v := range s.Velocities(nil) {
		if v != (r2.Vec{}) {
			t.Fatalf("Velocity[%d] = %v after reset, want zero", i, v)
		}
	}
}

func TestStatsWindowFlushes(t *testing.T) {
	cfg := testConfig(50)
	cfg.Telemetry.StatsWindow = 10 * cfg.Fluid.Timestep
	dir := filepath.Join(t.TempDir(), "out")

	var windows []telemetry.WindowStats
	s, err := New(cfg, Options{
		OutputDir:     dir,
		StatsCallback: func(ws telemetry.WindowStats) { windows = append(windows, ws) },
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	for i := 0; i < 25; i++ {
		s.Step(cfg.Fluid.Timestep)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	if len(windows) != 2 {
		t.Fatalf("got %d windows, want 2", len(windows))
	}
	w := windows[0]
	if w.Steps != 10 || w.Particles != 50 || w.WindowEndTick != 10 {
		t.Errorf("first window = %+v", w)
	}
	if w.DensityMean <= 0 || w.OccupiedCells == 0 {
		t.Errorf("first window has empty samples: %+v", w)
	}
	if want := 10 * cfg.Fluid.Timestep; math.Abs(w.SimTimeSec-want) > 1e-12 {
		t.Errorf("first window SimTimeSec = %f, want %f", w.SimTimeSec, want)
	}

	for _, name := range []string{"telemetry.csv", "perf.csv", "config.yaml"} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil || info.Size() == 0 {
			t.Errorf("%s missing or empty: %v", name, err)
		}
	}
}

func TestPhaseString(t *testing.T) {
	tests := []struct {
		p    Phase
		want string
	}{
		{PhaseIdle, "idle"},
		{PhaseGridBuilt, "grid_built"},
		{PhaseIntegrated, "integrated"},
		{Phase(42), "phase(42)"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", int(tt.p), got, tt.want)
		}
	}
}

func BenchmarkStep(b *testing.B) {
	cfg := config.Defaults()
	cfg.Fluid.ParticleCount = 2000
	cfg.Fluid.Bounds = config.Vec2{X: 12, Y: 8}
	cfg.Spawn.Layout = "random"
	s, err := New(cfg, Options{Seed: 1})
	if err != nil {
		b.Fatal(err)
	}
	defer s.Close()

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		s.Step(cfg.Fluid.Timestep)
	}
}
