package main

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sph/config"
	"github.com/pthm-cable/sph/sim"
	"github.com/pthm-cable/sph/telemetry"
)

// failedFitness is returned when a run blows up.
const failedFitness = 1e9

// settleFraction is the share of the run ignored before scoring starts.
const settleFraction = 0.75

// FitnessEvaluator runs headless simulations and scores them.
type FitnessEvaluator struct {
	params     *ParamVector
	steps      int
	seeds      []int64
	baseConfig *config.Config

	mu          sync.Mutex
	lastDensity float64
	lastSpeed   float64
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, steps int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		steps:      max(steps, 1),
		seeds:      seeds,
		baseConfig: baseCfg,
	}
}

// LastScores returns the mean density error and mean speed of the most recent evaluation.
func (fe *FitnessEvaluator) LastScores() (densityErr, speed float64) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastDensity, fe.lastSpeed
}

// runResult holds the settled-phase averages of one run.
type runResult struct {
	densityErr float64
	speed      float64
	failed     bool
}

// Evaluate computes fitness for a raw parameter vector (lower = better).
// Seeds run concurrently; each owns its own simulation.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	results := make([]runResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(cfg, s)
		}(i, seed)
	}
	wg.Wait()

	var densityErr, speed float64
	for _, r := range results {
		if r.failed {
			fe.record(math.Inf(1), math.Inf(1))
			return failedFitness
		}
		densityErr += r.densityErr
		speed += r.speed
	}
	n := float64(len(results))
	densityErr /= n
	speed /= n
	fe.record(densityErr, speed)

	return Fitness(densityErr, speed, cfg.Tune.SpeedPenalty)
}

// Fitness combines the density error with a penalty on residual motion.
func Fitness(densityErr, meanSpeed, speedPenalty float64) float64 {
	f := densityErr + speedPenalty*meanSpeed
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return failedFitness
	}
	return f
}

func (fe *FitnessEvaluator) record(densityErr, speed float64) {
	fe.mu.Lock()
	fe.lastDensity = densityErr
	fe.lastSpeed = speed
	fe.mu.Unlock()
}

// runSimulation steps one seeded simulation and averages the scores over
// the settled tail of the run.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) runResult {
	runCfg := *cfg
	// Seeds already run concurrently
	runCfg.Solver.Workers = 1

	s, err := sim.New(&runCfg, sim.Options{Seed: seed})
	if err != nil {
		return runResult{failed: true}
	}
	defer s.Close()

	var (
		densities []float64
		vels      []r2.Vec
		speeds    []float64
		sumErr    float64
		sumSpeed  float64
		samples   int
	)
	settle := int(float64(fe.steps) * settleFraction)
	dt := runCfg.Fluid.Timestep
	target := runCfg.Fluid.TargetDensity

	for step := 0; step < fe.steps; step++ {
		s.Step(dt)
		if step < settle {
			continue
		}

		densities = s.Densities(densities)
		vels = s.Velocities(vels)
		speeds = speeds[:0]
		for _, v := range vels {
			speeds = append(speeds, r2.Norm(v))
		}
		mean, _, _, _, _ := telemetry.ComputeDistribution(speeds)

		sumErr += telemetry.RMSError(densities, target)
		sumSpeed += mean
		samples++
	}

	if samples == 0 {
		return runResult{failed: true}
	}
	r := runResult{
		densityErr: sumErr / float64(samples),
		speed:      sumSpeed / float64(samples),
	}
	r.failed = math.IsNaN(r.densityErr) || math.IsNaN(r.speed)
	return r
}

// copyConfig returns a copy of the base config for one evaluation.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}
