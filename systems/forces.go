package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sph/components"
	"github.com/pthm-cable/sph/config"
)

// Counters tallies guarded numerical events. Each worker owns one.
type Counters struct {
	Fallbacks  int // Coincident pairs that used the fallback direction
	FloorHits  int // Own densities clamped to the floor before dividing
	Collisions int // Particles corrected by the boundary
}

// Add accumulates o into c.
func (c *Counters) Add(o Counters) {
	c.Fallbacks += o.Fallbacks
	c.FloorHits += o.FloorHits
	c.Collisions += o.Collisions
}

// Solver evaluates SPH quantities for single particles. Every method reads
// shared state and returns a value; none of them write particle state, so
// they are safe to call concurrently for different i.
type Solver struct {
	Particles *components.Particles
	Grid      *SpatialHash

	Fluid        config.FluidConfig
	DensityFloor float64
	MinDistance  float64
}

// NewSolver wires a solver to particle state and the grid built over Predicted.
func NewSolver(p *components.Particles, grid *SpatialHash, fluid config.FluidConfig, solver config.SolverConfig) *Solver {
	return &Solver{
		Particles:    p,
		Grid:         grid,
		Fluid:        fluid,
		DensityFloor: solver.DensityFloor,
		MinDistance:  solver.MinDistance,
	}
}

// SafeDensity returns d, or the density floor when d is unusable as a divisor.
func (s *Solver) SafeDensity(d float64) float64 {
	if math.IsNaN(d) || math.IsInf(d, 0) || d < s.DensityFloor {
		return s.DensityFloor
	}
	return d
}

// DensityAt sums kernel-weighted mass around point.
func (s *Solver) DensityAt(point r2.Vec) float64 {
	h := s.Fluid.SmoothingRadius
	mass := s.Fluid.Mass
	pred := s.Particles.Predicted

	density := 0.0
	s.Grid.Query(point, h, func(j int) {
		dst := r2.Norm(r2.Sub(pred[j], point))
		density += mass * SmoothingKernel(dst, h)
	})
	return density
}

// CalculateDensity returns the density at particle i's predicted position.
// The particle's own contribution is included.
func (s *Solver) CalculateDensity(i int) float64 {
	return s.DensityAt(s.Particles.Predicted[i])
}

// InterpolateAt estimates a per-particle quantity at point.
// values must be indexed like the particles.
func (s *Solver) InterpolateAt(point r2.Vec, values []float64) float64 {
	h := s.Fluid.SmoothingRadius
	mass := s.Fluid.Mass
	pred := s.Particles.Predicted
	density := s.Particles.Density

	sum := 0.0
	s.Grid.Query(point, h, func(j int) {
		dst := r2.Norm(r2.Sub(pred[j], point))
		sum += values[j] * SmoothingKernel(dst, h) * mass / s.SafeDensity(density[j])
	})
	return sum
}

// ConvertDensityToPressure maps density error to pressure. Pressure is
// positive when the fluid is under-dense.
func (s *Solver) ConvertDensityToPressure(density float64) float64 {
	return -(density - s.Fluid.TargetDensity) * s.Fluid.PressureMultiplier
}

// CalculateSharedPressure averages the pressures of two densities so that
// paired forces are equal and opposite.
func (s *Solver) CalculateSharedPressure(densityA, densityB float64) float64 {
	return (s.ConvertDensityToPressure(densityA) + s.ConvertDensityToPressure(densityB)) / 2
}

// CalculatePressureForce returns the pressure force on particle i.
// Densities must be current.
func (s *Solver) CalculatePressureForce(i int) r2.Vec {
	return s.pressureForce(i, nil)
}

func (s *Solver) pressureForce(i int, c *Counters) r2.Vec {
	h := s.Fluid.SmoothingRadius
	mass := s.Fluid.Mass
	pred := s.Particles.Predicted
	density := s.Particles.Density
	origin := pred[i]
	di := density[i]

	var force r2.Vec
	s.Grid.Query(origin, h, func(j int) {
		if j == i {
			return
		}
		offset := r2.Sub(pred[j], origin)
		dst := r2.Norm(offset)

		var dir r2.Vec
		if dst <= s.MinDistance {
			dir = s.Particles.RandomDir[i]
			if c != nil {
				c.Fallbacks++
			}
		} else {
			dir = r2.Scale(1/dst, offset)
		}

		slope := SmoothingKernelDerivative(dst, h)
		dj := density[j]
		shared := s.CalculateSharedPressure(di, dj)
		force = r2.Add(force, r2.Scale(-shared*slope*mass/s.SafeDensity(dj), dir))
	})
	return force
}

// CalculateViscosityForce pulls particle i's velocity toward its neighbours'.
func (s *Solver) CalculateViscosityForce(i int) r2.Vec {
	if s.Fluid.ViscosityStrength == 0 {
		return r2.Vec{}
	}
	h := s.Fluid.SmoothingRadius
	pred := s.Particles.Predicted
	vel := s.Particles.Velocity
	origin := pred[i]
	vi := vel[i]

	var force r2.Vec
	s.Grid.Query(origin, h, func(j int) {
		if j == i {
			return
		}
		dst := r2.Norm(r2.Sub(pred[j], origin))
		w := ViscositySmoothingKernel(dst, h)
		force = r2.Add(force, r2.Scale(w, r2.Sub(vel[j], vi)))
	})
	return r2.Scale(s.Fluid.ViscosityStrength, force)
}

// Acceleration returns (pressure + viscosity) / density for particle i and
// tallies guarded events into c, which may be nil.
func (s *Solver) Acceleration(i int, c *Counters) r2.Vec {
	force := r2.Add(s.pressureForce(i, c), s.CalculateViscosityForce(i))
	d := s.Particles.Density[i]
	safe := s.SafeDensity(d)
	if c != nil && safe != d {
		c.FloorHits++
	}
	return r2.Scale(1/safe, force)
}

// InteractionForce returns the pointer force on particle i. It is zero
// outside radius and fades linearly to zero at the edge.
func (s *Solver) InteractionForce(point r2.Vec, radius, strength float64, i int) r2.Vec {
	pos := s.Particles.Position[i]
	offset := r2.Sub(point, pos)
	sqrDst := r2.Norm2(offset)
	if !(sqrDst < radius*radius) {
		return r2.Vec{}
	}

	dst := math.Sqrt(sqrDst)
	var dir r2.Vec
	if dst > s.MinDistance {
		dir = r2.Scale(1/dst, offset)
	}
	centreT := 1 - dst/radius
	return r2.Scale(centreT, r2.Sub(r2.Scale(strength, dir), s.Particles.Velocity[i]))
}
