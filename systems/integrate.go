package systems

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sph/components"
	"github.com/pthm-cable/sph/config"
)

// ApplyGravityAndPredict runs the first phase for particles [start, end):
// gravity is added to velocity, then the position is extrapolated one step.
func ApplyGravityAndPredict(p *components.Particles, start, end int, gravity, dt float64) {
	for i := start; i < end; i++ {
		p.Velocity[i].Y -= gravity * dt
		p.Predicted[i] = r2.Add(p.Position[i], r2.Scale(dt, p.Velocity[i]))
	}
}

// Integrate applies the stored acceleration, moves particles [start, end) and
// resolves wall collisions. Returns the number of particles that hit a wall.
func Integrate(p *components.Particles, start, end int, fluid *config.FluidConfig, halfBounds r2.Vec, dt float64) int {
	hits := 0
	for i := start; i < end; i++ {
		p.Velocity[i] = r2.Add(p.Velocity[i], r2.Scale(dt, p.Accel[i]))
		p.Position[i] = r2.Add(p.Position[i], r2.Scale(dt, p.Velocity[i]))
		if ResolveCollisions(&p.Position[i], &p.Velocity[i], halfBounds, fluid.ParticleRadius, fluid.DampingFactor) {
			hits++
		}
	}
	return hits
}
