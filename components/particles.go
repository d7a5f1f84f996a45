// Package components defines the particle state owned by the simulation.
package components

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"
)

// Particles holds the per-particle state as parallel arrays.
// Index i is the particle's only identity and never changes meaning.
type Particles struct {
	Position  []r2.Vec
	Velocity  []r2.Vec
	Predicted []r2.Vec  // Position estimate used for the density/force phases
	Density   []float64 // Valid from the density phase until the end of the step
	Accel     []r2.Vec  // Force phase output, consumed by the integrate phase
	RandomDir []r2.Vec  // Fixed unit fallback direction for coincident pairs
}

// NewParticles allocates state for n particles. All slots start at zero.
func NewParticles(n int) *Particles {
	return &Particles{
		Position:  make([]r2.Vec, n),
		Velocity:  make([]r2.Vec, n),
		Predicted: make([]r2.Vec, n),
		Density:   make([]float64, n),
		Accel:     make([]r2.Vec, n),
		RandomDir: make([]r2.Vec, n),
	}
}

// Len returns the particle count.
func (p *Particles) Len() int {
	return len(p.Position)
}

// SeedDirections draws one random unit vector per particle.
// They are reused for the lifetime of the run so results stay reproducible for a seed.
func (p *Particles) SeedDirections(rng *rand.Rand) {
	for i := range p.RandomDir {
		angle := rng.Float64() * 2 * math.Pi
		p.RandomDir[i] = r2.Vec{X: math.Cos(angle), Y: math.Sin(angle)}
	}
}

// SpawnGrid places particles in a centred block, row by row.
// spacing is the distance between neighbouring particle centres.
func (p *Particles) SpawnGrid(spacing, jitter float64, rng *rand.Rand) {
	n := p.Len()
	if n == 0 {
		return
	}
	perRow := int(math.Ceil(math.Sqrt(float64(n))))
	perCol := (n + perRow - 1) / perRow

	for i := 0; i < n; i++ {
		x := (float64(i%perRow) - float64(perRow-1)/2) * spacing
		y := (float64(i/perRow) - float64(perCol-1)/2) * spacing
		if jitter > 0 && rng != nil {
			x += (rng.Float64()*2 - 1) * jitter
			y += (rng.Float64()*2 - 1) * jitter
		}
		p.Position[i] = r2.Vec{X: x, Y: y}
		p.Velocity[i] = r2.Vec{}
	}
	p.syncPredicted()
}

// SpawnRandom scatters particles uniformly inside the bounds, keeping margin
// away from the walls.
func (p *Particles) SpawnRandom(halfBounds r2.Vec, margin float64, rng *rand.Rand) {
	spanX := math.Max(halfBounds.X-margin, 0)
	spanY := math.Max(halfBounds.Y-margin, 0)
	for i := range p.Position {
		p.Position[i] = r2.Vec{
			X: (rng.Float64()*2 - 1) * spanX,
			Y: (rng.Float64()*2 - 1) * spanY,
		}
		p.Velocity[i] = r2.Vec{}
	}
	p.syncPredicted()
}

// syncPredicted makes predicted positions match current ones.
func (p *Particles) syncPredicted() {
	copy(p.Predicted, p.Position)
}

// Reset zeroes all per-step scratch data.
func (p *Particles) Reset() {
	clear(p.Density)
	clear(p.Accel)
	p.syncPredicted()
}

// CopyPositions copies positions into dst, growing it if needed.
// The returned slice is owned by the caller.
func (p *Particles) CopyPositions(dst []r2.Vec) []r2.Vec {
	return copyVecs(dst, p.Position)
}

// CopyVelocities copies velocities into dst, growing it if needed.
func (p *Particles) CopyVelocities(dst []r2.Vec) []r2.Vec {
	return copyVecs(dst, p.Velocity)
}

// CopyDensities copies densities into dst, growing it if needed.
func (p *Particles) CopyDensities(dst []float64) []float64 {
	if cap(dst) < len(p.Density) {
		dst = make([]float64, len(p.Density))
	}
	dst = dst[:len(p.Density)]
	copy(dst, p.Density)
	return dst
}

func copyVecs(dst, src []r2.Vec) []r2.Vec {
	if cap(dst) < len(src) {
		dst = make([]r2.Vec, len(src))
	}
	dst = dst[:len(src)]
	copy(dst, src)
	return dst
}
