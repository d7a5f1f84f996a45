package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// ResolveCollisions keeps a particle inside the box centred on the origin.
// Each axis that overshoots is clamped to the wall and its velocity component
// reflected and scaled by damping. Reports whether anything was corrected.
func ResolveCollisions(pos, vel *r2.Vec, halfBounds r2.Vec, particleRadius, damping float64) bool {
	hitX := resolveAxis(&pos.X, &vel.X, halfBounds.X-particleRadius, damping)
	hitY := resolveAxis(&pos.Y, &vel.Y, halfBounds.Y-particleRadius, damping)
	return hitX || hitY
}

func resolveAxis(p, v *float64, limit, damping float64) bool {
	if math.Abs(*p) <= limit {
		return false
	}
	*p = math.Copysign(limit, *p)
	*v *= -damping
	return true
}
