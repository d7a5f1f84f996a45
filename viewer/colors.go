package viewer

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// speedGradient runs slow to fast.
var speedGradient = []rl.Color{
	{R: 40, G: 90, B: 220, A: 255},
	{R: 60, G: 220, B: 200, A: 255},
	{R: 250, G: 230, B: 80, A: 255},
	{R: 240, G: 70, B: 50, A: 255},
}

// Heat map endpoints: under target, at target, over target.
var (
	heatUnder  = rl.Color{R: 20, G: 40, B: 140, A: 255}
	heatTarget = rl.Color{R: 230, G: 230, B: 230, A: 255}
	heatOver   = rl.Color{R: 190, G: 30, B: 30, A: 255}
)

// SpeedColor maps a speed in [0, maxSpeed] onto the speed gradient.
func SpeedColor(speed, maxSpeed float64) rl.Color {
	if !(maxSpeed > 0) {
		return speedGradient[0]
	}
	t := clamp01(speed / maxSpeed)
	return sampleGradient(speedGradient, t)
}

// HeatColor maps a density to a diverging colour centred on target.
// Densities at 0 or at twice the target saturate.
func HeatColor(density, target float64, alpha uint8) rl.Color {
	var c rl.Color
	if !(target > 0) {
		c = heatTarget
	} else if density < target {
		c = lerpColor(heatUnder, heatTarget, clamp01(density/target))
	} else {
		c = lerpColor(heatTarget, heatOver, clamp01(density/target-1))
	}
	c.A = alpha
	return c
}

func sampleGradient(stops []rl.Color, t float64) rl.Color {
	if len(stops) == 1 {
		return stops[0]
	}
	pos := t * float64(len(stops)-1)
	i := int(math.Floor(pos))
	if i >= len(stops)-1 {
		return stops[len(stops)-1]
	}
	return lerpColor(stops[i], stops[i+1], pos-float64(i))
}

func lerpColor(a, b rl.Color, t float64) rl.Color {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return rl.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
