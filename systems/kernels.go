// Package systems provides the SPH kernels, neighbour grid and per-particle solver phases.
package systems

import "math"

// SmoothingKernel is the spiky density kernel. It integrates to 1 over the
// disc of the given radius.
func SmoothingKernel(dst, radius float64) float64 {
	if dst >= radius {
		return 0
	}
	volume := math.Pi * math.Pow(radius, 4) / 6
	d := radius - dst
	return d * d / volume
}

// SmoothingKernelDerivative is the slope of SmoothingKernel with respect to dst.
// It is never positive.
func SmoothingKernelDerivative(dst, radius float64) float64 {
	if dst >= radius {
		return 0
	}
	scale := 12 / (math.Pi * math.Pow(radius, 4))
	return (dst - radius) * scale
}

// ViscositySmoothingKernel is the unnormalised viscosity weight.
func ViscositySmoothingKernel(dst, radius float64) float64 {
	v := math.Max(0, radius*radius-dst*dst)
	return v * v * v
}
