package systems

import (
	"math"
	"testing"
)

func TestSmoothingKernel(t *testing.T) {
	tests := []struct {
		name   string
		dst    float64
		radius float64
		want   float64
	}{
		{"centre", 0, 1, 6 / math.Pi},
		{"half", 0.5, 1, 0.25 * 6 / math.Pi},
		{"at radius", 1, 1, 0},
		{"beyond radius", 2, 1, 0},
		{"radius two centre", 0, 2, 4 / (math.Pi * 16 / 6)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SmoothingKernel(tt.dst, tt.radius)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("SmoothingKernel(%f, %f) = %f, want %f", tt.dst, tt.radius, got, tt.want)
			}
		})
	}
}

func TestSmoothingKernelIntegratesToOne(t *testing.T) {
	// Integrate W(r)·2πr dr over [0, h] with the midpoint rule.
	for _, h := range []float64{0.35, 1, 2.5} {
		const steps = 20000
		dr := h / steps
		sum := 0.0
		for k := 0; k < steps; k++ {
			r := (float64(k) + 0.5) * dr
			sum += SmoothingKernel(r, h) * 2 * math.Pi * r * dr
		}
		if math.Abs(sum-1) > 1e-6 {
			t.Errorf("integral for radius %f = %f, want 1", h, sum)
		}
	}
}

func TestSmoothingKernelDerivative(t *testing.T) {
	const h = 1.3
	for _, dst := range []float64{0, 0.2, 0.65, 1.1, 1.29} {
		const eps = 1e-6
		numeric := (SmoothingKernel(dst+eps, h) - SmoothingKernel(dst-eps, h)) / (2 * eps)
		if dst < eps {
			numeric = (SmoothingKernel(dst+eps, h) - SmoothingKernel(dst, h)) / eps
		}
		got := SmoothingKernelDerivative(dst, h)
		if math.Abs(got-numeric) > 1e-4 {
			t.Errorf("derivative at %f = %f, numeric %f", dst, got, numeric)
		}
		if got > 0 {
			t.Errorf("derivative at %f = %f, want <= 0", dst, got)
		}
	}

	if got := SmoothingKernelDerivative(h, h); got != 0 {
		t.Errorf("derivative at radius = %f, want 0", got)
	}
	if got := SmoothingKernelDerivative(5, h); got != 0 {
		t.Errorf("derivative beyond radius = %f, want 0", got)
	}
}

func TestViscositySmoothingKernel(t *testing.T) {
	tests := []struct {
		dst, radius, want float64
	}{
		{0, 1, 1},
		{0.5, 1, 0.75 * 0.75 * 0.75},
		{1, 1, 0},
		{3, 1, 0},
		{0, 2, 64},
	}

	for _, tt := range tests {
		got := ViscositySmoothingKernel(tt.dst, tt.radius)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("ViscositySmoothingKernel(%f, %f) = %f, want %f", tt.dst, tt.radius, got, tt.want)
		}
	}
}
