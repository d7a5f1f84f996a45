// Kernel preview tool - plots the smoothing kernels against distance.
//
// Usage: go run ./cmd/kernelpreview
package main

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sph/config"
	"github.com/pthm-cable/sph/systems"
)

const (
	windowWidth  = 1000
	windowHeight = 620
	plotSize     = 560
	plotMargin   = 30
	panelWidth   = windowWidth - plotSize - 3*plotMargin
	samples      = 200
	maxRadius    = 2.0
)

// Curve is one kernel sampled over [0, xMax].
type Curve struct {
	Name    string
	Color   rl.Color
	Visible bool
	fn      func(dst, radius float64) float64
	Values  []float64
}

func newCurves() []*Curve {
	return []*Curve{
		{Name: "Density (spiky pow2)", Color: rl.Blue, Visible: true, fn: systems.SmoothingKernel},
		{Name: "Density derivative", Color: rl.Red, Visible: true, fn: systems.SmoothingKernelDerivative},
		{Name: "Viscosity (poly6)", Color: rl.DarkGreen, Visible: true, fn: systems.ViscositySmoothingKernel},
	}
}

// SampleCurve fills dst with n samples of fn over [0, xMax] and returns the
// largest absolute value seen.
func SampleCurve(dst []float64, fn func(dst, radius float64) float64, radius, xMax float64) float64 {
	var peak float64
	n := len(dst)
	for i := range dst {
		x := xMax * float64(i) / float64(max(n-1, 1))
		v := fn(x, radius)
		dst[i] = v
		if v < 0 {
			v = -v
		}
		peak = max(peak, v)
	}
	return peak
}

func main() {
	rl.InitWindow(windowWidth, windowHeight, "SPH Kernel Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	defaultRadius := float32(config.Defaults().Fluid.SmoothingRadius)
	radius := defaultRadius
	curves := newCurves()
	for _, c := range curves {
		c.Values = make([]float64, samples)
	}

	for !rl.WindowShouldClose() {
		var peak float64
		for _, c := range curves {
			p := SampleCurve(c.Values, c.fn, float64(radius), maxRadius)
			if c.Visible {
				peak = max(peak, p)
			}
		}
		if peak == 0 {
			peak = 1
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		drawPlot(curves, radius, peak)

		panelX := float32(plotSize + 2*plotMargin)
		panelY := float32(plotMargin)

		rl.DrawText("Kernel Parameters", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		rl.DrawText("Smoothing radius", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		radius = gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: panelWidth - 80, Height: 20},
			"0.05", "2.0",
			radius, 0.05, maxRadius,
		)
		rl.DrawText(fmt.Sprintf("%.3f", radius), int32(panelX+panelWidth-70), int32(panelY+2), 16, rl.DarkGray)
		panelY += 40

		for _, c := range curves {
			c.Visible = gui.CheckBox(rl.Rectangle{X: panelX, Y: panelY, Width: 18, Height: 18}, c.Name, c.Visible)
			panelY += 28
		}
		panelY += 10

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Reset") {
			radius = defaultRadius
		}
		panelY += 50

		rl.DrawText(fmt.Sprintf("Peak |value|: %.4f", peak), int32(panelX), int32(panelY), 16, rl.DarkGray)
		panelY += 22
		rl.DrawText(fmt.Sprintf("W(0) = %.4f", systems.SmoothingKernel(0, float64(radius))), int32(panelX), int32(panelY), 16, rl.DarkGray)

		rl.DrawText("Press C to copy YAML to clipboard", int32(panelX), windowHeight-30, 12, rl.LightGray)
		if rl.IsKeyPressed(rl.KeyC) {
			rl.SetClipboardText(fmt.Sprintf("fluid:\n  smoothing_radius: %.3f", radius))
		}

		rl.EndDrawing()
	}
}

// drawPlot draws axes, the radius marker and every visible curve scaled to peak.
func drawPlot(curves []*Curve, radius float32, peak float64) {
	x0 := float32(plotMargin)
	y0 := float32(plotMargin)
	midY := y0 + plotSize/2

	rl.DrawRectangleLines(int32(x0), int32(y0), plotSize, plotSize, rl.DarkGray)
	rl.DrawLine(int32(x0), int32(midY), int32(x0+plotSize), int32(midY), rl.LightGray)

	rx := x0 + radius/maxRadius*plotSize
	rl.DrawLine(int32(rx), int32(y0), int32(rx), int32(y0+plotSize), rl.Orange)
	rl.DrawText("h", int32(rx)+4, int32(y0)+4, 14, rl.Orange)

	scale := float32(plotSize/2-10) / float32(peak)
	for _, c := range curves {
		if !c.Visible {
			continue
		}
		for i := 1; i < len(c.Values); i++ {
			ax := x0 + float32(i-1)/float32(len(c.Values)-1)*plotSize
			bx := x0 + float32(i)/float32(len(c.Values)-1)*plotSize
			ay := midY - float32(c.Values[i-1])*scale
			by := midY - float32(c.Values[i])*scale
			rl.DrawLineEx(rl.Vector2{X: ax, Y: ay}, rl.Vector2{X: bx, Y: by}, 2, c.Color)
		}
	}

	rl.DrawText("0", int32(x0), int32(y0+plotSize)+4, 14, rl.Gray)
	rl.DrawText(fmt.Sprintf("%.1f", maxRadius), int32(x0+plotSize)-20, int32(y0+plotSize)+4, 14, rl.Gray)
}
