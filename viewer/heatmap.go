package viewer

import (
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sph/camera"
	"github.com/pthm-cable/sph/systems"
)

// HeatMode selects the field shown under the particles.
type HeatMode int

const (
	HeatOff HeatMode = iota
	HeatDensity
	HeatSpeed
	numHeatModes
)

var heatModeNames = [numHeatModes]string{"off", "density", "speed"}

// Next cycles off, density, speed and back to off.
func (m HeatMode) Next() HeatMode {
	return (m + 1) % numHeatModes
}

func (m HeatMode) String() string {
	if m < 0 || m >= numHeatModes {
		return "unknown"
	}
	return heatModeNames[m]
}

// DensityShade colours densities around target.
func DensityShade(target float64) func(float64) rl.Color {
	return func(density float64) rl.Color {
		return HeatColor(density, target, heatAlpha)
	}
}

// SpeedShade colours speeds on the particle speed gradient.
func SpeedShade(maxSpeed float64) func(float64) rl.Color {
	return func(speed float64) rl.Color {
		c := SpeedColor(speed, maxSpeed)
		c.A = heatAlpha
		return c
	}
}

// HeatMapRenderer draws a sampled field as a filtered texture stretched
// over the box.
type HeatMapRenderer struct {
	tex        rl.Texture2D
	texW, texH int
	pixels     []color.RGBA

	initialized bool
}

// Init creates the GPU texture. Must be called after the raylib window is created.
func (h *HeatMapRenderer) Init(cols, rows int) {
	if h.initialized {
		return
	}
	h.texW, h.texH = cols, rows

	img := rl.GenImageColor(cols, rows, rl.Blank)
	h.tex = rl.LoadTextureFromImage(img)
	rl.SetTextureFilter(h.tex, rl.FilterBilinear)
	rl.UnloadImage(img)

	h.initialized = true
}

// Update uploads the sampler's current values coloured by shade.
func (h *HeatMapRenderer) Update(f *systems.FieldSampler, shade func(float64) rl.Color) {
	if !h.initialized {
		h.Init(f.Cols, f.Rows)
	}
	if f.Cols != h.texW || f.Rows != h.texH {
		return
	}
	h.pixels = HeatPixels(h.pixels, f, shade)
	rl.UpdateTexture(h.tex, h.pixels)
}

// Draw stretches the texture over the box [-halfW, halfW] x [-halfH, halfH].
func (h *HeatMapRenderer) Draw(cam *camera.Camera, halfW, halfH float32) {
	if !h.initialized {
		return
	}
	x0, y0 := cam.WorldToScreen(-halfW, halfH)
	x1, y1 := cam.WorldToScreen(halfW, -halfH)

	src := rl.Rectangle{X: 0, Y: 0, Width: float32(h.texW), Height: float32(h.texH)}
	dst := rl.Rectangle{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
	rl.DrawTexturePro(h.tex, src, dst, rl.Vector2{}, 0, rl.White)
}

// Unload frees GPU resources.
func (h *HeatMapRenderer) Unload() {
	if !h.initialized {
		return
	}
	rl.UnloadTexture(h.tex)
	h.initialized = false
}

// HeatPixels converts sampler values to texture pixels. Texture row 0 is the
// top of the box, sampler row 0 the bottom.
func HeatPixels(dst []color.RGBA, f *systems.FieldSampler, shade func(float64) rl.Color) []color.RGBA {
	n := f.Cols * f.Rows
	if cap(dst) < n {
		dst = make([]color.RGBA, n)
	}
	dst = dst[:n]

	for row := 0; row < f.Rows; row++ {
		out := (f.Rows - 1 - row) * f.Cols
		for col := 0; col < f.Cols; col++ {
			c := shade(f.At(col, row))
			dst[out+col] = color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
		}
	}
	return dst
}
