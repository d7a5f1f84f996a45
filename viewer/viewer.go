// Package viewer draws a running simulation with raylib and feeds pointer
// input back to it. It owns no simulation state.
package viewer

import (
	"fmt"
	"log/slog"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sph/camera"
	"github.com/pthm-cable/sph/config"
	"github.com/pthm-cable/sph/sim"
	"github.com/pthm-cable/sph/systems"
)

const (
	panelWidth = 300
	sliderH    = 20
	heatCols   = 96
	heatAlpha  = 170
	speedScale = 6.0 // Speed mapped to the top of the gradient
)

// Viewer renders one simulation and routes input to it.
type Viewer struct {
	sim    *sim.Simulation
	camera *camera.Camera

	interactionCfg config.InteractionConfig
	interaction    sim.Interaction

	paused         bool
	heatMode       HeatMode
	showPanel      bool
	showPerf       bool
	stepsPerUpdate int

	sampler *systems.FieldSampler
	heat    HeatMapRenderer

	// Snapshot buffers reused every frame
	positions  []r2.Vec
	velocities []r2.Vec
	densities  []float64
}

// New creates a viewer for s using screen and interaction settings from cfg.
// The raylib window must already be open.
func New(s *sim.Simulation, cfg *config.Config, stepsPerUpdate int) *Viewer {
	half := s.HalfBounds()
	cam := camera.New(
		float32(rl.GetScreenWidth()), float32(rl.GetScreenHeight()),
		float32(half.X), float32(half.Y),
		float32(cfg.Screen.PixelsPerUnit),
	)

	return &Viewer{
		sim:            s,
		camera:         cam,
		interactionCfg: cfg.Interaction,
		showPanel:      true,
		stepsPerUpdate: max(stepsPerUpdate, 1),
		sampler:        newSampler(half),
	}
}

func newSampler(half r2.Vec) *systems.FieldSampler {
	rows := int(float64(heatCols) * half.Y / half.X)
	return systems.NewFieldSampler(heatCols, max(rows, 1), half)
}

// Update handles input and advances the simulation by the frame time.
func (v *Viewer) Update() {
	v.handleInput()

	if v.paused {
		return
	}

	frameDt := float64(rl.GetFrameTime())
	for i := 0; i < v.stepsPerUpdate; i++ {
		v.sim.Advance(frameDt, v.interaction)
	}
}

// Draw renders the current frame.
func (v *Viewer) Draw() {
	v.positions = v.sim.Positions(v.positions)
	v.velocities = v.sim.Velocities(v.velocities)
	v.densities = v.sim.Densities(v.densities)

	rl.BeginDrawing()
	rl.ClearBackground(rl.Color{R: 12, G: 14, B: 20, A: 255})

	v.drawHeatMap()
	v.drawBounds()
	v.drawParticles()
	v.drawPointer()

	perf := v.sim.PerfStats()
	drawHUD(HUDData{
		Tick:           v.sim.Tick(),
		Particles:      v.sim.Len(),
		MeanDensity:    MeanDensity(v.densities),
		TargetDensity:  v.sim.Fluid().TargetDensity,
		StepsPerSecond: perf.StepsPerSecond,
		FPS:            rl.GetFPS(),
		Speed:          v.stepsPerUpdate,
		Paused:         v.paused,
		Heat:           v.heatMode,
		ScreenHeight:   int32(rl.GetScreenHeight()),
	})
	if v.showPerf {
		drawPerfPanel(perf, 10, 105)
	}
	if v.showPanel {
		v.drawPanel()
	}

	rl.EndDrawing()
}

// Unload frees GPU resources. The simulation is closed by its owner.
func (v *Viewer) Unload() {
	v.heat.Unload()
}

// Tick returns the simulation tick.
func (v *Viewer) Tick() int32 {
	return v.sim.Tick()
}

func (v *Viewer) drawBounds() {
	half := v.sim.HalfBounds()
	x0, y0 := v.camera.WorldToScreen(float32(-half.X), float32(half.Y))
	x1, y1 := v.camera.WorldToScreen(float32(half.X), float32(-half.Y))
	rl.DrawRectangleLinesEx(rl.Rectangle{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, 2, rl.DarkGray)
}

func (v *Viewer) drawParticles() {
	radius := float32(v.sim.ParticleRadius())
	pixels := max(v.camera.WorldLength(radius), 1)

	for i, p := range v.positions {
		x, y := float32(p.X), float32(p.Y)
		if !v.camera.IsVisible(x, y, radius) {
			continue
		}
		sx, sy := v.camera.WorldToScreen(x, y)
		color := SpeedColor(r2.Norm(v.velocities[i]), speedScale)
		rl.DrawCircleV(rl.Vector2{X: sx, Y: sy}, pixels, color)
	}
}

func (v *Viewer) drawHeatMap() {
	switch v.heatMode {
	case HeatDensity:
		v.sim.SampleDensity(v.sampler)
		v.heat.Update(v.sampler, DensityShade(v.sim.Fluid().TargetDensity))
	case HeatSpeed:
		v.sim.SampleSpeed(v.sampler)
		v.heat.Update(v.sampler, SpeedShade(speedScale))
	default:
		return
	}

	half := v.sim.HalfBounds()
	v.heat.Draw(v.camera, float32(half.X), float32(half.Y))
}

func (v *Viewer) drawPointer() {
	if !v.interaction.Active() {
		return
	}
	p := v.interaction.Point
	sx, sy := v.camera.WorldToScreen(float32(p.X), float32(p.Y))
	color := rl.SkyBlue
	if v.interaction.Strength < 0 {
		color = rl.Orange
	}
	rl.DrawCircleLines(int32(sx), int32(sy), v.camera.WorldLength(float32(v.interaction.Radius)), color)
}

func (v *Viewer) panelRect() rl.Rectangle {
	height := float32(40 + len(FluidParams)*45)
	return rl.Rectangle{X: float32(rl.GetScreenWidth()) - panelWidth - 10, Y: 10, Width: panelWidth, Height: height}
}

// drawPanel draws the parameter sliders and applies any edits between steps.
func (v *Viewer) drawPanel() {
	rect := v.panelRect()
	rl.DrawRectangleRec(rect, rl.Color{R: 20, G: 24, B: 32, A: 220})
	rl.DrawRectangleLinesEx(rect, 1, rl.DarkGray)
	rl.DrawText("Fluid", int32(rect.X)+10, int32(rect.Y)+8, 18, rl.White)

	fluid := v.sim.Fluid()
	changed := false
	y := rect.Y + 36

	for _, p := range FluidParams {
		rl.DrawText(fmt.Sprintf("%s: %.3g", p.Label, p.Get(&fluid)), int32(rect.X)+10, int32(y), 14, rl.LightGray)
		y += 16
		current := float32(p.Get(&fluid))
		value := gui.SliderBar(
			rl.Rectangle{X: rect.X + 10, Y: y, Width: rect.Width - 20, Height: sliderH},
			"", "",
			current, float32(p.Min), float32(p.Max),
		)
		// Slider values round-trip through float32; only a moved slider counts
		if value != current && p.Apply(&fluid, float64(value)) {
			changed = true
		}
		y += sliderH + 9
	}

	if !changed {
		return
	}
	if err := v.sim.SetFluid(fluid); err != nil {
		slog.Warn("rejected fluid parameters", "error", err)
	}
}
