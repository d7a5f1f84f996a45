package viewer

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sph/config"
	"github.com/pthm-cable/sph/sim"
)

// maxStepsPerUpdate bounds the ,/. speed control.
const maxStepsPerUpdate = 8

// InteractionFor turns pointer button state into an interaction request.
// Left attracts, right repels, both or neither cancel out.
func InteractionFor(point r2.Vec, left, right bool, cfg config.InteractionConfig) sim.Interaction {
	in := sim.Interaction{Point: point, Radius: cfg.Radius}
	switch {
	case left && !right:
		in.Strength = cfg.Strength
	case right && !left:
		in.Strength = -cfg.Strength
	}
	return in
}

// handleInput processes keyboard, camera and pointer input.
func (v *Viewer) handleInput() {
	v.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		v.paused = !v.paused
	}
	if rl.IsKeyPressed(rl.KeyR) {
		v.sim.Reset()
	}
	if rl.IsKeyPressed(rl.KeyH) {
		v.heatMode = v.heatMode.Next()
	}
	if rl.IsKeyPressed(rl.KeyP) {
		v.showPerf = !v.showPerf
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		v.showPanel = !v.showPanel
	}

	// Steps-per-update control with < > keys (comma and period)
	if rl.IsKeyPressed(rl.KeyComma) && v.stepsPerUpdate > 1 {
		v.stepsPerUpdate--
	}
	if rl.IsKeyPressed(rl.KeyPeriod) && v.stepsPerUpdate < maxStepsPerUpdate {
		v.stepsPerUpdate++
	}

	v.handleCameraInput()
	v.handlePointer()
}

// handleResize checks for window resize and propagates new dimensions.
func (v *Viewer) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	v.camera.Resize(float32(rl.GetScreenWidth()), float32(rl.GetScreenHeight()))
}

// handleCameraInput processes camera pan/zoom controls.
func (v *Viewer) handleCameraInput() {
	panSpeed := float32(8.0)

	if rl.IsKeyDown(rl.KeyRight) {
		v.camera.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		v.camera.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		v.camera.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		v.camera.Pan(0, -panSpeed)
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		v.camera.ZoomBy(1 + wheel*0.1)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		v.camera.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		v.camera.ZoomBy(0.8)
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		v.camera.Reset()
	}
}

// handlePointer maps mouse buttons to the interaction for this frame.
// Clicks over the slider panel belong to the panel.
func (v *Viewer) handlePointer() {
	mouse := rl.GetMousePosition()
	if v.showPanel && rl.CheckCollisionPointRec(mouse, v.panelRect()) {
		v.interaction = sim.Interaction{}
		return
	}

	wx, wy := v.camera.ScreenToWorld(mouse.X, mouse.Y)
	v.interaction = InteractionFor(
		r2.Vec{X: float64(wx), Y: float64(wy)},
		rl.IsMouseButtonDown(rl.MouseButtonLeft),
		rl.IsMouseButtonDown(rl.MouseButtonRight),
		v.interactionCfg,
	)
}
