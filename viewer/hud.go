package viewer

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sph/telemetry"
)

// HUDData holds everything the heads-up display shows.
type HUDData struct {
	Tick           int32
	Particles      int
	MeanDensity    float64
	TargetDensity  float64
	StepsPerSecond float64
	FPS            int32
	Speed          int
	Paused         bool
	Heat           HeatMode
	ScreenHeight   int32
}

const controlsText = "LMB attract | RMB repel | Space pause | R reset | H heat (off/density/speed) | P perf | Tab panel"

// drawHUD renders the status lines and control legend.
func drawHUD(data HUDData) {
	rl.DrawText("SPH Fluid", 10, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Tick: %d | Steps/s: %.0f | FPS: %d | Speed: %dx", data.Tick, data.StepsPerSecond, data.FPS, data.Speed),
		10, 35, 16, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Particles: %d | Density: %.2f (target %.2f) | Heat: %s", data.Particles, data.MeanDensity, data.TargetDensity, data.Heat),
		10, 55, 16, rl.LightGray,
	)

	statusText := "Running"
	if data.Paused {
		statusText = "PAUSED"
	}
	rl.DrawText(statusText, 10, 75, 16, rl.Yellow)

	rl.DrawText(controlsText, 10, data.ScreenHeight-25, 14, rl.Gray)
}

// drawPerfPanel renders per-phase step timings at (x, y).
func drawPerfPanel(stats telemetry.PerfStats, x, y int32) {
	rl.DrawText("Step Performance", x, y, 16, rl.White)
	y += 20

	rl.DrawText(fmt.Sprintf("Total: %s", stats.AvgStep.Round(time.Microsecond)), x, y, 14, rl.Yellow)
	y += 16

	for phase := telemetry.StepPhase(0); phase < telemetry.NumPhases; phase++ {
		avg := stats.PhaseAvg[phase]
		pct := stats.PhasePct[phase]

		color := rl.LightGray
		if pct > 40 {
			color = rl.Red
		} else if pct > 20 {
			color = rl.Orange
		}

		rl.DrawText(fmt.Sprintf("%-13s %8s %5.1f%%", phase, avg.Round(time.Microsecond), pct), x, y, 12, color)
		y += 14
	}
}

// MeanDensity returns the average of densities, or 0 when empty.
func MeanDensity(densities []float64) float64 {
	if len(densities) == 0 {
		return 0
	}
	var sum float64
	for _, d := range densities {
		sum += d
	}
	return sum / float64(len(densities))
}
