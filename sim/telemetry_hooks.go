package sim

import (
	"log/slog"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sph/telemetry"
)

// flushTelemetry emits window stats when the window is complete.
func (s *Simulation) flushTelemetry() {
	if !s.collector.ShouldFlush(s.tick) {
		return
	}

	stats := s.collector.Flush(s.tick, s.sampleFluid())
	perfStats := s.perf.Stats()

	if s.statsCallback != nil {
		s.statsCallback(stats)
	}

	if s.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if s.output != nil {
		if err := s.output.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := s.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}
}

// sampleFluid gathers the distributions the collector summarises.
// The buffers are reused between windows.
func (s *Simulation) sampleFluid() telemetry.FluidSample {
	p := s.particles
	s.densities = p.CopyDensities(s.densities)
	s.updateSpeeds()

	gs := s.grid.Stats()
	return telemetry.FluidSample{
		Densities:      s.densities,
		Speeds:         s.speeds,
		TargetDensity:  s.fluid.TargetDensity,
		Mass:           s.fluid.Mass,
		OccupiedCells:  gs.OccupiedKeys,
		LargestCellRun: gs.LargestRun,
	}
}

// updateSpeeds refreshes the per-particle speed buffer.
func (s *Simulation) updateSpeeds() {
	p := s.particles
	if cap(s.speeds) < p.Len() {
		s.speeds = make([]float64, p.Len())
	}
	s.speeds = s.speeds[:p.Len()]
	for i, v := range p.Velocity {
		s.speeds[i] = r2.Norm(v)
	}
}
