package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	Particles int `csv:"particles"`

	// Events during window
	Steps            int `csv:"steps"`
	BoundaryHits     int `csv:"boundary_hits"`
	FallbackDirs     int `csv:"fallback_dirs"`
	DensityFloorHits int `csv:"density_floor_hits"`
	Interactions     int `csv:"interactions"`

	// Density distribution (sampled at window end)
	DensityMean     float64 `csv:"density_mean"`
	DensityStd      float64 `csv:"density_std"`
	DensityP10      float64 `csv:"density_p10"`
	DensityP50      float64 `csv:"density_p50"`
	DensityP90      float64 `csv:"density_p90"`
	DensityRMSError float64 `csv:"density_rms_error"` // Against the target density

	// Motion
	KineticEnergy float64 `csv:"kinetic_energy"`
	SpeedMean     float64 `csv:"speed_mean"`
	SpeedMax      float64 `csv:"speed_max"`

	// Grid occupancy
	OccupiedCells  int `csv:"occupied_cells"`
	LargestCellRun int `csv:"largest_cell_run"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeDistribution returns mean, population std and percentiles of values.
func ComputeDistribution(values []float64) (mean, std, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0
	}

	mean, std = stat.PopMeanStdDev(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, std, p10, p50, p90
}

// RMSError returns the root mean square deviation of values from target.
func RMSError(values []float64, target float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - target
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// KineticEnergy returns Σ ½·m·v² for equal-mass particles given their speeds.
func KineticEnergy(speeds []float64, mass float64) float64 {
	return 0.5 * mass * floats.Dot(speeds, speeds)
}

// MaxValue returns the largest value, or 0 for an empty slice.
func MaxValue(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Max(values)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("particles", s.Particles),
		slog.Int("steps", s.Steps),
		slog.Int("boundary_hits", s.BoundaryHits),
		slog.Int("fallback_dirs", s.FallbackDirs),
		slog.Int("density_floor_hits", s.DensityFloorHits),
		slog.Int("interactions", s.Interactions),
		slog.Float64("density_mean", s.DensityMean),
		slog.Float64("density_std", s.DensityStd),
		slog.Float64("density_p10", s.DensityP10),
		slog.Float64("density_p50", s.DensityP50),
		slog.Float64("density_p90", s.DensityP90),
		slog.Float64("density_rms_error", s.DensityRMSError),
		slog.Float64("kinetic_energy", s.KineticEnergy),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_max", s.SpeedMax),
		slog.Int("occupied_cells", s.OccupiedCells),
		slog.Int("largest_cell_run", s.LargestCellRun),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"steps", s.Steps,
		"density_mean", s.DensityMean,
		"density_rms_error", s.DensityRMSError,
		"kinetic_energy", s.KineticEnergy,
		"speed_max", s.SpeedMax,
		"boundary_hits", s.BoundaryHits,
		"fallback_dirs", s.FallbackDirs,
	)
}
