package telemetry

// FluidSample is the state the simulation hands to Flush at a window boundary.
type FluidSample struct {
	Densities     []float64
	Speeds        []float64
	TargetDensity float64
	Mass          float64

	OccupiedCells  int
	LargestCellRun int
}

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationTicks int32

	windowStartTick int32
	simTime         float64 // Sum of step dt since the last reset

	// Event counters for current window
	steps            int
	boundaryHits     int
	fallbackDirs     int
	densityFloorHits int
	interactions     int
}

// NewCollector creates a collector whose windows span windowTicks steps.
func NewCollector(windowTicks int) *Collector {
	c := &Collector{}
	c.SetWindow(windowTicks)
	return c
}

// SetWindow changes the window length for windows flushed from now on.
func (c *Collector) SetWindow(windowTicks int) {
	c.windowDurationTicks = int32(max(windowTicks, 1))
}

// Reset discards the current window and restarts the clock at tick 0.
func (c *Collector) Reset() {
	window := c.windowDurationTicks
	*c = Collector{windowDurationTicks: window}
}

// RecordStep records one completed step of length dt and its guarded-event counts.
func (c *Collector) RecordStep(dt float64, boundaryHits, fallbackDirs, densityFloorHits int) {
	c.simTime += dt
	c.steps++
	c.boundaryHits += boundaryHits
	c.fallbackDirs += fallbackDirs
	c.densityFloorHits += densityFloorHits
}

// RecordInteraction records a step in which a pointer force was applied.
func (c *Collector) RecordInteraction() {
	c.interactions++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, sample FluidSample) WindowStats {
	mean, std, p10, p50, p90 := ComputeDistribution(sample.Densities)
	speedMean, _, _, _, _ := ComputeDistribution(sample.Speeds)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      c.simTime,

		Particles: len(sample.Densities),

		Steps:            c.steps,
		BoundaryHits:     c.boundaryHits,
		FallbackDirs:     c.fallbackDirs,
		DensityFloorHits: c.densityFloorHits,
		Interactions:     c.interactions,

		DensityMean:     mean,
		DensityStd:      std,
		DensityP10:      p10,
		DensityP50:      p50,
		DensityP90:      p90,
		DensityRMSError: RMSError(sample.Densities, sample.TargetDensity),

		KineticEnergy: KineticEnergy(sample.Speeds, sample.Mass),
		SpeedMean:     speedMean,
		SpeedMax:      MaxValue(sample.Speeds),

		OccupiedCells:  sample.OccupiedCells,
		LargestCellRun: sample.LargestCellRun,
	}

	c.windowStartTick = currentTick
	c.steps = 0
	c.boundaryHits = 0
	c.fallbackDirs = 0
	c.densityFloorHits = 0
	c.interactions = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
