package telemetry

import (
	"log/slog"
	"time"
)

// StepPhase identifies one timed stage of a simulation step.
type StepPhase int

const (
	PhasePredict StepPhase = iota
	PhaseSpatialGrid
	PhaseDensity
	PhaseForces
	PhaseIntegrate
	PhaseInteraction
	PhaseTelemetry

	NumPhases
)

var phaseNames = [NumPhases]string{
	"predict", "spatial_grid", "density", "forces", "integrate", "interaction", "telemetry",
}

func (p StepPhase) String() string {
	if p < 0 || p >= NumPhases {
		return "unknown"
	}
	return phaseNames[p]
}

// phaseTimes is the time spent in each phase during one step.
type phaseTimes [NumPhases]time.Duration

// stepSample is the timing of one completed step.
type stepSample struct {
	total  time.Duration
	phases phaseTimes
}

// PerfCollector keeps step timings for the last windowSize steps.
// Recording a step does not allocate.
type PerfCollector struct {
	ring  []stepSample
	next  int
	count int

	current    phaseTimes
	stepStart  time.Time
	phaseStart time.Time
	active     StepPhase // NumPhases when no phase is running
}

// NewPerfCollector creates a collector averaging over windowSize steps.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		ring:   make([]stepSample, windowSize),
		active: NumPhases,
	}
}

// StartTick begins timing a step.
func (p *PerfCollector) StartTick() {
	now := time.Now()
	p.stepStart = now
	p.phaseStart = now
	p.current = phaseTimes{}
	p.active = NumPhases
}

// StartPhase closes the running phase, if any, and opens phase.
func (p *PerfCollector) StartPhase(phase StepPhase) {
	now := time.Now()
	p.closePhase(now)
	p.phaseStart = now
	p.active = phase
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.active < NumPhases {
		p.current[p.active] += now.Sub(p.phaseStart)
	}
}

// EndTick closes the step and stores it in the window.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	p.closePhase(now)
	p.active = NumPhases

	p.ring[p.next] = stepSample{total: now.Sub(p.stepStart), phases: p.current}
	p.next = (p.next + 1) % len(p.ring)
	p.count = min(p.count+1, len(p.ring))
}

// PerfStats summarises the step timings in the window.
type PerfStats struct {
	AvgStep time.Duration
	MinStep time.Duration
	MaxStep time.Duration

	PhaseAvg [NumPhases]time.Duration
	PhasePct [NumPhases]float64 // Share of the average step

	StepsPerSecond float64
}

// Stats computes the window summary. It is zero before the first step.
func (p *PerfCollector) Stats() PerfStats {
	var s PerfStats
	if p.count == 0 {
		return s
	}

	var total time.Duration
	var phases phaseTimes
	for i, sample := range p.ring[:p.count] {
		total += sample.total
		if i == 0 || sample.total < s.MinStep {
			s.MinStep = sample.total
		}
		s.MaxStep = max(s.MaxStep, sample.total)
		for ph, d := range sample.phases {
			phases[ph] += d
		}
	}

	n := time.Duration(p.count)
	s.AvgStep = total / n
	for ph := range phases {
		s.PhaseAvg[ph] = phases[ph] / n
		if s.AvgStep > 0 {
			s.PhasePct[ph] = 100 * float64(s.PhaseAvg[ph]) / float64(s.AvgStep)
		}
	}
	if s.AvgStep > 0 {
		s.StepsPerSecond = float64(time.Second) / float64(s.AvgStep)
	}
	return s
}

// LogStats logs the summary at info level.
func (s PerfStats) LogStats() {
	slog.Info("perf", "stats", s)
}

// LogValue implements slog.LogValuer. Phases under 0.1% are omitted.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_step_us", s.AvgStep.Microseconds()),
		slog.Int64("min_step_us", s.MinStep.Microseconds()),
		slog.Int64("max_step_us", s.MaxStep.Microseconds()),
		slog.Float64("steps_per_sec", s.StepsPerSecond),
	}
	for ph, pct := range s.PhasePct {
		if pct >= 0.1 {
			attrs = append(attrs, slog.Float64(StepPhase(ph).String()+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one row of perf.csv.
type PerfStatsCSV struct {
	WindowEnd      int32   `csv:"window_end"`
	AvgStepUS      int64   `csv:"avg_step_us"`
	MinStepUS      int64   `csv:"min_step_us"`
	MaxStepUS      int64   `csv:"max_step_us"`
	StepsPerSec    float64 `csv:"steps_per_sec"`
	PredictPct     float64 `csv:"predict_pct"`
	SpatialGridPct float64 `csv:"spatial_grid_pct"`
	DensityPct     float64 `csv:"density_pct"`
	ForcesPct      float64 `csv:"forces_pct"`
	IntegratePct   float64 `csv:"integrate_pct"`
	InteractionPct float64 `csv:"interaction_pct"`
	TelemetryPct   float64 `csv:"telemetry_pct"`
}

// ToCSV flattens the summary into a perf.csv row.
func (s PerfStats) ToCSV(windowEnd int32) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:      windowEnd,
		AvgStepUS:      s.AvgStep.Microseconds(),
		MinStepUS:      s.MinStep.Microseconds(),
		MaxStepUS:      s.MaxStep.Microseconds(),
		StepsPerSec:    s.StepsPerSecond,
		PredictPct:     s.PhasePct[PhasePredict],
		SpatialGridPct: s.PhasePct[PhaseSpatialGrid],
		DensityPct:     s.PhasePct[PhaseDensity],
		ForcesPct:      s.PhasePct[PhaseForces],
		IntegratePct:   s.PhasePct[PhaseIntegrate],
		InteractionPct: s.PhasePct[PhaseInteraction],
		TelemetryPct:   s.PhasePct[PhaseTelemetry],
	}
}
