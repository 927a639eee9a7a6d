// Package telemetry records frame timing, per-frame simulation samples and
// windowed statistics, and writes them out as CSV.
package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for one rendered frame.
const (
	PhaseStep  = "step"
	PhaseField = "field"
	PhaseShade = "shade"
	PhaseDraw  = "draw"
)

// Phases lists the frame phases in pipeline order.
var Phases = []string{PhaseStep, PhaseField, PhaseShade, PhaseDraw}

// PerfSample holds timing data for a single frame.
type PerfSample struct {
	FrameDuration time.Duration
	Steps         int
	Phases        map[string]time.Duration
}

// PerfCollector tracks frame timing over a rolling window.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	currentSteps  int
	frameStart    time.Time
	phaseStart    time.Time
	lastPhase     string

	last PerfSample
}

// NewPerfCollector creates a collector averaging over windowSize frames.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartFrame begins timing a new frame.
func (p *PerfCollector) StartFrame() {
	p.frameStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.currentSteps = 0
	p.lastPhase = ""
}

// StartPhase begins timing phase, ending the previous one.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndPhase stops the running phase without starting another.
func (p *PerfCollector) EndPhase() {
	if p.lastPhase == "" {
		return
	}
	p.currentPhases[p.lastPhase] += time.Since(p.phaseStart)
	p.lastPhase = ""
}

// AddSteps counts fixed sub-steps run in the current frame.
func (p *PerfCollector) AddSteps(n int) {
	p.currentSteps += n
}

// EndFrame finishes the frame and records the sample.
func (p *PerfCollector) EndFrame() {
	p.EndPhase()
	sample := PerfSample{
		FrameDuration: time.Since(p.frameStart),
		Steps:         p.currentSteps,
		Phases:        p.currentPhases,
	}
	p.last = sample

	p.samples[p.writeIndex] = sample
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// Last returns the most recently completed frame.
func (p *PerfCollector) Last() PerfSample {
	return p.last
}

// PerfStats holds aggregated timing over the window.
type PerfStats struct {
	AvgFrameDuration time.Duration
	MinFrameDuration time.Duration
	MaxFrameDuration time.Duration

	// PhaseAvg is the mean time per frame spent in each phase.
	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64

	// StepAvg is the mean duration of one fixed sub-step.
	StepAvg         time.Duration
	FramesPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var total, minFrame, maxFrame time.Duration
	var steps int
	phaseSum := make(map[string]time.Duration)
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.FrameDuration
		steps += s.Steps
		if i == 0 || s.FrameDuration < minFrame {
			minFrame = s.FrameDuration
		}
		if s.FrameDuration > maxFrame {
			maxFrame = s.FrameDuration
		}
		for phase, d := range s.Phases {
			phaseSum[phase] += d
		}
	}

	avg := total / time.Duration(p.sampleCount)
	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avg > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avg) * 100
		}
	}

	var stepAvg time.Duration
	if steps > 0 {
		stepAvg = phaseSum[PhaseStep] / time.Duration(steps)
	}
	var fps float64
	if avg > 0 {
		fps = float64(time.Second) / float64(avg)
	}

	return PerfStats{
		AvgFrameDuration: avg,
		MinFrameDuration: minFrame,
		MaxFrameDuration: maxFrame,
		PhaseAvg:         phaseAvg,
		PhasePct:         phasePct,
		StepAvg:          stepAvg,
		FramesPerSecond:  fps,
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_frame_us", s.AvgFrameDuration.Microseconds()),
		slog.Int64("min_frame_us", s.MinFrameDuration.Microseconds()),
		slog.Int64("max_frame_us", s.MaxFrameDuration.Microseconds()),
		slog.Int64("avg_step_us", s.StepAvg.Microseconds()),
		slog.Float64("fps", s.FramesPerSecond),
	}
	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Frame      int64   `csv:"frame"`
	AvgFrameUS int64   `csv:"avg_frame_us"`
	MinFrameUS int64   `csv:"min_frame_us"`
	MaxFrameUS int64   `csv:"max_frame_us"`
	AvgStepUS  int64   `csv:"avg_step_us"`
	FPS        float64 `csv:"fps"`
	StepPct    float64 `csv:"step_pct"`
	FieldPct   float64 `csv:"field_pct"`
	ShadePct   float64 `csv:"shade_pct"`
	DrawPct    float64 `csv:"draw_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(frame int64) PerfStatsCSV {
	return PerfStatsCSV{
		Frame:      frame,
		AvgFrameUS: s.AvgFrameDuration.Microseconds(),
		MinFrameUS: s.MinFrameDuration.Microseconds(),
		MaxFrameUS: s.MaxFrameDuration.Microseconds(),
		AvgStepUS:  s.StepAvg.Microseconds(),
		FPS:        s.FramesPerSecond,
		StepPct:    s.PhasePct[PhaseStep],
		FieldPct:   s.PhasePct[PhaseField],
		ShadePct:   s.PhasePct[PhaseShade],
		DrawPct:    s.PhasePct[PhaseDraw],
	}
}
