package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// FrameSample is the simulation state observed after one rendered frame.
type FrameSample struct {
	Frame           int64   `csv:"frame"`
	SimTimeSec      float64 `csv:"sim_time"`
	Steps           int     `csv:"steps"`
	Envelope        float64 `csv:"envelope"`
	MotionHighlight float64 `csv:"motion_highlight"`
	MainFraction    float64 `csv:"main_fraction"`
	Components      int     `csv:"components"`
	Detached        int     `csv:"detached"`
	MeanSpeed       float64 `csv:"mean_speed"`
	AudioDrive      float64 `csv:"audio_drive"`
	AudioGate       bool    `csv:"audio_gate"`
}

// WindowStats aggregates frame samples over a stats window.
type WindowStats struct {
	WindowStartFrame int64   `csv:"-"`
	WindowEndFrame   int64   `csv:"window_end"`
	SimTimeSec       float64 `csv:"sim_time"`
	Frames           int     `csv:"frames"`
	Steps            int     `csv:"steps"`

	EnvelopeMean float64 `csv:"envelope_mean"`
	EnvelopeP50  float64 `csv:"envelope_p50"`
	EnvelopeP90  float64 `csv:"envelope_p90"`
	EnvelopePeak float64 `csv:"envelope_peak"`

	MotionMean float64 `csv:"motion_mean"`
	MotionPeak float64 `csv:"motion_peak"`

	// Fraction of particles in the main body
	MainFractionMean float64 `csv:"main_fraction_mean"`
	MainFractionMin  float64 `csv:"main_fraction_min"`
	ComponentsMax    int     `csv:"components_max"`
	DetachedMean     float64 `csv:"detached_mean"`

	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`

	AudioDriveMean float64 `csv:"audio_drive_mean"`
	GateOpenFrac   float64 `csv:"gate_open_frac"`
}

// Percentile calculates the p-th percentile of a sorted slice with linear
// interpolation. p should be in [0, 1]. Returns 0 if the slice is empty.
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

	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Summary is the mean, spread and upper percentiles of a series.
type Summary struct {
	Mean, Std float64
	Min, Max  float64
	P50, P90  float64
}

// Summarize computes a Summary. Std is the sample standard deviation and is
// zero for fewer than two values.
func Summarize(values []float64) Summary {
	n := len(values)
	if n == 0 {
		return Summary{}
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	s := Summary{
		Mean: stat.Mean(sorted, nil),
		Min:  sorted[0],
		Max:  sorted[n-1],
		P50:  Percentile(sorted, 0.5),
		P90:  Percentile(sorted, 0.9),
	}
	if n > 1 {
		s.Std = stat.StdDev(sorted, nil)
	}
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartFrame),
		slog.Int64("window_end", s.WindowEndFrame),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("frames", s.Frames),
		slog.Int("steps", s.Steps),
		slog.Float64("envelope_mean", s.EnvelopeMean),
		slog.Float64("envelope_p50", s.EnvelopeP50),
		slog.Float64("envelope_p90", s.EnvelopeP90),
		slog.Float64("envelope_peak", s.EnvelopePeak),
		slog.Float64("motion_mean", s.MotionMean),
		slog.Float64("motion_peak", s.MotionPeak),
		slog.Float64("main_fraction_mean", s.MainFractionMean),
		slog.Float64("main_fraction_min", s.MainFractionMin),
		slog.Int("components_max", s.ComponentsMax),
		slog.Float64("detached_mean", s.DetachedMean),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("audio_drive_mean", s.AudioDriveMean),
		slog.Float64("gate_open_frac", s.GateOpenFrac),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
