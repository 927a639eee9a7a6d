package telemetry

import "time"

// SmoothingAlpha is the exponential weight of each new HUD sample.
const SmoothingAlpha = 0.12

// HUDTimings are per-frame milliseconds shown in the performance readout.
// Step is the mean duration of one fixed sub-step in the frame.
type HUDTimings struct {
	Frame float64
	Step  float64
	Field float64
	Shade float64
	Draw  float64
}

// TimingsFromSample converts a frame sample into HUD milliseconds.
func TimingsFromSample(s PerfSample) HUDTimings {
	ms := func(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
	t := HUDTimings{
		Frame: ms(s.FrameDuration),
		Field: ms(s.Phases[PhaseField]),
		Shade: ms(s.Phases[PhaseShade]),
		Draw:  ms(s.Phases[PhaseDraw]),
	}
	if s.Steps > 0 {
		t.Step = ms(s.Phases[PhaseStep]) / float64(s.Steps)
	}
	return t
}

// Smoother keeps exponential averages of HUD timings. The first nonzero
// sample of each series seeds its average directly.
type Smoother struct {
	avg HUDTimings
}

func smoothValue(current, sample float64) float64 {
	if current <= 0 {
		return sample
	}
	return current + (sample-current)*SmoothingAlpha
}

// Add folds in a new sample and returns the updated averages.
func (s *Smoother) Add(t HUDTimings) HUDTimings {
	s.avg.Frame = smoothValue(s.avg.Frame, t.Frame)
	s.avg.Step = smoothValue(s.avg.Step, t.Step)
	s.avg.Field = smoothValue(s.avg.Field, t.Field)
	s.avg.Shade = smoothValue(s.avg.Shade, t.Shade)
	s.avg.Draw = smoothValue(s.avg.Draw, t.Draw)
	return s.avg
}

// Average returns the current averages.
func (s *Smoother) Average() HUDTimings { return s.avg }

// FPS derives frames per second from the averaged frame time.
func (s *Smoother) FPS() float64 {
	if s.avg.Frame <= 0.001 {
		return 0
	}
	return 1000 / s.avg.Frame
}

// Bottleneck names the slowest stage and its averaged milliseconds. Ties
// keep the earlier stage.
func (s *Smoother) Bottleneck() (string, float64) {
	label, ms := "step", s.avg.Step
	if s.avg.Field > ms {
		label, ms = "field build", s.avg.Field
	}
	if s.avg.Shade > ms {
		label, ms = "field shading", s.avg.Shade
	}
	if s.avg.Draw > ms {
		label, ms = "draw/composite", s.avg.Draw
	}
	return label, ms
}
