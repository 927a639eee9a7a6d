package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartFrame()
		pc.StartPhase(PhaseStep)
		time.Sleep(100 * time.Microsecond)
		pc.AddSteps(2)
		pc.StartPhase(PhaseShade)
		time.Sleep(200 * time.Microsecond)
		pc.EndFrame()
	}

	stats := pc.Stats()
	if stats.AvgFrameDuration <= 0 {
		t.Error("expected positive average frame duration")
	}
	if _, ok := stats.PhaseAvg[PhaseStep]; !ok {
		t.Error("expected step phase to be tracked")
	}
	if _, ok := stats.PhaseAvg[PhaseShade]; !ok {
		t.Error("expected shade phase to be tracked")
	}
	if stats.StepAvg <= 0 || stats.StepAvg > stats.PhaseAvg[PhaseStep] {
		t.Errorf("expected per-step average in (0, %v], got %v", stats.PhaseAvg[PhaseStep], stats.StepAvg)
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)
	for i := 0; i < 10; i++ {
		pc.StartFrame()
		pc.StartPhase(PhaseField)
		pc.EndFrame()
	}

	stats := pc.Stats()
	if stats.AvgFrameDuration <= 0 {
		t.Error("expected positive average frame duration after window filled")
	}
	if stats.FramesPerSecond <= 0 {
		t.Error("expected positive frames per second")
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)
	for i := 0; i < 5; i++ {
		pc.StartFrame()
		pc.StartPhase(PhaseField)
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase(PhaseShade)
		time.Sleep(100 * time.Microsecond)
		pc.EndFrame()
	}

	stats := pc.Stats()
	if stats.PhasePct[PhaseShade] <= stats.PhasePct[PhaseField] {
		t.Errorf("expected shade (%v%%) > field (%v%%)", stats.PhasePct[PhaseShade], stats.PhasePct[PhaseField])
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	stats := NewPerfCollector(10).Stats()
	if stats.AvgFrameDuration != 0 {
		t.Error("expected zero avg frame duration for empty collector")
	}
	if stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Error("expected non-nil phase maps")
	}
}

func TestPerfCollector_EndPhaseExcludesGap(t *testing.T) {
	pc := NewPerfCollector(1)
	pc.StartFrame()
	pc.StartPhase(PhaseDraw)
	pc.EndPhase()
	time.Sleep(2 * time.Millisecond)
	pc.EndFrame()

	last := pc.Last()
	if last.Phases[PhaseDraw] >= time.Millisecond {
		t.Errorf("expected draw phase to stop at EndPhase, got %v", last.Phases[PhaseDraw])
	}
	if last.FrameDuration < 2*time.Millisecond {
		t.Errorf("expected frame duration to include the gap, got %v", last.FrameDuration)
	}
}

func TestSmootherSeedsAndFollows(t *testing.T) {
	var s Smoother
	got := s.Add(HUDTimings{Frame: 16, Step: 1, Field: 4, Shade: 8, Draw: 2})
	if got.Frame != 16 || got.Shade != 8 {
		t.Fatalf("expected first sample to seed averages, got %+v", got)
	}
	got = s.Add(HUDTimings{Frame: 26, Step: 1, Field: 4, Shade: 8, Draw: 2})
	if want := 16 + 10*SmoothingAlpha; got.Frame != want {
		t.Errorf("expected frame average %f, got %f", want, got.Frame)
	}
	if fps := s.FPS(); fps <= 0 || fps > 1000/16.0 {
		t.Errorf("expected fps below 62.5, got %f", fps)
	}
}

func TestSmootherBottleneck(t *testing.T) {
	tests := []struct {
		name  string
		in    HUDTimings
		label string
	}{
		{"step", HUDTimings{Step: 3, Field: 1, Shade: 2, Draw: 1}, "step"},
		{"field", HUDTimings{Step: 1, Field: 5, Shade: 2, Draw: 1}, "field build"},
		{"shade", HUDTimings{Step: 1, Field: 2, Shade: 9, Draw: 1}, "field shading"},
		{"draw", HUDTimings{Step: 1, Field: 2, Shade: 3, Draw: 4}, "draw/composite"},
		{"tie keeps earlier", HUDTimings{Step: 2, Field: 2, Shade: 2, Draw: 2}, "step"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Smoother
			s.Add(tt.in)
			if label, _ := s.Bottleneck(); label != tt.label {
				t.Errorf("expected %q, got %q", tt.label, label)
			}
		})
	}
}

func TestTimingsFromSample(t *testing.T) {
	s := PerfSample{
		FrameDuration: 20 * time.Millisecond,
		Steps:         4,
		Phases: map[string]time.Duration{
			PhaseStep:  8 * time.Millisecond,
			PhaseShade: 5 * time.Millisecond,
		},
	}
	got := TimingsFromSample(s)
	if got.Step != 2 || got.Shade != 5 || got.Frame != 20 || got.Field != 0 {
		t.Errorf("unexpected timings %+v", got)
	}
}
