package telemetry

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/ferrofluid/config"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{0.9, 0.1, 0.5, 0.3, 0.7})
	if math.Abs(s.Mean-0.5) > 1e-12 {
		t.Errorf("mean = %v, want 0.5", s.Mean)
	}
	if math.Abs(s.Std-math.Sqrt(0.1)) > 1e-12 {
		t.Errorf("std = %v, want %v", s.Std, math.Sqrt(0.1))
	}
	if s.Min != 0.1 || s.Max != 0.9 || s.P50 != 0.5 {
		t.Errorf("unexpected summary %+v", s)
	}
	if (Summarize(nil) != Summary{}) {
		t.Error("expected zero summary for no values")
	}
	if got := Summarize([]float64{3}).Std; got != 0 {
		t.Errorf("expected zero std for one value, got %v", got)
	}
}

func TestCollectorWindow(t *testing.T) {
	c := NewCollector(1)
	for i := 0; i < 60; i++ {
		simTime := float64(i+1) / 60
		c.Record(FrameSample{
			Frame:        int64(i),
			SimTimeSec:   simTime,
			Steps:        2,
			Envelope:     float64(i) / 59,
			MainFraction: 1,
			Components:   1 + i%3,
			MeanSpeed:    10,
			AudioGate:    i%2 == 0,
		})
		if i < 59 && c.ShouldFlush(simTime) {
			t.Fatalf("frame %d: window flushed early", i)
		}
	}
	if !c.ShouldFlush(1) {
		t.Fatal("expected window complete after one second")
	}

	s := c.Flush(59, 1)
	if s.Frames != 60 || s.Steps != 120 {
		t.Errorf("expected 60 frames / 120 steps, got %d / %d", s.Frames, s.Steps)
	}
	if math.Abs(s.EnvelopeMean-0.5) > 1e-9 || s.EnvelopePeak != 1 {
		t.Errorf("unexpected envelope stats mean=%v peak=%v", s.EnvelopeMean, s.EnvelopePeak)
	}
	if s.ComponentsMax != 3 || s.MainFractionMin != 1 || s.SpeedStd != 0 {
		t.Errorf("unexpected body stats %+v", s)
	}
	if s.GateOpenFrac != 0.5 {
		t.Errorf("expected gate open half the time, got %v", s.GateOpenFrac)
	}
	if c.Frames() != 0 || c.ShouldFlush(1.5) {
		t.Error("expected empty window after flush")
	}
}

func TestOutputManager(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := om.WriteFrame(FrameSample{Frame: int64(i), Envelope: 0.25 * float64(i)}); err != nil {
			t.Fatal(err)
		}
	}
	if err := om.WriteStats(WindowStats{WindowEndFrame: 2, Frames: 3}); err != nil {
		t.Fatal(err)
	}
	if err := om.WritePerf(PerfStats{FramesPerSecond: 60}, 2); err != nil {
		t.Fatal(err)
	}
	if err := om.WriteBookmark(Bookmark{Type: BookmarkBodySplit, Frame: 2}); err != nil {
		t.Fatal(err)
	}
	if err := om.WriteConfig(config.Defaults()); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(dir, "frames.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var frames []FrameSample
	if err := gocsv.UnmarshalFile(f, &frames); err != nil {
		t.Fatalf("reading frames.csv: %v", err)
	}
	if len(frames) != 3 || frames[2].Envelope != 0.5 {
		t.Errorf("expected 3 frames with a single header, got %+v", frames)
	}

	if _, err := config.Load(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("expected config snapshot to load back: %v", err)
	}
}

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("expected nil manager without a directory, got %v, %v", om, err)
	}
	if err := om.WriteFrame(FrameSample{}); err != nil {
		t.Errorf("expected nil manager to ignore writes, got %v", err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}
