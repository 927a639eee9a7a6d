package audio

import (
	"math/rand"
	"testing"
)

var testParams = Params{Sensitivity: 1.56, Smoothing: 0.98, Threshold: 0.7}

func randomFrames(seed int64, frames, bins int) [][]byte {
	rng := rand.New(rand.NewSource(seed))
	out := make([][]byte, frames)
	for i := range out {
		out[i] = make([]byte, bins)
		for j := range out[i] {
			out[i][j] = byte(rng.Intn(256))
		}
	}
	return out
}

func TestProcessorDeterministic(t *testing.T) {
	frames := randomFrames(42, 300, 1024)
	a, b := NewProcessor(), NewProcessor()
	for i, f := range frames {
		sa := a.Process(f, 48000, testParams, 1.0/120)
		sb := b.Process(f, 48000, testParams, 1.0/120)
		if sa != sb {
			t.Fatalf("frame %d: runs diverged: %+v vs %+v", i, sa, sb)
		}
	}
}

func TestProcessorBounds(t *testing.T) {
	frames := randomFrames(7, 500, 512)
	p := NewProcessor()
	params := Params{Sensitivity: 6, Smoothing: 0.2, Threshold: 0}
	for i, f := range frames {
		s := p.Process(f, 44100, params, 1.0/60)
		if !s.Active {
			t.Fatalf("frame %d: expected active signal", i)
		}
		if s.Drive < 0 || s.Drive > 1 || s.Transient < 0 || s.Transient > 1 || s.Impact < 0 || s.Impact > 1 {
			t.Fatalf("frame %d: signal out of range: %+v", i, s)
		}
		if s.Gate != 0 && s.Gate != 1 {
			t.Fatalf("frame %d: gate must be 0 or 1, got %f", i, s.Gate)
		}
	}
}

func TestProcessorSilence(t *testing.T) {
	p := NewProcessor()
	silent := make([]byte, 1024)
	var s Signal
	for i := 0; i < 120; i++ {
		s = p.Process(silent, 48000, testParams, 1.0/120)
	}
	if s.Drive != 0 || s.Gate != 0 || s.Impact != 0 {
		t.Errorf("expected silent signal, got %+v", s)
	}
}

func TestProcessorLoudInputGates(t *testing.T) {
	p := NewProcessor()
	loud := make([]byte, 1024)
	for i := range loud {
		loud[i] = 255
	}
	var s Signal
	for i := 0; i < 240; i++ {
		s = p.Process(loud, 48000, testParams, 1.0/120)
	}
	if s.Drive < 0.7 {
		t.Errorf("expected sustained loud input to drive above 0.7, got %f", s.Drive)
	}
	if s.Gate != 1 {
		t.Errorf("expected gate open, got %f", s.Gate)
	}
}

func TestProcessorIdleDecays(t *testing.T) {
	p := NewProcessor()
	for _, f := range randomFrames(1, 60, 1024) {
		p.Process(f, 48000, testParams, 1.0/120)
	}
	prevImpact := p.impact
	prevLevel := p.Level()
	for i := 0; i < 20; i++ {
		s := p.Idle()
		if s.Active {
			t.Fatal("expected idle signal to be inactive")
		}
		if s.Impact > prevImpact*pausedImpactDecay+1e-12 {
			t.Fatalf("idle %d: impact %f did not decay from %f", i, s.Impact, prevImpact)
		}
		if p.Level() > prevLevel*pausedLevelDecay+1e-12 {
			t.Fatalf("idle %d: level %f did not decay from %f", i, p.Level(), prevLevel)
		}
		prevImpact = s.Impact
		prevLevel = p.Level()
	}
}

func TestProcessorEmptyBinsResets(t *testing.T) {
	p := NewProcessor()
	p.Process(randomFrames(3, 1, 256)[0], 48000, testParams, 1.0/120)
	if s := p.Process(nil, 48000, testParams, 1.0/120); s != (Signal{}) {
		t.Errorf("expected zero signal for empty spectrum, got %+v", s)
	}
	if p.Level() != 0 {
		t.Errorf("expected level reset, got %f", p.Level())
	}
}

func TestSampleNilSource(t *testing.T) {
	p := NewProcessor()
	p.Process(randomFrames(5, 1, 256)[0], 48000, testParams, 1.0/120)
	if s := p.Sample(nil, nil, testParams, 1.0/120); s != (Signal{}) {
		t.Errorf("expected zero signal without a source, got %+v", s)
	}
	if p.Level() != 0 {
		t.Errorf("expected processor reset without a source, got level %f", p.Level())
	}
}

func TestBuildWeights(t *testing.T) {
	const rate, bins = 48000.0, 1024
	w := BuildWeights(rate, bins)
	binHz := rate / 2 / bins

	at := func(freq float64) int { return int(freq/binHz - 0.5) }
	if w.Drive[0] != 0 {
		t.Errorf("expected zero weight below 20 Hz, got %f", w.Drive[0])
	}
	if w.Drive[at(8000)] != 0 || w.Low[at(8000)] != 0 {
		t.Error("expected zero weight above 6 kHz")
	}
	if w.Drive[at(60)] <= w.Drive[at(3000)] {
		t.Errorf("expected kick band (%f) to outweigh 3 kHz (%f)", w.Drive[at(60)], w.Drive[at(3000)])
	}
	if w.Low[at(1000)] != 0 {
		t.Errorf("expected low curve to ignore 1 kHz, got %f", w.Low[at(1000)])
	}
	if w.DriveSum < 1e-4 || w.LowSum < 1e-4 {
		t.Errorf("expected weight sums floored at 1e-4, got %f / %f", w.DriveSum, w.LowSum)
	}
	if !w.Matches(rate, bins) || w.Matches(44100, bins) {
		t.Error("Matches should track sample rate and bin count")
	}
}
