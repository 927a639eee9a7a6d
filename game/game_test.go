package game

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/ferrofluid/audio"
	"github.com/pthm-cable/ferrofluid/config"
	"github.com/pthm-cable/ferrofluid/systems"
	"github.com/pthm-cable/ferrofluid/telemetry"
)

// testConfig returns a small, fast configuration.
func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Screen.Width = 360
	cfg.Screen.Height = 300
	cfg.Particles.Count = 48
	cfg.Render.Quality = 0.6
	return cfg
}

func newTestGame(t *testing.T, cfg *config.Config, opts Options) *Game {
	t.Helper()
	g, err := NewGameWithOptions(cfg, opts)
	if err != nil {
		t.Fatalf("NewGameWithOptions failed: %v", err)
	}
	t.Cleanup(g.Unload)
	return g
}

// toneSource is a live source with a flat spectrum.
type toneSource struct {
	level    byte
	advanced float64
}

func (s *toneSource) Spectrum(dst []byte) bool {
	for i := range dst {
		dst[i] = s.level
	}
	return true
}
func (s *toneSource) BinCount() int       { return 512 }
func (s *toneSource) SampleRate() float64 { return 48000 }
func (s *toneSource) Advance(dt float64)  { s.advanced += dt }

func TestUpdateRunsFixedSteps(t *testing.T) {
	g := newTestGame(t, testConfig(), Options{Seed: 1})
	fixed := g.Config().Physics.FixedStep

	if layer := g.Update(2*fixed, nil); layer.Steps != 2 {
		t.Errorf("expected 2 steps for two fixed steps of elapsed time, got %d", layer.Steps)
	}
	if layer := g.Update(0, nil); layer.Steps != 0 {
		t.Errorf("expected no steps for zero elapsed time, got %d", layer.Steps)
	}
	if layer := g.Update(-1, nil); layer.Steps != 0 {
		t.Errorf("expected negative elapsed time to be ignored, got %d steps", layer.Steps)
	}
	if g.Frame() != 3 {
		t.Errorf("expected 3 frames, got %d", g.Frame())
	}
}

func TestUpdateClampsElapsed(t *testing.T) {
	cfg := testConfig()
	cfg.Physics.MaxFrameDT = 0.033
	g := newTestGame(t, cfg, Options{Seed: 1})

	// 33 ms holds three whole 1/120 s steps
	if layer := g.Update(1.0, nil); layer.Steps != 3 {
		t.Errorf("expected elapsed clamp to allow 3 steps, got %d", layer.Steps)
	}
	if got := g.SimTime(); got != 0.033 {
		t.Errorf("expected sim time 0.033, got %f", got)
	}
	if layer := g.Update(0, nil); layer.Steps != 0 {
		t.Errorf("expected leftover accumulator below one step, got %d steps", layer.Steps)
	}
}

func TestUpdateCapsBacklog(t *testing.T) {
	cfg := testConfig()
	cfg.Physics.MaxFrameDT = 1
	cfg.Physics.MaxBacklog = 0.105
	g := newTestGame(t, cfg, Options{Seed: 1})

	if layer := g.Update(1.0, nil); layer.Steps != 12 {
		t.Errorf("expected backlog cap to allow 12 steps, got %d", layer.Steps)
	}
}

func TestUpdateProducesLayer(t *testing.T) {
	g := newTestGame(t, testConfig(), Options{Seed: 3})
	drawn := 0
	layer := g.Update(1.0/60, func(l Layer) {
		drawn++
		if l.Image == nil {
			t.Error("expected draw callback to receive an image")
		}
	})
	if drawn != 1 {
		t.Errorf("expected draw callback once, got %d", drawn)
	}
	if layer.Image == nil {
		t.Fatal("expected a layer image")
	}
	b := layer.Image.Bounds()
	if b.Dx() != g.field.Width || b.Dy() != g.field.Height {
		t.Errorf("expected image %dx%d, got %dx%d", g.field.Width, g.field.Height, b.Dx(), b.Dy())
	}
	if layer.Bounds != g.field.Bounds {
		t.Errorf("expected layer bounds %+v, got %+v", g.field.Bounds, layer.Bounds)
	}
	if _, ok := g.Perf().Last().Phases[telemetry.PhaseDraw]; !ok {
		t.Error("expected the draw phase to be timed")
	}
}

func TestDriveModeSelection(t *testing.T) {
	tests := []struct {
		name   string
		manual bool
		audio  bool
		source audio.Source
		want   string
	}{
		{"manual wins", true, true, &toneSource{level: 200}, "manual"},
		{"audio", false, true, &toneSource{level: 200}, "audio"},
		{"audio without source", false, true, nil, "audio"},
		{"periodic", false, false, &toneSource{level: 200}, "periodic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Drive.ManualPulse = tt.manual
			cfg.Drive.AudioReactive = tt.audio
			g := newTestGame(t, cfg, Options{Seed: 1, Audio: tt.source})

			var got string
			switch g.driveMode(1.0 / 120).(type) {
			case systems.ManualDrive:
				got = "manual"
			case systems.AudioDrive:
				got = "audio"
			case systems.PeriodicDrive:
				got = "periodic"
			}
			if got != tt.want {
				t.Errorf("expected %s drive, got %s", tt.want, got)
			}
		})
	}
}

func TestAudioDriveFollowsSource(t *testing.T) {
	cfg := testConfig()
	cfg.Drive.ManualPulse = false
	cfg.Drive.AudioReactive = true
	src := &toneSource{level: 230}
	g := newTestGame(t, cfg, Options{Seed: 1, Audio: src})

	for _i := 0; _i < 10; _i++ {
		g.Update(1.0/60, nil)
	}
	if !g.AudioSignal().Active {
		t.Error("expected an active audio signal from a live source")
	}
	if src.advanced <= 0 {
		t.Error("expected the source playhead to advance")
	}

	g.SetAudioSource(nil)
	g.Update(1.0/60, nil)
	if g.AudioSignal().Active {
		t.Error("expected an inactive signal without a source")
	}
}

func TestTriggerSnapsEnvelopeInManualMode(t *testing.T) {
	cfg := testConfig()
	cfg.Drive.ManualPulse = true
	g := newTestGame(t, cfg, Options{Seed: 1})

	g.SetTriggerHeld(true)
	if g.State().Envelope.Value != 1 {
		t.Errorf("expected envelope 1 on trigger press, got %f", g.State().Envelope.Value)
	}
	g.Update(1.0/60, nil)
	if v := g.State().Envelope.Value; v < 0.99 {
		t.Errorf("expected envelope to stay high while held, got %f", v)
	}

	g.SetTriggerHeld(false)
	for _i := 0; _i < 30; _i++ {
		g.Update(1.0/60, nil)
	}
	if v := g.State().Envelope.Value; v > 0.01 {
		t.Errorf("expected envelope to fall after release, got %f", v)
	}
}

func TestResetRespawnsInsideCapsule(t *testing.T) {
	g := newTestGame(t, testConfig(), Options{Seed: 5})
	for _i := 0; _i < 20; _i++ {
		g.Update(1.0/60, nil)
	}
	g.Reset()

	if g.SimTime() != 0 {
		t.Errorf("expected sim time reset, got %f", g.SimTime())
	}
	s := g.State()
	if s.Envelope.Value != 0 || s.MotionHighlight != 0 {
		t.Errorf("expected zeroed envelope and motion, got %f and %f", s.Envelope.Value, s.MotionHighlight)
	}
	c := g.Capsule()
	for i := 0; i < s.Len(); i++ {
		if !c.Contains(s.PX[i], s.PY[i]) {
			t.Errorf("particle %d spawned outside the capsule at (%f, %f)", i, s.PX[i], s.PY[i])
		}
	}
}

func TestResizeRescalesParticles(t *testing.T) {
	g := newTestGame(t, testConfig(), Options{Seed: 2})
	g.Update(1.0/60, nil)
	prev := g.Capsule()
	s := g.State()
	oldW := g.field.Width

	g.Resize(720, 600, 1)
	next := g.Capsule()
	if next.RX <= prev.RX {
		t.Fatalf("expected a larger capsule, got rx %f -> %f", prev.RX, next.RX)
	}
	if g.State() != s {
		t.Error("expected resize to keep the particle buffers")
	}
	for i := 0; i < s.Len(); i++ {
		if v := next.Value(s.PX[i], s.PY[i]); v > 1+1e-6 {
			t.Errorf("particle %d outside the resized capsule: %f", i, v)
		}
	}
	if g.field.Width <= oldW {
		t.Errorf("expected the field raster to grow, got %d -> %d", oldW, g.field.Width)
	}
}

func TestApplyConfigReallocates(t *testing.T) {
	g := newTestGame(t, testConfig(), Options{Seed: 4})
	g.SetTriggerHeld(true)

	cfg := testConfig()
	cfg.Particles.Count = 64
	g.ApplyConfig(cfg)

	if g.State().Len() != 64 {
		t.Errorf("expected 64 particles after apply, got %d", g.State().Len())
	}
	if g.TriggerHeld() {
		t.Error("expected apply to release the trigger")
	}
	if g.State().Envelope.Value != 0 {
		t.Errorf("expected envelope reset, got %f", g.State().Envelope.Value)
	}
	g.Update(1.0/60, nil)
}

func TestSimulationIsDeterministic(t *testing.T) {
	a := newTestGame(t, testConfig(), Options{Seed: 9})
	b := newTestGame(t, testConfig(), Options{Seed: 9})
	for _i := 0; _i < 15; _i++ {
		a.Update(1.0/60, nil)
		b.Update(1.0/60, nil)
	}
	sa, sb := a.State(), b.State()
	for i := 0; i < sa.Len(); i++ {
		if sa.PX[i] != sb.PX[i] || sa.VY[i] != sb.VY[i] {
			t.Fatalf("particle %d diverged: (%f,%f) vs (%f,%f)", i, sa.PX[i], sa.VY[i], sb.PX[i], sb.VY[i])
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := newTestGame(t, testConfig(), Options{Seed: 6})
	for _i := 0; _i < 5; _i++ {
		g.Update(1.0/60, nil)
	}
	sn := g.Snapshot()

	other := newTestGame(t, testConfig(), Options{Seed: 7})
	other.RestoreSnapshot(sn)
	for i := 0; i < g.State().Len(); i++ {
		if other.State().PX[i] != g.State().PX[i] || other.State().VX[i] != g.State().VX[i] {
			t.Fatalf("particle %d not restored", i)
		}
	}
	other.Update(1.0/60, nil)
}

func TestTelemetryOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	var windows []telemetry.WindowStats
	g := newTestGame(t, testConfig(), Options{Seed: 1, OutputDir: dir, StatsWindowSec: 0.1})
	g.SetStatsCallback(func(s telemetry.WindowStats) { windows = append(windows, s) })

	for _i := 0; _i < 10; _i++ {
		g.Update(1.0/60, nil)
	}
	g.Unload()

	if len(windows) != 1 {
		t.Fatalf("expected one stats window, got %d", len(windows))
	}
	if windows[0].Frames < 6 {
		t.Errorf("expected at least 6 frames in the window, got %d", windows[0].Frames)
	}
	for _, name := range []string{"frames.csv", "stats.csv", "perf.csv", "config.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
}

func BenchmarkUpdate(b *testing.B) {
	g, err := NewGameWithOptions(config.Defaults(), Options{Seed: 1})
	if err != nil {
		b.Fatal(err)
	}
	defer g.Unload()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.Update(1.0/60, nil)
	}
}

func TestTuneConfigKeepsEnvelope(t *testing.T) {
	cfg := testConfig()
	cfg.Drive.ManualPulse = true
	g := newTestGame(t, cfg, Options{Seed: 4})
	g.SetTriggerHeld(true)
	s := g.State()

	tuned := g.Config().Clone()
	tuned.Magnet.Strength = 900
	g.TuneConfig(tuned)
	if !g.TriggerHeld() || g.State().Envelope.Value != 1 {
		t.Error("expected tuning to keep the trigger and envelope")
	}
	if g.State() != s {
		t.Error("expected tuning without shape changes to keep the particle buffers")
	}
	if g.Config().Magnet.Strength != 900 {
		t.Errorf("expected magnet strength 900, got %f", g.Config().Magnet.Strength)
	}

	tuned = g.Config().Clone()
	tuned.Particles.Count = 30
	g.TuneConfig(tuned)
	if g.State().Len() != 30 {
		t.Errorf("expected 30 particles after tuning the count, got %d", g.State().Len())
	}
}

func TestPulseRaisesMotionHighlight(t *testing.T) {
	cfg := testConfig()
	cfg.Drive.ManualPulse = true
	g := newTestGame(t, cfg, Options{Seed: 2})

	g.SetTriggerHeld(true)
	var layer Layer
	for _i := 0; _i < 30; _i++ {
		layer = g.Update(1.0/60, nil)
	}
	if layer.MotionHighlight <= 0 {
		t.Errorf("expected motion highlight to rise while pulsing, got %f", layer.MotionHighlight)
	}
	if layer.MotionHighlight > 2.2 {
		t.Errorf("expected motion highlight <= 2.2, got %f", layer.MotionHighlight)
	}
}

func TestResizeClampsDPR(t *testing.T) {
	g := newTestGame(t, testConfig(), Options{Seed: 1, DPR: 0.5})
	if g.dpr != 1 {
		t.Errorf("expected initial dpr clamped to 1, got %f", g.dpr)
	}

	tests := []struct {
		in, want float64
	}{
		{0.5, 1},
		{1.5, 1.5},
		{3, 2},
		{0, clampDPR(g.Config().Screen.DPR, 1)},
	}
	for i, tt := range tests {
		// Vary the width so every call lays out again.
		g.Resize(400+i, 300, tt.in)
		if g.dpr != tt.want {
			t.Errorf("Resize dpr %f: expected %f, got %f", tt.in, tt.want, g.dpr)
		}
	}
}

func TestTuneConfigUsesCachedDefaults(t *testing.T) {
	g := newTestGame(t, testConfig(), Options{Seed: 1})
	g.defaults.Magnet.Strength = 1234

	tuned := g.Config().Clone()
	tuned.Magnet.Strength = math.NaN()
	g.TuneConfig(tuned)
	if got := g.Config().Magnet.Strength; got != 1234 {
		t.Errorf("expected non-finite strength replaced from the cached defaults, got %f", got)
	}
}
