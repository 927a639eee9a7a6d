package systems

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/ferrofluid/audio"
	"github.com/pthm-cable/ferrofluid/config"
)

// inertParams returns step parameters with every force disabled.
func inertParams() StepParams {
	cfg := config.Defaults()
	cfg.Physics = config.PhysicsConfig{
		FixedStep:  cfg.Physics.FixedStep,
		MaxFrameDT: cfg.Physics.MaxFrameDT,
		MaxBacklog: cfg.Physics.MaxBacklog,
	}
	cfg.Magnet.Strength = 0
	return ParamsFromConfig(cfg)
}

func TestGravityOnlyStep(t *testing.T) {
	c := Capsule{CX: 0, CY: 0, RX: 10, RY: 10, Roundness: 4, Scale: 10}
	s := NewSimulationState(4)
	// Top, right, bottom, left
	pos := [4][2]float64{{0, -10}, {10, 0}, {0, 10}, {-10, 0}}
	for i, p := range pos {
		s.PX[i], s.PY[i] = p[0], p[1]
	}

	p := inertParams()
	p.Gravity = 100
	dt := 1.0 / 120
	Step(s, c, &p, StepInput{Mode: ManualDrive{Held: false}}, dt)

	gdt := 100 * dt
	for i := range pos {
		if v := c.Value(s.PX[i], s.PY[i]); v > 1+1e-6 {
			t.Errorf("particle %d outside boundary after step: value=%f", i, v)
		}
		if math.Abs(s.VX[i]) > 1e-6 {
			t.Errorf("particle %d: expected no horizontal velocity, got %f", i, s.VX[i])
		}
	}
	for _, i := range []int{0, 1, 3} {
		// Unconstrained particles keep g·dt; a grazing contact damps it by 0.9.
		if s.VY[i] < 0.9*gdt-1e-9 || s.VY[i] > gdt+1e-9 {
			t.Errorf("particle %d: expected vy ≈ %f, got %f", i, gdt, s.VY[i])
		}
	}
	if s.VY[0] != gdt {
		t.Errorf("top particle: expected vy = %f exactly, got %f", gdt, s.VY[0])
	}
	// The bottom particle was pushed out and re-projected
	if s.VY[2] > gdt {
		t.Errorf("bottom particle: expected collision to remove outward velocity, got vy=%f", s.VY[2])
	}
	if math.Abs(s.PY[2]-10) > 1e-6 {
		t.Errorf("bottom particle: expected to sit on the boundary, got y=%f", s.PY[2])
	}
}

func TestSplitScenario(t *testing.T) {
	c := NewCapsule(1000, 800, 1, 1, 3.35)
	geo := GeometryFor(c)
	p := ParamsFromConfig(config.Defaults())
	dt := 1.0 / 120

	s := NewSimulationState(2)
	s.PX[0], s.PY[0] = c.CX, c.CY
	s.PX[1], s.PY[1] = c.CX+geo.IsolationLinkRadius*0.5, c.CY

	res := Step(s, c, &p, StepInput{Mode: ManualDrive{}}, dt)
	if res.Components != 1 {
		t.Fatalf("expected linked pair to form 1 component, got %d", res.Components)
	}
	if res.MainSize != 2 {
		t.Errorf("expected main body of 2, got %d", res.MainSize)
	}
	for i := 0; i < 2; i++ {
		if sev := s.Components.Severity(i); sev != 0 {
			t.Errorf("particle %d: expected severity 0 in main body, got %f", i, sev)
		}
	}

	s.PX[1] = s.PX[0] + geo.NeighborRadius*2.5
	s.PY[1] = s.PY[0]
	res = Step(s, c, &p, StepInput{Mode: ManualDrive{}}, dt)
	if res.Components != 2 {
		t.Fatalf("expected split into 2 components, got %d", res.Components)
	}
	for i := 0; i < 2; i++ {
		if size := s.Components.Size(i); size != 1 {
			t.Errorf("particle %d: expected component of size 1, got %d", i, size)
		}
		if sev := s.Components.Severity(i); sev <= 0 {
			t.Errorf("particle %d: expected nonzero detachment severity, got %f", i, sev)
		}
	}
}

func TestStepKeepsParticlesInside(t *testing.T) {
	cfg := config.Defaults()
	c := NewCapsule(1280, 800, cfg.Capsule.Width, cfg.Capsule.Height, cfg.Capsule.Roundness)
	p := ParamsFromConfig(cfg)
	s := NewSimulationState(cfg.Particles.Count)
	s.Spawn(c, rand.New(rand.NewSource(42)))

	dt := cfg.Physics.FixedStep
	modes := []DriveMode{
		ManualDrive{Held: true},
		PeriodicDrive{Hz: cfg.Drive.PulseHz},
		AudioDrive{Signal: audio.Signal{Active: true, Drive: 0.9, Gate: 1, Transient: 0.6, Impact: 0.7}},
		ManualDrive{Held: false},
	}
	for step := 0; step < 480; step++ {
		mode := modes[(step/120)%len(modes)]
		if pd, ok := mode.(PeriodicDrive); ok {
			pd.Time = float64(step) * dt
			mode = pd
		}
		res := Step(s, c, &p, StepInput{Mode: mode}, dt)

		if res.Envelope.Drive < 0 || res.Envelope.Drive > 1 {
			t.Fatalf("step %d: envelope %f out of range", step, res.Envelope.Drive)
		}
		if res.MotionHighlight < 0 || res.MotionHighlight > maxMotion {
			t.Fatalf("step %d: motion highlight %f out of range", step, res.MotionHighlight)
		}
	}

	geo := GeometryFor(c)
	for i := 0; i < s.Len(); i++ {
		if math.IsNaN(s.PX[i]) || math.IsNaN(s.VY[i]) {
			t.Fatalf("particle %d has NaN state", i)
		}
		if v := c.Value(s.PX[i], s.PY[i]); v > 1+1e-6 {
			t.Errorf("particle %d outside boundary: value=%f", i, v)
		}
		if speed := math.Hypot(s.VX[i], s.VY[i]); speed > geo.MaxSpeed+1e-6 {
			t.Errorf("particle %d exceeds max speed: %f > %f", i, speed, geo.MaxSpeed)
		}
	}
}

func TestStepIsDeterministic(t *testing.T) {
	cfg := config.Defaults()
	c := NewCapsule(1280, 800, 1, 1, cfg.Capsule.Roundness)
	p := ParamsFromConfig(cfg)

	run := func() *SimulationState {
		s := NewSimulationState(64)
		s.Spawn(c, rand.New(rand.NewSource(9)))
		for i := 0; i < 60; i++ {
			Step(s, c, &p, StepInput{Mode: ManualDrive{Held: i < 30}}, cfg.Physics.FixedStep)
		}
		return s
	}
	a, b := run(), run()
	for i := range a.PX {
		if a.PX[i] != b.PX[i] || a.VY[i] != b.VY[i] {
			t.Fatalf("particle %d diverged between identical runs", i)
		}
	}
}

func TestStepPanicsOnMismatchedBuffers(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic when stepping mismatched buffers")
		}
	}()
	s := NewSimulationState(4)
	s.VX = s.VX[:3]
	p := inertParams()
	Step(s, NewCapsule(800, 800, 1, 1, 3), &p, StepInput{}, 1.0/120)
}

func TestRescaleKeepsProportions(t *testing.T) {
	prev := NewCapsule(800, 800, 1, 1, 3.35)
	next := NewCapsule(1600, 1600, 1, 1, 3.35)
	s := NewSimulationState(1)
	s.PX[0] = prev.CX + 20
	s.PY[0] = prev.CY - 10
	s.VX[0] = 5

	s.Rescale(prev, next)
	if math.Abs(s.PX[0]-(next.CX+40)) > 1e-9 || math.Abs(s.PY[0]-(next.CY-20)) > 1e-9 {
		t.Errorf("expected rescaled offset (40, -20), got (%f, %f)", s.PX[0]-next.CX, s.PY[0]-next.CY)
	}
	if math.Abs(s.VX[0]-10) > 1e-9 {
		t.Errorf("expected velocity scaled to 10, got %f", s.VX[0])
	}
}

func BenchmarkStep(b *testing.B) {
	cfg := config.Defaults()
	c := NewCapsule(1280, 800, 1, 1, cfg.Capsule.Roundness)
	p := ParamsFromConfig(cfg)
	s := NewSimulationState(cfg.Particles.Count)
	s.Spawn(c, rand.New(rand.NewSource(42)))
	in := StepInput{Mode: PeriodicDrive{Hz: cfg.Drive.PulseHz}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Step(s, c, &p, in, cfg.Physics.FixedStep)
	}
}

func TestCoincidentPairLinksAndSeparates(t *testing.T) {
	c := NewCapsule(1000, 800, 1, 1, 3.35)
	p := ParamsFromConfig(config.Defaults())

	s := NewSimulationState(2)
	s.PX[0], s.PY[0] = c.CX, c.CY
	s.PX[1], s.PY[1] = c.CX, c.CY

	res := Step(s, c, &p, StepInput{Mode: ManualDrive{}}, 1.0/120)
	if res.Components != 1 {
		t.Errorf("expected coincident pair to form 1 component, got %d", res.Components)
	}
	if d := math.Hypot(s.PX[1]-s.PX[0], s.PY[1]-s.PY[0]); d <= 0 {
		t.Errorf("expected repulsion to separate the pair, got distance %f", d)
	}
	for i := 0; i < 2; i++ {
		if math.IsNaN(s.PX[i]) || math.IsNaN(s.PY[i]) {
			t.Fatalf("particle %d: position became NaN", i)
		}
	}
}
