package game

import (
	"math"

	"github.com/pthm-cable/ferrofluid/audio"
	"github.com/pthm-cable/ferrofluid/systems"
	"github.com/pthm-cable/ferrofluid/telemetry"
)

// advancer is implemented by audio sources with their own playhead.
type advancer interface {
	Advance(dt float64)
}

// Update advances the simulation by elapsed wall seconds and renders the
// fluid layer. Elapsed time is clamped to the max frame delta and added to
// an accumulator capped at the max backlog; one fixed sub-step runs per
// whole step in the accumulator. draw, if non-nil, composites the layer and
// is timed as the draw phase.
func (g *Game) Update(elapsed float64, draw func(Layer)) Layer {
	ph := g.cfg.Physics
	fixed := ph.FixedStep
	if !(fixed > 0) {
		fixed = fallbackFixedStep
	}

	g.perfCollector.StartFrame()

	dt := clampFloat(elapsed, 0, math.Max(0, ph.MaxFrameDT))
	g.simTime += dt
	g.accumulator = math.Min(g.accumulator+dt, math.Max(fixed, ph.MaxBacklog))
	if a, ok := g.source.(advancer); ok {
		a.Advance(dt)
	}

	g.perfCollector.StartPhase(telemetry.PhaseStep)
	steps := 0
	for g.accumulator >= fixed {
		g.step(fixed)
		g.accumulator -= fixed
		steps++
	}
	g.perfCollector.AddSteps(steps)

	g.perfCollector.StartPhase(telemetry.PhaseField)
	g.field.Build(g.state)

	g.perfCollector.StartPhase(telemetry.PhaseShade)
	img := g.shader.Shade(g.field, g.capsule, g.state.MotionHighlight, g.env)

	layer := Layer{
		Image:           img,
		Bounds:          g.field.Bounds,
		Envelope:        g.state.Envelope.Value,
		MotionHighlight: g.state.MotionHighlight,
		Steps:           steps,
	}
	if draw != nil {
		g.perfCollector.StartPhase(telemetry.PhaseDraw)
		draw(layer)
	}
	g.perfCollector.EndFrame()
	g.hud.Add(telemetry.TimingsFromSample(g.perfCollector.Last()))

	g.frame++
	g.recordFrame(steps)
	g.flushTelemetry()
	return layer
}

// step runs one dynamics sub-step with the drive sampled for this step.
func (g *Game) step(dt float64) {
	g.last = systems.Step(g.state, g.capsule, &g.params, systems.StepInput{Mode: g.driveMode(dt)}, dt)
}

// driveMode selects the drive for one sub-step: the manual trigger when
// manual pulse is enabled, otherwise the audio drive when audio reactive,
// otherwise the periodic driver at the current sim time. The audio
// processor only runs in audio mode; leaving it resets its state.
func (g *Game) driveMode(dt float64) systems.DriveMode {
	d := g.cfg.Drive
	switch {
	case d.ManualPulse:
		g.resetAudio()
		return systems.ManualDrive{Held: g.triggerHeld}
	case d.AudioReactive:
		if len(g.bins) == 0 && g.source != nil {
			g.bins = make([]byte, g.source.BinCount())
		}
		g.lastSignal = g.processor.Sample(g.source, g.bins, g.audioParams, dt)
		return systems.AudioDrive{Signal: g.lastSignal}
	default:
		g.resetAudio()
		return systems.PeriodicDrive{Hz: d.PulseHz, Time: g.simTime}
	}
}

func (g *Game) resetAudio() {
	g.processor.Reset()
	g.lastSignal = audio.Signal{}
}

func clampFloat(v, lo, hi float64) float64 {
	if !(v >= lo) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
