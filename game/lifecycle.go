package game

import (
	"log/slog"
	"math"

	"github.com/pthm-cable/ferrofluid/audio"
	"github.com/pthm-cable/ferrofluid/config"
	"github.com/pthm-cable/ferrofluid/renderer"
	"github.com/pthm-cable/ferrofluid/systems"
)

// layout recomputes the capsule for the current viewport and shape.
func (g *Game) layout() {
	c := g.cfg.Capsule
	g.capsule = systems.NewCapsule(g.width, g.height, c.Width, c.Height, c.Roundness)
}

// configureField sizes the density raster for the current capsule.
func (g *Game) configureField() {
	g.field.Configure(g.capsule, g.cfg.Render.Quality, g.dpr, g.state.Len())
}

// allocate creates fresh particle buffers for the configured count and
// spawns them. The new state replaces the old one in a single assignment.
func (g *Game) allocate() {
	state := systems.NewSimulationState(g.cfg.Particles.Count)
	state.Spawn(g.capsule, g.rng)
	g.state = state
	g.configureField()
	g.restartClock()
}

func (g *Game) restartClock() {
	g.accumulator = 0
	g.simTime = 0
	g.last = systems.StepResult{}
	g.lastSignal = audio.Signal{}
	g.collector.Reset(g.frame, 0)
}

// Reset respawns every particle and zeroes the dynamic state.
func (g *Game) Reset() {
	if g.state.Len() != g.cfg.Particles.Count {
		g.allocate()
	} else {
		g.state.Spawn(g.capsule, g.rng)
		g.restartClock()
	}
	g.triggerHeld = false
	g.processor.Reset()
	slog.Info("simulation reset", "particles", g.state.Len(), "frame", g.frame)
}

// Resize lays the capsule out for a new viewport. Particles are rescaled
// into the new capsule; if the particle count no longer matches the config
// they are reallocated instead.
func (g *Game) Resize(width, height int, dpr float64) {
	w, h := math.Max(1, float64(width)), math.Max(1, float64(height))
	dpr = clampDPR(dpr, g.cfg.Screen.DPR)
	if w == g.width && h == g.height && dpr == g.dpr {
		return
	}
	g.width, g.height, g.dpr = w, h, dpr
	g.relayout()
	slog.Info("simulation resized",
		"width", w,
		"height", h,
		"dpr", g.dpr,
		"field_w", g.field.Width,
		"field_h", g.field.Height,
	)
}

// relayout moves the particles from the old capsule into the new one.
func (g *Game) relayout() {
	prev := g.capsule
	g.layout()
	if g.state.Len() != g.cfg.Particles.Count {
		g.allocate()
		return
	}
	g.state.Rescale(prev, g.capsule)
	g.configureField()
}

// ApplyConfig replaces the configuration. The envelope and trigger are
// released, the capsule is re-laid out and the particles are reallocated if
// the count changed.
func (g *Game) ApplyConfig(cfg *config.Config) {
	countChanged := g.swapConfig(cfg)
	g.triggerHeld = false
	g.state.Envelope.Reset()
	g.relayout()

	slog.Info("config applied",
		"particles", g.state.Len(),
		"reallocated", countChanged,
		"drive_mode", g.cfg.Derived.DriveShape.String(),
		"manual_pulse", g.cfg.Drive.ManualPulse,
		"audio_reactive", g.cfg.Drive.AudioReactive,
	)
}

// TuneConfig replaces the configuration while the simulation keeps running,
// for interactive parameter edits. The envelope and trigger are kept; the
// capsule is only re-laid out when its shape, the raster quality or the
// particle count changed.
func (g *Game) TuneConfig(cfg *config.Config) {
	prev := g.cfg
	countChanged := g.swapConfig(cfg)
	if countChanged || prev.Capsule != g.cfg.Capsule || prev.Render != g.cfg.Render {
		g.relayout()
	}
	slog.Debug("config tuned", "reallocated", countChanged)
}

// swapConfig installs a sanitized copy of cfg and the parameters derived
// from it. It reports whether the particle count changed.
func (g *Game) swapConfig(cfg *config.Config) bool {
	next := cfg.Clone()
	next.Sanitize(g.defaults)
	countChanged := next.Particles.Count != g.cfg.Particles.Count

	g.cfg = next
	g.params = systems.ParamsFromConfig(next)
	g.shader.Params = renderer.ParamsFromConfig(next)
	g.audioParams = audioParamsFromConfig(next)
	if !next.Drive.AudioReactive {
		g.processor.Reset()
	}
	return countChanged
}
