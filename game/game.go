// Package game runs one ferrofluid simulation: the fixed-step dynamics loop,
// field building and shading, drive selection and telemetry.
package game

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"math/rand"

	"github.com/pthm-cable/ferrofluid/audio"
	"github.com/pthm-cable/ferrofluid/config"
	"github.com/pthm-cable/ferrofluid/renderer"
	"github.com/pthm-cable/ferrofluid/systems"
	"github.com/pthm-cable/ferrofluid/telemetry"
)

// Layer is the rendered fluid for one frame, ready for compositing.
type Layer struct {
	// Image covers Bounds in world (viewport) coordinates.
	Image  *image.NRGBA
	Bounds systems.Rect

	Envelope        float64
	MotionHighlight float64
	Steps           int
}

// Game holds the complete state of one simulation instance.
type Game struct {
	cfg      *config.Config
	defaults *config.Config
	params   systems.StepParams
	rng      *rand.Rand
	seed     int64

	state   *systems.SimulationState
	capsule systems.Capsule
	field   *systems.DensityField
	shader  *renderer.Shader
	env     renderer.EnvironmentSampler

	processor   *audio.Processor
	source      audio.Source
	bins        []byte
	audioParams audio.Params
	lastSignal  audio.Signal

	width, height float64
	dpr           float64

	accumulator float64
	simTime     float64
	frame       int64
	triggerHeld bool
	last        systems.StepResult

	// Telemetry
	perfCollector    *telemetry.PerfCollector
	hud              telemetry.Smoother
	collector        *telemetry.Collector
	outputManager    *telemetry.OutputManager
	bookmarkDetector *telemetry.BookmarkDetector
	logStats         bool
	snapshotDir      string
	statsCallback    func(telemetry.WindowStats)
}

// NewGameWithOptions creates a simulation from cfg. cfg is cloned; later
// changes go through ApplyConfig.
func NewGameWithOptions(cfg *config.Config, opts Options) (*Game, error) {
	defaults := config.Defaults()
	cfg = cfg.Clone()
	cfg.Sanitize(defaults)

	width, height := float64(opts.Width), float64(opts.Height)
	if width <= 0 || height <= 0 {
		width, height = float64(cfg.Screen.Width), float64(cfg.Screen.Height)
	}
	dpr := clampDPR(opts.DPR, cfg.Screen.DPR)

	statsWindow := opts.StatsWindowSec
	if statsWindow <= 0 {
		statsWindow = cfg.Telemetry.StatsWindow
	}

	g := &Game{
		cfg:              cfg,
		defaults:         defaults,
		params:           systems.ParamsFromConfig(cfg),
		rng:              rand.New(rand.NewSource(opts.Seed)),
		seed:             opts.Seed,
		field:            systems.NewDensityField(),
		shader:           renderer.NewShader(renderer.ParamsFromConfig(cfg), opts.Seed),
		env:              opts.Environment,
		processor:        audio.NewProcessor(),
		source:           opts.Audio,
		audioParams:      audioParamsFromConfig(cfg),
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		collector:        telemetry.NewCollector(statsWindow),
		bookmarkDetector: telemetry.NewBookmarkDetector(8),
		logStats:         opts.LogStats,
		snapshotDir:      opts.SnapshotDir,
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("creating output manager: %w", err)
	}
	g.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		om.Close()
		return nil, fmt.Errorf("writing config snapshot: %w", err)
	}

	g.width, g.height, g.dpr = width, height, dpr
	g.layout()
	g.allocate()

	slog.Info("simulation created",
		"seed", opts.Seed,
		"particles", g.state.Len(),
		"width", width,
		"height", height,
		"field_w", g.field.Width,
		"field_h", g.field.Height,
		"audio", g.source != nil,
		"environment", g.env != nil,
	)
	return g, nil
}

// clampDPR limits a device pixel ratio to [1, 2]; non-positive values take
// the fallback.
func clampDPR(dpr, fallback float64) float64 {
	if dpr <= 0 {
		dpr = fallback
	}
	return math.Min(math.Max(dpr, 1), 2)
}

func audioParamsFromConfig(cfg *config.Config) audio.Params {
	return audio.Params{
		Sensitivity: cfg.Audio.Sensitivity,
		Smoothing:   cfg.Audio.Smoothing,
		Threshold:   cfg.Audio.Threshold,
	}
}

// Config returns the active configuration. Callers must not mutate it.
func (g *Game) Config() *config.Config { return g.cfg }

// State returns the simulation state.
func (g *Game) State() *systems.SimulationState { return g.state }

// Capsule returns the current container.
func (g *Game) Capsule() systems.Capsule { return g.capsule }

// Frame returns the number of rendered frames.
func (g *Game) Frame() int64 { return g.frame }

// SimTime returns simulated seconds since the last reset.
func (g *Game) SimTime() float64 { return g.simTime }

// LastStep returns the result of the most recent dynamics sub-step.
func (g *Game) LastStep() systems.StepResult { return g.last }

// AudioSignal returns the signal used by the most recent sub-step.
func (g *Game) AudioSignal() audio.Signal { return g.lastSignal }

// Perf returns the frame timing collector.
func (g *Game) Perf() *telemetry.PerfCollector { return g.perfCollector }

// HUD returns the smoothed frame timings.
func (g *Game) HUD() *telemetry.Smoother { return &g.hud }

// TriggerHeld reports the manual trigger state.
func (g *Game) TriggerHeld() bool { return g.triggerHeld }

// SetStatsCallback registers fn to receive every flushed stats window.
func (g *Game) SetStatsCallback(fn func(telemetry.WindowStats)) {
	g.statsCallback = fn
}

// SetTriggerHeld sets the manual trigger. Pressing it in manual mode snaps
// the envelope fully on.
func (g *Game) SetTriggerHeld(held bool) {
	if held && !g.triggerHeld && g.cfg.Drive.ManualPulse {
		g.state.Envelope.Value = 1
	}
	g.triggerHeld = held
}

// SetAudioSource swaps the audio source. The processor state is reset.
func (g *Game) SetAudioSource(src audio.Source) {
	g.source = src
	g.bins = nil
	g.processor.Reset()
	g.lastSignal = audio.Signal{}
	slog.Info("audio source changed", "active", src != nil)
}

// SetEnvironment swaps the reflection environment. Nil selects the
// procedural studio lighting.
func (g *Game) SetEnvironment(env renderer.EnvironmentSampler) {
	g.env = env
	slog.Info("environment changed", "active", env != nil)
}

// Unload flushes and closes telemetry output.
func (g *Game) Unload() {
	if g.outputManager != nil {
		if err := g.outputManager.Close(); err != nil {
			slog.Error("failed to close output", "error", err)
		}
		g.outputManager = nil
	}
}
