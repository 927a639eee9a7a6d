package game

import (
	"github.com/pthm-cable/ferrofluid/audio"
	"github.com/pthm-cable/ferrofluid/renderer"
)

// Options configures a Game beyond the simulation config.
type Options struct {
	Seed int64

	// Viewport in logical pixels and device pixel ratio. Zero values fall
	// back to the config's screen section.
	Width, Height int
	DPR           float64

	// Environment is sampled for reflections. Nil uses the procedural
	// studio lighting.
	Environment renderer.EnvironmentSampler
	// Audio feeds the audio drive. Nil yields a silent drive.
	Audio audio.Source

	LogStats       bool
	StatsWindowSec float64
	SnapshotDir    string
	OutputDir      string
}

// fallbackFixedStep is used when the configured step is not positive.
const fallbackFixedStep = 1.0 / 120
