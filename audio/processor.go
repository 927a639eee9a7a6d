package audio

import "math"

// Signal is the processed drive state for one sub-step.
type Signal struct {
	Active    bool
	Drive     float64 // [0,1]
	Gate      float64 // 0 or 1
	Transient float64 // [0,1]
	Impact    float64 // [0,1]
}

// Params are the user-facing processor controls.
type Params struct {
	Sensitivity float64
	Smoothing   float64 // clamped to [0, 0.98]
	Threshold   float64 // clamped to [0, 0.88]
}

// Shaping constants.
const (
	driveExponent = 0.58

	impactRiseRate = 28.0
	impactFallRate = 10.0

	gateDriveLevel     = 0.09
	gateTransientLevel = 0.06

	// Geometric decay per call while the source is paused.
	pausedLevelDecay  = 0.92
	pausedLowDecay    = 0.90
	pausedImpactDecay = 0.86
)

// Processor converts byte spectra into drive signals. It keeps smoothed levels
// between calls and is not safe for concurrent use.
type Processor struct {
	level    float64
	lowLevel float64
	prevLow  float64
	impact   float64

	weights Weights
}

// NewProcessor creates a processor with zeroed dynamics.
func NewProcessor() *Processor {
	return &Processor{}
}

// Reset zeroes the smoothed state. Call when the source changes or is disabled.
func (p *Processor) Reset() {
	p.level = 0
	p.lowLevel = 0
	p.prevLow = 0
	p.impact = 0
}

// Level returns the smoothed overall level.
func (p *Processor) Level() float64 { return p.level }

// Idle decays the smoothed state toward zero for a paused source and returns an
// inactive signal carrying the decayed impact.
func (p *Processor) Idle() Signal {
	p.level *= pausedLevelDecay
	p.lowLevel *= pausedLowDecay
	p.prevLow = p.lowLevel
	p.impact *= pausedImpactDecay
	return Signal{Impact: p.impact}
}

// Process evaluates one spectrum frame. bins holds magnitudes in [0,255];
// sampleRate is used to (re)build the weighting curves when the layout changes.
func (p *Processor) Process(bins []byte, sampleRate float64, params Params, dt float64) Signal {
	if len(bins) == 0 {
		p.Reset()
		return Signal{}
	}
	if !p.weights.Matches(sampleRate, len(bins)) {
		p.weights = BuildWeights(sampleRate, len(bins))
	}

	var driveSum, lowSum float64
	for i, b := range bins {
		amplitude := float64(b) / 255
		driveSum += amplitude * p.weights.Drive[i]
		lowSum += amplitude * p.weights.Low[i]
	}
	raw := driveSum / p.weights.DriveSum
	lowRaw := lowSum / p.weights.LowSum

	smooth := clamp(params.Smoothing, 0, 0.98)
	follow := 1 - math.Pow(smooth, dt*60)
	p.level += (raw - p.level) * follow
	lowFollow := 1 - math.Pow(math.Max(0.08, smooth*0.52), dt*60)
	p.lowLevel += (lowRaw - p.lowLevel) * clamp(lowFollow, 0, 1)

	lowTransient := math.Max(0, lowRaw-p.lowLevel)
	lowFlux := math.Max(0, lowRaw-p.prevLow)
	p.prevLow = lowRaw
	transient := clamp(lowTransient*1.45+lowFlux*1.75+math.Max(0, raw-p.level)*0.55, 0, 1)

	threshold := clamp(params.Threshold, 0, 0.88)
	normalized := clamp((p.level-threshold)/(1-threshold), 0, 1)
	sensitivity := math.Max(0, params.Sensitivity)
	base := clamp(normalized*sensitivity, 0, 1)
	shaped := math.Pow(base, driveExponent)

	transientBoost := clamp(transient*(1.5+sensitivity*1.8), 0, 1)
	impactRate := impactFallRate
	if transientBoost > p.impact {
		impactRate = impactRiseRate
	}
	p.impact += (transientBoost - p.impact) * clamp(impactRate*dt, 0, 1)

	drive := clamp(shaped*0.74+transientBoost*0.96+p.impact*0.72, 0, 1)
	var gate float64
	if drive > gateDriveLevel || transientBoost > gateTransientLevel {
		gate = 1
	}

	return Signal{
		Active:    true,
		Drive:     drive,
		Gate:      gate,
		Transient: transientBoost,
		Impact:    p.impact,
	}
}
