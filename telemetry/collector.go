package telemetry

// Collector accumulates frame samples and produces WindowStats once a
// window of simulation time has passed.
type Collector struct {
	windowDurationSec float64

	windowStartFrame int64
	windowStartTime  float64

	envelope     []float64
	motion       []float64
	mainFraction []float64
	detached     []float64
	speed        []float64
	audioDrive   []float64

	steps         int
	gateOpen      int
	componentsMax int
}

// NewCollector creates a collector with windows of windowDurationSec
// simulation seconds.
func NewCollector(windowDurationSec float64) *Collector {
	if windowDurationSec <= 0 {
		windowDurationSec = 5
	}
	return &Collector{windowDurationSec: windowDurationSec}
}

// Record adds one frame sample to the current window.
func (c *Collector) Record(s FrameSample) {
	c.envelope = append(c.envelope, s.Envelope)
	c.motion = append(c.motion, s.MotionHighlight)
	c.mainFraction = append(c.mainFraction, s.MainFraction)
	c.detached = append(c.detached, float64(s.Detached))
	c.speed = append(c.speed, s.MeanSpeed)
	c.audioDrive = append(c.audioDrive, s.AudioDrive)
	c.steps += s.Steps
	if s.AudioGate {
		c.gateOpen++
	}
	c.componentsMax = max(c.componentsMax, s.Components)
}

// Frames returns the number of samples in the current window.
func (c *Collector) Frames() int { return len(c.envelope) }

// ShouldFlush reports whether the window ending at simTime is complete.
func (c *Collector) ShouldFlush(simTime float64) bool {
	return simTime-c.windowStartTime >= c.windowDurationSec && c.Frames() > 0
}

// Flush summarises the window ending at frame/simTime and starts a new one.
func (c *Collector) Flush(frame int64, simTime float64) WindowStats {
	env := Summarize(c.envelope)
	motion := Summarize(c.motion)
	body := Summarize(c.mainFraction)
	speed := Summarize(c.speed)

	stats := WindowStats{
		WindowStartFrame: c.windowStartFrame,
		WindowEndFrame:   frame,
		SimTimeSec:       simTime,
		Frames:           c.Frames(),
		Steps:            c.steps,

		EnvelopeMean: env.Mean,
		EnvelopeP50:  env.P50,
		EnvelopeP90:  env.P90,
		EnvelopePeak: env.Max,

		MotionMean: motion.Mean,
		MotionPeak: motion.Max,

		MainFractionMean: body.Mean,
		MainFractionMin:  body.Min,
		ComponentsMax:    c.componentsMax,
		DetachedMean:     Summarize(c.detached).Mean,

		SpeedMean: speed.Mean,
		SpeedStd:  speed.Std,

		AudioDriveMean: Summarize(c.audioDrive).Mean,
	}
	if n := c.Frames(); n > 0 {
		stats.GateOpenFrac = float64(c.gateOpen) / float64(n)
	}

	c.windowStartFrame = frame
	c.windowStartTime = simTime
	c.envelope = c.envelope[:0]
	c.motion = c.motion[:0]
	c.mainFraction = c.mainFraction[:0]
	c.detached = c.detached[:0]
	c.speed = c.speed[:0]
	c.audioDrive = c.audioDrive[:0]
	c.steps = 0
	c.gateOpen = 0
	c.componentsMax = 0

	return stats
}

// Reset discards the current window and restarts timing at simTime.
func (c *Collector) Reset(frame int64, simTime float64) {
	c.Flush(frame, simTime)
}
