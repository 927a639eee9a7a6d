package systems

import (
	"math"

	"github.com/pthm-cable/ferrofluid/audio"
	"github.com/pthm-cable/ferrofluid/config"
)

// DriveMode selects what the magnet envelope follows. Exactly one mode is
// active per sub-step: ManualDrive, PeriodicDrive or AudioDrive.
type DriveMode interface {
	driveMode()
}

// ManualDrive follows a single trigger-held input.
type ManualDrive struct {
	Held bool
}

// PeriodicDrive follows a sine at Hz evaluated at Time seconds.
type PeriodicDrive struct {
	Hz   float64
	Time float64
}

// AudioDrive follows a processed audio signal.
type AudioDrive struct {
	Signal audio.Signal
}

func (ManualDrive) driveMode()   {}
func (PeriodicDrive) driveMode() {}
func (AudioDrive) driveMode()    {}

// Periodic gate threshold on the raw sine.
const periodicGateLevel = 0.62

// ComputeDriveTarget returns the envelope target in [0,1] for mode.
func ComputeDriveTarget(mode DriveMode, shape config.DriveShape) float64 {
	switch m := mode.(type) {
	case ManualDrive:
		if m.Held {
			return 1
		}
		return 0
	case PeriodicDrive:
		wave := math.Sin(m.Time * m.Hz * 2 * math.Pi)
		if shape == config.DriveGate {
			if wave > periodicGateLevel {
				return 1
			}
			return 0
		}
		return wave*0.5 + 0.5
	case AudioDrive:
		sig := m.Signal
		if !sig.Active {
			return 0
		}
		if shape == config.DriveGate {
			return clamp01(sig.Gate*0.38 + sig.Drive*0.92 + sig.Impact*0.44)
		}
		return clamp01(sig.Drive*1.12 + sig.Impact*0.35)
	default:
		return 0
	}
}

// driveSignal returns the audio signal carried by mode, or a zero signal.
func driveSignal(mode DriveMode) audio.Signal {
	if m, ok := mode.(AudioDrive); ok {
		return m.Signal
	}
	return audio.Signal{}
}

// EnvelopeRates are exponential follow rates in 1/s.
type EnvelopeRates struct {
	Rise float64
	Fall float64
}

// EnvelopeRateTable holds the follow rates per drive mode and shape. The
// values are tuned by feel; override them per simulation if needed.
type EnvelopeRateTable struct {
	Manual        EnvelopeRates
	AudioInOut    EnvelopeRates
	AudioGate     EnvelopeRates
	PeriodicInOut EnvelopeRates
	PeriodicGate  EnvelopeRates
}

// DefaultEnvelopeRates is the stock rate table.
var DefaultEnvelopeRates = EnvelopeRateTable{
	Manual:        EnvelopeRates{Rise: 42, Fall: 28},
	AudioInOut:    EnvelopeRates{Rise: 132, Fall: 86},
	AudioGate:     EnvelopeRates{Rise: 116, Fall: 74},
	PeriodicInOut: EnvelopeRates{Rise: 44, Fall: 30},
	PeriodicGate:  EnvelopeRates{Rise: 24, Fall: 17},
}

// For returns the rates for mode and shape. An audio mode without a live
// signal uses the periodic rates.
func (t EnvelopeRateTable) For(mode DriveMode, shape config.DriveShape) EnvelopeRates {
	gate := shape == config.DriveGate
	switch m := mode.(type) {
	case ManualDrive:
		return t.Manual
	case AudioDrive:
		if m.Signal.Active {
			if gate {
				return t.AudioGate
			}
			return t.AudioInOut
		}
	}
	if gate {
		return t.PeriodicGate
	}
	return t.PeriodicInOut
}

// Envelope is the pulse envelope in [0,1] with asymmetric follow rates.
type Envelope struct {
	Value float64
	prev  float64
}

// EnvelopeStep describes one envelope update.
type EnvelopeStep struct {
	Drive  float64 // envelope after the update, in [0,1]
	Shaped float64 // Drive^1.22
	Slope  float64 // d(Drive)/dt
	Delta  float64 // |Drive - previous Drive|
}

const envelopeShapeExponent = 1.22

// Update moves the envelope toward target and reports its rate of change.
func (e *Envelope) Update(target float64, rates EnvelopeRates, dt float64) EnvelopeStep {
	rate := rates.Fall
	if target > e.Value {
		rate = rates.Rise
	}
	e.Value += (target - e.Value) * clamp01(rate*dt)
	e.Value = clamp01(e.Value)

	drive := e.Value
	step := EnvelopeStep{
		Drive:  drive,
		Shaped: powPos(drive, envelopeShapeExponent),
		Slope:  (drive - e.prev) / math.Max(dt, 1e-4),
		Delta:  math.Abs(drive - e.prev),
	}
	e.prev = drive
	return step
}

// Reset zeroes the envelope and its history.
func (e *Envelope) Reset() {
	e.Value = 0
	e.prev = 0
}
