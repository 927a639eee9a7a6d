// Package audio turns frequency spectra into the bounded drive signal that
// actuates the magnet.
package audio

import "math"

// Weights holds the per-bin frequency weighting curves for one sample rate and
// bin count.
type Weights struct {
	Drive    []float64
	Low      []float64
	DriveSum float64
	LowSum   float64

	sampleRate float64
}

// Matches reports whether the weights were built for this bin layout.
func (w *Weights) Matches(sampleRate float64, binCount int) bool {
	return w.Drive != nil && len(w.Drive) == binCount && w.sampleRate == sampleRate
}

// Band limits for the drive weighting.
const (
	minWeightedHz = 20.0
	maxWeightedHz = 6000.0
)

// BuildWeights computes the drive and low-band weighting curves. Bins are
// centred at (i+0.5)·nyquist/binCount.
//
// The drive curve approximates the current through a voltage-driven coil:
// inductance raises impedance above ~1.4 kHz and a resonance near 90 Hz adds a
// notch, on top of band emphasis for sub-bass, kick, mids and a little top end.
// The low curve keeps only kick and sub-bass.
func BuildWeights(sampleRate float64, binCount int) Weights {
	w := Weights{
		Drive:      make([]float64, binCount),
		Low:        make([]float64, binCount),
		sampleRate: sampleRate,
	}
	if binCount < 1 {
		w.DriveSum, w.LowSum = 1e-4, 1e-4
		return w
	}

	nyquist := sampleRate * 0.5
	binHz := nyquist / float64(binCount)

	for i := 0; i < binCount; i++ {
		freq := (float64(i) + 0.5) * binHz
		if freq < minWeightedHz || freq > maxWeightedHz {
			continue
		}

		current := coilCurrent(freq)

		lowBand := smoothstep(28, 58, freq) * (1 - smoothstep(210, 320, freq))
		kickBand := smoothstep(45, 70, freq) * (1 - smoothstep(130, 180, freq))
		midBand := smoothstep(180, 280, freq) * (1 - smoothstep(1100, 1600, freq))
		highBand := smoothstep(1200, 1800, freq) * (1 - smoothstep(4200, 6000, freq))

		driveW := current * (lowBand*1.25 + kickBand*0.85 + midBand*0.22 + highBand*0.06)
		lowW := current * (kickBand*1.35 + lowBand*0.95)

		w.Drive[i] = driveW
		w.Low[i] = lowW
		w.DriveSum += driveW
		w.LowSum += lowW
	}

	w.DriveSum = math.Max(1e-4, w.DriveSum)
	w.LowSum = math.Max(1e-4, w.LowSum)
	return w
}

// coilCurrent is the relative current through the driver coil at freq.
func coilCurrent(freq float64) float64 {
	inductive := math.Sqrt(1 + math.Pow(freq/1400, 2))
	resonance := 1 + 1.15*math.Exp(-math.Pow((freq-90)/55, 2))
	return 1 / (inductive * resonance)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func smoothstep(edge0, edge1, x float64) float64 {
	if edge0 == edge1 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := clamp((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}
