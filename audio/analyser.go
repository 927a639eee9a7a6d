package audio

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Analyser defaults. Temporal smoothing is left to the Processor.
const (
	DefaultSmoothingTimeConstant = 0.0
	DefaultMinDecibels           = -100.0
	DefaultMaxDecibels           = -30.0
)

// Analyser converts windows of PCM samples into byte frequency magnitudes:
// Blackman window, FFT, temporal smoothing, then dB mapped onto [0,255].
type Analyser struct {
	SmoothingTimeConstant float64
	MinDecibels           float64
	MaxDecibels           float64

	size     int
	fft      *fourier.FFT
	window   []float64
	frame    []float64
	coeffs   []complex128
	smoothed []float64
}

// NewAnalyser creates an analyser for FFT size n. n is rounded up to a power
// of two no smaller than 32.
func NewAnalyser(n int) *Analyser {
	size := 32
	for size < n {
		size <<= 1
	}
	a := &Analyser{
		SmoothingTimeConstant: DefaultSmoothingTimeConstant,
		MinDecibels:           DefaultMinDecibels,
		MaxDecibels:           DefaultMaxDecibels,
		size:                  size,
		fft:                   fourier.NewFFT(size),
		window:                make([]float64, size),
		frame:                 make([]float64, size),
		coeffs:                make([]complex128, size/2+1),
		smoothed:              make([]float64, size/2),
	}
	for i := range a.window {
		phase := 2 * math.Pi * float64(i) / float64(size)
		a.window[i] = 0.42 - 0.5*math.Cos(phase) + 0.08*math.Cos(2*phase)
	}
	return a
}

// Size returns the FFT size.
func (a *Analyser) Size() int { return a.size }

// BinCount returns the number of frequency bins, Size/2.
func (a *Analyser) BinCount() int { return a.size / 2 }

// Reset clears the smoothing history.
func (a *Analyser) Reset() {
	for i := range a.smoothed {
		a.smoothed[i] = 0
	}
}

// ByteFrequencyData analyses the most recent Size samples (zero-padded at the
// front when fewer are given) and writes BinCount bytes into dst, which is
// grown if needed and returned.
func (a *Analyser) ByteFrequencyData(samples []float64, dst []byte) []byte {
	if cap(dst) < a.BinCount() {
		dst = make([]byte, a.BinCount())
	}
	dst = dst[:a.BinCount()]

	offset := a.size - len(samples)
	for i := range a.frame {
		var s float64
		if j := i - offset; j >= 0 && j < len(samples) {
			s = samples[j]
		}
		a.frame[i] = s * a.window[i]
	}

	a.coeffs = a.fft.Coefficients(a.coeffs, a.frame)

	tau := clamp(a.SmoothingTimeConstant, 0, 1)
	span := a.MaxDecibels - a.MinDecibels
	if span <= 0 {
		span = 1
	}
	norm := 1 / float64(a.size)
	for k := range dst {
		c := a.coeffs[k]
		mag := math.Hypot(real(c), imag(c)) * norm
		a.smoothed[k] = tau*a.smoothed[k] + (1-tau)*mag
		if a.smoothed[k] <= 0 {
			dst[k] = 0
			continue
		}
		db := 20 * math.Log10(a.smoothed[k])
		dst[k] = byte(clamp(math.Floor(255*(db-a.MinDecibels)/span), 0, 255))
	}
	return dst
}
