package audio

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/wav"
)

// Source supplies spectrum frames to a Processor.
type Source interface {
	// Spectrum fills dst (BinCount bytes) and reports whether playback is live.
	Spectrum(dst []byte) bool
	BinCount() int
	SampleRate() float64
}

// Sample pulls one frame from src and processes it. A nil source resets the
// processor and yields a zero signal; a paused source decays.
func (p *Processor) Sample(src Source, bins []byte, params Params, dt float64) Signal {
	if src == nil {
		p.Reset()
		return Signal{}
	}
	if len(bins) < src.BinCount() {
		bins = make([]byte, src.BinCount())
	}
	bins = bins[:src.BinCount()]
	if !src.Spectrum(bins) {
		return p.Idle()
	}
	return p.Process(bins, src.SampleRate(), params, dt)
}

// PCMSource plays back a mono PCM buffer and analyses the window ending at the
// playhead.
type PCMSource struct {
	samples  []float64
	rate     float64
	head     float64 // playhead in samples
	paused   bool
	loop     bool
	analyser *Analyser
}

// NewPCMSource wraps mono samples in [-1,1] at sampleRate.
func NewPCMSource(samples []float64, sampleRate float64, fftSize int) *PCMSource {
	return &PCMSource{
		samples:  samples,
		rate:     math.Max(1, sampleRate),
		loop:     true,
		analyser: NewAnalyser(fftSize),
	}
}

// LoadWAV decodes a WAV file into a looping PCMSource.
func LoadWAV(path string, fftSize int) (*PCMSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening wav: %w", err)
	}
	defer f.Close()
	return DecodeWAV(f, fftSize)
}

// DecodeWAV decodes WAV data, downmixing every channel to mono.
func DecodeWAV(r io.ReadSeeker, fftSize int) (*PCMSource, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("decoding wav: invalid file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding wav: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("decoding wav: missing format")
	}

	channels := buf.Format.NumChannels
	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = int(dec.BitDepth)
	}
	if depth <= 0 {
		depth = 16
	}
	scale := 1 / math.Pow(2, float64(depth-1))

	frames := len(buf.Data) / channels
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(buf.Data[i*channels+ch])
		}
		mono[i] = sum / float64(channels) * scale
	}
	return NewPCMSource(mono, float64(buf.Format.SampleRate), fftSize), nil
}

// Advance moves the playhead forward by dt seconds unless paused. A
// non-looping source pauses itself at the end.
func (s *PCMSource) Advance(dt float64) {
	if s.paused || len(s.samples) == 0 {
		return
	}
	s.head += dt * s.rate
	n := float64(len(s.samples))
	if s.head >= n {
		if s.loop {
			s.head = math.Mod(s.head, n)
		} else {
			s.head = n
			s.paused = true
		}
	}
}

// Spectrum analyses the window ending at the playhead.
func (s *PCMSource) Spectrum(dst []byte) bool {
	if s.paused || len(s.samples) == 0 {
		return false
	}
	end := int(s.head)
	start := max(0, end-s.analyser.Size())
	s.analyser.ByteFrequencyData(s.samples[start:end], dst)
	return true
}

// BinCount returns the analyser bin count.
func (s *PCMSource) BinCount() int { return s.analyser.BinCount() }

// SampleRate returns the PCM sample rate.
func (s *PCMSource) SampleRate() float64 { return s.rate }

// SetPaused pauses or resumes playback.
func (s *PCMSource) SetPaused(paused bool) { s.paused = paused }

// SetLoop controls whether playback wraps at the end.
func (s *PCMSource) SetLoop(loop bool) { s.loop = loop }

// Paused reports whether playback is paused.
func (s *PCMSource) Paused() bool { return s.paused }

// Duration returns the length of the buffer in seconds.
func (s *PCMSource) Duration() float64 { return float64(len(s.samples)) / s.rate }

// Rewind moves the playhead to the start and clears analyser history.
func (s *PCMSource) Rewind() {
	s.head = 0
	s.analyser.Reset()
}
