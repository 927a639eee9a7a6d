package systems

import (
	"math"

	"github.com/pthm-cable/ferrofluid/audio"
	"github.com/pthm-cable/ferrofluid/config"
)

// Magnet size range and base force clamp.
const (
	MinMagnetSize = 0.35
	MaxMagnetSize = 5.0
	MagnetClamp   = 5200.0

	magnetStrengthRef = 2200.0
)

// RingModel holds the ring driver geometry as fractions of the capsule scale.
// The constants are tuned by feel rather than derived from a physical model.
type RingModel struct {
	RadiusBase      float64 // ring radius = Scale·(RadiusBase + size·RadiusPerSize)
	RadiusPerSize   float64
	BandBase        float64 // band width = Scale·(BandBase + size·BandPerSize)
	BandPerSize     float64
	StandoffBase    float64 // pole standoff behind the wall = Scale·(StandoffBase + sizeNorm·StandoffPerSize)
	StandoffPerSize float64
	// InsideSign scales the force on particles inside the ring. Negative values push outward.
	InsideSign float64
}

// DefaultRingModel is the stock ring geometry.
var DefaultRingModel = RingModel{
	RadiusBase:      0.11,
	RadiusPerSize:   0.115,
	BandBase:        0.18,
	BandPerSize:     0.14,
	StandoffBase:    0.34,
	StandoffPerSize: 0.16,
	InsideSign:      -0.12,
}

// magnetDrive holds the per-sub-step magnet terms shared by every particle.
type magnetDrive struct {
	x, y     float64
	strength float64
	blobNorm float64
	shaped   float64

	gate     float64
	jolt     float64
	boost    float64
	audio    float64
	coupling float64
	clamp    float64
	release  float64

	ringRadius float64
	ringBand   float64
	standoff   float64
	poleRadius float64
	insideSign float64
}

// newMagnetDrive derives the magnet terms from the envelope update and the
// live audio signal. The pole sits at the capsule centre.
func newMagnetDrive(c Capsule, p *StepParams, env EnvelopeStep, sig audio.Signal, manual, aggressiveAudio bool) magnetDrive {
	size := clamp(p.MagnetSize, MinMagnetSize, MaxMagnetSize)
	sizeNorm := clamp01((size - MinMagnetSize) / (MaxMagnetSize - MinMagnetSize))
	shaped := env.Shaped

	transientKick := clamp(sig.Transient*1.25+sig.Impact*0.9, 0, 2.2)
	hold := shaped
	if !manual {
		if p.Shape == config.DriveGate {
			hold *= 0.16
		} else {
			hold *= 0.12
		}
	}
	gateKick := 0.0
	if sig.Gate > 0 {
		gateKick = 0.12
	}
	jolt := clamp(env.Delta*20+transientKick*1.25+gateKick, 0, 2.6)
	gate := clamp(hold+jolt, 0, 2.4)
	boost := 1 + p.PulseAggression*(0.56+shaped*1.22+jolt*0.35)*shaped

	audioBoost := 1.0
	clampAudio := 1.0
	if aggressiveAudio {
		audioBoost = 1.22 + sig.Drive*1.9 + sig.Impact*1.15
		clampAudio = 1.22 + sig.Drive*0.68
	}
	strengthNorm := clamp(p.MagnetStrength/magnetStrengthRef, 0, 2.5)
	coupling := clamp((gate*boost*1.12-0.05)*(0.45+shaped*0.95)*(0.55+strengthNorm*0.45), 0, 2.2)

	ringRadius := c.Scale * (p.Ring.RadiusBase + size*p.Ring.RadiusPerSize)
	return magnetDrive{
		x:          c.CX,
		y:          c.CY,
		strength:   p.MagnetStrength,
		blobNorm:   p.BlobNorm,
		shaped:     shaped,
		gate:       gate,
		jolt:       jolt,
		boost:      boost,
		audio:      audioBoost,
		coupling:   coupling,
		clamp:      MagnetClamp * (1 + p.PulseAggression*env.Drive*0.32 + jolt*0.4) * clampAudio,
		release:    clamp(-env.Slope*0.006+jolt*0.035, 0, 0.68),
		ringRadius: ringRadius,
		ringBand:   c.Scale * (p.Ring.BandBase + size*p.Ring.BandPerSize),
		standoff:   c.Scale * (p.Ring.StandoffBase + sizeNorm*p.Ring.StandoffPerSize),
		poleRadius: math.Max(c.Scale*0.03, ringRadius*(0.36+sizeNorm*0.16)),
		insideSign: p.Ring.InsideSign,
	}
}

// force returns the magnet acceleration on a particle at (px, py) with the
// given detachment severity, plus the ring centre damping factor used by the
// centroid pulls.
func (m *magnetDrive) force(px, py, detached float64) (ax, ay, ringCenterDamp float64) {
	mx := m.x - px
	my := m.y - py
	dist := math.Sqrt(mx*mx + my*my + m.standoff*m.standoff + 1e-4)
	invDist := 1 / dist

	ringOffset := dist - m.ringRadius
	ringCenterDamp = smoothstep(0.22, 0.96, dist/math.Max(1, m.ringRadius))

	ringT := ringOffset / math.Max(1, m.ringBand*(1.8+(1-m.shaped)*0.9))
	ringLobe := math.Exp(-(ringT * ringT))
	broadNorm := dist / math.Max(1, m.ringRadius+m.ringBand*2.4)
	broadLobe := 1 / (1 + broadNorm*broadNorm)
	profile := broadLobe*(0.72-m.shaped*0.08) + ringLobe*(0.28+m.shaped*0.08)
	spring := clamp(math.Abs(ringOffset)/math.Max(1, m.ringBand*3.2), 0, 1.1)

	f := m.strength * profile * (0.52 + spring*0.34)
	f *= 0.9 + m.jolt*0.35
	f *= m.gate * m.boost * m.audio
	f *= 0.9 + m.coupling*0.45
	f *= 1 - detached*0.42*m.blobNorm
	f = math.Min(f, m.clamp*0.96)

	ringSign := m.insideSign
	if ringOffset > 0 {
		ringSign = 1
	}

	poleNorm := dist / math.Max(1, m.poleRadius)
	poleFalloff := 1 / (1 + poleNorm*poleNorm)
	poleBias := 0.004 + (1-m.shaped)*0.008
	pole := m.strength * poleFalloff * poleBias * m.gate * 0.26 *
		(0.84 + m.coupling*0.22) * (1 - detached*0.28*m.blobNorm)

	inward := f*ringSign + pole
	// The field briefly inverts on release so blobs can relax before re-grab.
	inward -= m.clamp * m.release
	inward = clamp(inward, -m.clamp*0.92, m.clamp)

	return mx * invDist * inward, my * invDist * inward, ringCenterDamp
}
