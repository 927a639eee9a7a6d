// Package systems implements the particle dynamics, boundary, connectivity and
// density field for the capsule fluid.
package systems

import (
	"math"

	"github.com/pthm-cable/ferrofluid/config"
)

// Geometry holds interaction radii derived from the capsule scale.
type Geometry struct {
	NeighborRadius      float64
	NeighborRadiusSq    float64
	IsolationLinkRadius float64
	RepulsionRadius     float64
	MaxSpeed            float64
}

// GeometryFor derives interaction radii for capsule c.
func GeometryFor(c Capsule) Geometry {
	nr := c.Scale * 0.145
	return Geometry{
		NeighborRadius:      nr,
		NeighborRadiusSq:    nr * nr,
		IsolationLinkRadius: nr * 0.72,
		RepulsionRadius:     c.Scale * 0.05,
		MaxSpeed:            c.Scale * 6.2,
	}
}

// StepParams are the clamped physics parameters for one simulation.
type StepParams struct {
	Gravity        float64
	Density        float64
	Viscosity      float64 // [0, 1.2]
	Resistance     float64 // [0, 2.2]
	SurfaceTension float64
	Cohesion       float64
	Repulsion      float64
	CenterPull     float64
	ClusterBalance float64
	RejoinStrength float64

	BlobNorm float64 // blob cohesion / 8, in [0,1]

	MagnetStrength  float64
	MagnetSize      float64
	PulseAggression float64
	Shape           config.DriveShape

	Rates EnvelopeRateTable
	Ring  RingModel
}

// ParamsFromConfig clamps the physics, magnet and drive sections of cfg into
// step parameters with the stock envelope rates and ring model.
func ParamsFromConfig(cfg *config.Config) StepParams {
	ph := cfg.Physics
	return StepParams{
		Gravity:         clamp(ph.Gravity, -4000, 4000),
		Density:         clamp(ph.Density, 0, 4),
		Viscosity:       clamp(ph.Viscosity, 0, 1.2),
		Resistance:      clamp(ph.Resistance, 0, 2.2),
		SurfaceTension:  clamp(ph.SurfaceTension, 0, 4),
		Cohesion:        clamp(ph.Cohesion, 0, 400),
		Repulsion:       clamp(ph.Repulsion, 0, 800),
		CenterPull:      clamp(ph.CenterPull, 0, 4),
		ClusterBalance:  clamp(ph.ClusterBalance, 0, 1),
		RejoinStrength:  clamp(ph.RejoinStrength, 0, 4),
		BlobNorm:        clamp(ph.BlobCohesion, 0, 8) / 8,
		MagnetStrength:  clamp(cfg.Magnet.Strength, 0, 6000),
		MagnetSize:      clamp(cfg.Magnet.Size, MinMagnetSize, MaxMagnetSize),
		PulseAggression: clamp(cfg.Drive.PulseAggression, 0, 12),
		Shape:           cfg.Derived.DriveShape,
		Rates:           DefaultEnvelopeRates,
		Ring:            DefaultRingModel,
	}
}

// StepInput is the per-sub-step external input.
type StepInput struct {
	Mode DriveMode
}

// StepResult summarises one sub-step.
type StepResult struct {
	Envelope        EnvelopeStep
	MotionHighlight float64
	MainSize        int // 0 when no unique main body exists
	Components      int
	MeanSpeed       float64
}

// Motion highlight follow rates and ceiling.
const (
	motionRise = 12.0
	motionFall = 4.8
	maxMotion  = 2.2
)

// Step advances s by one fixed sub-step of dt seconds inside capsule c.
// It panics if the particle buffers disagree in length.
func Step(s *SimulationState, c Capsule, p *StepParams, in StepInput, dt float64) StepResult {
	s.mustMatch()
	n := s.Len()
	if n == 0 || dt <= 0 {
		return StepResult{}
	}
	geo := GeometryFor(c)
	gate := p.Shape == config.DriveGate

	for i := 0; i < n; i++ {
		s.FX[i] = 0
		s.FY[i] = 0
		s.Neighbors[i] = 0
		s.TensionX[i] = 0
		s.TensionY[i] = 0
		s.TensionW[i] = 0
	}
	s.Components.Reset()

	comX, comY := s.Centroid()
	pairwise(s, &geo, p)
	s.Components.Resolve()

	// Drive envelope
	mode := in.Mode
	if mode == nil {
		mode = ManualDrive{}
	}
	sig := driveSignal(mode)
	_, manual := mode.(ManualDrive)
	_, audioMode := mode.(AudioDrive)
	aggressive := audioMode && sig.Active
	idleAudio := audioMode && !sig.Active

	target := ComputeDriveTarget(mode, p.Shape)
	env := s.Envelope.Update(target, p.Rates.For(mode, p.Shape), dt)
	shaped := env.Shaped

	restRelax := 1 - smoothstep(0.08, 0.54, shaped)
	dynResistance := p.Resistance / (1 + shaped*(1.5+p.PulseAggression*0.1))
	damping := math.Exp(-dynResistance * 2.15 * dt)

	mag := newMagnetDrive(c, p, env, sig, manual, aggressive)

	var centerGain, restTension float64
	switch {
	case manual:
		centerGain = 0.0015 + shaped*0.52
		restTension = 0.18 + shaped*0.82
	case gate:
		centerGain = 0.03 + shaped*0.35
		restTension = 0.58 + shaped*0.42
	case idleAudio:
		centerGain = 0.0008
		restTension = 0.16
	default:
		centerGain = 0.004 + shaped*0.18
		restTension = 0.24 + shaped*0.76
	}
	centerGain = math.Max(0, centerGain*(1-restRelax*0.92))
	sizeNorm := clamp01((p.MagnetSize - MinMagnetSize) / (MaxMagnetSize - MinMagnetSize))
	centerSizeDamp := 1 - sizeNorm*(0.42+shaped*0.28)

	shapeTension := 0.96
	if !gate {
		shapeTension = 0.68 + shaped*0.62
	}
	baseSurfaceGain := 1.28 + p.BlobNorm*1.55

	body := bodyForces{
		comX:           comX,
		comY:           comY,
		scale:          c.Scale,
		shaped:         shaped,
		coupling:       mag.coupling,
		centerPull:     p.CenterPull * p.Density * centerGain * centerSizeDamp,
		tension:        p.SurfaceTension * p.Density * shapeTension * restTension * (1 + mag.coupling*0.85) * baseSurfaceGain,
		rejoinScale:    0.4 + p.BlobNorm*2.8,
		microScale:     0.52 + p.BlobNorm*0.78,
		microDragScale: 0.75 + p.BlobNorm*0.45,
		rejoinGain:     1 + mag.coupling*0.75,
		rejoinStrength: p.RejoinStrength,
		spreadRX:       math.Max(1, c.RX*0.74),
		spreadRY:       math.Max(1, c.RY*0.74),
	}

	var speedSum float64
	for i := 0; i < n; i++ {
		px, py := s.PX[i], s.PY[i]
		ax, ay := s.FX[i], s.FY[i]
		detached := s.Components.Severity(i)

		mx, my, ringDamp := mag.force(px, py, detached)
		ax += mx
		ay += my

		fx, fy := body.centerPullForce(px, py, ringDamp)
		ax += fx
		ay += fy
		fx, fy = body.rejoinPull(px, py, detached)
		ax += fx
		ay += fy
		fx, fy = body.tensionPull(s, i)
		ax += fx
		ay += fy
		fx, fy = body.compactionPull(px, py, ringDamp)
		ax += fx
		ay += fy

		micro := microStability(s.Weight[i], s.Neighbors[i])
		fx, fy = body.microPull(px, py, micro)
		ax += fx
		ay += fy

		ay += p.Gravity

		vx := (s.VX[i] + ax*dt) * damping
		vy := (s.VY[i] + ay*dt) * damping
		drag := body.microDrag(micro, dt)
		vx *= drag
		vy *= drag

		speed := math.Hypot(vx, vy)
		if speed > geo.MaxSpeed {
			k := geo.MaxSpeed / speed
			vx *= k
			vy *= k
			speed = geo.MaxSpeed
		}
		speedSum += speed

		s.VX[i] = vx
		s.VY[i] = vy
		s.PX[i] = px + vx*dt
		s.PY[i] = py + vy*dt
		c.Constrain(&s.PX[i], &s.PY[i], &s.VX[i], &s.VY[i])
	}

	meanSpeed := speedSum / float64(n)
	speedNorm := clamp(meanSpeed/math.Max(1, c.Scale*0.16), 0, 2.4)
	impactGain := 18.0
	if gate {
		impactGain = 13
	}
	pulseImpact := clamp(env.Delta*impactGain, 0, 1.35)
	audioImpact := 0.0
	if audioMode {
		audioImpact = clamp(sig.Transient*0.9+sig.Impact*0.75, 0, 1.5)
	}
	motionTarget := clamp(speedNorm*0.42+pulseImpact*0.95+env.Drive*0.22+audioImpact, 0, maxMotion)
	follow := motionFall
	if motionTarget > s.MotionHighlight {
		follow = motionRise
	}
	s.MotionHighlight += (motionTarget - s.MotionHighlight) * clamp01(follow*dt)

	return StepResult{
		Envelope:        env,
		MotionHighlight: s.MotionHighlight,
		MainSize:        s.Components.MainSize(),
		Components:      s.Components.Count(),
		MeanSpeed:       meanSpeed,
	}
}

const (
	minPairDist = 0.01
	goldenAngle = 2.399963229728653
)

// pairwise accumulates cohesion, repulsion and viscosity forces over every
// unordered pair inside the neighbour radius, the tension neighbourhood sums,
// and union-find links for pairs inside the isolation-link radius.
func pairwise(s *SimulationState, geo *Geometry, p *StepParams) {
	n := s.Len()
	viscosity := powPos(p.Viscosity, 1.85) * 2.4
	cohesionGain := p.Cohesion * p.Density * (1.32 + p.BlobNorm*2.15)
	repulsionGain := p.Repulsion * p.Density * (1 - clamp(p.SurfaceTension*0.12, 0, 0.36))

	for i := 0; i < n; i++ {
		ix, iy := s.PX[i], s.PY[i]
		for j := i + 1; j < n; j++ {
			dx := s.PX[j] - ix
			dy := s.PY[j] - iy
			distSq := dx*dx + dy*dy
			if distSq > geo.NeighborRadiusSq {
				continue
			}
			var dist, nx, ny float64
			if distSq < minPairDist*minPairDist {
				// Coincident pair: floor the distance and separate along a
				// direction fixed by the pair indices.
				dist = minPairDist
				theta := float64(j-i) * goldenAngle
				nx, ny = math.Cos(theta), math.Sin(theta)
			} else {
				dist = math.Sqrt(distSq)
				nx = dx / dist
				ny = dy / dist
			}

			if dist < geo.IsolationLinkRadius {
				s.Neighbors[i]++
				s.Neighbors[j]++
				s.Components.Union(i, j)
			}

			ratio := dist / geo.NeighborRadius
			weight := math.Max(0, 1-ratio)
			tw := weight * weight
			s.TensionX[i] += s.PX[j] * tw
			s.TensionY[i] += s.PY[j] * tw
			s.TensionW[i] += tw
			s.TensionX[j] += ix * tw
			s.TensionY[j] += iy * tw
			s.TensionW[j] += tw

			// Positive past the rest distance (attract), negative inside it.
			force := (ratio - p.ClusterBalance) * cohesionGain * weight
			if dist < geo.RepulsionRadius {
				q := 1 - dist/geo.RepulsionRadius
				force -= repulsionGain * q * q
			}
			fx := nx * force
			fy := ny * force
			s.FX[i] += fx
			s.FY[i] += fy
			s.FX[j] -= fx
			s.FY[j] -= fy

			if viscosity > 1e-4 {
				vw := (1 - ratio) * viscosity
				vfx := (s.VX[j] - s.VX[i]) * vw
				vfy := (s.VY[j] - s.VY[i]) * vw
				s.FX[i] += vfx
				s.FY[i] += vfy
				s.FX[j] -= vfx
				s.FY[j] -= vfy
			}
		}
	}
}
