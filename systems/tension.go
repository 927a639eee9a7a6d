package systems

import "math"

// Surface tension and centroid pulls applied after the pairwise pass.

const (
	// Tension weight at which a particle counts as fully interior.
	tensionCompactWeight = 4.4
	// Particles lighter than this are candidates for micro-droplet stabilisation.
	microWeightLimit = 0.82
)

// bodyForces holds the per-sub-step gains for the centroid and tension terms.
type bodyForces struct {
	comX, comY float64
	scale      float64
	shaped     float64
	coupling   float64

	centerPull float64 // centerPull·density·gain·sizeDamp
	tension    float64 // surface tension strength

	rejoinScale    float64
	microScale     float64
	microDragScale float64
	rejoinGain     float64 // 1 + coupling·0.75
	rejoinStrength float64

	spreadRX, spreadRY float64
}

// tensionPull pulls particle i toward the weighted mean of its neighbours.
// Sparse (boundary) particles pull harder.
func (b *bodyForces) tensionPull(s *SimulationState, i int) (ax, ay float64) {
	if b.tension <= 1e-4 || s.TensionW[i] <= 1e-4 {
		return 0, 0
	}
	avgX := s.TensionX[i] / s.TensionW[i]
	avgY := s.TensionY[i] / s.TensionW[i]
	compactness := clamp01(s.TensionW[i] / tensionCompactWeight)
	gain := b.tension * (0.42 + (1-compactness)*1.92)
	return (avgX - s.PX[i]) * gain, (avgY - s.PY[i]) * gain
}

// compactionPull draws outlying particles toward the centroid once the body
// spreads past roughly half the capsule.
func (b *bodyForces) compactionPull(px, py, ringCenterDamp float64) (ax, ay float64) {
	if b.tension <= 1e-4 {
		return 0, 0
	}
	spread := math.Hypot((px-b.comX)/b.spreadRX, (py-b.comY)/b.spreadRY)
	edge := smoothstep(0.54, 1.16, spread)
	gain := b.tension * (0.001 + b.shaped*0.018) * edge * (0.02 + b.shaped*0.98) *
		ringCenterDamp * (1 + b.coupling*0.35)
	return (b.comX - px) * gain, (b.comY - py) * gain
}

// centerPullForce is the soft global pull toward the centroid.
func (b *bodyForces) centerPullForce(px, py, ringCenterDamp float64) (ax, ay float64) {
	g := b.centerPull * ringCenterDamp
	return (b.comX - px) * g, (b.comY - py) * g
}

// rejoinPull pulls detached particles back toward the centroid, harder for
// smaller blobs and under drive.
func (b *bodyForces) rejoinPull(px, py, detached float64) (ax, ay float64) {
	if detached <= 1e-3 {
		return 0, 0
	}
	g := b.scale * (0.03 + b.shaped*0.05) * detached * b.rejoinScale * b.rejoinGain * b.rejoinStrength
	return (b.comX - px) * g, (b.comY - py) * g
}

// microStability scores how small and isolated particle i is, in [0,1].
func microStability(weight float64, neighbors int) float64 {
	small := clamp01((microWeightLimit - weight) / 0.42)
	isolated := clamp01(float64(2-neighbors) / 2)
	return small * isolated
}

// microPull keeps light, isolated fragments from drifting.
func (b *bodyForces) microPull(px, py, micro float64) (ax, ay float64) {
	if micro <= 1e-3 {
		return 0, 0
	}
	g := b.scale * (0.026 + b.shaped*0.022) * micro * b.microScale * b.rejoinGain * b.rejoinStrength
	return (b.comX - px) * g, (b.comY - py) * g
}

// microDrag returns the velocity multiplier for a micro-stabilised particle.
func (b *bodyForces) microDrag(micro, dt float64) float64 {
	if micro <= 1e-3 {
		return 1
	}
	return 1 - clamp(0.095*micro*b.microDragScale*dt*60, 0, 0.34)
}
