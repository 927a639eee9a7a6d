package systems

import (
	"fmt"
	"math"
	"math/rand"
)

// Particle weight range: 0.48 + mix²·0.96.
const (
	MinParticleWeight = 0.48
	MaxParticleWeight = 1.44

	spawnRadius   = 0.23 // fraction of Scale
	spawnVelocity = 4.0  // spawn velocity spread in px/s
)

// SimulationState owns every per-particle buffer of one simulation. Arrays are
// parallel and sized once; stepping never allocates.
type SimulationState struct {
	PX, PY []float64
	VX, VY []float64
	FX, FY []float64
	Weight []float64

	// Per-step scratch written by the pairwise pass.
	Neighbors []int
	TensionX  []float64
	TensionY  []float64
	TensionW  []float64

	Components Components
	Envelope   Envelope

	// MotionHighlight is the motion-energy scalar consumed by shading, in [0, 2.2].
	MotionHighlight float64
}

// NewSimulationState allocates buffers for n particles, all at the origin.
func NewSimulationState(n int) *SimulationState {
	if n < 0 {
		n = 0
	}
	s := &SimulationState{
		PX:         make([]float64, n),
		PY:         make([]float64, n),
		VX:         make([]float64, n),
		VY:         make([]float64, n),
		FX:         make([]float64, n),
		FY:         make([]float64, n),
		Weight:     make([]float64, n),
		Neighbors:  make([]int, n),
		TensionX:   make([]float64, n),
		TensionY:   make([]float64, n),
		TensionW:   make([]float64, n),
		Components: NewComponents(n),
	}
	for i := range s.Weight {
		s.Weight[i] = 1
	}
	return s
}

// Len returns the particle count.
func (s *SimulationState) Len() int { return len(s.PX) }

// mustMatch panics if any buffer disagrees with the particle count. Stepping
// mismatched buffers is a programming error.
func (s *SimulationState) mustMatch() {
	n := len(s.PX)
	lengths := [...]int{
		len(s.PY), len(s.VX), len(s.VY), len(s.FX), len(s.FY), len(s.Weight),
		len(s.Neighbors), len(s.TensionX), len(s.TensionY), len(s.TensionW),
		s.Components.Len(),
	}
	for _, l := range lengths {
		if l != n {
			panic(fmt.Sprintf("systems: particle buffers out of sync (%d vs %d)", l, n))
		}
	}
}

// Spawn scatters particles uniformly in a disc at the capsule centre with
// small random velocities and fresh visual weights. Dynamic state is zeroed.
func (s *SimulationState) Spawn(c Capsule, rng *rand.Rand) {
	radius := c.Scale * spawnRadius
	for i := range s.PX {
		angle := rng.Float64() * 2 * math.Pi
		r := math.Sqrt(rng.Float64()) * radius
		s.PX[i] = c.CX + math.Cos(angle)*r
		s.PY[i] = c.CY + math.Sin(angle)*r
		s.VX[i] = (rng.Float64() - 0.5) * spawnVelocity
		s.VY[i] = (rng.Float64() - 0.5) * spawnVelocity
		s.FX[i] = 0
		s.FY[i] = 0
		mix := rng.Float64()
		s.Weight[i] = MinParticleWeight + mix*mix*(MaxParticleWeight-MinParticleWeight)
	}
	s.Components.Reset()
	s.Envelope.Reset()
	s.MotionHighlight = 0
}

// Rescale maps particles from capsule prev into capsule next, scaling velocity
// by the mean axis ratio, and re-applies the boundary.
func (s *SimulationState) Rescale(prev, next Capsule) {
	sx := next.RX / math.Max(1e-6, prev.RX)
	sy := next.RY / math.Max(1e-6, prev.RY)
	vscale := (sx + sy) * 0.5
	for i := range s.PX {
		s.PX[i], s.PY[i] = prev.Rescaled(next, s.PX[i], s.PY[i])
		s.VX[i] *= vscale
		s.VY[i] *= vscale
		next.Constrain(&s.PX[i], &s.PY[i], &s.VX[i], &s.VY[i])
	}
}

// Centroid returns the unweighted mean particle position.
func (s *SimulationState) Centroid() (float64, float64) {
	n := len(s.PX)
	if n == 0 {
		return 0, 0
	}
	var cx, cy float64
	for i := 0; i < n; i++ {
		cx += s.PX[i]
		cy += s.PY[i]
	}
	return cx / float64(n), cy / float64(n)
}

// MeanSpeed returns the mean particle speed.
func (s *SimulationState) MeanSpeed() float64 {
	n := len(s.VX)
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Hypot(s.VX[i], s.VY[i])
	}
	return sum / float64(n)
}
