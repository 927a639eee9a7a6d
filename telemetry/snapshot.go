package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm-cable/ferrofluid/systems"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the particle state of one simulation for replay.
type Snapshot struct {
	Version int   `json:"version"`
	RNGSeed int64 `json:"rng_seed"`

	ViewWidth  float64 `json:"view_width"`
	ViewHeight float64 `json:"view_height"`
	DPR        float64 `json:"dpr"`

	Frame      int64   `json:"frame"`
	SimTimeSec float64 `json:"sim_time_sec"`

	Envelope        float64 `json:"envelope"`
	MotionHighlight float64 `json:"motion_highlight"`

	Particles []ParticleState `json:"particles"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// ParticleState holds one particle's dynamic state.
type ParticleState struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
	Weight float64 `json:"weight"`
}

// CaptureParticles copies the particle buffers of s.
func CaptureParticles(s *systems.SimulationState) []ParticleState {
	out := make([]ParticleState, s.Len())
	for i := range out {
		out[i] = ParticleState{
			X:      s.PX[i],
			Y:      s.PY[i],
			VX:     s.VX[i],
			VY:     s.VY[i],
			Weight: s.Weight[i],
		}
	}
	return out
}

// Restore builds a fresh SimulationState from the snapshot. Forces,
// connectivity and the envelope history start from zero; the envelope value
// and motion highlight are carried over.
func (sn *Snapshot) Restore() *systems.SimulationState {
	s := systems.NewSimulationState(len(sn.Particles))
	for i, p := range sn.Particles {
		s.PX[i] = p.X
		s.PY[i] = p.Y
		s.VX[i] = p.VX
		s.VY[i] = p.VY
		s.Weight[i] = p.Weight
	}
	s.Envelope.Value = sn.Envelope
	s.MotionHighlight = sn.MotionHighlight
	return s
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d", snapshot.Frame)
	if snapshot.Bookmark != nil {
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Frame, sanitized)
	}
	path := filepath.Join(dir, name+".json")

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}
	return &snapshot, nil
}
