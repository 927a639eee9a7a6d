package main

import (
	"github.com/pthm-cable/ferrofluid/config"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name  string  // Human-readable name
	Path  string  // Config path for logging
	Min   float64 // Lower bound
	Max   float64 // Upper bound
	Field func(*config.Config) *float64
}

// ParamVector holds the set of all tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of fluid cohesion parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Pairwise forces
			{Name: "cohesion", Path: "physics.cohesion", Min: 10, Max: 200, Field: func(c *config.Config) *float64 { return &c.Physics.Cohesion }},
			{Name: "repulsion", Path: "physics.repulsion", Min: 40, Max: 400, Field: func(c *config.Config) *float64 { return &c.Physics.Repulsion }},
			{Name: "surface_tension", Path: "physics.surface_tension", Min: 0, Max: 1.5, Field: func(c *config.Config) *float64 { return &c.Physics.SurfaceTension }},
			{Name: "blob_cohesion", Path: "physics.blob_cohesion", Min: 0, Max: 8, Field: func(c *config.Config) *float64 { return &c.Physics.BlobCohesion }},
			{Name: "cluster_balance", Path: "physics.cluster_balance", Min: 0.3, Max: 0.8, Field: func(c *config.Config) *float64 { return &c.Physics.ClusterBalance }},
			// Damping
			{Name: "viscosity", Path: "physics.viscosity", Min: 0, Max: 1.2, Field: func(c *config.Config) *float64 { return &c.Physics.Viscosity }},
			{Name: "resistance", Path: "physics.resistance", Min: 0, Max: 2.2, Field: func(c *config.Config) *float64 { return &c.Physics.Resistance }},
			// Recovery
			{Name: "center_pull", Path: "physics.center_pull", Min: 0, Max: 1.5, Field: func(c *config.Config) *float64 { return &c.Physics.CenterPull }},
			{Name: "rejoin_strength", Path: "physics.rejoin_strength", Min: 0, Max: 3, Field: func(c *config.Config) *float64 { return &c.Physics.RejoinStrength }},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes clamped parameter values into cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	for i, v := range pv.Clamp(values) {
		*pv.Specs[i].Field(cfg) = v
	}
}

// ExtractFromConfig reads the current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	values := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		values[i] = *spec.Field(cfg)
	}
	return values
}
