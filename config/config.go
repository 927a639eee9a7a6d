// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Capsule   CapsuleConfig   `yaml:"capsule"`
	Particles ParticlesConfig `yaml:"particles"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Magnet    MagnetConfig    `yaml:"magnet"`
	Drive     DriveConfig     `yaml:"drive"`
	Audio     AudioConfig     `yaml:"audio"`
	Render    RenderConfig    `yaml:"render"`
	Light     LightConfig     `yaml:"light"`
	Material  MaterialConfig  `yaml:"material"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	TargetFPS int     `yaml:"target_fps"`
	DPR       float64 `yaml:"dpr"` // Device pixel ratio, clamped to [1, 2]
}

// CapsuleConfig holds the container shape.
type CapsuleConfig struct {
	Roundness float64 `yaml:"roundness"` // Superellipse exponent, clamped to [2.2, 7]
	Width     float64 `yaml:"width"`     // Horizontal scale factor, clamped to [0.75, 1.35]
	Height    float64 `yaml:"height"`    // Vertical scale factor, clamped to [0.75, 1.35]
}

// ParticlesConfig holds particle allocation parameters.
type ParticlesConfig struct {
	Count int `yaml:"count"`
}

// PhysicsConfig holds integrator and fluid force parameters.
type PhysicsConfig struct {
	FixedStep  float64 `yaml:"fixed_step"`   // Seconds per dynamics sub-step
	MaxFrameDT float64 `yaml:"max_frame_dt"` // Clamp on elapsed wall time per frame
	MaxBacklog float64 `yaml:"max_backlog"`  // Accumulator cap

	Gravity        float64 `yaml:"gravity"`
	Density        float64 `yaml:"density"`
	Viscosity      float64 `yaml:"viscosity"`       // [0, 1.2]
	Resistance     float64 `yaml:"resistance"`      // [0, 2.2]
	SurfaceTension float64 `yaml:"surface_tension"` // Tension strength
	BlobCohesion   float64 `yaml:"blob_cohesion"`   // [0, 8]
	Cohesion       float64 `yaml:"cohesion"`
	Repulsion      float64 `yaml:"repulsion"`
	CenterPull     float64 `yaml:"center_pull"`
	ClusterBalance float64 `yaml:"cluster_balance"` // Rest distance as a fraction of the neighbor radius
	RejoinStrength float64 `yaml:"rejoin_strength"` // Scales rejoin and micro-droplet pulls
}

// MagnetConfig holds the ring driver parameters.
type MagnetConfig struct {
	Strength float64 `yaml:"strength"`
	Size     float64 `yaml:"size"` // [0.35, 5]
}

// DriveConfig selects how the magnet envelope is driven.
type DriveConfig struct {
	Mode            string  `yaml:"mode"` // "inout" (continuous) or "gate" (pulsed)
	ManualPulse     bool    `yaml:"manual_pulse"`
	AudioReactive   bool    `yaml:"audio_reactive"`
	PulseHz         float64 `yaml:"pulse_hz"`
	PulseAggression float64 `yaml:"pulse_aggression"`
}

// AudioConfig holds audio drive processing parameters.
type AudioConfig struct {
	Sensitivity float64 `yaml:"sensitivity"`
	Smoothing   float64 `yaml:"smoothing"` // [0, 0.98]
	Threshold   float64 `yaml:"threshold"` // [0, 0.88]
	FFTSize     int     `yaml:"fft_size"`  // Analyser window, power of two
}

// RenderConfig holds field raster parameters.
type RenderConfig struct {
	Quality float64 `yaml:"quality"` // Raster density scalar, [0.6, 2.4] for shading heuristics
}

// LightConfig holds the ring light and environment parameters.
type LightConfig struct {
	PointIntensity    float64 `yaml:"point_intensity"`
	SideStrength      float64 `yaml:"side_strength"` // [0, 2.5]
	EnvStrength       float64 `yaml:"env_strength"`  // [0, 2.5]
	OffsetX           float64 `yaml:"offset_x"`      // Key light bias relative to rx
	OffsetY           float64 `yaml:"offset_y"`      // Key light bias relative to ry
	Exposure          float64 `yaml:"exposure"`      // [0.6, 1.8]
	Ambient           float64 `yaml:"ambient"`       // [0, 1]
	Occlusion         float64 `yaml:"occlusion"`     // [0, 1]
	ColorHex          string  `yaml:"color"`
	UseEnvReflections bool    `yaml:"use_env_reflections"`
}

// MaterialConfig holds fluid surface parameters.
type MaterialConfig struct {
	ColorHex          string  `yaml:"color"`
	Tint              float64 `yaml:"tint"`               // [0, 1]
	Reflectivity      float64 `yaml:"reflectivity"`       // [0, 2.2]
	SurfaceSharpness  float64 `yaml:"surface_sharpness"`  // [0.6, 2.6]
	DepthBoost        float64 `yaml:"depth_boost"`        // [0.7, 2.5]
	ReflectionClarity float64 `yaml:"reflection_clarity"` // [0.5, 2.5]
	ImpactHighlights  float64 `yaml:"impact_highlights"`  // [0, 2.5]
	Iridescence       float64 `yaml:"iridescence"`        // [0, 2.4]
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// DriveShape is the parsed form of DriveConfig.Mode.
type DriveShape uint8

const (
	// DriveInOut follows the drive signal continuously.
	DriveInOut DriveShape = iota
	// DriveGate snaps the drive into on/off pulses.
	DriveGate
)

// String returns the profile spelling of the shape.
func (s DriveShape) String() string {
	if s == DriveGate {
		return "gate"
	}
	return "inout"
}

// ParseDriveShape parses a mode string. Unknown values return the fallback.
func ParseDriveShape(mode string, fallback DriveShape) DriveShape {
	switch mode {
	case "inout":
		return DriveInOut
	case "gate":
		return DriveGate
	default:
		return fallback
	}
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DriveShape DriveShape
	FluidRGB   [3]float64 // Material.ColorHex in [0,1]
	LightRGB   [3]float64 // Light.ColorHex in [0,1]
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Defaults returns a fresh copy of the embedded defaults.
func Defaults() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	cfg.computeDerived()
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.Sanitize(Defaults())
	return cfg, nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	dup := *c
	return &dup
}

// Sanitize replaces non-finite numbers, out-of-range counts and invalid enum or
// colour strings with the matching field from defaults, then recomputes derived values.
func (c *Config) Sanitize(defaults *Config) {
	replaceNonFinite(c, defaults)

	if c.Particles.Count < 1 {
		c.Particles.Count = defaults.Particles.Count
	}
	if c.Particles.Count > MaxParticles {
		c.Particles.Count = MaxParticles
	}
	if c.Screen.Width < 1 {
		c.Screen.Width = defaults.Screen.Width
	}
	if c.Screen.Height < 1 {
		c.Screen.Height = defaults.Screen.Height
	}
	if c.Screen.TargetFPS < 1 {
		c.Screen.TargetFPS = defaults.Screen.TargetFPS
	}
	if c.Physics.FixedStep <= 0 {
		c.Physics.FixedStep = defaults.Physics.FixedStep
	}
	if c.Physics.MaxFrameDT <= 0 {
		c.Physics.MaxFrameDT = defaults.Physics.MaxFrameDT
	}
	if c.Physics.MaxBacklog < c.Physics.FixedStep {
		c.Physics.MaxBacklog = defaults.Physics.MaxBacklog
	}
	if c.Audio.FFTSize < 32 || c.Audio.FFTSize&(c.Audio.FFTSize-1) != 0 {
		c.Audio.FFTSize = defaults.Audio.FFTSize
	}
	if c.Telemetry.PerfCollectorWindow < 1 {
		c.Telemetry.PerfCollectorWindow = defaults.Telemetry.PerfCollectorWindow
	}
	if c.Telemetry.StatsWindow <= 0 {
		c.Telemetry.StatsWindow = defaults.Telemetry.StatsWindow
	}

	c.Drive.Mode = ParseDriveShape(c.Drive.Mode, ParseDriveShape(defaults.Drive.Mode, DriveInOut)).String()
	c.Material.ColorHex = NormalizeHex(c.Material.ColorHex, defaults.Material.ColorHex)
	c.Light.ColorHex = NormalizeHex(c.Light.ColorHex, defaults.Light.ColorHex)

	c.computeDerived()
}

// MaxParticles bounds particle allocation. The pairwise pass is O(n²).
const MaxParticles = 600

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DriveShape = ParseDriveShape(c.Drive.Mode, DriveInOut)
	c.Derived.FluidRGB = HexToRGB(c.Material.ColorHex)
	c.Derived.LightRGB = HexToRGB(c.Light.ColorHex)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
