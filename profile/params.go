// Package profile holds named parameter bundles and their YAML store.
//
// A profile's values are a flat map keyed by the config path of each tunable
// ("magnet.strength", "drive.mode"). Sanitize, Apply and Collect convert
// between that map and a config.Config without drift.
package profile

import (
	"math"
	"strconv"
	"strings"

	"github.com/pthm-cable/ferrofluid/config"
)

// Kind is the value type of a profile parameter.
type Kind uint8

const (
	KindNumber Kind = iota
	KindInt
	KindBool
	KindString
)

// Values maps parameter keys to sanitized values: float64, int, bool or string.
type Values map[string]any

// ParamSpec binds one profile key to its config field.
type ParamSpec struct {
	Key  string
	Kind Kind

	number  func(*config.Config) *float64
	integer func(*config.Config) *int
	flag    func(*config.Config) *bool
	text    func(*config.Config) *string
	// normalize maps a raw string to its canonical form, or the fallback.
	normalize func(value, fallback string) string
	lo, hi    int
}

func number(key string, field func(*config.Config) *float64) ParamSpec {
	return ParamSpec{Key: key, Kind: KindNumber, number: field}
}

// integer binds a whole-number field clamped to [lo, hi].
func integer(key string, lo, hi int, field func(*config.Config) *int) ParamSpec {
	return ParamSpec{Key: key, Kind: KindInt, integer: field, lo: lo, hi: hi}
}

func flag(key string, field func(*config.Config) *bool) ParamSpec {
	return ParamSpec{Key: key, Kind: KindBool, flag: field}
}

func text(key string, field func(*config.Config) *string, normalize func(value, fallback string) string) ParamSpec {
	return ParamSpec{Key: key, Kind: KindString, text: field, normalize: normalize}
}

func normalizeDriveMode(value, fallback string) string {
	if value == "inout" || value == "gate" {
		return value
	}
	if fallback == "inout" {
		return "inout"
	}
	return "gate"
}

// Params lists every parameter carried by a profile.
var Params = []ParamSpec{
	number("magnet.strength", func(c *config.Config) *float64 { return &c.Magnet.Strength }),
	number("magnet.size", func(c *config.Config) *float64 { return &c.Magnet.Size }),
	number("physics.gravity", func(c *config.Config) *float64 { return &c.Physics.Gravity }),
	number("render.quality", func(c *config.Config) *float64 { return &c.Render.Quality }),
	number("capsule.roundness", func(c *config.Config) *float64 { return &c.Capsule.Roundness }),
	number("capsule.width", func(c *config.Config) *float64 { return &c.Capsule.Width }),
	number("capsule.height", func(c *config.Config) *float64 { return &c.Capsule.Height }),
	number("drive.pulse_hz", func(c *config.Config) *float64 { return &c.Drive.PulseHz }),
	number("drive.pulse_aggression", func(c *config.Config) *float64 { return &c.Drive.PulseAggression }),
	number("physics.density", func(c *config.Config) *float64 { return &c.Physics.Density }),
	number("physics.viscosity", func(c *config.Config) *float64 { return &c.Physics.Viscosity }),
	number("physics.resistance", func(c *config.Config) *float64 { return &c.Physics.Resistance }),
	number("physics.surface_tension", func(c *config.Config) *float64 { return &c.Physics.SurfaceTension }),
	number("physics.blob_cohesion", func(c *config.Config) *float64 { return &c.Physics.BlobCohesion }),
	number("physics.cohesion", func(c *config.Config) *float64 { return &c.Physics.Cohesion }),
	number("physics.repulsion", func(c *config.Config) *float64 { return &c.Physics.Repulsion }),
	number("physics.center_pull", func(c *config.Config) *float64 { return &c.Physics.CenterPull }),
	number("physics.cluster_balance", func(c *config.Config) *float64 { return &c.Physics.ClusterBalance }),
	number("physics.rejoin_strength", func(c *config.Config) *float64 { return &c.Physics.RejoinStrength }),
	number("light.point_intensity", func(c *config.Config) *float64 { return &c.Light.PointIntensity }),
	number("light.side_strength", func(c *config.Config) *float64 { return &c.Light.SideStrength }),
	number("light.env_strength", func(c *config.Config) *float64 { return &c.Light.EnvStrength }),
	number("light.offset_x", func(c *config.Config) *float64 { return &c.Light.OffsetX }),
	number("light.offset_y", func(c *config.Config) *float64 { return &c.Light.OffsetY }),
	number("light.exposure", func(c *config.Config) *float64 { return &c.Light.Exposure }),
	number("light.ambient", func(c *config.Config) *float64 { return &c.Light.Ambient }),
	number("light.occlusion", func(c *config.Config) *float64 { return &c.Light.Occlusion }),
	number("material.tint", func(c *config.Config) *float64 { return &c.Material.Tint }),
	number("material.reflectivity", func(c *config.Config) *float64 { return &c.Material.Reflectivity }),
	number("material.surface_sharpness", func(c *config.Config) *float64 { return &c.Material.SurfaceSharpness }),
	number("material.depth_boost", func(c *config.Config) *float64 { return &c.Material.DepthBoost }),
	number("material.reflection_clarity", func(c *config.Config) *float64 { return &c.Material.ReflectionClarity }),
	number("material.impact_highlights", func(c *config.Config) *float64 { return &c.Material.ImpactHighlights }),
	number("material.iridescence", func(c *config.Config) *float64 { return &c.Material.Iridescence }),
	number("audio.sensitivity", func(c *config.Config) *float64 { return &c.Audio.Sensitivity }),
	number("audio.smoothing", func(c *config.Config) *float64 { return &c.Audio.Smoothing }),
	number("audio.threshold", func(c *config.Config) *float64 { return &c.Audio.Threshold }),

	integer("particles.count", 1, config.MaxParticles, func(c *config.Config) *int { return &c.Particles.Count }),

	flag("drive.manual_pulse", func(c *config.Config) *bool { return &c.Drive.ManualPulse }),
	flag("drive.audio_reactive", func(c *config.Config) *bool { return &c.Drive.AudioReactive }),
	flag("light.use_env_reflections", func(c *config.Config) *bool { return &c.Light.UseEnvReflections }),

	text("drive.mode", func(c *config.Config) *string { return &c.Drive.Mode }, normalizeDriveMode),
	text("material.color", func(c *config.Config) *string { return &c.Material.ColorHex }, config.NormalizeHex),
	text("light.color", func(c *config.Config) *string { return &c.Light.ColorHex }, config.NormalizeHex),
}

// Sanitize returns a complete value set: every key in Params, taken from
// values when valid and from defaults otherwise. Unknown keys are dropped.
func Sanitize(values Values, defaults *config.Config) Values {
	out := make(Values, len(Params))
	for _, p := range Params {
		raw, present := values[p.Key]
		switch p.Kind {
		case KindNumber:
			fallback := *p.number(defaults)
			if f, ok := toFloat(raw); present && ok {
				out[p.Key] = f
			} else {
				out[p.Key] = fallback
			}
		case KindInt:
			n := *p.integer(defaults)
			if f, ok := toFloat(raw); present && ok {
				n = int(math.Round(math.Max(float64(p.lo), math.Min(f, float64(p.hi)))))
			}
			out[p.Key] = n
		case KindBool:
			if b, ok := raw.(bool); present && ok {
				out[p.Key] = b
			} else {
				out[p.Key] = *p.flag(defaults)
			}
		case KindString:
			s, _ := raw.(string)
			out[p.Key] = p.normalize(s, *p.text(defaults))
		}
	}
	return out
}

// toFloat accepts any finite numeric value, including numeric strings.
func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Apply sanitizes values against defaults and writes them into cfg. Derived
// fields are recomputed. Fields outside the profile are untouched.
func Apply(cfg *config.Config, values Values, defaults *config.Config) {
	sanitized := Sanitize(values, defaults)
	for _, p := range Params {
		switch p.Kind {
		case KindNumber:
			*p.number(cfg) = sanitized[p.Key].(float64)
		case KindInt:
			*p.integer(cfg) = sanitized[p.Key].(int)
		case KindBool:
			*p.flag(cfg) = sanitized[p.Key].(bool)
		case KindString:
			*p.text(cfg) = sanitized[p.Key].(string)
		}
	}
	cfg.Sanitize(defaults)
}

// Collect reads the profile parameters out of cfg. Non-finite numbers and
// malformed strings fall back to defaults.
func Collect(cfg, defaults *config.Config) Values {
	values := make(Values, len(Params))
	for _, p := range Params {
		switch p.Kind {
		case KindNumber:
			values[p.Key] = *p.number(cfg)
		case KindInt:
			values[p.Key] = *p.integer(cfg)
		case KindBool:
			values[p.Key] = *p.flag(cfg)
		case KindString:
			values[p.Key] = *p.text(cfg)
		}
	}
	return Sanitize(values, defaults)
}
