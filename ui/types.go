// Package ui draws the ferrofluid viewer with raylib: the background and
// capsule shell, the fluid layer, the HUD and a raygui control panel.
// Panels are described by metadata so that new tunables only need a
// descriptor entry.
package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/ferrofluid/config"
)

// SliderDescriptor binds a raygui slider to one float config field.
type SliderDescriptor struct {
	Label  string
	Min    float32
	Max    float32
	Format string // Printf format for the value readout
	Field  func(*config.Config) *float64
}

// ToggleDescriptor binds a button toggle to one bool config field.
type ToggleDescriptor struct {
	Label string
	Field func(*config.Config) *bool
}

// SectionDescriptor groups controls under a header.
type SectionDescriptor struct {
	Title   string
	Sliders []SliderDescriptor
	Toggles []ToggleDescriptor
}

// PanelAnchor specifies where a panel is anchored on screen.
type PanelAnchor int

const (
	AnchorTopLeft PanelAnchor = iota
	AnchorTopRight
	AnchorBottomLeft
	AnchorBottomRight
)

// Theme holds UI styling constants.
type Theme struct {
	PanelBg        rl.Color
	PanelBorder    rl.Color
	SectionHeader  rl.Color
	LabelColor     rl.Color
	ValueColor     rl.Color
	BarBg          rl.Color
	BarFill        rl.Color
	BarFillLow     rl.Color
	BarFillMedium  rl.Color
	BarFillHigh    rl.Color
	BackgroundTop  rl.Color
	BackgroundLow  rl.Color
	Shell          rl.Color
	Padding        int32
	LineHeight     int32
	LabelWidth     int32
	BarHeight      int32
	FontSize       int32
	HeaderFontSize int32
}

// DefaultTheme returns the default UI theme.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:        rl.Color{R: 20, G: 25, B: 30, A: 240},
		PanelBorder:    rl.Color{R: 60, G: 70, B: 80, A: 255},
		SectionHeader:  rl.Yellow,
		LabelColor:     rl.LightGray,
		ValueColor:     rl.LightGray,
		BarBg:          rl.Color{R: 40, G: 40, B: 40, A: 255},
		BarFill:        rl.Color{R: 100, G: 150, B: 200, A: 255},
		BarFillLow:     rl.Color{R: 100, G: 200, B: 100, A: 255},
		BarFillMedium:  rl.Color{R: 200, G: 180, B: 100, A: 255},
		BarFillHigh:    rl.Color{R: 200, G: 100, B: 100, A: 255},
		BackgroundTop:  rl.Color{R: 30, G: 32, B: 38, A: 255},
		BackgroundLow:  rl.Color{R: 8, G: 9, B: 12, A: 255},
		Shell:          rl.Color{R: 200, G: 210, B: 225, A: 70},
		Padding:        10,
		LineHeight:     16,
		LabelWidth:     90,
		BarHeight:      12,
		FontSize:       12,
		HeaderFontSize: 14,
	}
}

// DefaultSections lists the tunables shown in the control panel.
func DefaultSections() []SectionDescriptor {
	return []SectionDescriptor{
		{
			Title: "Drive",
			Toggles: []ToggleDescriptor{
				{Label: "Manual pulse", Field: func(c *config.Config) *bool { return &c.Drive.ManualPulse }},
				{Label: "Audio reactive", Field: func(c *config.Config) *bool { return &c.Drive.AudioReactive }},
			},
			Sliders: []SliderDescriptor{
				{Label: "Magnet strength", Min: 0, Max: 5200, Format: "%.0f", Field: func(c *config.Config) *float64 { return &c.Magnet.Strength }},
				{Label: "Magnet size", Min: 0.35, Max: 5, Format: "%.2f", Field: func(c *config.Config) *float64 { return &c.Magnet.Size }},
				{Label: "Pulse Hz", Min: 0.2, Max: 16, Format: "%.1f", Field: func(c *config.Config) *float64 { return &c.Drive.PulseHz }},
				{Label: "Aggression", Min: 0, Max: 12, Format: "%.1f", Field: func(c *config.Config) *float64 { return &c.Drive.PulseAggression }},
			},
		},
		{
			Title: "Fluid",
			Sliders: []SliderDescriptor{
				{Label: "Gravity", Min: -400, Max: 1200, Format: "%.0f", Field: func(c *config.Config) *float64 { return &c.Physics.Gravity }},
				{Label: "Viscosity", Min: 0, Max: 1.2, Format: "%.3f", Field: func(c *config.Config) *float64 { return &c.Physics.Viscosity }},
				{Label: "Resistance", Min: 0, Max: 2.2, Format: "%.2f", Field: func(c *config.Config) *float64 { return &c.Physics.Resistance }},
				{Label: "Tension", Min: 0, Max: 2, Format: "%.2f", Field: func(c *config.Config) *float64 { return &c.Physics.SurfaceTension }},
				{Label: "Blob cohesion", Min: 0, Max: 8, Format: "%.2f", Field: func(c *config.Config) *float64 { return &c.Physics.BlobCohesion }},
			},
		},
		{
			Title: "Capsule",
			Sliders: []SliderDescriptor{
				{Label: "Roundness", Min: 2.2, Max: 7, Format: "%.2f", Field: func(c *config.Config) *float64 { return &c.Capsule.Roundness }},
				{Label: "Width", Min: 0.75, Max: 1.35, Format: "%.2f", Field: func(c *config.Config) *float64 { return &c.Capsule.Width }},
				{Label: "Height", Min: 0.75, Max: 1.35, Format: "%.2f", Field: func(c *config.Config) *float64 { return &c.Capsule.Height }},
			},
		},
		{
			Title: "Look",
			Toggles: []ToggleDescriptor{
				{Label: "Env reflections", Field: func(c *config.Config) *bool { return &c.Light.UseEnvReflections }},
			},
			Sliders: []SliderDescriptor{
				{Label: "Exposure", Min: 0.6, Max: 1.8, Format: "%.2f", Field: func(c *config.Config) *float64 { return &c.Light.Exposure }},
				{Label: "Reflectivity", Min: 0, Max: 2.2, Format: "%.2f", Field: func(c *config.Config) *float64 { return &c.Material.Reflectivity }},
				{Label: "Iridescence", Min: 0, Max: 2.4, Format: "%.2f", Field: func(c *config.Config) *float64 { return &c.Material.Iridescence }},
				{Label: "Quality", Min: 0.6, Max: 2.4, Format: "%.2f", Field: func(c *config.Config) *float64 { return &c.Render.Quality }},
			},
		},
		{
			Title: "Audio",
			Sliders: []SliderDescriptor{
				{Label: "Sensitivity", Min: 0, Max: 3, Format: "%.2f", Field: func(c *config.Config) *float64 { return &c.Audio.Sensitivity }},
				{Label: "Smoothing", Min: 0, Max: 0.98, Format: "%.2f", Field: func(c *config.Config) *float64 { return &c.Audio.Smoothing }},
				{Label: "Threshold", Min: 0, Max: 0.88, Format: "%.2f", Field: func(c *config.Config) *float64 { return &c.Audio.Threshold }},
			},
		},
	}
}
