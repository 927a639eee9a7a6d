package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/ferrofluid/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title           string
	Particles       int
	Components      int
	MainSize        int
	Envelope        float64
	MotionHighlight float64
	DriveLabel      string
	AudioDrive      float64
	AudioActive     bool
	TriggerHeld     bool
	Profile         string
	FPS             int32
	FluidRGB        [3]float64
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the HUD panel in the top-left corner.
func (h *HUD) Draw(data HUDData) {
	r := h.renderer
	x, y := int32(10), int32(10)
	width := int32(260)

	rl.DrawText(data.Title, x, y, 20, rl.White)
	y += 28

	r.DrawPanel(x-4, y-4, width, r.Theme.LineHeight*9+12)
	y = r.DrawLabelValue(x, y, "Profile", data.Profile)
	y = r.DrawLabelValue(x, y, "Particles", fmt.Sprintf("%d | FPS %d", data.Particles, data.FPS))
	y = r.DrawLabelValue(x, y, "Body", fmt.Sprintf("%d comps, main %d", data.Components, data.MainSize))
	drive := data.DriveLabel
	if data.TriggerHeld {
		drive += " (held)"
	}
	y = r.DrawLabelValue(x, y, "Drive", drive)
	y = r.DrawBar(x, y, "Envelope", float32(data.Envelope), 1, width-8)
	y = r.DrawBar(x, y, "Motion", float32(data.MotionHighlight), 2.2, width-8)
	if data.AudioActive {
		y = r.DrawBar(x, y, "Audio", float32(data.AudioDrive), 1, width-8)
	} else {
		y = r.DrawLabelValue(x, y, "Audio", "idle")
	}
	r.DrawColorSwatch(x, y, "Fluid", rgbColor(data.FluidRGB))
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders the smoothed frame phase timings.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{renderer: NewRenderer(), x: x, y: y}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(hud *telemetry.Smoother) {
	r := p.renderer
	x, y := p.x, p.y
	width := int32(220)
	r.DrawPanel(x-4, y-4, width, 14*7+28)

	rl.DrawText("Frame Timing", x, y, 16, rl.White)
	y += 20

	t := hud.Average()
	rows := []struct {
		name string
		ms   float64
	}{
		{"frame", t.Frame},
		{"step", t.Step},
		{"field", t.Field},
		{"shade", t.Shade},
		{"draw", t.Draw},
	}
	for _, row := range rows {
		pct := 0.0
		if t.Frame > 0 {
			pct = row.ms / t.Frame * 100
		}
		color := rl.LightGray
		if row.name != "frame" {
			if pct > 50 {
				color = rl.Red
			} else if pct > 25 {
				color = rl.Orange
			}
		}
		rl.DrawText(fmt.Sprintf("%-6s %7.2f ms %5.1f%%", row.name, row.ms, pct), x, y, 12, color)
		y += 14
	}

	label, ms := hud.Bottleneck()
	rl.DrawText(fmt.Sprintf("bottleneck: %s (%.2f ms)", label, ms), x, y+4, 12, rl.Yellow)
}
