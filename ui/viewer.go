package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/ferrofluid/config"
	"github.com/pthm-cable/ferrofluid/game"
	"github.com/pthm-cable/ferrofluid/profile"
)

// Viewer composites one game into the raylib window: background, capsule
// shell, fluid layer and overlays. It must be used between InitWindow and
// CloseWindow.
type Viewer struct {
	game     *game.Game
	store    *profile.Store
	renderer *Renderer
	fluid    FluidLayer
	hud      *HUD
	perf     *PerfPanel
	controls *ControlsPanel
	overlays *OverlayRegistry

	screenWidth, screenHeight int32

	pending      *config.Config
	pendingEvent ControlEvent
}

// NewViewer creates a viewer for g sized to the current window.
func NewViewer(g *game.Game, store *profile.Store, defaults *config.Config) *Viewer {
	v := &Viewer{
		game:         g,
		store:        store,
		renderer:     NewRenderer(),
		hud:          NewHUD(),
		perf:         NewPerfPanel(10, 220),
		controls:     NewControlsPanel(DefaultSections(), store, defaults),
		overlays:     NewOverlayRegistry(),
		screenWidth:  int32(rl.GetScreenWidth()),
		screenHeight: int32(rl.GetScreenHeight()),
	}
	v.controls.SetPosition(v.screenWidth)
	return v
}

// Frame handles input, advances the game by the raylib frame time and
// draws the result.
func (v *Viewer) Frame() {
	v.handleInput()
	v.game.Update(float64(rl.GetFrameTime()), v.draw)

	// Config changes land between frames so the rendered frame stays consistent.
	switch v.pendingEvent {
	case ControlTune:
		v.game.TuneConfig(v.pending)
	case ControlApply:
		v.game.ApplyConfig(v.pending)
	case ControlReset:
		v.game.Reset()
	}
	v.pending, v.pendingEvent = nil, ControlNone
}

func (v *Viewer) draw(layer game.Layer) {
	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	v.renderer.DrawBackground(v.screenWidth, v.screenHeight)
	v.fluid.Upload(layer.Image)
	v.fluid.Draw(layer.Bounds)
	if v.overlays.IsEnabled(OverlayShell) {
		v.renderer.DrawShell(v.game.Capsule())
	}

	cfg := v.game.Config()
	if v.overlays.IsEnabled(OverlayHUD) {
		v.hud.Draw(v.hudData(layer, cfg))
		v.hud.DrawControls(v.screenHeight, controlsLegend)
	}
	if v.overlays.IsEnabled(OverlayPerf) {
		v.perf.Draw(v.game.HUD())
	}
	if v.overlays.IsEnabled(OverlayControls) {
		v.pending, v.pendingEvent = v.controls.Draw(cfg)
	}

	rl.EndDrawing()
}

func (v *Viewer) hudData(layer game.Layer, cfg *config.Config) HUDData {
	last := v.game.LastStep()
	sig := v.game.AudioSignal()

	drive := "periodic"
	switch {
	case cfg.Drive.ManualPulse:
		drive = "manual"
	case cfg.Drive.AudioReactive:
		drive = "audio"
	}

	return HUDData{
		Title:           "Capsule Ferrofluid",
		Particles:       v.game.State().Len(),
		Components:      last.Components,
		MainSize:        last.MainSize,
		Envelope:        layer.Envelope,
		MotionHighlight: layer.MotionHighlight,
		DriveLabel:      drive + " / " + cfg.Derived.DriveShape.String(),
		AudioDrive:      sig.Drive,
		AudioActive:     sig.Active,
		TriggerHeld:     v.game.TriggerHeld(),
		Profile:         v.store.Active().Name,
		FPS:             rl.GetFPS(),
		FluidRGB:        cfg.Derived.FluidRGB,
	}
}

// Unload releases GPU resources.
func (v *Viewer) Unload() {
	v.fluid.Unload()
}
