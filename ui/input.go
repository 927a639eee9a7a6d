package ui

import rl "github.com/gen2brain/raylib-go/raylib"

// controlsLegend is shown at the bottom of the screen.
const controlsLegend = "Space/click: pulse | R: reset | H: HUD | P: perf | Tab: controls | O: shell | F11: fullscreen"

// handleInput processes keyboard and mouse input.
func (v *Viewer) handleInput() {
	// Window resize propagation
	v.handleResize()

	// Fullscreen toggle
	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	v.overlays.HandleKeys()

	if rl.IsKeyPressed(rl.KeyR) {
		v.game.Reset()
	}

	// Hold to pulse; clicks on the panel belong to raygui
	mouse := rl.IsMouseButtonDown(rl.MouseButtonLeft)
	if mouse && v.overlays.IsEnabled(OverlayControls) && v.controls.Contains(rl.GetMousePosition()) {
		mouse = false
	}
	v.game.SetTriggerHeld(rl.IsKeyDown(rl.KeySpace) || mouse)
}

// handleResize checks for window resize and propagates new dimensions.
func (v *Viewer) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := int32(rl.GetScreenWidth())
	h := int32(rl.GetScreenHeight())
	if w == v.screenWidth && h == v.screenHeight {
		return
	}
	v.screenWidth = w
	v.screenHeight = h

	v.game.Resize(int(w), int(h), float64(rl.GetWindowScaleDPI().X))
	v.controls.SetPosition(w)
}
