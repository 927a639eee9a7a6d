package ui

import (
	"errors"
	"fmt"
	"log/slog"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/ferrofluid/config"
	"github.com/pthm-cable/ferrofluid/profile"
)

const (
	sliderHeight = 16
	buttonHeight = 22
	valueWidth   = 56
)

// ControlEvent reports what the user did in the controls panel this frame.
type ControlEvent int

const (
	// ControlNone means nothing changed.
	ControlNone ControlEvent = iota
	// ControlTune means a slider or toggle edited the config.
	ControlTune
	// ControlApply means a profile was loaded and should replace the config.
	ControlApply
	// ControlReset means the reset button was pressed.
	ControlReset
)

// ControlsPanel renders the right-side parameter and profile panel.
type ControlsPanel struct {
	renderer *Renderer
	sections []SectionDescriptor
	defaults *config.Config
	store    *profile.Store
	x, y     int32
	width    int32
	height   int32
	selected int
	status   string
}

// NewControlsPanel creates a panel editing sections and managing the
// profiles in store.
func NewControlsPanel(sections []SectionDescriptor, store *profile.Store, defaults *config.Config) *ControlsPanel {
	c := &ControlsPanel{
		renderer: NewRenderer(),
		sections: sections,
		defaults: defaults,
		store:    store,
		width:    280,
		status:   "Profiles: ready",
	}
	active := store.Active().ID
	for i, p := range store.Profiles() {
		if p.ID == active {
			c.selected = i
		}
	}
	c.height = c.measure()
	return c
}

// SetPosition anchors the panel to the right edge of a screen of the given width.
func (c *ControlsPanel) SetPosition(screenWidth int32) {
	c.x = screenWidth - c.width - 10
	c.y = 10
}

// Bounds returns the panel rectangle.
func (c *ControlsPanel) Bounds() rl.Rectangle {
	return rl.Rectangle{X: float32(c.x), Y: float32(c.y), Width: float32(c.width), Height: float32(c.height)}
}

// Contains reports whether a screen point is over the panel.
func (c *ControlsPanel) Contains(p rl.Vector2) bool {
	return rl.CheckCollisionPointRec(p, c.Bounds())
}

func (c *ControlsPanel) measure() int32 {
	th := c.renderer.Theme
	h := th.Padding*2 + th.LineHeight + 4
	// Profile block: header, selector, two button rows, status line
	h += th.LineHeight + 3*(buttonHeight+4) + th.LineHeight + 8
	for _, s := range c.sections {
		h += th.LineHeight
		h += int32(len(s.Toggles)) * (buttonHeight + 4)
		h += int32(len(s.Sliders)) * (th.LineHeight + sliderHeight + 4)
		h += 6
	}
	return h
}

// Draw renders the panel over cfg and returns the edited copy with the
// event that produced it. The returned config is nil for ControlNone and
// ControlReset.
func (c *ControlsPanel) Draw(cfg *config.Config) (*config.Config, ControlEvent) {
	r := c.renderer
	th := r.Theme
	r.DrawPanel(c.x, c.y, c.width, c.height)

	x := float32(c.x + th.Padding)
	inner := float32(c.width - th.Padding*2)
	y := c.y + th.Padding

	rl.DrawText("Ferrofluid", int32(x), y, 16, rl.White)
	if gui.Button(rl.Rectangle{X: x + inner - 60, Y: float32(y - 3), Width: 60, Height: buttonHeight - 2}, "Reset") {
		return nil, ControlReset
	}
	y += th.LineHeight + 4

	if next := c.drawProfiles(x, &y, inner, cfg); next != nil {
		return next, ControlApply
	}

	edited := cfg.Clone()
	changed := false
	for _, s := range c.sections {
		y = r.DrawSectionHeader(int32(x), y, s.Title)
		for _, t := range s.Toggles {
			field := t.Field(edited)
			if gui.Button(rl.Rectangle{X: x, Y: float32(y), Width: inner, Height: buttonHeight}, toggleText(t.Label, *field)) {
				*field = !*field
				changed = true
			}
			y += buttonHeight + 4
		}
		for _, sd := range s.Sliders {
			field := sd.Field(edited)
			r.DrawLabel(int32(x), y, sd.Label)
			y += th.LineHeight
			value := gui.SliderBar(
				rl.Rectangle{X: x, Y: float32(y), Width: inner - valueWidth, Height: sliderHeight},
				"", "",
				float32(*field), sd.Min, sd.Max,
			)
			rl.DrawText(fmt.Sprintf(sd.Format, *field), int32(x+inner-valueWidth+6), y+2, th.FontSize, th.ValueColor)
			if value != float32(*field) {
				*field = float64(value)
				changed = true
			}
			y += sliderHeight + 4
		}
		y += 6
	}

	if !changed {
		return nil, ControlNone
	}
	return edited, ControlTune
}

// drawProfiles renders the profile selector and buttons. It returns the
// config to apply when a profile was loaded or deleted.
func (c *ControlsPanel) drawProfiles(x float32, y *int32, inner float32, cfg *config.Config) *config.Config {
	r := c.renderer
	th := r.Theme
	*y = r.DrawSectionHeader(int32(x), *y, "Profile")

	profiles := c.store.Profiles()
	c.selected = min(max(c.selected, 0), len(profiles)-1)
	current := profiles[c.selected]

	if gui.Button(rl.Rectangle{X: x, Y: float32(*y), Width: 24, Height: buttonHeight}, "<") {
		c.selected = (c.selected + len(profiles) - 1) % len(profiles)
	}
	if gui.Button(rl.Rectangle{X: x + inner - 24, Y: float32(*y), Width: 24, Height: buttonHeight}, ">") {
		c.selected = (c.selected + 1) % len(profiles)
	}
	name := current.Name
	if current.BuiltIn {
		name += " (built-in)"
	}
	r.DrawLabel(int32(x)+32, *y+5, name)
	*y += buttonHeight + 4

	half := (inner - 6) / 2
	var apply *config.Config
	if gui.Button(rl.Rectangle{X: x, Y: float32(*y), Width: half, Height: buttonHeight}, "Load") {
		apply = c.load(current.ID, cfg)
	}
	if gui.Button(rl.Rectangle{X: x + half + 6, Y: float32(*y), Width: half, Height: buttonHeight}, "Save") {
		c.save(current, cfg)
	}
	*y += buttonHeight + 4
	if gui.Button(rl.Rectangle{X: x, Y: float32(*y), Width: half, Height: buttonHeight}, "Save as new") {
		c.saveAs(cfg)
	}
	if gui.Button(rl.Rectangle{X: x + half + 6, Y: float32(*y), Width: half, Height: buttonHeight}, "Delete") {
		apply = c.delete(current, cfg)
	}
	*y += buttonHeight + 4

	rl.DrawText(c.status, int32(x), *y, th.FontSize, th.LabelColor)
	*y += th.LineHeight + 8
	return apply
}

func (c *ControlsPanel) load(id string, cfg *config.Config) *config.Config {
	p, err := c.store.Select(id)
	if err != nil {
		slog.Error("failed to persist active profile", "error", err)
	}
	next := cfg.Clone()
	profile.Apply(next, p.Values, c.defaults)
	c.status = "Loaded profile: " + p.Name
	return next
}

func (c *ControlsPanel) save(p profile.Profile, cfg *config.Config) {
	err := c.store.Save(p.ID, profile.Collect(cfg, c.defaults))
	switch {
	case errors.Is(err, profile.ErrReadOnly):
		c.status = "Built-in profile is read-only. Use Save as new."
	case err != nil:
		slog.Error("failed to save profile", "error", err)
		c.status = "Profiles: save failed"
	default:
		c.status = "Saved profile: " + p.Name
	}
}

func (c *ControlsPanel) saveAs(cfg *config.Config) {
	p, err := c.store.SaveAs("", profile.Collect(cfg, c.defaults))
	if err != nil {
		slog.Error("failed to save profile", "error", err)
	}
	c.selected = len(c.store.Profiles()) - 1
	c.status = "Created profile: " + p.Name
}

func (c *ControlsPanel) delete(p profile.Profile, cfg *config.Config) *config.Config {
	fallback, err := c.store.Delete(p.ID)
	if errors.Is(err, profile.ErrReadOnly) {
		c.status = "Built-in profile cannot be deleted"
		return nil
	}
	if err != nil && fallback.ID == "" {
		c.status = "Profiles: selected profile not found"
		return nil
	}
	if err != nil {
		slog.Error("failed to persist profiles", "error", err)
	}
	c.selected = 0
	next := cfg.Clone()
	profile.Apply(next, fallback.Values, c.defaults)
	c.status = "Deleted profile: " + p.Name
	return next
}

func toggleText(label string, on bool) string {
	if on {
		return label + ": ON"
	}
	return label + ": OFF"
}
