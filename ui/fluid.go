package ui

import (
	"image"
	"image/color"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/ferrofluid/systems"
)

// shellSegments is the polyline resolution of the capsule outline.
const shellSegments = 96

// FluidLayer owns the GPU texture the shaded fluid is uploaded into.
// The texture is recreated whenever the raster size changes.
type FluidLayer struct {
	texture rl.Texture2D
	width   int
	height  int
	pixels  []color.RGBA
}

// Upload copies img into the texture.
func (f *FluidLayer) Upload(img *image.NRGBA) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return
	}
	if w != f.width || h != f.height {
		f.Unload()
		blank := rl.GenImageColor(w, h, rl.Blank)
		f.texture = rl.LoadTextureFromImage(blank)
		rl.UnloadImage(blank)
		f.width, f.height = w, h
		f.pixels = make([]color.RGBA, w*h)
	}

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		dst := f.pixels[y*w : (y+1)*w]
		for x := range dst {
			p := row[x*4 : x*4+4 : x*4+4]
			dst[x] = color.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
		}
	}
	rl.UpdateTexture(f.texture, f.pixels)
}

// Draw stretches the texture over bounds in screen coordinates.
func (f *FluidLayer) Draw(bounds systems.Rect) {
	if f.width == 0 {
		return
	}
	rl.DrawTexturePro(
		f.texture,
		rl.Rectangle{X: 0, Y: 0, Width: float32(f.width), Height: float32(f.height)},
		rl.Rectangle{X: float32(bounds.X), Y: float32(bounds.Y), Width: float32(bounds.W), Height: float32(bounds.H)},
		rl.Vector2{X: 0, Y: 0},
		0,
		rl.White,
	)
}

// Unload releases the texture.
func (f *FluidLayer) Unload() {
	if f.width != 0 {
		rl.UnloadTexture(f.texture)
	}
	f.width, f.height = 0, 0
	f.pixels = nil
}

// DrawBackground fills the screen with the studio gradient.
func (r *Renderer) DrawBackground(width, height int32) {
	rl.DrawRectangleGradientV(0, 0, width, height, r.Theme.BackgroundTop, r.Theme.BackgroundLow)
}

// DrawShell outlines the capsule wall with a faint glass line.
func (r *Renderer) DrawShell(c systems.Capsule) {
	px, py := c.OutlinePoint(0)
	for i := 1; i <= shellSegments; i++ {
		x, y := c.OutlinePoint(float64(i) / shellSegments * 2 * math.Pi)
		rl.DrawLineEx(
			rl.Vector2{X: float32(px), Y: float32(py)},
			rl.Vector2{X: float32(x), Y: float32(y)},
			2,
			r.Theme.Shell,
		)
		px, py = x, y
	}
}
