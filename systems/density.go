package systems

import "math"

// Kernel and raster constants.
const (
	GaussLUTSize = 512

	kernelSigma     = 0.118 // fraction of Scale
	kernelInfluence = 3.1   // influence radius in sigmas
	fieldPadding    = 1.35  // bounds padding in influence radii

	minRasterHeight = 180
	maxRasterHeight = 900
	minRasterWidth  = 120

	MinQuality = 0.35
	MaxQuality = 2.4
)

// Kernel is a truncated Gaussian.
type Kernel struct {
	Sigma     float64
	Influence float64 // cutoff radius
}

// DefaultKernel returns the stock kernel for capsule c.
func DefaultKernel(c Capsule) Kernel {
	sigma := c.Scale * kernelSigma
	return Kernel{Sigma: sigma, Influence: sigma * kernelInfluence}
}

// Rect is an axis-aligned rectangle in world coordinates.
type Rect struct {
	X, Y, W, H float64
}

// RasterSize returns the field resolution for capsule c. The short axis
// follows ry·quality·(0.96 + 0.28·dpr), clamped to [180, 900].
func RasterSize(c Capsule, bounds Rect, quality, dpr float64) (w, h int) {
	quality = clamp(quality, MinQuality, MaxQuality)
	dpr = clamp(dpr, 1, 2)
	h = int(clamp(math.Round(c.RY*quality*(0.96+0.28*dpr)), minRasterHeight, maxRasterHeight))
	aspect := bounds.W / math.Max(1e-6, bounds.H)
	w = max(minRasterWidth, int(math.Round(float64(h)*aspect)))
	return w, h
}

// DensityField is a Gaussian density raster over the padded capsule bounds.
// Particles are bucketed into a uniform grid of linked lists (head/next
// arrays) so each sample visits only the 3×3 neighbouring cells.
type DensityField struct {
	Width, Height int
	Bounds        Rect
	Values        []float64 // row-major, Width×Height
	WorldX        []float64 // world x per column
	WorldY        []float64 // world y per row

	kernel      Kernel
	influenceSq float64
	lutScale    float64
	lut         [GaussLUTSize + 1]float64

	cellSize   float64
	cols, rows int
	cellX      []int // grid column per raster column
	cellY      []int // grid row per raster row
	heads      []int
	next       []int
}

// NewDensityField returns an unconfigured field. Until Configure is called
// the field is empty: Build is a no-op and Sample and At return 0.
func NewDensityField() *DensityField {
	return &DensityField{}
}

// Configure sizes the field for capsule c using the stock kernel and the
// raster size derived from quality and dpr.
func (f *DensityField) Configure(c Capsule, quality, dpr float64, particles int) {
	k := DefaultKernel(c)
	bounds := paddedBounds(c, k)
	w, h := RasterSize(c, bounds, quality, dpr)
	f.ConfigureKernel(c, k, w, h, particles)
}

func paddedBounds(c Capsule, k Kernel) Rect {
	pad := k.Influence * fieldPadding
	return Rect{
		X: c.CX - c.RX - pad,
		Y: c.CY - c.RY - pad,
		W: c.RX*2 + pad*2,
		H: c.RY*2 + pad*2,
	}
}

// ConfigureKernel sizes the field with an explicit kernel and raster size.
// Buffers are reused when large enough.
func (f *DensityField) ConfigureKernel(c Capsule, k Kernel, width, height, particles int) {
	k.Sigma = math.Max(1e-6, k.Sigma)
	k.Influence = math.Max(1e-6, k.Influence)
	f.kernel = k
	f.influenceSq = k.Influence * k.Influence
	f.lutScale = GaussLUTSize / math.Max(1e-4, f.influenceSq)
	inv2Sigma2 := 1 / (2 * k.Sigma * k.Sigma)
	for i := 0; i <= GaussLUTSize; i++ {
		d2 := f.influenceSq * float64(i) / GaussLUTSize
		f.lut[i] = math.Exp(-d2 * inv2Sigma2)
	}

	f.Bounds = paddedBounds(c, k)
	f.cellSize = math.Max(1, k.Influence)
	f.cols = max(1, int(math.Ceil(f.Bounds.W/f.cellSize)))
	f.rows = max(1, int(math.Ceil(f.Bounds.H/f.cellSize)))
	f.heads = resizeInts(f.heads, f.cols*f.rows)
	f.next = resizeInts(f.next, particles)

	f.Width = max(1, width)
	f.Height = max(1, height)
	f.Values = resizeFloats(f.Values, f.Width*f.Height)
	f.WorldX = resizeFloats(f.WorldX, f.Width)
	f.WorldY = resizeFloats(f.WorldY, f.Height)
	f.cellX = resizeInts(f.cellX, f.Width)
	f.cellY = resizeInts(f.cellY, f.Height)

	for x := 0; x < f.Width; x++ {
		u := float64(x) / float64(max(1, f.Width-1))
		f.WorldX[x] = f.Bounds.X + u*f.Bounds.W
		f.cellX[x] = clampInt(int(math.Floor((f.WorldX[x]-f.Bounds.X)/f.cellSize)), 0, f.cols-1)
	}
	for y := 0; y < f.Height; y++ {
		v := float64(y) / float64(max(1, f.Height-1))
		f.WorldY[y] = f.Bounds.Y + v*f.Bounds.H
		f.cellY[y] = clampInt(int(math.Floor((f.WorldY[y]-f.Bounds.Y)/f.cellSize)), 0, f.rows-1)
	}
}

// Kernel returns the configured kernel.
func (f *DensityField) Kernel() Kernel { return f.kernel }

// Build buckets the particles of s and evaluates the field at every raster
// sample.
func (f *DensityField) Build(s *SimulationState) {
	if len(f.heads) == 0 {
		return
	}
	n := s.Len()
	if len(f.next) < n {
		f.next = resizeInts(f.next, n)
	}
	f.bucket(s.PX, s.PY)

	i := 0
	for y := 0; y < f.Height; y++ {
		wy := f.WorldY[y]
		cy := f.cellY[y]
		for x := 0; x < f.Width; x++ {
			f.Values[i] = f.sumCells(s, f.WorldX[x], wy, f.cellX[x], cy)
			i++
		}
	}
}

// Sample evaluates the field at an arbitrary world point using the grid from
// the last Build.
func (f *DensityField) Sample(s *SimulationState, x, y float64) float64 {
	if len(f.heads) == 0 {
		return 0
	}
	cx := clampInt(int(math.Floor((x-f.Bounds.X)/f.cellSize)), 0, f.cols-1)
	cy := clampInt(int(math.Floor((y-f.Bounds.Y)/f.cellSize)), 0, f.rows-1)
	return f.sumCells(s, x, y, cx, cy)
}

// At returns the raster value at (x, y), clamped to the raster edges.
func (f *DensityField) At(x, y int) float64 {
	if len(f.Values) == 0 {
		return 0
	}
	x = clampInt(x, 0, f.Width-1)
	y = clampInt(y, 0, f.Height-1)
	return f.Values[y*f.Width+x]
}

func (f *DensityField) bucket(px, py []float64) {
	for i := range f.heads {
		f.heads[i] = -1
	}
	inv := 1 / f.cellSize
	for i := range px {
		gx := clampInt(int(math.Floor((px[i]-f.Bounds.X)*inv)), 0, f.cols-1)
		gy := clampInt(int(math.Floor((py[i]-f.Bounds.Y)*inv)), 0, f.rows-1)
		cell := gy*f.cols + gx
		f.next[i] = f.heads[cell]
		f.heads[cell] = i
	}
}

func (f *DensityField) sumCells(s *SimulationState, wx, wy float64, cx, cy int) float64 {
	var sum float64
	y0, y1 := max(0, cy-1), min(f.rows-1, cy+1)
	x0, x1 := max(0, cx-1), min(f.cols-1, cx+1)
	for gy := y0; gy <= y1; gy++ {
		row := gy * f.cols
		for gx := x0; gx <= x1; gx++ {
			for p := f.heads[row+gx]; p != -1; p = f.next[p] {
				dx := wx - s.PX[p]
				dy := wy - s.PY[p]
				d2 := dx*dx + dy*dy
				if d2 <= f.influenceSq {
					sum += f.gaussian(d2) * s.Weight[p]
				}
			}
		}
	}
	return sum
}

// gaussian looks up exp(-d2/2σ²) with linear interpolation.
func (f *DensityField) gaussian(d2 float64) float64 {
	pos := d2 * f.lutScale
	idx := min(GaussLUTSize-1, int(pos))
	frac := pos - float64(idx)
	return f.lut[idx] + (f.lut[idx+1]-f.lut[idx])*frac
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func resizeInts(buf []int, n int) []int {
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]int, n)
}

func resizeFloats(buf []float64, n int) []float64 {
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]float64, n)
}
