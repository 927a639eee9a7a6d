package renderer

import (
	"image"
	"image/draw"
	"math"

	"github.com/ojrac/opensimplex-go"
)

// EnvironmentSampler returns the environment radiance along a direction as
// 0..255 RGB. ok is false when the sampler has nothing to offer.
type EnvironmentSampler interface {
	Sample(dx, dy, dz float64) (rgb [3]float64, ok bool)
}

// EquirectSampler samples a decoded equirectangular image.
type EquirectSampler struct {
	img *image.NRGBA
}

// NewEquirectSampler copies img into a sampler. Images smaller than 2×2
// yield a sampler that never returns a colour.
func NewEquirectSampler(img image.Image) *EquirectSampler {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return &EquirectSampler{img: dst}
}

// Sample maps the direction to (u, v) with u = 0.5 + atan2(x, z)/2π and
// v = 0.5 - asin(y)/π and returns the nearest pixel.
func (e *EquirectSampler) Sample(dx, dy, dz float64) ([3]float64, bool) {
	w, h := e.img.Rect.Dx(), e.img.Rect.Dy()
	if w < 2 || h < 2 {
		return [3]float64{}, false
	}
	x, y, z := normalize3(dx, dy, dz)

	u := 0.5 + math.Atan2(x, z)/(2*math.Pi)
	u -= math.Floor(u)
	v := 0.5 - math.Asin(clamp(y, -1, 1))/math.Pi

	px := int(math.Round(u * float64(w-1)))
	py := int(math.Round(clamp01(v) * float64(h-1)))
	i := e.img.PixOffset(px, py)
	p := e.img.Pix[i : i+3 : i+3]
	return [3]float64{float64(p[0]), float64(p[1]), float64(p[2])}, true
}

// LED ring layout.
const (
	ledSegments = 72
	ledBandZ    = 0.36
)

// LEDRing is the procedural light ring on the capsule sidewall. It is
// brightest at grazing directions, biased toward the key light offset, and
// broken into segments with slightly uneven brightness.
type LEDRing struct {
	Color        [3]float64 // [0,1]
	BiasX, BiasY float64

	jitter [ledSegments]float64
}

// NewLEDRing creates a ring whose segment jitter is seeded from seed.
func NewLEDRing(seed int64) *LEDRing {
	r := &LEDRing{Color: [3]float64{1, 1, 1}, BiasX: 0.92, BiasY: -0.28}
	noise := opensimplex.New(seed)
	for i := range r.jitter {
		n := noise.Eval2(float64(i)*0.61, 17.3)*0.5 + 0.5
		r.jitter[i] = 0.78 + clamp01(n)*0.46
	}
	return r
}

// SetBias points the bright side of the ring along (x, y). A zero vector
// falls back to the default bias.
func (r *LEDRing) SetBias(x, y float64) {
	l := math.Hypot(x, y)
	if l < 1e-3 {
		r.BiasX, r.BiasY = 0.92, -0.28
		return
	}
	r.BiasX, r.BiasY = x/l, y/l
}

// Radiance returns the ring colour seen along a direction, scaled by strength
// (clamped to [0, 2.5]).
func (r *LEDRing) Radiance(dx, dy, dz, strength float64) [3]float64 {
	x, y, z := normalize3(dx, dy, dz)

	sideBand := math.Exp(-math.Pow(math.Abs(z)/ledBandZ, 2.2))
	primary := powPos(clamp01((x*r.BiasX+y*r.BiasY+1)*0.5), 2.35)
	opposite := powPos(clamp01((-x*r.BiasX-y*r.BiasY+1)*0.5), 2.7)

	u := math.Atan2(y, x) / (2 * math.Pi)
	u -= math.Floor(u)
	seg := min(ledSegments-1, int(u*ledSegments))

	intensity := sideBand * (0.14 + primary*1.04 + opposite*0.42) * r.jitter[seg] * clamp(strength, 0, 2.5)
	var out [3]float64
	for c := range out {
		out[c] = clamp(math.Round(r.Color[c]*255*intensity), 0, 255)
	}
	return out
}

// Sample implements EnvironmentSampler at unit strength.
func (r *LEDRing) Sample(dx, dy, dz float64) ([3]float64, bool) {
	return r.Radiance(dx, dy, dz, 1), true
}

func normalize3(x, y, z float64) (float64, float64, float64) {
	l := math.Sqrt(x*x + y*y + z*z)
	if l == 0 {
		return 0, 0, 1
	}
	return x / l, y / l, z / l
}
