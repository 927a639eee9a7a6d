// Package renderer shades the density field into a lit RGBA fluid layer.
package renderer

import "math"

// Exposure range accepted by ToneMap.
const (
	MinExposure = 0.6
	MaxExposure = 1.8
)

// CompressHighlight rolls values off exponentially toward 255.
func CompressHighlight(v, exposure float64) float64 {
	return 255 * (1 - math.Exp(-(math.Max(0, v)/255)*exposure))
}

// ApplyContrast scales v around mid-grey.
func ApplyContrast(v, contrast float64) float64 {
	return (v-127.5)*contrast + 127.5
}

// ToneMap applies the ACES filmic curve to a channel value on the 0..255
// scale. The result is in [0, 255] for every finite input and ToneMap(0) is 0.
func ToneMap(v, exposure float64) float64 {
	exposure = clamp(exposure, MinExposure, MaxExposure)
	x := math.Max(0, v/255*exposure)
	if math.IsInf(x, 1) {
		return 255
	}
	mapped := (x * (2.51*x + 0.03)) / (x*(2.43*x+0.59) + 0.14)
	if math.IsNaN(mapped) {
		return 255
	}
	return clamp(mapped*255, 0, 255)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 { return clamp(v, 0, 1) }

func smoothstep(edge0, edge1, x float64) float64 {
	if edge0 == edge1 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := clamp01((x - edge0) / (edge1 - edge0))
	return t * t * (3 - 2*t)
}

func powPos(base, exp float64) float64 {
	if base <= 0 {
		return 0
	}
	return math.Pow(base, exp)
}
