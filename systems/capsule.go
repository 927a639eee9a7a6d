package systems

import "math"

// Capsule proportions relative to the short side of the viewport.
const (
	capsuleRadiusX  = 0.325
	capsuleRadiusY  = 0.44375
	capsuleCenterY  = 0.53
	minCapsuleScale = 0.75
	maxCapsuleScale = 1.35

	MinRoundness = 2.2
	MaxRoundness = 7.0

	// Inward padding and extra clearance under the lid, as fractions of Scale.
	boundaryPadding  = 0.03
	topClearance     = 0.1
	minBoundaryAxis  = 10.0
	boundaryEpsilon  = 1e-9
	normalOverDamp   = 1.55
	collisionDamping = 0.9
)

// Capsule is the superellipse container. Positions are in viewport pixels.
type Capsule struct {
	CX, CY    float64
	RX, RY    float64
	Roundness float64
	// Scale is min(RX, RY); every length in the simulation is proportional to it.
	Scale float64
}

// NewCapsule lays out the capsule for a viewport of the given size.
// widthFactor and heightFactor are clamped to [0.75, 1.35].
func NewCapsule(viewW, viewH, widthFactor, heightFactor, roundness float64) Capsule {
	side := math.Max(1, math.Min(viewW, viewH))
	rx := side * capsuleRadiusX * clamp(widthFactor, minCapsuleScale, maxCapsuleScale)
	ry := side * capsuleRadiusY * clamp(heightFactor, minCapsuleScale, maxCapsuleScale)
	return Capsule{
		CX:        viewW * 0.5,
		CY:        viewH * capsuleCenterY,
		RX:        rx,
		RY:        ry,
		Roundness: roundness,
		Scale:     math.Min(rx, ry),
	}
}

// axes returns the padded radii and clamped exponent that apply at local y offset ly.
// The upper half has extra clearance.
func (c Capsule) axes(ly float64) (rx, ry, p float64) {
	padding := c.Scale * boundaryPadding
	rx = math.Max(minBoundaryAxis, c.RX-padding)
	if ly < 0 {
		ry = math.Max(minBoundaryAxis, c.RY-(padding+c.Scale*topClearance))
	} else {
		ry = math.Max(minBoundaryAxis, c.RY-padding)
	}
	return rx, ry, clamp(c.Roundness, MinRoundness, MaxRoundness)
}

// Value evaluates |nx|^p + |ny|^p at (x, y) against the padded boundary.
// Values above 1 are outside.
func (c Capsule) Value(x, y float64) float64 {
	lx := x - c.CX
	ly := y - c.CY
	rx, ry, p := c.axes(ly)
	return math.Pow(math.Abs(lx/rx), p) + math.Pow(math.Abs(ly/ry), p)
}

// Contains reports whether (x, y) lies inside the padded boundary.
func (c Capsule) Contains(x, y float64) bool {
	return c.Value(x, y) <= 1+boundaryEpsilon
}

// Constrain projects a point outside the boundary back onto it and removes
// the outward velocity along the boundary normal. It reports whether the point
// was moved. Points already inside are left untouched.
func (c Capsule) Constrain(x, y, vx, vy *float64) bool {
	lx := *x - c.CX
	ly := *y - c.CY
	rx, ry, p := c.axes(ly)

	nx := lx / rx
	ny := ly / ry
	value := math.Pow(math.Abs(nx), p) + math.Pow(math.Abs(ny), p)
	if value <= 1+boundaryEpsilon {
		return false
	}

	inv := 1 / math.Pow(value, 1/p)
	bx := nx * inv
	by := ny * inv
	*x = c.CX + bx*rx
	*y = c.CY + by*ry

	// Gradient of the superellipse at the projected point.
	gx := sign(bx) * math.Pow(math.Abs(bx), p-1) / math.Max(1, rx)
	gy := sign(by) * math.Pow(math.Abs(by), p-1) / math.Max(1, ry)
	gl := math.Hypot(gx, gy)
	if gl == 0 {
		gl = 1
	}
	normalX := gx / gl
	normalY := gy / gl

	outward := *vx*normalX + *vy*normalY
	if outward > 0 {
		*vx -= outward * normalX * normalOverDamp
		*vy -= outward * normalY * normalOverDamp
	}
	*vx *= collisionDamping
	*vy *= collisionDamping
	return true
}

// Rescaled maps a point from capsule c into capsule next, keeping its offset
// proportional to the radii.
func (c Capsule) Rescaled(next Capsule, x, y float64) (float64, float64) {
	sx := next.RX / math.Max(1e-6, c.RX)
	sy := next.RY / math.Max(1e-6, c.RY)
	return next.CX + (x-c.CX)*sx, next.CY + (y-c.CY)*sy
}

// OutlinePoint returns the point on the unpadded container wall at angle
// theta, for drawing the shell.
func (c Capsule) OutlinePoint(theta float64) (x, y float64) {
	e := 2 / clamp(c.Roundness, MinRoundness, MaxRoundness)
	cos, sin := math.Cos(theta), math.Sin(theta)
	x = c.CX + c.RX*sign(cos)*math.Pow(math.Abs(cos), e)
	y = c.CY + c.RY*sign(sin)*math.Pow(math.Abs(sin), e)
	return x, y
}
