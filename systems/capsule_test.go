package systems

import (
	"math"
	"math/rand"
	"testing"
)

func TestNewCapsuleLayout(t *testing.T) {
	c := NewCapsule(1000, 800, 1, 1, 3.35)
	if c.CX != 500 || math.Abs(c.CY-424) > 1e-9 {
		t.Errorf("expected centre (500, 424), got (%f, %f)", c.CX, c.CY)
	}
	if math.Abs(c.RX-260) > 1e-9 || math.Abs(c.RY-355) > 1e-9 {
		t.Errorf("expected radii (260, 355), got (%f, %f)", c.RX, c.RY)
	}
	if c.Scale != c.RX {
		t.Errorf("expected scale = min(rx, ry) = %f, got %f", c.RX, c.Scale)
	}

	// Shape factors are clamped
	wide := NewCapsule(1000, 800, 9, 0.1, 3.35)
	if math.Abs(wide.RX-800*capsuleRadiusX*maxCapsuleScale) > 1e-9 {
		t.Errorf("width factor not clamped: rx=%f", wide.RX)
	}
	if math.Abs(wide.RY-800*capsuleRadiusY*minCapsuleScale) > 1e-9 {
		t.Errorf("height factor not clamped: ry=%f", wide.RY)
	}
}

func TestConstrainProjectsInside(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, roundness := range []float64{1, 2.2, 3.35, 5, 7, 12} {
		c := NewCapsule(900, 700, 1, 1, roundness)
		for i := 0; i < 500; i++ {
			x := c.CX + (rng.Float64()*2-1)*c.RX*2
			y := c.CY + (rng.Float64()*2-1)*c.RY*2
			vx := (rng.Float64()*2 - 1) * 300
			vy := (rng.Float64()*2 - 1) * 300
			c.Constrain(&x, &y, &vx, &vy)
			if v := c.Value(x, y); v > 1+1e-6 {
				t.Fatalf("roundness %.2f: point (%f, %f) still outside, value=%f", roundness, x, y, v)
			}
		}
	}
}

func TestConstrainIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	c := NewCapsule(1280, 800, 1.1, 0.9, 4)
	for i := 0; i < 500; i++ {
		x := c.CX + (rng.Float64()*2-1)*c.RX*1.8
		y := c.CY + (rng.Float64()*2-1)*c.RY*1.8
		vx := (rng.Float64()*2 - 1) * 200
		vy := (rng.Float64()*2 - 1) * 200
		c.Constrain(&x, &y, &vx, &vy)

		x2, y2, vx2, vy2 := x, y, vx, vy
		if moved := c.Constrain(&x2, &y2, &vx2, &vy2); moved {
			t.Fatalf("second constrain moved a valid point at (%f, %f)", x, y)
		}
		if x2 != x || y2 != y || vx2 != vx || vy2 != vy {
			t.Fatalf("second constrain changed state: (%f,%f,%f,%f) -> (%f,%f,%f,%f)",
				x, y, vx, vy, x2, y2, vx2, vy2)
		}
	}
}

func TestConstrainRemovesOutwardVelocity(t *testing.T) {
	c := Capsule{CX: 0, CY: 0, RX: 100, RY: 100, Roundness: 4, Scale: 100}
	x, y := 150.0, 0.0
	vx, vy := 50.0, 0.0
	if !c.Constrain(&x, &y, &vx, &vy) {
		t.Fatal("expected point outside the boundary to be constrained")
	}
	if vx >= 0 {
		t.Errorf("expected outward velocity reversed by over-damping, got vx=%f", vx)
	}
	// (1 - 1.55) · 50 · 0.9
	if want := -0.55 * 50 * 0.9; math.Abs(vx-want) > 1e-9 {
		t.Errorf("expected vx=%f, got %f", want, vx)
	}
}

func TestCapsuleTopClearance(t *testing.T) {
	c := Capsule{CX: 0, CY: 0, RX: 300, RY: 300, Roundness: 4, Scale: 300}
	// The lid is lower than the floor
	if c.Contains(0, -295) {
		t.Error("expected point near the lid to be outside after top clearance")
	}
	if !c.Contains(0, 285) {
		t.Error("expected point near the floor to be inside")
	}
}

func TestOutlinePointOnWall(t *testing.T) {
	c := NewCapsule(1000, 800, 1, 1, 3.35)
	for i := 0; i < 16; i++ {
		theta := float64(i) / 16 * 2 * math.Pi
		x, y := c.OutlinePoint(theta)
		v := math.Pow(math.Abs((x-c.CX)/c.RX), c.Roundness) + math.Pow(math.Abs((y-c.CY)/c.RY), c.Roundness)
		if math.Abs(v-1) > 1e-9 {
			t.Errorf("theta %.2f: expected a point on the wall, got value %f", theta, v)
		}
	}
}
