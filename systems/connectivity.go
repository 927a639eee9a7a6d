package systems

// Detachment severity reaches zero at this blob size.
const severityBlobSize = 10

// Components is a union-find partition over particle indices, rebuilt every
// sub-step. Union is by size with path compression.
type Components struct {
	parent []int
	size   []int
	root   []int

	mainRoot int // -1 when no unique largest component exists
	count    int
}

// NewComponents allocates a partition for n particles, each in its own set.
func NewComponents(n int) Components {
	c := Components{
		parent: make([]int, n),
		size:   make([]int, n),
		root:   make([]int, n),
	}
	c.Reset()
	return c
}

// Len returns the number of particles covered.
func (c *Components) Len() int { return len(c.parent) }

// Reset puts every particle back in its own singleton set.
func (c *Components) Reset() {
	for i := range c.parent {
		c.parent[i] = i
		c.size[i] = 1
		c.root[i] = i
	}
	c.mainRoot = -1
	c.count = len(c.parent)
}

// Find returns the representative of i's set, compressing the path.
func (c *Components) Find(i int) int {
	r := i
	for c.parent[r] != r {
		r = c.parent[r]
	}
	for c.parent[i] != i {
		next := c.parent[i]
		c.parent[i] = r
		i = next
	}
	return r
}

// Union merges the sets containing a and b.
func (c *Components) Union(a, b int) {
	ra := c.Find(a)
	rb := c.Find(b)
	if ra == rb {
		return
	}
	if c.size[ra] < c.size[rb] {
		ra, rb = rb, ra
	}
	c.parent[rb] = ra
	c.size[ra] += c.size[rb]
}

// Resolve finalizes roots for every particle and picks the main body. The
// main body is the unique largest component; when several tie for largest
// there is none and every component is scored as detached.
func (c *Components) Resolve() {
	c.mainRoot = -1
	c.count = 0
	best := 0
	tied := false
	for i := range c.parent {
		r := c.Find(i)
		c.root[i] = r
		if r != i {
			continue
		}
		c.count++
		switch s := c.size[r]; {
		case s > best:
			best = s
			c.mainRoot = r
			tied = false
		case s == best:
			tied = true
		}
	}
	if tied {
		c.mainRoot = -1
	}
}

// Root returns the resolved root of i. Valid after Resolve.
func (c *Components) Root(i int) int { return c.root[i] }

// Size returns the size of the component containing i. Valid after Resolve.
func (c *Components) Size(i int) int { return c.size[c.root[i]] }

// Count returns the number of components. Valid after Resolve.
func (c *Components) Count() int { return c.count }

// MainRoot returns the main body root and whether one exists.
func (c *Components) MainRoot() (int, bool) {
	return c.mainRoot, c.mainRoot >= 0
}

// MainSize returns the particle count of the main body, or 0.
func (c *Components) MainSize() int {
	if c.mainRoot < 0 {
		return 0
	}
	return c.size[c.mainRoot]
}

// Severity returns the detachment severity of particle i:
// 0 for the main body, otherwise clamp((10 - size)/10, 0, 1).
func (c *Components) Severity(i int) float64 {
	r := c.root[i]
	if r == c.mainRoot {
		return 0
	}
	return clamp01(float64(severityBlobSize-c.size[r]) / severityBlobSize)
}
