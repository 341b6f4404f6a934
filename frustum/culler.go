package frustum

import (
	"pkg.world.dev/world-engine/scene/geometry"
)

// Stats counts culling work since the last reset.
type Stats struct {
	Tests      uint64 // volumes classified
	PlaneTests uint64 // single plane evaluations
	Culled     uint64 // volumes found outside
}

// Culler classifies bounding volumes against the planes it was last handed. A culler without planes
// treats everything as inside and performs no plane tests.
type Culler struct {
	planes    Planes
	hasPlanes bool
	stats     Stats
}

func NewCuller() *Culler {
	return &Culler{}
}

func (c *Culler) SetPlanes(planes Planes) {
	c.planes = planes
	c.hasPlanes = true
}

// SetFrustum takes the planes of f if it has been derived.
func (c *Culler) SetFrustum(f *Frustum) {
	if f == nil || !f.Valid() {
		return
	}
	c.SetPlanes(f.Planes())
}

func (c *Culler) HasPlanes() bool {
	return c.hasPlanes
}

// Classify returns OUTSIDE as soon as one plane excludes the volume; the remaining planes are not
// evaluated. INSIDE means every plane contains the volume entirely.
func (c *Culler) Classify(b geometry.Paralgram) geometry.Intersection {
	c.stats.Tests++
	if !c.hasPlanes {
		return geometry.Inside
	}
	result := geometry.Inside
	for i := range c.planes {
		c.stats.PlaneTests++
		switch geometry.IntersectParalgram(c.planes[i], b) {
		case geometry.Outside:
			c.stats.Culled++
			return geometry.Outside
		case geometry.Intersecting:
			result = geometry.Intersecting
		case geometry.Inside:
		}
	}
	return result
}

// Visible reports whether no plane classifies the volume as outside.
func (c *Culler) Visible(b geometry.Paralgram) bool {
	return c.Classify(b) != geometry.Outside
}

// VisibleSphere is the sphere variant of Visible. It shares the early exit.
func (c *Culler) VisibleSphere(s geometry.Sphere) bool {
	c.stats.Tests++
	if !c.hasPlanes {
		return true
	}
	for i := range c.planes {
		c.stats.PlaneTests++
		if geometry.IntersectSphere(c.planes[i], s) == geometry.Outside {
			c.stats.Culled++
			return false
		}
	}
	return true
}

func (c *Culler) Stats() Stats {
	return c.stats
}

func (c *Culler) ResetStats() {
	c.stats = Stats{}
}
