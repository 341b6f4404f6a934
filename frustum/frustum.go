// Package frustum derives the six view frustum planes from camera matrices and tests bounding
// volumes against them.
package frustum

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/scene/geometry"
)

// PlaneID indexes the frustum planes. The order is also the test order used by the culler.
type PlaneID int

const (
	Left PlaneID = iota
	Right
	Top
	Bottom
	Near // back
	Far  // front
	PlaneCount
)

var planeNames = [PlaneCount]string{"LEFT", "RIGHT", "TOP", "BOTTOM", "NEAR", "FAR"}

func (p PlaneID) String() string {
	if p < 0 || p >= PlaneCount {
		return "UNKNOWN"
	}
	return planeNames[p]
}

// Planes is the full plane set, indexed by PlaneID. Every normal faces out of the frustum.
type Planes [PlaneCount]geometry.Plane

// Frustum holds the world space planes for the current projection and view matrices.
type Frustum struct {
	planes Planes
	proj   mgl32.Mat4
	view   mgl32.Mat4
	valid  bool
}

func New() *Frustum {
	return &Frustum{}
}

// FromMatrices builds a frustum for the given camera matrices.
func FromMatrices(proj, view mgl32.Mat4) (*Frustum, error) {
	f := New()
	if _, err := f.Update(proj, view); err != nil {
		return nil, err
	}
	return f, nil
}

// Update recomputes the planes when either matrix differs from the last successful update and
// reports whether it did.
func (f *Frustum) Update(proj, view mgl32.Mat4) (bool, error) {
	if f.valid && proj == f.proj && view == f.view {
		return false, nil
	}
	planes, err := extractPlanes(proj.Mul4(view))
	if err != nil {
		return false, err
	}
	f.planes = planes
	f.proj = proj
	f.view = view
	f.valid = true
	return true, nil
}

// Valid reports whether the frustum has been derived from camera matrices yet.
func (f *Frustum) Valid() bool {
	return f.valid
}

func (f *Frustum) Planes() Planes {
	return f.planes
}

// SetPlanes overrides the derived planes, e.g. for a custom clip volume. The next Update with new
// matrices replaces them again.
func (f *Frustum) SetPlanes(planes Planes) {
	f.planes = planes
	f.valid = true
}

func (f *Frustum) Plane(id PlaneID) geometry.Plane {
	return f.planes[id]
}

// extractPlanes combines the rows of the clip matrix (Gribb-Hartmann). A clip space point is inside
// when -w <= x,y,z <= w, so e.g. the left plane keeps row3+row0 >= 0 and its outward form is the
// negation of that row sum.
func extractPlanes(clip mgl32.Mat4) (Planes, error) {
	r0, r1, r2, r3 := clip.Row(0), clip.Row(1), clip.Row(2), clip.Row(3)
	rows := [PlaneCount]mgl32.Vec4{
		Left:   r3.Add(r0).Mul(-1),
		Right:  r0.Sub(r3),
		Top:    r1.Sub(r3),
		Bottom: r3.Add(r1).Mul(-1),
		Near:   r3.Add(r2).Mul(-1),
		Far:    r2.Sub(r3),
	}
	var planes Planes
	for i, row := range rows {
		p, err := geometry.NewPlane(row.Vec3(), row.W())
		if err != nil {
			return Planes{}, eris.Wrapf(err, "failed to derive %s plane", PlaneID(i))
		}
		planes[i] = p
	}
	return planes, nil
}
