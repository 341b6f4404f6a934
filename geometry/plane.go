package geometry

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"
)

// Plane is a half space with a unit normal. A point p is outside when dot(p, Normal) + D > 0.
type Plane struct {
	normal mgl32.Vec3
	d      float32
}

// NewPlane normalizes normal and d together by the length of normal.
func NewPlane(normal mgl32.Vec3, d float32) (Plane, error) {
	if degenerate(normal) {
		return Plane{}, eris.Wrapf(ErrDegenerate, "plane normal %v has zero or non-finite length", normal)
	}
	if !finite(d) {
		return Plane{}, eris.Wrapf(ErrDegenerate, "plane distance %v is not finite", d)
	}
	inv := 1 / normal.Len()
	return Plane{normal: normal.Mul(inv), d: d * inv}, nil
}

// PlaneFromPointNormal builds the plane through point whose outside faces along normal.
func PlaneFromPointNormal(point, normal mgl32.Vec3) (Plane, error) {
	p, err := NewPlane(normal, 0)
	if err != nil {
		return Plane{}, err
	}
	p.d = -point.Dot(p.normal)
	return p, nil
}

func (p Plane) Normal() mgl32.Vec3 {
	return p.normal
}

func (p Plane) D() float32 {
	return p.d
}

// SignedDistance is positive on the outside of the plane.
func (p Plane) SignedDistance(point mgl32.Vec3) float32 {
	return point.Dot(p.normal) + p.d
}

// Classify is the point version of IntersectParalgram. Points on the plane intersect it.
func (p Plane) Classify(point mgl32.Vec3) Intersection {
	s := p.SignedDistance(point)
	switch {
	case s > 0:
		return Outside
	case s < 0:
		return Inside
	default:
		return Intersecting
	}
}

// Flip returns the complementary half space.
func (p Plane) Flip() Plane {
	return Plane{normal: p.normal.Mul(-1), d: -p.d}
}
