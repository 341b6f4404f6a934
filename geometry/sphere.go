package geometry

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"
)

type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

func NewSphere(center mgl32.Vec3, radius float32) (Sphere, error) {
	if radius < 0 {
		return Sphere{}, eris.Wrapf(ErrDegenerate, "negative radius %v", radius)
	}
	return Sphere{Center: center, Radius: radius}, nil
}

// BoundingSphere returns the sphere through the corners of b.
func BoundingSphere(b Paralgram) Sphere {
	r := b.Axis(0).Add(b.Axis(1)).Add(b.Axis(2)).Len()
	for _, c := range b.Corners() {
		if d := c.Sub(b.center).Len(); d > r {
			r = d
		}
	}
	return Sphere{Center: b.center, Radius: r}
}

func IntersectSphere(p Plane, s Sphere) Intersection {
	d := p.SignedDistance(s.Center)
	switch {
	case d-s.Radius > 0:
		return Outside
	case d+s.Radius < 0:
		return Inside
	default:
		return Intersecting
	}
}
