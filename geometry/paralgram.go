package geometry

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"
)

// orthoTolerance is how far from orthonormal a direction set may drift at construction.
const orthoTolerance = 1e-4

// Paralgram is an oriented bounding volume: a center plus three unit directions, each scaled by a half
// length. Directions are orthonormal when built; Transform keeps them unit length but lets them shear,
// and the plane test below is exact for the resulting parallelepiped as well.
type Paralgram struct {
	center mgl32.Vec3
	dirs   [3]mgl32.Vec3
	halves mgl32.Vec3
}

// NewCuboid builds an axis aligned box. halfExtents must be finite and not negative.
func NewCuboid(center, halfExtents mgl32.Vec3) (Paralgram, error) {
	for i := 0; i < 3; i++ {
		if !finite(halfExtents[i]) || halfExtents[i] < 0 {
			return Paralgram{}, eris.Wrapf(ErrDegenerate, "invalid half extent %v", halfExtents)
		}
	}
	return Paralgram{
		center: center,
		dirs:   [3]mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		halves: halfExtents,
	}, nil
}

// NewCuboidFromMinMax builds the axis aligned box spanning min and max.
func NewCuboidFromMinMax(minCorner, maxCorner mgl32.Vec3) (Paralgram, error) {
	center := minCorner.Add(maxCorner).Mul(0.5)
	return NewCuboid(center, maxCorner.Sub(minCorner).Mul(0.5))
}

// NewParalgram builds an oriented box. dirs must be orthonormal.
func NewParalgram(center mgl32.Vec3, dirs [3]mgl32.Vec3, halves mgl32.Vec3) (Paralgram, error) {
	for i := 0; i < 3; i++ {
		if l := dirs[i].Len(); !finite(l) || abs32(l-1) > orthoTolerance {
			return Paralgram{}, eris.Wrapf(ErrDegenerate, "direction %d is not unit length", i)
		}
		if !finite(halves[i]) || halves[i] < 0 {
			return Paralgram{}, eris.Wrapf(ErrDegenerate, "invalid half length %v on axis %d", halves[i], i)
		}
		for j := i + 1; j < 3; j++ {
			if abs32(dirs[i].Dot(dirs[j])) > orthoTolerance {
				return Paralgram{}, eris.Wrapf(ErrDegenerate, "directions %d and %d are not orthogonal", i, j)
			}
		}
	}
	return Paralgram{center: center, dirs: dirs, halves: halves}, nil
}

func (b Paralgram) Center() mgl32.Vec3 {
	return b.center
}

// Direction returns the unit direction of axis i.
func (b Paralgram) Direction(i int) mgl32.Vec3 {
	return b.dirs[i]
}

func (b Paralgram) HalfLength(i int) float32 {
	return b.halves[i]
}

// Axis returns direction i scaled by its half length.
func (b Paralgram) Axis(i int) mgl32.Vec3 {
	return b.dirs[i].Mul(b.halves[i])
}

// Corners returns the eight corners of the volume.
func (b Paralgram) Corners() [8]mgl32.Vec3 {
	var out [8]mgl32.Vec3
	a0, a1, a2 := b.Axis(0), b.Axis(1), b.Axis(2)
	for i := 0; i < 8; i++ {
		c := b.center
		if i&1 == 0 {
			c = c.Sub(a0)
		} else {
			c = c.Add(a0)
		}
		if i&2 == 0 {
			c = c.Sub(a1)
		} else {
			c = c.Add(a1)
		}
		if i&4 == 0 {
			c = c.Sub(a2)
		} else {
			c = c.Add(a2)
		}
		out[i] = c
	}
	return out
}

// Transform maps the volume through m. Each axis is pushed through m and renormalized so the result
// carries a fresh unit direction and half length; repeated transforms never accumulate scale in the
// directions. Zero length axes transform their unit direction instead so they keep an orientation.
func (b Paralgram) Transform(m mgl32.Mat4) (Paralgram, error) {
	out := Paralgram{center: mgl32.TransformCoordinate(b.center, m)}
	for i := 0; i < 3; i++ {
		scaled := b.halves[i] > 0
		v := b.dirs[i]
		if scaled {
			v = v.Mul(b.halves[i])
		}
		v = mgl32.TransformNormal(v, m)
		length := v.Len()
		if degenerateLength(length) {
			if scaled {
				return Paralgram{}, eris.Wrapf(ErrDegenerate, "axis %d collapsed under transform", i)
			}
			return Paralgram{}, eris.Wrapf(ErrDegenerate, "direction %d collapsed under transform", i)
		}
		out.dirs[i] = v.Mul(1 / length)
		if scaled {
			out.halves[i] = length
		}
	}
	return out, nil
}

// IntersectParalgram classifies the volume against one plane: the three scaled axes are projected
// onto the normal and summed into an extent e, and the center's signed distance s decides the
// result. OUTSIDE when s-e > 0, INSIDE when s+e < 0, else INTERSECTING.
func IntersectParalgram(p Plane, b Paralgram) Intersection {
	e := abs32(b.Axis(0).Dot(p.normal)) + abs32(b.Axis(1).Dot(p.normal)) + abs32(b.Axis(2).Dot(p.normal))
	s := p.SignedDistance(b.center)
	switch {
	case s-e > 0:
		return Outside
	case s+e < 0:
		return Inside
	default:
		return Intersecting
	}
}
