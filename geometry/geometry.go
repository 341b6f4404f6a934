// Package geometry holds the bounding volume math used by visibility: half space planes, oriented
// boxes (paralgrams) and spheres. Everything here is pure and allocation free.
package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"
)

// ErrDegenerate is returned for zero length normals or axes. NaN never leaves this package.
var ErrDegenerate = eris.New("degenerate geometry")

// epsilon bounds what counts as a zero length vector.
const epsilon = 1e-6

// Intersection classifies a volume against a half space.
type Intersection uint8

const (
	Inside Intersection = iota
	Outside
	Intersecting
)

func (i Intersection) String() string {
	switch i {
	case Inside:
		return "INSIDE"
	case Outside:
		return "OUTSIDE"
	case Intersecting:
		return "INTERSECTING"
	}
	return "UNKNOWN"
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func finite(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}

// degenerateLength reports lengths that cannot be normalized by: near zero or not finite.
func degenerateLength(l float32) bool {
	return !finite(l) || l < epsilon
}

func degenerate(v mgl32.Vec3) bool {
	return degenerateLength(v.Len())
}
