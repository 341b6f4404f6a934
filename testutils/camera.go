package testutils

import (
	"github.com/go-gl/mathgl/mgl32"

	"pkg.world.dev/world-engine/scene/frustum"
)

// LookForward returns the matrices of a 90 degree, square camera at the origin looking down -Z
// with near and far planes at 1 and 10.
func LookForward() (proj, view mgl32.Mat4) {
	proj = mgl32.Perspective(mgl32.DegToRad(90), 1, 1, 10)
	view = mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	return proj, view
}

// ForwardCuller returns a culler over the LookForward frustum.
func ForwardCuller() *frustum.Culler {
	f, err := frustum.FromMatrices(LookForward())
	if err != nil {
		panic(err)
	}
	c := frustum.NewCuller()
	c.SetFrustum(f)
	return c
}
