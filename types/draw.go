package types

import "github.com/go-gl/mathgl/mgl32"

// DrawRequest is one renderer work item. Requests are produced fresh every frame and never retained.
type DrawRequest struct {
	Primitive uint32
	Entity    EntityID
	World     mgl32.Mat4
}
