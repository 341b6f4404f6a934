package scene

import (
	"context"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"

	"pkg.world.dev/world-engine/scene/mesh"
	"pkg.world.dev/world-engine/scene/types"
)

// Renderer receives the draw requests of every frame. It must not keep the slice past the call.
type Renderer interface {
	Render(ctx context.Context, requests []types.DrawRequest) error
}

// ViewProvider is implemented by components that own the camera. After such a component updates,
// the scene refreshes the frustum and the culler.
type ViewProvider interface {
	ActiveView() (proj, view mgl32.Mat4, ok bool)
}

// DrawSource is implemented by components that produce draw requests during Update.
type DrawSource interface {
	DrawRequests() []types.DrawRequest
}

type Option func(*Scene)

// WithLogger replaces the logger built from the environment.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scene) {
		s.logger = logger
	}
}

func WithRenderer(r Renderer) Option {
	return func(s *Scene) {
		s.renderer = r
	}
}

// WithMeshRegistry shares an existing mesh registry with the scene's built-in components.
func WithMeshRegistry(r *mesh.Registry) Option {
	return func(s *Scene) {
		s.meshes = r
	}
}

// WithRecoverableContracts makes contract violations return errors instead of panicking.
func WithRecoverableContracts() Option {
	return func(s *Scene) {
		s.recoverable = true
	}
}
