// Package modeldraw implements the ModelDraw component. Every frame it culls the bounding volume
// of each drawable entity against the view frustum and emits one draw request per primitive of the
// visible meshes.
package modeldraw

import (
	"context"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/scene/codec"
	"pkg.world.dev/world-engine/scene/component"
	"pkg.world.dev/world-engine/scene/frustum"
	"pkg.world.dev/world-engine/scene/geometry"
	"pkg.world.dev/world-engine/scene/types"
)

const Name = "ModelDraw"

// InputVisibility toggles the ShouldDraw flag through a VisibilityInput.
const InputVisibility = "visibility"

// TransformSource provides the world matrix of an entity for the current frame.
type TransformSource interface {
	WorldMatrix(id types.EntityID) (mgl32.Mat4, bool)
}

// MeshSource provides local bounds and primitive ranges by mesh index.
type MeshSource interface {
	Bounds(meshIndex int) (geometry.Paralgram, bool)
	PrimitiveRange(meshIndex int) (first, last uint32, ok bool)
}

// Init is the initializer of a drawable entity. ShouldDraw defaults to 1.
type Init struct {
	MeshIndex  int64  `json:"MeshIndex"`
	ShouldDraw *int64 `json:"ShouldDraw,omitempty"`
}

type Model struct {
	MeshIndex  int
	ShouldDraw bool
}

type VisibilityInput struct {
	Entity     types.EntityID
	ShouldDraw bool
}

type Component struct {
	*component.Store[Model]

	transforms TransformSource
	meshes     MeshSource
	culler     *frustum.Culler

	requests []types.DrawRequest

	mu     sync.Mutex
	inputs []VisibilityInput
}

// New creates the component. A nil culler disables culling; a nil transform source places every
// entity at the origin.
func New(ctx component.Context, transforms TransformSource, meshes MeshSource, culler *frustum.Culler) *Component {
	c := &Component{transforms: transforms, meshes: meshes, culler: culler}
	c.Store = component.NewStore[Model](ctx, Name, component.MustSchema[Init](), initialize)
	return c
}

func initialize(_ types.EntityID, init types.InitMap) (Model, error) {
	in, err := codec.DecodeInit[Init](init)
	if err != nil {
		return Model{}, err
	}
	if in.MeshIndex < 0 {
		return Model{}, eris.Errorf("negative mesh index %d", in.MeshIndex)
	}
	return Model{
		MeshIndex:  int(in.MeshIndex),
		ShouldDraw: in.ShouldDraw == nil || *in.ShouldDraw != 0,
	}, nil
}

// NewUpdateSession drops the previous frame's draw requests.
func (c *Component) NewUpdateSession() {
	c.requests = nil
}

// Update generates this frame's draw requests in insertion order. It must run after the transform
// component has updated.
func (c *Component) Update(context.Context) error {
	c.applyInputs()

	c.Each(func(id types.EntityID, m *Model) bool {
		if !m.ShouldDraw {
			return true
		}
		c.draw(id, m)
		return true
	})
	return nil
}

func (c *Component) draw(id types.EntityID, m *Model) {
	world := mgl32.Ident4()
	if c.transforms != nil {
		if w, ok := c.transforms.WorldMatrix(id); ok {
			world = w
		}
	}

	bounds, ok := c.meshes.Bounds(m.MeshIndex)
	first, last, rangeOK := c.meshes.PrimitiveRange(m.MeshIndex)
	if !ok || !rangeOK {
		c.Logger().Warn().
			Uint32("entity", uint32(id)).
			Int("mesh_index", m.MeshIndex).
			Msg("mesh is not registered, skipping")
		return
	}

	box, err := bounds.Transform(world)
	if err != nil {
		c.Logger().Warn().Err(err).Uint32("entity", uint32(id)).Msg("degenerate world transform, skipping")
		return
	}
	if c.culler != nil && !c.culler.Visible(box) {
		return
	}

	for p := first; p < last; p++ {
		c.requests = append(c.requests, types.DrawRequest{Primitive: p, Entity: id, World: world})
	}
}

func (c *Component) applyInputs() {
	c.mu.Lock()
	inputs := c.inputs
	c.inputs = nil
	c.mu.Unlock()

	for _, in := range inputs {
		if err := c.SetShouldDraw(in.Entity, in.ShouldDraw); err != nil {
			c.Logger().Warn().Err(err).Msg("dropping visibility input")
		}
	}
}

// DrawRequests returns the requests generated by the last Update. The slice belongs to the frame
// and is replaced, not reused, by the next session.
func (c *Component) DrawRequests() []types.DrawRequest {
	return c.requests
}

func (c *Component) SetShouldDraw(id types.EntityID, draw bool) error {
	m, ok := c.Get(id)
	if !ok {
		return eris.Wrapf(component.ErrNoInstance, "entity %s", id)
	}
	m.ShouldDraw = draw
	return nil
}

func (c *Component) AsyncInput(kind string, payload any) {
	in, ok := payload.(VisibilityInput)
	if kind != InputVisibility || !ok {
		c.Logger().Warn().Str("kind", kind).Type("payload", payload).Msg("dropping unsupported async input")
		return
	}
	c.mu.Lock()
	c.inputs = append(c.inputs, in)
	c.mu.Unlock()
}
