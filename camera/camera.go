// Package camera implements the Camera component, which turns the world transform of a camera
// entity into the projection and view matrices the frustum is derived from.
package camera

import (
	"context"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/scene/codec"
	"pkg.world.dev/world-engine/scene/component"
	"pkg.world.dev/world-engine/scene/types"
)

const Name = "Camera"

// InputActivate makes the camera of an ActivateInput the only active one.
const InputActivate = "activate"

var ErrInvalidCamera = eris.New("invalid camera parameters")

// TransformSource provides world matrices for camera entities.
type TransformSource interface {
	WorldMatrix(id types.EntityID) (mgl32.Mat4, bool)
}

// Init is the initializer of a camera entity. Fov is the vertical field of view in degrees.
type Init struct {
	Fov    *float64 `json:"Fov,omitempty"`
	Aspect *float64 `json:"Aspect,omitempty"`
	Near   *float64 `json:"Near,omitempty"`
	Far    *float64 `json:"Far,omitempty"`
	Active *int64   `json:"Active,omitempty"`
}

type Camera struct {
	Fov    float32
	Aspect float32
	Near   float32
	Far    float32
	Active bool
}

func (c Camera) validate() error {
	switch {
	case c.Fov <= 0 || c.Fov >= 180:
		return eris.Wrapf(ErrInvalidCamera, "fov %v must be in (0, 180)", c.Fov)
	case c.Aspect <= 0:
		return eris.Wrapf(ErrInvalidCamera, "aspect %v must be positive", c.Aspect)
	case c.Near <= 0 || c.Far <= c.Near:
		return eris.Wrapf(ErrInvalidCamera, "near %v and far %v must satisfy 0 < near < far", c.Near, c.Far)
	}
	return nil
}

// Projection returns the perspective projection of the camera.
func (c Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.Fov), c.Aspect, c.Near, c.Far)
}

type ActivateInput struct {
	Entity types.EntityID
}

type Component struct {
	*component.Store[Camera]
	transforms TransformSource

	proj   mgl32.Mat4
	view   mgl32.Mat4
	active types.EntityID

	mu     sync.Mutex
	inputs []ActivateInput
}

func New(ctx component.Context, transforms TransformSource) *Component {
	c := &Component{transforms: transforms, active: types.NoEntity}
	c.Store = component.NewStore[Camera](ctx, Name, component.MustSchema[Init](), initialize)
	return c
}

func initialize(_ types.EntityID, init types.InitMap) (Camera, error) {
	in, err := codec.DecodeInit[Init](init)
	if err != nil {
		return Camera{}, err
	}
	or := func(v *float64, def float32) float32 {
		if v == nil {
			return def
		}
		return float32(*v)
	}
	cam := Camera{
		Fov:    or(in.Fov, 60),
		Aspect: or(in.Aspect, 1),
		Near:   or(in.Near, 0.1),
		Far:    or(in.Far, 1000),
		Active: in.Active == nil || *in.Active != 0,
	}
	if err := cam.validate(); err != nil {
		return Camera{}, err
	}
	return cam, nil
}

// Update picks the first active camera in insertion order and caches its matrices. The view matrix
// is the inverse of the camera entity's world transform; an entity without a transform sits at the
// origin looking down -Z.
func (c *Component) Update(context.Context) error {
	c.mu.Lock()
	inputs := c.inputs
	c.inputs = nil
	c.mu.Unlock()

	for _, in := range inputs {
		if !c.Has(in.Entity) {
			c.Logger().Warn().Uint32("entity", uint32(in.Entity)).Msg("activate input for entity without camera")
			continue
		}
		c.Each(func(id types.EntityID, cam *Camera) bool {
			cam.Active = id == in.Entity
			return true
		})
	}

	c.active = types.NoEntity
	c.Each(func(id types.EntityID, cam *Camera) bool {
		if !cam.Active {
			return true
		}
		world := mgl32.Ident4()
		if c.transforms != nil {
			if m, ok := c.transforms.WorldMatrix(id); ok {
				world = m
			}
		}
		c.proj = cam.Projection()
		c.view = world.Inv()
		c.active = id
		return false
	})
	return nil
}

// ActiveView returns the matrices of the active camera as of the last Update.
func (c *Component) ActiveView() (mgl32.Mat4, mgl32.Mat4, bool) {
	if c.active == types.NoEntity || !c.Has(c.active) {
		return mgl32.Mat4{}, mgl32.Mat4{}, false
	}
	return c.proj, c.view, true
}

// ActiveCamera returns the entity of the active camera as of the last Update.
func (c *Component) ActiveCamera() (types.EntityID, bool) {
	return c.active, c.active != types.NoEntity && c.Has(c.active)
}

// SetActive sets the active flag of one camera without touching the others.
func (c *Component) SetActive(id types.EntityID, active bool) error {
	cam, ok := c.Get(id)
	if !ok {
		return eris.Wrapf(component.ErrNoInstance, "entity %s", id)
	}
	cam.Active = active
	return nil
}

func (c *Component) AsyncInput(kind string, payload any) {
	in, ok := payload.(ActivateInput)
	if kind != InputActivate || !ok {
		c.Logger().Warn().Str("kind", kind).Type("payload", payload).Msg("dropping unsupported async input")
		return
	}
	c.mu.Lock()
	c.inputs = append(c.inputs, in)
	c.mu.Unlock()
}
