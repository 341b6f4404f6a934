// Package transform implements the NodeTransform component: a local translation, rotation and
// scale per entity, composed through the entity hierarchy into world matrices.
package transform

import (
	"context"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/scene/codec"
	"pkg.world.dev/world-engine/scene/component"
	"pkg.world.dev/world-engine/scene/types"
)

const Name = "NodeTransform"

// InputTranslate is the async input kind carrying a TranslateInput.
const InputTranslate = "translate"

// Init is the initializer of a transform entity. Rotations are Euler angles in degrees applied in
// X, Y, Z order. Every field is optional; scale defaults to 1.
type Init struct {
	PosX   float64  `json:"PosX,omitempty"`
	PosY   float64  `json:"PosY,omitempty"`
	PosZ   float64  `json:"PosZ,omitempty"`
	RotX   float64  `json:"RotX,omitempty"`
	RotY   float64  `json:"RotY,omitempty"`
	RotZ   float64  `json:"RotZ,omitempty"`
	ScaleX *float64 `json:"ScaleX,omitempty"`
	ScaleY *float64 `json:"ScaleY,omitempty"`
	ScaleZ *float64 `json:"ScaleZ,omitempty"`
}

// Local is the transform of an entity relative to its parent.
type Local struct {
	Position mgl32.Vec3
	Rotation mgl32.Vec3 // degrees
	Scale    mgl32.Vec3
}

// Identity is the local transform that leaves its entity where its parent is.
func Identity() Local {
	return Local{Scale: mgl32.Vec3{1, 1, 1}}
}

// Matrix returns translation * rotZ * rotY * rotX * scale.
func (l Local) Matrix() mgl32.Mat4 {
	rot := mgl32.HomogRotate3DZ(mgl32.DegToRad(l.Rotation.Z())).
		Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(l.Rotation.Y()))).
		Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(l.Rotation.X())))
	return mgl32.Translate3D(l.Position.X(), l.Position.Y(), l.Position.Z()).
		Mul4(rot).
		Mul4(mgl32.Scale3D(l.Scale.X(), l.Scale.Y(), l.Scale.Z()))
}

// TranslateInput moves an entity by Delta in its parent's space.
type TranslateInput struct {
	Entity types.EntityID
	Delta  mgl32.Vec3
}

type node struct {
	local Local
	world mgl32.Mat4
	stamp uint64 // session the world matrix was computed in
}

type Component struct {
	*component.Store[node]

	session   uint64
	hierarchy uint64 // entities hierarchy version the memo was built against

	mu     sync.Mutex
	inputs []TranslateInput
}

func New(ctx component.Context) *Component {
	c := &Component{session: 1}
	c.Store = component.NewStore[node](ctx, Name, component.MustSchema[Init](), c.initialize)
	return c
}

func (c *Component) initialize(_ types.EntityID, init types.InitMap) (node, error) {
	in, err := codec.DecodeInit[Init](init)
	if err != nil {
		return node{}, err
	}
	scale := func(v *float64) float32 {
		if v == nil {
			return 1
		}
		return float32(*v)
	}
	return node{local: Local{
		Position: mgl32.Vec3{float32(in.PosX), float32(in.PosY), float32(in.PosZ)},
		Rotation: mgl32.Vec3{float32(in.RotX), float32(in.RotY), float32(in.RotZ)},
		Scale:    mgl32.Vec3{scale(in.ScaleX), scale(in.ScaleY), scale(in.ScaleZ)},
	}}, nil
}

// NewUpdateSession invalidates every memoized world matrix.
func (c *Component) NewUpdateSession() {
	c.session++
}

// Update applies queued input and computes the world matrix of every entity, parents first.
func (c *Component) Update(context.Context) error {
	c.mu.Lock()
	inputs := c.inputs
	c.inputs = nil
	c.mu.Unlock()

	for _, in := range inputs {
		n, ok := c.Get(in.Entity)
		if !ok {
			c.Logger().Warn().Uint32("entity", uint32(in.Entity)).Msg("translate input for entity without transform")
			continue
		}
		n.local.Position = n.local.Position.Add(in.Delta)
	}
	if len(inputs) > 0 {
		c.session++
	}
	c.syncHierarchy()

	c.Each(func(id types.EntityID, _ *node) bool {
		c.world(id)
		return true
	})
	return nil
}

// syncHierarchy starts a new session when an entity was reparented since the memo was built.
func (c *Component) syncHierarchy() {
	if v := c.Entities().HierarchyVersion(); v != c.hierarchy {
		c.hierarchy = v
		c.session++
	}
}

// world returns the memoized world matrix of id, computing it and its ancestors when stale. Parents
// without a transform are skipped, so the nearest transformed ancestor is used.
func (c *Component) world(id types.EntityID) mgl32.Mat4 {
	n, ok := c.Get(id)
	if !ok {
		return mgl32.Ident4()
	}
	if n.stamp == c.session {
		return n.world
	}

	parentWorld := mgl32.Ident4()
	entities := c.Entities()
	for p, ok := entities.GetParentOfEntity(id); ok && p != types.NoEntity; p, ok = entities.GetParentOfEntity(p) {
		if c.Has(p) {
			parentWorld = c.world(p)
			break
		}
	}

	n.world = parentWorld.Mul4(n.local.Matrix())
	n.stamp = c.session
	return n.world
}

// WorldMatrix returns the world matrix of id. It reflects SetLocal and reparenting immediately,
// without waiting for the next Update.
func (c *Component) WorldMatrix(id types.EntityID) (mgl32.Mat4, bool) {
	if !c.Has(id) {
		return mgl32.Ident4(), false
	}
	c.syncHierarchy()
	return c.world(id), true
}

func (c *Component) Local(id types.EntityID) (Local, bool) {
	n, ok := c.Get(id)
	if !ok {
		return Local{}, false
	}
	return n.local, true
}

// SetLocal replaces the local transform of id. World matrices are recomputed on next access.
func (c *Component) SetLocal(id types.EntityID, local Local) error {
	n, ok := c.Get(id)
	if !ok {
		return eris.Wrapf(component.ErrNoInstance, "entity %s", id)
	}
	n.local = local
	c.session++
	return nil
}

// AsyncInput queues a TranslateInput for the next Update.
func (c *Component) AsyncInput(kind string, payload any) {
	in, ok := payload.(TranslateInput)
	if kind != InputTranslate || !ok {
		c.Logger().Warn().Str("kind", kind).Type("payload", payload).Msg("dropping unsupported async input")
		return
	}
	c.mu.Lock()
	c.inputs = append(c.inputs, in)
	c.mu.Unlock()
}
