// Package component defines the component contract of a scene: identification, per frame update,
// callbacks, and the fab protocol through which component entities are instantiated in bulk.
package component

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"pkg.world.dev/world-engine/scene/entity"
	"pkg.world.dev/world-engine/scene/types"
)

var (
	ErrDuplicateComponent = eris.New("component is already registered")
	ErrComponentNotFound  = eris.New("component is not registered")
	ErrUnknownField       = eris.New("unknown initializer field")
	ErrSchemaMismatch     = eris.New("component schema mismatch")
	ErrInvalidFab         = eris.New("invalid fab")
	ErrEntityExists       = eris.New("entity already has this component")
	ErrNoInstance         = eris.New("entity has no instance of this component")
)

// Context is the non-owning view of the scene every component holds. The scene outlives all of
// its components.
type Context interface {
	Entities() *entity.Handler
	Logger() *zerolog.Logger
}

// Component is implemented by every component type registered with a scene. Concrete components
// usually embed a *Store, which supplies identification and the fab protocol, and override Update
// and the callbacks they care about.
//
// The fab protocol runs in this order for every fab: PushBackNewFab, AddCompEntityAtLatestFab for
// each entity of the template, GetLatestFabRange, InitializeFab and finally AddInitializedFabs,
// which makes the new entities visible to Update.
type Component interface {
	ID() types.ComponentID
	SetID(id types.ComponentID) error
	Name() string
	Schema() *Schema

	Update(ctx context.Context) error
	NewUpdateSession()
	AsyncInput(kind string, payload any)
	CollisionCallback(pairs []types.CollisionPair)
	ToBeRemovedCallback(ranges []types.Range)

	PushBackNewFab() int
	AddCompEntityAtLatestFab(local types.EntityID, sourcePath string, init types.InitMap) error
	GetLatestFabRange() types.Range
	InitializeFab(offset types.EntityID, fabIndex int) (types.Range, error)
	AddInitializedFabs() error
	RemoveInstancesByRanges(ranges []types.Range) error
}

// Base carries the identity of a component and no-op defaults for the optional hooks.
type Base struct {
	id     types.ComponentID
	isSet  bool
	name   string
	ctx    Context
	logger zerolog.Logger
}

func NewBase(ctx Context, name string) Base {
	return Base{
		name:   name,
		ctx:    ctx,
		logger: ctx.Logger().With().Str("component", name).Logger(),
	}
}

// SetID assigns the registration id. Assigning the same id again is allowed so a component can be
// re-registered in tests.
func (b *Base) SetID(id types.ComponentID) error {
	if b.isSet && b.id != id {
		return eris.Errorf("id for component %s is already set to %d, cannot change to %d", b.name, b.id, id)
	}
	b.id = id
	b.isSet = true
	return nil
}

func (b *Base) ID() types.ComponentID {
	return b.id
}

func (b *Base) Name() string {
	return b.name
}

func (b *Base) Context() Context {
	return b.ctx
}

func (b *Base) Entities() *entity.Handler {
	return b.ctx.Entities()
}

// Logger returns the scene logger tagged with the component name.
func (b *Base) Logger() *zerolog.Logger {
	return &b.logger
}

func (b *Base) Update(context.Context) error { return nil }

func (b *Base) NewUpdateSession() {}

// AsyncInput drops the input. Components that accept input queue it and apply it in Update; they
// must not block the caller.
func (b *Base) AsyncInput(kind string, _ any) {
	b.logger.Warn().Str("kind", kind).Msg("component takes no async input, dropping")
}

func (b *Base) CollisionCallback([]types.CollisionPair) {}

func (b *Base) ToBeRemovedCallback([]types.Range) {}

// staticContext is a fixed Context, used when components live outside a scene.
type staticContext struct {
	entities *entity.Handler
	logger   zerolog.Logger
}

// NewContext returns a Context over an existing entities handler.
func NewContext(entities *entity.Handler, logger zerolog.Logger) Context {
	return &staticContext{entities: entities, logger: logger}
}

func (c *staticContext) Entities() *entity.Handler { return c.entities }

func (c *staticContext) Logger() *zerolog.Logger { return &c.logger }
