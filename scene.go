// Package scene is the coordinator of the scene core. It owns the entities handler, the registered
// components, the frustum and its culler, and drives fab loading, per frame updates and removal.
package scene

import (
	"sync"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"pkg.world.dev/world-engine/scene/camera"
	"pkg.world.dev/world-engine/scene/component"
	"pkg.world.dev/world-engine/scene/entity"
	"pkg.world.dev/world-engine/scene/frustum"
	"pkg.world.dev/world-engine/scene/log"
	"pkg.world.dev/world-engine/scene/mesh"
	"pkg.world.dev/world-engine/scene/modeldraw"
	"pkg.world.dev/world-engine/scene/stage"
	"pkg.world.dev/world-engine/scene/statsd"
	"pkg.world.dev/world-engine/scene/telemetry"
	"pkg.world.dev/world-engine/scene/transform"
)

var (
	ErrSceneClosed        = eris.New("scene is shut down")
	ErrRegistrationClosed = eris.New("components can only be registered before the first load or frame")
	ErrExternalChildren   = eris.New("removed entity has children outside the removed ranges")
)

type Scene struct {
	// mu serializes frames, loads and removals.
	mu sync.Mutex

	cfg    Config
	logger zerolog.Logger

	entities   *entity.Handler
	components *component.Manager
	meshes     *mesh.Registry
	frustum    *frustum.Frustum
	culler     *frustum.Culler
	renderer   Renderer

	stage       *stage.Manager
	tracer      trace.Tracer
	telemetry   *telemetry.Manager
	recoverable bool
	pending     bool
	frames      uint64
}

var _ component.Context = (*Scene)(nil)

// New creates a scene configured from the environment. Options override the environment.
func New(opts ...Option) (*Scene, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	s := &Scene{
		cfg:         cfg,
		logger:      cfg.logger(),
		components:  component.NewManager(),
		frustum:     frustum.New(),
		culler:      frustum.NewCuller(),
		stage:       stage.NewManager(),
		tracer:      otel.Tracer("scene"),
		recoverable: cfg.RecoverableContracts,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.meshes == nil {
		s.meshes = mesh.NewRegistry()
	}

	entityOpts := []entity.Option{entity.WithLogger(s.logger)}
	if s.recoverable {
		entityOpts = append(entityOpts, entity.WithRecoverableContracts())
	}
	s.entities = entity.NewHandler(entityOpts...)

	if cfg.StatsdAddress != "" {
		if err := statsd.Init(cfg.StatsdAddress, cfg.StatsdTags); err != nil {
			return nil, eris.Wrap(err, "failed to init statsd")
		}
	}

	s.telemetry, err = telemetry.New(cfg.TraceEnabled, cfg.ProfilerEnabled)
	if err != nil {
		return nil, eris.Wrap(err, "failed to set up telemetry")
	}

	s.logger.Debug().
		Bool("recoverable_contracts", s.recoverable).
		Bool("tracing", s.telemetry.Tracing()).
		Msg("scene created")
	return s, nil
}

func (s *Scene) Entities() *entity.Handler {
	return s.entities
}

func (s *Scene) Logger() *zerolog.Logger {
	return &s.logger
}

func (s *Scene) Meshes() *mesh.Registry {
	return s.meshes
}

func (s *Scene) Frustum() *frustum.Frustum {
	return s.frustum
}

func (s *Scene) Culler() *frustum.Culler {
	return s.culler
}

func (s *Scene) Stage() stage.Stage {
	return s.stage.Current()
}

// Frames returns the number of completed frames.
func (s *Scene) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func (s *Scene) Components() []component.Component {
	return s.components.All()
}

func (s *Scene) EntityCount() int {
	return s.entities.Count()
}

// Component looks up a registered component by name.
func (s *Scene) Component(name string) (component.Component, error) {
	return s.components.ByName(name)
}

// RegisterComponent adds c to the scene. Components update in registration order, so a component
// must be registered after every component it reads during Update.
func (s *Scene) RegisterComponent(c component.Component) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage.Current() != stage.Init {
		return eris.Wrapf(ErrRegistrationClosed, "component %s", c.Name())
	}
	id, err := s.components.Register(c)
	if err != nil {
		return err
	}
	s.logger.Debug().Str("component", c.Name()).Uint32("component_id", uint32(id)).Msg("registered component")
	return nil
}

// Builtins are the components every rendering scene needs, wired to the scene's mesh registry and
// culler.
type Builtins struct {
	Transforms *transform.Component
	Cameras    *camera.Component
	Models     *modeldraw.Component
}

var (
	_ ViewProvider = (*camera.Component)(nil)
	_ DrawSource   = (*modeldraw.Component)(nil)
)

// RegisterBuiltins registers the transform, camera and model draw components, in that order.
func (s *Scene) RegisterBuiltins() (*Builtins, error) {
	b := &Builtins{Transforms: transform.New(s)}
	b.Cameras = camera.New(s, b.Transforms)
	b.Models = modeldraw.New(s, b.Transforms, s.meshes, s.culler)

	for _, c := range []component.Component{b.Transforms, b.Cameras, b.Models} {
		if err := s.RegisterComponent(c); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// open moves the scene out of Init. Registration is closed from then on.
func (s *Scene) open() error {
	if err := s.stage.Advance(stage.Running, stage.Init, stage.Running); err != nil {
		return eris.Wrap(ErrSceneClosed, err.Error())
	}
	return nil
}

// LogState dumps the registered components and the entity count.
func (s *Scene) LogState(level zerolog.Level) {
	log.Scene(&s.logger, s, level)
}

// Shutdown waits for a running frame, flushes telemetry and closes the scene.
func (s *Scene) Shutdown() error {
	for {
		current := s.stage.Current()
		if current == stage.ShuttingDown || current == stage.ShutDown {
			return nil
		}
		if s.stage.CompareAndSwap(current, stage.ShuttingDown) {
			break
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.telemetry.Shutdown()
	s.stage.Store(stage.ShutDown)
	s.logger.Info().Uint64("frames", s.frames).Msg("scene shut down")
	if err != nil {
		return eris.Wrap(err, "failed to shut down telemetry")
	}
	return nil
}
