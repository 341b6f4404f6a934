package scene

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"pkg.world.dev/world-engine/scene/component"
	"pkg.world.dev/world-engine/scene/log"
	"pkg.world.dev/world-engine/scene/types"
)

// FabEntity is one entity of a fab template. Local ids are the positions 0..n-1 of the template's
// entities; Parent refers to another local id, or NoEntity for an entity that hangs directly under
// the template's parent.
type FabEntity struct {
	Local      types.EntityID
	Parent     types.EntityID
	Name       string
	Components map[string]types.InitMap
}

// FabTemplate is a prefab: a small entity tree instantiated as one contiguous id range.
type FabTemplate struct {
	// Source path of the template, carried into component logs.
	Name     string
	Parent   types.EntityID
	Entities []FabEntity
}

// LoadFabs instantiates the templates. Every initializer map is validated before the scene changes.
// The new instances are committed at the start of the next frame or by CommitFabs, so they never
// show up halfway through a frame. The returned ranges are in template order.
func (s *Scene) LoadFabs(ctx context.Context, templates ...FabTemplate) ([]types.Range, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.open(); err != nil {
		return nil, err
	}

	if err := s.validateFabs(ctx, templates); err != nil {
		return nil, err
	}

	logger := log.CreateTraceLogger(&s.logger, uuid.NewString())
	ranges := make([]types.Range, 0, len(templates))
	for i := range templates {
		r, err := s.loadFab(logger, &templates[i])
		if err != nil {
			return ranges, eris.Wrapf(err, "failed to load fab %q", templates[i].Name)
		}
		ranges = append(ranges, r)
	}
	logger.Debug().Int("fabs", len(ranges)).Msg("loaded fabs")
	return ranges, nil
}

// validateFabs checks the templates concurrently. It only reads the component catalog and schemas.
func (s *Scene) validateFabs(ctx context.Context, templates []FabTemplate) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := range templates {
		tpl := &templates[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err //nolint:wrapcheck // context error
			}
			return s.validateFab(tpl)
		})
	}
	return g.Wait() //nolint:wrapcheck // errors are wrapped by validateFab
}

func (s *Scene) validateFab(tpl *FabTemplate) error {
	if tpl.Parent != types.NoEntity && !s.entities.Alive(tpl.Parent) {
		return eris.Wrapf(component.ErrInvalidFab, "fab %q: parent %s does not exist", tpl.Name, tpl.Parent)
	}

	n := types.EntityID(len(tpl.Entities)) //nolint:gosec // template sizes are small
	seen := make([]bool, n)
	for _, e := range tpl.Entities {
		if e.Local >= n || seen[e.Local] {
			return eris.Wrapf(component.ErrInvalidFab, "fab %q: local ids must be 0..%d without gaps", tpl.Name, n-1)
		}
		seen[e.Local] = true
		if e.Parent != types.NoEntity && (e.Parent >= n || e.Parent == e.Local) {
			return eris.Wrapf(component.ErrInvalidFab, "fab %q: entity %s has invalid parent %s", tpl.Name, e.Local, e.Parent)
		}
		for name, init := range e.Components {
			c, err := s.components.ByName(name)
			if err != nil {
				return eris.Wrapf(err, "fab %q entity %s", tpl.Name, e.Local)
			}
			if schema := c.Schema(); schema != nil {
				if err := schema.Validate(init); err != nil {
					return eris.Wrapf(err, "fab %q entity %s component %s", tpl.Name, e.Local, name)
				}
			}
		}
	}
	return s.checkLocalCycles(tpl)
}

func (s *Scene) checkLocalCycles(tpl *FabTemplate) error {
	parent := make(map[types.EntityID]types.EntityID, len(tpl.Entities))
	for _, e := range tpl.Entities {
		parent[e.Local] = e.Parent
	}
	for _, e := range tpl.Entities {
		steps := 0
		for p := e.Parent; p != types.NoEntity; p = parent[p] {
			if steps++; steps > len(tpl.Entities) {
				return eris.Wrapf(component.ErrInvalidFab, "fab %q: entity %s is part of a parent cycle", tpl.Name, e.Local)
			}
		}
	}
	return nil
}

// loadFab runs the fab protocol for one validated template. Components take part in name order.
func (s *Scene) loadFab(logger *zerolog.Logger, tpl *FabTemplate) (types.Range, error) {
	byComponent := make(map[string][]FabEntity)
	for _, e := range tpl.Entities {
		for name := range e.Components {
			byComponent[name] = append(byComponent[name], e)
		}
	}
	names := make([]string, 0, len(byComponent))
	for name := range byComponent {
		names = append(names, name)
	}
	sort.Strings(names)

	type opened struct {
		c   component.Component
		idx int
	}
	fabs := make([]opened, 0, len(names))
	count := len(tpl.Entities)
	for _, name := range names {
		c, err := s.components.ByName(name)
		if err != nil {
			return types.Range{}, err
		}
		idx := c.PushBackNewFab()
		for _, e := range byComponent[name] {
			if err := c.AddCompEntityAtLatestFab(e.Local, tpl.Name, e.Components[name]); err != nil {
				return types.Range{}, err //nolint:wrapcheck // wrapped by the store
			}
		}
		count = max(count, int(c.GetLatestFabRange().Last))
		fabs = append(fabs, opened{c: c, idx: idx})
	}

	r, err := s.entities.CreateEntityRange(count, tpl.Parent)
	if err != nil {
		return types.Range{}, eris.Wrap(err, "failed to create fab entities")
	}

	// Every opened fab is initialized, even after a failure, so none is left open.
	var initErrs []error
	for _, f := range fabs {
		if _, err := f.c.InitializeFab(r.First, f.idx); err != nil {
			initErrs = append(initErrs, err)
		}
	}
	s.pending = true
	if len(initErrs) > 0 {
		_ = s.discard([]types.Range{r})
		return types.Range{}, errors.Join(initErrs...)
	}

	for _, e := range tpl.Entities {
		id := r.First + e.Local
		if e.Parent != types.NoEntity {
			if err := s.entities.SetParent(id, r.First+e.Parent); err != nil {
				_ = s.discard([]types.Range{r})
				return types.Range{}, eris.Wrap(err, "failed to link fab entities")
			}
		}
		if e.Name != "" {
			if err := s.entities.AddEntityName(id, e.Name); err != nil {
				_ = s.discard([]types.Range{r})
				return types.Range{}, eris.Wrap(err, "failed to name fab entity")
			}
		}
	}

	logger.Debug().
		Str("fab", tpl.Name).
		Stringer("range", r).
		Strs("components", names).
		Msg("initialized fab")
	return r, nil
}

// CommitFabs makes every loaded fab visible to the components now instead of at the next frame.
func (s *Scene) CommitFabs() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitFabs()
}

func (s *Scene) commitFabs() error {
	if !s.pending {
		return nil
	}
	// A component that fails does not hold back the others. The flag stays set until every
	// component has committed.
	var errs []error
	for _, c := range s.components.All() {
		if err := c.AddInitializedFabs(); err != nil {
			errs = append(errs, eris.Wrapf(err, "component %s failed to commit fabs", c.Name()))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	s.pending = false
	return nil
}
