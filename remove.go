package scene

import (
	"errors"
	"slices"
	"sort"

	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/scene/stage"
	"pkg.world.dev/world-engine/scene/types"
)

// RemoveRanges removes every entity in the ranges together with its component instances, committed
// or pending. Components see the ranges through ToBeRemovedCallback before anything is removed. A
// live entity with a child outside the ranges rejects the whole call before the scene changes.
func (s *Scene) RemoveRanges(ranges []types.Range) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage.Current() == stage.ShutDown {
		return ErrSceneClosed
	}

	for _, r := range ranges {
		for id := r.First; id < r.Last; id++ {
			if !s.entities.Alive(id) {
				continue
			}
			for _, child := range s.entities.GetChildrenOfEntity(id) {
				if !types.RangesContain(ranges, child) {
					return eris.Wrapf(ErrExternalChildren, "entity %s has child %s", id, child)
				}
			}
		}
	}

	components := s.components.All()
	for _, c := range components {
		c.ToBeRemovedCallback(ranges)
	}
	return s.discard(ranges)
}

// discard drops the instances in ranges from every component and deletes the entities, children
// before parents.
func (s *Scene) discard(ranges []types.Range) error {
	var errs []error
	for _, c := range s.components.All() {
		if err := c.RemoveInstancesByRanges(ranges); err != nil {
			errs = append(errs, eris.Wrapf(err, "component %s failed to remove instances", c.Name()))
		}
	}

	var remove func(id types.EntityID)
	remove = func(id types.EntityID) {
		for _, child := range s.entities.GetChildrenOfEntity(id) {
			remove(child)
		}
		if err := s.entities.DeleteEmptyEntity(id); err != nil {
			errs = append(errs, err)
		}
	}
	for _, r := range ranges {
		for id := r.First; id < r.Last; id++ {
			if !s.entities.Alive(id) {
				continue
			}
			if parent, _ := s.entities.GetParentOfEntity(id); types.RangesContain(ranges, parent) {
				continue
			}
			remove(id)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	s.logger.Debug().Int("ranges", len(ranges)).Msg("removed entity ranges")
	return nil
}

// DeliverCollisions groups the pairs by entity and hands each group to the components attached to
// that entity. Entities are visited in ascending id order. Callbacks must not call back into the
// scene.
func (s *Scene) DeliverCollisions(pairs []types.CollisionPair) {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups := make(map[types.EntityID][]types.CollisionPair)
	for _, p := range pairs {
		groups[p.Entity] = append(groups[p.Entity], p)
	}
	ids := make([]types.EntityID, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		cids := s.entities.GetComponentsOfEntity(id)
		if len(cids) == 0 {
			s.logger.Debug().Uint32("entity_id", uint32(id)).Msg("dropping collisions of entity without components")
			continue
		}
		for _, cid := range cids {
			c, err := s.components.ByID(cid)
			if err != nil {
				continue
			}
			c.CollisionCallback(groups[id])
		}
	}
}

// AsyncInput forwards input to the named component without waiting for it to be applied. The
// component validates the payload on its own and drops what it cannot use.
func (s *Scene) AsyncInput(componentName, kind string, payload any) error {
	c, err := s.components.ByName(componentName)
	if err != nil {
		return err
	}
	c.AsyncInput(kind, payload)
	return nil
}

// ValidateSchemas compares the registered component schemas with ones stored by an external
// loader, keyed by component name. Every mismatch is reported.
func (s *Scene) ValidateSchemas(stored map[string][]byte) error {
	names := make([]string, 0, len(stored))
	for name := range stored {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		c, err := s.components.ByName(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		schema := c.Schema()
		if schema == nil {
			errs = append(errs, eris.Errorf("component %s has no schema", name))
			continue
		}
		if err := schema.ValidateAgainst(stored[name]); err != nil {
			errs = append(errs, eris.Wrapf(err, "component %s", name))
		}
	}
	return errors.Join(errs...)
}
