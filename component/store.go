package component

import (
	"errors"

	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/scene/types"
)

// InitFunc builds the instance of an entity from its validated initializer map.
type InitFunc[T any] func(id types.EntityID, init types.InitMap) (T, error)

type fabSlot struct {
	local  types.EntityID
	source string
	init   types.InitMap
}

type fab struct {
	slots    []fabSlot
	local    types.Range
	realized bool
}

type pendingInstance[T any] struct {
	id     types.EntityID
	source string
	value  T
}

// Store keeps the instances of one component type. Instances are stored densely in insertion order
// and looked up by entity through a sparse index. Store implements the fab protocol and the
// bookkeeping callbacks into the entities handler; embedders add behavior.
type Store[T any] struct {
	Base

	schema *Schema
	initFn InitFunc[T]

	entities []types.EntityID // dense, insertion order
	values   []T              // parallel to entities
	index    map[types.EntityID]int

	fabs    map[int]*fab // open or initialized, by fab index
	nextFab int
	pending []pendingInstance[T] // initialized, not yet committed
}

func NewStore[T any](ctx Context, name string, schema *Schema, initFn InitFunc[T]) *Store[T] {
	return &Store[T]{
		Base:   NewBase(ctx, name),
		schema: schema,
		initFn: initFn,
		index:  make(map[types.EntityID]int),
		fabs:   make(map[int]*fab),
	}
}

func (s *Store[T]) Schema() *Schema {
	return s.schema
}

func (s *Store[T]) violation(err error) error {
	return s.Entities().Violation(eris.Wrapf(err, "component %s", s.Name()))
}

// PushBackNewFab opens a new fab and returns its index. Indexes are never reused.
func (s *Store[T]) PushBackNewFab() int {
	idx := s.nextFab
	s.nextFab++
	s.fabs[idx] = &fab{}
	return idx
}

func (s *Store[T]) latestFab() (*fab, bool) {
	f, ok := s.fabs[s.nextFab-1]
	return f, ok
}

// AddCompEntityAtLatestFab queues an entity, identified by its fab local id, into the latest fab.
func (s *Store[T]) AddCompEntityAtLatestFab(local types.EntityID, sourcePath string, init types.InitMap) error {
	f, ok := s.latestFab()
	if !ok || f.realized {
		return s.violation(eris.Wrap(ErrInvalidFab, "no open fab"))
	}
	if err := s.schema.Validate(init); err != nil {
		return s.violation(eris.Wrapf(err, "entity %s of %s", local, sourcePath))
	}

	f.slots = append(f.slots, fabSlot{local: local, source: sourcePath, init: init})
	if len(f.slots) == 1 {
		f.local = types.NewRange(local, 1)
	} else {
		f.local.First = min(f.local.First, local)
		f.local.Last = max(f.local.Last, local+1)
	}
	return nil
}

// GetLatestFabRange returns the local id range used by the latest fab. The range is empty when the
// component has no entity in it.
func (s *Store[T]) GetLatestFabRange() types.Range {
	f, ok := s.latestFab()
	if !ok {
		return types.Range{}
	}
	return f.local
}

// InitializeFab builds the instances of a fab with its local ids shifted by offset. The instances
// stay invisible until AddInitializedFabs.
func (s *Store[T]) InitializeFab(offset types.EntityID, fabIndex int) (types.Range, error) {
	f, ok := s.fabs[fabIndex]
	if !ok {
		if fabIndex >= 0 && fabIndex < s.nextFab {
			return types.Range{}, s.violation(eris.Wrapf(ErrInvalidFab, "fab %d is already committed", fabIndex))
		}
		return types.Range{}, s.violation(eris.Wrapf(ErrInvalidFab, "fab index %d out of range", fabIndex))
	}
	if f.realized {
		return types.Range{}, s.violation(eris.Wrapf(ErrInvalidFab, "fab %d is already initialized", fabIndex))
	}

	// A fab initializes once. On failure none of its instances are kept.
	slots := f.slots
	f.realized = true
	f.slots = nil

	entities := s.Entities()
	built := make([]pendingInstance[T], 0, len(slots))
	for _, slot := range slots {
		id := slot.local + offset
		if !entities.Alive(id) {
			return types.Range{}, s.violation(eris.Errorf("fab entity %s (%s) does not exist", id, slot.source))
		}
		v, err := s.initFn(id, slot.init)
		if err != nil {
			return types.Range{}, s.violation(eris.Wrapf(err, "failed to initialize entity %s (%s)", id, slot.source))
		}
		built = append(built, pendingInstance[T]{id: id, source: slot.source, value: v})
	}

	s.pending = append(s.pending, built...)
	return f.local.Shift(offset), nil
}

// AddInitializedFabs commits every initialized instance and reports the attachments to the
// entities handler. An instance that cannot be attached (its entity is gone or already has this
// component) is dropped and reported; the others are committed regardless. Initialized fabs are
// released.
func (s *Store[T]) AddInitializedFabs() error {
	var errs []error
	committed := 0
	for len(s.pending) > 0 {
		p := s.pending[0]
		s.pending = s.pending[1:]
		if err := s.insert(p.id, p.value); err != nil {
			errs = append(errs, eris.Wrapf(err, "dropped fab instance of entity %s (%s)", p.id, p.source))
			continue
		}
		committed++
	}
	s.pending = nil

	for idx, f := range s.fabs {
		if f.realized {
			delete(s.fabs, idx)
		}
	}

	if committed > 0 {
		s.Logger().Debug().Int("count", committed).Msg("committed fab instances")
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// OpenFabs returns the number of fabs that are open or initialized but not yet committed.
func (s *Store[T]) OpenFabs() int {
	return len(s.fabs)
}

// PendingCount returns the number of initialized instances waiting for AddInitializedFabs.
func (s *Store[T]) PendingCount() int {
	return len(s.pending)
}

// Add attaches a component instance to id directly, outside of any fab.
func (s *Store[T]) Add(id types.EntityID, v T) error {
	return s.insert(id, v)
}

func (s *Store[T]) insert(id types.EntityID, v T) error {
	if _, ok := s.index[id]; ok {
		return s.violation(eris.Wrapf(ErrEntityExists, "entity %s", id))
	}
	if err := s.Entities().EntityAttachedTo(id, s.ID()); err != nil {
		return err
	}
	s.index[id] = len(s.entities)
	s.entities = append(s.entities, id)
	s.values = append(s.values, v)
	return nil
}

// Remove detaches the instance of id.
func (s *Store[T]) Remove(id types.EntityID) error {
	if _, ok := s.index[id]; !ok {
		return eris.Wrapf(ErrNoInstance, "entity %s", id)
	}
	return s.removeWhere(func(e types.EntityID) bool { return e == id })
}

// RemoveInstancesByRanges detaches every instance whose entity lies in one of the ranges, committed
// or pending. Removing ranges without instances is a no-op.
func (s *Store[T]) RemoveInstancesByRanges(ranges []types.Range) error {
	kept := s.pending[:0]
	for _, p := range s.pending {
		if !types.RangesContain(ranges, p.id) {
			kept = append(kept, p)
		}
	}
	s.pending = kept

	return s.removeWhere(func(id types.EntityID) bool { return types.RangesContain(ranges, id) })
}

// removeWhere compacts the dense arrays, keeping insertion order of the survivors.
func (s *Store[T]) removeWhere(doomed func(types.EntityID) bool) error {
	entities := s.Entities()
	n := 0
	var firstErr error
	for i, id := range s.entities {
		if !doomed(id) {
			s.entities[n] = id
			s.values[n] = s.values[i]
			s.index[id] = n
			n++
			continue
		}
		delete(s.index, id)
		if err := entities.EntityDeattachFrom(id, s.ID()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	var zero T
	for i := n; i < len(s.values); i++ {
		s.values[i] = zero
	}
	s.entities = s.entities[:n]
	s.values = s.values[:n]
	return firstErr
}

// Get returns the instance of id. The pointer is valid until the next structural change of the
// store (commit or removal).
func (s *Store[T]) Get(id types.EntityID) (*T, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return &s.values[i], true
}

func (s *Store[T]) Has(id types.EntityID) bool {
	_, ok := s.index[id]
	return ok
}

func (s *Store[T]) Len() int {
	return len(s.entities)
}

// EntityIDs returns the ids with an instance, in insertion order.
func (s *Store[T]) EntityIDs() []types.EntityID {
	return append([]types.EntityID(nil), s.entities...)
}

// Each calls fn for every instance in insertion order until fn returns false.
func (s *Store[T]) Each(fn func(id types.EntityID, v *T) bool) {
	for i, id := range s.entities {
		if !fn(id, &s.values[i]) {
			return
		}
	}
}
