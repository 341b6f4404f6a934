// Package entity owns the entity identifier space of a scene: the parent/child forest, the set of
// components attached to each entity, and the name index.
package entity

import (
	"slices"
	"sync"

	"github.com/kelindar/bitmap"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/world-engine/scene/assert"
	"pkg.world.dev/world-engine/scene/types"
)

// node is the hierarchy record of a single entity.
type node struct {
	parent     types.EntityID
	children   map[types.EntityID]struct{}
	components []types.ComponentID // attachment order
}

// Handler manages entity ids, the hierarchy and names. Component instances are not stored here;
// component stores only report the fact of attachment through EntityAttachedTo and
// EntityDeattachFrom.
//
// Every method takes the handler's single mutex, so a Handler may be shared between goroutines,
// but ordering between frames is the caller's concern.
type Handler struct {
	mu sync.Mutex

	nodes []node         // dense, indexed by entity id
	live  bitmap.Bitmap  // ids currently alive
	free  bitmap.Bitmap  // recycle bin, lowest id is reused first
	next  types.EntityID // first id that was never handed out

	names  map[string]types.EntityID
	nameOf map[types.EntityID]string

	reparents uint64 // bumped by every effective SetParent

	logger      zerolog.Logger
	recoverable bool
}

func NewHandler(opts ...Option) *Handler {
	h := &Handler{
		names:  make(map[string]types.EntityID),
		nameOf: make(map[types.EntityID]string),
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// violation reports a broken contract. Outside of release builds this panics unless the handler was
// configured with recoverable contracts; otherwise the error is handed back to the caller.
func (h *Handler) violation(err error) error {
	if !h.recoverable && !isNonFatal(err) {
		assert.That(false, "%v", err)
	}
	return err
}

// Violation reports err as a broken contract under the handler's contract mode. Component stores use
// it so the whole scene shares one policy.
func (h *Handler) Violation(err error) error {
	return h.violation(err)
}

func (h *Handler) alive(id types.EntityID) bool {
	return id != types.NoEntity && h.live.Contains(uint32(id))
}

// allocate hands out the lowest recycled id, or the next never used one. Must be called with h.mu
// held.
func (h *Handler) allocate(parent types.EntityID) (types.EntityID, error) {
	var id types.EntityID
	if recycled, ok := h.free.Min(); ok {
		h.free.Remove(recycled)
		id = types.EntityID(recycled)
	} else {
		if h.next > types.MaxEntityID {
			return types.NoEntity, ErrEntityLimit
		}
		id = h.next
		h.next++
		h.nodes = append(h.nodes, node{})
	}
	h.link(id, parent)
	return id, nil
}

func (h *Handler) link(id, parent types.EntityID) {
	h.nodes[id] = node{parent: parent}
	h.live.Set(uint32(id))
	if parent != types.NoEntity {
		p := &h.nodes[parent]
		if p.children == nil {
			p.children = make(map[types.EntityID]struct{})
		}
		p.children[id] = struct{}{}
	}
}

// CreateEntity creates a root entity and returns its id.
func (h *Handler) CreateEntity() types.EntityID {
	h.mu.Lock()
	defer h.mu.Unlock()

	id, err := h.allocate(types.NoEntity)
	if err != nil {
		_ = h.violation(err)
		return types.NoEntity
	}
	return id
}

// CreateEntityWithParent creates a child of parent. An unknown parent is a contract violation; in
// recoverable mode NoEntity is returned together with ErrEntityNotFound.
func (h *Handler) CreateEntityWithParent(parent types.EntityID) (types.EntityID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if parent != types.NoEntity && !h.alive(parent) {
		return types.NoEntity, h.violation(eris.Wrapf(ErrEntityNotFound, "parent %s", parent))
	}
	id, err := h.allocate(parent)
	if err != nil {
		return types.NoEntity, h.violation(err)
	}
	return id, nil
}

// CreateEntityRange creates count contiguous entities from the never used tail of the id space, all
// children of parent (NoEntity for roots). The recycle bin is not consulted so the range is always
// contiguous.
func (h *Handler) CreateEntityRange(count int, parent types.EntityID) (types.Range, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if count < 0 {
		return types.Range{}, h.violation(eris.Errorf("negative entity count %d", count))
	}
	if parent != types.NoEntity && !h.alive(parent) {
		return types.Range{}, h.violation(eris.Wrapf(ErrEntityNotFound, "parent %s", parent))
	}
	if uint64(h.next)+uint64(count) > uint64(types.MaxEntityID)+1 {
		return types.Range{}, h.violation(ErrEntityLimit)
	}

	r := types.NewRange(h.next, count)
	h.nodes = append(h.nodes, make([]node, count)...)
	h.next = r.Last
	for id := r.First; id < r.Last; id++ {
		h.link(id, parent)
	}
	return r, nil
}

// DeleteEmptyEntity removes an entity that has no attached components and no children, drops its
// name and recycles its id. Cascading deletes are left to the caller.
func (h *Handler) DeleteEmptyEntity(id types.EntityID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.alive(id) {
		return h.violation(eris.Wrapf(ErrEntityNotFound, "entity %s", id))
	}
	n := &h.nodes[id]
	if len(n.components) > 0 || len(n.children) > 0 {
		return h.violation(eris.Wrapf(ErrEntityNotEmpty, "entity %s has %d components and %d children",
			id, len(n.components), len(n.children)))
	}

	if n.parent != types.NoEntity {
		delete(h.nodes[n.parent].children, id)
	}
	h.dropName(id)
	h.nodes[id] = node{parent: types.NoEntity}
	h.live.Remove(uint32(id))
	h.free.Set(uint32(id))
	return nil
}

// SetParent moves id under parent, or to the roots when parent is NoEntity.
func (h *Handler) SetParent(id, parent types.EntityID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.alive(id) {
		return h.violation(eris.Wrapf(ErrEntityNotFound, "entity %s", id))
	}
	if parent != types.NoEntity && !h.alive(parent) {
		return h.violation(eris.Wrapf(ErrEntityNotFound, "parent %s", parent))
	}
	for a := parent; a != types.NoEntity; a = h.nodes[a].parent {
		if a == id {
			return h.violation(eris.Wrapf(ErrHierarchyCycle, "entity %s under %s", id, parent))
		}
	}

	n := &h.nodes[id]
	if n.parent == parent {
		return nil
	}
	if n.parent != types.NoEntity {
		delete(h.nodes[n.parent].children, id)
	}
	n.parent = parent
	if parent != types.NoEntity {
		p := &h.nodes[parent]
		if p.children == nil {
			p.children = make(map[types.EntityID]struct{})
		}
		p.children[id] = struct{}{}
	}
	h.reparents++
	return nil
}

// HierarchyVersion changes whenever an existing entity is moved to another parent. Caches keyed on
// ancestry compare it to detect reparenting.
func (h *Handler) HierarchyVersion() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reparents
}

// Alive reports whether id refers to a live entity.
func (h *Handler) Alive(id types.EntityID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.alive(id)
}

// Count returns the number of live entities.
func (h *Handler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.live.Count()
}

func (h *Handler) GetParentOfEntity(id types.EntityID) (types.EntityID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.alive(id) {
		return types.NoEntity, false
	}
	return h.nodes[id].parent, true
}

// GetChildrenOfEntity returns the children of id in ascending id order.
func (h *Handler) GetChildrenOfEntity(id types.EntityID) []types.EntityID {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.alive(id) {
		return nil
	}
	children := make([]types.EntityID, 0, len(h.nodes[id].children))
	for child := range h.nodes[id].children {
		children = append(children, child)
	}
	slices.Sort(children)
	return children
}

// GetRootEntities returns every live entity without a parent in ascending id order.
func (h *Handler) GetRootEntities() []types.EntityID {
	h.mu.Lock()
	defer h.mu.Unlock()

	var roots []types.EntityID
	for id := types.EntityID(0); id < h.next; id++ {
		if h.alive(id) && h.nodes[id].parent == types.NoEntity {
			roots = append(roots, id)
		}
	}
	return roots
}

// GetComponentsOfEntity returns the attached component ids in attachment order.
func (h *Handler) GetComponentsOfEntity(id types.EntityID) []types.ComponentID {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.alive(id) {
		return nil
	}
	return slices.Clone(h.nodes[id].components)
}

// HasComponent reports whether cid is attached to id.
func (h *Handler) HasComponent(id types.EntityID, cid types.ComponentID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.alive(id) && slices.Contains(h.nodes[id].components, cid)
}

// EntityAttachedTo records that id gained a component of type cid. Recording the same attachment
// twice is a no-op.
func (h *Handler) EntityAttachedTo(id types.EntityID, cid types.ComponentID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.alive(id) {
		return h.violation(eris.Wrapf(ErrEntityNotFound, "attach component %d to %s", cid, id))
	}
	n := &h.nodes[id]
	if !slices.Contains(n.components, cid) {
		n.components = append(n.components, cid)
	}
	return nil
}

// EntityDeattachFrom records that id lost its component of type cid.
func (h *Handler) EntityDeattachFrom(id types.EntityID, cid types.ComponentID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.alive(id) {
		return h.violation(eris.Wrapf(ErrEntityNotFound, "detach component %d from %s", cid, id))
	}
	n := &h.nodes[id]
	i := slices.Index(n.components, cid)
	if i < 0 {
		return eris.Wrapf(ErrComponentNotAttached, "component %d on entity %s", cid, id)
	}
	n.components = slices.Delete(n.components, i, i+1)
	return nil
}
