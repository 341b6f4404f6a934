package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkg.world.dev/world-engine/scene/entity"
	"pkg.world.dev/world-engine/scene/testutils"
	"pkg.world.dev/world-engine/scene/types"
)

func TestCreateEntity(t *testing.T) {
	t.Parallel()

	h := entity.NewHandler()
	a := h.CreateEntity()
	b, err := h.CreateEntityWithParent(a)
	require.NoError(t, err)

	assert.Equal(t, types.EntityID(0), a)
	assert.Equal(t, types.EntityID(1), b)
	assert.Equal(t, 2, h.Count())

	parent, ok := h.GetParentOfEntity(b)
	require.True(t, ok)
	assert.Equal(t, a, parent)

	parent, ok = h.GetParentOfEntity(a)
	require.True(t, ok)
	assert.Equal(t, types.NoEntity, parent)
	assert.Equal(t, []types.EntityID{b}, h.GetChildrenOfEntity(a))
	assert.Equal(t, []types.EntityID{a}, h.GetRootEntities())
}

func TestCreateEntityWithUnknownParent(t *testing.T) {
	t.Parallel()

	t.Run("strict", func(t *testing.T) {
		t.Parallel()
		h := entity.NewHandler()
		assert.Panics(t, func() { _, _ = h.CreateEntityWithParent(42) })
	})

	t.Run("recoverable", func(t *testing.T) {
		t.Parallel()
		h := entity.NewHandler(entity.WithRecoverableContracts())
		id, err := h.CreateEntityWithParent(42)
		require.ErrorIs(t, err, entity.ErrEntityNotFound)
		assert.Equal(t, types.NoEntity, id)
		assert.Equal(t, 0, h.Count())
	})
}

func TestDeleteEmptyEntity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(h *entity.Handler) types.EntityID
		wantErr error
	}{
		{
			name: "empty leaf",
			setup: func(h *entity.Handler) types.EntityID {
				return h.CreateEntity()
			},
		},
		{
			name: "has children",
			setup: func(h *entity.Handler) types.EntityID {
				id := h.CreateEntity()
				_, _ = h.CreateEntityWithParent(id)
				return id
			},
			wantErr: entity.ErrEntityNotEmpty,
		},
		{
			name: "has components",
			setup: func(h *entity.Handler) types.EntityID {
				id := h.CreateEntity()
				_ = h.EntityAttachedTo(id, 1)
				return id
			},
			wantErr: entity.ErrEntityNotEmpty,
		},
		{
			name: "unknown",
			setup: func(*entity.Handler) types.EntityID {
				return 9
			},
			wantErr: entity.ErrEntityNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := entity.NewHandler(entity.WithRecoverableContracts())
			id := tt.setup(h)
			err := h.DeleteEmptyEntity(id)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.False(t, h.Alive(id))

			strict := entity.NewHandler()
			strictID := tt.setup(strict)
			assert.NotPanics(t, func() { _ = strict.DeleteEmptyEntity(strictID) })
		})
	}
}

func TestDeleteNonEmptyEntityPanics(t *testing.T) {
	t.Parallel()

	h := entity.NewHandler()
	id := h.CreateEntity()
	require.NoError(t, h.EntityAttachedTo(id, 3))
	assert.Panics(t, func() { _ = h.DeleteEmptyEntity(id) })

	require.NoError(t, h.EntityDeattachFrom(id, 3))
	assert.NotPanics(t, func() { require.NoError(t, h.DeleteEmptyEntity(id)) })
}

func TestDeleteUnlinksParentAndName(t *testing.T) {
	t.Parallel()

	h := entity.NewHandler()
	root := h.CreateEntity()
	child, err := h.CreateEntityWithParent(root)
	require.NoError(t, err)
	require.NoError(t, h.AddEntityName(child, "wheel"))

	require.NoError(t, h.DeleteEmptyEntity(child))

	assert.Empty(t, h.GetChildrenOfEntity(root))
	_, ok := h.FindEntityByName("wheel")
	assert.False(t, ok)
	_, ok = h.GetEntityName(child)
	assert.False(t, ok)
}

func TestRecycleLowestFreeID(t *testing.T) {
	t.Parallel()

	h := entity.NewHandler()
	ids := make([]types.EntityID, 5)
	for i := range ids {
		ids[i] = h.CreateEntity()
	}
	require.NoError(t, h.DeleteEmptyEntity(ids[3]))
	require.NoError(t, h.DeleteEmptyEntity(ids[1]))

	assert.Equal(t, ids[1], h.CreateEntity())
	assert.Equal(t, ids[3], h.CreateEntity())
	assert.Equal(t, types.EntityID(5), h.CreateEntity())
}

func TestRecycledEntityStartsClean(t *testing.T) {
	t.Parallel()

	h := entity.NewHandler()
	root := h.CreateEntity()
	old, err := h.CreateEntityWithParent(root)
	require.NoError(t, err)
	require.NoError(t, h.DeleteEmptyEntity(old))

	id := h.CreateEntity()
	assert.Equal(t, old, id)
	parent, _ := h.GetParentOfEntity(id)
	assert.Equal(t, types.NoEntity, parent)
	assert.Empty(t, h.GetComponentsOfEntity(id))
	assert.Empty(t, h.GetChildrenOfEntity(root))
}

func TestCreateEntityRange(t *testing.T) {
	t.Parallel()

	h := entity.NewHandler()
	a := h.CreateEntity()
	b := h.CreateEntity()
	require.NoError(t, h.DeleteEmptyEntity(a))

	r, err := h.CreateEntityRange(3, b)
	require.NoError(t, err)
	assert.Equal(t, types.Range{First: 2, Last: 5}, r)
	assert.Equal(t, []types.EntityID{2, 3, 4}, h.GetChildrenOfEntity(b))

	// The recycle bin is still used by single creations.
	assert.Equal(t, a, h.CreateEntity())

	empty, err := h.CreateEntityRange(0, types.NoEntity)
	require.NoError(t, err)
	assert.True(t, empty.Empty())
}

func TestSetParent(t *testing.T) {
	t.Parallel()

	h := entity.NewHandler(entity.WithRecoverableContracts())
	a := h.CreateEntity()
	b, _ := h.CreateEntityWithParent(a)
	c, _ := h.CreateEntityWithParent(b)

	require.ErrorIs(t, h.SetParent(a, c), entity.ErrHierarchyCycle)
	require.ErrorIs(t, h.SetParent(a, a), entity.ErrHierarchyCycle)
	version := h.HierarchyVersion()
	require.NoError(t, h.SetParent(c, b))
	assert.Equal(t, version, h.HierarchyVersion(), "same parent is not a move")

	require.NoError(t, h.SetParent(c, a))
	assert.Greater(t, h.HierarchyVersion(), version)
	assert.Equal(t, []types.EntityID{b, c}, h.GetChildrenOfEntity(a))
	assert.Empty(t, h.GetChildrenOfEntity(b))

	require.NoError(t, h.SetParent(b, types.NoEntity))
	assert.Equal(t, []types.EntityID{a, b}, h.GetRootEntities())
}

func TestAttachBookkeeping(t *testing.T) {
	t.Parallel()

	h := entity.NewHandler()
	id := h.CreateEntity()

	require.NoError(t, h.EntityAttachedTo(id, 4))
	require.NoError(t, h.EntityAttachedTo(id, 2))
	require.NoError(t, h.EntityAttachedTo(id, 4))
	assert.Equal(t, []types.ComponentID{4, 2}, h.GetComponentsOfEntity(id))
	assert.True(t, h.HasComponent(id, 2))

	got := h.GetComponentsOfEntity(id)
	got[0] = 99
	assert.Equal(t, []types.ComponentID{4, 2}, h.GetComponentsOfEntity(id))

	require.NoError(t, h.EntityDeattachFrom(id, 4))
	assert.Equal(t, []types.ComponentID{2}, h.GetComponentsOfEntity(id))

	// Missing attachments are reported but never fatal.
	assert.NotPanics(t, func() {
		require.ErrorIs(t, h.EntityDeattachFrom(id, 4), entity.ErrComponentNotAttached)
	})
}

type forestOp uint8

// Values double as weights for testutils.RandWeightedOp.
const (
	opCreate      forestOp = 20
	opCreateChild forestOp = 40
	opDelete      forestOp = 30
	opReparent    forestOp = 25
)

// Random create/delete/reparent sequences must keep the hierarchy a forest with unique live ids.
func TestRandomOperationsKeepForest(t *testing.T) {
	t.Parallel()

	r := testutils.NewRand(t)
	h := entity.NewHandler(entity.WithRecoverableContracts())
	var live []types.EntityID
	ops := []forestOp{opCreate, opCreateChild, opDelete, opReparent}

	pick := func() types.EntityID { return live[r.IntN(len(live))] }

	for step := 0; step < 2000; step++ {
		op := testutils.RandWeightedOp(r, ops)
		if len(live) == 0 {
			op = opCreate
		}
		switch op {
		case opCreate:
			live = append(live, h.CreateEntity())
		case opCreateChild:
			id, err := h.CreateEntityWithParent(pick())
			require.NoError(t, err)
			live = append(live, id)
		case opDelete:
			i := r.IntN(len(live))
			if err := h.DeleteEmptyEntity(live[i]); err == nil {
				live = append(live[:i], live[i+1:]...)
			} else {
				require.ErrorIs(t, err, entity.ErrEntityNotEmpty)
			}
		case opReparent:
			err := h.SetParent(pick(), pick())
			if err != nil {
				require.ErrorIs(t, err, entity.ErrHierarchyCycle)
			}
		}
		checkForest(t, h, live)
	}
}

func checkForest(t *testing.T, h *entity.Handler, live []types.EntityID) {
	t.Helper()

	seen := make(map[types.EntityID]bool, len(live))
	for _, id := range live {
		require.False(t, seen[id], "entity %d is live twice", id)
		seen[id] = true
	}
	require.Equal(t, len(live), h.Count())

	for _, id := range live {
		parent, ok := h.GetParentOfEntity(id)
		require.True(t, ok)
		if parent != types.NoEntity {
			require.Contains(t, h.GetChildrenOfEntity(parent), id)
		}
		for _, child := range h.GetChildrenOfEntity(id) {
			p, _ := h.GetParentOfEntity(child)
			require.Equal(t, id, p)
		}

		steps := 0
		for a := parent; a != types.NoEntity; a, _ = h.GetParentOfEntity(a) {
			require.NotEqual(t, id, a, "entity %d is its own ancestor", id)
			steps++
			require.LessOrEqual(t, steps, len(live))
		}
	}
}
