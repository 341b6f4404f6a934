package testutils

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pkg.world.dev/world-engine/scene/component"
	"pkg.world.dev/world-engine/scene/entity"
	"pkg.world.dev/world-engine/scene/types"
)

// Spawn instantiates one entity under parent through the fab protocol of c and commits it.
func Spawn(t *testing.T, h *entity.Handler, c component.Component, parent types.EntityID, init types.InitMap,
) types.EntityID {
	t.Helper()
	r := SpawnFab(t, h, c, parent, init)
	require.Equal(t, 1, r.Len())
	return r.First
}

// SpawnFab instantiates one entity per initializer map as a single fab and commits it.
func SpawnFab(t *testing.T, h *entity.Handler, c component.Component, parent types.EntityID,
	inits ...types.InitMap,
) types.Range {
	t.Helper()

	idx := c.PushBackNewFab()
	for i, init := range inits {
		NoError(t, c.AddCompEntityAtLatestFab(types.EntityID(i), "test", init)) //nolint:gosec // small test fabs
	}
	local := c.GetLatestFabRange()
	r, err := h.CreateEntityRange(int(local.Last), parent)
	NoError(t, err)
	_, err = c.InitializeFab(r.First, idx)
	NoError(t, err)
	NoError(t, c.AddInitializedFabs())
	return r
}

// Attach adds an existing entity to c through a single entity fab.
func Attach(t *testing.T, h *entity.Handler, c component.Component, id types.EntityID, init types.InitMap) {
	t.Helper()

	idx := c.PushBackNewFab()
	NoError(t, c.AddCompEntityAtLatestFab(0, "test", init))
	_, err := c.InitializeFab(id, idx)
	NoError(t, err)
	NoError(t, c.AddInitializedFabs())
	require.True(t, h.HasComponent(id, c.ID()))
}
