package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkg.world.dev/world-engine/scene/entity"
	"pkg.world.dev/world-engine/scene/types"
)

func TestNameLastWriterWins(t *testing.T) {
	t.Parallel()

	h := entity.NewHandler()
	a := h.CreateEntity()
	b := h.CreateEntity()

	require.NoError(t, h.AddEntityName(a, "x"))
	require.NoError(t, h.AddEntityName(b, "x"))

	got, ok := h.FindEntityByName("x")
	require.True(t, ok)
	assert.Equal(t, b, got)

	name, ok := h.GetEntityName(a)
	assert.False(t, ok, "a still named %q", name)
}

func TestRenameDropsPreviousName(t *testing.T) {
	t.Parallel()

	h := entity.NewHandler()
	a := h.CreateEntity()
	require.NoError(t, h.AddEntityName(a, "old"))
	require.NoError(t, h.AddEntityName(a, "new"))
	require.NoError(t, h.AddEntityName(a, "new"))

	_, ok := h.FindEntityByName("old")
	assert.False(t, ok)
	name, _ := h.GetEntityName(a)
	assert.Equal(t, "new", name)

	h.RemoveEntityName(a)
	_, ok = h.FindEntityByName("new")
	assert.False(t, ok)
}

func TestInvalidNames(t *testing.T) {
	t.Parallel()

	h := entity.NewHandler()
	a := h.CreateEntity()
	assert.NotPanics(t, func() {
		for _, name := range []string{"", ".cfg", "..", "a/b", "/root"} {
			require.ErrorIs(t, h.AddEntityName(a, name), entity.ErrInvalidName, name)
		}
	})
	_, named := h.GetEntityName(a)
	assert.False(t, named)

	require.NoError(t, h.AddEntityName(a, "cfg.d"))
	got, ok := h.FindEntityByRelativeName(a, "../cfg.d")
	require.True(t, ok)
	assert.Equal(t, a, got)

	_, ok = h.FindEntityByName("nobody")
	assert.False(t, ok)

	assert.Panics(t, func() { _ = h.AddEntityName(17, "ghost") })
}

func TestFindEntityByRelativeName(t *testing.T) {
	t.Parallel()

	// car
	// ├── body
	// │   └── door
	// └── wheel.front
	// truck
	h := entity.NewHandler()
	car := h.CreateEntity()
	body, _ := h.CreateEntityWithParent(car)
	door, _ := h.CreateEntityWithParent(body)
	wheel, _ := h.CreateEntityWithParent(car)
	truck := h.CreateEntity()
	for id, name := range map[types.EntityID]string{
		car: "car", body: "body", door: "door", wheel: "wheel.front", truck: "truck",
	} {
		require.NoError(t, h.AddEntityName(id, name))
	}

	tests := []struct {
		name   string
		from   types.EntityID
		path   string
		want   types.EntityID
		wantOK bool
	}{
		{name: "child", from: car, path: "body", want: body, wantOK: true},
		{name: "grandchild", from: car, path: "body/door", want: door, wantOK: true},
		{name: "parent", from: door, path: "..", want: body, wantOK: true},
		{name: "sibling", from: door, path: "../../wheel.front", want: wheel, wantOK: true},
		{name: "current", from: body, path: "./door", want: door, wantOK: true},
		{name: "absolute", from: door, path: "/truck", want: truck, wantOK: true},
		{name: "absolute nested", from: truck, path: "/car/body/door", want: door, wantOK: true},
		{name: "not a child", from: car, path: "door"},
		{name: "above roots", from: car, path: "../.."},
		{name: "virtual root", from: car, path: ".."},
		{name: "unknown name", from: car, path: "engine"},
		{name: "trailing separator", from: car, path: "body/"},
		{name: "empty", from: car, path: ""},
		{name: "dead origin", from: 99, path: "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := h.FindEntityByRelativeName(tt.from, tt.path)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			} else {
				assert.Equal(t, types.NoEntity, got)
			}
		})
	}
}
