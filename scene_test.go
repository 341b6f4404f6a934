package scene_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkg.world.dev/world-engine/scene"
	"pkg.world.dev/world-engine/scene/camera"
	"pkg.world.dev/world-engine/scene/component"
	"pkg.world.dev/world-engine/scene/geometry"
	"pkg.world.dev/world-engine/scene/mesh"
	"pkg.world.dev/world-engine/scene/modeldraw"
	"pkg.world.dev/world-engine/scene/stage"
	"pkg.world.dev/world-engine/scene/types"
)

type captureRenderer struct {
	frames [][]types.DrawRequest
	err    error
}

func (r *captureRenderer) Render(_ context.Context, requests []types.DrawRequest) error {
	r.frames = append(r.frames, append([]types.DrawRequest(nil), requests...))
	return r.err
}

type fixture struct {
	scene    *scene.Scene
	builtins *scene.Builtins
	renderer *captureRenderer
}

// newFixture creates a scene with the built-in components and four unit cube meshes of 2, 2, 3 and
// 2 primitives, so mesh 3 covers primitives [7, 9).
func newFixture(t *testing.T, opts ...scene.Option) *fixture {
	t.Helper()
	f := &fixture{renderer: &captureRenderer{}}

	opts = append([]scene.Option{scene.WithLogger(zerolog.Nop()), scene.WithRenderer(f.renderer)}, opts...)
	s, err := scene.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })

	b, err := geometry.NewCuboid(mgl32.Vec3{}, mgl32.Vec3{0.5, 0.5, 0.5})
	require.NoError(t, err)
	_, _, err = s.Meshes().AddAsset("props", []mesh.Mesh{
		{Bounds: b, Primitives: 2},
		{Bounds: b, Primitives: 2},
		{Bounds: b, Primitives: 3},
		{Bounds: b, Primitives: 2},
	})
	require.NoError(t, err)

	f.scene = s
	f.builtins, err = s.RegisterBuiltins()
	require.NoError(t, err)
	return f
}

// level is a camera at the origin looking down -Z (90 degrees, near 1, far 10) and four models:
// one in view, one behind the camera, one hidden, and a named child of the first.
func level() scene.FabTemplate {
	return scene.FabTemplate{
		Name:   "levels/test",
		Parent: types.NoEntity,
		Entities: []scene.FabEntity{
			{
				Local:  0,
				Parent: types.NoEntity,
				Name:   "camera",
				Components: map[string]types.InitMap{
					"NodeTransform": {},
					"Camera": {
						"Fov":  types.Float(90),
						"Near": types.Float(1),
						"Far":  types.Float(10),
					},
				},
			},
			{
				Local:  1,
				Parent: types.NoEntity,
				Components: map[string]types.InitMap{
					"NodeTransform": {"PosZ": types.Float(-5)},
					"ModelDraw":     {"MeshIndex": types.Int(3), "ShouldDraw": types.Int(1)},
				},
			},
			{
				Local:  2,
				Parent: types.NoEntity,
				Components: map[string]types.InitMap{
					"NodeTransform": {"PosZ": types.Float(5)},
					"ModelDraw":     {"MeshIndex": types.Int(3)},
				},
			},
			{
				Local:  3,
				Parent: types.NoEntity,
				Components: map[string]types.InitMap{
					"NodeTransform": {"PosZ": types.Float(-5)},
					"ModelDraw":     {"MeshIndex": types.Int(2), "ShouldDraw": types.Int(0)},
				},
			},
			{
				Local:  4,
				Parent: 1,
				Name:   "wheel",
				Components: map[string]types.InitMap{
					"NodeTransform": {"PosX": types.Int(1)},
					"ModelDraw":     {"MeshIndex": types.Int(0)},
				},
			},
		},
	}
}

func primitives(requests []types.DrawRequest) []uint32 {
	out := make([]uint32, 0, len(requests))
	for _, r := range requests {
		out = append(out, r.Primitive)
	}
	return out
}

func TestFrameDrawsVisibleModels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ranges, err := f.scene.LoadFabs(ctx, level())
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	r := ranges[0]
	assert.Equal(t, 5, r.Len())

	requests, err := f.scene.Frame(ctx)
	require.NoError(t, err)

	assert.Equal(t, []uint32{7, 8, 0, 1}, primitives(requests))
	assert.Equal(t, r.First+1, requests[0].Entity)
	assert.Equal(t, r.First+1, requests[1].Entity)
	assert.Equal(t, r.First+4, requests[2].Entity)
	assert.True(t, requests[0].World.ApproxEqual(mgl32.Translate3D(0, 0, -5)))
	assert.True(t, requests[2].World.ApproxEqual(mgl32.Translate3D(1, 0, -5)))

	require.Len(t, f.renderer.frames, 1)
	assert.Equal(t, requests, f.renderer.frames[0])

	stats := f.scene.Culler().Stats()
	assert.Equal(t, uint64(3), stats.Tests, "hidden models are not culled")
	assert.Equal(t, uint64(1), stats.Culled)
	assert.Equal(t, uint64(1), f.scene.Frames())
	assert.Equal(t, stage.Running, f.scene.Stage())

	active, ok := f.builtins.Cameras.ActiveCamera()
	require.True(t, ok)
	assert.Equal(t, r.First, active)
}

func TestFabHierarchyAndNames(t *testing.T) {
	f := newFixture(t)

	ranges, err := f.scene.LoadFabs(context.Background(), level())
	require.NoError(t, err)
	r := ranges[0]
	h := f.scene.Entities()

	wheel, ok := h.FindEntityByName("wheel")
	require.True(t, ok)
	assert.Equal(t, r.First+4, wheel)

	parent, ok := h.GetParentOfEntity(wheel)
	require.True(t, ok)
	assert.Equal(t, r.First+1, parent)
	assert.Equal(t, []types.EntityID{wheel}, h.GetChildrenOfEntity(r.First+1))

	cam, ok := h.FindEntityByRelativeName(wheel, "../../camera")
	require.True(t, ok)
	assert.Equal(t, r.First, cam)
}

func TestFabsCommitAtNextFrame(t *testing.T) {
	f := newFixture(t)

	_, err := f.scene.LoadFabs(context.Background(), level())
	require.NoError(t, err)
	assert.Equal(t, 5, f.scene.EntityCount())
	assert.Equal(t, 0, f.builtins.Models.Len())
	assert.Empty(t, f.scene.Entities().GetComponentsOfEntity(1))

	require.NoError(t, f.scene.CommitFabs())
	assert.Equal(t, 4, f.builtins.Models.Len())
	assert.Equal(t, 5, f.builtins.Transforms.Len())
	assert.Len(t, f.scene.Entities().GetComponentsOfEntity(1), 2)

	// A second commit finds nothing pending.
	require.NoError(t, f.scene.CommitFabs())
	assert.Equal(t, 4, f.builtins.Models.Len())
}

func TestFabUnderExistingParent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ranges, err := f.scene.LoadFabs(ctx, level())
	require.NoError(t, err)
	anchor := ranges[0].First + 1

	child := scene.FabTemplate{
		Name:   "props/crate",
		Parent: anchor,
		Entities: []scene.FabEntity{{
			Local:  0,
			Parent: types.NoEntity,
			Components: map[string]types.InitMap{
				"NodeTransform": {"PosY": types.Float(0.5)},
				"ModelDraw":     {"MeshIndex": types.Int(1)},
			},
		}},
	}
	ranges, err = f.scene.LoadFabs(ctx, child)
	require.NoError(t, err)
	crate := ranges[0].First

	parent, ok := f.scene.Entities().GetParentOfEntity(crate)
	require.True(t, ok)
	assert.Equal(t, anchor, parent)

	requests, err := f.scene.Frame(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint32{7, 8, 0, 1, 2, 3}, primitives(requests))
	assert.True(t, requests[4].World.ApproxEqual(mgl32.Translate3D(0, 0.5, -5)))
}

func TestInvalidFabsLeaveSceneUntouched(t *testing.T) {
	tests := []struct {
		name    string
		tpl     scene.FabTemplate
		wantErr error
	}{
		{
			name: "unknown component",
			tpl: scene.FabTemplate{Name: "bad", Parent: types.NoEntity, Entities: []scene.FabEntity{
				{Local: 0, Parent: types.NoEntity, Components: map[string]types.InitMap{"Light": {}}},
			}},
			wantErr: component.ErrComponentNotFound,
		},
		{
			name: "missing required field",
			tpl: scene.FabTemplate{Name: "bad", Parent: types.NoEntity, Entities: []scene.FabEntity{
				{Local: 0, Parent: types.NoEntity, Components: map[string]types.InitMap{"ModelDraw": {}}},
			}},
			wantErr: types.ErrMissingField,
		},
		{
			name: "gap in local ids",
			tpl: scene.FabTemplate{Name: "bad", Parent: types.NoEntity, Entities: []scene.FabEntity{
				{Local: 0, Parent: types.NoEntity},
				{Local: 2, Parent: types.NoEntity},
			}},
			wantErr: component.ErrInvalidFab,
		},
		{
			name: "parent cycle",
			tpl: scene.FabTemplate{Name: "bad", Parent: types.NoEntity, Entities: []scene.FabEntity{
				{Local: 0, Parent: 1},
				{Local: 1, Parent: 0},
			}},
			wantErr: component.ErrInvalidFab,
		},
		{
			name: "dead parent",
			tpl: scene.FabTemplate{Name: "bad", Parent: 42, Entities: []scene.FabEntity{
				{Local: 0, Parent: types.NoEntity},
			}},
			wantErr: component.ErrInvalidFab,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.scene.LoadFabs(context.Background(), level(), tc.tpl)
			require.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, 0, f.scene.EntityCount())
		})
	}
}

func TestRemoveRanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ranges, err := f.scene.LoadFabs(ctx, level())
	require.NoError(t, err)
	_, err = f.scene.Frame(ctx)
	require.NoError(t, err)

	require.NoError(t, f.scene.RemoveRanges(ranges))
	assert.Equal(t, 0, f.scene.EntityCount())
	assert.Equal(t, 0, f.builtins.Models.Len())
	assert.Equal(t, 0, f.builtins.Transforms.Len())
	_, ok := f.scene.Entities().FindEntityByName("wheel")
	assert.False(t, ok)

	requests, err := f.scene.Frame(ctx)
	require.NoError(t, err)
	assert.Empty(t, requests)

	// Removing the same ranges again is a no-op.
	require.NoError(t, f.scene.RemoveRanges(ranges))
}

func TestRemovePendingFab(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ranges, err := f.scene.LoadFabs(ctx, level())
	require.NoError(t, err)
	require.NoError(t, f.scene.RemoveRanges(ranges))

	requests, err := f.scene.Frame(ctx)
	require.NoError(t, err)
	assert.Empty(t, requests)
	assert.Equal(t, 0, f.builtins.Models.Len())
}

func TestRemoveRejectsExternalChildren(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ranges, err := f.scene.LoadFabs(ctx, level())
	require.NoError(t, err)

	// Only the parent of the wheel.
	partial := types.NewRange(ranges[0].First+1, 1)
	require.ErrorIs(t, f.scene.RemoveRanges([]types.Range{partial}), scene.ErrExternalChildren)
	assert.Equal(t, 5, f.scene.EntityCount())
	assert.True(t, f.scene.Entities().Alive(partial.First))
}

func TestAsyncInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ranges, err := f.scene.LoadFabs(ctx, level())
	require.NoError(t, err)
	r := ranges[0]

	require.NoError(t, f.scene.AsyncInput(modeldraw.Name, modeldraw.InputVisibility,
		modeldraw.VisibilityInput{Entity: r.First + 1, ShouldDraw: false}))
	require.NoError(t, f.scene.AsyncInput(modeldraw.Name, modeldraw.InputVisibility,
		modeldraw.VisibilityInput{Entity: r.First + 3, ShouldDraw: true}))
	require.ErrorIs(t, f.scene.AsyncInput("Light", "on", nil), component.ErrComponentNotFound)

	requests, err := f.scene.Frame(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint32{4, 5, 6, 0, 1}, primitives(requests))

	// Unusable input is dropped by the component.
	require.NoError(t, f.scene.AsyncInput(camera.Name, "zoom", 2.0))
	_, err = f.scene.Frame(ctx)
	require.NoError(t, err)
}

func TestRegistrationClosesAfterFirstFrame(t *testing.T) {
	f := newFixture(t)
	_, err := f.scene.Frame(context.Background())
	require.NoError(t, err)

	other := camera.New(f.scene, f.builtins.Transforms)
	require.ErrorIs(t, f.scene.RegisterComponent(other), scene.ErrRegistrationClosed)
}

func TestDuplicateRegistration(t *testing.T) {
	f := newFixture(t)
	_, err := f.scene.RegisterBuiltins()
	require.ErrorIs(t, err, component.ErrDuplicateComponent)
}

func TestRendererErrorFailsFrame(t *testing.T) {
	f := newFixture(t)
	f.renderer.err = assert.AnError

	_, err := f.scene.Frame(context.Background())
	require.ErrorIs(t, err, assert.AnError)
}

func TestShutdown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.scene.Shutdown())
	assert.Equal(t, stage.ShutDown, f.scene.Stage())
	require.NoError(t, f.scene.Shutdown())

	_, err := f.scene.Frame(ctx)
	require.ErrorIs(t, err, scene.ErrSceneClosed)
	_, err = f.scene.LoadFabs(ctx, level())
	require.ErrorIs(t, err, scene.ErrSceneClosed)
	require.ErrorIs(t, f.scene.RemoveRanges(nil), scene.ErrSceneClosed)
}

func TestValidateSchemas(t *testing.T) {
	f := newFixture(t)

	stored := map[string][]byte{
		modeldraw.Name: f.builtins.Models.Schema().JSON(),
		camera.Name:    f.builtins.Cameras.Schema().JSON(),
	}
	require.NoError(t, f.scene.ValidateSchemas(stored))

	stored[camera.Name] = f.builtins.Models.Schema().JSON()
	require.ErrorIs(t, f.scene.ValidateSchemas(stored), component.ErrSchemaMismatch)

	require.ErrorIs(t, f.scene.ValidateSchemas(map[string][]byte{"Light": []byte(`{}`)}),
		component.ErrComponentNotFound)
}

func TestLogState(t *testing.T) {
	var buf bytes.Buffer
	f := newFixture(t, scene.WithLogger(zerolog.New(&buf)))
	_, err := f.scene.LoadFabs(context.Background(), level())
	require.NoError(t, err)

	buf.Reset()
	f.scene.LogState(zerolog.InfoLevel)
	assert.Contains(t, buf.String(), `"total_entities":5`)
	assert.Contains(t, buf.String(), `"total_components":3`)
	assert.Contains(t, buf.String(), `"component_name":"ModelDraw"`)
}
