// Package mesh is the in-memory registry of loaded meshes: their local bounding volumes and the
// primitive ranges a draw request refers to. Loading and uploading assets happens elsewhere.
package mesh

import (
	"sync"

	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/scene/geometry"
)

var (
	ErrDuplicateAsset = eris.New("asset is already registered")
	ErrEmptyAsset     = eris.New("asset has no meshes")
)

// Mesh is one registered mesh. Bounds are in mesh local space.
type Mesh struct {
	Bounds     geometry.Paralgram
	Primitives uint32 // number of primitives, numbered consecutively across the registry
}

type entry struct {
	Mesh
	firstPrimitive uint32
}

type asset struct {
	offset int
	count  int
}

// Registry assigns global mesh indices and primitive numbers in registration order. It is safe for
// concurrent use; readers never block each other.
type Registry struct {
	mu         sync.RWMutex
	meshes     []entry
	assets     map[string]asset
	primitives uint32
}

func NewRegistry() *Registry {
	return &Registry{assets: make(map[string]asset)}
}

// AddAsset registers the meshes of an asset and returns the index of its first mesh and the
// number of meshes.
func (r *Registry) AddAsset(name string, meshes []Mesh) (int, int, error) {
	if len(meshes) == 0 {
		return 0, 0, eris.Wrapf(ErrEmptyAsset, "asset %s", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.assets[name]; ok {
		return 0, 0, eris.Wrapf(ErrDuplicateAsset, "asset %s", name)
	}
	a := asset{offset: len(r.meshes), count: len(meshes)}
	for _, m := range meshes {
		r.meshes = append(r.meshes, entry{Mesh: m, firstPrimitive: r.primitives})
		r.primitives += m.Primitives
	}
	r.assets[name] = a
	return a.offset, a.count, nil
}

// Asset returns the mesh index range of a registered asset.
func (r *Registry) Asset(name string) (int, int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.assets[name]
	return a.offset, a.count, ok
}

func (r *Registry) lookup(meshIndex int) (entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if meshIndex < 0 || meshIndex >= len(r.meshes) {
		return entry{}, false
	}
	return r.meshes[meshIndex], true
}

func (r *Registry) Mesh(meshIndex int) (Mesh, bool) {
	e, ok := r.lookup(meshIndex)
	return e.Mesh, ok
}

func (r *Registry) Bounds(meshIndex int) (geometry.Paralgram, bool) {
	e, ok := r.lookup(meshIndex)
	return e.Bounds, ok
}

// PrimitiveRange returns the half open primitive range [first, last) of a mesh.
func (r *Registry) PrimitiveRange(meshIndex int) (uint32, uint32, bool) {
	e, ok := r.lookup(meshIndex)
	if !ok {
		return 0, 0, false
	}
	return e.firstPrimitive, e.firstPrimitive + e.Primitives, true
}

// Len returns the number of registered meshes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.meshes)
}
