package component

import (
	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/scene/assert"
	"pkg.world.dev/world-engine/scene/types"
)

// Manager is the registration catalog of a scene's components. Ids are assigned in registration
// order starting at 1; registration order is also the update order.
type Manager struct {
	components []Component                  // index = id - 1
	catalog    map[string]types.ComponentID // name -> id
}

func NewManager() *Manager {
	return &Manager{
		components: make([]Component, 0),
		catalog:    make(map[string]types.ComponentID),
	}
}

// Register assigns the next id to c.
func (m *Manager) Register(c Component) (types.ComponentID, error) {
	name := c.Name()
	if name == "" {
		return 0, eris.New("component name cannot be empty")
	}
	if _, exists := m.catalog[name]; exists {
		return 0, eris.Wrapf(ErrDuplicateComponent, "component %s", name)
	}

	id := types.ComponentID(len(m.components) + 1) //nolint:gosec // bounded by registrations
	if err := c.SetID(id); err != nil {
		return 0, eris.Wrap(err, "failed to set component id")
	}
	m.catalog[name] = id
	m.components = append(m.components, c)
	assert.That(int(id) == len(m.components), "component id doesn't match number of components")

	return id, nil
}

func (m *Manager) ByName(name string) (Component, error) {
	id, ok := m.catalog[name]
	if !ok {
		return nil, eris.Wrapf(ErrComponentNotFound, "component %s", name)
	}
	return m.components[id-1], nil
}

func (m *Manager) ByID(id types.ComponentID) (Component, error) {
	if id == 0 || int(id) > len(m.components) {
		return nil, eris.Wrapf(ErrComponentNotFound, "component id %d", id)
	}
	return m.components[id-1], nil
}

// All returns the components in registration order.
func (m *Manager) All() []Component {
	return append([]Component(nil), m.components...)
}

func (m *Manager) Len() int {
	return len(m.components)
}
