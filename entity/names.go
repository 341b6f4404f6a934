package entity

import (
	"strings"

	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/scene/types"
)

// AddEntityName names id. Names are unique: when another entity already holds name it loses it
// (last writer wins) and a warning is logged. An entity that is renamed drops its previous name.
func (h *Handler) AddEntityName(id types.EntityID, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.alive(id) {
		return h.violation(eris.Wrapf(ErrEntityNotFound, "name %q", name))
	}
	if err := validName(name); err != nil {
		return eris.Wrapf(err, "entity %s", id)
	}

	if owner, ok := h.names[name]; ok {
		if owner == id {
			return nil
		}
		h.logger.Warn().
			Str("name", name).
			Uint32("previous_owner", uint32(owner)).
			Uint32("entity", uint32(id)).
			Msg("entity name reassigned")
		delete(h.nameOf, owner)
	}
	h.dropName(id)
	h.names[name] = id
	h.nameOf[id] = name
	return nil
}

// validName rejects names that a relative path could not reach: a separator splits them and a
// leading dot reads as "." or "..".
func validName(name string) error {
	switch {
	case name == "":
		return eris.Wrap(ErrInvalidName, "empty name")
	case strings.HasPrefix(name, "."):
		return eris.Wrapf(ErrInvalidName, "name %q starts with a dot", name)
	case strings.Contains(name, "/"):
		return eris.Wrapf(ErrInvalidName, "name %q contains a separator", name)
	}
	return nil
}

// RemoveEntityName drops the name of id, if any.
func (h *Handler) RemoveEntityName(id types.EntityID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropName(id)
}

func (h *Handler) dropName(id types.EntityID) {
	if name, ok := h.nameOf[id]; ok {
		delete(h.names, name)
		delete(h.nameOf, id)
	}
}

func (h *Handler) FindEntityByName(name string) (types.EntityID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id, ok := h.names[name]
	if !ok {
		return types.NoEntity, false
	}
	return id, true
}

// FindEntityByRelativeName resolves path starting at from. Segments are separated by "/", ".."
// selects the parent, "." the current entity and anything else the child with that name. A leading
// "/" starts at the roots instead. Malformed paths are treated as misses.
func (h *Handler) FindEntityByRelativeName(from types.EntityID, path string) (types.EntityID, bool) {
	p, err := parsePath(path)
	if err != nil {
		return types.NoEntity, false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resolvePath(from, p)
}

func (h *Handler) GetEntityName(id types.EntityID) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	name, ok := h.nameOf[id]
	return name, ok
}
