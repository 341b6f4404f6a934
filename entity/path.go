package entity

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"pkg.world.dev/world-engine/scene/types"
)

var pathLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Up", Pattern: `\.\.`},
	{Name: "Here", Pattern: `\.`},
	{Name: "Sep", Pattern: `/`},
	{Name: "Name", Pattern: `[^/]+`},
})

var pathParser = participle.MustBuild[entityPath](participle.Lexer(pathLexer))

// entityPath is a relative (or, with a leading separator, absolute) walk through the hierarchy.
// ".." moves to the parent and "." stays put.
type entityPath struct {
	Absolute bool           `parser:"@Sep?"`
	Segments []*pathSegment `parser:"@@ ( Sep @@ )*"`
}

type pathSegment struct {
	Up   bool   `parser:"  @Up"`
	Here bool   `parser:"| @Here"`
	Name string `parser:"| @Name"`
}

func parsePath(path string) (*entityPath, error) {
	return pathParser.ParseString("", path)
}

// resolvePath walks p starting at from. NoEntity stands for the virtual root whose children are
// the root entities. Must be called with h.mu held.
func (h *Handler) resolvePath(from types.EntityID, p *entityPath) (types.EntityID, bool) {
	current := from
	if p.Absolute {
		current = types.NoEntity
	} else if !h.alive(from) {
		return types.NoEntity, false
	}

	for _, seg := range p.Segments {
		switch {
		case seg.Up:
			if current == types.NoEntity {
				return types.NoEntity, false
			}
			current = h.nodes[current].parent
		case seg.Here:
		default:
			child, ok := h.names[seg.Name]
			if !ok || h.nodes[child].parent != current {
				return types.NoEntity, false
			}
			current = child
		}
	}
	return current, current != types.NoEntity
}
