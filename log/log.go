// Package log holds zerolog helpers that dump scene state in a structured form.
package log

import (
	"sort"

	"github.com/rs/zerolog"

	"pkg.world.dev/world-engine/scene/component"
	"pkg.world.dev/world-engine/scene/types"
)

type Loggable interface {
	Components() []component.Component
	EntityCount() int
}

func componentArray(components []component.Component) *zerolog.Array {
	sorted := make([]component.Component, len(components))
	copy(sorted, components)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID() < sorted[j].ID()
	})
	arr := zerolog.Arr()
	for _, c := range sorted {
		dict := zerolog.Dict().
			Int("component_id", int(c.ID())).
			Str("component_name", c.Name())
		if schema := c.Schema(); schema != nil {
			dict = dict.Int("fields", len(schema.Fields()))
		}
		arr = arr.Dict(dict)
	}
	return arr
}

// Components logs every registered component.
func Components(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	components := target.Components()
	logger.WithLevel(level).
		Int("total_components", len(components)).
		Array("components", componentArray(components)).
		Send()
}

// Entity logs one entity and the components attached to it.
func Entity(
	logger *zerolog.Logger, level zerolog.Level,
	id types.EntityID, name string, parent types.EntityID, components []component.Component,
) {
	event := logger.WithLevel(level).
		Uint32("entity_id", uint32(id)).
		Array("components", componentArray(components))
	if name != "" {
		event = event.Str("entity_name", name)
	}
	if parent != types.NoEntity {
		event = event.Uint32("parent_id", uint32(parent))
	}
	event.Send()
}

// Scene logs the registered components together with the number of live entities.
func Scene(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	components := target.Components()
	logger.WithLevel(level).
		Int("total_entities", target.EntityCount()).
		Int("total_components", len(components)).
		Array("components", componentArray(components)).
		Send()
}

// CreateComponentLogger creates a sub logger with the entry {"component" : name}.
func CreateComponentLogger(logger *zerolog.Logger, name string) *zerolog.Logger {
	newLogger := logger.With().Str("component", name).Logger()
	return &newLogger
}

// CreateTraceLogger creates a logger that tags every entry with traceID so one load or frame can be
// followed through the output.
func CreateTraceLogger(logger *zerolog.Logger, traceID string) *zerolog.Logger {
	newLogger := logger.With().Str("trace_id", traceID).Logger()
	return &newLogger
}
