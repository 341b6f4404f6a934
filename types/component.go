package types

// ComponentID identifies a registered component type. Ids start at 1; 0 is never assigned.
type ComponentID uint32

// CollisionPair is delivered by the collision subsystem, grouped by entity before it reaches a component.
type CollisionPair struct {
	Entity EntityID
	Data   any
}
