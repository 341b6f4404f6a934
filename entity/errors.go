package entity

import "github.com/rotisserie/eris"

var (
	// ErrEntityNotFound is returned when an operation names an entity that is not alive.
	ErrEntityNotFound = eris.New("entity does not exist")

	// ErrEntityNotEmpty is returned when deleting an entity that still has components or children.
	ErrEntityNotEmpty = eris.New("entity is not empty")

	ErrInvalidName          = eris.New("invalid entity name")
	ErrHierarchyCycle       = eris.New("entity cannot be its own ancestor")
	ErrComponentNotAttached = eris.New("component is not attached to entity")
	ErrEntityLimit          = eris.New("max number of entities exceeded")
)

// nonFatalErrors are reported to the caller and never asserted, regardless of the handler's
// contract mode.
var nonFatalErrors = []error{
	ErrComponentNotAttached,
	ErrInvalidName,
}

func isNonFatal(err error) bool {
	for _, e := range nonFatalErrors {
		if eris.Is(err, e) {
			return true
		}
	}
	return false
}
