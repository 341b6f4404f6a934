// Package stage tracks the lifecycle stage of a scene. Transitions are atomic so a scene can be
// shut down from another goroutine while a frame is running.
package stage

import (
	"sync/atomic"

	"github.com/rotisserie/eris"
)

type Stage int32

const (
	Init         Stage = iota // components may be registered
	Running                   // the component set is frozen; fabs load and frames run
	ShuttingDown              // Shutdown was called and waits for the running frame
	ShutDown                  // no further frames or loads
)

var ErrInvalidTransition = eris.New("invalid stage transition")

func (s Stage) String() string {
	switch s {
	case Init:
		return "Init"
	case Running:
		return "Running"
	case ShuttingDown:
		return "ShuttingDown"
	case ShutDown:
		return "ShutDown"
	}
	return "Unknown"
}

type Manager struct {
	current atomic.Int32
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) Current() Stage {
	return Stage(m.current.Load())
}

func (m *Manager) Store(s Stage) {
	m.current.Store(int32(s))
}

func (m *Manager) Swap(s Stage) Stage {
	return Stage(m.current.Swap(int32(s)))
}

func (m *Manager) CompareAndSwap(from, to Stage) bool {
	return m.current.CompareAndSwap(int32(from), int32(to))
}

// Advance moves from one of the given stages to to, failing if the scene is in any other stage.
func (m *Manager) Advance(to Stage, from ...Stage) error {
	for _, f := range from {
		if m.CompareAndSwap(f, to) {
			return nil
		}
	}
	return eris.Wrapf(ErrInvalidTransition, "cannot move from %s to %s", m.Current(), to)
}
