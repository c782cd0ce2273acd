// Package system holds the tick systems the runner executes in phase order:
// event dispatch, deferred maintenance, traffic stepping, path polling,
// snapshot autosave, and released-entity cleanup.
package system

import (
	"time"

	"github.com/parkwise/simext/internal/core/event"
	coresys "github.com/parkwise/simext/internal/core/system"
)

// DispatchSystem rotates the event bus and delivers last tick's events.
// Phase 0 (Input).
type DispatchSystem struct {
	bus *event.Bus
}

func NewDispatchSystem(bus *event.Bus) *DispatchSystem {
	return &DispatchSystem{bus: bus}
}

func (s *DispatchSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *DispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
