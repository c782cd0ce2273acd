package system

import (
	"time"

	"github.com/parkwise/simext/internal/core/arena"
	"github.com/parkwise/simext/internal/core/event"
	coresys "github.com/parkwise/simext/internal/core/system"
	"github.com/parkwise/simext/internal/simhost"
)

// CleanupSystem flushes the host's release notifications at tick end,
// resetting the released ids across every registered extended-state store.
// Phase 5 (Cleanup).
type CleanupSystem struct {
	world    *simhost.World
	citizens *arena.ReleaseRegistry
	vehicles *arena.ReleaseRegistry
}

func NewCleanupSystem(world *simhost.World, citizens, vehicles *arena.ReleaseRegistry) *CleanupSystem {
	return &CleanupSystem{world: world, citizens: citizens, vehicles: vehicles}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	for _, ref := range s.world.DrainReleased() {
		switch ref.Kind {
		case event.KindCitizen:
			s.citizens.Release(ref.ID)
		case event.KindVehicle:
			s.vehicles.Release(ref.ID)
		}
	}
}
