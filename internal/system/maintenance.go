package system

import (
	"time"

	coresys "github.com/parkwise/simext/internal/core/system"
	"github.com/parkwise/simext/internal/recovery"
)

// MaintenanceSystem drains the deferred sweep/clear requests at the tick
// boundary. Phase 1 (PreUpdate): requests land here no matter which thread
// filed them, never mid-scan of the registries.
type MaintenanceSystem struct {
	requests *recovery.Requests
	sweep    *recovery.Sweep

	autoInterval int // ticks between scheduled sweeps, 0 = manual only
	sinceSweep   int
}

func NewMaintenanceSystem(requests *recovery.Requests, sweep *recovery.Sweep, autoInterval int) *MaintenanceSystem {
	return &MaintenanceSystem{requests: requests, sweep: sweep, autoInterval: autoInterval}
}

func (s *MaintenanceSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *MaintenanceSystem) Update(_ time.Duration) {
	runSweep, clearAll := s.requests.Drain()

	if s.autoInterval > 0 {
		s.sinceSweep++
		if s.sinceSweep >= s.autoInterval {
			s.sinceSweep = 0
			runSweep = true
		}
	}

	// Clear first: a sweep over freshly cleared vehicles is a no-op, the
	// reverse order would repair state about to be discarded.
	if clearAll {
		s.sweep.ClearVehicles()
	}
	if runSweep {
		s.sweep.Run()
	}
}
