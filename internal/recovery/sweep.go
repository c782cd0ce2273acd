// Package recovery implements the self-healing pass that detects entities
// whose extended state has drifted from the host's path manager — orphaned
// handles, stuck waiting flags, parking vehicles with no parked car — and
// repairs them in place. The sweep is on-demand, full-population, and
// idempotent: a second run right after the first mutates nothing.
package recovery

import (
	"go.uber.org/zap"

	"github.com/parkwise/simext/internal/extstate"
	"github.com/parkwise/simext/internal/host"
	"github.com/parkwise/simext/internal/pathmode"
)

// Sweep holds the collaborators the scan needs. All passes pause the
// simulation clock and hold the registry locks for their duration, releasing
// both on every exit path.
type Sweep struct {
	store    *extstate.Store
	machine  *pathmode.Machine
	citizens host.CitizenRegistry
	vehicles host.VehicleRegistry
	paths    host.PathManager
	clock    host.Clock
	log      *zap.Logger
}

func NewSweep(store *extstate.Store, machine *pathmode.Machine, citizens host.CitizenRegistry, vehicles host.VehicleRegistry, paths host.PathManager, clock host.Clock, log *zap.Logger) *Sweep {
	return &Sweep{
		store:    store,
		machine:  machine,
		citizens: citizens,
		vehicles: vehicles,
		paths:    paths,
		clock:    clock,
		log:      log,
	}
}

// Run executes all three passes. Repairs are corrective, not errors: they
// log at Info and never surface as failure to the caller.
func (s *Sweep) Run() {
	s.runCitizenPass()
	s.runVehiclePass()
	s.runParkingLinkagePass()
}

// runCitizenPass releases orphaned citizen path handles and clears the stuck
// waiting flag group.
func (s *Sweep) runCitizenPass() {
	s.clock.Pause()
	defer s.clock.Resume()
	s.citizens.Lock()
	defer s.citizens.Unlock()

	// Drain in-flight path computations before touching flags those
	// threads read.
	s.paths.WaitAll()

	repaired, orphans := 0, 0
	for i := 0; i < s.citizens.Len(); i++ {
		id := host.CitizenID(i)
		func() {
			defer s.recoverEntity("citizen", uint32(id))
			c := s.citizens.Citizen(id)
			if !c.Flags.Has(host.CitizenCreated) {
				return
			}
			if c.Flags.Has(host.CitizenWaitingPath) {
				if c.Path != 0 {
					s.paths.Release(c.Path)
					c.Path = 0
				}
				c.Flags = c.Flags.Clear(host.CitizenWaitingMask)
				repaired++
				return
			}
			// Live, not waiting, no path, yet mid-protocol: diagnostic
			// only, never mutated here.
			rec := s.store.Citizen(id)
			if c.Path == 0 && rec.Mode != extstate.ModeIdle && rec.Mode != extstate.ModeParked {
				orphans++
			}
		}()
	}
	s.log.Info("recovery: citizen pass done",
		zap.Int("repaired", repaired), zap.Int("potential_orphans", orphans))
}

// runVehiclePass is the citizen pass scoped to the vehicle registry's
// waiting-path flag.
func (s *Sweep) runVehiclePass() {
	s.clock.Pause()
	defer s.clock.Resume()
	s.vehicles.Lock()
	defer s.vehicles.Unlock()

	s.paths.WaitAll()

	repaired := 0
	for i := 0; i < s.vehicles.Len(); i++ {
		id := host.VehicleID(i)
		func() {
			defer s.recoverEntity("vehicle", uint32(id))
			v := s.vehicles.Vehicle(id)
			if !v.Flags.Has(host.VehicleCreated) || !v.Flags.Has(host.VehicleWaitingPath) {
				return
			}
			released := v.Path
			if v.Path != 0 {
				s.paths.Release(v.Path)
				v.Path = 0
			}
			v.Flags = v.Flags.Clear(host.VehicleWaitingPath)
			// The extended record may track the same handle; a later
			// release through the state machine would double-free it.
			rec := s.store.Vehicle(id)
			if released != 0 && rec.Path == released {
				rec.Path = 0
				rec.PathState = host.PathFailed
				rec.Mode = extstate.ModeFailed
			}
			repaired++
		}()
	}
	s.log.Info("recovery: vehicle pass done", zap.Int("repaired", repaired))
}

// runParkingLinkagePass clears the parking flag on vehicles stuck
// mid-transition: flagged parking, but whose driver has no linked parked car.
func (s *Sweep) runParkingLinkagePass() {
	s.clock.Pause()
	defer s.clock.Resume()
	s.vehicles.Lock()
	defer s.vehicles.Unlock()
	s.citizens.Lock()
	defer s.citizens.Unlock()

	repaired := 0
	for i := 0; i < s.vehicles.Len(); i++ {
		id := host.VehicleID(i)
		func() {
			defer s.recoverEntity("vehicle", uint32(id))
			v := s.vehicles.Vehicle(id)
			if !v.Flags.Has(host.VehicleCreated) || !v.Flags.Has(host.VehicleParking) {
				return
			}
			if v.Driver != 0 {
				drv := s.citizens.Citizen(v.Driver)
				if drv.ParkedVehicle != 0 {
					return // valid linkage, nothing to repair
				}
			}
			v.Flags = v.Flags.Clear(host.VehicleParking)
			repaired++
		}()
	}
	s.log.Info("recovery: parking linkage pass done", zap.Int("repaired", repaired))
}

// ClearVehicles resets every created vehicle's extended state and releases
// outstanding handles, under the same quiescence rules as the sweep. The
// host owns actual despawning.
func (s *Sweep) ClearVehicles() {
	s.clock.Pause()
	defer s.clock.Resume()
	s.vehicles.Lock()
	defer s.vehicles.Unlock()

	s.paths.WaitAll()

	cleared := 0
	for i := 0; i < s.vehicles.Len(); i++ {
		id := host.VehicleID(i)
		func() {
			defer s.recoverEntity("vehicle", uint32(id))
			v := s.vehicles.Vehicle(id)
			if !v.Flags.Has(host.VehicleCreated) {
				return
			}
			released := v.Path
			if v.Path != 0 {
				s.paths.Release(v.Path)
				v.Path = 0
			}
			v.Flags = v.Flags.Clear(host.VehicleWaitingPath | host.VehicleParking)
			// Avoid a double release when the extended record tracks
			// the handle just freed.
			rec := s.store.Vehicle(id)
			if released != 0 && rec.Path == released {
				rec.Path = 0
			}
			s.machine.ResetVehicle(id)
			if v.Driver != 0 {
				s.machine.ResetCitizen(v.Driver)
			}
			cleared++
		}()
	}
	s.log.Info("recovery: cleared vehicles", zap.Int("count", cleared))
}

// recoverEntity isolates one entity's repair: a panic is logged and the pass
// moves on to the next slot.
func (s *Sweep) recoverEntity(kind string, id uint32) {
	if r := recover(); r != nil {
		s.log.Warn("recovery: entity repair panicked",
			zap.String("kind", kind), zap.Uint32("id", id), zap.Any("panic", r))
	}
}
