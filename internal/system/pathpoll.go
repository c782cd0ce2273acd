package system

import (
	"time"

	"github.com/parkwise/simext/internal/core/event"
	coresys "github.com/parkwise/simext/internal/core/system"
	"github.com/parkwise/simext/internal/extstate"
	"github.com/parkwise/simext/internal/host"
)

// PathPollSystem watches outstanding handles and emits completion events
// once the path manager resolves them. Phase 3 (PostUpdate): events surface
// at the next tick's dispatch, so a completion never mutates a record the
// same tick the gate is reading it.
type PathPollSystem struct {
	bus      *event.Bus
	store    *extstate.Store
	paths    host.PathManager
	citizens host.CitizenRegistry
	vehicles host.VehicleRegistry
}

func NewPathPollSystem(bus *event.Bus, store *extstate.Store, paths host.PathManager, citizens host.CitizenRegistry, vehicles host.VehicleRegistry) *PathPollSystem {
	return &PathPollSystem{bus: bus, store: store, paths: paths, citizens: citizens, vehicles: vehicles}
}

func (s *PathPollSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *PathPollSystem) Update(_ time.Duration) {
	s.store.ForEachValidVehicle(s.vehicleLive, func(id host.VehicleID, rec *extstate.VehicleRecord) {
		if rec.Path == 0 || rec.PathState != host.PathPending {
			return
		}
		switch s.paths.State(rec.Path) {
		case host.PathReady:
			event.Emit(s.bus, event.PathCompleted{Path: rec.Path, Owner: event.VehicleRef(id), Ready: true})
		case host.PathFailed:
			event.Emit(s.bus, event.PathCompleted{Path: rec.Path, Owner: event.VehicleRef(id), Ready: false})
		}
	})

	s.store.ForEachValidCitizen(s.citizenLive, func(id host.CitizenID, rec *extstate.CitizenRecord) {
		if rec.ReturnPath == 0 || rec.ReturnPathState != host.PathPending {
			return
		}
		switch s.paths.State(rec.ReturnPath) {
		case host.PathReady:
			event.Emit(s.bus, event.PathCompleted{Path: rec.ReturnPath, Owner: event.CitizenRef(id), Ready: true})
		case host.PathFailed:
			event.Emit(s.bus, event.PathCompleted{Path: rec.ReturnPath, Owner: event.CitizenRef(id), Ready: false})
		}
	})
}

func (s *PathPollSystem) vehicleLive(id host.VehicleID) bool {
	return s.vehicles.Vehicle(id).Flags.Has(host.VehicleCreated)
}

func (s *PathPollSystem) citizenLive(id host.CitizenID) bool {
	return s.citizens.Citizen(id).Flags.Has(host.CitizenCreated)
}
