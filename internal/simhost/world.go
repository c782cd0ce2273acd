// Package simhost is an in-memory reference implementation of the host
// collaborator interfaces: fixed-capacity registries, a simulated path
// manager, a pausable clock, and a synthetic ring road. The standalone
// harness and the tests drive the extension against it exactly the way the
// real host would.
package simhost

import (
	"sync"

	"github.com/parkwise/simext/internal/core/event"
	"github.com/parkwise/simext/internal/host"
)

// World bundles the reference host's shared state. Registries are fixed
// arrays; slot index is identity, slots are reused after release.
type World struct {
	citizenMu sync.Mutex
	citizens  []host.Citizen

	vehicleMu sync.Mutex
	vehicles  []host.Vehicle

	Clock *Clock
	Paths *PathManager
	Geom  *RingRoad

	releasedMu sync.Mutex
	released   []event.EntityRef
}

func NewWorld(maxCitizens, maxVehicles int, paths *PathManager, geom *RingRoad) *World {
	return &World{
		citizens: make([]host.Citizen, maxCitizens),
		vehicles: make([]host.Vehicle, maxVehicles),
		Clock:    &Clock{},
		Paths:    paths,
		Geom:     geom,
	}
}

// CitizenView and VehicleView expose the registries behind the host
// interfaces.
func (w *World) CitizenView() host.CitizenRegistry { return (*citizenView)(w) }
func (w *World) VehicleView() host.VehicleRegistry { return (*vehicleView)(w) }

type citizenView World

func (v *citizenView) Len() int                              { return len(v.citizens) }
func (v *citizenView) Citizen(id host.CitizenID) *host.Citizen { return &v.citizens[id] }
func (v *citizenView) Lock()                                 { v.citizenMu.Lock() }
func (v *citizenView) Unlock()                               { v.citizenMu.Unlock() }

type vehicleView World

func (v *vehicleView) Len() int                                { return len(v.vehicles) }
func (v *vehicleView) Vehicle(id host.VehicleID) *host.Vehicle { return &v.vehicles[id] }
func (v *vehicleView) Lock()                                   { v.vehicleMu.Lock() }
func (v *vehicleView) Unlock()                                 { v.vehicleMu.Unlock() }

// CreateCitizen claims the first free citizen slot and returns its id.
// Returns false when the registry is full.
func (w *World) CreateCitizen() (host.CitizenID, bool) {
	w.citizenMu.Lock()
	defer w.citizenMu.Unlock()
	// Slot 0 stays unused: id 0 doubles as "no driver" in vehicle slots.
	for i := 1; i < len(w.citizens); i++ {
		if !w.citizens[i].Flags.Has(host.CitizenCreated) {
			w.citizens[i] = host.Citizen{Flags: host.CitizenCreated}
			return host.CitizenID(i), true
		}
	}
	return 0, false
}

// CreateVehicle claims the first free vehicle slot.
func (w *World) CreateVehicle(length, maxBraking float32) (host.VehicleID, bool) {
	w.vehicleMu.Lock()
	defer w.vehicleMu.Unlock()
	for i := 1; i < len(w.vehicles); i++ {
		if !w.vehicles[i].Flags.Has(host.VehicleCreated) {
			w.vehicles[i] = host.Vehicle{
				Flags:      host.VehicleCreated,
				Length:     length,
				MaxBraking: maxBraking,
			}
			return host.VehicleID(i), true
		}
	}
	return 0, false
}

// ReleaseCitizen clears the slot and queues the lifecycle notification the
// extension's cleanup system consumes.
func (w *World) ReleaseCitizen(id host.CitizenID) {
	w.citizenMu.Lock()
	w.citizens[id] = host.Citizen{}
	w.citizenMu.Unlock()
	w.queueRelease(event.CitizenRef(id))
}

func (w *World) ReleaseVehicle(id host.VehicleID) {
	w.vehicleMu.Lock()
	w.vehicles[id] = host.Vehicle{}
	w.vehicleMu.Unlock()
	w.queueRelease(event.VehicleRef(id))
}

func (w *World) queueRelease(ref event.EntityRef) {
	w.releasedMu.Lock()
	w.released = append(w.released, ref)
	w.releasedMu.Unlock()
}

// DrainReleased returns and clears the queued release notifications.
func (w *World) DrainReleased() []event.EntityRef {
	w.releasedMu.Lock()
	defer w.releasedMu.Unlock()
	out := w.released
	w.released = nil
	return out
}
