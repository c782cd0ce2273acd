package extstate

import (
	"github.com/parkwise/simext/internal/core/arena"
	"github.com/parkwise/simext/internal/host"
)

// Store owns the citizen and vehicle extended-state arenas. All access is by
// id through the store; no other component keeps long-lived record pointers.
// Per-id access happens only on the tick goroutine, so the store itself
// carries no locks (full-population scans synchronize through the host
// registry locks instead).
type Store struct {
	citizens *arena.Arena[CitizenRecord]
	vehicles *arena.Arena[VehicleRecord]
}

func NewStore(maxInstances, maxVehicles int) *Store {
	return &Store{
		citizens: arena.New[CitizenRecord](maxInstances),
		vehicles: arena.New[VehicleRecord](maxVehicles),
	}
}

func (s *Store) CitizenCap() int { return s.citizens.Cap() }
func (s *Store) VehicleCap() int { return s.vehicles.Cap() }

// Citizen returns the extended record for a citizen instance. Panics on an
// out-of-range id; there is no not-found case for valid ids.
func (s *Store) Citizen(id host.CitizenID) *CitizenRecord {
	return s.citizens.Get(uint32(id))
}

// Vehicle returns the extended record for a vehicle.
func (s *Store) Vehicle(id host.VehicleID) *VehicleRecord {
	return s.vehicles.Get(uint32(id))
}

// ResetCitizen restores the slot to the idle record. Called when the host
// releases the instance, and by the state machine's canonical idle reset.
func (s *Store) ResetCitizen(id host.CitizenID) {
	s.citizens.Reset(uint32(id))
}

func (s *Store) ResetVehicle(id host.VehicleID) {
	s.vehicles.Reset(uint32(id))
}

// ResetAll restores every slot in both arenas. Called on session teardown.
func (s *Store) ResetAll() {
	s.citizens.ResetAll()
	s.vehicles.ResetAll()
}

// ForEachValidCitizen applies fn to every slot whose external entity the
// host currently reports as created, in index order.
func (s *Store) ForEachValidCitizen(live func(host.CitizenID) bool, fn func(host.CitizenID, *CitizenRecord)) {
	s.citizens.Each(func(id uint32, rec *CitizenRecord) {
		cid := host.CitizenID(id)
		if live(cid) {
			fn(cid, rec)
		}
	})
}

// ForEachValidVehicle is the vehicle-arena counterpart of ForEachValidCitizen.
func (s *Store) ForEachValidVehicle(live func(host.VehicleID) bool, fn func(host.VehicleID, *VehicleRecord)) {
	s.vehicles.Each(func(id uint32, rec *VehicleRecord) {
		vid := host.VehicleID(id)
		if live(vid) {
			fn(vid, rec)
		}
	})
}
