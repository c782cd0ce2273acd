package event

import "github.com/parkwise/simext/internal/host"

// EntityKind distinguishes the two registries an event can refer to.
type EntityKind uint8

const (
	KindCitizen EntityKind = iota
	KindVehicle
)

// EntityRef names one entity slot in one registry.
type EntityRef struct {
	Kind EntityKind
	ID   uint32
}

func CitizenRef(id host.CitizenID) EntityRef {
	return EntityRef{Kind: KindCitizen, ID: uint32(id)}
}

func VehicleRef(id host.VehicleID) EntityRef {
	return EntityRef{Kind: KindVehicle, ID: uint32(id)}
}

// PathCompleted fires when the path manager finishes computing a request.
// Failed requests carry Ready=false.
type PathCompleted struct {
	Path  host.PathID
	Owner EntityRef
	Ready bool
}

// EntityReleased fires when the host releases a citizen instance or vehicle
// slot; the cleanup system resets the matching extended records.
type EntityReleased struct {
	Entity EntityRef
}
