package host

// CitizenFlags mirrors the host's combined citizen-instance flag word.
// Modeled as a named bit set so recovery logic reads as intent, not masks.
type CitizenFlags uint16

const (
	CitizenCreated CitizenFlags = 1 << iota
	CitizenWaitingPath
	CitizenEnteringVehicle
	CitizenBored
	CitizenWaitingTaxi
)

// CitizenWaitingMask is the flag group cleared together when a stuck
// citizen instance is repaired.
const CitizenWaitingMask = CitizenWaitingPath | CitizenEnteringVehicle | CitizenBored | CitizenWaitingTaxi

func (f CitizenFlags) Has(mask CitizenFlags) bool { return f&mask != 0 }
func (f CitizenFlags) Set(mask CitizenFlags) CitizenFlags {
	return f | mask
}
func (f CitizenFlags) Clear(mask CitizenFlags) CitizenFlags {
	return f &^ mask
}

// VehicleFlags mirrors the host's vehicle flag word.
type VehicleFlags uint16

const (
	VehicleCreated VehicleFlags = 1 << iota
	VehicleWaitingPath
	VehicleParking
	VehicleEmergency
	VehicleSpawned
)

func (f VehicleFlags) Has(mask VehicleFlags) bool { return f&mask != 0 }
func (f VehicleFlags) Set(mask VehicleFlags) VehicleFlags {
	return f | mask
}
func (f VehicleFlags) Clear(mask VehicleFlags) VehicleFlags {
	return f &^ mask
}
