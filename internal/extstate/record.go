// Package extstate tracks per-entity state the host simulation does not
// store natively: path-search mode, parking-space assignment, retry counters,
// and pending return-path results. Records live in fixed-capacity arenas
// indexed by the host's own entity ids and are reset, never destroyed, when
// the host releases the entity.
package extstate

import "github.com/parkwise/simext/internal/host"

// PathMode is the per-entity protocol state for the pathfinding/parking
// state machine.
type PathMode uint8

const (
	ModeIdle PathMode = iota
	ModePathRequested
	ModeDrivingToTarget
	ModeSearchingParkingSpace
	ModeApproachingParkingSpace
	ModeParking
	ModeParked
	ModeWaitingForReturnPath
	ModeReturnPathReady
	ModeDrivingToReturnTarget
	ModeFailed

	modeCount
)

func (m PathMode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModePathRequested:
		return "path-requested"
	case ModeDrivingToTarget:
		return "driving-to-target"
	case ModeSearchingParkingSpace:
		return "searching-parking-space"
	case ModeApproachingParkingSpace:
		return "approaching-parking-space"
	case ModeParking:
		return "parking"
	case ModeParked:
		return "parked"
	case ModeWaitingForReturnPath:
		return "waiting-for-return-path"
	case ModeReturnPathReady:
		return "return-path-ready"
	case ModeDrivingToReturnTarget:
		return "driving-to-return-target"
	case ModeFailed:
		return "failed"
	}
	return "unknown"
}

// Valid reports whether m is one of the defined modes.
func (m PathMode) Valid() bool { return m < modeCount }

// ParkingKind tags where a reserved parking space lives.
type ParkingKind uint8

const (
	ParkingKindNone ParkingKind = iota
	ParkingKindRoadSide
	ParkingKindBuildingLot

	parkingKindCount
)

func (k ParkingKind) String() string {
	switch k {
	case ParkingKindNone:
		return "none"
	case ParkingKindRoadSide:
		return "road-side"
	case ParkingKindBuildingLot:
		return "building-lot"
	}
	return "unknown"
}

func (k ParkingKind) Valid() bool { return k < parkingKindCount }

// ParkingSpace is the (location id, kind) pair for a reserved space. The two
// fields are always set and cleared together; keeping them in one value type
// makes the atomicity structural.
type ParkingSpace struct {
	LocationID uint32
	Kind       ParkingKind
}

// None reports whether no space is assigned.
func (s ParkingSpace) None() bool { return s == ParkingSpace{} }

// CitizenRecord is the extended state for one citizen instance. The zero
// value is the idle record.
type CitizenRecord struct {
	Mode                  PathMode
	FailedParkingAttempts uint8
	Space                 ParkingSpace
	ParkingPathStart      host.PathPos // approach-path start; zero = not applicable
	ReturnPath            host.PathID  // outstanding return-trip request, 0 = none
	ReturnPathState       host.PathState
	LastDistanceToParked  float32 // progress heuristic toward the parked car
}

// VehicleRecord is the extended state for one vehicle. The driving vehicle
// mirrors its driver's mode so the transition gate can branch without a
// citizen lookup.
type VehicleRecord struct {
	Mode       PathMode
	Path       host.PathID // outstanding path request handle, 0 = none
	PathState  host.PathState
	TargetNode uint16 // node gating the current transition decision, 0 = none
}
