// Package host declares the collaborator interfaces this extension requires
// from the simulation it augments. The host's registries, path manager, and
// clock are global singletons on its side; here they are explicit injected
// dependencies so the core stays testable in isolation.
package host

// Citizen is the host's view of one citizen instance slot.
type Citizen struct {
	Flags         CitizenFlags
	Path          PathID    // current path handle, 0 = none
	ParkedVehicle VehicleID // linked parked car, 0 = none
	Vehicle       VehicleID // vehicle currently occupied, 0 = none
}

// Vehicle is the host's view of one vehicle slot.
type Vehicle struct {
	Flags      VehicleFlags
	Path       PathID
	Driver     CitizenID // citizen instance driving, 0 = none
	Speed      float32   // current speed, m/s
	Length     float32   // vehicle length, m
	MaxBraking float32   // braking deceleration, m/s^2
	Position   PathPos   // current path position
	LastPos    PathPos   // previous path position
}

// CitizenRegistry exposes the host's fixed-capacity citizen-instance array.
type CitizenRegistry interface {
	// Len is the fixed capacity, not a live count.
	Len() int
	// Citizen returns a pointer into the registry slot. id must be < Len.
	Citizen(id CitizenID) *Citizen
	// Lock/Unlock guard full-population scans against the tick path.
	Lock()
	Unlock()
}

// VehicleRegistry exposes the host's fixed-capacity vehicle array.
type VehicleRegistry interface {
	Len() int
	Vehicle(id VehicleID) *Vehicle
	Lock()
	Unlock()
}

// PathManager is the host's path-search subsystem. Handles are opaque; this
// extension never inspects route contents, only request lifecycle.
type PathManager interface {
	// Submit queues a path search from start to end. A zero start means
	// "from current position". Returns 0 and an error when the request
	// queue is exhausted.
	Submit(start, end PathPos) (PathID, error)
	// Release frees a handle. Releasing 0 or an unknown handle is a
	// precondition violation on the host side.
	Release(id PathID)
	// State reports the request lifecycle for a handle.
	State(id PathID) PathState
	// WaitAll blocks until no request is mid-computation. Used only by the
	// recovery sweep before mutating flags the path threads read.
	WaitAll()
}

// Clock controls the host's simulation clock. Pause calls nest.
type Clock interface {
	Pause()
	Resume()
	Paused() bool
}

// LaneGeometry answers geometric queries about segments and lanes.
type LaneGeometry interface {
	// LaneLength returns the length in meters of the given lane. Invalid
	// segment or lane ids are a precondition violation (panic).
	LaneLength(segment uint16, lane uint8) float32
	// EndNode returns the node id at the high-offset end of a segment;
	// StartNode the low-offset end.
	EndNode(segment uint16) uint16
	StartNode(segment uint16) uint16
}
