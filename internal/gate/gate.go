// Package gate implements the per-tick segment-transition decision for
// vehicles approaching a node boundary. The gate only decides; it mutates no
// state of its own, and only the state machine it delegates to transitions
// records.
package gate

import (
	"github.com/parkwise/simext/internal/extstate"
	"github.com/parkwise/simext/internal/host"
	"github.com/parkwise/simext/internal/pathmode"
)

// Speeds applied on the parking branches, m/s. Tuned alongside the braking
// formula; changing one without the other causes visible stutter at nodes.
const (
	creepSpeed    float32 = 0.4
	approachSpeed float32 = 7.5
)

// Decision is the gate's verdict for one vehicle for one tick. MaxSpeed is
// always populated, including when advancement is blocked, so the caller can
// apply it directly.
type Decision struct {
	Advance  bool
	MaxSpeed float32
}

// Gate evaluates segment transitions. Stateless apart from its collaborators.
type Gate struct {
	geom          host.LaneGeometry
	machine       *pathmode.Machine
	store         *extstate.Store
	emergencyMult float32
}

func New(geom host.LaneGeometry, machine *pathmode.Machine, store *extstate.Store, emergencyMult float32) *Gate {
	if emergencyMult <= 0 {
		emergencyMult = 1
	}
	return &Gate{geom: geom, machine: machine, store: store, emergencyMult: emergencyMult}
}

// BrakingDistance reproduces the host's stopping-distance formula: squared
// speed over twice the deceleration, plus half the vehicle length, minus one
// meter of slack. The half-length term and the -1 are empirically tuned in
// the host; they are pinned here for behavioral parity, not re-derived.
func (g *Gate) BrakingDistance(veh *host.Vehicle) float32 {
	decel := veh.MaxBraking
	if veh.Flags.Has(host.VehicleEmergency) {
		decel *= g.emergencyMult
	}
	if decel <= 0 {
		decel = 1
	}
	d := veh.Speed*veh.Speed/(decel*2) + veh.Length*0.5 - 1
	if d < 0 {
		d = 0
	}
	return d
}

// Evaluate is invoked once per vehicle per tick when the vehicle is near a
// node boundary. defaultSpeed is the host's own speed calculation for this
// position; the gate returns it untouched whenever parking logic does not
// apply. Invalid segment or lane ids in the positions are a precondition
// violation and panic inside the geometry lookups.
func (g *Gate) Evaluate(v host.VehicleID, veh *host.Vehicle, x, y, defaultSpeed float32) Decision {
	approaching := g.approachingNode(veh.Position)
	_ = g.leavingNode(veh.LastPos) // curTargetNode: resolved for parity, decision keys off the approach node

	remaining := g.distanceToBoundary(veh.Position)
	if remaining > g.BrakingDistance(veh) {
		// Out of decision range: defer entirely to the host's default
		// speed logic. Parking branches must not run here.
		return Decision{Advance: true, MaxSpeed: defaultSpeed}
	}

	return g.decide(v, veh, approaching, x, y, defaultSpeed)
}

// decide runs the parking-aware branch once the vehicle is within braking
// distance of the boundary node.
func (g *Gate) decide(v host.VehicleID, veh *host.Vehicle, node uint16, x, y, defaultSpeed float32) Decision {
	rec := g.store.Vehicle(v)
	driver := veh.Driver

	switch rec.Mode {
	case extstate.ModeDrivingToTarget:
		if rec.TargetNode != 0 && rec.TargetNode != node {
			// Not the destination node: ordinary transit.
			return Decision{Advance: true, MaxSpeed: defaultSpeed}
		}
		if err := g.machine.ArriveAtTarget(v, driver, node); err != nil {
			return Decision{Advance: true, MaxSpeed: defaultSpeed}
		}
		return Decision{Advance: false, MaxSpeed: creepSpeed}

	case extstate.ModeSearchingParkingSpace:
		// One search attempt per tick while the vehicle holds at the node.
		if g.machine.SearchParkingSpace(v, driver, x, y) {
			return Decision{Advance: true, MaxSpeed: approachSpeed}
		}
		if g.store.Vehicle(v).Mode == extstate.ModeFailed {
			// Retries exhausted; the host's AI owns the consequence.
			return Decision{Advance: true, MaxSpeed: defaultSpeed}
		}
		return Decision{Advance: false, MaxSpeed: creepSpeed}

	case extstate.ModeApproachingParkingSpace:
		start := g.store.Citizen(driver).ParkingPathStart
		if start.Segment != veh.Position.Segment {
			return Decision{Advance: true, MaxSpeed: approachSpeed}
		}
		if err := g.machine.BeginParking(v, driver); err != nil {
			return Decision{Advance: true, MaxSpeed: approachSpeed}
		}
		return Decision{Advance: false, MaxSpeed: creepSpeed}

	case extstate.ModeParking:
		if err := g.machine.FinishParking(v, driver); err == nil {
			return Decision{Advance: false, MaxSpeed: 0}
		}
		return Decision{Advance: false, MaxSpeed: creepSpeed}

	default:
		return Decision{Advance: true, MaxSpeed: defaultSpeed}
	}
}

// approachingNode resolves the node ahead of the vehicle from the offset
// ordering of its current position: high offsets run toward the segment's
// end node, low offsets toward its start node.
func (g *Gate) approachingNode(pos host.PathPos) uint16 {
	if pos.Offset >= 128 {
		return g.geom.EndNode(pos.Segment)
	}
	return g.geom.StartNode(pos.Segment)
}

// leavingNode resolves the node behind the vehicle from its previous
// position: the inverse ordering of approachingNode.
func (g *Gate) leavingNode(pos host.PathPos) uint16 {
	if pos.Offset >= 128 {
		return g.geom.StartNode(pos.Segment)
	}
	return g.geom.EndNode(pos.Segment)
}

// distanceToBoundary converts the remaining offset fraction into meters on
// the current lane.
func (g *Gate) distanceToBoundary(pos host.PathPos) float32 {
	length := g.geom.LaneLength(pos.Segment, pos.Lane)
	var frac float32
	if pos.Offset >= 128 {
		frac = float32(255-pos.Offset) / 255
	} else {
		frac = float32(pos.Offset) / 255
	}
	return length * frac
}
