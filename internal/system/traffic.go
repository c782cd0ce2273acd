package system

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	coresys "github.com/parkwise/simext/internal/core/system"
	"github.com/parkwise/simext/internal/extstate"
	"github.com/parkwise/simext/internal/gate"
	"github.com/parkwise/simext/internal/host"
	"github.com/parkwise/simext/internal/pathmode"
	"github.com/parkwise/simext/internal/simhost"
)

const (
	cruiseSpeed float32 = 13.9 // ~50 km/h default speed limit
	maxAccel    float32 = 3.0  // m/s^2 applied toward the gate's max speed
	dwellTicks          = 40   // parked time before the return trip starts
	returnLegs          = 3    // segments crossed before a return trip ends
)

// TrafficSystem is the reference host's vehicle-update path: it spawns
// trips, steps vehicles along the ring, and invokes the transition gate for
// vehicles near a node boundary — the same call the real host makes once per
// vehicle per tick. Phase 2 (Update).
type TrafficSystem struct {
	world   *simhost.World
	store   *extstate.Store
	machine *pathmode.Machine
	gate    *gate.Gate
	log     *zap.Logger

	targetActive int
	dwell        map[host.VehicleID]int
	legs         map[host.VehicleID]int
	rng          *rand.Rand
}

func NewTrafficSystem(world *simhost.World, store *extstate.Store, machine *pathmode.Machine, g *gate.Gate, targetActive int, seed int64, log *zap.Logger) *TrafficSystem {
	return &TrafficSystem{
		world:        world,
		store:        store,
		machine:      machine,
		gate:         g,
		log:          log,
		targetActive: targetActive,
		dwell:        make(map[host.VehicleID]int),
		legs:         make(map[host.VehicleID]int),
		rng:          rand.New(rand.NewSource(seed)),
	}
}

func (s *TrafficSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *TrafficSystem) Update(dt time.Duration) {
	if !s.world.Clock.Advance() {
		return // clock paused (recovery sweep in progress)
	}
	s.world.Paths.Tick()
	s.spawnTrips()

	vehicles := s.world.VehicleView()
	for i := 1; i < vehicles.Len(); i++ {
		id := host.VehicleID(i)
		veh := vehicles.Vehicle(id)
		if !veh.Flags.Has(host.VehicleCreated) {
			continue
		}
		s.stepVehicle(id, veh, dt)
	}
}

func (s *TrafficSystem) spawnTrips() {
	vehicles := s.world.VehicleView()
	active := 0
	for i := 1; i < vehicles.Len(); i++ {
		if vehicles.Vehicle(host.VehicleID(i)).Flags.Has(host.VehicleCreated) {
			active++
		}
	}
	for ; active < s.targetActive; active++ {
		vid, ok := s.world.CreateVehicle(4.5+s.rng.Float32(), 5)
		if !ok {
			return
		}
		cid, ok := s.world.CreateCitizen()
		if !ok {
			s.world.ReleaseVehicle(vid)
			return
		}
		veh := vehicles.Vehicle(vid)
		veh.Driver = cid
		s.world.CitizenView().Citizen(cid).Vehicle = vid

		start := s.randomPos()
		end := s.randomPos()
		veh.Position = start
		veh.LastPos = start
		dest := s.world.Geom.EndNode(end.Segment)
		if err := s.machine.BeginTrip(vid, start, end, dest); err != nil {
			s.log.Warn("spawn: trip rejected", zap.Uint32("vehicle", uint32(vid)), zap.Error(err))
			s.world.ReleaseVehicle(vid)
			s.world.ReleaseCitizen(cid)
			return
		}
	}
}

func (s *TrafficSystem) stepVehicle(id host.VehicleID, veh *host.Vehicle, dt time.Duration) {
	rec := s.store.Vehicle(id)

	switch rec.Mode {
	case extstate.ModePathRequested:
		veh.Speed = 0
		return

	case extstate.ModeFailed:
		// Terminal for the trip; the host AI's consequence here is despawn.
		s.despawn(id, veh)
		return

	case extstate.ModeParked:
		veh.Speed = 0
		s.dwell[id]++
		if s.dwell[id] >= dwellTicks {
			delete(s.dwell, id)
			end := s.randomPos()
			if err := s.machine.RequestReturnPath(veh.Driver, veh.Position, end); err != nil {
				s.log.Warn("return trip rejected", zap.Uint32("vehicle", uint32(id)), zap.Error(err))
			}
		}
		return

	case extstate.ModeWaitingForReturnPath:
		veh.Speed = 0
		return

	case extstate.ModeReturnPathReady:
		if err := s.machine.BeginReturnTrip(veh.Driver, id); err == nil {
			drv := s.world.CitizenView().Citizen(veh.Driver)
			drv.ParkedVehicle = 0
			veh.Flags = veh.Flags.Clear(host.VehicleParking)
		}
		return
	}

	// Driving modes: move along the lane, consult the gate near the node.
	x, y := s.world.Geom.SegmentXY(veh.Position.Segment)
	decision := s.gate.Evaluate(id, veh, x, y, cruiseSpeed)

	// Mode may have just changed inside the gate's decision delegate.
	rec = s.store.Vehicle(id)
	if rec.Mode == extstate.ModeParked {
		s.onParked(id, veh)
		return
	}

	s.applySpeed(veh, decision.MaxSpeed, dt)
	s.advance(id, veh, decision.Advance, dt)
}

func (s *TrafficSystem) onParked(id host.VehicleID, veh *host.Vehicle) {
	veh.Speed = 0
	veh.Flags = veh.Flags.Clear(host.VehicleParking)
	if veh.Driver != 0 {
		s.world.CitizenView().Citizen(veh.Driver).ParkedVehicle = id
	}
}

func (s *TrafficSystem) applySpeed(veh *host.Vehicle, target float32, dt time.Duration) {
	step := maxAccel * float32(dt.Seconds())
	switch {
	case veh.Speed < target-step:
		veh.Speed += step
	case veh.Speed > target+step:
		veh.Speed -= step
	default:
		veh.Speed = target
	}
}

func (s *TrafficSystem) advance(id host.VehicleID, veh *host.Vehicle, allowed bool, dt time.Duration) {
	rec := s.store.Vehicle(id)
	if rec.Mode == extstate.ModeParking {
		veh.Flags = veh.Flags.Set(host.VehicleParking)
	}

	length := s.world.Geom.LaneLength(veh.Position.Segment, veh.Position.Lane)
	meters := veh.Speed * float32(dt.Seconds())
	off := float32(veh.Position.Offset) + meters/length*255

	if off < 255 {
		veh.Position.Offset = uint8(off)
		return
	}
	if !allowed {
		veh.Position.Offset = 254 // hold at the boundary
		return
	}
	veh.LastPos = veh.Position
	veh.Position.Segment = s.world.Geom.NextSegment(veh.Position.Segment)
	veh.Position.Offset = 0

	if rec.Mode == extstate.ModeDrivingToReturnTarget {
		s.legs[id]++
		if s.legs[id] >= returnLegs {
			s.despawn(id, veh) // trip complete
		}
	}
}

func (s *TrafficSystem) despawn(id host.VehicleID, veh *host.Vehicle) {
	delete(s.dwell, id)
	delete(s.legs, id)
	driver := veh.Driver
	s.world.ReleaseVehicle(id)
	if driver != 0 {
		s.world.ReleaseCitizen(driver)
	}
}

func (s *TrafficSystem) randomPos() host.PathPos {
	return host.PathPos{
		Segment: uint16(1 + s.rng.Intn(s.world.Geom.Segments())),
		Lane:    0,
		Offset:  uint8(s.rng.Intn(100)),
	}
}
