// Package pathmode implements the per-entity protocol that decides when to
// request a path, which parking candidate to pursue, and how a trip winds
// down: needs a path, path pending, path ready or failed, driving, parking,
// retrying, done. It never computes routes itself; the host's path manager
// does that behind an opaque handle.
package pathmode

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/parkwise/simext/internal/config"
	"github.com/parkwise/simext/internal/data"
	"github.com/parkwise/simext/internal/extstate"
	"github.com/parkwise/simext/internal/host"
	"github.com/parkwise/simext/internal/scripting"
)

// Scorer ranks one parking candidate. *scripting.Engine satisfies it; a nil
// scorer falls back to built-in nearest-first scoring.
type Scorer interface {
	ScoreParkingCandidate(scripting.CandidateContext) scripting.CandidateResult
}

// Machine drives path-mode transitions for every entity. Per-entity calls
// happen on the tick goroutine only; the machine holds no locks.
type Machine struct {
	store   *extstate.Store
	paths   host.PathManager
	parking *data.ParkingTable
	scorer  Scorer
	cfg     config.ParkingConfig
	log     *zap.Logger

	// reserved counts per parking location, kept in lockstep with the
	// records' space assignments.
	reserved map[uint32]int
}

func NewMachine(store *extstate.Store, paths host.PathManager, parking *data.ParkingTable, scorer Scorer, cfg config.ParkingConfig, log *zap.Logger) *Machine {
	return &Machine{
		store:    store,
		paths:    paths,
		parking:  parking,
		scorer:   scorer,
		cfg:      cfg,
		log:      log,
		reserved: make(map[uint32]int, 64),
	}
}

// Reserved reports the current reservation count for a parking location.
func (m *Machine) Reserved(locationID uint32) int {
	return m.reserved[locationID]
}

// ── Vehicle trip lifecycle ─────────────────────────────────────────

// BeginTrip submits the initial path request for a vehicle trip toward
// destNode. Idle → PathRequested. Overlapping requests are rejected, never
// stacked: callers must cancel through ResetVehicle first.
func (m *Machine) BeginTrip(v host.VehicleID, start, end host.PathPos, destNode uint16) error {
	rec := m.store.Vehicle(v)
	if rec.Mode != extstate.ModeIdle {
		return fmt.Errorf("begin trip for vehicle %d in mode %s: %w", v, rec.Mode, ErrBadTransition)
	}
	if rec.Path != 0 {
		return fmt.Errorf("vehicle %d holds path %d: %w", v, rec.Path, ErrRequestOutstanding)
	}
	id, err := m.paths.Submit(start, end)
	if err != nil {
		return fmt.Errorf("submit trip path for vehicle %d: %w", v, err)
	}
	rec.Mode = extstate.ModePathRequested
	rec.Path = id
	rec.PathState = host.PathPending
	rec.TargetNode = destNode
	return nil
}

// OnVehiclePathReady moves PathRequested → DrivingToTarget when the path
// manager reports success. Stale notifications for other handles are ignored.
func (m *Machine) OnVehiclePathReady(v host.VehicleID, path host.PathID) {
	rec := m.store.Vehicle(v)
	if rec.Mode != extstate.ModePathRequested || rec.Path != path {
		return
	}
	rec.Mode = extstate.ModeDrivingToTarget
	rec.PathState = host.PathReady
}

// OnVehiclePathFailed releases the failed handle and marks the trip Failed.
// The caller (the host's vehicle AI) decides the consequence; the machine
// performs no despawning.
func (m *Machine) OnVehiclePathFailed(v host.VehicleID, path host.PathID) {
	rec := m.store.Vehicle(v)
	if rec.Path != path || path == 0 {
		return
	}
	m.paths.Release(path)
	rec.Path = 0
	rec.PathState = host.PathFailed
	rec.Mode = extstate.ModeFailed
}

// ArriveAtTarget begins the parking phase once the transition gate reports
// the vehicle within braking distance of its destination node.
// DrivingToTarget → SearchingParkingSpace (for both vehicle and driver).
func (m *Machine) ArriveAtTarget(v host.VehicleID, driver host.CitizenID, node uint16) error {
	rec := m.store.Vehicle(v)
	if rec.Mode != extstate.ModeDrivingToTarget {
		return fmt.Errorf("arrive for vehicle %d in mode %s: %w", v, rec.Mode, ErrBadTransition)
	}
	rec.Mode = extstate.ModeSearchingParkingSpace
	rec.TargetNode = node
	drv := m.store.Citizen(driver)
	drv.Mode = extstate.ModeSearchingParkingSpace
	return nil
}

// ── Parking search ─────────────────────────────────────────────────

// SearchParkingSpace runs one search attempt around (x, y) for the driver of
// a searching vehicle. On success it reserves the winning space — location id
// and kind set together, never one without the other — and moves both records
// to ApproachingParkingSpace. On failure the caller must feed the outcome
// back through OnParkingSearchFailed; entry itself never bumps the counter.
func (m *Machine) SearchParkingSpace(v host.VehicleID, driver host.CitizenID, x, y float32) bool {
	rec := m.store.Vehicle(v)
	drv := m.store.Citizen(driver)
	if rec.Mode != extstate.ModeSearchingParkingSpace {
		return false
	}

	best := m.pickCandidate(drv, x, y)
	if best == nil {
		m.OnParkingSearchFailed(v, driver)
		return false
	}

	m.reserved[best.LocationID]++
	drv.Space = extstate.ParkingSpace{
		LocationID: best.LocationID,
		Kind:       kindFromTable(best.Kind),
	}
	drv.ParkingPathStart = host.PathPos{
		Segment: best.Segment,
		Lane:    best.Lane,
		Offset:  best.Offset,
	}
	drv.FailedParkingAttempts = 0
	drv.Mode = extstate.ModeApproachingParkingSpace
	rec.Mode = extstate.ModeApproachingParkingSpace
	return true
}

// OnParkingSearchFailed records one failed search outcome. At the configured
// attempt limit the trip moves to Failed instead of retrying forever.
func (m *Machine) OnParkingSearchFailed(v host.VehicleID, driver host.CitizenID) {
	rec := m.store.Vehicle(v)
	drv := m.store.Citizen(driver)
	if drv.Mode != extstate.ModeSearchingParkingSpace {
		return
	}
	if int(drv.FailedParkingAttempts) < m.cfg.MaxFailedAttempts {
		drv.FailedParkingAttempts++
	}
	if int(drv.FailedParkingAttempts) >= m.cfg.MaxFailedAttempts {
		m.releaseSpace(drv)
		drv.Mode = extstate.ModeFailed
		rec.Mode = extstate.ModeFailed
		m.log.Info("parking search abandoned",
			zap.Uint32("vehicle", uint32(v)),
			zap.Uint8("attempts", drv.FailedParkingAttempts))
	}
}

// BeginParking starts the final maneuver once the gate reports the vehicle at
// the approach-path start. ApproachingParkingSpace → Parking.
func (m *Machine) BeginParking(v host.VehicleID, driver host.CitizenID) error {
	rec := m.store.Vehicle(v)
	drv := m.store.Citizen(driver)
	if rec.Mode != extstate.ModeApproachingParkingSpace {
		return fmt.Errorf("begin parking for vehicle %d in mode %s: %w", v, rec.Mode, ErrBadTransition)
	}
	rec.Mode = extstate.ModeParking
	drv.Mode = extstate.ModeParking
	return nil
}

// FinishParking completes the maneuver. Parking → Parked; the trip path
// handle is released, the space reservation stays until departure.
func (m *Machine) FinishParking(v host.VehicleID, driver host.CitizenID) error {
	rec := m.store.Vehicle(v)
	drv := m.store.Citizen(driver)
	if rec.Mode != extstate.ModeParking {
		return fmt.Errorf("finish parking for vehicle %d in mode %s: %w", v, rec.Mode, ErrBadTransition)
	}
	if rec.Path != 0 {
		m.paths.Release(rec.Path)
		rec.Path = 0
	}
	rec.PathState = host.PathNone
	rec.Mode = extstate.ModeParked
	drv.Mode = extstate.ModeParked
	drv.FailedParkingAttempts = 0
	return nil
}

// ── Return trip ────────────────────────────────────────────────────

// RequestReturnPath submits the walk-back (or drive-back) request for a
// parked citizen. Parked → WaitingForReturnPath. A pending request is
// rejected; a completed stale handle is released before resubmitting, so at
// most one handle is ever tracked.
func (m *Machine) RequestReturnPath(c host.CitizenID, start, end host.PathPos) error {
	drv := m.store.Citizen(c)
	if drv.Mode != extstate.ModeParked {
		return fmt.Errorf("return path for citizen %d in mode %s: %w", c, drv.Mode, ErrBadTransition)
	}
	if drv.ReturnPath != 0 {
		if drv.ReturnPathState == host.PathPending {
			return fmt.Errorf("citizen %d holds return path %d: %w", c, drv.ReturnPath, ErrRequestOutstanding)
		}
		m.paths.Release(drv.ReturnPath)
		drv.ReturnPath = 0
	}
	id, err := m.paths.Submit(start, end)
	if err != nil {
		return fmt.Errorf("submit return path for citizen %d: %w", c, err)
	}
	drv.ReturnPath = id
	drv.ReturnPathState = host.PathPending
	drv.Mode = extstate.ModeWaitingForReturnPath
	return nil
}

// OnReturnPathReady moves WaitingForReturnPath → ReturnPathReady.
func (m *Machine) OnReturnPathReady(c host.CitizenID, path host.PathID) {
	drv := m.store.Citizen(c)
	if drv.Mode != extstate.ModeWaitingForReturnPath || drv.ReturnPath != path {
		return
	}
	drv.ReturnPathState = host.PathReady
	drv.Mode = extstate.ModeReturnPathReady
}

// OnReturnPathFailed releases the handle and fails the trip.
func (m *Machine) OnReturnPathFailed(c host.CitizenID, path host.PathID) {
	drv := m.store.Citizen(c)
	if drv.ReturnPath != path || path == 0 {
		return
	}
	m.paths.Release(path)
	drv.ReturnPath = 0
	drv.ReturnPathState = host.PathFailed
	drv.Mode = extstate.ModeFailed
}

// BeginReturnTrip starts driving back. ReturnPathReady →
// DrivingToReturnTarget; the parking reservation is released — the pair is
// cleared together, mirroring how it was set.
func (m *Machine) BeginReturnTrip(c host.CitizenID, v host.VehicleID) error {
	drv := m.store.Citizen(c)
	if drv.Mode != extstate.ModeReturnPathReady {
		return fmt.Errorf("begin return trip for citizen %d in mode %s: %w", c, drv.Mode, ErrBadTransition)
	}
	m.releaseSpace(drv)
	drv.ParkingPathStart = host.PathPos{}
	drv.Mode = extstate.ModeDrivingToReturnTarget
	if v != 0 {
		rec := m.store.Vehicle(v)
		rec.Mode = extstate.ModeDrivingToReturnTarget
	}
	return nil
}

// ── Canonical reset ────────────────────────────────────────────────

// ResetCitizen is the single canonical way back to Idle: outstanding handles
// are released, the reservation is dropped, every field returns to its
// default. The host's release notification funnels here too.
func (m *Machine) ResetCitizen(c host.CitizenID) {
	drv := m.store.Citizen(c)
	if drv.ReturnPath != 0 {
		m.paths.Release(drv.ReturnPath)
	}
	m.releaseSpace(drv)
	m.store.ResetCitizen(c)
}

// ResetVehicle releases the vehicle's outstanding handle and restores the
// idle record.
func (m *Machine) ResetVehicle(v host.VehicleID) {
	rec := m.store.Vehicle(v)
	if rec.Path != 0 {
		m.paths.Release(rec.Path)
	}
	m.store.ResetVehicle(v)
}

// UpdateParkedCarDistance records the walking citizen's distance to their
// parked car and reports whether progress was made since the last sample.
func (m *Machine) UpdateParkedCarDistance(c host.CitizenID, dist float32) bool {
	drv := m.store.Citizen(c)
	progress := drv.LastDistanceToParked == 0 || dist < drv.LastDistanceToParked
	drv.LastDistanceToParked = dist
	return progress
}

// ── internals ──────────────────────────────────────────────────────

func (m *Machine) pickCandidate(drv *extstate.CitizenRecord, x, y float32) *data.ParkingLocation {
	if m.parking == nil {
		return nil
	}
	candidates := m.parking.Near(x, y, m.cfg.SearchRadius, m.cfg.CandidateCount)
	var best *data.ParkingLocation
	bestScore := math.Inf(-1)
	for _, loc := range candidates {
		if loc.Capacity > 0 && m.reserved[loc.LocationID] >= loc.Capacity {
			continue
		}
		dx := float64(loc.X - x)
		dy := float64(loc.Y - y)
		ctx := scripting.CandidateContext{
			LocationID:     loc.LocationID,
			Kind:           loc.Kind,
			Capacity:       loc.Capacity,
			Distance:       math.Sqrt(dx*dx + dy*dy),
			FailedAttempts: int(drv.FailedParkingAttempts),
			MaxAttempts:    m.cfg.MaxFailedAttempts,
		}
		var res scripting.CandidateResult
		if m.scorer != nil {
			res = m.scorer.ScoreParkingCandidate(ctx)
		} else {
			res = scripting.CandidateResult{Score: -ctx.Distance, Accept: true}
		}
		if !res.Accept {
			continue
		}
		if res.Score > bestScore {
			bestScore = res.Score
			best = loc
		}
	}
	return best
}

// releaseSpace drops the record's reservation and clears the pair.
func (m *Machine) releaseSpace(drv *extstate.CitizenRecord) {
	if drv.Space.None() {
		return
	}
	if n := m.reserved[drv.Space.LocationID]; n > 1 {
		m.reserved[drv.Space.LocationID] = n - 1
	} else {
		delete(m.reserved, drv.Space.LocationID)
	}
	drv.Space = extstate.ParkingSpace{}
}

func kindFromTable(kind string) extstate.ParkingKind {
	switch kind {
	case "road_side":
		return extstate.ParkingKindRoadSide
	case "building_lot":
		return extstate.ParkingKindBuildingLot
	}
	return extstate.ParkingKindNone
}
