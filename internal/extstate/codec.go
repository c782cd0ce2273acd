package extstate

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/parkwise/simext/internal/host"
)

// CitizenRow is the persisted shape of one citizen record. Field order
// matches the export tuple the host's save layer expects.
type CitizenRow struct {
	ID                    uint32
	Mode                  uint8
	FailedParkingAttempts uint8
	ParkingLocationID     uint32
	ParkingKind           uint8
	StartSegment          uint16
	StartLane             uint8
	StartOffset           uint8
	ReturnPath            uint32
	ReturnPathState       uint8
	LastDistanceToParked  float32
}

// VehicleRow is the persisted shape of one vehicle record.
type VehicleRow struct {
	ID         uint32
	Mode       uint8
	Path       uint32
	PathState  uint8
	TargetNode uint16
}

// Snapshot is one full export of the store.
type Snapshot struct {
	Citizens []CitizenRow
	Vehicles []VehicleRow
}

// Export serializes every live record. A record that fails validation is
// skipped and logged so one bad slot does not lose the rest; ok is false
// when any record was skipped. Idle records are omitted — the zero record
// is reproducible from nothing.
func (s *Store) Export(liveCitizen func(host.CitizenID) bool, liveVehicle func(host.VehicleID) bool, log *zap.Logger) (Snapshot, bool) {
	snap := Snapshot{}
	ok := true

	s.ForEachValidCitizen(liveCitizen, func(id host.CitizenID, rec *CitizenRecord) {
		if rec.Mode == ModeIdle && rec.Space.None() && rec.ReturnPath == 0 {
			return
		}
		if err := validateCitizen(rec); err != nil {
			log.Warn("export: skipping citizen record",
				zap.Uint32("id", uint32(id)), zap.Error(err))
			ok = false
			return
		}
		snap.Citizens = append(snap.Citizens, CitizenRow{
			ID:                    uint32(id),
			Mode:                  uint8(rec.Mode),
			FailedParkingAttempts: rec.FailedParkingAttempts,
			ParkingLocationID:     rec.Space.LocationID,
			ParkingKind:           uint8(rec.Space.Kind),
			StartSegment:          rec.ParkingPathStart.Segment,
			StartLane:             rec.ParkingPathStart.Lane,
			StartOffset:           rec.ParkingPathStart.Offset,
			ReturnPath:            uint32(rec.ReturnPath),
			ReturnPathState:       uint8(rec.ReturnPathState),
			LastDistanceToParked:  rec.LastDistanceToParked,
		})
	})

	s.ForEachValidVehicle(liveVehicle, func(id host.VehicleID, rec *VehicleRecord) {
		if rec.Mode == ModeIdle && rec.Path == 0 {
			return
		}
		if !rec.Mode.Valid() {
			log.Warn("export: skipping vehicle record",
				zap.Uint32("id", uint32(id)), zap.Uint8("mode", uint8(rec.Mode)))
			ok = false
			return
		}
		snap.Vehicles = append(snap.Vehicles, VehicleRow{
			ID:         uint32(id),
			Mode:       uint8(rec.Mode),
			Path:       uint32(rec.Path),
			PathState:  uint8(rec.PathState),
			TargetNode: rec.TargetNode,
		})
	})

	return snap, ok
}

// Import restores records from a snapshot. Best-effort per record: a
// malformed row is skipped and logged, the remaining rows still apply, and
// ok reports false when anything was skipped. Slots not named in the
// snapshot are left untouched; callers wanting a clean slate reset first.
func (s *Store) Import(snap Snapshot, log *zap.Logger) bool {
	ok := true

	for _, row := range snap.Citizens {
		rec, err := citizenFromRow(row)
		if err != nil {
			log.Warn("import: skipping citizen record",
				zap.Uint32("id", row.ID), zap.Error(err))
			ok = false
			continue
		}
		if !s.citizens.InRange(row.ID) {
			log.Warn("import: citizen id out of range", zap.Uint32("id", row.ID))
			ok = false
			continue
		}
		*s.citizens.Get(row.ID) = rec
	}

	for _, row := range snap.Vehicles {
		if !PathMode(row.Mode).Valid() {
			log.Warn("import: skipping vehicle record",
				zap.Uint32("id", row.ID), zap.Uint8("mode", row.Mode))
			ok = false
			continue
		}
		if !s.vehicles.InRange(row.ID) {
			log.Warn("import: vehicle id out of range", zap.Uint32("id", row.ID))
			ok = false
			continue
		}
		*s.vehicles.Get(row.ID) = VehicleRecord{
			Mode:       PathMode(row.Mode),
			Path:       host.PathID(row.Path),
			PathState:  host.PathState(row.PathState),
			TargetNode: row.TargetNode,
		}
	}

	return ok
}

func validateCitizen(rec *CitizenRecord) error {
	if !rec.Mode.Valid() {
		return fmt.Errorf("invalid mode %d", rec.Mode)
	}
	if !rec.Space.Kind.Valid() {
		return fmt.Errorf("invalid parking kind %d", rec.Space.Kind)
	}
	if (rec.Space.LocationID != 0) != (rec.Space.Kind != ParkingKindNone) {
		return fmt.Errorf("parking pair out of sync: location %d kind %s",
			rec.Space.LocationID, rec.Space.Kind)
	}
	return nil
}

func citizenFromRow(row CitizenRow) (CitizenRecord, error) {
	rec := CitizenRecord{
		Mode:                  PathMode(row.Mode),
		FailedParkingAttempts: row.FailedParkingAttempts,
		Space: ParkingSpace{
			LocationID: row.ParkingLocationID,
			Kind:       ParkingKind(row.ParkingKind),
		},
		ParkingPathStart: host.PathPos{
			Segment: row.StartSegment,
			Lane:    row.StartLane,
			Offset:  row.StartOffset,
		},
		ReturnPath:           host.PathID(row.ReturnPath),
		ReturnPathState:      host.PathState(row.ReturnPathState),
		LastDistanceToParked: row.LastDistanceToParked,
	}
	if err := validateCitizen(&rec); err != nil {
		return CitizenRecord{}, err
	}
	// An idle mode with dangling assignments would violate the store
	// invariant the moment it lands in a slot.
	if rec.Mode == ModeIdle && (!rec.Space.None() || rec.ReturnPath != 0) {
		return CitizenRecord{}, fmt.Errorf("idle record with live assignments")
	}
	return rec, nil
}
