package persist

import (
	"context"
	"fmt"

	"github.com/parkwise/simext/internal/extstate"
)

// SnapshotRepo persists whole extended-state snapshots. Each save replaces
// the previous snapshot in one transaction: a crash mid-save never leaves a
// half-written mix of two sessions.
type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Save writes the snapshot atomically.
func (r *SnapshotRepo) Save(ctx context.Context, snap extstate.Snapshot) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("snapshot begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE ext_citizen_state, ext_vehicle_state`); err != nil {
		return fmt.Errorf("snapshot truncate: %w", err)
	}

	for _, row := range snap.Citizens {
		if _, err := tx.Exec(ctx,
			`INSERT INTO ext_citizen_state
			 (id, mode, failed_attempts, parking_loc, parking_kind,
			  start_segment, start_lane, start_offset, return_path, return_state, last_distance)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			row.ID, row.Mode, row.FailedParkingAttempts, row.ParkingLocationID, row.ParkingKind,
			row.StartSegment, row.StartLane, row.StartOffset, row.ReturnPath, row.ReturnPathState,
			row.LastDistanceToParked,
		); err != nil {
			return fmt.Errorf("snapshot insert citizen %d: %w", row.ID, err)
		}
	}

	for _, row := range snap.Vehicles {
		if _, err := tx.Exec(ctx,
			`INSERT INTO ext_vehicle_state (id, mode, path, path_state, target_node)
			 VALUES ($1, $2, $3, $4, $5)`,
			row.ID, row.Mode, row.Path, row.PathState, row.TargetNode,
		); err != nil {
			return fmt.Errorf("snapshot insert vehicle %d: %w", row.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// Load reads the stored snapshot. An empty database yields an empty
// snapshot, not an error.
func (r *SnapshotRepo) Load(ctx context.Context) (extstate.Snapshot, error) {
	var snap extstate.Snapshot

	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, mode, failed_attempts, parking_loc, parking_kind,
		        start_segment, start_lane, start_offset, return_path, return_state, last_distance
		 FROM ext_citizen_state ORDER BY id`)
	if err != nil {
		return snap, fmt.Errorf("snapshot query citizens: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var row extstate.CitizenRow
		if err := rows.Scan(&row.ID, &row.Mode, &row.FailedParkingAttempts,
			&row.ParkingLocationID, &row.ParkingKind,
			&row.StartSegment, &row.StartLane, &row.StartOffset,
			&row.ReturnPath, &row.ReturnPathState, &row.LastDistanceToParked); err != nil {
			return snap, fmt.Errorf("snapshot scan citizen: %w", err)
		}
		snap.Citizens = append(snap.Citizens, row)
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("snapshot citizens: %w", err)
	}

	vrows, err := r.db.Pool.Query(ctx,
		`SELECT id, mode, path, path_state, target_node FROM ext_vehicle_state ORDER BY id`)
	if err != nil {
		return snap, fmt.Errorf("snapshot query vehicles: %w", err)
	}
	defer vrows.Close()
	for vrows.Next() {
		var row extstate.VehicleRow
		if err := vrows.Scan(&row.ID, &row.Mode, &row.Path, &row.PathState, &row.TargetNode); err != nil {
			return snap, fmt.Errorf("snapshot scan vehicle: %w", err)
		}
		snap.Vehicles = append(snap.Vehicles, row)
	}
	if err := vrows.Err(); err != nil {
		return snap, fmt.Errorf("snapshot vehicles: %w", err)
	}

	return snap, nil
}
