package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	coresys "github.com/parkwise/simext/internal/core/system"
	"github.com/parkwise/simext/internal/extstate"
	"github.com/parkwise/simext/internal/host"
)

// SnapshotSaver is what autosave needs from the persistence layer.
// *persist.SnapshotRepo satisfies it.
type SnapshotSaver interface {
	Save(ctx context.Context, snap extstate.Snapshot) error
}

// AutosaveSystem exports the extended state every interval ticks and hands
// it to the snapshot repo. Phase 4 (Persist). A nil saver disables it.
type AutosaveSystem struct {
	store    *extstate.Store
	saver    SnapshotSaver
	citizens host.CitizenRegistry
	vehicles host.VehicleRegistry
	log      *zap.Logger

	interval int
	elapsed  int
}

func NewAutosaveSystem(store *extstate.Store, saver SnapshotSaver, citizens host.CitizenRegistry, vehicles host.VehicleRegistry, interval int, log *zap.Logger) *AutosaveSystem {
	return &AutosaveSystem{
		store:    store,
		saver:    saver,
		citizens: citizens,
		vehicles: vehicles,
		log:      log,
		interval: interval,
	}
}

func (s *AutosaveSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *AutosaveSystem) Update(_ time.Duration) {
	if s.saver == nil || s.interval <= 0 {
		return
	}
	s.elapsed++
	if s.elapsed < s.interval {
		return
	}
	s.elapsed = 0
	s.SaveNow()
}

// SaveNow exports and persists immediately. Also called on shutdown.
func (s *AutosaveSystem) SaveNow() {
	if s.saver == nil {
		return
	}
	snap, ok := s.store.Export(
		func(id host.CitizenID) bool { return s.citizens.Citizen(id).Flags.Has(host.CitizenCreated) },
		func(id host.VehicleID) bool { return s.vehicles.Vehicle(id).Flags.Has(host.VehicleCreated) },
		s.log,
	)
	if !ok {
		s.log.Warn("autosave: some records skipped during export")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.saver.Save(ctx, snap); err != nil {
		s.log.Error("autosave failed", zap.Error(err))
		return
	}
	s.log.Info("autosave complete",
		zap.Int("citizens", len(snap.Citizens)), zap.Int("vehicles", len(snap.Vehicles)))
}
