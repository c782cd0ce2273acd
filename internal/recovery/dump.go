package recovery

import (
	"go.uber.org/zap"

	"github.com/parkwise/simext/internal/extstate"
	"github.com/parkwise/simext/internal/host"
)

// DumpDiagnostics logs a summary of the extended-state population, one
// section at a time. Sections are fault-isolated: a panic in one is logged
// and the remaining sections still run. Read-only; safe between ticks.
func (s *Sweep) DumpDiagnostics() {
	s.runSection("citizen-modes", s.dumpCitizenModes)
	s.runSection("vehicle-modes", s.dumpVehicleModes)
	s.runSection("parking-assignments", s.dumpParkingAssignments)
}

func (s *Sweep) runSection(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("diagnostics: section failed",
				zap.String("section", name), zap.Any("panic", r))
		}
	}()
	fn()
}

func (s *Sweep) dumpCitizenModes() {
	s.citizens.Lock()
	defer s.citizens.Unlock()

	var counts [16]int
	live := 0
	for i := 0; i < s.citizens.Len(); i++ {
		id := host.CitizenID(i)
		if !s.citizens.Citizen(id).Flags.Has(host.CitizenCreated) {
			continue
		}
		live++
		mode := s.store.Citizen(id).Mode
		if int(mode) < len(counts) {
			counts[mode]++
		}
	}
	fields := []zap.Field{zap.Int("live", live)}
	for m, n := range counts {
		if n > 0 {
			fields = append(fields, zap.Int(extstate.PathMode(m).String(), n))
		}
	}
	s.log.Info("diagnostics: citizen modes", fields...)
}

func (s *Sweep) dumpVehicleModes() {
	s.vehicles.Lock()
	defer s.vehicles.Unlock()

	var counts [16]int
	live, withPath := 0, 0
	for i := 0; i < s.vehicles.Len(); i++ {
		id := host.VehicleID(i)
		if !s.vehicles.Vehicle(id).Flags.Has(host.VehicleCreated) {
			continue
		}
		live++
		rec := s.store.Vehicle(id)
		if rec.Path != 0 {
			withPath++
		}
		if int(rec.Mode) < len(counts) {
			counts[rec.Mode]++
		}
	}
	fields := []zap.Field{zap.Int("live", live), zap.Int("with_path", withPath)}
	for m, n := range counts {
		if n > 0 {
			fields = append(fields, zap.Int(extstate.PathMode(m).String(), n))
		}
	}
	s.log.Info("diagnostics: vehicle modes", fields...)
}

func (s *Sweep) dumpParkingAssignments() {
	s.citizens.Lock()
	defer s.citizens.Unlock()

	assigned, returning := 0, 0
	for i := 0; i < s.citizens.Len(); i++ {
		id := host.CitizenID(i)
		if !s.citizens.Citizen(id).Flags.Has(host.CitizenCreated) {
			continue
		}
		rec := s.store.Citizen(id)
		if !rec.Space.None() {
			assigned++
		}
		if rec.ReturnPath != 0 {
			returning++
		}
	}
	s.log.Info("diagnostics: parking assignments",
		zap.Int("assigned_spaces", assigned), zap.Int("return_paths", returning))
}
