package pathmode

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parkwise/simext/internal/config"
	"github.com/parkwise/simext/internal/data"
	"github.com/parkwise/simext/internal/extstate"
	"github.com/parkwise/simext/internal/host"
	"github.com/parkwise/simext/internal/simhost"
)

const testParkingYAML = `
locations:
  - location_id: 1
    kind: road_side
    segment: 2
    lane: 0
    offset: 200
    capacity: 1
    x: 0
    y: 0
  - location_id: 2
    kind: building_lot
    segment: 3
    lane: 0
    offset: 100
    capacity: 2
    x: 30
    y: 0
`

func testTable(t *testing.T) *data.ParkingTable {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parking_list.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testParkingYAML), 0o644))
	table, err := data.LoadParkingTable(path)
	require.NoError(t, err)
	return table
}

func testMachine(t *testing.T, table *data.ParkingTable) (*Machine, *extstate.Store, *simhost.PathManager) {
	t.Helper()
	store := extstate.NewStore(16, 16)
	paths := simhost.NewPathManager(1, 0, 64)
	cfg := config.ParkingConfig{
		MaxFailedAttempts:  3,
		SearchRadius:       100,
		CandidateCount:     8,
		EmergencyBrakeMult: 2,
	}
	return NewMachine(store, paths, table, nil, cfg, zap.NewNop()), store, paths
}

// driveToParked walks vehicle 1 / citizen 1 through the full trip protocol
// up to Parked.
func driveToParked(t *testing.T, m *Machine, store *extstate.Store, paths *simhost.PathManager) {
	t.Helper()
	start := host.PathPos{Segment: 1, Offset: 10}
	end := host.PathPos{Segment: 2, Offset: 200}

	require.NoError(t, m.BeginTrip(1, start, end, 3))
	paths.WaitAll()
	m.OnVehiclePathReady(1, store.Vehicle(1).Path)
	require.NoError(t, m.ArriveAtTarget(1, 1, 3))
	require.True(t, m.SearchParkingSpace(1, 1, 0, 0))
	require.NoError(t, m.BeginParking(1, 1))
	require.NoError(t, m.FinishParking(1, 1))
}

func TestBeginTripSubmitsOnce(t *testing.T) {
	m, store, paths := testMachine(t, testTable(t))

	require.NoError(t, m.BeginTrip(1, host.PathPos{Segment: 1}, host.PathPos{Segment: 2}, 3))
	rec := store.Vehicle(1)
	assert.Equal(t, extstate.ModePathRequested, rec.Mode)
	assert.NotZero(t, rec.Path)
	assert.Equal(t, host.PathPending, rec.PathState)
	assert.Equal(t, uint16(3), rec.TargetNode)
	assert.Equal(t, 1, paths.Live())

	// A second trip while one is in flight is rejected, never stacked.
	err := m.BeginTrip(1, host.PathPos{Segment: 1}, host.PathPos{Segment: 2}, 3)
	require.ErrorIs(t, err, ErrBadTransition)
	assert.Equal(t, 1, paths.Live())
}

func TestVehiclePathReadyIgnoresStaleHandle(t *testing.T) {
	m, store, _ := testMachine(t, testTable(t))
	require.NoError(t, m.BeginTrip(1, host.PathPos{Segment: 1}, host.PathPos{Segment: 2}, 3))

	m.OnVehiclePathReady(1, store.Vehicle(1).Path+100)
	assert.Equal(t, extstate.ModePathRequested, store.Vehicle(1).Mode)

	m.OnVehiclePathReady(1, store.Vehicle(1).Path)
	assert.Equal(t, extstate.ModeDrivingToTarget, store.Vehicle(1).Mode)
	assert.Equal(t, host.PathReady, store.Vehicle(1).PathState)
}

func TestVehiclePathFailedReleasesHandle(t *testing.T) {
	m, store, paths := testMachine(t, testTable(t))
	require.NoError(t, m.BeginTrip(1, host.PathPos{Segment: 1}, host.PathPos{Segment: 2}, 3))

	m.OnVehiclePathFailed(1, store.Vehicle(1).Path)
	rec := store.Vehicle(1)
	assert.Equal(t, extstate.ModeFailed, rec.Mode)
	assert.Zero(t, rec.Path)
	assert.Equal(t, host.PathFailed, rec.PathState)
	assert.Equal(t, 0, paths.Live())
}

func TestSearchReservesSpaceAtomically(t *testing.T) {
	m, store, paths := testMachine(t, testTable(t))
	require.NoError(t, m.BeginTrip(1, host.PathPos{Segment: 1}, host.PathPos{Segment: 2}, 3))
	paths.WaitAll()
	m.OnVehiclePathReady(1, store.Vehicle(1).Path)
	require.NoError(t, m.ArriveAtTarget(1, 1, 3))

	require.True(t, m.SearchParkingSpace(1, 1, 0, 0))

	drv := store.Citizen(1)
	// Location id and kind land together; nearest-first picks location 1.
	assert.Equal(t, uint32(1), drv.Space.LocationID)
	assert.Equal(t, extstate.ParkingKindRoadSide, drv.Space.Kind)
	assert.Equal(t, host.PathPos{Segment: 2, Lane: 0, Offset: 200}, drv.ParkingPathStart)
	assert.Zero(t, drv.FailedParkingAttempts)
	assert.Equal(t, extstate.ModeApproachingParkingSpace, drv.Mode)
	assert.Equal(t, extstate.ModeApproachingParkingSpace, store.Vehicle(1).Mode)
	assert.Equal(t, 1, m.Reserved(1))
}

func TestSearchRespectsCapacity(t *testing.T) {
	m, store, paths := testMachine(t, testTable(t))

	for _, ids := range [][2]uint32{{1, 1}, {2, 2}, {3, 3}} {
		v, c := host.VehicleID(ids[0]), host.CitizenID(ids[1])
		require.NoError(t, m.BeginTrip(v, host.PathPos{Segment: 1}, host.PathPos{Segment: 2}, 3))
		paths.WaitAll()
		m.OnVehiclePathReady(v, store.Vehicle(v).Path)
		require.NoError(t, m.ArriveAtTarget(v, c, 3))
		require.True(t, m.SearchParkingSpace(v, c, 0, 0))
	}

	// Location 1 holds one car, location 2 two; capacity is exhausted in
	// nearest-first order.
	assert.Equal(t, uint32(1), store.Citizen(1).Space.LocationID)
	assert.Equal(t, uint32(2), store.Citizen(2).Space.LocationID)
	assert.Equal(t, uint32(2), store.Citizen(3).Space.LocationID)
	assert.Equal(t, 1, m.Reserved(1))
	assert.Equal(t, 2, m.Reserved(2))
}

func TestSearchFailureHitsAttemptLimit(t *testing.T) {
	m, store, paths := testMachine(t, testTable(t))
	require.NoError(t, m.BeginTrip(1, host.PathPos{Segment: 1}, host.PathPos{Segment: 2}, 3))
	paths.WaitAll()
	m.OnVehiclePathReady(1, store.Vehicle(1).Path)
	require.NoError(t, m.ArriveAtTarget(1, 1, 3))

	drv := store.Citizen(1)

	// Searching far from every location: no candidates in radius.
	assert.False(t, m.SearchParkingSpace(1, 1, 10000, 0))
	assert.Equal(t, uint8(1), drv.FailedParkingAttempts)
	assert.Equal(t, extstate.ModeSearchingParkingSpace, drv.Mode)

	assert.False(t, m.SearchParkingSpace(1, 1, 10000, 0))
	assert.Equal(t, uint8(2), drv.FailedParkingAttempts)

	assert.False(t, m.SearchParkingSpace(1, 1, 10000, 0))
	assert.Equal(t, extstate.ModeFailed, drv.Mode)
	assert.Equal(t, extstate.ModeFailed, store.Vehicle(1).Mode)
	// The counter holds at the limit, it never wraps past it.
	assert.Equal(t, uint8(3), drv.FailedParkingAttempts)

	// Further attempts in the terminal state change nothing.
	assert.False(t, m.SearchParkingSpace(1, 1, 10000, 0))
	assert.Equal(t, uint8(3), drv.FailedParkingAttempts)
}

func TestFinishParkingReleasesTripHandle(t *testing.T) {
	m, store, paths := testMachine(t, testTable(t))
	driveToParked(t, m, store, paths)

	rec := store.Vehicle(1)
	assert.Equal(t, extstate.ModeParked, rec.Mode)
	assert.Zero(t, rec.Path)
	assert.Equal(t, host.PathNone, rec.PathState)
	assert.Equal(t, extstate.ModeParked, store.Citizen(1).Mode)
	assert.Zero(t, store.Citizen(1).FailedParkingAttempts)
	assert.Equal(t, 0, paths.Live())
	// The reservation outlives the maneuver; it drops at departure.
	assert.Equal(t, 1, m.Reserved(1))
}

func TestRequestReturnPathRejectsOverlap(t *testing.T) {
	m, store, paths := testMachine(t, testTable(t))
	driveToParked(t, m, store, paths)

	require.NoError(t, m.RequestReturnPath(1, host.PathPos{Segment: 2}, host.PathPos{Segment: 1}))
	drv := store.Citizen(1)
	assert.Equal(t, extstate.ModeWaitingForReturnPath, drv.Mode)
	assert.NotZero(t, drv.ReturnPath)
	assert.Equal(t, host.PathPending, drv.ReturnPathState)

	// Force the mode back while the request is still pending: the single
	// outstanding handle is what blocks, not the mode.
	drv.Mode = extstate.ModeParked
	err := m.RequestReturnPath(1, host.PathPos{Segment: 2}, host.PathPos{Segment: 1})
	require.ErrorIs(t, err, ErrRequestOutstanding)
	assert.Equal(t, 1, paths.Live())
}

func TestReturnPathLifecycle(t *testing.T) {
	m, store, paths := testMachine(t, testTable(t))
	driveToParked(t, m, store, paths)

	require.NoError(t, m.RequestReturnPath(1, host.PathPos{Segment: 2}, host.PathPos{Segment: 1}))
	paths.WaitAll()
	drv := store.Citizen(1)
	m.OnReturnPathReady(1, drv.ReturnPath)
	assert.Equal(t, extstate.ModeReturnPathReady, drv.Mode)
	assert.Equal(t, host.PathReady, drv.ReturnPathState)

	require.NoError(t, m.BeginReturnTrip(1, 1))
	assert.Equal(t, extstate.ModeDrivingToReturnTarget, drv.Mode)
	assert.Equal(t, extstate.ModeDrivingToReturnTarget, store.Vehicle(1).Mode)
	// Departure clears the pair together and drops the reservation.
	assert.True(t, drv.Space.None())
	assert.Equal(t, host.PathPos{}, drv.ParkingPathStart)
	assert.Equal(t, 0, m.Reserved(1))
}

func TestReturnPathFailedReleasesHandle(t *testing.T) {
	m, store, paths := testMachine(t, testTable(t))
	driveToParked(t, m, store, paths)

	require.NoError(t, m.RequestReturnPath(1, host.PathPos{Segment: 2}, host.PathPos{Segment: 1}))
	drv := store.Citizen(1)
	m.OnReturnPathFailed(1, drv.ReturnPath)
	assert.Equal(t, extstate.ModeFailed, drv.Mode)
	assert.Zero(t, drv.ReturnPath)
	assert.Equal(t, host.PathFailed, drv.ReturnPathState)
	assert.Equal(t, 0, paths.Live())
}

func TestResetReleasesEverything(t *testing.T) {
	m, store, paths := testMachine(t, testTable(t))
	driveToParked(t, m, store, paths)
	require.NoError(t, m.RequestReturnPath(1, host.PathPos{Segment: 2}, host.PathPos{Segment: 1}))

	m.ResetCitizen(1)
	m.ResetVehicle(1)

	assert.Equal(t, extstate.CitizenRecord{}, *store.Citizen(1))
	assert.Equal(t, extstate.VehicleRecord{}, *store.Vehicle(1))
	assert.Equal(t, 0, m.Reserved(1))
	assert.Equal(t, 0, paths.Live())
}

func TestResetIsIdempotent(t *testing.T) {
	m, store, paths := testMachine(t, testTable(t))
	driveToParked(t, m, store, paths)

	m.ResetCitizen(1)
	m.ResetCitizen(1)
	m.ResetVehicle(1)
	m.ResetVehicle(1)
	assert.Equal(t, extstate.CitizenRecord{}, *store.Citizen(1))
	assert.Equal(t, 0, paths.Live())
}

func TestUpdateParkedCarDistance(t *testing.T) {
	m, store, _ := testMachine(t, testTable(t))

	assert.True(t, m.UpdateParkedCarDistance(1, 50))
	assert.True(t, m.UpdateParkedCarDistance(1, 40))
	assert.False(t, m.UpdateParkedCarDistance(1, 45))
	assert.Equal(t, float32(45), store.Citizen(1).LastDistanceToParked)
}
