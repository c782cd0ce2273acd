package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTable(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parking_list.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoadParkingTable(t *testing.T) {
	table, err := LoadParkingTable(writeTable(t, `
locations:
  - location_id: 1
    kind: road_side
    segment: 2
    lane: 0
    offset: 200
    capacity: 4
    x: 10
    y: 0
  - location_id: 2
    kind: building_lot
    segment: 3
    lane: 1
    offset: 100
    capacity: 20
    x: 50
    y: 5
`))
	require.NoError(t, err)
	assert.Equal(t, 2, table.Count())

	loc := table.Get(1)
	require.NotNil(t, loc)
	assert.Equal(t, "road_side", loc.Kind)
	assert.Equal(t, uint16(2), loc.Segment)
	assert.Equal(t, 4, loc.Capacity)

	assert.Nil(t, table.Get(99))
}

func TestLoadParkingTableRejectsZeroID(t *testing.T) {
	_, err := LoadParkingTable(writeTable(t, `
locations:
  - location_id: 0
    kind: road_side
`))
	require.Error(t, err)
}

func TestLoadParkingTableRejectsUnknownKind(t *testing.T) {
	_, err := LoadParkingTable(writeTable(t, `
locations:
  - location_id: 1
    kind: garage
`))
	require.Error(t, err)
}

func TestLoadParkingTableRejectsDuplicates(t *testing.T) {
	_, err := LoadParkingTable(writeTable(t, `
locations:
  - location_id: 1
    kind: road_side
  - location_id: 1
    kind: building_lot
`))
	require.Error(t, err)
}

func TestLoadParkingTableMissingFile(t *testing.T) {
	_, err := LoadParkingTable(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestNearFiltersByRadiusAndMax(t *testing.T) {
	table, err := LoadParkingTable(writeTable(t, `
locations:
  - location_id: 1
    kind: road_side
    x: 0
    y: 0
  - location_id: 2
    kind: road_side
    x: 30
    y: 40
  - location_id: 3
    kind: road_side
    x: 500
    y: 0
`))
	require.NoError(t, err)

	near := table.Near(0, 0, 50, 10)
	require.Len(t, near, 2)
	assert.Equal(t, uint32(1), near[0].LocationID)
	assert.Equal(t, uint32(2), near[1].LocationID)

	assert.Len(t, table.Near(0, 0, 50, 1), 1)
	assert.Empty(t, table.Near(0, 0, 50, 0))
	assert.Len(t, table.Near(0, 0, 1000, 10), 3)
}

func TestEachVisitsFileOrder(t *testing.T) {
	table, err := LoadParkingTable(writeTable(t, `
locations:
  - location_id: 5
    kind: road_side
  - location_id: 2
    kind: road_side
  - location_id: 9
    kind: road_side
`))
	require.NoError(t, err)

	var ids []uint32
	table.Each(func(loc *ParkingLocation) { ids = append(ids, loc.LocationID) })
	assert.Equal(t, []uint32{5, 2, 9}, ids)
}
