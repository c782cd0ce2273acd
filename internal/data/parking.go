// Package data loads static simulation tables from YAML.
package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParkingLocation holds static data for one parking location loaded from YAML.
type ParkingLocation struct {
	LocationID uint32  `yaml:"location_id"`
	Kind       string  `yaml:"kind"` // "road_side" or "building_lot"
	Segment    uint16  `yaml:"segment"`
	Lane       uint8   `yaml:"lane"`
	Offset     uint8   `yaml:"offset"`
	Capacity   int     `yaml:"capacity"`
	X          float32 `yaml:"x"`
	Y          float32 `yaml:"y"`
}

type parkingListFile struct {
	Locations []ParkingLocation `yaml:"locations"`
}

// ParkingTable holds all parking locations indexed by LocationID.
type ParkingTable struct {
	locations map[uint32]*ParkingLocation
	order     []uint32 // deterministic iteration for candidate scans
}

// LoadParkingTable loads parking locations from a YAML file.
func LoadParkingTable(path string) (*ParkingTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read parking_list: %w", err)
	}
	var f parkingListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse parking_list: %w", err)
	}
	t := &ParkingTable{
		locations: make(map[uint32]*ParkingLocation, len(f.Locations)),
		order:     make([]uint32, 0, len(f.Locations)),
	}
	for i := range f.Locations {
		loc := &f.Locations[i]
		if loc.LocationID == 0 {
			return nil, fmt.Errorf("parking_list: location with id 0 at entry %d", i)
		}
		if loc.Kind != "road_side" && loc.Kind != "building_lot" {
			return nil, fmt.Errorf("parking_list: location %d has unknown kind %q", loc.LocationID, loc.Kind)
		}
		if _, dup := t.locations[loc.LocationID]; dup {
			return nil, fmt.Errorf("parking_list: duplicate location id %d", loc.LocationID)
		}
		t.locations[loc.LocationID] = loc
		t.order = append(t.order, loc.LocationID)
	}
	return t, nil
}

// Get returns a parking location by ID, or nil if not found.
func (t *ParkingTable) Get(id uint32) *ParkingLocation {
	return t.locations[id]
}

// Count returns the number of loaded locations.
func (t *ParkingTable) Count() int {
	return len(t.locations)
}

// Each applies fn to every location in file order.
func (t *ParkingTable) Each(fn func(*ParkingLocation)) {
	for _, id := range t.order {
		fn(t.locations[id])
	}
}

// Near returns up to max locations within radius of (x, y), in file order.
func (t *ParkingTable) Near(x, y, radius float32, max int) []*ParkingLocation {
	if max <= 0 {
		return nil
	}
	out := make([]*ParkingLocation, 0, max)
	r2 := radius * radius
	for _, id := range t.order {
		loc := t.locations[id]
		dx := loc.X - x
		dy := loc.Y - y
		if dx*dx+dy*dy <= r2 {
			out = append(out, loc)
			if len(out) == max {
				break
			}
		}
	}
	return out
}
