package simhost

import "fmt"

// RingRoad is a synthetic network: segments 1..n joined end to start in a
// loop. Node i sits between segment i and segment i+1. Segment 0 is reserved
// as the invalid id, matching the host's 0-means-none convention.
type RingRoad struct {
	segments int
	lanes    int
	lengths  []float32
}

func NewRingRoad(segments, lanes int, baseLength float32) *RingRoad {
	if segments < 2 {
		segments = 2
	}
	if lanes < 1 {
		lanes = 1
	}
	lengths := make([]float32, segments+1)
	for i := 1; i <= segments; i++ {
		// Deterministic variation so braking-distance decisions differ
		// across segments.
		lengths[i] = baseLength + float32(i%5)*10
	}
	return &RingRoad{segments: segments, lanes: lanes, lengths: lengths}
}

func (r *RingRoad) Segments() int { return r.segments }
func (r *RingRoad) Lanes() int    { return r.lanes }

func (r *RingRoad) LaneLength(segment uint16, lane uint8) float32 {
	r.check(segment, lane)
	return r.lengths[segment]
}

// EndNode is the node at the high-offset end of a segment.
func (r *RingRoad) EndNode(segment uint16) uint16 {
	r.check(segment, 0)
	if int(segment) == r.segments {
		return 1
	}
	return segment + 1
}

// StartNode is the node at the low-offset end.
func (r *RingRoad) StartNode(segment uint16) uint16 {
	r.check(segment, 0)
	return segment
}

// NextSegment follows the ring past a segment's end node.
func (r *RingRoad) NextSegment(segment uint16) uint16 {
	r.check(segment, 0)
	if int(segment) == r.segments {
		return 1
	}
	return segment + 1
}

// SegmentXY maps a segment to a representative world coordinate, used to
// anchor parking-candidate searches around a vehicle.
func (r *RingRoad) SegmentXY(segment uint16) (float32, float32) {
	r.check(segment, 0)
	return float32(segment-1) * 120, 0
}

func (r *RingRoad) check(segment uint16, lane uint8) {
	if segment == 0 || int(segment) > r.segments {
		panic(fmt.Sprintf("geometry: invalid segment %d", segment))
	}
	if int(lane) >= r.lanes {
		panic(fmt.Sprintf("geometry: invalid lane %d on segment %d", lane, segment))
	}
}
