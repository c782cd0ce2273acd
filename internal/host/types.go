package host

// CitizenID indexes the host's citizen-instance registry. Stable for the
// lifetime of the instance, reused after release.
type CitizenID uint32

// VehicleID indexes the host's vehicle registry.
type VehicleID uint32

// PathID is an opaque handle for an in-flight or completed path request in
// the host's path manager. Zero means "no path".
type PathID uint32

// PathState reports the lifecycle of a submitted path request.
type PathState uint8

const (
	PathNone PathState = iota
	PathPending
	PathReady
	PathFailed
)

func (s PathState) String() string {
	switch s {
	case PathNone:
		return "none"
	case PathPending:
		return "pending"
	case PathReady:
		return "ready"
	case PathFailed:
		return "failed"
	}
	return "unknown"
}

// PathPos identifies a point along the host's road network: a segment, a lane
// on that segment, and a sub-segment offset in [0, 255] (the host quantizes
// offsets to a byte, matching its own path units).
type PathPos struct {
	Segment uint16
	Lane    uint8
	Offset  uint8
}

// IsZero reports whether the position is unset.
func (p PathPos) IsZero() bool {
	return p == PathPos{}
}
