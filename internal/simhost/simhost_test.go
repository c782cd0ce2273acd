package simhost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkwise/simext/internal/core/event"
	"github.com/parkwise/simext/internal/host"
)

func TestPathManagerResolvesAfterLatency(t *testing.T) {
	p := NewPathManager(2, 0, 8)
	id, err := p.Submit(host.PathPos{Segment: 1}, host.PathPos{Segment: 2})
	require.NoError(t, err)
	require.NotZero(t, id)

	assert.Equal(t, host.PathPending, p.State(id))
	p.Tick()
	assert.Equal(t, host.PathPending, p.State(id))
	p.Tick()
	assert.Equal(t, host.PathReady, p.State(id))

	p.Release(id)
	assert.Equal(t, host.PathNone, p.State(id))
	assert.Equal(t, 0, p.Live())
}

func TestPathManagerFailsEveryNth(t *testing.T) {
	p := NewPathManager(1, 3, 16)
	var states []host.PathState
	for i := 0; i < 6; i++ {
		id, err := p.Submit(host.PathPos{}, host.PathPos{Segment: 1})
		require.NoError(t, err)
		p.WaitAll()
		states = append(states, p.State(id))
	}
	assert.Equal(t, []host.PathState{
		host.PathReady, host.PathReady, host.PathFailed,
		host.PathReady, host.PathReady, host.PathFailed,
	}, states)
}

func TestPathManagerQueueExhaustion(t *testing.T) {
	p := NewPathManager(1, 0, 2)
	_, err := p.Submit(host.PathPos{}, host.PathPos{})
	require.NoError(t, err)
	_, err = p.Submit(host.PathPos{}, host.PathPos{})
	require.NoError(t, err)
	_, err = p.Submit(host.PathPos{}, host.PathPos{})
	require.Error(t, err)
}

func TestPathManagerPanicsOnUnknownRelease(t *testing.T) {
	p := NewPathManager(1, 0, 8)
	require.Panics(t, func() { p.Release(42) })

	id, _ := p.Submit(host.PathPos{}, host.PathPos{})
	p.Release(id)
	require.Panics(t, func() { p.Release(id) })
}

func TestPathManagerWaitAllFastForwards(t *testing.T) {
	p := NewPathManager(10, 0, 8)
	id, _ := p.Submit(host.PathPos{}, host.PathPos{})
	p.WaitAll()
	assert.Equal(t, host.PathReady, p.State(id))
}

func TestClockPauseNests(t *testing.T) {
	c := &Clock{}
	assert.True(t, c.Advance())

	c.Pause()
	c.Pause()
	assert.True(t, c.Paused())
	assert.False(t, c.Advance())

	c.Resume()
	assert.True(t, c.Paused())
	c.Resume()
	assert.False(t, c.Paused())
	assert.True(t, c.Advance())
	assert.Equal(t, uint64(2), c.Ticks())
}

func TestWorldSlotReuse(t *testing.T) {
	w := NewWorld(4, 4, NewPathManager(1, 0, 8), NewRingRoad(4, 1, 100))

	cid, ok := w.CreateCitizen()
	require.True(t, ok)
	assert.Equal(t, host.CitizenID(1), cid, "slot 0 is reserved")

	w.ReleaseCitizen(cid)
	cid2, ok := w.CreateCitizen()
	require.True(t, ok)
	assert.Equal(t, cid, cid2)
}

func TestWorldRegistryExhaustion(t *testing.T) {
	w := NewWorld(3, 3, NewPathManager(1, 0, 8), NewRingRoad(4, 1, 100))
	_, ok := w.CreateVehicle(4, 5)
	require.True(t, ok)
	_, ok = w.CreateVehicle(4, 5)
	require.True(t, ok)
	_, ok = w.CreateVehicle(4, 5)
	assert.False(t, ok)
}

func TestWorldReleaseNotifications(t *testing.T) {
	w := NewWorld(4, 4, NewPathManager(1, 0, 8), NewRingRoad(4, 1, 100))
	cid, _ := w.CreateCitizen()
	vid, _ := w.CreateVehicle(4, 5)

	w.ReleaseCitizen(cid)
	w.ReleaseVehicle(vid)

	refs := w.DrainReleased()
	require.Len(t, refs, 2)
	assert.Equal(t, event.CitizenRef(cid), refs[0])
	assert.Equal(t, event.VehicleRef(vid), refs[1])

	assert.Empty(t, w.DrainReleased())
}

func TestRingRoadWrapsAround(t *testing.T) {
	r := NewRingRoad(4, 2, 100)

	assert.Equal(t, uint16(2), r.EndNode(1))
	assert.Equal(t, uint16(1), r.EndNode(4))
	assert.Equal(t, uint16(3), r.StartNode(3))
	assert.Equal(t, uint16(1), r.NextSegment(4))
}

func TestRingRoadLaneLengthVaries(t *testing.T) {
	r := NewRingRoad(6, 1, 100)
	assert.Equal(t, float32(110), r.LaneLength(1, 0))
	assert.Equal(t, float32(100), r.LaneLength(5, 0))
}

func TestRingRoadPanicsOnInvalidIDs(t *testing.T) {
	r := NewRingRoad(4, 1, 100)
	require.Panics(t, func() { r.LaneLength(0, 0) })
	require.Panics(t, func() { r.LaneLength(5, 0) })
	require.Panics(t, func() { r.LaneLength(1, 1) })
}
