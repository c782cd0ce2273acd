package simhost

import (
	"fmt"
	"sync"

	"github.com/parkwise/simext/internal/host"
)

// pathRequest is one simulated route computation.
type pathRequest struct {
	state     host.PathState
	ticksLeft int
	fail      bool
}

// PathManager simulates the host's path-search subsystem: requests resolve
// after a fixed latency, a configurable fraction fail, handles must be
// released exactly once.
type PathManager struct {
	mu       sync.Mutex
	requests map[host.PathID]*pathRequest
	nextID   host.PathID
	latency  int // ticks until a request resolves
	failNth  int // every Nth request fails, 0 = never
	submits  int
	maxLive  int
}

func NewPathManager(latencyTicks, failNth, maxLive int) *PathManager {
	if latencyTicks < 1 {
		latencyTicks = 1
	}
	if maxLive <= 0 {
		maxLive = 4096
	}
	return &PathManager{
		requests: make(map[host.PathID]*pathRequest, 256),
		latency:  latencyTicks,
		failNth:  failNth,
		maxLive:  maxLive,
	}
}

func (p *PathManager) Submit(start, end host.PathPos) (host.PathID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) >= p.maxLive {
		return 0, fmt.Errorf("path manager: request queue exhausted (%d live)", len(p.requests))
	}
	p.nextID++
	p.submits++
	req := &pathRequest{state: host.PathPending, ticksLeft: p.latency}
	if p.failNth > 0 && p.submits%p.failNth == 0 {
		req.fail = true
	}
	p.requests[p.nextID] = req
	return p.nextID, nil
}

func (p *PathManager) Release(id host.PathID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.requests[id]; !ok {
		panic(fmt.Sprintf("path manager: release of unknown handle %d", id))
	}
	delete(p.requests, id)
}

func (p *PathManager) State(id host.PathID) host.PathState {
	p.mu.Lock()
	defer p.mu.Unlock()
	req, ok := p.requests[id]
	if !ok {
		return host.PathNone
	}
	return req.state
}

// WaitAll resolves every pending request immediately. The real host blocks
// until its path-find threads drain; the simulation can just fast-forward.
func (p *PathManager) WaitAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, req := range p.requests {
		if req.state == host.PathPending {
			req.ticksLeft = 0
			req.state = resolve(req)
		}
	}
}

// Tick advances pending computations by one tick.
func (p *PathManager) Tick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, req := range p.requests {
		if req.state != host.PathPending {
			continue
		}
		req.ticksLeft--
		if req.ticksLeft <= 0 {
			req.state = resolve(req)
		}
	}
}

// Live reports the number of unreleased handles.
func (p *PathManager) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func resolve(req *pathRequest) host.PathState {
	if req.fail {
		return host.PathFailed
	}
	return host.PathReady
}
