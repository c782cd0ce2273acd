package simhost

import "sync"

// Clock is the reference host's pausable simulation clock. Pause calls nest:
// each pass of the recovery sweep pauses and resumes independently.
type Clock struct {
	mu    sync.Mutex
	depth int
	ticks uint64
}

func (c *Clock) Pause() {
	c.mu.Lock()
	c.depth++
	c.mu.Unlock()
}

func (c *Clock) Resume() {
	c.mu.Lock()
	if c.depth > 0 {
		c.depth--
	}
	c.mu.Unlock()
}

func (c *Clock) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.depth > 0
}

// Advance counts one simulation tick; paused clocks hold still.
func (c *Clock) Advance() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.depth > 0 {
		return false
	}
	c.ticks++
	return true
}

func (c *Clock) Ticks() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}
