package recovery

import "sync/atomic"

// Requests is the deferred trigger pair for maintenance operations. Arbitrary
// caller contexts (UI thread, scheduler) set a flag; the tick loop drains it
// at the next tick boundary. Running the scan synchronously from the caller
// would re-enter registries the tick path is mutating.
type Requests struct {
	sweep    atomic.Bool
	clearAll atomic.Bool
}

// RequestSweep schedules a recovery sweep for the next tick boundary.
// Requesting twice before the drain coalesces into one run.
func (r *Requests) RequestSweep() { r.sweep.Store(true) }

// RequestClearVehicles schedules a bulk vehicle clear for the next tick
// boundary.
func (r *Requests) RequestClearVehicles() { r.clearAll.Store(true) }

// Drain consumes and returns both pending flags.
func (r *Requests) Drain() (sweep, clearAll bool) {
	return r.sweep.Swap(false), r.clearAll.Swap(false)
}
