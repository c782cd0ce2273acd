// Package arena provides fixed-capacity value-slot storage indexed by a
// stable numeric id. Identity is the array index: slots are allocated once at
// construction, reset on release, and never individually destroyed, matching
// the host simulation's own entity-identity scheme and avoiding allocation
// churn at tick frequency.
package arena

import "fmt"

// Arena owns exactly cap value slots of T. The zero value of T is the
// "idle" record; Reset restores it.
type Arena[T any] struct {
	slots []T
}

// New allocates an arena with the given fixed capacity.
func New[T any](capacity int) *Arena[T] {
	return &Arena[T]{slots: make([]T, capacity)}
}

// Cap is the fixed slot count.
func (a *Arena[T]) Cap() int { return len(a.slots) }

// Get returns a pointer to the slot for id. There is no not-found case:
// every id in range has a pre-allocated slot. An out-of-range id is a
// programming error and panics.
func (a *Arena[T]) Get(id uint32) *T {
	if int(id) >= len(a.slots) {
		panic(fmt.Sprintf("arena: id %d out of range [0, %d)", id, len(a.slots)))
	}
	return &a.slots[id]
}

// InRange reports whether id addresses a valid slot.
func (a *Arena[T]) InRange(id uint32) bool {
	return int(id) < len(a.slots)
}

// Reset restores the slot for id to the zero value.
func (a *Arena[T]) Reset(id uint32) {
	var zero T
	*a.Get(id) = zero
}

// ResetAll restores every slot. Called on session teardown.
func (a *Arena[T]) ResetAll() {
	for i := range a.slots {
		var zero T
		a.slots[i] = zero
	}
}

// Each applies fn to every slot in index order.
func (a *Arena[T]) Each(fn func(id uint32, rec *T)) {
	for i := range a.slots {
		fn(uint32(i), &a.slots[i])
	}
}
