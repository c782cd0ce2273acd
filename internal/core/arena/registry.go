package arena

// Resettable is implemented by every extended-state store so the release
// registry can clear an entity's data from all stores when the host's
// release notification fires.
type Resettable interface {
	Reset(id uint32)
}

// ResetFunc adapts a plain function to Resettable.
type ResetFunc func(id uint32)

func (f ResetFunc) Reset(id uint32) { f(id) }

// ReleaseRegistry fans one release notification out to every registered
// store. The host fires release for an id exactly once per entity lifetime;
// the registry performs no liveness checks of its own.
type ReleaseRegistry struct {
	stores []Resettable
}

func NewReleaseRegistry() *ReleaseRegistry {
	return &ReleaseRegistry{stores: make([]Resettable, 0, 8)}
}

// Register adds a store to the registry.
func (r *ReleaseRegistry) Register(store Resettable) {
	r.stores = append(r.stores, store)
}

// Release resets the given id in every registered store.
func (r *ReleaseRegistry) Release(id uint32) {
	for _, s := range r.stores {
		s.Reset(id)
	}
}
