package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: rotate event bus, dispatch path completions
	PhasePreUpdate               // 1: drain deferred maintenance requests
	PhaseUpdate                  // 2: step vehicles through the transition gate
	PhasePostUpdate              // 3: progress tracking, diagnostics
	PhasePersist                 // 4: periodic extended-state snapshot
	PhaseCleanup                 // 5: reset released entity slots
)

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
