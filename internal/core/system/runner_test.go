package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeSystem struct {
	phase Phase
	name  string
	log   *[]string
}

func (f *fakeSystem) Phase() Phase { return f.phase }
func (f *fakeSystem) Update(time.Duration) {
	*f.log = append(*f.log, f.name)
}

func TestRunnerExecutesInPhaseOrder(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(&fakeSystem{phase: PhaseCleanup, name: "cleanup", log: &log})
	r.Register(&fakeSystem{phase: PhaseInput, name: "input", log: &log})
	r.Register(&fakeSystem{phase: PhaseUpdate, name: "update", log: &log})

	r.Tick(time.Millisecond)
	assert.Equal(t, []string{"input", "update", "cleanup"}, log)
}

func TestRunnerKeepsRegistrationOrderWithinPhase(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(&fakeSystem{phase: PhaseUpdate, name: "first", log: &log})
	r.Register(&fakeSystem{phase: PhaseUpdate, name: "second", log: &log})

	r.Tick(time.Millisecond)
	r.Tick(time.Millisecond)
	assert.Equal(t, []string{"first", "second", "first", "second"}, log)
}

func TestRunnerResortsAfterLateRegistration(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(&fakeSystem{phase: PhaseUpdate, name: "update", log: &log})
	r.Tick(time.Millisecond)

	r.Register(&fakeSystem{phase: PhaseInput, name: "input", log: &log})
	log = nil
	r.Tick(time.Millisecond)
	assert.Equal(t, []string{"input", "update"}, log)
}
