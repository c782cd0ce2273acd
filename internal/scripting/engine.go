package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for parking policy decisions.
// Single-goroutine access only (tick loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all policy scripts from the given
// directory. Missing directories are not an error; the built-in scoring then
// applies everywhere.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	for _, sub := range []string{"core", "policy"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

func (e *Engine) Close() {
	e.vm.Close()
}

// CandidateContext holds pre-packed data for one parking-candidate scoring
// call.
type CandidateContext struct {
	LocationID     uint32
	Kind           string // "road_side" or "building_lot"
	Capacity       int
	Distance       float64 // meters from the trip target
	FailedAttempts int     // the searching entity's failure count so far
	MaxAttempts    int
}

// CandidateResult is returned by the Lua scoring function. Higher scores win;
// Accept=false removes the candidate outright.
type CandidateResult struct {
	Score  float64
	Accept bool
}

// defaultScore is the built-in fallback: prefer the nearest space, road-side
// over lots on ties.
func defaultScore(ctx CandidateContext) CandidateResult {
	score := -ctx.Distance
	if ctx.Kind == "road_side" {
		score += 0.5
	}
	return CandidateResult{Score: score, Accept: true}
}

// ScoreParkingCandidate calls the Lua score_parking_candidate function,
// falling back to built-in scoring when the function is absent or errors.
func (e *Engine) ScoreParkingCandidate(ctx CandidateContext) CandidateResult {
	fn := e.vm.GetGlobal("score_parking_candidate")
	if fn == lua.LNil {
		return defaultScore(ctx)
	}

	t := e.vm.NewTable()
	t.RawSetString("location_id", lua.LNumber(ctx.LocationID))
	t.RawSetString("kind", lua.LString(ctx.Kind))
	t.RawSetString("capacity", lua.LNumber(ctx.Capacity))
	t.RawSetString("distance", lua.LNumber(ctx.Distance))
	t.RawSetString("failed_attempts", lua.LNumber(ctx.FailedAttempts))
	t.RawSetString("max_attempts", lua.LNumber(ctx.MaxAttempts))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua score_parking_candidate error", zap.Error(err))
		return defaultScore(ctx)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		e.log.Error("lua score_parking_candidate returned non-table")
		return defaultScore(ctx)
	}

	return CandidateResult{
		Score:  float64(lua.LVAsNumber(rt.RawGetString("score"))),
		Accept: rt.RawGetString("accept") != lua.LFalse,
	}
}
