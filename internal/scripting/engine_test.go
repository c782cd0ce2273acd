package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T, policy string) *Engine {
	t.Helper()
	dir := t.TempDir()
	if policy != "" {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "policy"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "policy", "parking.lua"), []byte(policy), 0o644))
	}
	e, err := NewEngine(dir, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestScoreFallsBackWithoutScript(t *testing.T) {
	e := newTestEngine(t, "")

	res := e.ScoreParkingCandidate(CandidateContext{Kind: "road_side", Distance: 10})
	assert.True(t, res.Accept)
	assert.InDelta(t, -9.5, res.Score, 1e-9)

	res = e.ScoreParkingCandidate(CandidateContext{Kind: "building_lot", Distance: 10})
	assert.InDelta(t, -10.0, res.Score, 1e-9)
}

func TestScoreCallsLuaFunction(t *testing.T) {
	e := newTestEngine(t, `
function score_parking_candidate(c)
    return { score = c.distance * 2, accept = c.kind == "road_side" }
end
`)

	res := e.ScoreParkingCandidate(CandidateContext{Kind: "road_side", Distance: 21})
	assert.True(t, res.Accept)
	assert.InDelta(t, 42.0, res.Score, 1e-9)

	res = e.ScoreParkingCandidate(CandidateContext{Kind: "building_lot", Distance: 21})
	assert.False(t, res.Accept)
}

func TestScoreSeesFullCandidateTable(t *testing.T) {
	e := newTestEngine(t, `
function score_parking_candidate(c)
    local score = c.capacity
    if c.failed_attempts * 2 >= c.max_attempts then
        score = score + 100
    end
    return { score = score, accept = true }
end
`)

	res := e.ScoreParkingCandidate(CandidateContext{Capacity: 7, FailedAttempts: 1, MaxAttempts: 10})
	assert.InDelta(t, 7.0, res.Score, 1e-9)

	res = e.ScoreParkingCandidate(CandidateContext{Capacity: 7, FailedAttempts: 5, MaxAttempts: 10})
	assert.InDelta(t, 107.0, res.Score, 1e-9)
}

func TestScoreFallsBackOnLuaError(t *testing.T) {
	e := newTestEngine(t, `
function score_parking_candidate(c)
    error("policy exploded")
end
`)

	res := e.ScoreParkingCandidate(CandidateContext{Kind: "road_side", Distance: 4})
	assert.True(t, res.Accept)
	assert.InDelta(t, -3.5, res.Score, 1e-9)
}

func TestScoreFallsBackOnNonTableReturn(t *testing.T) {
	e := newTestEngine(t, `
function score_parking_candidate(c)
    return 5
end
`)

	res := e.ScoreParkingCandidate(CandidateContext{Kind: "building_lot", Distance: 4})
	assert.True(t, res.Accept)
	assert.InDelta(t, -4.0, res.Score, 1e-9)
}

func TestNewEngineRejectsBrokenScript(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "policy"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "policy", "bad.lua"), []byte("function ("), 0o644))

	_, err := NewEngine(dir, zap.NewNop())
	require.Error(t, err)
}
