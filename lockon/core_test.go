package lockon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoreEmptySetAfterLock(t *testing.T) {
	core := NewCoreDefault()
	decision := core.Step(CandidateSet{NewCandidate(800, 800, 0.9)}, NewPoint(0, 0), epoch)
	require.True(t, decision.Selection.Acquired)
	require.True(t, core.Tracker().Locked())

	decision = core.Step(CandidateSet{}, NewPoint(0, 0), epoch.Add(time.Millisecond))
	assert.Equal(t, Idle(), decision.Intent)
	assert.True(t, decision.Selection.Lost)
	assert.False(t, core.Tracker().Locked())
	assert.Zero(t, decision.Distance)
}

func TestCoreCommitReleasesLock(t *testing.T) {
	core := NewCore(NewTrackerDefault(), NewController(ControllerOptions{Smoothing: 0.5, ClickThreshold: 40, Cooldown: time.Second}))
	decision := core.Step(CandidateSet{NewCandidate(505, 500, 0.9)}, NewPoint(500, 500), epoch)
	assert.Equal(t, Commit(), decision.Intent)
	assert.True(t, decision.Released)
	assert.InDelta(t, 5.0, decision.Distance, 1e-9)
	assert.False(t, core.Tracker().Locked())
}

// Two frames within click threshold separated by less than cooldown: exactly one commit and one idle
func TestCoreCommitGating(t *testing.T) {
	core := NewCore(NewTrackerDefault(), NewController(ControllerOptions{Smoothing: 0.5, ClickThreshold: 40, Cooldown: 100 * time.Millisecond}))
	candidates := CandidateSet{NewCandidate(505, 500, 0.9)}
	pointer := NewPoint(500, 500)

	first := core.Step(candidates, pointer, epoch)
	second := core.Step(candidates, pointer, epoch.Add(30*time.Millisecond))

	commits := 0
	idles := 0
	for _, decision := range []Decision{first, second} {
		switch decision.Intent.Kind {
		case IntentCommit:
			commits++
		case IntentIdle:
			idles++
		}
	}
	assert.Equal(t, 1, commits)
	assert.Equal(t, 1, idles)
	// Re-acquired after the commit and waiting out the cooldown on target
	assert.True(t, second.Selection.Acquired)
	assert.True(t, core.Tracker().Locked())
}

// Stationary target, pointer follows the intents: distance never grows until the commit
func TestCoreConvergence(t *testing.T) {
	for _, smoothing := range []float64{0.1, 0.3, 0.5, 0.9} {
		core := NewCore(NewTrackerDefault(), NewController(ControllerOptions{Smoothing: smoothing, ClickThreshold: 8, Cooldown: time.Second}))
		candidates := CandidateSet{NewCandidate(640, 360, 0.9)}
		pointer := NewPoint(600, 330)
		now := epoch
		prevDistSq := pointer.DistanceSq(candidates[0].Center)
		committed := false
		for tick := 0; tick < 200 && !committed; tick++ {
			decision := core.Step(candidates, pointer, now)
			require.True(t, decision.Selection.HasTarget)
			switch decision.Intent.Kind {
			case IntentMove:
				pointer.X += decision.Intent.DX
				pointer.Y += decision.Intent.DY
			case IntentCommit:
				committed = true
			}
			distSq := pointer.DistanceSq(candidates[0].Center)
			assert.LessOrEqual(t, distSq, prevDistSq, "smoothing %v tick %d", smoothing, tick)
			prevDistSq = distSq
			now = now.Add(16 * time.Millisecond)
		}
		assert.True(t, committed, "smoothing %v never committed", smoothing)
	}
}

func TestCoreNoCandidateInRange(t *testing.T) {
	core := NewCore(NewTracker(TrackerOptions{LockTolerance: 50, MaxTargetDistance: 100}), NewControllerDefault())
	decision := core.Step(CandidateSet{NewCandidate(900, 900, 0.9)}, NewPoint(0, 0), epoch)
	assert.False(t, decision.Selection.HasTarget)
	assert.Equal(t, Idle(), decision.Intent)
}

func TestCoreReset(t *testing.T) {
	core := NewCoreDefault()
	core.Step(CandidateSet{NewCandidate(100, 100, 0.9)}, NewPoint(0, 0), epoch)
	assert.True(t, core.Reset())
	assert.False(t, core.Reset())
}
