package lockon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestControllerIdleWithoutTarget(t *testing.T) {
	controller := NewControllerDefault()
	intent, release := controller.Decide(Point{}, false, NewPoint(10, 10), epoch)
	assert.Equal(t, Idle(), intent)
	assert.False(t, release)
}

func TestControllerDampedMove(t *testing.T) {
	controller := NewController(ControllerOptions{Smoothing: 0.5, ClickThreshold: 40, Cooldown: 100 * time.Millisecond})
	// target (600,500), pointer (500,500), smoothing 0.5 -> move (50,0)
	intent, release := controller.Decide(NewPoint(600, 500), true, NewPoint(500, 500), epoch)
	assert.Equal(t, Move(50, 0), intent)
	assert.False(t, release)
}

func TestControllerMoveRounding(t *testing.T) {
	controller := NewController(ControllerOptions{Smoothing: 0.5, ClickThreshold: 0})
	cases := []struct {
		target Point
		want   Intent
	}{
		{NewPoint(3, 0), Move(2, 0)},
		{NewPoint(-3, 0), Move(-2, 0)},
		{NewPoint(5, -7), Move(3, -4)},
		{NewPoint(1, 0), Move(1, 0)},
	}
	for _, tc := range cases {
		intent, _ := controller.Decide(tc.target, true, NewPoint(0, 0), epoch)
		assert.Equal(t, tc.want, intent, "target %+v", tc.target)
	}
}

func TestControllerSubPixelMoveDegradesToIdle(t *testing.T) {
	controller := NewController(ControllerOptions{Smoothing: 0.1, ClickThreshold: 0})
	intent, release := controller.Decide(NewPoint(4, 3), true, NewPoint(0, 0), epoch)
	assert.Equal(t, Idle(), intent)
	assert.False(t, release)
	assert.True(t, controller.LastAction().IsZero())
}

func TestControllerMaxStep(t *testing.T) {
	controller := NewController(ControllerOptions{Smoothing: 1.0, ClickThreshold: 5, MaxStep: 25})
	intent, _ := controller.Decide(NewPoint(400, -10), true, NewPoint(0, 0), epoch)
	assert.Equal(t, Move(25, -10), intent)
}

func TestControllerCommitWithinThreshold(t *testing.T) {
	// target (505,500), pointer (500,500), click threshold 40: 25 < 1600
	controller := NewController(ControllerOptions{Smoothing: 0.5, ClickThreshold: 40, Cooldown: 100 * time.Millisecond})
	intent, release := controller.Decide(NewPoint(505, 500), true, NewPoint(500, 500), epoch)
	assert.Equal(t, Commit(), intent)
	assert.True(t, release)
	assert.Equal(t, epoch, controller.LastAction())
	assert.Equal(t, epoch.Add(100*time.Millisecond), controller.CooldownUntil())

	// Cooldown not elapsed: idle, lock is kept
	intent, release = controller.Decide(NewPoint(505, 500), true, NewPoint(500, 500), epoch.Add(50*time.Millisecond))
	assert.Equal(t, Idle(), intent)
	assert.False(t, release)
	assert.Equal(t, epoch, controller.LastAction())

	// Exactly at cooldown boundary: allowed
	intent, release = controller.Decide(NewPoint(505, 500), true, NewPoint(500, 500), epoch.Add(100*time.Millisecond))
	assert.Equal(t, Commit(), intent)
	assert.True(t, release)
}

func TestControllerThresholdBoundaryCommits(t *testing.T) {
	controller := NewController(ControllerOptions{Smoothing: 0.5, ClickThreshold: 20})
	// dist_sq == threshold^2 is not greater than it, so this is a commit
	intent, _ := controller.Decide(NewPoint(20, 0), true, NewPoint(0, 0), epoch)
	assert.Equal(t, Commit(), intent)
}

func TestIntentString(t *testing.T) {
	assert.Equal(t, "idle", Idle().String())
	assert.Equal(t, "commit", Commit().String())
	assert.Equal(t, "move(3,-4)", Move(3, -4).String())
	assert.Equal(t, "IntentKind(9)", IntentKind(9).String())
}
