package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	assert.Equal(t, start, clock.Now())

	clock.Advance(time.Second)
	assert.Equal(t, start.Add(time.Second), clock.Now())
	assert.Equal(t, time.Second, clock.Since(start))

	clock.AutoStep(10 * time.Millisecond)
	first := clock.Now()
	second := clock.Now()
	assert.Equal(t, 10*time.Millisecond, second.Sub(first))

	clock.Set(start)
	assert.Equal(t, start, clock.Now())
}

func TestRealClock(t *testing.T) {
	var clock Clock = RealClock{}
	before := time.Now()
	now := clock.Now()
	assert.False(t, now.Before(before))
	assert.GreaterOrEqual(t, clock.Since(before), time.Duration(0))
}
