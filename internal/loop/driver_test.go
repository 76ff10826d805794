package loop

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/LdDl/lockon/internal/actuate"
	"github.com/LdDl/lockon/internal/telemetry"
	"github.com/LdDl/lockon/internal/timeutil"
	"github.com/LdDl/lockon/lockon"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	epoch         = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	errSourceDone = errors.New("no more frames")
)

type fakeFrame struct {
	detections []lockon.RawDetection
	skip       bool
	err        error
	panic      bool
}

type fakeSource struct {
	frames []fakeFrame
	next   int
}

func (s *fakeSource) Grab() (fakeFrame, bool, error) {
	if s.next >= len(s.frames) {
		return fakeFrame{}, false, errSourceDone
	}
	frame := s.frames[s.next]
	s.next++
	return frame, !frame.skip, nil
}

type fakeDetector struct {
	calls int
}

func (d *fakeDetector) Detect(frame fakeFrame) ([]lockon.RawDetection, error) {
	d.calls++
	if frame.panic {
		panic("boom")
	}
	return frame.detections, frame.err
}

// box returns a detection centered at (x, y) in model space
func box(x, y float64) lockon.RawDetection {
	return lockon.RawDetection{X1: x - 10, Y1: y - 10, X2: x + 10, Y2: y + 10, Confidence: 0.9}
}

func repeat(frame fakeFrame, n int) []fakeFrame {
	frames := make([]fakeFrame, n)
	for i := range frames {
		frames[i] = frame
	}
	return frames
}

func newTestDriver(t *testing.T, frames []fakeFrame, start lockon.Point) (*Driver[fakeFrame], *actuate.Virtual, *fakeDetector, *timeutil.MockClock) {
	t.Helper()
	clock := timeutil.NewMockClock(epoch)
	clock.AutoStep(10 * time.Millisecond)
	pointer := actuate.NewVirtual(start, image.Rectangle{}, zerolog.Nop())
	detector := &fakeDetector{}
	driver, err := New(Options[fakeFrame]{
		Source:   &fakeSource{frames: frames},
		Detector: detector,
		Actuator: pointer,
		Core:     lockon.NewCoreDefault(),
		Adapter: lockon.AdapterOptions{
			ConfThreshold: 0.5,
			InputSize:     640,
			Target:        image.Pt(640, 640),
		},
		Reporter: telemetry.NewReporter(telemetry.DefaultReporterOptions(), clock, zerolog.Nop(), nil),
		Clock:    clock,
		Logger:   zerolog.Nop(),
		IsFatal:  func(err error) bool { return errors.Is(err, errSourceDone) },
	})
	require.NoError(t, err)
	return driver, pointer, detector, clock
}

func TestDriverConvergesAndCommits(t *testing.T) {
	frames := repeat(fakeFrame{detections: []lockon.RawDetection{box(600, 500)}}, 4)
	driver, pointer, _, _ := newTestDriver(t, frames, lockon.NewPoint(500, 500))
	ctx := context.Background()

	// 100 -> 50 -> 25 -> 12 px gap, the last one is inside the click threshold
	expected := []lockon.Point{
		lockon.NewPoint(550, 500),
		lockon.NewPoint(575, 500),
		lockon.NewPoint(588, 500),
		lockon.NewPoint(588, 500),
	}
	for i, want := range expected {
		require.NoError(t, driver.Tick(ctx))
		got, _ := pointer.Position()
		assert.Equal(t, want, got, "tick %d", i)
	}
	assert.Equal(t, 3, pointer.Moves())
	assert.Equal(t, 1, pointer.Triggers())
	assert.False(t, driver.Core().Tracker().Locked(), "commit must clear the lock")

	counters := driver.Reporter().Counters()
	assert.Equal(t, int64(4), counters.Frames)
	assert.Equal(t, int64(1), counters.Acquisitions)
	assert.Equal(t, int64(1), counters.Commits)
}

func TestDriverSkipsMissingFrame(t *testing.T) {
	driver, pointer, detector, _ := newTestDriver(t, []fakeFrame{{skip: true}}, lockon.NewPoint(0, 0))
	require.NoError(t, driver.Tick(context.Background()))
	assert.Equal(t, 0, detector.calls)
	assert.Equal(t, 0, pointer.Moves())
	assert.Equal(t, int64(1), driver.Reporter().Counters().SkippedFrames)
}

func TestDriverEmptyDetectionsReleaseLock(t *testing.T) {
	frames := []fakeFrame{
		{detections: []lockon.RawDetection{box(300, 300)}},
		{},
	}
	driver, pointer, _, _ := newTestDriver(t, frames, lockon.NewPoint(0, 0))
	ctx := context.Background()

	require.NoError(t, driver.Tick(ctx))
	require.True(t, driver.Core().Tracker().Locked())
	require.NoError(t, driver.Tick(ctx))
	assert.False(t, driver.Core().Tracker().Locked())
	assert.Equal(t, 1, pointer.Moves())
	assert.Equal(t, int64(1), driver.Reporter().Counters().Losses)
}

func TestDriverErrorResetsLock(t *testing.T) {
	frames := []fakeFrame{
		{detections: []lockon.RawDetection{box(300, 300)}},
		{err: errors.New("inference failed")},
	}
	driver, _, _, _ := newTestDriver(t, frames, lockon.NewPoint(0, 0))
	ctx := context.Background()

	require.NoError(t, driver.Tick(ctx))
	require.True(t, driver.Core().Tracker().Locked())

	err := driver.Tick(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inference failed")
	assert.False(t, driver.Core().Tracker().Locked())
	assert.Equal(t, int64(1), driver.Reporter().Counters().Errors)
}

func TestDriverRecoversPanic(t *testing.T) {
	frames := []fakeFrame{
		{detections: []lockon.RawDetection{box(300, 300)}},
		{panic: true},
		{detections: []lockon.RawDetection{box(300, 300)}},
	}
	driver, _, _, _ := newTestDriver(t, frames, lockon.NewPoint(0, 0))
	ctx := context.Background()

	require.NoError(t, driver.Tick(ctx))
	first, ok := driver.Core().Tracker().Lock()
	require.True(t, ok)

	err := driver.Tick(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
	assert.False(t, driver.Core().Tracker().Locked())

	// Loop keeps going and acquires a fresh lock
	require.NoError(t, driver.Tick(ctx))
	second, ok := driver.Core().Tracker().Lock()
	require.True(t, ok)
	assert.NotEqual(t, first.GetID(), second.GetID())
}

func TestDriverRunStopsOnFatalError(t *testing.T) {
	frames := repeat(fakeFrame{}, 3)
	driver, _, detector, _ := newTestDriver(t, frames, lockon.NewPoint(0, 0))

	err := driver.Run(context.Background())
	assert.True(t, errors.Is(err, errSourceDone), "got %v", err)
	assert.Equal(t, 3, detector.calls)
}

func TestDriverRunStopPredicate(t *testing.T) {
	frames := repeat(fakeFrame{}, 10)
	driver, _, detector, _ := newTestDriver(t, frames, lockon.NewPoint(0, 0))
	ticks := 0
	driver.stop = func() bool {
		ticks++
		return ticks == 2
	}
	require.NoError(t, driver.Run(context.Background()))
	assert.Equal(t, 2, detector.calls)
}

func TestDriverRunContextCancelled(t *testing.T) {
	driver, _, detector, _ := newTestDriver(t, repeat(fakeFrame{}, 10), lockon.NewPoint(0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, driver.Run(ctx))
	assert.Equal(t, 0, detector.calls)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options[fakeFrame]{})
	assert.Error(t, err)
}
