// Package telemetry counts what the tracking loop does and emits periodic reports.
// It never influences control decisions.
package telemetry

import (
	"context"
	"time"

	"github.com/LdDl/lockon/lockon"
	"github.com/google/uuid"
)

// Counters accumulate over the whole run
type Counters struct {
	Ticks         int64
	Frames        int64
	SkippedFrames int64
	Detections    int64
	Candidates    int64
	Acquisitions  int64
	Losses        int64
	Moves         int64
	Commits       int64
	Idles         int64
	Errors        int64
}

// Report is a snapshot emitted every N frames
type Report struct {
	Time time.Time
	// FPS over the window since the previous report
	FPS float64
	// Detections and candidates in the last frame
	Detections int
	Candidates int
	// Tick latency stats over the window
	LatencyMean   time.Duration
	LatencyStdDev time.Duration
	LatencyP95    time.Duration
	Locked        bool
	LockID        uuid.UUID
	Counters      Counters
}

// CommitEvent describes one committed action
type CommitEvent struct {
	Time    time.Time
	LockID  uuid.UUID
	Target  lockon.Point
	Pointer lockon.Point
}

// Sink persists reports and commit events
type Sink interface {
	RecordReport(ctx context.Context, report Report) error
	RecordCommit(ctx context.Context, event CommitEvent) error
}
