package telemetry

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/LdDl/lockon/internal/timeutil"
	"github.com/LdDl/lockon/lockon"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// ReporterOptions configures Reporter
type ReporterOptions struct {
	// Emit report every N frames. Default 30
	EveryFrames int
	// Log "no targets" at debug level once per N frames. Default 60
	NoTargetEvery int
}

// DefaultReporterOptions returns 30/60 frames
func DefaultReporterOptions() ReporterOptions {
	return ReporterOptions{
		EveryFrames:   30,
		NoTargetEvery: 60,
	}
}

// FrameObservation is what the loop saw and decided for one processed frame
type FrameObservation struct {
	Detections int
	Candidates int
	Pointer    lockon.Point
	Decision   lockon.Decision
	Latency    time.Duration
}

// Reporter accumulates counters and emits a Report every EveryFrames frames
type Reporter struct {
	every         int
	noTargetEvery int
	clock         timeutil.Clock
	logger        zerolog.Logger
	sink          Sink

	counters     Counters
	windowStart  time.Time
	windowFrames int
	// Tick latencies in the window, seconds
	latencies []float64
	last      *Report
}

// NewReporter creates new instance of Reporter. Sink may be nil
func NewReporter(opts ReporterOptions, clock timeutil.Clock, logger zerolog.Logger, sink Sink) *Reporter {
	if opts.EveryFrames <= 0 {
		opts.EveryFrames = 30
	}
	if opts.NoTargetEvery <= 0 {
		opts.NoTargetEvery = 60
	}
	return &Reporter{
		every:         opts.EveryFrames,
		noTargetEvery: opts.NoTargetEvery,
		clock:         clock,
		logger:        logger,
		sink:          sink,
		windowStart:   clock.Now(),
		latencies:     make([]float64, 0, opts.EveryFrames),
	}
}

// Tick counts a loop iteration
func (reporter *Reporter) Tick() {
	reporter.counters.Ticks++
}

// Skipped counts a tick without a frame
func (reporter *Reporter) Skipped() {
	reporter.counters.SkippedFrames++
}

// Error counts a failed tick
func (reporter *Reporter) Error() {
	reporter.counters.Errors++
}

// Frame records one processed frame. Returns report if this frame completes a window.
func (reporter *Reporter) Frame(ctx context.Context, obs FrameObservation) (Report, bool) {
	c := &reporter.counters
	c.Frames++
	c.Detections += int64(obs.Detections)
	c.Candidates += int64(obs.Candidates)
	if obs.Decision.Selection.Acquired {
		c.Acquisitions++
	}
	if obs.Decision.Selection.Lost {
		c.Losses++
	}
	switch obs.Decision.Intent.Kind {
	case lockon.IntentMove:
		c.Moves++
	case lockon.IntentCommit:
		c.Commits++
		reporter.commit(ctx, obs)
	default:
		c.Idles++
	}

	if obs.Candidates == 0 && c.Frames%int64(reporter.noTargetEvery) == 0 {
		reporter.logger.Debug().Int64("frame", c.Frames).Msg("No targets detected")
	}

	reporter.windowFrames++
	reporter.latencies = append(reporter.latencies, obs.Latency.Seconds())
	if reporter.windowFrames < reporter.every {
		return Report{}, false
	}
	report := reporter.flush(ctx, obs)
	return report, true
}

// Counters returns copy of accumulated counters
func (reporter *Reporter) Counters() Counters {
	return reporter.counters
}

// Last returns the most recent report
func (reporter *Reporter) Last() (Report, bool) {
	if reporter.last == nil {
		return Report{}, false
	}
	return *reporter.last, true
}

func (reporter *Reporter) commit(ctx context.Context, obs FrameObservation) {
	event := CommitEvent{
		Time:    reporter.clock.Now(),
		LockID:  obs.Decision.Selection.LockID,
		Target:  obs.Decision.Selection.Target,
		Pointer: obs.Pointer,
	}
	reporter.logger.Info().
		Str("lock_id", event.LockID.String()).
		Int("target_x", event.Target.X).
		Int("target_y", event.Target.Y).
		Msg("Action committed")
	if reporter.sink == nil {
		return
	}
	if err := reporter.sink.RecordCommit(ctx, event); err != nil {
		reporter.logger.Warn().Err(err).Msg("Can't store commit event")
	}
}

func (reporter *Reporter) flush(ctx context.Context, obs FrameObservation) Report {
	now := reporter.clock.Now()
	elapsed := now.Sub(reporter.windowStart)
	report := Report{
		Time:       now,
		Detections: obs.Detections,
		Candidates: obs.Candidates,
		Locked:     obs.Decision.Selection.HasTarget && !obs.Decision.Released,
		LockID:     obs.Decision.Selection.LockID,
		Counters:   reporter.counters,
	}
	if elapsed > 0 {
		report.FPS = float64(reporter.windowFrames) / elapsed.Seconds()
	}
	report.LatencyMean, report.LatencyStdDev, report.LatencyP95 = latencyStats(reporter.latencies)

	reporter.logger.Info().
		Float64("fps", report.FPS).
		Int("detections", report.Detections).
		Bool("locked", report.Locked).
		Dur("latency_mean", report.LatencyMean).
		Dur("latency_p95", report.LatencyP95).
		Int64("frames", report.Counters.Frames).
		Int64("commits", report.Counters.Commits).
		Int64("errors", report.Counters.Errors).
		Msg("Telemetry")

	if reporter.sink != nil {
		if err := reporter.sink.RecordReport(ctx, report); err != nil {
			reporter.logger.Warn().Err(err).Msg("Can't store report")
		}
	}

	reporter.windowStart = now
	reporter.windowFrames = 0
	reporter.latencies = reporter.latencies[:0]
	reporter.last = &report
	return report
}

// latencyStats returns mean, standard deviation and 95th percentile of samples given in seconds
func latencyStats(samples []float64) (time.Duration, time.Duration, time.Duration) {
	if len(samples) == 0 {
		return 0, 0, 0
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	mean, std := stat.MeanStdDev(sorted, nil)
	if len(sorted) < 2 {
		std = 0
	}
	p95 := stat.Quantile(0.95, stat.Empirical, sorted, nil)
	return seconds(mean), seconds(std), seconds(p95)
}

func seconds(v float64) time.Duration {
	return time.Duration(math.Round(v * float64(time.Second)))
}
