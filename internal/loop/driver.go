// Package loop drives the capture, detect, track and act cycle, one frame per tick.
package loop

import (
	"context"
	"image"

	"github.com/LdDl/lockon/internal/telemetry"
	"github.com/LdDl/lockon/internal/timeutil"
	"github.com/LdDl/lockon/lockon"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Source delivers frames. The boolean is false when no frame is available this tick.
type Source[T any] interface {
	Grab() (T, bool, error)
}

// Detector turns a frame into raw detections in model-input coordinate space
type Detector[T any] interface {
	Detect(frame T) ([]lockon.RawDetection, error)
}

// Actuator is the exclusive-write pointer channel
type Actuator interface {
	Move(dx, dy int) error
	Trigger() error
	Position() (lockon.Point, error)
}

// Options wires collaborators into Driver
type Options[T any] struct {
	Source   Source[T]
	Detector Detector[T]
	Actuator Actuator
	Core     *lockon.Core
	// Adapter.Target is used when FrameSize is nil
	Adapter lockon.AdapterOptions
	// FrameSize reports native size of the frame
	FrameSize func(frame T) image.Point
	Reporter  *telemetry.Reporter
	Clock     timeutil.Clock
	Logger    zerolog.Logger
	// Stop is polled once per tick
	Stop func() bool
	// IsFatal marks tick errors that end Run
	IsFatal func(err error) bool
}

// Driver is the single owner of the tracking state. Not safe for concurrent use.
type Driver[T any] struct {
	source    Source[T]
	detector  Detector[T]
	actuator  Actuator
	core      *lockon.Core
	adapter   lockon.AdapterOptions
	frameSize func(frame T) image.Point
	reporter  *telemetry.Reporter
	clock     timeutil.Clock
	logger    zerolog.Logger
	stop      func() bool
	isFatal   func(err error) bool
}

// New creates new instance of Driver
func New[T any](opts Options[T]) (*Driver[T], error) {
	if opts.Source == nil || opts.Detector == nil || opts.Actuator == nil {
		return nil, errors.New("source, detector and actuator are required")
	}
	if opts.Core == nil {
		opts.Core = lockon.NewCoreDefault()
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Reporter == nil {
		opts.Reporter = telemetry.NewReporter(telemetry.DefaultReporterOptions(), opts.Clock, opts.Logger, nil)
	}
	return &Driver[T]{
		source:    opts.Source,
		detector:  opts.Detector,
		actuator:  opts.Actuator,
		core:      opts.Core,
		adapter:   opts.Adapter,
		frameSize: opts.FrameSize,
		reporter:  opts.Reporter,
		clock:     opts.Clock,
		logger:    opts.Logger,
		stop:      opts.Stop,
		isFatal:   opts.IsFatal,
	}, nil
}

// Run ticks until context is done, stop predicate fires or a fatal error happens.
// Stopping is not an error.
func (driver *Driver[T]) Run(ctx context.Context) error {
	driver.logger.Info().Msg("Tracking loop started")
	defer func() {
		driver.logger.Info().Interface("counters", driver.reporter.Counters()).Msg("Tracking loop stopped")
	}()
	for {
		if ctx.Err() != nil {
			return nil
		}
		err := driver.Tick(ctx)
		if err != nil && driver.isFatal != nil && driver.isFatal(err) {
			return err
		}
		if driver.stop != nil && driver.stop() {
			return nil
		}
	}
}

// Tick processes one frame. Any error or panic inside the tick resets the lock.
// Missing frame, no detections and no suitable target are not errors.
func (driver *Driver[T]) Tick(ctx context.Context) (err error) {
	driver.reporter.Tick()
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic in tick: %v", r)
		}
		if err != nil {
			driver.fail(err)
		}
	}()

	start := driver.clock.Now()
	frame, ok, err := driver.source.Grab()
	if err != nil {
		return errors.Wrap(err, "can't grab frame")
	}
	if !ok {
		driver.reporter.Skipped()
		return nil
	}

	pointer, err := driver.actuator.Position()
	if err != nil {
		return errors.Wrap(err, "can't read pointer position")
	}

	raw, err := driver.detector.Detect(frame)
	if err != nil {
		return errors.Wrap(err, "detection failed")
	}
	adapter := driver.adapter
	if driver.frameSize != nil {
		adapter.Target = driver.frameSize(frame)
	}
	candidates := lockon.AdaptWithOptions(raw, adapter)

	decision := driver.core.Step(candidates, pointer, driver.clock.Now())
	if err := driver.dispatch(decision.Intent); err != nil {
		return err
	}
	if decision.Selection.PredictorErr != nil {
		driver.logger.Warn().
			Err(decision.Selection.PredictorErr).
			Str("lock_id", decision.Selection.LockID.String()).
			Msg("Lock predictor disabled")
	}
	if decision.Selection.Acquired {
		driver.logger.Debug().
			Str("lock_id", decision.Selection.LockID.String()).
			Int("x", decision.Selection.Target.X).
			Int("y", decision.Selection.Target.Y).
			Msg("Target acquired")
	}

	driver.reporter.Frame(ctx, telemetry.FrameObservation{
		Detections: len(raw),
		Candidates: len(candidates),
		Pointer:    pointer,
		Decision:   decision,
		Latency:    driver.clock.Since(start),
	})
	return nil
}

// Core returns tracking core owned by the driver
func (driver *Driver[T]) Core() *lockon.Core {
	return driver.core
}

// Reporter returns telemetry reporter
func (driver *Driver[T]) Reporter() *telemetry.Reporter {
	return driver.reporter
}

func (driver *Driver[T]) dispatch(intent lockon.Intent) error {
	switch intent.Kind {
	case lockon.IntentMove:
		if err := driver.actuator.Move(intent.DX, intent.DY); err != nil {
			return errors.Wrapf(err, "can't dispatch %s", intent)
		}
	case lockon.IntentCommit:
		if err := driver.actuator.Trigger(); err != nil {
			return errors.Wrap(err, "can't dispatch commit")
		}
	case lockon.IntentIdle:
	default:
		panic("should be impossible: unknown intent " + intent.Kind.String())
	}
	return nil
}

func (driver *Driver[T]) fail(err error) {
	driver.reporter.Error()
	released := driver.core.Reset()
	driver.logger.Error().Err(err).Bool("lock_reset", released).Msg("Tick failed")
}
