package main

import (
	"context"
	"flag"
	"image"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/LdDl/lockon/internal/capture"
	"github.com/LdDl/lockon/internal/detect"
	"github.com/LdDl/lockon/internal/loop"
	"github.com/LdDl/lockon/internal/telemetry"
	"github.com/LdDl/lockon/internal/timeutil"
	"github.com/LdDl/lockon/lockon"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

func newRunCommand() command {
	return command{
		name:        "run",
		description: "Start the tracking loop",
		configure: func(fs *flag.FlagSet) {
			fs.Int("max-frames", 0, "Stop after this many ticks (0 = run until interrupted)")
			fs.String("label", "", "Run label stored with telemetry")
		},
		run: runLoop,
	}
}

func runLoop(fs *flag.FlagSet, app *appContext, stdout io.Writer) error {
	if app == nil {
		return errors.New("application context unavailable")
	}
	cfg := app.cfg
	logger := app.logger
	maxFrames := intFlag(fs, "max-frames")
	label := stringFlag(fs, "label")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	detector, err := detect.New(detectorOptions(cfg.Detector), logger)
	if err != nil {
		return errors.Wrap(err, "can't load detector")
	}
	defer detector.Close()

	source, err := openCapture(cfg.Capture, logger)
	if err != nil {
		return errors.Wrap(err, "can't open capture")
	}
	defer source.Close()

	actuator, err := openActuator(cfg.Actuator, source.FrameSize(), logger)
	if err != nil {
		return errors.Wrap(err, "can't open actuator")
	}
	defer actuator.Close()

	clock := timeutil.RealClock{}
	var sink telemetry.Sink
	store, err := openStore(ctx, cfg.Telemetry, label, logger)
	if err != nil {
		return errors.Wrap(err, "can't open telemetry store")
	}
	if store != nil {
		defer store.Close()
		sink = store
	}
	reporterOpts := telemetry.ReporterOptions{
		EveryFrames:   cfg.Telemetry.EveryFrames,
		NoTargetEvery: cfg.Telemetry.NoTargetEvery,
	}
	reporter := telemetry.NewReporter(reporterOpts, clock, logger, sink)

	core := lockon.NewCore(
		lockon.NewTracker(cfg.TrackerOptions()),
		lockon.NewController(cfg.ControllerOptions()),
	)

	var stopFn func() bool
	if maxFrames > 0 {
		ticks := 0
		stopFn = func() bool {
			ticks++
			return ticks >= maxFrames
		}
	}

	driver, err := loop.New(loop.Options[gocv.Mat]{
		Source:   source,
		Detector: detector,
		Actuator: actuator,
		Core:     core,
		Adapter:  cfg.AdapterOptions(source.FrameSize()),
		FrameSize: func(frame gocv.Mat) image.Point {
			return image.Pt(frame.Cols(), frame.Rows())
		},
		Reporter: reporter,
		Clock:    clock,
		Logger:   logger,
		Stop:     stopFn,
		IsFatal: func(err error) bool {
			return errors.Is(err, capture.ErrClosed) || errors.Is(err, capture.ErrEndOfStream)
		},
	})
	if err != nil {
		return err
	}
	err = driver.Run(ctx)
	if errors.Is(err, capture.ErrEndOfStream) {
		logger.Info().Str("device", source.Device()).Msg("Capture source ended")
		return nil
	}
	return err
}
