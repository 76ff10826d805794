package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/LdDl/lockon/internal/detect"
	"github.com/LdDl/lockon/lockon"
	"github.com/pkg/errors"
)

func newDoctorCommand() command {
	return command{
		name:        "doctor",
		description: "Check detector, capture, actuator and telemetry storage step by step",
		configure: func(fs *flag.FlagSet) {
			fs.Int("grab-attempts", 30, "Frames to try before declaring the capture dead")
		},
		run: runDoctor,
	}
}

func runDoctor(fs *flag.FlagSet, app *appContext, stdout io.Writer) error {
	if app == nil {
		return errors.New("application context unavailable")
	}
	cfg := app.cfg
	logger := app.logger
	attempts := intFlag(fs, "grab-attempts")
	step := func(name string) { fmt.Fprintf(stdout, "%s... ", name) }
	ok := func(format string, args ...interface{}) { fmt.Fprintf(stdout, "OK "+format+"\n", args...) }

	step("Loading detector")
	detector, err := detect.New(detectorOptions(cfg.Detector), logger)
	if err != nil {
		fmt.Fprintln(stdout, "FAILED")
		return errors.Wrap(err, "detector")
	}
	defer detector.Close()
	info := detector.Info()
	ok("(%s on %s)", info.Engine, info.Device)

	step("Test inference")
	start := time.Now()
	if err := detect.SelfTest(detector); err != nil {
		fmt.Fprintln(stdout, "FAILED")
		return err
	}
	ok("(%v)", time.Since(start))

	step("Opening capture")
	source, err := openCapture(cfg.Capture, logger)
	if err != nil {
		fmt.Fprintln(stdout, "FAILED")
		return errors.Wrap(err, "capture")
	}
	defer source.Close()
	size := source.FrameSize()
	ok("(%dx%d)", size.X, size.Y)

	step("Grabbing frame")
	frame, grabbed, err := source.Grab()
	for i := 1; err == nil && !grabbed && i < attempts; i++ {
		frame, grabbed, err = source.Grab()
	}
	if err != nil {
		fmt.Fprintln(stdout, "FAILED")
		return errors.Wrap(err, "capture")
	}
	if !grabbed {
		fmt.Fprintln(stdout, "FAILED")
		return errors.Errorf("no frame after %d attempts", attempts)
	}
	ok("(%dx%d)", frame.Cols(), frame.Rows())

	step("Running detection")
	raw, err := detector.Detect(frame)
	if err != nil {
		fmt.Fprintln(stdout, "FAILED")
		return errors.Wrap(err, "detection")
	}
	candidates := lockon.AdaptWithOptions(raw, cfg.AdapterOptions(image.Pt(frame.Cols(), frame.Rows())))
	ok("(%d raw detections, %d candidates)", len(raw), len(candidates))

	step("Opening actuator")
	actuator, err := openActuator(cfg.Actuator, size, logger)
	if err != nil {
		fmt.Fprintln(stdout, "FAILED")
		return errors.Wrap(err, "actuator")
	}
	defer actuator.Close()
	pointer, err := actuator.Position()
	if err != nil {
		fmt.Fprintln(stdout, "FAILED")
		return errors.Wrap(err, "actuator position")
	}
	ok("(pointer at %d,%d)", pointer.X, pointer.Y)

	if cfg.Telemetry.DBPath != "" {
		step("Opening telemetry store")
		store, err := openStore(context.Background(), cfg.Telemetry, "doctor", logger)
		if err != nil {
			fmt.Fprintln(stdout, "FAILED")
			return errors.Wrap(err, "telemetry store")
		}
		defer store.Close()
		ok("(run %s)", store.RunID())
	}

	fmt.Fprintln(stdout, "All checks passed")
	return nil
}
