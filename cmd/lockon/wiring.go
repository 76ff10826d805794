package main

import (
	"context"
	"image"

	"github.com/LdDl/lockon/internal/actuate"
	"github.com/LdDl/lockon/internal/capture"
	"github.com/LdDl/lockon/internal/config"
	"github.com/LdDl/lockon/internal/detect"
	"github.com/LdDl/lockon/internal/telemetry"
	"github.com/LdDl/lockon/lockon"
	"github.com/rs/zerolog"
)

func detectorOptions(cfg config.DetectorConfig) detect.Options {
	return detect.Options{
		Backend:     cfg.Backend,
		ModelPath:   cfg.ModelPath,
		ConfigPath:  cfg.ConfigPath,
		InputSize:   cfg.InputSize,
		RowWidth:    cfg.RowWidth,
		LibraryPath: cfg.LibraryPath,
		InputName:   cfg.InputName,
		OutputName:  cfg.OutputName,
		OutputRows:  cfg.OutputRows,
		UseCUDA:     cfg.UseCUDA,
		ColorLower:  cfg.ColorLower,
		ColorUpper:  cfg.ColorUpper,
		MinPixels:   cfg.MinPixels,
	}
}

func openCapture(cfg config.CaptureConfig, logger zerolog.Logger) (*capture.Source, error) {
	src, err := capture.Open(cfg.Source)
	if err != nil {
		return nil, err
	}
	src.SetSize(cfg.Width, cfg.Height)
	size := src.FrameSize()
	logger.Info().Str("device", src.Device()).Int("width", size.X).Int("height", size.Y).Msg("Capture opened")
	return src, nil
}

// openActuator creates actuation channel. Virtual pointer starts at the center of the frame and is bounded by it.
func openActuator(cfg config.ActuatorConfig, frame image.Point, logger zerolog.Logger) (actuate.Actuator, error) {
	switch cfg.Kind {
	case config.ActuatorSerial:
		opts := actuate.DefaultPortOptions()
		opts.BaudRate = cfg.BaudRate
		opts.ReadTimeout = cfg.ReadTimeout.Duration
		serial, err := actuate.OpenSerial(cfg.Port, opts, logger)
		if err != nil {
			return nil, err
		}
		return serial, nil
	default:
		start := lockon.NewPoint(frame.X/2, frame.Y/2)
		return actuate.NewVirtual(start, image.Rect(0, 0, frame.X, frame.Y), logger), nil
	}
}

// openStore returns nil sink when telemetry storage is disabled
func openStore(ctx context.Context, cfg config.TelemetryConfig, label string, logger zerolog.Logger) (*telemetry.Store, error) {
	if cfg.DBPath == "" {
		return nil, nil
	}
	return telemetry.OpenStore(ctx, cfg.DBPath, label, logger)
}
