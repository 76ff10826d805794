// Package detect provides object detector variants behind a single capability interface.
package detect

import (
	"time"

	"github.com/LdDl/lockon/lockon"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// ErrUnknownBackend is returned by New for unsupported backend names
var ErrUnknownBackend = errors.New("unknown detector backend")

const (
	BackendCPU   = "cpu"
	BackendGPU   = "gpu"
	BackendONNX  = "onnx"
	BackendColor = "color"
)

// Detector runs inference on a frame and returns raw detections in model-input coordinate space
type Detector interface {
	Detect(frame gocv.Mat) ([]lockon.RawDetection, error)
	// InputSize is the side of the square model input
	InputSize() int
	Info() ProviderInfo
	Close() error
}

// ProviderInfo contains information about the inference provider
type ProviderInfo struct {
	Backend  string        // "cpu", "gpu", "onnx", "color"
	Engine   string        // "OpenCV DNN", "OpenCV CUDA", "onnxruntime", "OpenCV inRange"
	Device   string        // Device identifier
	InitTime time.Duration // Time taken to initialize
}

// Options configures detector construction
type Options struct {
	Backend    string
	ModelPath  string
	ConfigPath string
	InputSize  int
	RowWidth   int

	// onnxruntime
	LibraryPath string
	InputName   string
	OutputName  string
	OutputRows  int
	UseCUDA     bool

	// colour threshold, inclusive BGR bounds
	ColorLower [3]int
	ColorUpper [3]int
	MinPixels  int
}

// New creates detector for the requested backend.
// GPU initialization failure falls back to CPU with a warning; every other failure is returned.
func New(opts Options, logger zerolog.Logger) (Detector, error) {
	start := time.Now()
	var (
		detector Detector
		err      error
	)
	switch opts.Backend {
	case BackendCPU:
		detector, err = NewOpenCVDetector(opts, false)
	case BackendGPU:
		detector, err = NewOpenCVDetector(opts, true)
		if err == nil {
			err = SelfTest(detector)
			if err != nil {
				detector.Close()
			}
		}
		if err != nil {
			logger.Warn().Err(err).Msg("GPU detector unavailable, falling back to CPU")
			detector, err = NewOpenCVDetector(opts, false)
		}
	case BackendONNX:
		detector, err = NewONNXDetector(opts)
	case BackendColor:
		detector, err = NewColorDetector(opts)
	default:
		return nil, errors.Wrapf(ErrUnknownBackend, "backend %q", opts.Backend)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "can't initialize %s detector", opts.Backend)
	}
	info := detector.Info()
	logger.Info().
		Str("backend", info.Backend).
		Str("engine", info.Engine).
		Str("device", info.Device).
		Dur("init_time", time.Since(start)).
		Msg("Detector initialized")
	return detector, nil
}

// SelfTest runs inference on a blank frame to make sure the provider really works
func SelfTest(detector Detector) error {
	size := detector.InputSize()
	frame := gocv.NewMatWithSize(size, size, gocv.MatTypeCV8UC3)
	defer frame.Close()
	_, err := detector.Detect(frame)
	if err != nil {
		return errors.Wrap(err, "test inference failed")
	}
	return nil
}
