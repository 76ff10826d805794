// Package config loads the JSON configuration of a tracking session.
package config

import (
	"bytes"
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/LdDl/lockon/lockon"
	"github.com/pkg/errors"
)

// ErrInvalid is returned (wrapped) by Validate
var ErrInvalid = errors.New("invalid configuration")

const (
	BackendCPU  = "cpu"
	BackendGPU  = "gpu"
	BackendONNX = "onnx"
	// Colour threshold detector, no model involved
	BackendColor = "color"

	ActuatorVirtual = "virtual"
	ActuatorSerial  = "serial"
)

// Config is the root configuration of a tracking session.
type Config struct {
	Capture   CaptureConfig   `json:"capture"`
	Detector  DetectorConfig  `json:"detector"`
	Tracker   TrackerConfig   `json:"tracker"`
	Motion    MotionConfig    `json:"motion"`
	Actuator  ActuatorConfig  `json:"actuator"`
	Telemetry TelemetryConfig `json:"telemetry"`
	Logging   LoggingConfig   `json:"logging"`

	// Source is where the configuration originated (defaults or a file path)
	Source string `json:"-"`
}

// CaptureConfig selects the frame source.
type CaptureConfig struct {
	// Camera index ("0"), file path or stream URL
	Source string `json:"source"`
	// Requested capture size. Zero keeps the device default
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DetectorConfig selects the inference backend and model.
type DetectorConfig struct {
	Backend   string `json:"backend"`
	ModelPath string `json:"model_path"`
	// Optional network config (darknet .cfg) for OpenCV backends
	ConfigPath    string  `json:"config_path"`
	InputSize     int     `json:"input_size"`
	ConfThreshold float64 `json:"conf_threshold"`
	// Number of values per output row: x1, y1, x2, y2, confidence, class...
	RowWidth      int     `json:"row_width"`
	MaxDetections int     `json:"max_detections"`
	NMSIoU        float64 `json:"nms_iou"`
	ClampToFrame  bool    `json:"clamp_to_frame"`

	// onnxruntime specific
	LibraryPath string `json:"library_path"`
	InputName   string `json:"input_name"`
	OutputName  string `json:"output_name"`
	OutputRows  int    `json:"output_rows"`
	UseCUDA     bool   `json:"use_cuda"`

	// color backend: inclusive BGR range and minimum blob size in pixels
	ColorLower [3]int `json:"color_lower"`
	ColorUpper [3]int `json:"color_upper"`
	MinPixels  int    `json:"min_pixels"`
}

// TrackerConfig configures target lock tracking.
type TrackerConfig struct {
	LockTolerance     float64 `json:"lock_tolerance"`
	MaxTargetDistance float64 `json:"max_target_distance"`
	Predict           bool    `json:"predict"`
}

// MotionConfig configures the motion controller.
type MotionConfig struct {
	Smoothing      float64  `json:"smoothing"`
	ClickThreshold float64  `json:"click_threshold"`
	Cooldown       Duration `json:"cooldown"`
	MaxStep        int      `json:"max_step"`
}

// ActuatorConfig selects the actuation channel.
type ActuatorConfig struct {
	Kind        string   `json:"kind"`
	Port        string   `json:"port"`
	BaudRate    int      `json:"baud_rate"`
	ReadTimeout Duration `json:"read_timeout"`
}

// TelemetryConfig controls periodic reports.
type TelemetryConfig struct {
	EveryFrames int `json:"every_frames"`
	// Log "no targets" once per this many frames
	NoTargetEvery int `json:"no_target_every"`
	// SQLite database to store reports into. Empty disables storage
	DBPath string `json:"db_path"`
}

// LoggingConfig defines log verbosity and formatting.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Duration is time.Duration encoded as a string like "100ms"
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "duration must be a string like \"100ms\"")
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return errors.Wrapf(err, "can't parse duration %q", raw)
	}
	d.Duration = parsed
	return nil
}

// Default returns the baseline configuration used when no overrides are supplied.
func Default() Config {
	return Config{
		Capture: CaptureConfig{
			Source: "0",
		},
		Detector: DetectorConfig{
			Backend:       BackendCPU,
			ModelPath:     "best.onnx",
			InputSize:     640,
			ConfThreshold: 0.5,
			RowWidth:      6,
			MaxDetections: 10,
			NMSIoU:        0,
			InputName:     "images",
			OutputName:    "output0",
			OutputRows:    300,
			ColorLower:    [3]int{213, 208, 17},
			ColorUpper:    [3]int{218, 215, 19},
			MinPixels:     4,
		},
		Tracker: TrackerConfig{
			LockTolerance:     50,
			MaxTargetDistance: 0,
		},
		Motion: MotionConfig{
			Smoothing:      0.5,
			ClickThreshold: 20,
			Cooldown:       Duration{100 * time.Millisecond},
		},
		Actuator: ActuatorConfig{
			Kind:        ActuatorVirtual,
			BaudRate:    115200,
			ReadTimeout: Duration{50 * time.Millisecond},
		},
		Telemetry: TelemetryConfig{
			EveryFrames:   30,
			NoTargetEvery: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Source: "<defaults>",
	}
}

// Load reads configuration from a JSON file on top of defaults.
// Empty path returns defaults. Fields omitted from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return cfg, errors.Wrapf(err, "can't read config file %q", cleanPath)
	}
	cfg, err = Parse(data)
	if err != nil {
		return cfg, errors.Wrapf(err, "can't parse config file %q", cleanPath)
	}
	cfg.Source = cleanPath
	return cfg, nil
}

// Parse decodes JSON configuration on top of defaults. Unknown fields are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return Default(), err
	}
	cfg.Source = "<inline>"
	return cfg, nil
}

// Validate checks ranges and cross-field requirements.
func (cfg *Config) Validate() error {
	switch cfg.Detector.Backend {
	case BackendCPU, BackendGPU, BackendONNX:
	case BackendColor:
		if err := validateColorRange(cfg.Detector); err != nil {
			return err
		}
	default:
		return errors.Wrapf(ErrInvalid, "unknown detector backend %q", cfg.Detector.Backend)
	}
	if cfg.Detector.Backend != BackendColor && strings.TrimSpace(cfg.Detector.ModelPath) == "" {
		return errors.Wrap(ErrInvalid, "detector model_path is required")
	}
	if cfg.Detector.InputSize <= 0 {
		return errors.Wrapf(ErrInvalid, "detector input_size must be positive, got %d", cfg.Detector.InputSize)
	}
	if cfg.Detector.ConfThreshold < 0 || cfg.Detector.ConfThreshold >= 1 {
		return errors.Wrapf(ErrInvalid, "detector conf_threshold must be in [0, 1), got %v", cfg.Detector.ConfThreshold)
	}
	if cfg.Detector.RowWidth < 5 {
		return errors.Wrapf(ErrInvalid, "detector row_width must be at least 5, got %d", cfg.Detector.RowWidth)
	}
	if cfg.Detector.MaxDetections < 0 {
		return errors.Wrapf(ErrInvalid, "detector max_detections must not be negative, got %d", cfg.Detector.MaxDetections)
	}
	if cfg.Detector.NMSIoU < 0 || cfg.Detector.NMSIoU > 1 {
		return errors.Wrapf(ErrInvalid, "detector nms_iou must be in [0, 1], got %v", cfg.Detector.NMSIoU)
	}
	if cfg.Detector.Backend == BackendONNX && cfg.Detector.OutputRows <= 0 {
		return errors.Wrapf(ErrInvalid, "detector output_rows must be positive for onnx backend, got %d", cfg.Detector.OutputRows)
	}
	if cfg.Tracker.LockTolerance < 0 {
		return errors.Wrapf(ErrInvalid, "tracker lock_tolerance must not be negative, got %v", cfg.Tracker.LockTolerance)
	}
	if cfg.Tracker.MaxTargetDistance < 0 {
		return errors.Wrapf(ErrInvalid, "tracker max_target_distance must not be negative, got %v", cfg.Tracker.MaxTargetDistance)
	}
	if cfg.Motion.Smoothing <= 0 || cfg.Motion.Smoothing > 1 {
		return errors.Wrapf(ErrInvalid, "motion smoothing must be in (0, 1], got %v", cfg.Motion.Smoothing)
	}
	if cfg.Motion.ClickThreshold < 0 {
		return errors.Wrapf(ErrInvalid, "motion click_threshold must not be negative, got %v", cfg.Motion.ClickThreshold)
	}
	if cfg.Motion.Cooldown.Duration < 0 {
		return errors.Wrapf(ErrInvalid, "motion cooldown must not be negative, got %v", cfg.Motion.Cooldown)
	}
	if cfg.Motion.MaxStep < 0 {
		return errors.Wrapf(ErrInvalid, "motion max_step must not be negative, got %d", cfg.Motion.MaxStep)
	}
	switch cfg.Actuator.Kind {
	case ActuatorVirtual:
	case ActuatorSerial:
		if strings.TrimSpace(cfg.Actuator.Port) == "" {
			return errors.Wrap(ErrInvalid, "actuator port is required for serial actuator")
		}
		if cfg.Actuator.BaudRate <= 0 {
			return errors.Wrapf(ErrInvalid, "actuator baud_rate must be positive, got %d", cfg.Actuator.BaudRate)
		}
	default:
		return errors.Wrapf(ErrInvalid, "unknown actuator kind %q", cfg.Actuator.Kind)
	}
	if cfg.Telemetry.EveryFrames <= 0 {
		return errors.Wrapf(ErrInvalid, "telemetry every_frames must be positive, got %d", cfg.Telemetry.EveryFrames)
	}
	if cfg.Telemetry.NoTargetEvery <= 0 {
		return errors.Wrapf(ErrInvalid, "telemetry no_target_every must be positive, got %d", cfg.Telemetry.NoTargetEvery)
	}
	return nil
}

func validateColorRange(det DetectorConfig) error {
	for i := range det.ColorLower {
		lo, hi := det.ColorLower[i], det.ColorUpper[i]
		if lo < 0 || lo > 255 || hi < 0 || hi > 255 {
			return errors.Wrapf(ErrInvalid, "detector color range channel %d must be in [0, 255], got [%d, %d]", i, lo, hi)
		}
		if lo > hi {
			return errors.Wrapf(ErrInvalid, "detector color_lower exceeds color_upper in channel %d: %d > %d", i, lo, hi)
		}
	}
	if det.MinPixels < 0 {
		return errors.Wrapf(ErrInvalid, "detector min_pixels must not be negative, got %d", det.MinPixels)
	}
	return nil
}

// TrackerOptions converts tracker section into core options
func (cfg *Config) TrackerOptions() lockon.TrackerOptions {
	opts := lockon.DefaultTrackerOptions()
	opts.LockTolerance = cfg.Tracker.LockTolerance
	opts.MaxTargetDistance = cfg.Tracker.MaxTargetDistance
	opts.Predict = cfg.Tracker.Predict
	return opts
}

// ControllerOptions converts motion section into core options
func (cfg *Config) ControllerOptions() lockon.ControllerOptions {
	return lockon.ControllerOptions{
		Smoothing:      cfg.Motion.Smoothing,
		ClickThreshold: cfg.Motion.ClickThreshold,
		Cooldown:       cfg.Motion.Cooldown.Duration,
		MaxStep:        cfg.Motion.MaxStep,
	}
}

// AdapterOptions converts detector section into adapter options for a stream of the given size
func (cfg *Config) AdapterOptions(target image.Point) lockon.AdapterOptions {
	return lockon.AdapterOptions{
		ConfThreshold: cfg.Detector.ConfThreshold,
		InputSize:     cfg.Detector.InputSize,
		Target:        target,
		MaxDetections: cfg.Detector.MaxDetections,
		NMSIoU:        cfg.Detector.NMSIoU,
		ClampToFrame:  cfg.Detector.ClampToFrame,
	}
}
