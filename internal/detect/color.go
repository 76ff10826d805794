package detect

import (
	"image"

	"github.com/LdDl/lockon/lockon"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ColorDetector finds blobs whose pixels fall into an inclusive BGR range.
// Frame is resized to the square input first so boxes come out in the same space as model detections.
type ColorDetector struct {
	lower     gocv.Scalar
	upper     gocv.Scalar
	inputSize int
	minPixels int
	info      ProviderInfo
}

// NewColorDetector creates colour threshold detector
func NewColorDetector(opts Options) (*ColorDetector, error) {
	if opts.InputSize <= 0 {
		return nil, errors.Errorf("input size must be positive, got %d", opts.InputSize)
	}
	for i := range opts.ColorLower {
		if opts.ColorLower[i] > opts.ColorUpper[i] {
			return nil, errors.Errorf("lower bound exceeds upper bound in channel %d", i)
		}
	}
	return &ColorDetector{
		lower:     bgrScalar(opts.ColorLower),
		upper:     bgrScalar(opts.ColorUpper),
		inputSize: opts.InputSize,
		minPixels: opts.MinPixels,
		info: ProviderInfo{
			Backend: BackendColor,
			Engine:  "OpenCV inRange",
			Device:  "CPU",
		},
	}, nil
}

// Detect thresholds the frame and returns one detection per connected region
func (cd *ColorDetector) Detect(frame gocv.Mat) ([]lockon.RawDetection, error) {
	if frame.Empty() {
		return nil, errors.New("empty frame")
	}
	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(frame, &resized, image.Pt(cd.inputSize, cd.inputSize), 0, 0, gocv.InterpolationNearestNeighbor)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.InRangeWithScalar(resized, cd.lower, cd.upper, &mask)

	return lockon.MaskRegions(mask.ToBytes(), mask.Cols(), mask.Rows(), cd.minPixels), nil
}

// InputSize returns side of the square working image
func (cd *ColorDetector) InputSize() int {
	return cd.inputSize
}

// Info returns information about the provider
func (cd *ColorDetector) Info() ProviderInfo {
	return cd.info
}

// Close is no-op, nothing is held between frames
func (cd *ColorDetector) Close() error {
	return nil
}

func bgrScalar(bgr [3]int) gocv.Scalar {
	return gocv.NewScalar(float64(bgr[0]), float64(bgr[1]), float64(bgr[2]), 0)
}
