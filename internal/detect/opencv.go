package detect

import (
	"image"

	"github.com/LdDl/lockon/lockon"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// OpenCVDetector implements inference using OpenCV DNN module, on CPU or CUDA.
type OpenCVDetector struct {
	net       gocv.Net
	inputSize int
	rowWidth  int
	info      ProviderInfo
}

// NewOpenCVDetector loads the network and selects CUDA or CPU target
func NewOpenCVDetector(opts Options, useCUDA bool) (*OpenCVDetector, error) {
	net := gocv.ReadNet(opts.ModelPath, opts.ConfigPath)
	if net.Empty() {
		return nil, errors.Errorf("failed to load network from %q", opts.ModelPath)
	}
	info := ProviderInfo{
		Backend: BackendCPU,
		Engine:  "OpenCV DNN",
		Device:  "CPU",
	}
	if useCUDA {
		net.SetPreferableBackend(gocv.NetBackendCUDA)
		net.SetPreferableTarget(gocv.NetTargetCUDA)
		info = ProviderInfo{
			Backend: BackendGPU,
			Engine:  "OpenCV CUDA",
			Device:  "NVIDIA GPU",
		}
	} else {
		net.SetPreferableBackend(gocv.NetBackendDefault)
		net.SetPreferableTarget(gocv.NetTargetCPU)
	}
	return &OpenCVDetector{
		net:       net,
		inputSize: opts.InputSize,
		rowWidth:  opts.RowWidth,
		info:      info,
	}, nil
}

// Detect performs object detection on a frame
func (cd *OpenCVDetector) Detect(frame gocv.Mat) ([]lockon.RawDetection, error) {
	if frame.Empty() {
		return nil, errors.New("empty frame")
	}
	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(cd.inputSize, cd.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	cd.net.SetInput(blob, "")
	output := cd.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "can't read network output")
	}
	return lockon.DecodeRows(data, cd.rowWidth), nil
}

// InputSize returns side of the square model input
func (cd *OpenCVDetector) InputSize() int {
	return cd.inputSize
}

// Info returns information about the provider
func (cd *OpenCVDetector) Info() ProviderInfo {
	return cd.info
}

// Close releases the network
func (cd *OpenCVDetector) Close() error {
	return cd.net.Close()
}
