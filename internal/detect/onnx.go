package detect

import (
	"image"

	"github.com/LdDl/lockon/lockon"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"
)

// ONNXDetector implements inference using onnxruntime. OpenCV is used for preprocessing only.
type ONNXDetector struct {
	session   *ort.AdvancedSession
	input     *ort.Tensor[float32]
	output    *ort.Tensor[float32]
	inputSize int
	rowWidth  int
	info      ProviderInfo
}

// NewONNXDetector initializes onnxruntime environment and creates session with preallocated tensors.
// Output tensor shape is [1, OutputRows, RowWidth] (end-to-end exported model with built-in NMS).
func NewONNXDetector(opts Options) (*ONNXDetector, error) {
	if opts.LibraryPath != "" {
		ort.SetSharedLibraryPath(opts.LibraryPath)
	}
	if !ort.IsInitialized() {
		err := ort.InitializeEnvironment()
		if err != nil {
			return nil, errors.Wrap(err, "can't initialize onnxruntime environment")
		}
	}

	size := int64(opts.InputSize)
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, errors.Wrap(err, "can't allocate input tensor")
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(opts.OutputRows), int64(opts.RowWidth)))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "can't allocate output tensor")
	}

	sessionOpts, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "can't create session options")
	}
	defer sessionOpts.Destroy()

	info := ProviderInfo{
		Backend: BackendONNX,
		Engine:  "onnxruntime",
		Device:  "CPU",
	}
	if opts.UseCUDA {
		cudaOpts, err := ort.NewCUDAProviderOptions()
		if err == nil {
			err = sessionOpts.AppendExecutionProviderCUDA(cudaOpts)
			cudaOpts.Destroy()
		}
		if err != nil {
			input.Destroy()
			output.Destroy()
			return nil, errors.Wrap(err, "can't enable CUDA execution provider")
		}
		info.Device = "CUDA"
	}

	session, err := ort.NewAdvancedSession(opts.ModelPath,
		[]string{opts.InputName}, []string{opts.OutputName},
		[]ort.Value{input}, []ort.Value{output}, sessionOpts)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrapf(err, "can't create session for %q", opts.ModelPath)
	}

	return &ONNXDetector{
		session:   session,
		input:     input,
		output:    output,
		inputSize: opts.InputSize,
		rowWidth:  opts.RowWidth,
		info:      info,
	}, nil
}

// Detect resizes frame into normalized NCHW RGB tensor, runs the session and decodes output rows
func (od *ONNXDetector) Detect(frame gocv.Mat) ([]lockon.RawDetection, error) {
	if frame.Empty() {
		return nil, errors.New("empty frame")
	}
	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(od.inputSize, od.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	pixels, err := blob.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "can't read preprocessed blob")
	}
	inputData := od.input.GetData()
	if len(pixels) != len(inputData) {
		return nil, errors.Errorf("blob has %d values, input tensor expects %d", len(pixels), len(inputData))
	}
	copy(inputData, pixels)

	err = od.session.Run()
	if err != nil {
		return nil, errors.Wrap(err, "inference failed")
	}
	return lockon.DecodeRows(od.output.GetData(), od.rowWidth), nil
}

// InputSize returns side of the square model input
func (od *ONNXDetector) InputSize() int {
	return od.inputSize
}

// Info returns information about the provider
func (od *ONNXDetector) Info() ProviderInfo {
	return od.info
}

// Close destroys session and tensors. The environment is left initialized for other sessions.
func (od *ONNXDetector) Close() error {
	err := od.session.Destroy()
	od.input.Destroy()
	od.output.Destroy()
	if err != nil {
		return errors.Wrap(err, "can't destroy session")
	}
	return nil
}
