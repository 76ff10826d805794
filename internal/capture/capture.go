// Package capture grabs frames from a camera index, video file or stream URL.
package capture

import (
	"image"
	"strconv"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

var (
	// ErrClosed is returned when grabbing from a closed source
	ErrClosed = errors.New("capture source is closed")
	// ErrEndOfStream is returned when a file or stream source can't deliver more frames
	ErrEndOfStream = errors.New("capture source reached end of stream")
)

// Source wraps gocv.VideoCapture and reuses a single frame buffer.
// The Mat returned by Grab is valid until the next Grab or Close.
type Source struct {
	device string
	video  *gocv.VideoCapture
	frame  gocv.Mat
	// Camera index sources never end, a failed read there is transient
	camera bool
	closed bool
}

// Open opens capture device. Numeric strings are treated as camera indices.
func Open(device string) (*Source, error) {
	var (
		video *gocv.VideoCapture
		err   error
	)
	id, convErr := strconv.Atoi(device)
	camera := convErr == nil
	if camera {
		video, err = gocv.OpenVideoCapture(id)
	} else {
		video, err = gocv.OpenVideoCapture(device)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "can't open capture device %q", device)
	}
	if !video.IsOpened() {
		video.Close()
		return nil, errors.Errorf("capture device %q is not opened", device)
	}
	return &Source{
		device: device,
		video:  video,
		frame:  gocv.NewMat(),
		camera: camera,
	}, nil
}

// Grab reads next frame. The boolean is false when nothing was read this tick.
// Files and streams return ErrEndOfStream once a read fails.
func (src *Source) Grab() (gocv.Mat, bool, error) {
	if src.closed {
		return src.frame, false, ErrClosed
	}
	read := src.video.Read(&src.frame)
	ok, err := grabOutcome(src.camera, read, src.frame.Empty())
	return src.frame, ok, err
}

func grabOutcome(camera, read, empty bool) (bool, error) {
	if read && !empty {
		return true, nil
	}
	if camera {
		return false, nil
	}
	return false, ErrEndOfStream
}

// FrameSize returns the size reported by the device
func (src *Source) FrameSize() image.Point {
	return image.Pt(
		int(src.video.Get(gocv.VideoCaptureFrameWidth)),
		int(src.video.Get(gocv.VideoCaptureFrameHeight)),
	)
}

// SetSize requests capture resolution. Zero values keep the device default.
// Devices may silently pick another size; use FrameSize to see the real one.
func (src *Source) SetSize(width, height int) {
	if width > 0 {
		src.video.Set(gocv.VideoCaptureFrameWidth, float64(width))
	}
	if height > 0 {
		src.video.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
}

// Device returns device string the source was opened with
func (src *Source) Device() string {
	return src.device
}

// Close releases frame buffer and device. Repeated calls are no-op.
func (src *Source) Close() error {
	if src.closed {
		return nil
	}
	src.closed = true
	src.frame.Close()
	return src.video.Close()
}
