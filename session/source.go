package session

import (
	"github.com/cockroachdb/errors"
	"gocv.io/x/gocv"
)

// ErrUnreadableSource marks a video file or camera that OpenCV can not open
// or decode
var ErrUnreadableSource = errors.New("unreadable video source")

// DefaultCameraFPS is used when a camera does not report its frame rate
const DefaultCameraFPS = 30

// FrameSource provides the frames of a session in order
type FrameSource interface {
	// Read decodes the next frame into dst. It returns false once the
	// source has no more frames.
	Read(dst *gocv.Mat) (bool, error)
	// FPS is the frame rate of the source
	FPS() float64
	// Size is the frame width and height
	Size() (int, int)
	// FrameCount is the number of frames, or zero for live sources
	FrameCount() int
	Close() error
}

// captureSource adapts a gocv.VideoCapture to FrameSource
type captureSource struct {
	capture *gocv.VideoCapture
	fps     float64
	width   int
	height  int
	frames  int
}

func newCaptureSource(capture *gocv.VideoCapture, defaultFPS float64) *captureSource {

	fps := capture.Get(gocv.VideoCaptureFPS)

	if fps <= 0 {
		fps = defaultFPS
	}

	return &captureSource{
		capture: capture,
		fps:     fps,
		width:   int(capture.Get(gocv.VideoCaptureFrameWidth)),
		height:  int(capture.Get(gocv.VideoCaptureFrameHeight)),
		frames:  max(int(capture.Get(gocv.VideoCaptureFrameCount)), 0),
	}
}

func (c *captureSource) Read(dst *gocv.Mat) (bool, error) {
	return c.capture.Read(dst), nil
}

func (c *captureSource) FPS() float64 {
	return c.fps
}

func (c *captureSource) Size() (int, int) {
	return c.width, c.height
}

func (c *captureSource) FrameCount() int {
	return c.frames
}

func (c *captureSource) Close() error {
	return c.capture.Close()
}

// VideoFileSource reads the frames of a video file
type VideoFileSource struct {
	*captureSource
	path string
}

// OpenVideoFile opens a video file for reading. An error marked
// ErrUnreadableSource is returned if OpenCV can not decode it.
func OpenVideoFile(path string) (*VideoFileSource, error) {

	capture, err := gocv.VideoCaptureFile(path)

	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "error opening video %s", path),
			ErrUnreadableSource)
	}

	if !capture.IsOpened() {
		capture.Close()
		return nil, errors.Mark(errors.Newf("video %s could not be opened", path),
			ErrUnreadableSource)
	}

	src := &VideoFileSource{
		captureSource: newCaptureSource(capture, 0),
		path:          path,
	}

	if src.width <= 0 || src.height <= 0 || src.fps <= 0 {
		src.Close()
		return nil, errors.Mark(
			errors.Newf("video %s reports %dx%d at %v fps, codec not supported",
				path, src.width, src.height, src.fps),
			ErrUnreadableSource)
	}

	return src, nil
}

// Path returns the file being read
func (v *VideoFileSource) Path() string {
	return v.path
}

// CameraSource reads frames from a live camera device
type CameraSource struct {
	*captureSource
	index int
}

// OpenCamera opens the camera at device index. The frame rate falls back to
// DefaultCameraFPS when the device reports none.
func OpenCamera(index int) (*CameraSource, error) {

	capture, err := gocv.OpenVideoCapture(index)

	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "error opening camera %d", index),
			ErrUnreadableSource)
	}

	if !capture.IsOpened() {
		capture.Close()
		return nil, errors.Mark(errors.Newf("could not open camera %d", index),
			ErrUnreadableSource)
	}

	return &CameraSource{
		captureSource: newCaptureSource(capture, DefaultCameraFPS),
		index:         index,
	}, nil
}

// FrameCount is always zero for a live camera
func (c *CameraSource) FrameCount() int {
	return 0
}

// Index returns the camera device index
func (c *CameraSource) Index() int {
	return c.index
}
