package session

import (
	"github.com/cockroachdb/errors"
	"gocv.io/x/gocv"
)

// OutputCodec is the fourcc used for written videos
const OutputCodec = "mp4v"

// FrameSink receives the annotated frames of a session
type FrameSink interface {
	Write(img gocv.Mat) error
	Close() error
}

// VideoWriterSink encodes annotated frames to a video file
type VideoWriterSink struct {
	writer *gocv.VideoWriter
	path   string
	frames int
}

// NewVideoWriterSink creates the video file path at the given frame rate and
// size, matching the source so output timing is preserved
func NewVideoWriterSink(path string, fps float64, width, height int) (*VideoWriterSink, error) {

	writer, err := gocv.VideoWriterFile(path, OutputCodec, fps, width, height, true)

	if err != nil {
		return nil, errors.Wrapf(err, "error creating video writer %s", path)
	}

	if !writer.IsOpened() {
		writer.Close()
		return nil, errors.Newf("video writer %s could not be opened", path)
	}

	return &VideoWriterSink{
		writer: writer,
		path:   path,
	}, nil
}

// Write appends a frame to the video
func (v *VideoWriterSink) Write(img gocv.Mat) error {

	if err := v.writer.Write(img); err != nil {
		return errors.Wrapf(err, "error writing frame %d", v.frames+1)
	}

	v.frames++
	return nil
}

// Frames returns the number of frames written
func (v *VideoWriterSink) Frames() int {
	return v.frames
}

// Close flushes and closes the video file
func (v *VideoWriterSink) Close() error {
	return v.writer.Close()
}

// DiscardSink drops every frame
type DiscardSink struct{}

func (DiscardSink) Write(gocv.Mat) error {
	return nil
}

func (DiscardSink) Close() error {
	return nil
}
