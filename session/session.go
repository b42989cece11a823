package session

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/swdee/go-headcount/internal/logger"
	"github.com/swdee/go-headcount/render"
	"github.com/swdee/go-headcount/tracker"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Detector finds the people in a frame
type Detector interface {
	Detect(frame gocv.Mat, threshold float32) ([]tracker.Detection, error)
}

// Session tracks and counts the people of one video or camera run. Frames
// are processed one at a time, a Session must not be shared between
// goroutines.
type Session struct {
	id       string
	cfg      Config
	det      Detector
	registry *tracker.Registry
	counter  *tracker.Counter
	trail    *tracker.Trail
	style    render.Style
	annotate bool
	log      *zap.SugaredLogger
	skipped  int
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the logger, the default discards everything
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Session) {
		s.log = log
	}
}

// WithStyle sets the frame annotation style
func WithStyle(style render.Style) Option {
	return func(s *Session) {
		s.style = style
	}
}

// WithTrail draws the last size center points of every visible track
func WithTrail(size int) Option {
	return func(s *Session) {
		if size > 0 {
			s.trail = tracker.NewTrail(size)
		}
	}
}

// WithoutAnnotation skips drawing, FrameResult.Image is then a plain copy of
// the input frame
func WithoutAnnotation() Option {
	return func(s *Session) {
		s.annotate = false
	}
}

// WithID sets the session identifier instead of a random UUID
func WithID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// New validates cfg and returns a Session with an empty registry. Errors are
// marked tracker.ErrInvalidConfiguration.
func New(cfg Config, det Detector, opts ...Option) (*Session, error) {

	if det == nil {
		return nil, errors.Mark(errors.New("a detector is required"),
			tracker.ErrInvalidConfiguration)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry, err := tracker.NewRegistry(cfg.Tracker)

	if err != nil {
		return nil, err
	}

	s := &Session{
		id:       uuid.NewString(),
		cfg:      cfg,
		det:      det,
		registry: registry,
		counter:  tracker.NewCounter(),
		style:    render.DefaultStyle(),
		annotate: true,
		log:      zap.NewNop().Sugar(),
	}

	for _, o := range opts {
		o(s)
	}

	s.style.Trail = s.trail
	s.log = s.log.With(logger.FieldSession, s.id)

	return s, nil
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Counts returns the counts after the last processed frame
func (s *Session) Counts() tracker.Counts {
	return s.counter.Counts()
}

// Frames returns the number of frames processed
func (s *Session) Frames() int {
	return s.registry.Frame()
}

// FrameResult is the outcome of processing one frame
type FrameResult struct {
	// Frame is the 1-based frame number
	Frame int
	// Image is the annotated copy of the input frame, the caller must
	// Close it
	Image gocv.Mat
	// Tracks holds all live tracks after the frame
	Tracks []tracker.Track
	Counts tracker.Counts
	// Detections is the number of people the detector returned
	Detections int
	// Skipped is set when detection failed and the frame was processed
	// with no detections
	Skipped bool
}

// ProcessFrame runs detection, tracking, counting and annotation on a frame.
// A detection failure is logged and the frame counts as having no people,
// an association failure is returned and ends the session.
func (s *Session) ProcessFrame(frame gocv.Mat) (FrameResult, error) {

	var res FrameResult

	dets, err := s.det.Detect(frame, s.cfg.Confidence)

	if err != nil {
		if errors.Is(err, tracker.ErrInvalidConfiguration) {
			return res, err
		}

		s.skipped++
		s.log.Warnw("detection failed, continuing with no detections",
			logger.FieldFrame, s.registry.Frame()+1, zap.Error(err))

		dets = nil
		res.Skipped = true
	}

	state, err := s.registry.Update(dets)

	if err != nil {
		return FrameResult{}, errors.Wrapf(err, "frame %d", s.registry.Frame()+1)
	}

	counts := s.counter.Observe(state)

	if s.trail != nil {
		s.trail.Observe(state)
	}

	img := frame.Clone()

	if s.annotate {
		render.Annotate(&img, state.Tracks, counts, s.style)
	}

	if len(state.NewlyConfirmed) > 0 {
		s.log.Debugw("tracks confirmed", logger.FieldFrame, state.Frame,
			"ids", state.NewlyConfirmed)
	}

	res.Frame = state.Frame
	res.Image = img
	res.Tracks = state.Tracks
	res.Counts = counts
	res.Detections = len(dets)

	return res, nil
}

// Summary describes a finished run
type Summary struct {
	SessionID     string        `json:"session_id"`
	TotalUnique   int           `json:"total_unique_people"`
	TotalFrames   int           `json:"total_frames"`
	SkippedFrames int           `json:"skipped_frames"`
	Duration      time.Duration `json:"duration"`
	// VideoSeconds is the length of the processed video, frames over the
	// source frame rate
	VideoSeconds float64 `json:"duration_seconds"`
}

func (s *Session) summary(start time.Time, fps float64) Summary {

	sum := Summary{
		SessionID:     s.id,
		TotalUnique:   s.counter.Counts().TotalUnique,
		TotalFrames:   s.registry.Frame(),
		SkippedFrames: s.skipped,
		Duration:      time.Since(start),
	}

	if fps > 0 {
		sum.VideoSeconds = float64(sum.TotalFrames) / fps
	}

	return sum
}

// Run processes every frame of src in order and writes the annotated frames
// to sink. It stops when the source ends, when Config.Duration has passed or
// when ctx is done, always finishing the frame in progress. The summary
// covers the frames processed so far, also when an error is returned.
func (s *Session) Run(ctx context.Context, src FrameSource, sink FrameSink) (Summary, error) {

	start := time.Now()

	if s.cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Duration)
		defer cancel()
	}

	if sink == nil {
		sink = DiscardSink{}
	}

	width, height := src.Size()
	total := src.FrameCount()

	s.log.Infow("session started",
		"fps", src.FPS(),
		"width", width,
		"height", height,
		"frames", total,
	)

	frame := gocv.NewMat()
	defer frame.Close()

	for ctx.Err() == nil {

		ok, err := src.Read(&frame)

		if err != nil {
			return s.summary(start, src.FPS()), errors.Mark(
				errors.Wrap(err, "error reading frame"), ErrUnreadableSource)
		}

		if !ok {
			// end of video
			break
		}

		if frame.Empty() {
			continue
		}

		res, err := s.ProcessFrame(frame)

		if err != nil {
			return s.summary(start, src.FPS()), err
		}

		err = sink.Write(res.Image)
		res.Image.Close()

		if err != nil {
			return s.summary(start, src.FPS()), err
		}

		if s.cfg.ProgressEvery > 0 && res.Frame%s.cfg.ProgressEvery == 0 {
			s.log.Infow("progress",
				logger.FieldFrame, res.Frame,
				"of", total,
				"current", res.Counts.Current,
				"total_unique", res.Counts.TotalUnique,
			)
		}
	}

	sum := s.summary(start, src.FPS())

	s.log.Infow("session finished",
		"total_unique", sum.TotalUnique,
		"frames", sum.TotalFrames,
		"skipped", sum.SkippedFrames,
		"elapsed", sum.Duration,
	)

	return sum, nil
}
