package api

import (
	"context"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/swdee/go-headcount/internal/logger"
	"github.com/swdee/go-headcount/session"
	"go.uber.org/zap"
)

// Runner runs one tracking session from a source to an output video
type Runner interface {
	Video(ctx context.Context, input, output string, confidence float32) (session.Summary, error)
	Camera(ctx context.Context, index int, output string, duration time.Duration,
		confidence float32) (session.Summary, error)
}

// SessionRunner is the Runner backed by a shared detector. Every call gets
// its own session so requests run concurrently.
type SessionRunner struct {
	Detector  session.Detector
	Config    session.Config
	TrailSize int
	Log       *zap.SugaredLogger
}

// Video tracks the people in the input video file
func (r *SessionRunner) Video(ctx context.Context, input, output string,
	confidence float32) (session.Summary, error) {

	src, err := session.OpenVideoFile(input)

	if err != nil {
		return session.Summary{}, err
	}

	defer src.Close()

	cfg := r.Config
	cfg.Confidence = confidence
	cfg.Duration = 0

	return r.run(ctx, cfg, src, output, r.Log.With(logger.FieldFile, input))
}

// Camera tracks the people seen by a camera for the given duration
func (r *SessionRunner) Camera(ctx context.Context, index int, output string,
	duration time.Duration, confidence float32) (session.Summary, error) {

	src, err := session.OpenCamera(index)

	if err != nil {
		return session.Summary{}, err
	}

	defer src.Close()

	cfg := r.Config
	cfg.Confidence = confidence
	cfg.Duration = duration

	return r.run(ctx, cfg, src, output, r.Log.With(logger.FieldCamera, index))
}

func (r *SessionRunner) run(ctx context.Context, cfg session.Config, src session.FrameSource,
	output string, log *zap.SugaredLogger) (session.Summary, error) {

	width, height := src.Size()

	sink, err := session.NewVideoWriterSink(output, src.FPS(), width, height)

	if err != nil {
		return session.Summary{}, err
	}

	s, err := session.New(cfg, r.Detector, session.WithLogger(log),
		session.WithTrail(r.TrailSize))

	if err != nil {
		sink.Close()
		return session.Summary{}, err
	}

	sum, err := s.Run(ctx, src, sink)

	if cerr := sink.Close(); cerr != nil && err == nil {
		err = errors.Wrap(cerr, "error closing output video")
	}

	if err != nil {
		_ = os.Remove(output)
		return sum, err
	}

	return sum, nil
}
