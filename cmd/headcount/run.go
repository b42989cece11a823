package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/swdee/go-headcount/detector"
	"github.com/swdee/go-headcount/internal/api"
	"github.com/swdee/go-headcount/session"
)

// signalContext is cancelled on Ctrl+C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newRunner loads the detector and returns a session runner using it. The
// returned func frees the detector.
func newRunner() (*api.SessionRunner, func(), error) {

	log.Infow("loading model", "model", cfg.Detector.ModelPath, "device", cfg.Detector.Device)

	det, err := detector.New(cfg.Detector)

	if err != nil {
		return nil, nil, errors.Wrap(err, "error loading detector")
	}

	runner := &api.SessionRunner{
		Detector:  det,
		Config:    cfg.Session,
		TrailSize: cfg.TrailSize,
		Log:       log,
	}

	return runner, det.Close, nil
}

// defaultOutput returns a timestamped file name in the configured output
// directory
func defaultOutput(prefix string) (string, error) {

	if err := os.MkdirAll(cfg.Server.OutputDir, 0o755); err != nil {
		return "", errors.Wrap(err, "error creating output directory")
	}

	name := fmt.Sprintf("%s_%s.mp4", prefix, time.Now().Format("20060102_150405"))

	return filepath.Join(cfg.Server.OutputDir, name), nil
}

func printSummary(sum session.Summary, output string) {
	fmt.Printf("Session:             %s\n", sum.SessionID)
	fmt.Printf("Total unique people: %d\n", sum.TotalUnique)
	fmt.Printf("Total frames:        %d\n", sum.TotalFrames)

	if sum.SkippedFrames > 0 {
		fmt.Printf("Frames without detection: %d\n", sum.SkippedFrames)
	}

	fmt.Printf("Video length:        %.1fs\n", sum.VideoSeconds)
	fmt.Printf("Processing time:     %s\n", sum.Duration.Round(time.Millisecond))
	fmt.Printf("Output:              %s\n", output)
}
