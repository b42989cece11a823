package session

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/swdee/go-headcount/tracker"
)

// DefaultProgressEvery is the frame interval between progress log lines
const DefaultProgressEvery = 30

// Config holds the per session settings
type Config struct {
	// Confidence is the minimum detector score a person must reach
	Confidence float32 `mapstructure:"confidence_threshold"`
	// Tracker holds the tracking tunables
	Tracker tracker.Config `mapstructure:"tracker"`
	// Duration bounds the run time, zero runs until the source ends
	Duration time.Duration `mapstructure:"duration"`
	// ProgressEvery logs progress after this many frames, zero disables it
	ProgressEvery int `mapstructure:"progress_every"`
}

// DefaultConfig returns the settings of the people counting service
func DefaultConfig() Config {
	return Config{
		Confidence:    0.35,
		Tracker:       tracker.DefaultConfig(),
		ProgressEvery: DefaultProgressEvery,
	}
}

// Validate checks the settings, errors are marked
// tracker.ErrInvalidConfiguration
func (c Config) Validate() error {

	if err := tracker.ValidateConfidence(c.Confidence); err != nil {
		return err
	}

	if err := c.Tracker.Validate(); err != nil {
		return err
	}

	if c.Duration < 0 {
		return errors.Mark(errors.Newf("duration must not be negative, got %v", c.Duration),
			tracker.ErrInvalidConfiguration)
	}

	if c.ProgressEvery < 0 {
		return errors.Mark(errors.Newf("progress_every must not be negative, got %d", c.ProgressEvery),
			tracker.ErrInvalidConfiguration)
	}

	return nil
}
