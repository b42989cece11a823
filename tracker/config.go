package tracker

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrInvalidConfiguration marks configuration that can not start a
	// tracking session
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrAssociationFailure marks a cost matrix or solver failure. It is
	// fatal for the session as it indicates broken input data.
	ErrAssociationFailure = errors.New("association failure")
)

// Config holds the tracker tunables. Thresholds are scene dependent (crowd
// density, frame rate) so none of them are hard coded.
type Config struct {
	// NInit is the number of consecutive hits needed to confirm a track
	NInit int `mapstructure:"n_init"`
	// MaxAge is the number of consecutive misses tolerated before a track
	// is lost and removed
	MaxAge int `mapstructure:"max_age"`
	// GatingThreshold is the maximum association cost accepted for a match,
	// with the default 0.7 meaning an IoU of at least 0.3
	GatingThreshold float64 `mapstructure:"gating_threshold"`
	// AppearanceWeight is the share of the appearance distance in the
	// blended cost. Zero disables the appearance term.
	AppearanceWeight float64 `mapstructure:"appearance_weight"`
	// TieBreakWeight scales the normalised center jump added to every
	// eligible cost so equal overlaps resolve to the smallest jump
	TieBreakWeight float64 `mapstructure:"tie_break_weight"`
	// Solver is the assignment algorithm, one of lapjv, hungarian, greedy
	Solver string `mapstructure:"solver"`
	// StdWeightPosition is the Kalman position noise relative to box height
	StdWeightPosition float64 `mapstructure:"std_weight_position"`
	// StdWeightVelocity is the Kalman velocity noise relative to box height
	StdWeightVelocity float64 `mapstructure:"std_weight_velocity"`
	// FeatureAlpha is the EMA weight given to a track's feature history
	FeatureAlpha float64 `mapstructure:"feature_alpha"`
	// FeatureQueue is the number of past features kept per track
	FeatureQueue int `mapstructure:"feature_queue"`
}

// DefaultConfig returns the tracker defaults, with NInit and MaxAge taken
// from the DeepSort settings of the original people counting service
func DefaultConfig() Config {
	return Config{
		NInit:             5,
		MaxAge:            50,
		GatingThreshold:   0.7,
		AppearanceWeight:  0,
		TieBreakWeight:    1e-6,
		Solver:            SolverLAPJV,
		StdWeightPosition: 1.0 / 20,
		StdWeightVelocity: 1.0 / 160,
		FeatureAlpha:      0.9,
		FeatureQueue:      30,
	}
}

// Validate checks the configuration, returning an error marked with
// ErrInvalidConfiguration for the first problem found
func (c Config) Validate() error {

	switch {
	case c.NInit < 1:
		return invalidf("n_init must be at least 1, got %d", c.NInit)

	case c.MaxAge < 1:
		return invalidf("max_age must be at least 1, got %d", c.MaxAge)

	case !(c.GatingThreshold > 0 && c.GatingThreshold <= 1):
		return invalidf("gating_threshold must be in (0, 1], got %v", c.GatingThreshold)

	case !(c.AppearanceWeight >= 0 && c.AppearanceWeight < 1):
		return invalidf("appearance_weight must be in [0, 1), got %v", c.AppearanceWeight)

	case !(c.TieBreakWeight >= 0 && c.TieBreakWeight < 1e-3):
		return invalidf("tie_break_weight must be in [0, 0.001), got %v", c.TieBreakWeight)

	case !(c.StdWeightPosition > 0) || !(c.StdWeightVelocity > 0):
		return invalidf("kalman std weights must be positive")

	case !(c.FeatureAlpha >= 0 && c.FeatureAlpha < 1):
		return invalidf("feature_alpha must be in [0, 1), got %v", c.FeatureAlpha)

	case c.FeatureQueue < 1:
		return invalidf("feature_queue must be at least 1, got %d", c.FeatureQueue)
	}

	if _, err := NewSolver(c.Solver); err != nil {
		return err
	}

	return nil
}

// ValidateConfidence checks a detector confidence threshold is in (0, 1]
func ValidateConfidence(threshold float32) error {
	if !(threshold > 0 && threshold <= 1) {
		return invalidf("confidence_threshold must be in (0, 1], got %v", threshold)
	}
	return nil
}

func invalidf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidConfiguration)
}
