package tracker

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/swdee/go-headcount/postprocess/reid"
	"gonum.org/v1/gonum/mat"
)

// Status is the lifecycle state of a Track
type Status int

const (
	// Tentative tracks have not yet been hit NInit times in a row
	Tentative Status = iota
	// Confirmed tracks are counted and drawn
	Confirmed
	// Lost tracks exceeded MaxAge misses and are removed from the registry
	Lost
)

// String returns the status name
func (s Status) String() string {
	switch s {
	case Tentative:
		return "tentative"
	case Confirmed:
		return "confirmed"
	case Lost:
		return "lost"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Track is a persistent identity maintained across frames
type Track struct {
	// ID is assigned once at creation and never reused within a session
	ID int
	// Rect is the current estimated bounding box
	Rect Rect
	// Status is the lifecycle state
	Status Status
	// Hits is the number of consecutive frames the track was matched
	Hits int
	// Misses is the number of consecutive frames the track went unmatched
	Misses int
	// Age is the number of frames since the track was created
	Age int
	// TimeSinceUpdate is the number of frames since the last match
	TimeSinceUpdate int
	// Matched is true when the track was matched in the most recent frame
	Matched bool
	// Confidence of the last matched detection
	Confidence float32
	// DetectionID of the last matched detection
	DetectionID int64
	// StartFrame is the frame number the track was created on
	StartFrame int

	mean       StateMean
	covariance *mat.Dense

	// smoothed appearance feature and its history
	feature      []float64
	featureQueue [][]float64
}

// newTrack creates a Tentative track seeded from a detection
func newTrack(id, frame int, det Detection, kf *KalmanFilter,
	cfg Config) *Track {

	mean, cov := kf.Initiate(det.Rect.GetXyah())

	t := &Track{
		ID:          id,
		Rect:        det.Rect,
		Status:      Tentative,
		Hits:        1,
		Matched:     true,
		Confidence:  det.Confidence,
		DetectionID: det.ID,
		StartFrame:  frame,
		mean:        mean,
		covariance:  cov,
	}

	t.updateFeature(det.Feature, cfg)

	if t.Hits >= cfg.NInit {
		t.Status = Confirmed
	}

	return t
}

// predict advances the motion model one frame and refreshes the box
func (t *Track) predict(kf *KalmanFilter) {

	// a track that keeps missing should not keep growing
	if t.TimeSinceUpdate > 0 {
		t.mean[7] = 0
	}

	kf.Predict(&t.mean, t.covariance)

	t.Age++
	t.TimeSinceUpdate++
	t.updateRect()
}

// update corrects the motion model with a matched detection
func (t *Track) update(kf *KalmanFilter, det Detection, cfg Config) error {

	if err := kf.Update(&t.mean, t.covariance, det.Rect.GetXyah()); err != nil {
		return errors.Wrapf(err, "kalman update of track %d", t.ID)
	}

	t.updateRect()

	t.Hits++
	t.Misses = 0
	t.TimeSinceUpdate = 0
	t.Matched = true
	t.Confidence = det.Confidence
	t.DetectionID = det.ID

	t.updateFeature(det.Feature, cfg)

	return nil
}

// markMissed records a frame without a match. It reports whether the track
// is now Lost.
func (t *Track) markMissed(maxAge int) bool {

	t.Misses++
	t.Hits = 0
	t.Matched = false

	if t.Misses > maxAge {
		t.Status = Lost
		return true
	}

	return false
}

// updateRect derives the bounding box from the state mean
func (t *Track) updateRect() {

	r := GenerateRectByXyah(t.mean.ToXyah())

	// keep the last good box if the filter diverged
	if r.Valid() {
		t.Rect = r
	}
}

// updateFeature folds a detection feature into the smoothed track feature
// and its bounded history
func (t *Track) updateFeature(feat []float64, cfg Config) {

	if len(feat) == 0 {
		return
	}

	norm := reid.NormalizeVec(feat)

	if t.feature == nil {
		t.feature = norm
	} else {
		t.feature = reid.Smooth(t.feature, norm, cfg.FeatureAlpha)
	}

	t.featureQueue = append(t.featureQueue, norm)

	if len(t.featureQueue) > cfg.FeatureQueue {
		t.featureQueue = t.featureQueue[1:]
	}
}

// HasFeature reports whether the track carries an appearance feature
func (t *Track) HasFeature() bool {
	return len(t.featureQueue) > 0
}

// Feature returns the smoothed appearance feature, nil when none was seen
func (t *Track) Feature() []float64 {
	return t.feature
}

// featureDistance returns the smallest cosine distance between feat and the
// track's feature history, scaled into [0,1]
func (t *Track) featureDistance(feat []float64) float64 {

	if len(t.featureQueue) == 0 || len(feat) == 0 {
		return 1
	}

	best := 1.0

	for _, f := range t.featureQueue {
		if d := reid.CosineDistance(f, feat) / 2; d < best {
			best = d
		}
	}

	if best < 0 {
		best = 0
	}

	return best
}

// snapshot returns a copy of the track that shares no mutable state with
// the registry
func (t *Track) snapshot() Track {

	c := *t
	c.covariance = nil
	c.featureQueue = nil

	if t.feature != nil {
		c.feature = append([]float64(nil), t.feature...)
	}

	return c
}

// Velocity returns the estimated center velocity in pixels per frame
func (t Track) Velocity() (float64, float64) {
	return t.mean[4], t.mean[5]
}
