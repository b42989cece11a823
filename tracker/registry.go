package tracker

import (
	"math"
	"sort"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"
)

// FrameState is the registry state after one Update
type FrameState struct {
	// Frame is the 1-based frame number within the session
	Frame int
	// Tracks holds copies of all live tracks ordered by ID
	Tracks []Track
	// Removed holds the IDs of tracks lost and removed this frame
	Removed []int
	// NewlyConfirmed holds the IDs of tracks that reached Confirmed this frame
	NewlyConfirmed []int
	// Dropped is the number of detections ignored because their box had no
	// area
	Dropped int
}

// Registry owns the live tracks of one tracking session. It is not safe for
// concurrent use, frames must be fed one at a time in order.
type Registry struct {
	cfg        Config
	kf         *KalmanFilter
	associator *Associator
	// live tracks in ascending ID order
	tracks []*Track
	// nextID is the identifier given to the next new track
	nextID int
	frame  int
}

// NewRegistry returns an empty Registry. An error marked
// ErrInvalidConfiguration is returned if cfg does not validate.
func NewRegistry(cfg Config) (*Registry, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	associator, err := NewAssociator(cfg)

	if err != nil {
		return nil, err
	}

	return &Registry{
		cfg:        cfg,
		kf:         NewKalmanFilter(cfg.StdWeightPosition, cfg.StdWeightVelocity),
		associator: associator,
		nextID:     1,
	}, nil
}

// Update advances the registry by one frame using that frame's detections.
// On error the registry is left as it was before the call.
func (r *Registry) Update(detections []Detection) (FrameState, error) {

	var state FrameState

	usable := make([]Detection, 0, len(detections))

	for _, d := range detections {
		if !d.Rect.Finite() || math.IsNaN(float64(d.Confidence)) {
			return state, errors.Mark(
				errors.Newf("detection %d has non-finite values", d.ID),
				ErrAssociationFailure)
		}

		if !d.Rect.Valid() {
			state.Dropped++
			continue
		}

		usable = append(usable, d)
	}

	// predict on copies so a failed association leaves tracks untouched
	predicted := make([]*Track, len(r.tracks))

	for i, t := range r.tracks {
		c := *t
		c.covariance = mat.DenseCopyOf(t.covariance)
		c.predict(r.kf)
		predicted[i] = &c
	}

	assoc, err := r.associator.Associate(predicted, usable)

	if err != nil {
		return FrameState{}, err
	}

	for _, m := range assoc.Matches {
		t := predicted[m.Track]
		wasConfirmed := t.Status == Confirmed

		if err := t.update(r.kf, usable[m.Detection], r.cfg); err != nil {
			return FrameState{}, errors.Mark(err, ErrAssociationFailure)
		}

		if !wasConfirmed && t.Hits >= r.cfg.NInit {
			t.Status = Confirmed
			state.NewlyConfirmed = append(state.NewlyConfirmed, t.ID)
		}
	}

	live := make([]*Track, 0, len(predicted)+len(assoc.UnmatchedDetections))

	unmatched := make(map[int]bool, len(assoc.UnmatchedTracks))

	for _, i := range assoc.UnmatchedTracks {
		unmatched[i] = true
	}

	for i, t := range predicted {
		if unmatched[i] && t.markMissed(r.cfg.MaxAge) {
			state.Removed = append(state.Removed, t.ID)
			continue
		}

		live = append(live, t)
	}

	r.frame++

	for _, j := range assoc.UnmatchedDetections {
		t := newTrack(r.nextID, r.frame, usable[j], r.kf, r.cfg)
		r.nextID++

		if t.Status == Confirmed {
			state.NewlyConfirmed = append(state.NewlyConfirmed, t.ID)
		}

		live = append(live, t)
	}

	// new IDs are always larger, but keep the order explicit
	sort.SliceStable(live, func(a, b int) bool {
		return live[a].ID < live[b].ID
	})

	sort.Ints(state.NewlyConfirmed)

	r.tracks = live

	state.Frame = r.frame
	state.Tracks = r.Tracks()

	return state, nil
}

// Tracks returns copies of all live tracks ordered by ID
func (r *Registry) Tracks() []Track {

	out := make([]Track, len(r.tracks))

	for i, t := range r.tracks {
		out[i] = t.snapshot()
	}

	return out
}

// Confirmed returns copies of the live Confirmed tracks ordered by ID
func (r *Registry) Confirmed() []Track {

	var out []Track

	for _, t := range r.tracks {
		if t.Status == Confirmed {
			out = append(out, t.snapshot())
		}
	}

	return out
}

// Frame returns the number of frames processed
func (r *Registry) Frame() int {
	return r.frame
}

// Reset drops every track. Identifiers keep increasing so IDs handed out
// before the reset are never reused.
func (r *Registry) Reset() {
	r.tracks = nil
	r.frame = 0
}
