package tracker

import (
	"math"

	"github.com/cockroachdb/errors"
)

// Infeasible is the cost given to track/detection pairs that must never be
// matched, such as boxes with no overlap. It is finite so every solver can
// work with it but far above any gating threshold.
const Infeasible = 1e4

// Match pairs a track index with a detection index
type Match struct {
	Track     int
	Detection int
	Cost      float64
}

// Association is the result of matching one frame's detections to the live
// tracks. All indices refer to the slices given to Associate and are in
// ascending order.
type Association struct {
	Matches             []Match
	UnmatchedTracks     []int
	UnmatchedDetections []int
}

// Associator matches detections to tracks by solving a minimum cost
// bipartite assignment
type Associator struct {
	solver           Solver
	gatingThreshold  float64
	appearanceWeight float64
	tieBreakWeight   float64
}

// NewAssociator returns an Associator for the given configuration
func NewAssociator(cfg Config) (*Associator, error) {

	solver, err := NewSolver(cfg.Solver)

	if err != nil {
		return nil, err
	}

	return &Associator{
		solver:           solver,
		gatingThreshold:  cfg.GatingThreshold,
		appearanceWeight: cfg.AppearanceWeight,
		tieBreakWeight:   cfg.TieBreakWeight,
	}, nil
}

// Associate matches detections to the predicted boxes of tracks. Any pair
// whose cost exceeds the gating threshold is reported unmatched on both
// sides.
func (a *Associator) Associate(tracks []*Track, detections []Detection) (Association, error) {

	var res Association

	if len(tracks) == 0 || len(detections) == 0 {
		res.UnmatchedTracks = indexRange(len(tracks))
		res.UnmatchedDetections = indexRange(len(detections))
		return res, nil
	}

	base, err := a.CostMatrix(tracks, detections)

	if err != nil {
		return res, err
	}

	// solver cost carries the tie-break term, gating uses the base cost
	solve := make([][]float64, len(base))

	for i, row := range base {
		solve[i] = make([]float64, len(row))

		for j, c := range row {
			solve[i][j] = c

			if c < Infeasible && a.tieBreakWeight > 0 {
				solve[i][j] += a.tieBreakWeight * jump(tracks[i].Rect, detections[j].Rect)
			}
		}
	}

	// pairs above the gate can never beat leaving both sides unmatched
	limit := a.gatingThreshold + a.tieBreakWeight*jumpCap

	rowsol, colsol, err := a.solver.Solve(solve, limit)

	if err != nil {
		return res, errors.Mark(errors.Wrap(err, "solving assignment"),
			ErrAssociationFailure)
	}

	for i, j := range rowsol {
		if j >= 0 && base[i][j] <= a.gatingThreshold {
			res.Matches = append(res.Matches, Match{Track: i, Detection: j, Cost: base[i][j]})
			continue
		}

		if j >= 0 {
			colsol[j] = -1
		}

		res.UnmatchedTracks = append(res.UnmatchedTracks, i)
	}

	for j, i := range colsol {
		if i < 0 {
			res.UnmatchedDetections = append(res.UnmatchedDetections, j)
		}
	}

	return res, nil
}

// CostMatrix returns the association cost of every track/detection pair,
// rows are tracks and columns detections. It returns an error marked
// ErrAssociationFailure if any cost is not a finite number.
func (a *Associator) CostMatrix(tracks []*Track, detections []Detection) ([][]float64, error) {

	cost := make([][]float64, len(tracks))

	for i, t := range tracks {
		cost[i] = make([]float64, len(detections))

		for j, d := range detections {

			c := a.pairCost(t, d)

			if math.IsNaN(c) || math.IsInf(c, 0) {
				return nil, errors.Mark(
					errors.Newf("non-finite cost %v between track %d and detection %d", c, t.ID, d.ID),
					ErrAssociationFailure)
			}

			cost[i][j] = c
		}
	}

	return cost, nil
}

// pairCost is 1 - IoU, optionally blended with the appearance distance.
// Pairs without any overlap are Infeasible.
func (a *Associator) pairCost(t *Track, d Detection) float64 {

	if !d.Rect.Finite() || !t.Rect.Finite() {
		return math.NaN()
	}

	iou := float64(t.Rect.CalcIoU(d.Rect))

	if iou <= 0 {
		return Infeasible
	}

	cost := 1 - iou

	if a.appearanceWeight > 0 && t.HasFeature() && len(d.Feature) > 0 {
		cost = (1-a.appearanceWeight)*cost +
			a.appearanceWeight*t.featureDistance(d.Feature)
	}

	return cost
}

// jumpCap bounds the normalised center jump of the tie-break term
const jumpCap = 4.0

// jump returns the center displacement between a predicted box and a
// detection relative to the predicted box diagonal
func jump(pred, det Rect) float64 {

	diag := float64(pred.Diagonal())

	if diag <= 0 {
		return jumpCap
	}

	j := float64(pred.CenterDistance(det)) / diag

	if j > jumpCap {
		j = jumpCap
	}

	return j
}

func indexRange(n int) []int {

	if n == 0 {
		return nil
	}

	idx := make([]int, n)

	for i := range idx {
		idx[i] = i
	}

	return idx
}
