package tracker

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTrack(id int, x, y, w, h float32) *Track {
	return &Track{ID: id, Rect: NewRect(x, y, w, h)}
}

func newTestAssociator(t *testing.T, mod func(*Config)) *Associator {
	t.Helper()

	cfg := DefaultConfig()
	if mod != nil {
		mod(&cfg)
	}

	a, err := NewAssociator(cfg)
	require.NoError(t, err)

	return a
}

func TestAssociateMatchesOverlap(t *testing.T) {

	a := newTestAssociator(t, nil)

	tracks := []*Track{
		testTrack(1, 0, 0, 50, 100),
		testTrack(2, 200, 0, 50, 100),
	}

	dets := []Detection{
		box(202, 1, 50, 100),
		box(1, 2, 50, 100),
		box(500, 500, 50, 100),
	}

	res, err := a.Associate(tracks, dets)
	require.NoError(t, err)

	require.Len(t, res.Matches, 2)
	assert.Equal(t, 0, res.Matches[0].Track)
	assert.Equal(t, 1, res.Matches[0].Detection)
	assert.Equal(t, 1, res.Matches[1].Track)
	assert.Equal(t, 0, res.Matches[1].Detection)
	assert.Empty(t, res.UnmatchedTracks)
	assert.Equal(t, []int{2}, res.UnmatchedDetections)
}

func TestAssociateGating(t *testing.T) {

	a := newTestAssociator(t, nil)

	// IoU 0.25, cost 0.75 is above the 0.7 gate
	res, err := a.Associate(
		[]*Track{testTrack(1, 0, 0, 10, 10)},
		[]Detection{box(6, 0, 10, 10)},
	)
	require.NoError(t, err)

	assert.Empty(t, res.Matches)
	assert.Equal(t, []int{0}, res.UnmatchedTracks)
	assert.Equal(t, []int{0}, res.UnmatchedDetections)
}

func TestAssociateNoOverlapIsInfeasible(t *testing.T) {

	a := newTestAssociator(t, func(c *Config) { c.GatingThreshold = 1 })

	tracks := []*Track{testTrack(1, 0, 0, 10, 10)}
	dets := []Detection{box(10, 0, 10, 10)}

	cost, err := a.CostMatrix(tracks, dets)
	require.NoError(t, err)
	assert.Equal(t, float64(Infeasible), cost[0][0])

	res, err := a.Associate(tracks, dets)
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
}

func TestAssociateTieBreakPrefersSmallerJump(t *testing.T) {

	a := newTestAssociator(t, func(c *Config) { c.GatingThreshold = 0.8 })

	track := testTrack(1, 0, 0, 10, 10)

	// both contain the track box so IoU is 0.25 for each, only the
	// second keeps the same center
	shifted := box(0, 0, 20, 20)
	centred := box(-5, -5, 20, 20)

	cost, err := a.CostMatrix([]*Track{track}, []Detection{shifted, centred})
	require.NoError(t, err)
	require.Equal(t, cost[0][0], cost[0][1])

	for _, dets := range [][]Detection{{shifted, centred}, {centred, shifted}} {
		res, err := a.Associate([]*Track{track}, dets)
		require.NoError(t, err)
		require.Len(t, res.Matches, 1)

		matched := dets[res.Matches[0].Detection]
		assert.Equal(t, centred.Rect, matched.Rect)
	}
}

func TestAssociateAppearance(t *testing.T) {

	a := newTestAssociator(t, func(c *Config) {
		c.GatingThreshold = 0.8
		c.AppearanceWeight = 0.5
	})

	track := testTrack(1, 0, 0, 10, 10)
	track.updateFeature([]float64{1, 0}, DefaultConfig())

	lookalike := box(0, 0, 20, 20)
	lookalike.Feature = []float64{2, 0}

	stranger := box(-5, -5, 20, 20)
	stranger.Feature = []float64{0, 1}

	res, err := a.Associate([]*Track{track}, []Detection{stranger, lookalike})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)

	assert.Equal(t, 1, res.Matches[0].Detection)
	assert.InDelta(t, 0.375, res.Matches[0].Cost, 1e-6)
}

func TestAssociateEmptyInputs(t *testing.T) {

	a := newTestAssociator(t, nil)

	res, err := a.Associate(nil, []Detection{box(0, 0, 5, 5), box(10, 10, 5, 5)})
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
	assert.Equal(t, []int{0, 1}, res.UnmatchedDetections)

	res, err = a.Associate([]*Track{testTrack(1, 0, 0, 5, 5)}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, res.UnmatchedTracks)
	assert.Empty(t, res.UnmatchedDetections)
}

func TestAssociateNonFiniteCost(t *testing.T) {

	a := newTestAssociator(t, nil)

	track := testTrack(1, 0, 0, 10, 10)
	track.Rect.Tlwh[2] = float32(math.Inf(1))

	_, err := a.Associate([]*Track{track}, []Detection{box(0, 0, 10, 10)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAssociationFailure))
}

func TestAssociateSolversAgree(t *testing.T) {

	tracks := []*Track{
		testTrack(1, 0, 0, 40, 100),
		testTrack(2, 30, 0, 40, 100),
		testTrack(3, 300, 50, 40, 100),
	}

	dets := []Detection{
		box(35, 2, 40, 100),
		box(2, 1, 40, 100),
		box(305, 55, 40, 100),
		box(900, 0, 40, 100),
	}

	for _, name := range []string{SolverLAPJV, SolverHungarian, SolverGreedy} {
		t.Run(name, func(t *testing.T) {
			a := newTestAssociator(t, func(c *Config) { c.Solver = name })

			res, err := a.Associate(tracks, dets)
			require.NoError(t, err)

			assert.Equal(t, []Match{
				{Track: 0, Detection: 1, Cost: res.Matches[0].Cost},
				{Track: 1, Detection: 0, Cost: res.Matches[1].Cost},
				{Track: 2, Detection: 2, Cost: res.Matches[2].Cost},
			}, res.Matches)
			assert.Empty(t, res.UnmatchedTracks)
			assert.Equal(t, []int{3}, res.UnmatchedDetections)
		})
	}
}
