package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrailObserve(t *testing.T) {

	trail := NewTrail(2)

	trail.Observe(FrameState{Tracks: []Track{
		{ID: 1, Rect: NewRect(0, 0, 10, 10), Matched: true},
		{ID: 2, Rect: NewRect(50, 50, 10, 10), Matched: false},
	}})

	assert.Equal(t, []Point{{X: 5, Y: 5}}, trail.GetPoints(1))
	assert.Nil(t, trail.GetPoints(2))

	for _, x := range []float32{10, 20} {
		trail.Observe(FrameState{Tracks: []Track{
			{ID: 1, Rect: NewRect(x, 0, 10, 10), Matched: true},
		}})
	}

	// oldest point dropped
	assert.Equal(t, []Point{{X: 15, Y: 5}, {X: 25, Y: 5}}, trail.GetPoints(1))

	trail.Observe(FrameState{Removed: []int{1}})
	assert.Nil(t, trail.GetPoints(1))

	trail.Observe(FrameState{Tracks: []Track{
		{ID: 3, Rect: NewRect(0, 0, 10, 10), Matched: true},
	}})
	trail.Reset()
	assert.Nil(t, trail.GetPoints(3))
}
