package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-headcount/postprocess"
)

func TestTilerLayout(t *testing.T) {

	tiler := NewTiler(640, 640, 0.2, 0.2)

	rects := tiler.Layout(1920, 1080)
	require.Len(t, rects, 6)

	assert.Equal(t, TileRect{X: 0, Y: 0, X2: 768, Y2: 768}, rects[0])
	assert.Equal(t, TileRect{X: 576, Y: 0, X2: 1344, Y2: 768}, rects[1])
	assert.Equal(t, TileRect{X: 1152, Y: 312, X2: 1920, Y2: 1080}, rects[5])

	// every pixel is covered and tiles stay inside the frame
	for _, r := range rects {
		assert.GreaterOrEqual(t, r.X, 0)
		assert.GreaterOrEqual(t, r.Y, 0)
		assert.LessOrEqual(t, r.X2, 1920)
		assert.LessOrEqual(t, r.Y2, 1080)
	}
}

func TestTilerLayoutSmallFrame(t *testing.T) {

	rects := NewTiler(640, 640, 0.2, 0.2).Layout(640, 480)

	assert.Equal(t, []TileRect{{X: 0, Y: 0, X2: 640, Y2: 480}}, rects)
}

func TestMerge(t *testing.T) {

	results := []TileResult{
		{
			Rect: TileRect{X: 0, Y: 0, X2: 768, Y2: 768},
			Results: []postprocess.DetectResult{
				// person cut by the tile border
				{Class: 0, Probability: 0.9, Box: postprocess.BoxRect{Left: 700, Top: 100, Right: 768, Bottom: 300}},
				{Class: 0, Probability: 0.6, Box: postprocess.BoxRect{Left: 10, Top: 10, Right: 50, Bottom: 100}},
			},
		},
		{
			Rect: TileRect{X: 576, Y: 0, X2: 1344, Y2: 768},
			Results: []postprocess.DetectResult{
				// the same person seen whole
				{Class: 0, Probability: 0.7, Box: postprocess.BoxRect{Left: 114, Top: 100, Right: 214, Bottom: 300}},
				// another class at the same place
				{Class: 1, Probability: 0.5, Box: postprocess.BoxRect{Left: 114, Top: 100, Right: 214, Bottom: 300}},
			},
		},
	}

	merged := Merge(results, postprocess.NewIDGenerator(), 0.45, 0.7)
	require.Len(t, merged, 3)

	assert.Equal(t, postprocess.BoxRect{Left: 690, Top: 100, Right: 790, Bottom: 300}, merged[0].Box)
	assert.InDelta(t, 0.7, merged[0].Probability, 1e-6)
	assert.Equal(t, 0, merged[0].Class)

	assert.Equal(t, postprocess.BoxRect{Left: 10, Top: 10, Right: 50, Bottom: 100}, merged[1].Box)
	assert.Equal(t, 1, merged[2].Class)

	ids := map[int64]bool{}
	for _, m := range merged {
		assert.False(t, ids[m.ID])
		ids[m.ID] = true
	}
}
