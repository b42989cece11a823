package postprocess

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedLetterbox is a Letterbox with fixed values
type fixedLetterbox struct {
	scale      float32
	xPad, yPad int
	w, h       int
}

func (l fixedLetterbox) ScaleFactor() float32 { return l.scale }
func (l fixedLetterbox) XPad() int            { return l.xPad }
func (l fixedLetterbox) YPad() int            { return l.yPad }
func (l fixedLetterbox) SrcWidth() int        { return l.w }
func (l fixedLetterbox) SrcHeight() int       { return l.h }

// anchorOutput builds a [1, 4+classes, anchors] tensor from per anchor
// values of cx, cy, w, h followed by class scores
func anchorOutput(classes int, anchors [][]float32) ([]float32, []int) {

	attrs := 4 + classes
	n := len(anchors)
	data := make([]float32, attrs*n)

	for a, vals := range anchors {
		for attr, v := range vals {
			data[attr*n+a] = v
		}
	}

	return data, []int{1, attrs, n}
}

func TestYOLOv8DetectObjects(t *testing.T) {

	params := YOLOv8Params{
		BoxThreshold:    0.25,
		NMSThreshold:    0.45,
		ObjectClassNum:  2,
		MaxObjectNumber: 10,
	}

	y := NewYOLOv8(params)

	data, dims := anchorOutput(2, [][]float32{
		// person, strong
		{100, 200, 40, 100, 0.9, 0.1},
		// same person, weaker duplicate suppressed by NMS
		{102, 201, 40, 100, 0.8, 0.0},
		// other class at the same place is kept
		{100, 200, 40, 100, 0.1, 0.7},
		// below threshold
		{400, 400, 40, 100, 0.2, 0.1},
		// second person
		{300, 200, 40, 100, 0.5, 0.0},
	})

	// 1280x720 source letterboxed into 640x640
	lb := fixedLetterbox{scale: 0.5, xPad: 0, yPad: 140, w: 1280, h: 720}

	res, err := y.DetectObjects(data, dims, lb)
	require.NoError(t, err)

	dets := res.GetDetectResults()
	require.Len(t, dets, 3)

	assert.Equal(t, 0, dets[0].Class)
	assert.InDelta(t, 0.9, dets[0].Probability, 1e-6)
	assert.Equal(t, BoxRect{Left: 160, Top: 20, Right: 240, Bottom: 220}, dets[0].Box)

	assert.Equal(t, 1, dets[1].Class)
	assert.Equal(t, 0, dets[2].Class)
	assert.Equal(t, BoxRect{Left: 560, Top: 20, Right: 640, Bottom: 220}, dets[2].Box)

	// ids are unique and increasing
	assert.Less(t, dets[0].ID, dets[1].ID)
	assert.Less(t, dets[1].ID, dets[2].ID)
}

func TestYOLOv8ClassFilterAndTranspose(t *testing.T) {

	params := YOLOv8COCOParams()
	params.ObjectClassNum = 2
	params.Classes = []int{0}

	y := NewYOLOv8(params)

	// [1, anchors, 4+classes] layout
	data := []float32{
		100, 100, 20, 40, 0.1, 0.9,
		300, 100, 20, 40, 0.6, 0.2,
	}

	lb := fixedLetterbox{scale: 1, w: 640, h: 640}

	res, err := y.DetectObjects(data, []int{1, 2, 6}, lb)
	require.NoError(t, err)

	dets := res.GetDetectResults()
	require.Len(t, dets, 1)
	assert.Equal(t, 0, dets[0].Class)
	assert.Equal(t, BoxRect{Left: 290, Top: 80, Right: 310, Bottom: 120}, dets[0].Box)
}

func TestYOLOv8ClampsToSource(t *testing.T) {

	params := YOLOv8COCOParams()
	params.ObjectClassNum = 1

	data, dims := anchorOutput(1, [][]float32{
		{5, 5, 40, 40, 0.9},
	})

	res, err := NewYOLOv8(params).DetectObjects(data, dims,
		fixedLetterbox{scale: 1, w: 100, h: 100})
	require.NoError(t, err)

	require.Len(t, res.DetectResults, 1)
	assert.Equal(t, BoxRect{Left: 0, Top: 0, Right: 25, Bottom: 25}, res.DetectResults[0].Box)
}

func TestYOLOv8BadShape(t *testing.T) {

	y := NewYOLOv8(YOLOv8COCOParams())
	lb := fixedLetterbox{scale: 1, w: 640, h: 640}

	_, err := y.DetectObjects(make([]float32, 10), []int{1, 10}, lb)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutputShape))

	_, err = y.DetectObjects(make([]float32, 10), []int{1, 84, 8400}, lb)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutputShape))
}

func TestNMS(t *testing.T) {

	boxes := []float32{
		0, 0, 10, 10,
		1, 1, 10, 10,
		50, 50, 10, 10,
	}
	classIDs := []int{0, 0, 0}
	order := []int{0, 1, 2}

	nms(3, boxes, classIDs, order, 0, 0.45)

	assert.Equal(t, []int{0, -1, 2}, order)
}

func TestQuickSortIndiceInverse(t *testing.T) {

	probs := []float32{0.2, 0.9, 0.5, 0.7}
	idx := []int{0, 1, 2, 3}

	quickSortIndiceInverse(probs, 0, len(probs)-1, idx)

	assert.Equal(t, []float32{0.9, 0.7, 0.5, 0.2}, probs)
	assert.Equal(t, []int{1, 3, 2, 0}, idx)
}

func TestDetectionsToTracker(t *testing.T) {

	dets := []DetectResult{
		{Class: 0, Box: BoxRect{Left: 10, Top: 20, Right: 50, Bottom: 120}, Probability: 0.8, ID: 7},
		{Class: 2, Box: BoxRect{Left: 0, Top: 0, Right: 5, Bottom: 5}, Probability: 0.9, ID: 8},
	}

	out := DetectionsToTracker(dets, 0)
	require.Len(t, out, 1)

	assert.Equal(t, int64(7), out[0].ID)
	assert.Equal(t, float32(0.8), out[0].Confidence)
	assert.Equal(t, float32(40), out[0].Rect.Width())
	assert.Equal(t, float32(100), out[0].Rect.Height())
	assert.Equal(t, "person", out[0].Class)
}
