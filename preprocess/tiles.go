package preprocess

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/swdee/go-headcount/postprocess"
	"gocv.io/x/gocv"
)

// Tiler implements Slicing Aided Hyper Inference: a large frame is cut into
// overlapping tiles that are each run through the model, so small far away
// people are seen at a usable resolution. Results of all tiles are merged
// back into frame coordinates.
type Tiler struct {
	// tileWidth and tileHeight should match the model input size
	tileWidth  int
	tileHeight int
	// overlap ratios from 0.0 to 1.0 of the tile size shared by neighbours
	overlapWidth  float32
	overlapHeight float32
}

// TileRect is the position of one tile in frame pixels
type TileRect struct {
	X, Y   int
	X2, Y2 int
}

// Tile is a cropped region of a frame ready for inference
type Tile struct {
	TileRect
	// region shares memory with the source frame
	region  gocv.Mat
	resizer *Resizer
	destMat gocv.Mat
}

// TileResult pairs a tile with the detections found in it, in tile pixels
type TileResult struct {
	Rect    TileRect
	Results []postprocess.DetectResult
}

// NewTiler returns a Tiler. tileWidth and tileHeight should be the model
// input tensor dimensions.
func NewTiler(tileWidth, tileHeight int, overlapWidth, overlapHeight float32) *Tiler {
	return &Tiler{
		tileWidth:     tileWidth,
		tileHeight:    tileHeight,
		overlapWidth:  overlapWidth,
		overlapHeight: overlapHeight,
	}
}

// computePositions returns the start coordinates of each tile along one
// axis and the tile length. The smallest number of tiles is used such that
// neighbours overlap by at least sliceLen*overlapRatio pixels, with left
// over pixels spread evenly.
func computePositions(srcLen, sliceLen int, overlapRatio float32) ([]int, int) {

	minOv := int(math.Ceil(float64(sliceLen) * float64(overlapRatio)))
	tileLen := sliceLen + minOv

	// frame smaller than one tile
	if tileLen >= srcLen {
		return []int{0}, srcLen
	}

	n := int(math.Ceil(float64(srcLen-tileLen)/float64(sliceLen))) + 1

	step := 0.0

	if n > 1 {
		step = float64(srcLen-tileLen) / float64(n-1)
	}

	positions := make([]int, n)

	for i := 0; i < n; i++ {
		p := int(math.Round(step * float64(i)))

		if p < 0 {
			p = 0
		} else if p > srcLen-tileLen {
			p = srcLen - tileLen
		}

		positions[i] = p
	}

	return positions, tileLen
}

// Layout returns the tile positions covering a frame of the given size, row
// by row
func (t *Tiler) Layout(srcWidth, srcHeight int) []TileRect {

	xs, tileW := computePositions(srcWidth, t.tileWidth, t.overlapWidth)
	ys, tileH := computePositions(srcHeight, t.tileHeight, t.overlapHeight)

	rects := make([]TileRect, 0, len(xs)*len(ys))

	for _, y := range ys {
		for _, x := range xs {
			rects = append(rects, TileRect{X: x, Y: y, X2: x + tileW, Y2: y + tileH})
		}
	}

	return rects
}

// Slice cuts src into tiles. Every returned Tile must be freed.
func (t *Tiler) Slice(src gocv.Mat) []Tile {

	layout := t.Layout(src.Cols(), src.Rows())
	tiles := make([]Tile, 0, len(layout))

	for _, r := range layout {
		tiles = append(tiles, Tile{
			TileRect: r,
			region:   src.Region(image.Rect(r.X, r.Y, r.X2, r.Y2)),
			resizer:  NewResizer(r.X2-r.X, r.Y2-r.Y, t.tileWidth, t.tileHeight),
			destMat:  gocv.NewMat(),
		})
	}

	return tiles
}

// Mat returns the tile letterboxed to the model input size
func (s *Tile) Mat() *gocv.Mat {
	s.resizer.LetterBoxResize(s.region, &s.destMat, color.RGBA{R: 0, G: 0, B: 0, A: 255})
	return &s.destMat
}

// Resizer returns the letterbox used for the tile
func (s *Tile) Resizer() *Resizer {
	return s.resizer
}

// Free releases the tile from memory
func (s *Tile) Free() error {
	err := s.resizer.Close()
	err2 := s.region.Close()
	err3 := s.destMat.Close()

	return errors.CombineErrors(err, errors.CombineErrors(err2, err3))
}

// Merge maps the tile results back into frame coordinates and removes the
// duplicates of people seen by more than one tile.
//   - iouThreshold is the overlap above which two boxes are the same object
//   - smallBoxOverlapThresh is the fraction of a box's area that must be
//     covered by another box for it to be a duplicate, which happens when a
//     person is cut by a tile border
func Merge(results []TileResult, ids *postprocess.IDGenerator,
	iouThreshold, smallBoxOverlapThresh float32) []postprocess.DetectResult {

	group := make([]postprocess.DetectResult, 0)

	for _, tr := range results {
		for _, dr := range tr.Results {
			group = append(group, postprocess.DetectResult{
				Box: postprocess.BoxRect{
					Left:   tr.Rect.X + dr.Box.Left,
					Top:    tr.Rect.Y + dr.Box.Top,
					Right:  tr.Rect.X + dr.Box.Right,
					Bottom: tr.Rect.Y + dr.Box.Bottom,
				},
				Probability: dr.Probability,
				Class:       dr.Class,
				ID:          ids.GetNext(),
			})
		}
	}

	// descending probability, ties keep tile order
	sort.SliceStable(group, func(i, j int) bool {
		return group[i].Probability > group[j].Probability
	})

	return nmsCluster(group, iouThreshold, smallBoxOverlapThresh)
}

// nmsCluster picks one box per overlapping cluster of the same class,
// choosing the largest area with ties broken on confidence. dets must be
// sorted by descending probability.
func nmsCluster(dets []postprocess.DetectResult,
	iouThreshold, smallBoxOverlapThresh float32) []postprocess.DetectResult {

	n := len(dets)
	suppressed := make([]bool, n)
	keep := make([]postprocess.DetectResult, 0, n)

	for i, base := range dets {
		if suppressed[i] {
			continue
		}

		cluster := []postprocess.DetectResult{base}
		suppressed[i] = true

		for j := i + 1; j < n; j++ {
			other := dets[j]

			if suppressed[j] || other.Class != base.Class {
				continue
			}

			inCluster := boxIoU(base.Box, other.Box) > iouThreshold

			if !inCluster {
				areaOther := boxArea(other.Box)
				inCluster = areaOther > 0 &&
					float32(intersectionArea(base.Box, other.Box))/float32(areaOther) > smallBoxOverlapThresh
			}

			if !inCluster {
				continue
			}

			suppressed[j] = true
			cluster = append(cluster, other)
		}

		best := cluster[0]
		bestArea := boxArea(best.Box)

		for _, c := range cluster[1:] {
			a := boxArea(c.Box)

			if a > bestArea || (a == bestArea && c.Probability > best.Probability) {
				best = c
				bestArea = a
			}
		}

		keep = append(keep, best)
	}

	return keep
}

// boxIoU computes the Intersection-over-Union of two boxes
func boxIoU(a, b postprocess.BoxRect) float32 {

	inter := float32(intersectionArea(a, b))
	union := float32(boxArea(a)+boxArea(b)) - inter

	if union <= 0 {
		return 0
	}

	return inter / union
}

// intersectionArea returns the pixel area of overlap between two boxes
func intersectionArea(a, b postprocess.BoxRect) int {
	x1 := max(a.Left, b.Left)
	y1 := max(a.Top, b.Top)
	x2 := min(a.Right, b.Right)
	y2 := min(a.Bottom, b.Bottom)

	if x2 <= x1 || y2 <= y1 {
		return 0
	}

	return (x2 - x1) * (y2 - y1)
}

// boxArea returns the pixel area of a single box
func boxArea(a postprocess.BoxRect) int {
	return max(0, a.Width()) * max(0, a.Height())
}
