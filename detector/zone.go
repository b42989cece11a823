package detector

import (
	"image"
	"math"

	clipper "github.com/ctessum/go.clipper"
	"github.com/swdee/go-headcount/tracker"
)

// Zone is a counting area. Only people standing mostly inside it are
// passed on to the tracker.
type Zone struct {
	path       clipper.Path
	minOverlap float64
}

// NewZone returns a Zone for the polygon points given in frame pixels.
// minOverlap is the share of a bounding box that must lie inside the polygon.
func NewZone(points []image.Point, minOverlap float64) (*Zone, error) {

	if len(points) < 3 {
		return nil, invalidf("zone needs at least 3 points, got %d", len(points))
	}

	if minOverlap < 0 || minOverlap > 1 {
		return nil, invalidf("min_overlap must be in [0, 1], got %v", minOverlap)
	}

	var path clipper.Path

	for _, pt := range points {
		path = append(path, &clipper.IntPoint{X: clipper.CInt(pt.X), Y: clipper.CInt(pt.Y)})
	}

	if polygonArea(path) == 0 {
		return nil, invalidf("zone polygon has no area")
	}

	return &Zone{
		path:       path,
		minOverlap: minOverlap,
	}, nil
}

// Overlap returns the share of rect's area inside the zone
func (z *Zone) Overlap(rect tracker.Rect) float64 {

	area := float64(rect.Area())

	if area <= 0 {
		return 0
	}

	x1 := clipper.CInt(math.Round(float64(rect.X())))
	y1 := clipper.CInt(math.Round(float64(rect.Y())))
	x2 := clipper.CInt(math.Round(float64(rect.BRX())))
	y2 := clipper.CInt(math.Round(float64(rect.BRY())))

	box := clipper.Path{
		&clipper.IntPoint{X: x1, Y: y1},
		&clipper.IntPoint{X: x2, Y: y1},
		&clipper.IntPoint{X: x2, Y: y2},
		&clipper.IntPoint{X: x1, Y: y2},
	}

	c := clipper.NewClipper(0)
	c.AddPath(z.path, clipper.PtSubject, true)
	c.AddPath(box, clipper.PtClip, true)

	solution, ok := c.Execute1(clipper.CtIntersection, clipper.PftNonZero, clipper.PftNonZero)

	if !ok {
		return 0
	}

	inside := 0.0

	for _, p := range solution {
		inside += polygonArea(p)
	}

	return math.Min(inside/area, 1)
}

// Contains reports whether enough of rect lies inside the zone
func (z *Zone) Contains(rect tracker.Rect) bool {
	return z.Overlap(rect) >= z.minOverlap
}

// Filter returns the detections inside the zone, keeping their order
func (z *Zone) Filter(dets []tracker.Detection) []tracker.Detection {

	out := make([]tracker.Detection, 0, len(dets))

	for _, d := range dets {
		if z.Contains(d.Rect) {
			out = append(out, d)
		}
	}

	return out
}

// polygonArea returns the absolute area of a closed path using the shoelace
// formula
func polygonArea(p clipper.Path) float64 {

	n := len(p)

	if n < 3 {
		return 0
	}

	sum := 0.0

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += float64(p[i].X)*float64(p[j].Y) - float64(p[j].X)*float64(p[i].Y)
	}

	return math.Abs(sum) / 2
}
