package tracker

import (
	"math"
)

// Tlwh (top left x, top left y, width, height) box layout
type Tlwh [4]float32

// Tlbr (top left x, top left y, bottom right x, bottom right y) box layout
type Tlbr [4]float32

// Xyah (center x, center y, aspect ratio, height) box layout used as the
// Kalman filter measurement space
type Xyah [4]float32

// Rect is a bounding box in frame pixel coordinates stored in Tlwh format.
// It is a value type so copies never alias each other.
type Rect struct {
	Tlwh Tlwh
}

// NewRect creates a new Rect with given coordinates
func NewRect(x, y, width, height float32) Rect {
	return Rect{
		Tlwh: Tlwh{x, y, width, height},
	}
}

// X returns the x coordinate of the rectangle
func (r Rect) X() float32 {
	return r.Tlwh[0]
}

// Y returns the y coordinate of the rectangle
func (r Rect) Y() float32 {
	return r.Tlwh[1]
}

// Width returns the width of the rectangle
func (r Rect) Width() float32 {
	return r.Tlwh[2]
}

// Height returns the height of the rectangle
func (r Rect) Height() float32 {
	return r.Tlwh[3]
}

// BRX returns the bottom-right x coordinate of the rectangle
func (r Rect) BRX() float32 {
	return r.Tlwh[0] + r.Tlwh[2]
}

// BRY returns the bottom-right y coordinate of the rectangle
func (r Rect) BRY() float32 {
	return r.Tlwh[1] + r.Tlwh[3]
}

// Area returns the area of the rectangle, zero for degenerate boxes
func (r Rect) Area() float32 {
	if r.Tlwh[2] <= 0 || r.Tlwh[3] <= 0 {
		return 0
	}
	return r.Tlwh[2] * r.Tlwh[3]
}

// Center returns the center point of the rectangle
func (r Rect) Center() (float32, float32) {
	return r.Tlwh[0] + r.Tlwh[2]/2, r.Tlwh[1] + r.Tlwh[3]/2
}

// Diagonal returns the length of the rectangle diagonal
func (r Rect) Diagonal() float32 {
	return float32(math.Hypot(float64(r.Tlwh[2]), float64(r.Tlwh[3])))
}

// Finite reports whether all coordinates are finite numbers
func (r Rect) Finite() bool {
	for _, v := range r.Tlwh {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return true
}

// Valid reports whether all coordinates are finite and the box has a
// positive area
func (r Rect) Valid() bool {
	return r.Finite() && r.Tlwh[2] > 0 && r.Tlwh[3] > 0
}

// GetTlbr converts the rectangle to Tlbr format
func (r Rect) GetTlbr() Tlbr {
	return Tlbr{
		r.Tlwh[0],
		r.Tlwh[1],
		r.Tlwh[0] + r.Tlwh[2],
		r.Tlwh[1] + r.Tlwh[3],
	}
}

// GetXyah converts the rectangle to Xyah format
func (r Rect) GetXyah() Xyah {
	return Xyah{
		r.Tlwh[0] + r.Tlwh[2]/2,
		r.Tlwh[1] + r.Tlwh[3]/2,
		r.Tlwh[2] / r.Tlwh[3],
		r.Tlwh[3],
	}
}

// CalcIoU calculates the Intersection over Union with another rectangle.
// Boxes that only touch along an edge have zero overlap.
func (r Rect) CalcIoU(other Rect) float32 {

	iw := math.Min(float64(r.BRX()), float64(other.BRX())) -
		math.Max(float64(r.X()), float64(other.X()))

	if iw <= 0 {
		return 0
	}

	ih := math.Min(float64(r.BRY()), float64(other.BRY())) -
		math.Max(float64(r.Y()), float64(other.Y()))

	if ih <= 0 {
		return 0
	}

	inter := iw * ih
	union := float64(r.Area()) + float64(other.Area()) - inter

	if union <= 0 {
		return 0
	}

	return float32(inter / union)
}

// CenterDistance returns the euclidean distance between the centers of two
// rectangles
func (r Rect) CenterDistance(other Rect) float32 {
	ax, ay := r.Center()
	bx, by := other.Center()
	return float32(math.Hypot(float64(ax-bx), float64(ay-by)))
}

// GenerateRectByTlbr creates a Rect from Tlbr format
func GenerateRectByTlbr(tlbr Tlbr) Rect {
	return NewRect(tlbr[0], tlbr[1], tlbr[2]-tlbr[0], tlbr[3]-tlbr[1])
}

// GenerateRectByXyah creates a Rect from Xyah format
func GenerateRectByXyah(xyah Xyah) Rect {
	width := xyah[2] * xyah[3]
	return NewRect(xyah[0]-width/2, xyah[1]-xyah[3]/2, width, xyah[3])
}
