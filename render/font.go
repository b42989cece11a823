package render

import (
	"image/color"

	"gocv.io/x/gocv"
)

type Alignment int

const (
	Left   Alignment = 1
	Center Alignment = 2
	Right  Alignment = 3
)

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Padding to place around text
	LeftPad   int
	RightPad  int
	TopPad    int
	BottomPad int
	// Alignment of the text label to the bounding box
	Alignment Alignment
}

// DefaultFont returns the font used for track ID labels, red text placed
// just above the box
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.6,
		Color:     Red,
		Thickness: 2,
		LineType:  gocv.LineAA,
		LeftPad:   0,
		RightPad:  0,
		TopPad:    4,
		BottomPad: 10,
		Alignment: Left,
	}
}

// CounterFont returns the font used for the people counters overlay
func CounterFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     1,
		Color:     Blue,
		Thickness: 3,
		LineType:  gocv.LineAA,
	}
}
