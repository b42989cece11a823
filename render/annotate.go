package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/swdee/go-headcount/tracker"
	"gocv.io/x/gocv"
)

// counter text positions
var (
	currentPos = image.Pt(20, 40)
	uniquePos  = image.Pt(20, 80)
)

// Style groups the settings used by Annotate
type Style struct {
	Box BoxStyle
	// Trail is drawn when set
	Trail      *tracker.Trail
	TrailStyle TrailStyle
	// Counter is the font of the counters overlay, the colors below
	// override Counter.Color
	Counter      Font
	CurrentColor color.RGBA
	UniqueColor  color.RGBA
}

// DefaultStyle returns the annotation style of the people counting service:
// green boxes, red IDs, a blue current count and a yellow unique count
func DefaultStyle() Style {
	return Style{
		Box:          DefaultBoxStyle(),
		TrailStyle:   DefaultTrailStyle(),
		Counter:      CounterFont(),
		CurrentColor: Blue,
		UniqueColor:  Yellow,
	}
}

// Visible returns the tracks that are drawn, those Confirmed and matched in
// the current frame
func Visible(tracks []tracker.Track) []tracker.Track {

	out := make([]tracker.Track, 0, len(tracks))

	for _, t := range tracks {
		if t.Status == tracker.Confirmed && t.Matched {
			out = append(out, t)
		}
	}

	return out
}

// Annotate draws the visible tracks and the counters onto img. Tracking
// state is only read.
func Annotate(img *gocv.Mat, tracks []tracker.Track, counts tracker.Counts,
	style Style) {

	visible := Visible(tracks)

	if style.Trail != nil {
		Trail(img, visible, style.Trail, style.TrailStyle)
	}

	TrackerBoxes(img, visible, style.Box)
	Counters(img, counts, style)
}

// Counters draws the "People Count" and "Total Unique" overlay text
func Counters(img *gocv.Mat, counts tracker.Counts, style Style) {

	font := style.Counter

	gocv.PutTextWithParams(img, fmt.Sprintf("People Count: %d", counts.Current),
		currentPos, font.Face, font.Scale, style.CurrentColor, font.Thickness,
		font.LineType, false)

	gocv.PutTextWithParams(img, fmt.Sprintf("Total Unique: %d", counts.TotalUnique),
		uniquePos, font.Face, font.Scale, style.UniqueColor, font.Thickness,
		font.LineType, false)
}
