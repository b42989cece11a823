package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/swdee/go-headcount/tracker"
	"gocv.io/x/gocv"
)

// boxLabel defines where a track label should be rendered on the source image
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// BoxStyle defines how track bounding boxes are drawn
type BoxStyle struct {
	// ColorByID paints each track in its own palette color, otherwise Color
	// is used for every box
	ColorByID     bool
	Color         color.RGBA
	LineThickness int
	// Background draws a filled box behind the label text
	Background bool
	Font       Font
}

// DefaultBoxStyle returns green boxes with a red "ID: n" label
func DefaultBoxStyle() BoxStyle {
	return BoxStyle{
		Color:         Green,
		LineThickness: 2,
		Font:          DefaultFont(),
	}
}

// TrackerBoxes renders the bounding box and ID label of every track given
func TrackerBoxes(img *gocv.Mat, tracks []tracker.Track, style BoxStyle) {

	font := style.Font
	lineThickness := style.LineThickness

	// keep a record of all box labels for later rendering
	boxLabels := make([]boxLabel, 0, len(tracks))

	for _, t := range tracks {

		boxLeft := int(t.Rect.X())
		boxTop := int(t.Rect.Y())
		boxRight := int(t.Rect.BRX())
		boxBottom := int(t.Rect.BRY())

		useClr := style.Color

		if style.ColorByID {
			useClr = IDColor(t.ID)
		}

		// draw rectangle around tracked person
		rect := image.Rect(boxLeft, boxTop, boxRight, boxBottom)
		gocv.Rectangle(img, rect, useClr, lineThickness)

		text := Label(t.ID)
		textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

		// Calculate the alignment of text label
		var centerX int

		switch font.Alignment {
		case Center:
			centerX = (boxLeft + boxRight) / 2

		case Right:
			centerX = boxRight - (textSize.X / 2) - font.RightPad + (lineThickness / 2)

		case Left:
			fallthrough
		default:
			centerX = boxLeft + (textSize.X / 2) + font.LeftPad - (lineThickness / 2)
		}

		// Adjust the label position so the text is centered horizontally
		labelPosition := image.Pt(centerX-textSize.X/2, boxTop-font.BottomPad)

		// create box for placing text on
		bRect := image.Rect(centerX-textSize.X/2-font.LeftPad,
			boxTop-textSize.Y-font.TopPad-font.BottomPad,
			centerX+textSize.X/2+font.RightPad, boxTop)

		boxLabels = append(boxLabels, boxLabel{
			rect:    bRect,
			clr:     useClr,
			text:    text,
			textPos: labelPosition,
		})
	}

	// draw labels last so they are the top most layer and don't get
	// overlapped by neighbouring boxes
	for _, box := range boxLabels {
		if style.Background {
			gocv.Rectangle(img, box.rect, box.clr, -1)
		}

		gocv.PutTextWithParams(img, box.text, box.textPos,
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}
}

// Label returns the text drawn above a track's box
func Label(id int) string {
	return fmt.Sprintf("ID: %d", id)
}
