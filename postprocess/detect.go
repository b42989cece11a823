package postprocess

// DetectionResult is implemented by the output of every model post
// processor
type DetectionResult interface {
	GetDetectResults() []DetectResult
}

// BoxRect are the dimensions of the bounding box of a detected object in
// source image pixels
type BoxRect struct {
	Left   int
	Right  int
	Top    int
	Bottom int
}

// Width of the box
func (b BoxRect) Width() int {
	return b.Right - b.Left
}

// Height of the box
func (b BoxRect) Height() int {
	return b.Bottom - b.Top
}

// DetectResult defines the attributes of a single object detected
type DetectResult struct {
	// Class is the line number in the labels file the Model was trained on
	// defining the Class of the detected object
	Class int
	// Box are the bounding box dimensions of the object location
	Box BoxRect
	// Probability is the confidence score of the object detected
	Probability float32
	// ID is a unique ID assigned to the detection result
	ID int64
}

// Letterbox describes how a source image was scaled and padded into the
// model input, so boxes can be mapped back to source pixels
type Letterbox interface {
	ScaleFactor() float32
	XPad() int
	YPad() int
	SrcWidth() int
	SrcHeight() int
}
