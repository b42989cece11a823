package tracker

// PersonClass is the only class label the tracker accepts
const PersonClass = "person"

// Detection is a single observation of a person in one frame. Detections
// only live for the duration of one Registry.Update call.
type Detection struct {
	// Rect is the bounding box of the detected person in frame pixels
	Rect Rect
	// Confidence is the detector score in the range 0.0 - 1.0
	Confidence float32
	// Class is the class label of the detection, always PersonClass once
	// the detector adapter has filtered it
	Class string
	// ID is a unique ID given to the detection which can be used to match
	// the input detection and the track it updated
	ID int64
	// Feature is an optional appearance embedding
	Feature []float64
}

// NewDetection is a constructor function for a person Detection
func NewDetection(rect Rect, confidence float32, id int64) Detection {
	return Detection{
		Rect:       rect,
		Confidence: confidence,
		Class:      PersonClass,
		ID:         id,
	}
}
