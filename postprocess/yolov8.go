package postprocess

import (
	"github.com/cockroachdb/errors"
)

// ErrOutputShape is returned when a model output tensor does not have the
// layout the post processor expects
var ErrOutputShape = errors.New("unexpected model output shape")

// YOLOv8 defines the struct for YOLOv8 model inference post processing of
// float32 output tensors, as produced by an ONNX export run through OpenCV
// DNN
type YOLOv8 struct {
	// Params are the Model configuration parameters
	Params YOLOv8Params
	// idGen provides the next number for each detection result ID
	idGen *IDGenerator
}

// YOLOv8Params defines the struct containing the YOLOv8 parameters to use
// for post processing operations
type YOLOv8Params struct {
	// BoxThreshold is the minimum probability score required for a bounding box
	// region to be considered for processing
	BoxThreshold float32
	// NMSThreshold is the Non-Maximum Suppression threshold used for defining
	// the maximum allowed Intersection Over Union (IoU) between two
	// bounding boxes for both to be kept
	NMSThreshold float32
	// ObjectClassNum is the number of different object classes the Model has
	// been trained with
	ObjectClassNum int
	// MaxObjectNumber is the maximum number of objects detected that can be
	// returned
	MaxObjectNumber int
	// Classes restricts decoding to these class indexes, all classes are
	// decoded when empty
	Classes []int
}

// YOLOv8COCOParams returns an instance of YOLOv8Params configured with
// default values for a Model trained on the COCO dataset featuring:
// - Object Classes: 80
// - Box Threshold: 0.25
// - NMS Threshold: 0.45
// - Maximum Object Number: 300
func YOLOv8COCOParams() YOLOv8Params {
	return YOLOv8Params{
		BoxThreshold:    0.25,
		NMSThreshold:    0.45,
		ObjectClassNum:  80,
		MaxObjectNumber: 300,
	}
}

// NewYOLOv8 returns an instance of the YOLOv8 post processor
func NewYOLOv8(p YOLOv8Params) *YOLOv8 {
	return &YOLOv8{
		Params: p,
		idGen:  NewIDGenerator(),
	}
}

// YOLOv8Result defines a struct used for object detection results
type YOLOv8Result struct {
	DetectResults []DetectResult
}

// GetDetectResults returns the object detection results containing bounding
// boxes
func (r YOLOv8Result) GetDetectResults() []DetectResult {
	return r.DetectResults
}

// DetectObjects decodes the raw output tensor of a YOLOv8 model. dims is the
// tensor shape, either [1, 4+classes, anchors] as exported by ultralytics or
// the transposed [1, anchors, 4+classes]. Each anchor holds the box center,
// width and height in model input pixels followed by one score per class.
func (y *YOLOv8) DetectObjects(data []float32, dims []int,
	lb Letterbox) (YOLOv8Result, error) {

	attrs, anchors, transposed, err := y.layout(dims)

	if err != nil {
		return YOLOv8Result{}, err
	}

	if len(data) < attrs*anchors {
		return YOLOv8Result{}, errors.Mark(
			errors.Newf("output has %d values, expected %d", len(data), attrs*anchors),
			ErrOutputShape)
	}

	at := func(attr, anchor int) float32 {
		if transposed {
			return data[anchor*attrs+attr]
		}
		return data[attr*anchors+anchor]
	}

	classes := y.Params.Classes

	if len(classes) == 0 {
		classes = make([]int, attrs-4)
		for i := range classes {
			classes[i] = i
		}
	}

	var filterBoxes, objProbs []float32
	var classID []int

	for a := 0; a < anchors; a++ {

		maxScore := float32(0)
		maxClassID := -1

		for _, c := range classes {
			if c < 0 || c >= attrs-4 {
				continue
			}

			if score := at(4+c, a); score > maxScore {
				maxScore = score
				maxClassID = c
			}
		}

		if maxClassID < 0 || maxScore < y.Params.BoxThreshold {
			continue
		}

		cx, cy := at(0, a), at(1, a)
		w, h := at(2, a), at(3, a)

		filterBoxes = append(filterBoxes, cx-w/2, cy-h/2, w, h)
		objProbs = append(objProbs, maxScore)
		classID = append(classID, maxClassID)
	}

	validCount := len(objProbs)

	if validCount == 0 {
		// no object detected
		return YOLOv8Result{}, nil
	}

	indexArray := make([]int, validCount)

	for i := range indexArray {
		indexArray[i] = i
	}

	quickSortIndiceInverse(objProbs, 0, validCount-1, indexArray)

	// run NMS once per class found, in class order for reproducible output
	seen := make(map[int]bool)

	for _, c := range classes {
		if seen[c] {
			continue
		}
		seen[c] = true

		nms(validCount, filterBoxes, classID, indexArray, c, y.Params.NMSThreshold)
	}

	srcW := float32(lb.SrcWidth())
	srcH := float32(lb.SrcHeight())
	scale := lb.ScaleFactor()

	group := make([]DetectResult, 0)

	for i := 0; i < validCount; i++ {
		if indexArray[i] == -1 || len(group) >= y.Params.MaxObjectNumber {
			continue
		}

		n := indexArray[i]

		x1 := (filterBoxes[n*4+0] - float32(lb.XPad())) / scale
		y1 := (filterBoxes[n*4+1] - float32(lb.YPad())) / scale
		x2 := x1 + filterBoxes[n*4+2]/scale
		y2 := y1 + filterBoxes[n*4+3]/scale

		group = append(group, DetectResult{
			Box: BoxRect{
				Left:   int(clamp(x1, 0, srcW)),
				Top:    int(clamp(y1, 0, srcH)),
				Right:  int(clamp(x2, 0, srcW)),
				Bottom: int(clamp(y2, 0, srcH)),
			},
			Probability: objProbs[i],
			Class:       classID[n],
			ID:          y.idGen.GetNext(),
		})
	}

	return YOLOv8Result{
		DetectResults: group,
	}, nil
}

// layout works out the attribute and anchor counts of the output tensor
func (y *YOLOv8) layout(dims []int) (attrs, anchors int, transposed bool, err error) {

	// drop the batch dimension
	if len(dims) == 3 && dims[0] == 1 {
		dims = dims[1:]
	}

	if len(dims) != 2 {
		return 0, 0, false, errors.Mark(
			errors.Newf("expected a 2 or 3 dimensional output, got %v", dims),
			ErrOutputShape)
	}

	want := 4 + y.Params.ObjectClassNum

	switch {
	case dims[0] == want:
		return dims[0], dims[1], false, nil
	case dims[1] == want:
		return dims[1], dims[0], true, nil
	}

	return 0, 0, false, errors.Mark(
		errors.Newf("output shape %v does not hold %d classes", dims, y.Params.ObjectClassNum),
		ErrOutputShape)
}
