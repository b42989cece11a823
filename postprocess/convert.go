package postprocess

import "github.com/swdee/go-headcount/tracker"

// DetectionsToTracker converts post processed detection results of the given
// class into tracker detections
func DetectionsToTracker(dets []DetectResult, class int) []tracker.Detection {

	objs := make([]tracker.Detection, 0, len(dets))

	for _, det := range dets {

		if det.Class != class {
			continue
		}

		x := float32(det.Box.Left)
		y := float32(det.Box.Top)
		width := float32(det.Box.Width())
		height := float32(det.Box.Height())

		objs = append(objs, tracker.NewDetection(
			tracker.NewRect(x, y, width, height),
			det.Probability,
			det.ID,
		))
	}

	return objs
}
