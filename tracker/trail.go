package tracker

import "sync"

// Point is the x,y center of a track's bounding box in a frame
type Point struct {
	X, Y int
}

// Trail keeps the recent center points of every track, used for drawing
// the path a person walked
type Trail struct {
	// size is the maximum number of most recent points kept per track
	size int
	// history of center points by track ID
	history map[int][]Point
	sync.Mutex
}

// NewTrail returns a new Trail keeping at most size points per track
func NewTrail(size int) *Trail {
	return &Trail{
		size:    size,
		history: make(map[int][]Point),
	}
}

// Reset clears all history
func (t *Trail) Reset() {
	t.Lock()
	defer t.Unlock()

	t.history = make(map[int][]Point)
}

// Observe records the center of every matched track in state and forgets
// the tracks removed this frame
func (t *Trail) Observe(state FrameState) {
	t.Lock()
	defer t.Unlock()

	for _, id := range state.Removed {
		delete(t.history, id)
	}

	for _, track := range state.Tracks {
		if !track.Matched {
			continue
		}

		x, y := track.Rect.Center()
		points := append(t.history[track.ID], Point{X: int(x), Y: int(y)})

		// drop oldest point
		if len(points) > t.size {
			points = points[len(points)-t.size:]
		}

		t.history[track.ID] = points
	}
}

// GetPoints returns a copy of the point history for a track id
func (t *Trail) GetPoints(id int) []Point {
	t.Lock()
	defer t.Unlock()

	points, ok := t.history[id]

	if !ok {
		// no history yet
		return nil
	}

	return append([]Point(nil), points...)
}
