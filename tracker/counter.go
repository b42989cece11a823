package tracker

// Counts holds the two people counters of a session
type Counts struct {
	// Current is the number of Confirmed tracks matched in the most recent
	// frame
	Current int `json:"current"`
	// TotalUnique is the number of distinct track IDs that ever reached
	// Confirmed
	TotalUnique int `json:"total_unique"`
}

// Counter derives Counts from the registry state of each frame. The unique
// count only ever grows, lost tracks stay counted.
type Counter struct {
	seen   map[int]struct{}
	counts Counts
}

// NewCounter returns a Counter with both counts at zero
func NewCounter() *Counter {
	return &Counter{
		seen: make(map[int]struct{}),
	}
}

// Observe folds in the state of one frame and returns the updated counts
func (c *Counter) Observe(state FrameState) Counts {

	current := 0

	for _, t := range state.Tracks {
		if t.Status != Confirmed {
			continue
		}

		c.seen[t.ID] = struct{}{}

		if t.Matched {
			current++
		}
	}

	c.counts = Counts{
		Current:     current,
		TotalUnique: len(c.seen),
	}

	return c.counts
}

// Counts returns the counts after the last observed frame
func (c *Counter) Counts() Counts {
	return c.counts
}
