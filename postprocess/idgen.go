package postprocess

import "sync/atomic"

// IDGenerator hands out incremental detection IDs. It is safe for
// concurrent use.
type IDGenerator struct {
	id atomic.Int64
}

// NewIDGenerator returns an IDGenerator starting at 1
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// GetNext returns the next incremental number
func (g *IDGenerator) GetNext() int64 {
	return g.id.Add(1)
}
