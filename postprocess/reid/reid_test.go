package reid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeVec(t *testing.T) {

	v := NormalizeVec([]float64{3, 4})
	assert.InDeltaSlice(t, []float64{0.6, 0.8}, v, 1e-9)

	zero := NormalizeVec([]float64{0, 0})
	assert.Equal(t, []float64{0, 0}, zero)
}

func TestCosineDistance(t *testing.T) {

	assert.InDelta(t, 0, CosineDistance([]float64{1, 0}, []float64{5, 0}), 1e-9)
	assert.InDelta(t, 1, CosineDistance([]float64{1, 0}, []float64{0, 2}), 1e-9)
	assert.InDelta(t, 2, CosineDistance([]float64{1, 0}, []float64{-1, 0}), 1e-9)

	// mismatched vectors have no similarity
	assert.InDelta(t, 1, CosineDistance([]float64{1, 0}, []float64{1}), 1e-9)
}

func TestEuclideanDistance(t *testing.T) {
	assert.InDelta(t, 5, EuclideanDistance([]float64{0, 0}, []float64{3, 4}), 1e-9)
	assert.True(t, math.IsInf(EuclideanDistance([]float64{0}, []float64{1, 2}), 1))
}

func TestSmooth(t *testing.T) {

	s := Smooth([]float64{1, 0}, []float64{0, 1}, 0.5)
	assert.InDeltaSlice(t, []float64{math.Sqrt2 / 2, math.Sqrt2 / 2}, s, 1e-9)

	assert.InDeltaSlice(t, []float64{0, 1}, Smooth(nil, []float64{0, 3}, 0.9), 1e-9)
}

func TestFromFloat32(t *testing.T) {
	assert.Equal(t, []float64{1, 0.5}, FromFloat32([]float32{1, 0.5}))
}
