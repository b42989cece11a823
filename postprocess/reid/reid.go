// Package reid holds the vector maths used to compare appearance embeddings
// produced by a person re-identification model.
package reid

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// FromFloat32 converts a raw model output into a float64 feature vector
func FromFloat32(v []float32) []float64 {

	out := make([]float64, len(v))

	for i, x := range v {
		out[i] = float64(x)
	}

	return out
}

// NormalizeVec returns a copy of v scaled to unit length. If the input
// vector has zero magnitude a plain copy is returned.
func NormalizeVec(v []float64) []float64 {

	out := make([]float64, len(v))
	copy(out, v)

	norm := floats.Norm(out, 2)

	if norm == 0 || math.IsNaN(norm) {
		return out
	}

	floats.Scale(1/norm, out)

	return out
}

// CosineSimilarity returns the cosine of the angle between vectors a and b.
// Vectors of differing length have no similarity.
func CosineSimilarity(a, b []float64) float64 {

	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)

	if na == 0 || nb == 0 {
		return 0
	}

	return floats.Dot(a, b) / (na * nb)
}

// CosineDistance returns 1 - cosine similarity, a distance in [0,2] where
// small values mean "very similar"
func CosineDistance(a, b []float64) float64 {
	return 1 - CosineSimilarity(a, b)
}

// EuclideanDistance returns the L2 distance between two vectors
func EuclideanDistance(a, b []float64) float64 {

	if len(a) != len(b) {
		return math.Inf(1)
	}

	return floats.Distance(a, b, 2)
}

// Smooth blends next into the running feature using an exponential moving
// average with weight alpha on the history, then renormalizes
func Smooth(running, next []float64, alpha float64) []float64 {

	if len(running) != len(next) {
		return NormalizeVec(next)
	}

	out := make([]float64, len(running))

	for i := range running {
		out[i] = alpha*running[i] + (1-alpha)*next[i]
	}

	return NormalizeVec(out)
}
