// Package embedding turns person image crops into fixed-length appearance
// vectors and provides the similarity math used by the identity matcher.
package embedding

import "math"

// Dim is the length of an appearance vector produced by the model.
const Dim = 512

// normTolerance bounds the accepted deviation from unit norm before the
// extractor logs a warning. Deviation is tolerated, never fatal.
const normTolerance = 0.01

// Vector is a fixed-dimension appearance embedding. Vectors are
// L2-normalized by the model, so cosine similarity is a plain dot product.
type Vector []float32

// Dot returns the dot product of two vectors. For unit-normalized vectors
// this is their cosine similarity. Mismatched lengths yield 0.
func (v Vector) Dot(o Vector) float64 {
	if len(v) != len(o) {
		return 0
	}
	var sum float64
	for i := range v {
		sum += float64(v[i]) * float64(o[i])
	}
	return sum
}

// Norm returns the L2 norm of the vector.
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// NormDeviation returns how far the vector is from unit norm.
func (v Vector) NormDeviation() float64 {
	return math.Abs(v.Norm() - 1.0)
}

// NearUnit reports whether the vector is within tolerance of unit norm.
func (v Vector) NearUnit() bool {
	return v.NormDeviation() <= normTolerance
}
