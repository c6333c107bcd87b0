package infer

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/quietcam/reid/internal/domain/embedding"
)

// Default simulated inference latency range.
const (
	defaultStubMinLatency = 20 * time.Millisecond
	defaultStubMaxLatency = 60 * time.Millisecond
)

// StubScorer implements embedding.Scorer without a model. It derives a
// deterministic unit vector from the tensor content, so identical crops map
// to identical embeddings and the rest of the pipeline behaves normally.
// Used for local development when no inference service is running.
type StubScorer struct {
	minLatency time.Duration
	maxLatency time.Duration
}

// StubOption configures a StubScorer.
type StubOption func(*StubScorer)

// WithStubLatencyRange sets the simulated inference latency.
func WithStubLatencyRange(minLatency, maxLatency time.Duration) StubOption {
	return func(s *StubScorer) {
		if minLatency > 0 && maxLatency > minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// NewStubScorer creates a stub inference backend.
func NewStubScorer(opts ...StubOption) *StubScorer {
	s := &StubScorer{
		minLatency: defaultStubMinLatency,
		maxLatency: defaultStubMaxLatency,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Infer returns a deterministic pseudo-embedding for the tensor.
func (s *StubScorer) Infer(ctx context.Context, t embedding.Tensor) ([]float32, error) {
	// Simulate inference latency.
	span := int64(s.maxLatency - s.minLatency)
	latency := s.minLatency + time.Duration(rand.Int63n(span)) //nolint:gosec // simulation only
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	case <-time.After(latency):
	}

	h := fnv.New64a()
	for _, v := range t.Data {
		bits := math.Float32bits(v)
		_, _ = h.Write([]byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)})
	}

	rng := rand.New(rand.NewSource(int64(h.Sum64()))) //nolint:gosec // deterministic stub
	vec := make([]float32, embedding.Dim)
	var norm float64
	for i := range vec {
		vec[i] = float32(rng.NormFloat64())
		norm += float64(vec[i]) * float64(vec[i])
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}
