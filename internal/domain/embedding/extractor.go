package embedding

import (
	"context"
	"fmt"

	"github.com/quietcam/reid/pkg/logger"
)

// Scorer runs the opaque appearance model over a preprocessed tensor.
// Implementations may call out to a remote model server.
type Scorer interface {
	Infer(ctx context.Context, t Tensor) ([]float32, error)
}

// Extractor produces appearance vectors from person image crops.
type Extractor struct {
	scorer Scorer
	logger logger.Logger
}

// Option applies a configuration option to the Extractor.
type Option func(*Extractor)

// WithLogger sets a custom logger for the extractor.
func WithLogger(l logger.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExtractor creates an extractor backed by the given scorer.
func NewExtractor(scorer Scorer, opts ...Option) *Extractor {
	e := &Extractor{
		scorer: scorer,
		logger: logger.Get().Named("extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract turns an image crop into an appearance vector. Failures are typed
// (ErrNotReady, ErrDecode, ErrInference); callers must not mutate tracking or
// cooldown state on the failure path.
func (e *Extractor) Extract(ctx context.Context, crop []byte) (Vector, error) {
	if e.scorer == nil {
		return nil, ErrNotReady
	}

	tensor, err := Preprocess(crop)
	if err != nil {
		return nil, err
	}

	out, err := e.scorer.Infer(ctx, tensor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}
	if len(out) != Dim {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrInference, len(out), Dim)
	}

	v := Vector(out)
	if !v.NearUnit() {
		// Downstream similarity math still assumes near-unit norm.
		e.logger.Warn(ctx, "embedding norm deviates from 1.0",
			logger.Float64("norm", v.Norm()),
		)
	}
	return v, nil
}
