// Package track implements the temporal identity cache and matcher.
package track

import (
	"time"

	"github.com/quietcam/reid/pkg/logger"
)

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithSimilarityThreshold sets the minimum cosine similarity for a match.
// Deployments tune this between roughly 0.4 and 0.7.
func WithSimilarityThreshold(threshold float64) Option {
	return func(t *Tracker) {
		if threshold > 0 && threshold <= 1 {
			t.threshold = threshold
		}
	}
}

// WithTrackingWindow sets how long an identity stays matchable after its
// last update.
func WithTrackingWindow(window time.Duration) Option {
	return func(t *Tracker) {
		if window > 0 {
			t.window = window
		}
	}
}

// WithCapacity sets the maximum number of cached identities.
func WithCapacity(capacity int) Option {
	return func(t *Tracker) {
		if capacity > 0 {
			t.capacity = capacity
		}
	}
}

// WithAmbiguityMargin sets the band around the threshold within which a
// similarity is reported as ambiguous.
func WithAmbiguityMargin(margin float64) Option {
	return func(t *Tracker) {
		if margin >= 0 {
			t.ambiguityMargin = margin
		}
	}
}

// WithLogger sets a custom logger for the tracker.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}
