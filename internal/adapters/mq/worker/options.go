package worker

import (
	"time"

	"github.com/quietcam/reid/pkg/logger"
)

// Option is a functional option for configuring workers.
type Option func(*Worker)

// WithName sets the worker name used in log output.
func WithName(name string) Option {
	return func(w *Worker) {
		w.name = name
	}
}

// WithClock overrides the time source, used by tests for deterministic
// cooldown decisions.
func WithClock(clock func() time.Time) Option {
	return func(w *Worker) {
		if clock != nil {
			w.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(log logger.Logger) Option {
	return func(w *Worker) {
		if log != nil {
			w.logger = log
		}
	}
}
