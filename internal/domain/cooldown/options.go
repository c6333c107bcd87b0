// Package cooldown implements the per-identity suppression state machine.
package cooldown

import (
	"time"

	"github.com/quietcam/reid/pkg/logger"
)

// Option applies a configuration option to the Machine.
type Option func(*Machine)

// WithCooldownWindow sets the minimum time between notifications for the
// same identity or label.
func WithCooldownWindow(window time.Duration) Option {
	return func(m *Machine) {
		if window > 0 {
			m.window = window
		}
	}
}

// WithBufferDelay sets how long a generic detection waits for a name before
// its notification fires.
func WithBufferDelay(delay time.Duration) Option {
	return func(m *Machine) {
		if delay > 0 {
			m.delay = delay
		}
	}
}

// WithMaxPending bounds the pending buffer map. Zero or negative disables
// the bound.
func WithMaxPending(maxPending int) Option {
	return func(m *Machine) {
		m.maxPending = maxPending
	}
}

// WithScheduler sets the task scheduler used for buffering timers.
func WithScheduler(s Scheduler) Option {
	return func(m *Machine) {
		if s != nil {
			m.sched = s
		}
	}
}

// WithClock sets the time source used when buffer timers fire.
func WithClock(clock func() time.Time) Option {
	return func(m *Machine) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the machine.
func WithLogger(l logger.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}
