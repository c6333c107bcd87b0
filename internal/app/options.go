package service

import (
	"time"

	"github.com/quietcam/reid/internal/adapters/notify"
	"github.com/quietcam/reid/internal/domain/cooldown"
	"github.com/quietcam/reid/internal/domain/embedding"
	"github.com/quietcam/reid/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSimilarityThreshold sets the identity match threshold.
func WithSimilarityThreshold(t float64) Option {
	return func(s *Service) {
		if t > 0 && t <= 1 {
			s.similarityThreshold = t
		}
	}
}

// WithTrackingWindow bounds how long an identity stays matchable.
func WithTrackingWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.trackingWindow = d
		}
	}
}

// WithCooldownWindow sets the per-identity notification cooldown.
func WithCooldownWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cooldownWindow = d
		}
	}
}

// WithBufferDelay sets how long generic notifications are deferred.
func WithBufferDelay(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.bufferDelay = d
		}
	}
}

// WithCacheCapacity bounds the identity cache.
func WithCacheCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.cacheCapacity = n
		}
	}
}

// WithMaxPending bounds the deferred notification buffer.
func WithMaxPending(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPending = n
		}
	}
}

// WithDedupeSize bounds the detection id idempotency cache.
func WithDedupeSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dedupeSize = n
		}
	}
}

// WithQueueSize sets the maximum size of the detection queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithSweepInterval controls how often expired state is reaped.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithScorer sets the embedding inference backend.
func WithScorer(scorer embedding.Scorer) Option {
	return func(s *Service) {
		s.scorer = scorer
	}
}

// WithDispatcher sets the notification delivery backend.
func WithDispatcher(d notify.Dispatcher) Option {
	return func(s *Service) {
		if d != nil {
			s.dispatcher = d
		}
	}
}

// WithScheduler overrides the deferred notification scheduler, used by tests.
func WithScheduler(sched cooldown.Scheduler) Option {
	return func(s *Service) {
		s.scheduler = sched
	}
}

// WithClock overrides the time source, used by tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}
