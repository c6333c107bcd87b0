// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the ingest sources.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/quietcam/reid/internal/adapters/mq/queue"
	workerpool "github.com/quietcam/reid/internal/adapters/mq/worker"
	"github.com/quietcam/reid/internal/adapters/notify"
	"github.com/quietcam/reid/internal/domain/cooldown"
	"github.com/quietcam/reid/internal/domain/dedupe"
	"github.com/quietcam/reid/internal/domain/embedding"
	"github.com/quietcam/reid/internal/domain/model"
	"github.com/quietcam/reid/internal/domain/track"
	"github.com/quietcam/reid/pkg/logger"
	"github.com/quietcam/reid/pkg/metrics"
)

// Default service configuration.
const (
	defaultQueueSize     = 1024
	defaultSweepInterval = time.Minute
)

// Service wires the detection pipeline: queue, workers, identity tracker,
// cooldown machine, and notification dispatch.
type Service struct {
	mu sync.RWMutex

	// Core components
	tracker    *track.Tracker
	machine    *cooldown.Machine
	deduper    dedupe.Deduper
	queue      *queue.InMemoryQueue
	pool       *workerpool.Pool
	extractor  *embedding.Extractor
	scorer     embedding.Scorer
	dispatcher notify.Dispatcher
	scheduler  cooldown.Scheduler

	// Configuration
	similarityThreshold float64
	trackingWindow      time.Duration
	cooldownWindow      time.Duration
	bufferDelay         time.Duration
	cacheCapacity       int
	maxPending          int
	dedupeSize          int
	queueSize           int
	workerCount         int
	sweepInterval       time.Duration
	clock               func() time.Time

	// State
	started bool
	stopCh  chan struct{}
	sweepWG sync.WaitGroup

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		queueSize:     defaultQueueSize,
		sweepInterval: defaultSweepInterval,
		clock:         time.Now,
		stopCh:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.dispatcher == nil {
		s.dispatcher = notify.NewLogDispatcher()
	}

	s.logger.Info(ctx, "starting detection service...")

	s.extractor = embedding.NewExtractor(s.scorer)

	trackOpts := []track.Option{}
	if s.similarityThreshold > 0 {
		trackOpts = append(trackOpts, track.WithSimilarityThreshold(s.similarityThreshold))
	}
	if s.trackingWindow > 0 {
		trackOpts = append(trackOpts, track.WithTrackingWindow(s.trackingWindow))
	}
	if s.cacheCapacity > 0 {
		trackOpts = append(trackOpts, track.WithCapacity(s.cacheCapacity))
	}
	s.tracker = track.New(trackOpts...)

	machineOpts := []cooldown.Option{cooldown.WithClock(s.clock)}
	if s.cooldownWindow > 0 {
		machineOpts = append(machineOpts, cooldown.WithCooldownWindow(s.cooldownWindow))
	}
	if s.bufferDelay > 0 {
		machineOpts = append(machineOpts, cooldown.WithBufferDelay(s.bufferDelay))
	}
	if s.maxPending > 0 {
		machineOpts = append(machineOpts, cooldown.WithMaxPending(s.maxPending))
	}
	if s.scheduler != nil {
		machineOpts = append(machineOpts, cooldown.WithScheduler(s.scheduler))
	}
	s.machine = cooldown.New(s.deliverGeneric, machineOpts...)

	dedupeOpts := []dedupe.Option{}
	if s.dedupeSize > 0 {
		dedupeOpts = append(dedupeOpts, dedupe.WithMaxSize(s.dedupeSize))
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupeOpts...)

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.extractor, s.tracker, s.machine, s.dispatcher,
		workerpool.WithClock(s.clock),
	)
	s.pool.Start(ctx)

	s.sweepWG.Add(1)
	go s.sweepLoop()

	s.started = true
	s.logger.Info(ctx, "detection service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("cacheCapacity", s.cacheCapacity),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping detection service...")

	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.pool != nil {
		s.pool.Stop()
	}
	if s.machine != nil {
		s.machine.Close()
	}
	if s.tracker != nil {
		s.tracker.Clear()
	}

	select {
	case <-s.stopCh:
		// Already closed.
	default:
		close(s.stopCh)
	}
	s.sweepWG.Wait()

	s.started = false
	s.logger.Info(ctx, "detection service stopped")
}

// Process submits a detection job for asynchronous processing. Returns false
// on backpressure or when the service is not running.
func (s *Service) Process(ctx context.Context, job model.Job) bool {
	s.mu.RLock()
	q := s.queue
	dd := s.deduper
	started := s.started
	s.mu.RUnlock()

	if !started || q == nil {
		return false
	}

	// Idempotency check - mark as seen first.
	if dd.SeenAndRecord(ctx, job.Detection.DetectionID) {
		s.logger.Debug(ctx, "duplicate detection, skipping",
			logger.String("detectionID", job.Detection.DetectionID),
		)
		return true
	}

	ok := q.Enqueue(ctx, job)
	if !ok {
		// Roll back the seen mark so a redelivery can retry.
		dd.Unrecord(ctx, job.Detection.DetectionID)
		s.logger.Warn(ctx, "detection rejected",
			logger.String("detectionID", job.Detection.DetectionID),
			logger.String("camera", job.Detection.CameraName),
		)
	}
	return ok
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}

	if s.started {
		ctx := context.Background()
		stats["queueLength"] = s.queue.Len(ctx)
		stats["trackedIdentities"] = s.tracker.Size()
		stats["pendingBuffers"] = s.machine.PendingCount()
		stats["cooldownRecords"] = s.machine.CooldownCount()
		stats["seenDetections"] = s.deduper.Size()
	}

	return stats
}

// deliverGeneric is the cooldown machine's callback: a buffered generic
// notification survived its delay without being upgraded and fires now.
func (s *Service) deliverGeneric(f cooldown.Fired) {
	ctx := context.Background()
	intent := notify.GenericIntent(f.PersonID, f.Class, f.CameraName, f.Image, f.At)
	if err := s.dispatcher.Dispatch(ctx, intent); err != nil {
		metrics.RecordDeliveryError()
		s.logger.Error(ctx, "generic delivery failed",
			logger.String("personID", f.PersonID),
			logger.Error(err),
		)
		return
	}
	metrics.RecordNotificationSent("generic")
}

// sweepLoop periodically reaps expired identities and stale cooldown state,
// and refreshes the state gauges.
func (s *Service) sweepLoop() {
	defer s.sweepWG.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	ctx := context.Background()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			now := s.clock()
			expired := s.tracker.Sweep(now)
			stale := s.machine.Sweep(now)
			if expired > 0 || stale > 0 {
				s.logger.Debug(ctx, "sweep",
					logger.Int("expiredIdentities", expired),
					logger.Int("staleCooldowns", stale),
				)
			}
			metrics.UpdateTrackedIdentities(s.tracker.Size())
			metrics.UpdatePendingBuffers(s.machine.PendingCount())
			metrics.UpdateCooldownRecords(s.machine.CooldownCount())
		}
	}
}
