// Package worker runs the detection decision pipeline: extract an
// appearance embedding, resolve it to an identity, run the cooldown
// decision, and dispatch the resulting notification if any.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/quietcam/reid/internal/adapters/mq/queue"
	"github.com/quietcam/reid/internal/adapters/notify"
	"github.com/quietcam/reid/internal/domain/cooldown"
	"github.com/quietcam/reid/internal/domain/embedding"
	"github.com/quietcam/reid/internal/domain/model"
	"github.com/quietcam/reid/internal/domain/track"
	"github.com/quietcam/reid/pkg/logger"
	"github.com/quietcam/reid/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Job abstracts what workers read off the queue.
type Job = queue.Job

// Extractor produces appearance vectors from image crops.
type Extractor interface {
	Extract(ctx context.Context, crop []byte) (embedding.Vector, error)
}

// Resolver matches embeddings to tracked identities.
type Resolver interface {
	Resolve(ctx context.Context, emb embedding.Vector, cameraID, cameraName, class string, now time.Time) track.Resolution
	Annotate(personID, label string, snapshot []byte)
}

// Decider runs the cooldown and buffering suppression logic.
type Decider interface {
	Decide(req cooldown.Request, now time.Time) cooldown.Decision
}

// Dispatcher delivers composed notifications.
type Dispatcher interface {
	Dispatch(ctx context.Context, intent model.Intent) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes detection jobs until stopped.
type Worker struct {
	queue      Queue
	extractor  Extractor
	resolver   Resolver
	decider    Decider
	dispatcher Dispatcher
	name       string
	clock      func() time.Time

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewWorker creates a new worker with configuration options.
func NewWorker(q Queue, extractor Extractor, resolver Resolver, decider Decider, dispatcher Dispatcher, opts ...Option) *Worker {
	w := &Worker{
		queue:      q,
		extractor:  extractor,
		resolver:   resolver,
		decider:    decider,
		dispatcher: dispatcher,
		name:       "worker",
		clock:      time.Now,
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.processJob(ctx, job); err != nil {
				w.logger.Error(ctx, "error processing detection", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob runs one detection through the pipeline.
func (w *Worker) processJob(ctx context.Context, job Job) error {
	now := w.clock()
	det := job.Detection
	metrics.RecordDetectionProcessed()

	var personID string
	if det.Recognizable() {
		start := time.Now()
		emb, err := w.extractor.Extract(ctx, job.Image)
		metrics.RecordExtractionLatency(float64(time.Since(start).Milliseconds()))
		if err != nil {
			metrics.RecordExtractionError()
			// Cache and cooldown state stay untouched on this path; the
			// detection falls back to an uncorrelated notification.
			intent := notify.FallbackIntent(det, job.Image)
			if derr := w.dispatcher.Dispatch(ctx, intent); derr != nil {
				metrics.RecordDeliveryError()
				w.logger.Error(ctx, "fallback delivery failed",
					logger.String("detectionID", det.DetectionID),
					logger.Error(derr),
				)
			} else {
				metrics.RecordNotificationSent("fallback")
			}
			return fmt.Errorf("extract embedding for %s: %w", det.DetectionID, err)
		}
		res := w.resolver.Resolve(ctx, emb, det.CameraID, det.CameraName, det.Class, now)
		personID = res.PersonID
		if det.Label != "" {
			w.resolver.Annotate(personID, det.Label, job.Image)
		}
	} else {
		res := w.resolver.Resolve(ctx, nil, det.CameraID, det.CameraName, det.Class, now)
		personID = res.PersonID
	}

	start := time.Now()
	decision := w.decider.Decide(cooldown.Request{
		PersonID:   personID,
		Label:      det.Label,
		Class:      det.Class,
		CameraName: det.CameraName,
		Image:      job.Image,
		Box:        det.Box,
	}, now)
	metrics.RecordDecisionLatency(float64(time.Since(start).Milliseconds()))

	switch decision.Action {
	case cooldown.ActionSendNamed:
		intent := notify.NamedIntent(personID, det.Label, det.CameraName, job.Image, now)
		if err := w.dispatcher.Dispatch(ctx, intent); err != nil {
			// The decision stands: the cooldown record was written before
			// delivery started and is not rolled back.
			metrics.RecordDeliveryError()
			w.logger.Error(ctx, "delivery failed",
				logger.String("personID", personID),
				logger.String("label", det.Label),
				logger.Error(err),
			)
			return fmt.Errorf("deliver named notification for %s: %w", personID, err)
		}
		metrics.RecordNotificationSent("named")
	case cooldown.ActionSendGenericDeferred:
		w.logger.Debug(ctx, "buffered generic notification",
			logger.String("personID", personID),
			logger.String("camera", det.CameraName),
		)
	case cooldown.ActionSuppress:
		w.logger.Debug(ctx, "suppressed",
			logger.String("personID", personID),
			logger.String("reason", decision.Reason),
		)
	}

	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*Worker
	logger  logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, q Queue, extractor Extractor, resolver Resolver, decider Decider, dispatcher Dispatcher, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers: make([]*Worker, workerCount),
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewWorker(q, extractor, resolver, decider, dispatcher, workerOpts...)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		select {
		case <-w.shutdown:
			// Already shut down.
		default:
			close(w.shutdown)
		}
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
	metrics.UpdateWorkerCount(0)
}

// Shutdown gracefully shuts down the entire worker pool, closing the queue
// first so no new jobs arrive.
func (p *Pool) Shutdown(ctx context.Context, q interface{ Close() error }) error {
	if q != nil {
		if err := q.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.shutdown:
		default:
			close(w.shutdown)
		}
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	metrics.UpdateWorkerCount(0)
	return nil
}
