// Package source feeds detection events from external transports into the
// processing queue.
package source

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/quietcam/reid/internal/adapters/ingest"
	"github.com/quietcam/reid/internal/domain/model"
	"github.com/quietcam/reid/pkg/logger"
)

const defaultSubject = "detections.events"

// Sink accepts decoded jobs for processing. Process reports false when the
// job was rejected, typically because the queue is full or closed.
type Sink interface {
	Process(ctx context.Context, job model.Job) bool
}

// NATSSource subscribes to a subject carrying detection events and enqueues
// the per-detection jobs it decodes from them.
type NATSSource struct {
	conn    *nats.Conn
	subject string
	sink    Sink
	sub     *nats.Subscription
	logger  logger.Logger
}

// NATSOption configures a NATSSource.
type NATSOption func(*NATSSource)

// WithSubject overrides the subscription subject.
func WithSubject(subject string) NATSOption {
	return func(s *NATSSource) {
		if subject != "" {
			s.subject = subject
		}
	}
}

// WithSourceLogger sets a custom logger.
func WithSourceLogger(log logger.Logger) NATSOption {
	return func(s *NATSSource) {
		if log != nil {
			s.logger = log
		}
	}
}

// NewNATSSource creates a source reading detection events from NATS.
func NewNATSSource(conn *nats.Conn, sink Sink, opts ...NATSOption) *NATSSource {
	s := &NATSSource{
		conn:    conn,
		subject: defaultSubject,
		sink:    sink,
		logger:  logger.Get().Named("nats-source"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start subscribes to the subject. Messages are decoded and enqueued on the
// NATS delivery goroutine; a malformed event is logged and dropped.
func (s *NATSSource) Start(ctx context.Context) error {
	sub, err := s.conn.Subscribe(s.subject, func(msg *nats.Msg) {
		s.handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.subject, err)
	}
	s.sub = sub

	s.logger.Info(ctx, "subscribed", logger.String("subject", s.subject))
	return nil
}

// Stop drains the subscription.
func (s *NATSSource) Stop() error {
	if s.sub == nil {
		return nil
	}
	return s.sub.Drain()
}

func (s *NATSSource) handle(ctx context.Context, msg *nats.Msg) {
	var ev ingest.Event
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		s.logger.Warn(ctx, "dropping malformed event", logger.Error(err))
		return
	}

	jobs, err := ingest.Jobs(ev)
	if err != nil {
		s.logger.Warn(ctx, "dropping invalid event",
			logger.String("detectionID", ev.DetectionID),
			logger.Error(err),
		)
		return
	}

	for _, job := range jobs {
		if !s.sink.Process(ctx, job) {
			s.logger.Warn(ctx, "job rejected",
				logger.String("detectionID", job.Detection.DetectionID),
				logger.String("camera", job.Detection.CameraName),
			)
		}
	}
}
