package testevents

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quietcam/reid/internal/adapters/ingest"
	"github.com/quietcam/reid/pkg/logger"
)

const settleDelay = 3 * time.Second

// Stats accumulates counters for a test run.
type Stats struct {
	StartTime  time.Time
	Submitted  atomic.Int64
	Accepted   atomic.Int64
	Rejected   atomic.Int64
	Failed     atomic.Int64
	Duplicates atomic.Int64
}

// Run executes the complete detection event test.
func Run(ctx context.Context, cfg *Config) error {
	log := logger.Get().Named("testevents")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting detection event test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("events", cfg.NumEvents),
		logger.Int("workers", cfg.Workers),
		logger.Int("cameras", cfg.Cameras),
	)

	client := newHTTPClient(cfg.Timeout)

	// Step 1: check service health.
	var health map[string]string
	if err := client.GetJSON(ctx, cfg.BaseURL+"/healthz", &health); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: generate events.
	events, err := generateEvents(ctx, cfg)
	if err != nil {
		return fmt.Errorf("event generation failed: %w", err)
	}

	// Step 3: submit events concurrently.
	if err := submitEvents(ctx, cfg, client, events, stats); err != nil {
		return fmt.Errorf("event submission failed: %w", err)
	}

	// Step 4: let the pipeline drain, then read stats.
	log.Info(ctx, "waiting for events to be processed")
	time.Sleep(settleDelay)

	var svcStats map[string]interface{}
	if err := client.GetJSON(ctx, cfg.BaseURL+"/stats", &svcStats); err != nil {
		return fmt.Errorf("stats retrieval failed: %w", err)
	}

	elapsed := time.Since(stats.StartTime)
	log.Info(ctx, "test complete",
		logger.Duration("elapsed", elapsed),
		logger.Int("submitted", int(stats.Submitted.Load())),
		logger.Int("accepted", int(stats.Accepted.Load())),
		logger.Int("rejected", int(stats.Rejected.Load())),
		logger.Int("failed", int(stats.Failed.Load())),
		logger.Any("serviceStats", svcStats),
	)
	return nil
}

// submitEvents posts events through a bounded worker set.
func submitEvents(ctx context.Context, cfg *Config, client *HTTPClient, events []ingest.Event, stats *Stats) error {
	log := logger.Get().Named("submit")
	url := cfg.BaseURL + "/api/v1/detections"

	jobs := make(chan ingest.Event)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range jobs {
				status, err := client.PostJSON(ctx, url, ev)
				stats.Submitted.Add(1)
				switch {
				case err != nil:
					stats.Failed.Add(1)
					if cfg.Verbose {
						log.Warn(ctx, "submit failed", logger.Error(err))
					}
				case status == http.StatusAccepted || status == http.StatusOK:
					stats.Accepted.Add(1)
				case status == http.StatusTooManyRequests:
					stats.Rejected.Add(1)
				default:
					stats.Failed.Add(1)
					if cfg.Verbose {
						log.Warn(ctx, "unexpected status", logger.Int("status", status))
					}
				}
			}
		}()
	}

	for _, ev := range events {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return fmt.Errorf("submission cancelled: %w", ctx.Err())
		case jobs <- ev:
		}
	}
	close(jobs)
	wg.Wait()
	return nil
}
