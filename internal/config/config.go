// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
	"time"
)

// Notifier backends.
const (
	NotifierLog     = "log"
	NotifierWebhook = "webhook"
	NotifierNATS    = "nats"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// InferURL is the base URL of the embedding inference service. The
	// special value "stub" runs without a model.
	InferURL string `koanf:"infer_url"`

	// Notifier selects the delivery backend: log, webhook, or nats.
	Notifier string `koanf:"notifier"`

	// WebhookURL is the delivery endpoint when Notifier is "webhook".
	WebhookURL string `koanf:"webhook_url"`

	// NATSURL is the broker address used for the NATS notifier and the
	// optional NATS ingest source.
	NATSURL string `koanf:"nats_url"`

	// NATSSubject is the subject the ingest source subscribes to. Empty
	// disables the NATS source.
	NATSSubject string `koanf:"nats_subject"`

	// NotifySubject is the subject notifications are published to when
	// Notifier is "nats".
	NotifySubject string `koanf:"notify_subject"`

	// SimilarityThreshold is the minimum cosine similarity for two
	// embeddings to be considered the same person.
	SimilarityThreshold float64 `koanf:"similarity_threshold"`

	// TrackingWindowMS bounds how long an identity stays matchable.
	TrackingWindowMS int `koanf:"tracking_window_ms"`

	// CooldownWindowMS suppresses repeat notifications per identity.
	CooldownWindowMS int `koanf:"cooldown_window_ms"`

	// BufferDelayMS defers generic notifications to allow a named upgrade.
	BufferDelayMS int `koanf:"buffer_delay_ms"`

	// CacheCapacity bounds the identity cache.
	CacheCapacity int `koanf:"cache_capacity"`

	// MaxPending bounds the deferred generic notification buffer.
	MaxPending int `koanf:"max_pending"`

	// DedupeSize bounds the detection id idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// QueueSize bounds the in-memory detection queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of pipeline workers.
	WorkerCount int `koanf:"worker_count"`

	// SweepIntervalMS controls how often expired state is reaped.
	SweepIntervalMS int `koanf:"sweep_interval_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":8080",
		InferURL:            "http://localhost:8765",
		Notifier:            NotifierLog,
		NotifySubject:       "notifications.person",
		SimilarityThreshold: 0.6,
		TrackingWindowMS:    60_000,
		CooldownWindowMS:    300_000,
		BufferDelayMS:       10_000,
		CacheCapacity:       1_000,
		MaxPending:          256,
		DedupeSize:          10_000,
		QueueSize:           1_024,
		WorkerCount:         runtime.NumCPU() * 2,
		SweepIntervalMS:     60_000,
	}
}

// TrackingWindow returns the tracking window as a duration.
func (c *Config) TrackingWindow() time.Duration {
	return time.Duration(c.TrackingWindowMS) * time.Millisecond
}

// CooldownWindow returns the cooldown window as a duration.
func (c *Config) CooldownWindow() time.Duration {
	return time.Duration(c.CooldownWindowMS) * time.Millisecond
}

// BufferDelay returns the generic buffer delay as a duration.
func (c *Config) BufferDelay() time.Duration {
	return time.Duration(c.BufferDelayMS) * time.Millisecond
}

// SweepInterval returns the sweep interval as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMS) * time.Millisecond
}
