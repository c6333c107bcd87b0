package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if REID_CONFIG is set
//  3. env (prefix REID_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("REID_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: REID_ADDR, REID_QUEUE_SIZE, ...
	// Map env keys like REID_QUEUE_SIZE -> queue_size (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("REID_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "reid_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1:
		return fmt.Errorf("%w: similarity_threshold must be in (0, 1]", ErrInvalidConfig)
	case c.TrackingWindowMS <= 0:
		return fmt.Errorf("%w: tracking_window_ms must be positive", ErrInvalidConfig)
	case c.CooldownWindowMS <= 0:
		return fmt.Errorf("%w: cooldown_window_ms must be positive", ErrInvalidConfig)
	case c.BufferDelayMS < 0:
		return fmt.Errorf("%w: buffer_delay_ms must not be negative", ErrInvalidConfig)
	case c.CacheCapacity <= 0:
		return fmt.Errorf("%w: cache_capacity must be positive", ErrInvalidConfig)
	}

	switch c.Notifier {
	case NotifierLog, NotifierNATS:
	case NotifierWebhook:
		if c.WebhookURL == "" {
			return fmt.Errorf("%w: webhook_url required for webhook notifier", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown notifier %q", ErrInvalidConfig, c.Notifier)
	}
	if c.Notifier == NotifierNATS && c.NATSURL == "" {
		return fmt.Errorf("%w: nats_url required for nats notifier", ErrInvalidConfig)
	}
	return nil
}
