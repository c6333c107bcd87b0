package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/quietcam/reid/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func clearConfigEnvVars() {
	for _, key := range []string{
		"REID_CONFIG",
		"REID_ADDR",
		"REID_LOG_LEVEL",
		"REID_INFER_URL",
		"REID_NOTIFIER",
		"REID_WEBHOOK_URL",
		"REID_SIMILARITY_THRESHOLD",
		"REID_TRACKING_WINDOW_MS",
		"REID_COOLDOWN_WINDOW_MS",
		"REID_BUFFER_DELAY_MS",
		"REID_CACHE_CAPACITY",
		"REID_QUEUE_SIZE",
		"REID_WORKER_COUNT",
	} {
		_ = os.Unsetenv(key)
	}
}

func TestConfigLoader(t *testing.T) {
	Convey("Given a config loader", t, func() {
		ctx := context.Background()

		Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			Convey("Then it should load successfully with defaults", func() {
				So(err, ShouldBeNil)
				So(cfg, ShouldNotBeNil)
				So(cfg.Addr, ShouldEqual, ":8080")
				So(cfg.Notifier, ShouldEqual, config.NotifierLog)
				So(cfg.SimilarityThreshold, ShouldEqual, 0.6)
				So(cfg.TrackingWindowMS, ShouldEqual, 60_000)
				So(cfg.CooldownWindowMS, ShouldEqual, 300_000)
				So(cfg.BufferDelayMS, ShouldEqual, 10_000)
				So(cfg.CacheCapacity, ShouldEqual, 1_000)
			})
		})

		Convey("When loading config with environment variables", func() {
			_ = os.Setenv("REID_ADDR", ":9090")
			_ = os.Setenv("REID_SIMILARITY_THRESHOLD", "0.75")
			_ = os.Setenv("REID_TRACKING_WINDOW_MS", "30000")
			_ = os.Setenv("REID_WORKER_COUNT", "4")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			Convey("Then it should override defaults with env vars", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":9090")
				So(cfg.SimilarityThreshold, ShouldEqual, 0.75)
				So(cfg.TrackingWindowMS, ShouldEqual, 30000)
				So(cfg.WorkerCount, ShouldEqual, 4)
			})
		})

		Convey("When loading config with a YAML file", func() {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			yaml := "addr: \":7070\"\nsimilarity_threshold: 0.8\nnotifier: log\n"
			So(os.WriteFile(path, []byte(yaml), 0o600), ShouldBeNil)
			_ = os.Setenv("REID_CONFIG", path)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			Convey("Then file values override defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":7070")
				So(cfg.SimilarityThreshold, ShouldEqual, 0.8)
			})

			Convey("And env vars override the file", func() {
				_ = os.Setenv("REID_ADDR", ":6060")
				cfg, err := config.Load(ctx)
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":6060")
			})
		})

		Convey("When the config is invalid", func() {
			defer clearConfigEnvVars()

			Convey("A threshold outside (0, 1] is rejected", func() {
				_ = os.Setenv("REID_SIMILARITY_THRESHOLD", "1.5")
				_, err := config.Load(ctx)
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			})

			Convey("An unknown notifier is rejected", func() {
				_ = os.Setenv("REID_NOTIFIER", "carrier-pigeon")
				_, err := config.Load(ctx)
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			})

			Convey("A webhook notifier without a URL is rejected", func() {
				_ = os.Setenv("REID_NOTIFIER", "webhook")
				_, err := config.Load(ctx)
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			})

			Convey("A missing config file is reported", func() {
				_ = os.Setenv("REID_CONFIG", "/does/not/exist.yaml")
				_, err := config.Load(ctx)
				So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
			})
		})
	})
}
