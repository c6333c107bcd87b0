package config_test

import (
	"testing"
	"time"

	"github.com/quietcam/reid/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		Convey("Then it should have sensible defaults", func() {
			So(cfg.Addr, ShouldEqual, ":8080")
			So(cfg.LogLevel, ShouldEqual, "info")
			So(cfg.Notifier, ShouldEqual, config.NotifierLog)
			So(cfg.SimilarityThreshold, ShouldEqual, 0.6)
			So(cfg.CacheCapacity, ShouldEqual, 1_000)
			So(cfg.MaxPending, ShouldEqual, 256)
			So(cfg.DedupeSize, ShouldEqual, 10_000)
			So(cfg.QueueSize, ShouldEqual, 1_024)
		})

		Convey("Then the duration accessors convert milliseconds", func() {
			So(cfg.TrackingWindow(), ShouldEqual, time.Minute)
			So(cfg.CooldownWindow(), ShouldEqual, 5*time.Minute)
			So(cfg.BufferDelay(), ShouldEqual, 10*time.Second)
			So(cfg.SweepInterval(), ShouldEqual, time.Minute)
		})
	})
}
