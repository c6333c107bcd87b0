package service_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"testing"
	"time"

	service "github.com/quietcam/reid/internal/app"
	"github.com/quietcam/reid/internal/domain/embedding"
	"github.com/quietcam/reid/internal/domain/model"
	"github.com/quietcam/reid/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fixedScorer struct {
	vec []float32
}

func (f *fixedScorer) Infer(_ context.Context, _ embedding.Tensor) ([]float32, error) {
	return f.vec, nil
}

func unitVector() []float32 {
	v := make([]float32, embedding.Dim)
	v[0] = 1.0
	return v
}

type channelDispatcher struct {
	mu      sync.Mutex
	intents chan model.Intent
	count   int
}

func newChannelDispatcher() *channelDispatcher {
	return &channelDispatcher{intents: make(chan model.Intent, 16)}
}

func (d *channelDispatcher) Dispatch(_ context.Context, intent model.Intent) error {
	d.mu.Lock()
	d.count++
	d.mu.Unlock()
	d.intents <- intent
	return nil
}

func (d *channelDispatcher) sent() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

func personJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 128))
	for y := 0; y < 128; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 3), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func newJob(id, label string, crop []byte) model.Job {
	return model.Job{
		Detection: model.Detection{
			DetectionID: id,
			CameraID:    "cam-1",
			CameraName:  "Front Door",
			Class:       model.ClassPerson,
			Score:       0.92,
			Label:       label,
			Timestamp:   time.Now(),
		},
		Image: crop,
	}
}

func awaitIntent(t *testing.T, ch chan model.Intent, within time.Duration) model.Intent {
	t.Helper()
	select {
	case intent := <-ch:
		return intent
	case <-time.After(within):
		t.Fatal("no notification arrived")
		return model.Intent{}
	}
}

func TestServiceNamedPipeline(t *testing.T) {
	Convey("Given a running service with a labeled detection", t, func() {
		disp := newChannelDispatcher()
		svc := service.New(
			service.WithScorer(&fixedScorer{vec: unitVector()}),
			service.WithDispatcher(disp),
			service.WithWorkerCount(1),
			service.WithQueueSize(8),
		)

		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		crop := personJPEG(t)
		So(svc.Process(ctx, newJob("det-1", "alice", crop)), ShouldBeTrue)

		intent := awaitIntent(t, disp.intents, 2*time.Second)

		Convey("Then a named notification is delivered end to end", func() {
			So(intent.Title, ShouldEqual, "alice seen on Front Door")
			So(intent.Metadata.Label, ShouldEqual, "alice")
			So(intent.Metadata.PersonID, ShouldStartWith, "person_")
		})

		Convey("And resubmitting the same detection id is a no-op", func() {
			So(svc.Process(ctx, newJob("det-1", "alice", crop)), ShouldBeTrue)
			time.Sleep(300 * time.Millisecond)
			So(disp.sent(), ShouldEqual, 1)
		})
	})
}

func TestServiceCooldownAcrossCameras(t *testing.T) {
	Convey("Given two sightings of the same person on different cameras", t, func() {
		disp := newChannelDispatcher()
		svc := service.New(
			service.WithScorer(&fixedScorer{vec: unitVector()}),
			service.WithDispatcher(disp),
			service.WithWorkerCount(1),
		)

		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		crop := personJPEG(t)
		job1 := newJob("det-1", "bob", crop)
		job2 := newJob("det-2", "bob", crop)
		job2.Detection.CameraID = "cam-2"
		job2.Detection.CameraName = "Backyard"

		So(svc.Process(ctx, job1), ShouldBeTrue)
		first := awaitIntent(t, disp.intents, 2*time.Second)
		So(svc.Process(ctx, job2), ShouldBeTrue)
		time.Sleep(300 * time.Millisecond)

		Convey("Then only the first sighting notifies", func() {
			So(first.Title, ShouldEqual, "bob seen on Front Door")
			So(disp.sent(), ShouldEqual, 1)
		})
	})
}

func TestServiceGenericDeferred(t *testing.T) {
	Convey("Given an unlabeled person and a short buffer delay", t, func() {
		disp := newChannelDispatcher()
		svc := service.New(
			service.WithScorer(&fixedScorer{vec: unitVector()}),
			service.WithDispatcher(disp),
			service.WithWorkerCount(1),
			service.WithBufferDelay(50*time.Millisecond),
		)

		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		So(svc.Process(ctx, newJob("det-1", "", personJPEG(t))), ShouldBeTrue)

		intent := awaitIntent(t, disp.intents, 2*time.Second)

		Convey("Then a generic notification fires after the delay", func() {
			So(intent.Title, ShouldEqual, "Person detected on Front Door")
			So(intent.Metadata.Label, ShouldBeEmpty)
		})
	})
}

func TestServiceGenericDeferredKeepsClass(t *testing.T) {
	Convey("Given a buffered non-person detection", t, func() {
		disp := newChannelDispatcher()
		svc := service.New(
			service.WithScorer(&fixedScorer{vec: unitVector()}),
			service.WithDispatcher(disp),
			service.WithWorkerCount(1),
			service.WithBufferDelay(50*time.Millisecond),
		)

		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		job := newJob("det-1", "", nil)
		job.Detection.Class = "car"
		job.Detection.CameraName = "Driveway"
		So(svc.Process(ctx, job), ShouldBeTrue)

		intent := awaitIntent(t, disp.intents, 2*time.Second)

		Convey("Then the fired notification names the detected class", func() {
			So(intent.Title, ShouldEqual, "Car detected on Driveway")
			So(intent.Metadata.PersonID, ShouldStartWith, "car_")
		})
	})
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a service", t, func() {
		svc := service.New(
			service.WithScorer(&fixedScorer{vec: unitVector()}),
			service.WithWorkerCount(1),
		)
		ctx := context.Background()

		Convey("Process before Start is rejected", func() {
			So(svc.Process(ctx, newJob("det-1", "", nil)), ShouldBeFalse)
		})

		Convey("Start is idempotent and stats reflect the running state", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			stats := svc.GetStats()
			So(stats["started"], ShouldBeTrue)
			So(stats, ShouldContainKey, "queueLength")
			So(stats, ShouldContainKey, "trackedIdentities")
			So(stats, ShouldContainKey, "pendingBuffers")
			So(stats, ShouldContainKey, "cooldownRecords")
			So(stats, ShouldContainKey, "seenDetections")
		})

		Convey("Stop is safe to call twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
			svc.Stop()
			svc.Stop()
			So(svc.GetStats()["started"], ShouldBeFalse)
		})
	})
}
