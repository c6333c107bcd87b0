package api_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/quietcam/reid/internal/adapters/http/api"
	"github.com/quietcam/reid/internal/adapters/ingest"
	"github.com/quietcam/reid/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeDeps implements api.Dependencies with a switchable outcome.
type fakeDeps struct {
	accept bool
	jobs   []model.Job
}

func (f *fakeDeps) Process(_ context.Context, job model.Job) bool {
	if f.accept {
		f.jobs = append(f.jobs, job)
	}
	return f.accept
}

// fakeStats implements api.StatsProvider.
type fakeStats struct{}

func (fakeStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true, "queueLength": 0}
}

func newTestRouter(deps *fakeDeps) *chi.Mux {
	r := chi.NewRouter()
	api.NewServer(deps, fakeStats{}).Register(r)
	return r
}

func frameBase64() string {
	img := image.NewRGBA(image.Rect(0, 0, 160, 120))
	for y := 0; y < 120; y++ {
		for x := 0; x < 160; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func eventBody() []byte {
	ev := ingest.Event{
		Timestamp:   1740000000000,
		DetectionID: "ev-1",
		DeviceID:    "cam-1",
		DeviceName:  "Front Door",
		Image:       frameBase64(),
		Detections: []ingest.Detection{
			{ClassName: "person", Score: 0.9, BoundingBox: []float64{10, 10, 40, 80}, ID: "det-1"},
			{ClassName: "person", Score: 0.8, BoundingBox: []float64{60, 10, 40, 80}, ID: "det-2"},
		},
	}
	data, _ := json.Marshal(ev)
	return data
}

func TestPostDetections(t *testing.T) {
	Convey("Given the API with an accepting service", t, func() {
		deps := &fakeDeps{accept: true}
		router := newTestRouter(deps)

		Convey("When posting a valid event", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/detections", bytes.NewReader(eventBody()))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Convey("Then all detections are accepted", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)

				var ack struct {
					Status   string `json:"status"`
					Accepted int    `json:"accepted"`
					Skipped  int    `json:"skipped"`
				}
				So(json.Unmarshal(rec.Body.Bytes(), &ack), ShouldBeNil)
				So(ack.Status, ShouldEqual, "accepted")
				So(ack.Accepted, ShouldEqual, 2)
				So(ack.Skipped, ShouldEqual, 0)
				So(len(deps.jobs), ShouldEqual, 2)
			})
		})

		Convey("When posting a body that is not JSON", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/detections", bytes.NewReader([]byte("not json")))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Convey("Then the request is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When posting an event without a device id", func() {
			var ev ingest.Event
			_ = json.Unmarshal(eventBody(), &ev)
			ev.DeviceID = ""
			data, _ := json.Marshal(ev)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/detections", bytes.NewReader(data))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Convey("Then the request is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When posting an event with no usable detections", func() {
			var ev ingest.Event
			_ = json.Unmarshal(eventBody(), &ev)
			ev.Detections = nil
			data, _ := json.Marshal(ev)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/detections", bytes.NewReader(data))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Convey("Then the event acks as empty", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"empty"`)
			})
		})
	})

	Convey("Given the API with a saturated service", t, func() {
		deps := &fakeDeps{accept: false}
		router := newTestRouter(deps)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/detections", bytes.NewReader(eventBody()))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		Convey("Then the event is rejected with backpressure", func() {
			So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
			So(rec.Body.String(), ShouldContainSubstring, "backpressure")
		})
	})
}

func TestHealthAndStats(t *testing.T) {
	Convey("Given the API", t, func() {
		router := newTestRouter(&fakeDeps{accept: true})

		Convey("Then /healthz reports ok", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, `"ok"`)
		})

		Convey("Then /stats returns the provider payload", func() {
			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, "queueLength")
		})

		Convey("Then /metrics serves the Prometheus registry", func() {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusOK)
		})
	})
}
