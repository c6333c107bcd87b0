package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/quietcam/reid/internal/adapters/notify"
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

func TestIntentComposition(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	Convey("Given a recognized person", t, func() {
		intent := notify.NamedIntent("person_1_abc", "alice", "Front Door", []byte("img"), at)

		Convey("Then the intent names the person and camera", func() {
			So(intent.Title, ShouldEqual, "alice seen on Front Door")
			So(intent.Metadata.PersonID, ShouldEqual, "person_1_abc")
			So(intent.Metadata.Label, ShouldEqual, "alice")
			So(intent.Metadata.CameraName, ShouldEqual, "Front Door")
			So(intent.Metadata.Timestamp, ShouldEqual, at)
		})
	})

	Convey("Given an unrecognized person", t, func() {
		intent := notify.GenericIntent("person_1_abc", "", "Back Yard", nil, at)

		Convey("Then the intent stays generic", func() {
			So(intent.Title, ShouldEqual, "Person detected on Back Yard")
			So(intent.Metadata.Label, ShouldBeEmpty)
		})
	})

	Convey("Given a bucketed non-person class", t, func() {
		intent := notify.GenericIntent("car_cam-1_5", "car", "Driveway", nil, at)

		Convey("Then the intent names the class", func() {
			So(intent.Title, ShouldEqual, "Car detected on Driveway")
		})
	})

	Convey("Given a detection whose embedding failed", t, func() {
		det := model.Detection{
			DetectionID: "det-1",
			CameraName:  "Garage",
			Class:       "person",
			Timestamp:   at,
		}
		intent := notify.FallbackIntent(det, []byte("img"))

		Convey("Then the intent reports motion without an identity", func() {
			So(intent.Title, ShouldEqual, "Motion on Garage")
			So(intent.Metadata.PersonID, ShouldBeEmpty)
		})
	})
}

func TestWebhookDispatcher(t *testing.T) {
	ctx := context.Background()
	intent := notify.NamedIntent("person_1_abc", "alice", "Front Door", []byte("img"), time.Now())

	Convey("Given a healthy webhook endpoint", t, func() {
		var received model.Intent
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &received)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		d := notify.NewWebhookDispatcher(srv.URL)
		err := d.Dispatch(ctx, intent)

		Convey("Then the intent is delivered as JSON", func() {
			So(err, ShouldBeNil)
			So(received.Title, ShouldEqual, intent.Title)
			So(received.Metadata.PersonID, ShouldEqual, "person_1_abc")
		})
	})

	Convey("Given an endpoint that rejects the request", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nope", http.StatusInternalServerError)
		}))
		defer srv.Close()

		d := notify.NewWebhookDispatcher(srv.URL)
		err := d.Dispatch(ctx, intent)

		Convey("Then dispatch fails with the status", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "500")
		})
	})
}

func TestLogDispatcher(t *testing.T) {
	Convey("Given the log dispatcher", t, func() {
		d := notify.NewLogDispatcher()

		Convey("Then dispatch never fails", func() {
			err := d.Dispatch(context.Background(), model.Intent{Title: "test"})
			So(err, ShouldBeNil)
		})
	})
}
