package infer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/quietcam/reid/internal/adapters/infer"
	"github.com/quietcam/reid/internal/domain/embedding"
	. "github.com/smartystreets/goconvey/convey"
)

func testTensor() embedding.Tensor {
	return embedding.Tensor{
		Data:     make([]float32, 3*256*128),
		Channels: 3,
		Height:   256,
		Width:    128,
	}
}

func TestClientInfer(t *testing.T) {
	ctx := context.Background()

	Convey("Given a model server", t, func() {
		var gotShape []int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Shape []int     `json:"shape"`
				Data  []float32 `json:"data"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			gotShape = req.Shape

			out := struct {
				Dim       int       `json:"dim"`
				Embedding []float32 `json:"embedding"`
			}{Dim: embedding.Dim, Embedding: make([]float32, embedding.Dim)}
			out.Embedding[0] = 1.0
			_ = json.NewEncoder(w).Encode(out)
		}))
		defer srv.Close()

		c := infer.NewClient(srv.URL)

		Convey("When inferring a tensor", func() {
			vec, err := c.Infer(ctx, testTensor())

			Convey("Then the tensor shape travels with the request", func() {
				So(err, ShouldBeNil)
				So(gotShape, ShouldResemble, []int{1, 3, 256, 128})
			})

			Convey("Then the embedding comes back intact", func() {
				So(err, ShouldBeNil)
				So(len(vec), ShouldEqual, embedding.Dim)
				So(vec[0], ShouldEqual, 1.0)
			})
		})
	})

	Convey("Given a model server that fails", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		c := infer.NewClient(srv.URL)

		Convey("Then infer surfaces the status and body", func() {
			_, err := c.Infer(ctx, testTensor())
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "503")
			So(err.Error(), ShouldContainSubstring, "model not loaded")
		})
	})
}

func TestStubScorer(t *testing.T) {
	ctx := context.Background()

	Convey("Given a stub scorer", t, func() {
		s := infer.NewStubScorer(infer.WithStubLatencyRange(time.Millisecond, 2*time.Millisecond))

		tensor := testTensor()
		tensor.Data[42] = 0.5

		Convey("Then identical tensors produce identical embeddings", func() {
			a, err := s.Infer(ctx, tensor)
			So(err, ShouldBeNil)
			b, err := s.Infer(ctx, tensor)
			So(err, ShouldBeNil)
			So(a, ShouldResemble, b)
		})

		Convey("Then the embedding is unit-normalized", func() {
			a, err := s.Infer(ctx, tensor)
			So(err, ShouldBeNil)
			So(embedding.Vector(a).NearUnit(), ShouldBeTrue)
		})

		Convey("Then different tensors produce different embeddings", func() {
			a, _ := s.Infer(ctx, tensor)
			other := testTensor()
			other.Data[42] = 0.9
			b, _ := s.Infer(ctx, other)
			So(embedding.Vector(a).Dot(embedding.Vector(b)), ShouldBeLessThan, 0.5)
		})

		Convey("Then a cancelled context aborts inference", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := s.Infer(cancelled, tensor)
			So(err, ShouldNotBeNil)
		})
	})
}
