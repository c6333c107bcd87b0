package testevents

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/quietcam/reid/internal/adapters/ingest"
	"github.com/quietcam/reid/pkg/logger"
)

// Synthetic frame dimensions.
const (
	frameWidth  = 640
	frameHeight = 480
)

// classes emitted by the generator, weighted toward people.
var classNames = []string{"person", "person", "person", "face", "car", "dog"}

// labels assigned to a fraction of person detections.
var labels = []string{"alice", "bob", "carol", "dave"}

// generateEvents builds NumEvents synthetic camera events. Every event
// carries one frame and one to three detections with plausible boxes.
func generateEvents(ctx context.Context, cfg *Config) ([]ingest.Event, error) {
	log := logger.Get().Named("generator")
	log.Info(ctx, "generating events", logger.Int("count", cfg.NumEvents))

	frame, err := syntheticFrame()
	if err != nil {
		return nil, fmt.Errorf("encode synthetic frame: %w", err)
	}

	events := make([]ingest.Event, 0, cfg.NumEvents)
	for i := 0; i < cfg.NumEvents; i++ {
		camera := rand.Intn(cfg.Cameras) //nolint:gosec // test data
		nDet := 1 + rand.Intn(3)         //nolint:gosec // test data
		dets := make([]ingest.Detection, 0, nDet)
		for j := 0; j < nDet; j++ {
			dets = append(dets, randomDetection(cfg.LabelRate))
		}

		events = append(events, ingest.Event{
			Timestamp:   time.Now().UnixMilli(),
			DetectionID: uuid.NewString(),
			DeviceID:    fmt.Sprintf("cam-%d", camera),
			DeviceName:  fmt.Sprintf("Camera %d", camera),
			Detections:  dets,
			Image:       frame,
		})
	}

	return events, nil
}

func randomDetection(labelRate float64) ingest.Detection {
	class := classNames[rand.Intn(len(classNames))] //nolint:gosec // test data

	w := 40 + rand.Float64()*120 //nolint:gosec // test data
	h := 80 + rand.Float64()*200 //nolint:gosec // test data
	x := rand.Float64() * (frameWidth - w)
	y := rand.Float64() * (frameHeight - h)

	det := ingest.Detection{
		ClassName:   class,
		Score:       0.5 + rand.Float64()*0.5, //nolint:gosec // test data
		BoundingBox: []float64{x, y, w, h},
		ID:          uuid.NewString(),
	}
	if (class == "person" || class == "face") && rand.Float64() < labelRate { //nolint:gosec // test data
		det.Label = labels[rand.Intn(len(labels))] //nolint:gosec // test data
	}
	return det
}

// syntheticFrame renders a flat gray frame and returns it base64-encoded.
func syntheticFrame() (string, error) {
	img := image.NewRGBA(image.Rect(0, 0, frameWidth, frameHeight))
	gray := color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
	for y := 0; y < frameHeight; y++ {
		for x := 0; x < frameWidth; x++ {
			img.SetRGBA(x, y, gray)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 75}); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
