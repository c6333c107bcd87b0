// Package ingest decodes detection events from their wire form and prepares
// per-detection jobs for the pipeline: the frame is decoded once, each
// detection's bounding box is clamped to the frame and cropped, and the crop
// is re-encoded for the embedding extractor.
package ingest

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/quietcam/reid/internal/domain/model"
)

// Sentinel error kinds for this package.
var (
	ErrNoImage    = errors.New("event has no image")
	ErrBadImage   = errors.New("decode frame")
	ErrBadBox     = errors.New("invalid bounding box")
	ErrNoDevice   = errors.New("event has no device id")
	ErrNoDetectID = errors.New("detection has no id")
)

// Detection is the wire form of a single detection inside an event.
type Detection struct {
	ClassName   string    `json:"className"`
	Label       string    `json:"label,omitempty"`
	Score       float64   `json:"score"`
	BoundingBox []float64 `json:"boundingBox"` // [x, y, w, h]
	ID          string    `json:"id,omitempty"`
	Zones       []string  `json:"zones,omitempty"`
}

// Event is the wire form of a camera detection event.
type Event struct {
	Timestamp   int64       `json:"timestamp"` // unix milliseconds
	DetectionID string      `json:"detectionId"`
	DeviceID    string      `json:"deviceId"`
	DeviceName  string      `json:"deviceName"`
	Detections  []Detection `json:"detections"`
	Image       string      `json:"image"` // base64-encoded JPEG frame
}

// Jobs turns an event into pipeline jobs, one per detection that carries a
// stable id. Detections without an id are pure motion and are dropped here,
// before they reach the engine.
func Jobs(ev Event) ([]model.Job, error) {
	if ev.DeviceID == "" {
		return nil, ErrNoDevice
	}
	if ev.Image == "" {
		return nil, ErrNoImage
	}

	raw, err := base64.StdEncoding.DecodeString(ev.Image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	frame, err := decodeFrame(raw)
	if err != nil {
		return nil, err
	}

	ts := time.UnixMilli(ev.Timestamp)
	jobs := make([]model.Job, 0, len(ev.Detections))
	for _, det := range ev.Detections {
		if det.ID == "" {
			continue
		}
		box, err := boxFromWire(det.BoundingBox)
		if err != nil {
			return nil, fmt.Errorf("detection %s: %w", det.ID, err)
		}

		crop, err := cropJPEG(frame, box)
		if err != nil {
			return nil, fmt.Errorf("detection %s: %w", det.ID, err)
		}

		jobs = append(jobs, model.Job{
			Detection: model.Detection{
				DetectionID: det.ID,
				CameraID:    ev.DeviceID,
				CameraName:  ev.DeviceName,
				Class:       det.ClassName,
				Score:       det.Score,
				Box:         box,
				Label:       det.Label,
				Timestamp:   ts,
			},
			Image: crop,
		})
	}
	return jobs, nil
}

func boxFromWire(b []float64) (model.Box, error) {
	if len(b) != 4 {
		return model.Box{}, fmt.Errorf("%w: got %d values, want 4", ErrBadBox, len(b))
	}
	return model.Box{X: b[0], Y: b[1], W: b[2], H: b[3]}, nil
}
