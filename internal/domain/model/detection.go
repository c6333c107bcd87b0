// Package model contains domain models passed between layers.
package model

import "time"

// Detection classes that go through appearance matching. Every other class
// falls back to per-camera, per-time-bucket deduplication.
const (
	ClassPerson = "person"
	ClassFace   = "face"
)

// Box is a bounding box in pixel coordinates, [x, y, w, h] on the wire.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Detection is a single object detection reported by a camera. It is created
// by the external detection source and consumed read-only by the engine.
type Detection struct {
	DetectionID string    // stable id assigned by the detection source
	CameraID    string    // device identifier
	CameraName  string    // human-readable camera name
	Class       string    // person, face, or another object class
	Score       float64   // detector confidence
	Box         Box       // location within the captured frame
	Label       string    // recognized name, empty until known
	Timestamp   time.Time // capture time
}

// Recognizable reports whether the detection class goes through embedding
// extraction and appearance matching.
func (d Detection) Recognizable() bool {
	return d.Class == ClassPerson || d.Class == ClassFace
}

// Job pairs a detection with the cropped image region it refers to. Jobs flow
// through the queue to the pipeline workers.
type Job struct {
	Detection Detection
	Image     []byte // JPEG crop of the detection region
}
