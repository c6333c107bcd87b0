package model

import "time"

// Metadata identifies the event a notification refers to.
type Metadata struct {
	PersonID   string    `json:"person_id"`
	Label      string    `json:"label,omitempty"`
	CameraName string    `json:"camera_name"`
	Timestamp  time.Time `json:"timestamp"`
}

// Intent is a fully composed notification handed to an external delivery
// mechanism. The engine never performs delivery I/O itself.
type Intent struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Image    []byte   `json:"image,omitempty"`
	Metadata Metadata `json:"metadata"`
}
