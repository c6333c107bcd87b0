// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/quietcam/reid/internal/adapters/ingest"
)

// DetectionsHandler handles detection event submissions.
type DetectionsHandler struct {
	deps Dependencies
}

// NewDetectionsHandler creates a new detections handler.
func NewDetectionsHandler(deps Dependencies) *DetectionsHandler {
	return &DetectionsHandler{deps: deps}
}

// HandlePostDetections handles POST /api/v1/detections requests. The body is
// a single camera event; each usable detection in it becomes one processing
// job. Jobs rejected on backpressure are reported but do not fail the event.
func (h *DetectionsHandler) HandlePostDetections(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_detections"

	var ev ingest.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}

	jobs, err := ingest.Jobs(ev)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	if len(jobs) == 0 {
		writeJSON(w, http.StatusOK, ackResponse{Status: "empty", Accepted: 0, Skipped: 0})
		return
	}

	accepted := 0
	for _, job := range jobs {
		if h.deps.Process(r.Context(), job) {
			accepted++
		}
	}

	if accepted == 0 {
		writeError(w, http.StatusTooManyRequests, "backpressure", newKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{
		Status:   "accepted",
		Accepted: accepted,
		Skipped:  len(jobs) - accepted,
	})
}
