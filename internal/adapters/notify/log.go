package notify

import (
	"context"

	"github.com/quietcam/reid/internal/domain/model"
	"github.com/quietcam/reid/pkg/logger"
)

// LogDispatcher writes notification intents to the structured log. Useful
// as a default sink and in development.
type LogDispatcher struct {
	logger logger.Logger
}

// NewLogDispatcher creates a dispatcher that logs intents.
func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{logger: logger.Get().Named("notify")}
}

// Dispatch logs the intent. It never fails.
func (d *LogDispatcher) Dispatch(ctx context.Context, intent model.Intent) error {
	d.logger.Info(ctx, "notification",
		logger.String("title", intent.Title),
		logger.String("body", intent.Body),
		logger.String("personID", intent.Metadata.PersonID),
		logger.String("label", intent.Metadata.Label),
		logger.String("camera", intent.Metadata.CameraName),
		logger.Int("imageBytes", len(intent.Image)),
	)
	return nil
}
