// Package notify composes notification intents and hands them to external
// delivery mechanisms. The engine considers a notification decided once the
// cooldown record is written; a delivery failure here is reported but never
// retried and never rolls the decision back.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/quietcam/reid/internal/domain/model"
)

// Dispatcher delivers a composed notification intent.
type Dispatcher interface {
	Dispatch(ctx context.Context, intent model.Intent) error
}

// NamedIntent composes the notification for a recognized person.
func NamedIntent(personID, label, cameraName string, image []byte, at time.Time) model.Intent {
	return model.Intent{
		Title: fmt.Sprintf("%s seen on %s", label, cameraName),
		Body:  fmt.Sprintf("%s was recognized on %s.", label, cameraName),
		Image: image,
		Metadata: model.Metadata{
			PersonID:   personID,
			Label:      label,
			CameraName: cameraName,
			Timestamp:  at,
		},
	}
}

// GenericIntent composes the notification for an unrecognized detection.
func GenericIntent(personID, class, cameraName string, image []byte, at time.Time) model.Intent {
	subject := "Person"
	if class != "" && class != model.ClassPerson && class != model.ClassFace {
		subject = capitalize(class)
	}
	return model.Intent{
		Title: fmt.Sprintf("%s detected on %s", subject, cameraName),
		Body:  fmt.Sprintf("A %s was detected on %s.", lower(subject), cameraName),
		Image: image,
		Metadata: model.Metadata{
			PersonID:   personID,
			CameraName: cameraName,
			Timestamp:  at,
		},
	}
}

// FallbackIntent composes an un-deduplicated notification used when
// embedding extraction fails and the engine cannot correlate the detection.
func FallbackIntent(d model.Detection, image []byte) model.Intent {
	return model.Intent{
		Title: fmt.Sprintf("Motion on %s", d.CameraName),
		Body:  fmt.Sprintf("A %s was detected on %s.", d.Class, d.CameraName),
		Image: image,
		Metadata: model.Metadata{
			CameraName: d.CameraName,
			Label:      d.Label,
			Timestamp:  d.Timestamp,
		},
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

func lower(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}
