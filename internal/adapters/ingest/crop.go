package ingest

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	"github.com/quietcam/reid/internal/domain/model"
)

const jpegQuality = 85

func decodeFrame(raw []byte) (image.Image, error) {
	frame, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	return frame, nil
}

// cropJPEG cuts the bounding box region out of the frame, clamped to the
// frame bounds, and re-encodes it as JPEG.
func cropJPEG(frame image.Image, b model.Box) ([]byte, error) {
	bounds := frame.Bounds()
	fw := float64(bounds.Dx())
	fh := float64(bounds.Dy())

	x := clamp(b.X, 0, fw-1)
	y := clamp(b.Y, 0, fh-1)
	w := clamp(b.W, 1, fw-x)
	h := clamp(b.H, 1, fh-y)

	rect := image.Rect(
		bounds.Min.X+int(x),
		bounds.Min.Y+int(y),
		bounds.Min.X+int(x+w),
		bounds.Min.Y+int(y+h),
	)

	crop := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Copy(crop, image.Point{}, frame, rect, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, crop, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode crop: %w", err)
	}
	return buf.Bytes(), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
