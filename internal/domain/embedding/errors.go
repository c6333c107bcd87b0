package embedding

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrNotReady indicates the extractor has no scorer configured yet.
	ErrNotReady = errors.New("extractor not ready")

	// ErrDecode indicates the image crop could not be decoded.
	ErrDecode = errors.New("decode image")

	// ErrInference indicates the scoring function failed or returned an
	// unusable vector.
	ErrInference = errors.New("inference failed")
)
