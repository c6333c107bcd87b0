package config

import (
	"errors"
)

// Sentinel errors for this package, matched by callers with errors.Is.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
