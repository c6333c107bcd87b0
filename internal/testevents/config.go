// Package testevents generates synthetic camera detection events and drives
// them through a running service for load and behavior testing.
package testevents

import (
	"runtime"
	"time"
)

// Config holds the test run parameters.
type Config struct {
	BaseURL   string
	NumEvents int
	Workers   int
	Timeout   time.Duration
	Cameras   int
	LabelRate float64
	Verbose   bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:   "http://localhost:8080",
		NumEvents: 1000,
		Workers:   runtime.NumCPU() * 2,
		Timeout:   30 * time.Second,
		Cameras:   4,
		LabelRate: 0.3,
	}
}
