package testevents

import (
	"os"
)

// ShowHelp prints usage information for the test events tool.
func ShowHelp() {
	os.Stdout.WriteString(`Detection Event Test Tool
=========================

Generates synthetic camera detection events and submits them to a running
service, then reports acceptance counts and service statistics.

Usage:
  go run cmd/test-events/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8080")
  -events int
        Number of events to generate and submit (default 1000)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -cameras int
        Number of distinct cameras to simulate (default 4)
  -label-rate float
        Fraction of person detections that carry a label (default 0.3)
  -timeout duration
        HTTP request timeout (default 30s)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings
  go run cmd/test-events/main.go

  # Heavier run against a non-default address
  go run cmd/test-events/main.go -events 50000 -workers 16 -url http://localhost:9090
`)
}
