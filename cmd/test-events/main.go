package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/quietcam/reid/internal/testevents"
	"github.com/quietcam/reid/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumEvents   = 1000
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultCameras     = 4
	defaultLabelRate   = 0.3
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:8080", "Base URL of the service")
		numEvents = flag.Int("events", defaultNumEvents, "Number of events to generate and submit")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		cameras   = flag.Int("cameras", defaultCameras, "Number of distinct cameras to simulate")
		labelRate = flag.Float64("label-rate", defaultLabelRate, "Fraction of person detections that carry a label")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testevents.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	cfg := &testevents.Config{
		BaseURL:   *baseURL,
		NumEvents: *numEvents,
		Workers:   *workers,
		Cameras:   *cameras,
		LabelRate: *labelRate,
		Timeout:   *timeout,
		Verbose:   *verbose,
	}

	if err := testevents.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("test failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
