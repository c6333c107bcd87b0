package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/nats-io/nats.go"

	"github.com/quietcam/reid/internal/adapters/http/api"
	"github.com/quietcam/reid/internal/adapters/http/swagger"
	"github.com/quietcam/reid/internal/adapters/infer"
	"github.com/quietcam/reid/internal/adapters/mq/source"
	"github.com/quietcam/reid/internal/adapters/notify"
	app "github.com/quietcam/reid/internal/app"
	"github.com/quietcam/reid/internal/config"
	"github.com/quietcam/reid/internal/domain/embedding"
	"github.com/quietcam/reid/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// NATS connection is shared by the notifier and the ingest source.
	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL, nats.Name("reid"))
		if err != nil {
			os.Stderr.WriteString("failed to connect to NATS: " + err.Error() + "\n")
			return
		}
		defer nc.Close()
	}

	dispatcher := buildDispatcher(cfg, nc)

	var scorer embedding.Scorer
	if cfg.InferURL == "stub" {
		scorer = infer.NewStubScorer()
	} else {
		scorer = infer.NewClient(cfg.InferURL)
	}

	svc := app.New(
		app.WithLogger(log),
		app.WithScorer(scorer),
		app.WithDispatcher(dispatcher),
		app.WithSimilarityThreshold(cfg.SimilarityThreshold),
		app.WithTrackingWindow(cfg.TrackingWindow()),
		app.WithCooldownWindow(cfg.CooldownWindow()),
		app.WithBufferDelay(cfg.BufferDelay()),
		app.WithCacheCapacity(cfg.CacheCapacity),
		app.WithMaxPending(cfg.MaxPending),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithQueueSize(cfg.QueueSize),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithSweepInterval(cfg.SweepInterval()),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Optional NATS ingest source alongside the HTTP API.
	if nc != nil && cfg.NATSSubject != "" {
		src := source.NewNATSSource(nc, svc, source.WithSubject(cfg.NATSSubject))
		if err := src.Start(ctx); err != nil {
			os.Stderr.WriteString("failed to start NATS source: " + err.Error() + "\n")
			return
		}
		defer func() {
			if err := src.Stop(); err != nil {
				log.Warn(ctx, "NATS source drain failed", logger.Error(err))
			}
		}()
	}

	// HTTP router and routes.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	swagger.Register(r)

	apiServer := api.NewServer(svc, svc)
	apiServer.Register(r)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

func buildDispatcher(cfg *config.Config, nc *nats.Conn) notify.Dispatcher {
	switch cfg.Notifier {
	case config.NotifierWebhook:
		return notify.NewWebhookDispatcher(cfg.WebhookURL)
	case config.NotifierNATS:
		return notify.NewNATSDispatcher(nc, cfg.NotifySubject)
	default:
		return notify.NewLogDispatcher()
	}
}
