// Package main serves the finsense HTTP API and runs submitted batch jobs in
// the same process.
package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/finsense/internal/api"
	"github.com/dvloznov/finsense/internal/api/handlers"
	"github.com/dvloznov/finsense/internal/app"
	"github.com/dvloznov/finsense/internal/config"
	"github.com/dvloznov/finsense/internal/domain"
	"github.com/dvloznov/finsense/internal/gcs"
	"github.com/dvloznov/finsense/internal/jobs"
	"github.com/dvloznov/finsense/internal/jobs/inmemory"
	"github.com/dvloznov/finsense/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Parse command-line flags
	port := flag.String("port", "8080", "HTTP server port")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.New().Fatal().Err(err).Msg("Failed to load config")
	}
	log := logger.NewWithLevel(os.Stderr, cfg.Log.Level)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}

	ctx := logger.WithContext(context.Background(), log)

	reg := prometheus.NewRegistry()
	a, err := app.New(ctx, cfg, app.WithModel(), app.WithRegistry(reg))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	if a.Generator == nil {
		log.Warn().Msg("No model configured - fallback extraction, insights and recommendations are disabled")
	}

	orch := a.Orchestrator()

	// Advice endpoints answer 503 without a model.
	var advisor handlers.Advisor
	if svc, err := a.Advisor(); err == nil {
		advisor = svc
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore(
		inmemory.WithRetention(cfg.Worker.JobRetention),
		inmemory.WithMaxJobs(cfg.Worker.MaxJobs),
	)
	jobQueue := inmemory.NewQueue(cfg.Worker.QueueSize, jobStore, inmemory.WithWorkers(cfg.Worker.Concurrency))

	storage := gcs.NewClient()
	load := func(ctx context.Context, uri string) ([]domain.RawMessage, error) {
		return gcs.LoadMessages(ctx, storage, uri)
	}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Int("workers", cfg.Worker.Concurrency).Msg("Starting job workers")
	if err := jobQueue.Start(workerCtx, jobs.NewExtractBatchHandler(orch, a.Store, load)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	handler := api.NewRouter(api.Handlers{
		Transactions: handlers.NewTransactionsHandler(orch, a.Store),
		Advice:       handlers.NewAdviceHandler(advisor),
		Profile:      handlers.NewProfileHandler(a.Store),
		Jobs:         handlers.NewJobsHandler(jobStore, jobQueue),
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}, log)

	// Model calls can take a while; the write timeout covers insight generation.
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	cancelWorker()

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
