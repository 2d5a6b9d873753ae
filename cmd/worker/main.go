// Package main runs batch extraction jobs: one job per JSON Lines message file
// or GCS object, processed by a pool of in-memory queue workers.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/finsense/internal/app"
	"github.com/dvloznov/finsense/internal/config"
	"github.com/dvloznov/finsense/internal/domain"
	"github.com/dvloznov/finsense/internal/gcs"
	"github.com/dvloznov/finsense/internal/jobs"
	"github.com/dvloznov/finsense/internal/jobs/inmemory"
	"github.com/dvloznov/finsense/internal/logger"
	"github.com/dvloznov/finsense/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var (
	userID      string
	metricsAddr string
	serve       bool
	pollEvery   = 500 * time.Millisecond
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "worker [uri...]",
	Short: "Run batch extraction jobs",
	Long: `Publish one extraction job per JSON Lines file or gs:// object and process
them with worker.concurrency workers. Failed jobs are retried with backoff.

The worker exits once every job has completed or failed, unless --serve is set,
in which case it keeps running until interrupted.

Examples:
  worker exports/june.jsonl exports/july.jsonl
  worker --metrics-addr :9090 --serve gs://my-bucket/exports/2025-06.jsonl`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&userID, "user", pipeline.DefaultUserID, "user the jobs run for")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.Flags().BoolVar(&serve, "serve", false, "keep running after the given jobs finish")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.NewWithLevel(os.Stderr, cfg.Log.Level)

	// Create context that cancels on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	reg := prometheus.NewRegistry()
	a, err := app.New(ctx, cfg, app.WithModel(), app.WithRegistry(reg))
	if err != nil {
		return err
	}
	defer a.Close()

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Str("addr", metricsAddr).Msg("Metrics server failed")
			}
		}()
		defer srv.Close()
	}

	jobStore := inmemory.NewStore(
		inmemory.WithRetention(cfg.Worker.JobRetention),
		inmemory.WithMaxJobs(cfg.Worker.MaxJobs),
	)
	jobQueue := inmemory.NewQueue(cfg.Worker.QueueSize, jobStore, inmemory.WithWorkers(cfg.Worker.Concurrency))

	storage := gcs.NewClient()
	load := func(ctx context.Context, uri string) ([]domain.RawMessage, error) {
		return gcs.LoadMessages(ctx, storage, uri)
	}
	handler := jobs.NewExtractBatchHandler(a.Orchestrator(), a.Store, load)

	log.Info().Int("workers", cfg.Worker.Concurrency).Int("jobs", len(args)).Msg("Starting worker service")

	if err := jobQueue.Start(ctx, handler); err != nil {
		return fmt.Errorf("failed to start job consumer: %w", err)
	}

	for _, uri := range args {
		job := &jobs.ExtractBatchJob{UserID: userID, SourceURI: uri}
		if err := jobQueue.PublishExtractBatch(ctx, job); err != nil {
			log.Error().Err(err).Str("source_uri", uri).Msg("Failed to publish job")
			continue
		}
		log.Info().Str("job_id", job.JobID).Str("source_uri", uri).Msg("Published extract job")
	}

	if serve {
		<-ctx.Done()
	} else {
		waitForJobs(ctx, jobStore)
	}

	log.Info().Msg("Shutting down worker service...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	return summarize(shutdownCtx, cmd, jobStore)
}

// waitForJobs returns once every stored job is terminal or ctx is done.
func waitForJobs(ctx context.Context, store jobs.JobStore) {
	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if done, _ := allTerminal(ctx, store); done {
				return
			}
		}
	}
}

func allTerminal(ctx context.Context, store jobs.JobStore) (bool, error) {
	list, err := store.ListJobs(ctx, jobs.JobFilter{})
	if err != nil {
		return false, err
	}
	for _, job := range list {
		if !job.Status.Terminal() {
			return false, nil
		}
	}
	return true, nil
}

// summarize prints one line per job and fails when any job failed.
func summarize(ctx context.Context, cmd *cobra.Command, store jobs.JobStore) error {
	list, err := store.ListJobs(ctx, jobs.JobFilter{})
	if err != nil {
		return err
	}

	failed := 0
	out := cmd.OutOrStdout()
	for _, job := range list {
		fmt.Fprintf(out, "%s\t%s\t%s\tsaved=%d rejected=%d failed=%d\n",
			job.JobID, job.Status, job.SourceURI, job.Saved, job.Rejected, job.Failed)
		if job.Status != jobs.JobStatusCompleted {
			failed++
		}
	}

	sum, err := store.Summarize(ctx, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "total\tjobs=%d processed=%d saved=%d rejected=%d failed=%d\n",
		sum.Jobs, sum.Processed, sum.Saved, sum.Rejected, sum.Failed)

	if failed > 0 {
		return fmt.Errorf("%d of %d jobs did not complete", failed, len(list))
	}
	return nil
}
