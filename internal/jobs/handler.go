package jobs

import (
	"context"
	"fmt"

	"github.com/dvloznov/finsense/internal/domain"
	"github.com/dvloznov/finsense/internal/logger"
	"github.com/dvloznov/finsense/internal/pipeline"
)

// MessageLoader reads a raw-message batch from a URI.
type MessageLoader func(ctx context.Context, uri string) ([]domain.RawMessage, error)

// BatchProcessor is satisfied by *pipeline.Orchestrator.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, store pipeline.TransactionStore, userID string, msgs []domain.RawMessage) (pipeline.BatchResult, error)
}

// NewExtractBatchHandler returns a JobHandler that loads the job's batch and runs
// it through proc, saving candidates to store. Loader and cancellation errors fail
// the attempt; per-message rejections and save failures only show up in the counts.
func NewExtractBatchHandler(proc BatchProcessor, store pipeline.TransactionStore, load MessageLoader) JobHandler {
	return func(ctx context.Context, job Job) error {
		batch, ok := job.(*ExtractBatchJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log := logger.FromContext(ctx)
		log.Info().
			Str("job_id", batch.JobID).
			Str("user_id", batch.UserID).
			Str("source_uri", batch.SourceURI).
			Msg("Processing extract job")

		msgs, err := load(ctx, batch.SourceURI)
		if err != nil {
			return fmt.Errorf("load %s: %w", batch.SourceURI, err)
		}

		userID := batch.UserID
		if userID == "" {
			userID = pipeline.DefaultUserID
		}

		res, err := proc.ProcessBatch(ctx, store, userID, msgs)
		batch.Processed = res.Processed
		batch.Saved = res.Saved
		batch.Rejected = res.Rejected
		batch.Failed = res.Failed
		if err != nil {
			return fmt.Errorf("process batch: %w", err)
		}

		log.Info().
			Str("job_id", batch.JobID).
			Int("saved", res.Saved).
			Int("rejected", res.Rejected).
			Msg("Extract job completed")
		return nil
	}
}
