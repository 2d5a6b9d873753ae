package pipeline

import (
	"context"

	"github.com/dvloznov/finsense/internal/domain"
	"github.com/dvloznov/finsense/internal/logger"
)

// BatchResult summarizes one ProcessBatch call.
type BatchResult struct {
	Processed int
	Saved     int
	Rejected  int
	Failed    int
	IDs       []string
}

// ProcessBatch extracts each message in order and saves every candidate to store.
// A storage failure is logged and counted without aborting the batch. Cancelling
// ctx stops the batch between messages; the partial result is returned with the
// context error.
func (o *Orchestrator) ProcessBatch(ctx context.Context, store TransactionStore, userID string, msgs []domain.RawMessage) (BatchResult, error) {
	log := logger.FromContext(ctx)
	var res BatchResult

	for i, msg := range msgs {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Int("processed", res.Processed).Int("total", len(msgs)).Msg("Batch cancelled")
			return res, err
		}

		res.Processed++
		out := o.Extract(ctx, msg)
		if !out.OK() {
			res.Rejected++
			o.metrics.RecordBatchMessage("rejected")
			continue
		}

		id, err := store.SaveTransaction(ctx, userID, *out.Candidate)
		if err != nil {
			res.Failed++
			o.metrics.RecordBatchMessage("store_error")
			log.Error().Err(err).Int("index", i).Str("user_id", userID).Msg("Failed to save transaction")
			continue
		}

		res.Saved++
		res.IDs = append(res.IDs, id)
		o.metrics.RecordBatchMessage("saved")
	}

	log.Info().
		Str("user_id", userID).
		Int("processed", res.Processed).
		Int("saved", res.Saved).
		Int("rejected", res.Rejected).
		Int("failed", res.Failed).
		Msg("Batch processed")

	return res, nil
}
