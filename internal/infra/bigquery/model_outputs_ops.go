package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finsense/internal/llm"
)

// RecordOutput inserts a single ModelOutputRow into model_outputs.
// Uses DML INSERT to avoid streaming buffer issues.
func (s *Store) RecordOutput(ctx context.Context, out llm.Output) error {
	row := newModelOutputRow(out)

	_, err := s.exec(ctx, `
		INSERT INTO `+s.table(modelOutputsTable)+` (
			output_id, model_name, system_prompt, user_prompt,
			temperature, response, error, latency_ms, created_ts
		)
		VALUES (
			@output_id, @model_name, @system_prompt, @user_prompt,
			@temperature, @response, @error, @latency_ms, @created_ts
		)`,
		bigquery.QueryParameter{Name: "output_id", Value: row.OutputID},
		bigquery.QueryParameter{Name: "model_name", Value: row.ModelName},
		bigquery.QueryParameter{Name: "system_prompt", Value: row.SystemPrompt},
		bigquery.QueryParameter{Name: "user_prompt", Value: row.UserPrompt},
		bigquery.QueryParameter{Name: "temperature", Value: row.Temperature},
		bigquery.QueryParameter{Name: "response", Value: row.Response},
		bigquery.QueryParameter{Name: "error", Value: row.Error},
		bigquery.QueryParameter{Name: "latency_ms", Value: row.LatencyMS},
		bigquery.QueryParameter{Name: "created_ts", Value: row.CreatedTS},
	)
	if err != nil {
		return fmt.Errorf("RecordOutput: %w", err)
	}
	return nil
}
