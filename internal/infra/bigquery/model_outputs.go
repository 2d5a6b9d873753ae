package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finsense/internal/llm"
)

type ModelOutputRow struct {
	OutputID  string `bigquery:"output_id"`  // REQUIRED
	ModelName string `bigquery:"model_name"` // REQUIRED

	SystemPrompt string  `bigquery:"system_prompt"` // REQUIRED
	UserPrompt   string  `bigquery:"user_prompt"`   // REQUIRED
	Temperature  float64 `bigquery:"temperature"`   // REQUIRED

	Response bigquery.NullString `bigquery:"response"` // NULLABLE
	Error    bigquery.NullString `bigquery:"error"`    // NULLABLE

	LatencyMS int64     `bigquery:"latency_ms"` // REQUIRED
	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

func newModelOutputRow(out llm.Output) *ModelOutputRow {
	return &ModelOutputRow{
		OutputID:     out.ID,
		ModelName:    out.Model,
		SystemPrompt: out.System,
		UserPrompt:   out.User,
		Temperature:  out.Temperature,
		Response:     nullString(out.Response),
		Error:        nullString(out.Error),
		LatencyMS:    out.Latency.Milliseconds(),
		CreatedTS:    out.CreatedAt.UTC(),
	}
}
