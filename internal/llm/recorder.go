package llm

import (
	"context"
	"time"

	"github.com/dvloznov/finsense/internal/logger"
	"github.com/google/uuid"
)

// Output is one recorded generation call.
type Output struct {
	ID          string
	Model       string
	System      string
	User        string
	Response    string
	Temperature float64
	Error       string
	CreatedAt   time.Time
	Latency     time.Duration
}

// OutputSink persists recorded generation calls.
type OutputSink interface {
	RecordOutput(ctx context.Context, out Output) error
}

// Recorder hands every call made through it to an OutputSink. Sink failures are
// logged and never change the generation result.
type Recorder struct {
	next  Generator
	sink  OutputSink
	model string
	now   func() time.Time
}

// NewRecorder wraps next. model is stored with each output.
func NewRecorder(next Generator, sink OutputSink, model string) *Recorder {
	return &Recorder{next: next, sink: sink, model: model, now: time.Now}
}

// Generate delegates and records the outcome.
func (r *Recorder) Generate(ctx context.Context, system, user string, temperature float64) (string, error) {
	start := r.now()
	resp, err := r.next.Generate(ctx, system, user, temperature)

	out := Output{
		ID:          uuid.NewString(),
		Model:       r.model,
		System:      system,
		User:        user,
		Response:    resp,
		Temperature: temperature,
		CreatedAt:   start.UTC(),
		Latency:     r.now().Sub(start),
	}
	if err != nil {
		out.Error = err.Error()
	}

	if serr := r.sink.RecordOutput(ctx, out); serr != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(serr).Str("output_id", out.ID).Msg("Failed to record model output")
	}

	return resp, err
}
