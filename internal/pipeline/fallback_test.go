package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finsense/internal/decode"
	"github.com/dvloznov/finsense/internal/domain"
	"github.com/dvloznov/finsense/internal/llm"
	"github.com/dvloznov/finsense/internal/pipeline"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func respond(resp string, err error) llm.Generator {
	return llm.GeneratorFunc(func(ctx context.Context, system, user string, temperature float64) (string, error) {
		return resp, err
	})
}

func TestProbabilisticExtractor_NegativeOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		resp   string
		err    error
		reason pipeline.RejectReason
	}{
		{name: "generator error", err: errors.New("connection refused"), reason: pipeline.ReasonFallbackFailed},
		{name: "cancelled", err: context.Canceled, reason: pipeline.ReasonFallbackFailed},
		{name: "empty", resp: "   ", reason: pipeline.ReasonModelEmpty},
		{name: "prose", resp: "I'm not sure what you mean.", reason: pipeline.ReasonModelUnparseable},
		{name: "error sentinel", resp: `{"error": "No transaction found"}`, reason: pipeline.ReasonModelNotFound},
		{name: "found false", resp: `{"found": false}`, reason: pipeline.ReasonModelNotFound},
		{name: "missing amount", resp: `{"direction":"debit","description":"x"}`, reason: pipeline.ReasonModelUnparseable},
	}

	msg := domain.RawMessage{Text: "random text", Source: domain.SourceManual}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := pipeline.NewProbabilisticExtractor(respond(tt.resp, tt.err)).Extract(context.Background(), msg)
			assert.False(t, out.OK)
			assert.Equal(t, tt.reason, out.Reason)
		})
	}
}

func TestProbabilisticExtractor_LenientFields(t *testing.T) {
	received := time.Date(2025, 5, 3, 18, 30, 0, 0, time.UTC)
	msg := domain.RawMessage{
		Text:       "Your account was credited with refund",
		Source:     domain.SourceEmail,
		ReceivedAt: &received,
	}
	resp := `Sure, here is the data: {"amount": "-₹1,250.75", "merchant": "null", "date": "sometime"} Let me know!`

	out := pipeline.NewProbabilisticExtractor(respond(resp, nil)).Extract(context.Background(), msg)

	require.True(t, out.OK)
	c := out.Candidate
	assert.Equal(t, decode.StageObjectSpan, out.Stage)
	assert.True(t, c.Amount.Equal(decimal.RequireFromString("1250.75")), "amount = %s", c.Amount)
	assert.Equal(t, domain.DirectionCredit, c.Direction)
	assert.Empty(t, c.Merchant)
	assert.Zero(t, c.Confidence)
	assert.Equal(t, civil.Date{Year: 2025, Month: time.May, Day: 3}, c.OccurredOn)
	assert.Equal(t, "Your account was credited with refund", c.Description)
	assert.Equal(t, domain.SourceEmail, c.Source)
	assert.Equal(t, domain.PathProbabilistic, c.Path)
}

func TestProbabilisticExtractor_ArrayTakesFirstObject(t *testing.T) {
	resp := `[{"direction":"debit","amount":10,"confidence":1.7},{"direction":"credit","amount":20}]`

	out := pipeline.NewProbabilisticExtractor(respond(resp, nil)).Extract(context.Background(), domain.RawMessage{Text: "x"})

	require.True(t, out.OK)
	assert.True(t, out.Candidate.Amount.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, domain.DirectionDebit, out.Candidate.Direction)
	assert.Equal(t, 1.0, out.Candidate.Confidence)
}

func TestProbabilisticExtractor_PromptCarriesContext(t *testing.T) {
	var gotSystem, gotUser string
	gen := llm.GeneratorFunc(func(ctx context.Context, system, user string, temperature float64) (string, error) {
		gotSystem, gotUser = system, user
		return "", nil
	})
	now := func() time.Time { return time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC) }
	p := pipeline.NewProbabilisticExtractor(gen,
		pipeline.WithFallbackClock(now),
		pipeline.WithCategories([]string{"Shopping", "Others"}),
	)

	p.Extract(context.Background(), domain.RawMessage{
		Text:     "Order shipped",
		Source:   domain.SourceEmail,
		Subject:  "Your order",
		Metadata: map[string]string{"from": "orders@example.com"},
	})

	assert.Contains(t, gotSystem, `{"error": "No transaction found"}`)
	assert.Contains(t, gotUser, `Text: "Order shipped"`)
	assert.Contains(t, gotUser, "Source: email")
	assert.Contains(t, gotUser, "Subject: Your order")
	assert.Contains(t, gotUser, `Metadata: {"from":"orders@example.com"}`)
	assert.Contains(t, gotUser, "Current date: 2025-08-01")
	assert.Contains(t, gotUser, "Categories: Shopping, Others")
}
