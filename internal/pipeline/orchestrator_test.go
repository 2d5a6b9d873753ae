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
	"github.com/dvloznov/finsense/internal/metrics"
	"github.com/dvloznov/finsense/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockFallback is a mock implementation of Fallback that counts calls.
type MockFallback struct {
	ExtractFunc func(ctx context.Context, msg domain.RawMessage) pipeline.FallbackOutcome
	Calls       int
}

func (m *MockFallback) Extract(ctx context.Context, msg domain.RawMessage) pipeline.FallbackOutcome {
	m.Calls++
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, msg)
	}
	return pipeline.FallbackOutcome{Reason: pipeline.ReasonModelNotFound}
}

// MockTransactionStore is a mock implementation of TransactionStore.
type MockTransactionStore struct {
	SaveTransactionFunc func(ctx context.Context, userID string, c domain.TransactionCandidate) (string, error)
	Saved               []domain.TransactionCandidate
}

func (m *MockTransactionStore) SaveTransaction(ctx context.Context, userID string, c domain.TransactionCandidate) (string, error) {
	if m.SaveTransactionFunc != nil {
		return m.SaveTransactionFunc(ctx, userID, c)
	}
	m.Saved = append(m.Saved, c)
	return "tx-" + string(rune('0'+len(m.Saved))), nil
}

var fixedNow = time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)

func hdfcMessage() domain.RawMessage {
	return domain.RawMessage{
		Text:   "Rs.850.00 debited from A/C No.XXXX1234 on 19-06-2025 for Swiggy transaction. Avl Bal: Rs.12000.00",
		Source: domain.SourceSMS,
		Sender: "VM-HDFCBK",
	}
}

func TestOrchestrator_HDFCSwiggyEndToEnd(t *testing.T) {
	fallback := &MockFallback{}
	o := pipeline.NewOrchestrator(pipeline.WithFallback(fallback))

	res := o.Extract(context.Background(), hdfcMessage())

	require.True(t, res.OK())
	c := res.Candidate
	assert.Equal(t, domain.DirectionDebit, c.Direction)
	assert.True(t, c.Amount.Equal(decimal.RequireFromString("850.00")), "amount = %s", c.Amount)
	assert.Equal(t, "swiggy", c.Merchant)
	assert.Equal(t, "Food & Dining", c.Category)
	assert.Equal(t, civil.Date{Year: 2025, Month: time.June, Day: 19}, c.OccurredOn)
	assert.Equal(t, 0.9, c.Confidence)
	assert.Equal(t, domain.PathDeterministic, c.Path)
	assert.Equal(t, "hdfc", c.Provider)
	assert.Equal(t, "1234", c.AccountTail)
	assert.Equal(t, hdfcMessage().Text, c.RawText)

	assert.Equal(t, 0, fallback.Calls)
	assert.Equal(t, []pipeline.State{
		pipeline.StateStart,
		pipeline.StateDeterministicAttempt,
		pipeline.StateMatched,
		pipeline.StateCandidate,
	}, res.Trail)
}

func TestOrchestrator_UnknownSenderUsesFallbackOnce(t *testing.T) {
	var calls int
	gen := llm.GeneratorFunc(func(ctx context.Context, system, user string, temperature float64) (string, error) {
		calls++
		assert.Equal(t, pipeline.ExtractionTemperature, temperature)
		assert.Contains(t, user, "Netflix")
		return "```json\n{\"transaction_type\":\"debit\",\"amount\":499,\"description\":\"Netflix subscription\"," +
			"\"category\":\"entertainment\",\"merchant\":\"Netflix Inc\",\"date\":\"2025-07-02\",\"ai_confidence\":0.72}\n```", nil
	})
	fallback := pipeline.NewProbabilisticExtractor(gen, pipeline.WithFallbackClock(func() time.Time { return fixedNow }))
	o := pipeline.NewOrchestrator(pipeline.WithFallback(fallback))

	msg := domain.RawMessage{Text: "Paid Rs 499 to Netflix on 02-07-2025", Source: domain.SourceSMS, Sender: "JX-NOTABANK"}
	res := o.Extract(context.Background(), msg)

	require.True(t, res.OK())
	assert.Equal(t, 1, calls)
	c := res.Candidate
	assert.Equal(t, domain.PathProbabilistic, c.Path)
	assert.Equal(t, domain.DirectionDebit, c.Direction)
	assert.True(t, c.Amount.Equal(decimal.NewFromInt(499)))
	assert.Equal(t, "Netflix", c.Merchant)
	assert.Equal(t, "Entertainment", c.Category)
	assert.Equal(t, 0.72, c.Confidence)
	assert.Equal(t, civil.Date{Year: 2025, Month: time.July, Day: 2}, c.OccurredOn)
	assert.Equal(t, domain.SourceSMS, c.Source)
	assert.Equal(t, msg.Text, c.RawText)
	assert.Equal(t, decode.StageDirect, res.Stage)
}

func TestOrchestrator_ProviderWithoutMatchFallsBack(t *testing.T) {
	fallback := &MockFallback{}
	o := pipeline.NewOrchestrator(pipeline.WithFallback(fallback))

	msg := domain.RawMessage{Text: "Your HDFC credit card statement is ready", Source: domain.SourceSMS, Sender: "AD-HDFCBK"}
	res := o.Extract(context.Background(), msg)

	assert.False(t, res.OK())
	assert.Equal(t, pipeline.StateRejected, res.State)
	assert.Equal(t, pipeline.ReasonModelNotFound, res.Reason)
	assert.Nil(t, res.Candidate)
	assert.Equal(t, 1, fallback.Calls)
}

func TestOrchestrator_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		opts      []pipeline.Option
		text      string
		reason    pipeline.RejectReason
		wantCalls int
	}{
		{
			name:   "no fallback configured",
			text:   "Rs 100 paid somewhere",
			reason: pipeline.ReasonNoFallback,
		},
		{
			name:   "gate rejects chatter",
			opts:   []pipeline.Option{pipeline.WithFinancialGate(true)},
			text:   "see you at lunch tomorrow",
			reason: pipeline.ReasonNotFinancial,
		},
		{
			name:      "gate off lets chatter reach fallback",
			text:      "see you at lunch tomorrow",
			reason:    pipeline.ReasonModelNotFound,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fallback := &MockFallback{}
			opts := tt.opts
			if tt.wantCalls > 0 {
				opts = append(opts, pipeline.WithFallback(fallback))
			}
			o := pipeline.NewOrchestrator(opts...)

			res := o.Extract(context.Background(), domain.RawMessage{Text: tt.text, Source: domain.SourceManual})

			assert.Equal(t, pipeline.StateRejected, res.State)
			assert.Equal(t, tt.reason, res.Reason)
			assert.Equal(t, tt.wantCalls, fallback.Calls)
		})
	}
}

func TestOrchestrator_ModelCategoryOnlyReplacesOthers(t *testing.T) {
	fallback := &MockFallback{
		ExtractFunc: func(ctx context.Context, msg domain.RawMessage) pipeline.FallbackOutcome {
			return pipeline.FallbackOutcome{
				OK: true,
				Candidate: domain.TransactionCandidate{
					Direction:   domain.DirectionDebit,
					Amount:      decimal.NewFromInt(300),
					Category:    "Shopping",
					Subcategory: "Clothing",
					Merchant:    "Local Store",
					Path:        domain.PathProbabilistic,
				},
				Stage: decode.StageDirect,
			}
		},
	}
	o := pipeline.NewOrchestrator(pipeline.WithFallback(fallback))

	res := o.Extract(context.Background(), domain.RawMessage{Text: "Spent 300 at the food court", Source: domain.SourceManual})
	require.True(t, res.OK())
	assert.Equal(t, "Food & Dining", res.Candidate.Category)
	assert.Equal(t, "Local Store", res.Candidate.Merchant)
	assert.Empty(t, res.Candidate.Subcategory)

	res = o.Extract(context.Background(), domain.RawMessage{Text: "Spent 300 yesterday", Source: domain.SourceManual})
	require.True(t, res.OK())
	assert.Equal(t, "Shopping", res.Candidate.Category)
	assert.Equal(t, "Clothing", res.Candidate.Subcategory)
}

func TestOrchestrator_Metrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	o := pipeline.NewOrchestrator(pipeline.WithMetrics(m))

	o.Extract(context.Background(), hdfcMessage())
	o.Extract(context.Background(), domain.RawMessage{Text: "hello", Source: domain.SourceManual})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Extractions.WithLabelValues("deterministic", "candidate", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Extractions.WithLabelValues("none", "rejected", "no_fallback")))
}

func TestProcessBatch(t *testing.T) {
	store := &MockTransactionStore{}
	o := pipeline.NewOrchestrator()

	msgs := []domain.RawMessage{
		hdfcMessage(),
		{Text: "not a transaction", Source: domain.SourceManual},
		{Text: "INR 2,000.00 credited to a/c XX9876 on 01/07/2025 by NEFT", Source: domain.SourceSMS, Sender: "BZ-SBIINB"},
	}

	res, err := o.ProcessBatch(context.Background(), store, "u1", msgs)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 2, res.Saved)
	assert.Equal(t, 1, res.Rejected)
	assert.Zero(t, res.Failed)
	assert.Len(t, res.IDs, 2)
	require.Len(t, store.Saved, 2)
	assert.Equal(t, domain.DirectionCredit, store.Saved[1].Direction)
	assert.Equal(t, "Transfer", store.Saved[1].Category)
}

func TestProcessBatch_StoreFailureDoesNotAbort(t *testing.T) {
	var attempts int
	store := &MockTransactionStore{
		SaveTransactionFunc: func(ctx context.Context, userID string, c domain.TransactionCandidate) (string, error) {
			attempts++
			if attempts == 1 {
				return "", errors.New("database is locked")
			}
			return "tx-2", nil
		},
	}
	o := pipeline.NewOrchestrator()

	res, err := o.ProcessBatch(context.Background(), store, "u1", []domain.RawMessage{hdfcMessage(), hdfcMessage()})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Saved)
	assert.Equal(t, []string{"tx-2"}, res.IDs)
}

func TestProcessBatch_Cancelled(t *testing.T) {
	store := &MockTransactionStore{}
	o := pipeline.NewOrchestrator()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := o.ProcessBatch(ctx, store, "u1", []domain.RawMessage{hdfcMessage()})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Processed)
	assert.Empty(t, store.Saved)
}
