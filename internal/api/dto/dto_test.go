package dto

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finsense/internal/domain"
	"github.com/dvloznov/finsense/internal/pipeline"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExtractionResult(t *testing.T) {
	c := domain.TransactionCandidate{
		Direction:   domain.DirectionDebit,
		Amount:      decimal.RequireFromString("850"),
		Description: "Payment to Swiggy",
		Category:    "Food & Dining",
		OccurredOn:  civil.Date{Year: 2025, Month: time.June, Day: 19},
		Source:      domain.SourceSMS,
		Confidence:  0.9,
		Path:        domain.PathDeterministic,
	}
	res := pipeline.Result{
		Candidate: &c,
		State:     pipeline.StateCandidate,
		Path:      domain.PathDeterministic,
		Trail:     []pipeline.State{pipeline.StateStart, pipeline.StateDeterministicAttempt, pipeline.StateMatched, pipeline.StateCandidate},
	}

	view := NewExtractionResult(res)
	require.NotNil(t, view.Transaction)
	assert.Equal(t, "850.00", view.Transaction.Amount)
	assert.Equal(t, "2025-06-19", view.Transaction.Date)
	assert.Equal(t, []string{"start", "deterministic_attempt", "matched", "candidate"}, view.Trail)

	rejected := NewExtractionResult(pipeline.Result{State: pipeline.StateRejected, Reason: pipeline.ReasonNotFinancial})
	assert.Nil(t, rejected.Transaction)
	assert.Equal(t, "not_financial", rejected.Reason)
	assert.NotNil(t, rejected.Trail)
}

func TestNewRecommendation_Savings(t *testing.T) {
	v := NewRecommendation(domain.RecommendationItem{
		Title:            "Cook at home",
		PotentialSavings: decimal.NewNullDecimal(decimal.RequireFromString("1200.5")),
	})
	assert.Equal(t, "1200.50", v.PotentialSavings)

	assert.Empty(t, NewRecommendation(domain.RecommendationItem{Title: "Track spending"}).PotentialSavings)
}

func TestMessage_RawMessage(t *testing.T) {
	msg, err := Message{Text: "Rs.10 debited", Source: "gmail"}.RawMessage()
	require.NoError(t, err)
	assert.Equal(t, domain.SourceEmail, msg.Source)

	msg, err = Message{Text: "Rs.10 debited"}.RawMessage()
	require.NoError(t, err)
	assert.Equal(t, domain.SourceManual, msg.Source)

	_, err = Message{Text: "x", Source: "fax"}.RawMessage()
	assert.Error(t, err)
}

func TestProfile_Domain(t *testing.T) {
	p, err := Profile{
		MonthlyIncome: decimal.NewNullDecimal(decimal.NewFromInt(50000)),
		Age:           31,
	}.Domain("u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.True(t, p.MonthlyIncome.Valid)

	_, err = Profile{Age: 200}.Domain("u1")
	assert.ErrorContains(t, err, "age")

	_, err = Profile{SavingsTarget: decimal.NewNullDecimal(decimal.NewFromInt(-1))}.Domain("u1")
	assert.ErrorContains(t, err, "savings_target")
}
