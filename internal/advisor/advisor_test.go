package advisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finsense/internal/decode"
	"github.com/dvloznov/finsense/internal/domain"
	"github.com/dvloznov/finsense/internal/llm"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	txs             []domain.StoredTransaction
	profile         *domain.Profile
	getErr          error
	insights        []domain.InsightItem
	recommendations []domain.RecommendationItem
	lastLimit       int
}

func (f *fakeStore) GetTransactions(ctx context.Context, userID string, limit int) ([]domain.StoredTransaction, error) {
	f.lastLimit = limit
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.txs, nil
}

func (f *fakeStore) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	if f.profile == nil {
		return domain.Profile{}, domain.ErrNotFound
	}
	return *f.profile, nil
}

func (f *fakeStore) SaveInsight(ctx context.Context, userID string, item domain.InsightItem) error {
	f.insights = append(f.insights, item)
	return nil
}

func (f *fakeStore) SaveRecommendation(ctx context.Context, userID string, item domain.RecommendationItem) error {
	f.recommendations = append(f.recommendations, item)
	return nil
}

func tx(dir domain.Direction, amount string, category string, day int) domain.StoredTransaction {
	return domain.StoredTransaction{
		ID: "id",
		TransactionCandidate: domain.TransactionCandidate{
			Direction:   dir,
			Amount:      decimal.RequireFromString(amount),
			Category:    category,
			Description: category + " spend",
			OccurredOn:  civil.Date{Year: 2025, Month: time.June, Day: day},
		},
	}
}

func sampleTransactions() []domain.StoredTransaction {
	return []domain.StoredTransaction{
		tx(domain.DirectionDebit, "850.00", "Food & Dining", 19),
		tx(domain.DirectionCredit, "50000", "Income", 18),
		tx(domain.DirectionDebit, "1200.50", "Shopping", 15),
		tx(domain.DirectionDebit, "150", "Food & Dining", 12),
		tx(domain.DirectionDebit, "300", "", 10),
	}
}

func TestSummarizeSpending(t *testing.T) {
	s := SummarizeSpending(sampleTransactions())

	assert.Equal(t, 4, s.DebitCount)
	assert.Equal(t, "2500.5", s.TotalSpending.String())
	assert.True(t, s.MonthlySpending.Equal(s.TotalSpending))
	require.Len(t, s.TopCategories, 3)
	assert.Equal(t, "Shopping", s.TopCategories[0].Category)
	assert.Equal(t, "Food & Dining", s.TopCategories[1].Category)
	assert.Equal(t, "1000", s.TopCategories[1].Amount.String())
	assert.Equal(t, domain.DefaultCategory, s.TopCategories[2].Category)
}

func TestSummarizeSpending_ScalesMonthly(t *testing.T) {
	var txs []domain.StoredTransaction
	for i := 0; i < 60; i++ {
		txs = append(txs, tx(domain.DirectionDebit, "10", "Food & Dining", 1))
	}

	s := SummarizeSpending(txs)

	assert.Equal(t, "600", s.TotalSpending.String())
	assert.Equal(t, "300", s.MonthlySpending.String())
}

func TestSummarizeDetailed(t *testing.T) {
	txs := append(sampleTransactions(), tx(domain.DirectionDebit, "99", "Fuel", 10))

	s := SummarizeDetailed(txs)

	assert.Equal(t, 6, s.TransactionCount)
	assert.Equal(t, 5, s.DebitCount)
	assert.Equal(t, 1, s.CreditCount)
	assert.Len(t, s.Recent, 5)
	assert.Equal(t, "Food & Dining", s.Recent[0].Category)
	require.Len(t, s.TopCategories, 3)
	assert.Equal(t, "Shopping", s.TopCategories[0].Category)
	// 2599.50 over June 10..19 inclusive.
	assert.Equal(t, "259.95", s.AverageDailySpend.StringFixed(2))
}

func TestSummarizeProfile(t *testing.T) {
	assert.Equal(t, "No profile data available", SummarizeProfile(nil))
	assert.Equal(t, "No profile data available", SummarizeProfile(&domain.Profile{UserID: "u1"}))

	p := &domain.Profile{
		MonthlyIncome:  decimal.NewNullDecimal(decimal.NewFromInt(80000)),
		Age:            29,
		FinancialGoals: []string{"Emergency fund", "Retirement"},
		RiskTolerance:  "moderate",
	}
	assert.Equal(t,
		"Monthly Income: 80000.00; Age: 29; Financial Goals: Emergency fund, Retirement; Risk Tolerance: moderate",
		SummarizeProfile(p))
}

func TestAnalyzeSpending_NoTransactionsSkipsModel(t *testing.T) {
	var calls int
	gen := llm.GeneratorFunc(func(ctx context.Context, system, user string, temperature float64) (string, error) {
		calls++
		return "", nil
	})

	res, err := NewService(&fakeStore{}, gen).AnalyzeSpending(context.Background(), "u1")

	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, decode.OutcomeNoInput, res.Outcome)
	assert.Zero(t, calls)
}

func TestAnalyzeSpending(t *testing.T) {
	store := &fakeStore{txs: sampleTransactions(), profile: &domain.Profile{Occupation: "Engineer"}}
	gen := llm.GeneratorFunc(func(ctx context.Context, system, user string, temperature float64) (string, error) {
		assert.Equal(t, insightTemperature, temperature)
		assert.Contains(t, user, "Occupation: Engineer")
		assert.Contains(t, user, `"total_spending": "2500.5"`)
		return "```json\n[{\"insight_type\":\"budget_alert\",\"title\":\"Shopping spike\",\"description\":\"d\",\"category\":\"Shopping\",\"priority\":1,\"confidence\":0.8}]\n```", nil
	})

	res, err := NewService(store, gen, WithWindow(50)).AnalyzeSpending(context.Background(), "u1")

	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, domain.InsightBudgetAlert, res.Items[0].Kind)
	assert.Len(t, store.insights, 1)
	assert.Equal(t, 50, store.lastLimit)
}

func TestAnalyzeSpending_GenerationFailureIsEmpty(t *testing.T) {
	store := &fakeStore{txs: sampleTransactions()}
	gen := llm.GeneratorFunc(func(ctx context.Context, system, user string, temperature float64) (string, error) {
		return "", errors.New("quota exceeded")
	})

	res, err := NewService(store, gen).AnalyzeSpending(context.Background(), "u1")

	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, decode.OutcomeGenerationFailed, res.Outcome)
	assert.Empty(t, store.insights)
}

func TestRecommend_GenerationFailureIsDistinctFromEmpty(t *testing.T) {
	store := &fakeStore{txs: sampleTransactions()}
	failing := llm.GeneratorFunc(func(ctx context.Context, system, user string, temperature float64) (string, error) {
		return "", errors.New("connection refused")
	})
	silent := llm.GeneratorFunc(func(ctx context.Context, system, user string, temperature float64) (string, error) {
		return "  ", nil
	})

	res, err := NewService(store, failing).Recommend(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.Equal(t, decode.OutcomeGenerationFailed, res.Outcome)

	res, err = NewService(store, silent).Recommend(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.Equal(t, decode.OutcomeEmptyResponse, res.Outcome)
	assert.Empty(t, store.recommendations)
}

func TestAnalyzeSpending_StoreError(t *testing.T) {
	store := &fakeStore{getErr: errors.New("db closed")}

	_, err := NewService(store, llm.GeneratorFunc(nil)).AnalyzeSpending(context.Background(), "u1")

	assert.ErrorContains(t, err, "db closed")
}

func TestRecommend(t *testing.T) {
	store := &fakeStore{txs: sampleTransactions()}
	gen := llm.GeneratorFunc(func(ctx context.Context, system, user string, temperature float64) (string, error) {
		assert.Equal(t, recommendationTemperature, temperature)
		assert.Contains(t, user, "Additional Context: saving for a bike")
		assert.Contains(t, user, "No profile data available")
		return `[
			{"recommendation_type":"food","title":"Cook more","description":"d","category":"Food & Dining","priority":2,"potential_savings":"₹500/month"},
			{"recommendation_type":"savings","title":"Automate savings","description":"d","category":"Savings","priority":1},
			{"title":"Cut shopping","description":"d","category":"Shopping","priority":3},
			{"title":"Review subscriptions","description":"d","category":"Entertainment","priority":3}
		]`, nil
	})

	res, err := NewService(store, gen).Recommend(context.Background(), "u1", " saving for a bike ")

	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.Equal(t, "Automate savings", res.Items[0].Title)
	assert.Equal(t, "500.00", res.Items[1].PotentialSavings.Decimal.StringFixed(2))
	assert.Len(t, store.recommendations, 4)
	assert.Equal(t, DefaultRecommendationWindow, store.lastLimit)
}
