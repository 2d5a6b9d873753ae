package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finsense/internal/domain"
	"github.com/dvloznov/finsense/internal/llm"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenAndMigrate(filepath.Join(t.TempDir(), "finsense.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func candidate(amount string, day int) domain.TransactionCandidate {
	return domain.TransactionCandidate{
		Direction:   domain.DirectionDebit,
		Amount:      decimal.RequireFromString(amount),
		Description: "Payment to Swiggy",
		Category:    "Food & Dining",
		Merchant:    "Swiggy",
		OccurredOn:  civil.Date{Year: 2025, Month: time.June, Day: day},
		Source:      domain.SourceSMS,
		RawText:     "raw",
		Confidence:  0.9,
		Path:        domain.PathDeterministic,
		Provider:    "hdfc",
		AccountTail: "1234",
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finsense.db")

	db, err := OpenAndMigrate(path)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	require.NoError(t, db.Close())

	db, err = OpenAndMigrate(path)
	require.NoError(t, err)
	db.Close()
}

func TestTransactions_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.SaveTransaction(ctx, "u1", candidate("850.50", 19))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.GetTransaction(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.True(t, decimal.RequireFromString("850.50").Equal(got.Amount))
	assert.Equal(t, civil.Date{Year: 2025, Month: time.June, Day: 19}, got.OccurredOn)
	assert.Equal(t, domain.DirectionDebit, got.Direction)
	assert.Equal(t, domain.PathDeterministic, got.Path)
	assert.Equal(t, "1234", got.AccountTail)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSaveTransaction_DefaultsCategory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c := candidate("10", 1)
	c.Category = ""
	id, err := s.SaveTransaction(ctx, "u1", c)
	require.NoError(t, err)

	got, err := s.GetTransaction(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCategory, got.Category)
}

func TestGetTransactions_RecentFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, day := range []int{3, 19, 7} {
		_, err := s.SaveTransaction(ctx, "u1", candidate("1", day))
		require.NoError(t, err)
	}
	_, err := s.SaveTransaction(ctx, "u2", candidate("1", 30))
	require.NoError(t, err)

	all, err := s.GetTransactions(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 19, all[0].OccurredOn.Day)
	assert.Equal(t, 7, all[1].OccurredOn.Day)
	assert.Equal(t, 3, all[2].OccurredOn.Day)

	limited, err := s.GetTransactions(ctx, "u1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestDeleteTransaction(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.SaveTransaction(ctx, "u1", candidate("1", 1))
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteTransaction(ctx, "u2", id), domain.ErrNotFound)
	require.NoError(t, s.DeleteTransaction(ctx, "u1", id))
	assert.ErrorIs(t, s.DeleteTransaction(ctx, "u1", id), domain.ErrNotFound)

	_, err = s.GetTransaction(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInsights_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	item := domain.InsightItem{
		ID:          "i1",
		Kind:        domain.InsightBudgetAlert,
		Title:       "Shopping spike",
		Description: "d",
		Category:    "Shopping",
		Priority:    1,
		Confidence:  0.8,
		CreatedAt:   time.Date(2025, time.June, 20, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveInsight(ctx, "u1", item))

	got, err := s.ListInsights(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, item.CreatedAt.Equal(got[0].CreatedAt))
	got[0].CreatedAt = item.CreatedAt
	assert.Equal(t, item, got[0])
}

func TestRecommendations_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	withSavings := domain.RecommendationItem{
		ID:               "r1",
		Kind:             domain.RecommendationFood,
		Title:            "Cook more",
		Category:         "Food & Dining",
		Priority:         2,
		PotentialSavings: decimal.NewNullDecimal(decimal.RequireFromString("500.00")),
		ActionItems:      []string{"Plan meals"},
		CreatedAt:        time.Date(2025, time.June, 20, 9, 0, 0, 0, time.UTC),
	}
	without := domain.RecommendationItem{
		ID:        "r2",
		Kind:      domain.RecommendationSavings,
		Title:     "Automate savings",
		Priority:  1,
		CreatedAt: time.Date(2025, time.June, 21, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveRecommendation(ctx, "u1", withSavings))
	require.NoError(t, s.SaveRecommendation(ctx, "u1", without))

	got, err := s.ListRecommendations(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "r2", got[0].ID)
	assert.False(t, got[0].PotentialSavings.Valid)
	assert.Empty(t, got[0].ActionItems)

	assert.Equal(t, "r1", got[1].ID)
	require.True(t, got[1].PotentialSavings.Valid)
	assert.Equal(t, "500.00", got[1].PotentialSavings.Decimal.StringFixed(2))
	assert.Equal(t, []string{"Plan meals"}, got[1].ActionItems)
}

func TestProfile_Upsert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetProfile(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	p := domain.Profile{
		UserID:         "u1",
		MonthlyIncome:  decimal.NewNullDecimal(decimal.NewFromInt(80000)),
		Age:            29,
		FinancialGoals: []string{"Emergency fund"},
		RiskTolerance:  "moderate",
	}
	require.NoError(t, s.SaveProfile(ctx, p))

	p.Age = 30
	require.NoError(t, s.SaveProfile(ctx, p))

	got, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 30, got.Age)
	assert.Equal(t, []string{"Emergency fund"}, got.FinancialGoals)
	assert.True(t, got.MonthlyIncome.Valid)
	assert.Equal(t, "80000", got.MonthlyIncome.Decimal.String())
	assert.False(t, got.SavingsTarget.Valid)
}

func TestRecordOutput(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec := llm.NewRecorder(llm.GeneratorFunc(func(ctx context.Context, system, user string, temperature float64) (string, error) {
		return "[]", nil
	}), s, "test-model")

	_, err := rec.Generate(ctx, "sys", "user", 0.1)
	require.NoError(t, err)

	n, err := s.CountOutputs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
