package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finsense/internal/domain"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
)

// SaveInsight streams one insight into the insights table.
func (s *Store) SaveInsight(ctx context.Context, userID string, item domain.InsightItem) error {
	row := newInsightRow(userID, item, s.now())
	inserter := s.client.DatasetInProject(s.project, s.dataset).Table(insightsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("SaveInsight: inserting row: %w", err)
	}
	return nil
}

// SaveRecommendation streams one recommendation with status active.
func (s *Store) SaveRecommendation(ctx context.Context, userID string, item domain.RecommendationItem) error {
	row := newRecommendationRow(userID, item, s.now())
	inserter := s.client.DatasetInProject(s.project, s.dataset).Table(recommendationsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("SaveRecommendation: inserting row: %w", err)
	}
	return nil
}

// GetProfile returns the user's profile or domain.ErrNotFound.
func (s *Store) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	q := s.client.Query(`
		SELECT
			user_id, monthly_income, age, occupation, financial_goals,
			risk_tolerance, investment_experience, savings_target
		FROM ` + s.table(profilesTable) + `
		WHERE user_id = @user_id
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{{Name: "user_id", Value: userID}}

	it, err := q.Read(ctx)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("GetProfile: query read: %w", err)
	}

	var row ProfileRow
	err = it.Next(&row)
	if err == iterator.Done {
		return domain.Profile{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("GetProfile: iter next: %w", err)
	}

	p, err := row.Profile()
	if err != nil {
		return domain.Profile{}, fmt.Errorf("GetProfile: %w", err)
	}
	return p, nil
}

// SaveProfile upserts the user's profile. Amounts travel as strings and are cast
// in SQL so that a missing amount becomes NULL.
func (s *Store) SaveProfile(ctx context.Context, p domain.Profile) error {
	_, err := s.exec(ctx, `
		MERGE `+s.table(profilesTable)+` AS t
		USING (SELECT @user_id AS user_id) AS src
		ON t.user_id = src.user_id
		WHEN MATCHED THEN UPDATE SET
			monthly_income = CAST(@monthly_income AS NUMERIC),
			age = @age,
			occupation = @occupation,
			financial_goals = @financial_goals,
			risk_tolerance = @risk_tolerance,
			investment_experience = @investment_experience,
			savings_target = CAST(@savings_target AS NUMERIC)
		WHEN NOT MATCHED THEN INSERT (
			user_id, monthly_income, age, occupation, financial_goals,
			risk_tolerance, investment_experience, savings_target
		) VALUES (
			@user_id, CAST(@monthly_income AS NUMERIC), @age, @occupation, @financial_goals,
			@risk_tolerance, @investment_experience, CAST(@savings_target AS NUMERIC)
		)`,
		bigquery.QueryParameter{Name: "user_id", Value: p.UserID},
		bigquery.QueryParameter{Name: "monthly_income", Value: nullDecimalString(p.MonthlyIncome)},
		bigquery.QueryParameter{Name: "age", Value: bigquery.NullInt64{Int64: int64(p.Age), Valid: p.Age > 0}},
		bigquery.QueryParameter{Name: "occupation", Value: nullString(p.Occupation)},
		bigquery.QueryParameter{Name: "financial_goals", Value: nonNilStrings(p.FinancialGoals)},
		bigquery.QueryParameter{Name: "risk_tolerance", Value: nullString(p.RiskTolerance)},
		bigquery.QueryParameter{Name: "investment_experience", Value: nullString(p.InvestmentExperience)},
		bigquery.QueryParameter{Name: "savings_target", Value: nullDecimalString(p.SavingsTarget)},
	)
	if err != nil {
		return fmt.Errorf("SaveProfile: %w", err)
	}
	return nil
}

func nullDecimalString(d decimal.NullDecimal) bigquery.NullString {
	if !d.Valid {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: d.Decimal.String(), Valid: true}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
