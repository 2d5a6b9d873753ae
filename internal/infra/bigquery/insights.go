package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finsense/internal/domain"
)

type InsightRow struct {
	InsightID   string    `bigquery:"insight_id"`   // REQUIRED
	UserID      string    `bigquery:"user_id"`      // REQUIRED
	InsightType string    `bigquery:"insight_type"` // REQUIRED
	Title       string    `bigquery:"title"`        // REQUIRED
	Description string    `bigquery:"description"`  // REQUIRED
	Category    string    `bigquery:"category"`     // REQUIRED
	Priority    int64     `bigquery:"priority"`     // REQUIRED
	Confidence  float64   `bigquery:"confidence"`   // REQUIRED
	CreatedTS   time.Time `bigquery:"created_ts"`   // REQUIRED
}

type RecommendationRow struct {
	RecommendationID   string `bigquery:"recommendation_id"`   // REQUIRED
	UserID             string `bigquery:"user_id"`             // REQUIRED
	RecommendationType string `bigquery:"recommendation_type"` // REQUIRED
	Title              string `bigquery:"title"`               // REQUIRED
	Description        string `bigquery:"description"`         // REQUIRED
	Category           string `bigquery:"category"`            // REQUIRED
	Priority           int64  `bigquery:"priority"`            // REQUIRED

	PotentialSavings *big.Rat `bigquery:"potential_savings"` // NULLABLE NUMERIC
	ActionItems      []string `bigquery:"action_items"`      // REPEATED STRING
	Status           string   `bigquery:"status"`            // REQUIRED

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

type ProfileRow struct {
	UserID               string              `bigquery:"user_id"`               // REQUIRED
	MonthlyIncome        *big.Rat            `bigquery:"monthly_income"`        // NULLABLE NUMERIC
	Age                  bigquery.NullInt64  `bigquery:"age"`                   // NULLABLE
	Occupation           bigquery.NullString `bigquery:"occupation"`            // NULLABLE
	FinancialGoals       []string            `bigquery:"financial_goals"`       // REPEATED STRING
	RiskTolerance        bigquery.NullString `bigquery:"risk_tolerance"`        // NULLABLE
	InvestmentExperience bigquery.NullString `bigquery:"investment_experience"` // NULLABLE
	SavingsTarget        *big.Rat            `bigquery:"savings_target"`        // NULLABLE NUMERIC
}

func newInsightRow(userID string, item domain.InsightItem, created time.Time) *InsightRow {
	if !item.CreatedAt.IsZero() {
		created = item.CreatedAt
	}
	return &InsightRow{
		InsightID:   item.ID,
		UserID:      userID,
		InsightType: string(item.Kind),
		Title:       item.Title,
		Description: item.Description,
		Category:    item.Category,
		Priority:    int64(item.Priority),
		Confidence:  item.Confidence,
		CreatedTS:   created.UTC(),
	}
}

func newRecommendationRow(userID string, item domain.RecommendationItem, created time.Time) *RecommendationRow {
	if !item.CreatedAt.IsZero() {
		created = item.CreatedAt
	}
	row := &RecommendationRow{
		RecommendationID:   item.ID,
		UserID:             userID,
		RecommendationType: string(item.Kind),
		Title:              item.Title,
		Description:        item.Description,
		Category:           item.Category,
		Priority:           int64(item.Priority),
		ActionItems:        item.ActionItems,
		Status:             "active",
		CreatedTS:          created.UTC(),
	}
	if item.PotentialSavings.Valid {
		row.PotentialSavings = item.PotentialSavings.Decimal.Rat()
	}
	return row
}

// Profile maps a row back into the domain type.
func (r *ProfileRow) Profile() (domain.Profile, error) {
	p := domain.Profile{
		UserID:               r.UserID,
		Age:                  int(r.Age.Int64),
		Occupation:           r.Occupation.StringVal,
		FinancialGoals:       r.FinancialGoals,
		RiskTolerance:        r.RiskTolerance.StringVal,
		InvestmentExperience: r.InvestmentExperience.StringVal,
	}
	if r.MonthlyIncome != nil {
		d, err := ratToDecimal(r.MonthlyIncome)
		if err != nil {
			return domain.Profile{}, err
		}
		p.MonthlyIncome.Decimal, p.MonthlyIncome.Valid = d, true
	}
	if r.SavingsTarget != nil {
		d, err := ratToDecimal(r.SavingsTarget)
		if err != nil {
			return domain.Profile{}, err
		}
		p.SavingsTarget.Decimal, p.SavingsTarget.Valid = d, true
	}
	return p, nil
}
