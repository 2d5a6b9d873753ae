package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InsightKind is the closed set of insight types.
type InsightKind string

const (
	InsightSpendingPattern      InsightKind = "spending_pattern"
	InsightBudgetAlert          InsightKind = "budget_alert"
	InsightSavingsOpportunity   InsightKind = "savings_opportunity"
	InsightInvestmentSuggestion InsightKind = "investment_suggestion"
	InsightDebtManagement       InsightKind = "debt_management"
)

var insightKinds = []InsightKind{
	InsightSpendingPattern,
	InsightBudgetAlert,
	InsightSavingsOpportunity,
	InsightInvestmentSuggestion,
	InsightDebtManagement,
}

// ParseInsightKind maps s onto the closed set, defaulting to spending_pattern.
func ParseInsightKind(s string) InsightKind {
	norm := normalizeKind(s)
	for _, k := range insightKinds {
		if string(k) == norm {
			return k
		}
	}
	return InsightSpendingPattern
}

// RecommendationKind is the closed set of recommendation types.
type RecommendationKind string

const (
	RecommendationSavings        RecommendationKind = "savings"
	RecommendationBudgeting      RecommendationKind = "budgeting"
	RecommendationFood           RecommendationKind = "food"
	RecommendationTransportation RecommendationKind = "transportation"
	RecommendationEntertainment  RecommendationKind = "entertainment"
	RecommendationInvestment     RecommendationKind = "investment"
)

var recommendationKinds = []RecommendationKind{
	RecommendationSavings,
	RecommendationBudgeting,
	RecommendationFood,
	RecommendationTransportation,
	RecommendationEntertainment,
	RecommendationInvestment,
}

// ParseRecommendationKind maps s onto the closed set, defaulting to budgeting.
func ParseRecommendationKind(s string) RecommendationKind {
	norm := normalizeKind(s)
	for _, k := range recommendationKinds {
		if string(k) == norm {
			return k
		}
	}
	return RecommendationBudgeting
}

func normalizeKind(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// InsightItem is one validated observation about a user's spending.
// Priority 1 ranks highest.
type InsightItem struct {
	ID          string
	Kind        InsightKind
	Title       string
	Description string
	Category    string
	Priority    int
	Confidence  float64
	CreatedAt   time.Time
}

// RecommendationItem is one validated piece of advice. Priority 1 ranks highest.
type RecommendationItem struct {
	ID               string
	Kind             RecommendationKind
	Title            string
	Description      string
	Category         string
	Priority         int
	PotentialSavings decimal.NullDecimal
	ActionItems      []string
	CreatedAt        time.Time
}
