package advisor

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finsense/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	spendingTopCategories = 5
	detailedTopCategories = 3
	detailedRecent        = 5
	noProfile             = "No profile data available"
)

// CategoryTotal is the debit total of one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// SpendingSummary aggregates debit spend for insight generation.
type SpendingSummary struct {
	DebitCount      int                        `json:"total_transactions"`
	TotalSpending   decimal.Decimal            `json:"total_spending"`
	MonthlySpending decimal.Decimal            `json:"monthly_spending"`
	Categories      map[string]decimal.Decimal `json:"categories"`
	TopCategories   []CategoryTotal            `json:"top_categories"`
}

// RecentTransaction is the prompt view of one transaction.
type RecentTransaction struct {
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Amount      decimal.Decimal  `json:"amount"`
	Direction   domain.Direction `json:"type"`
	OccurredOn  civil.Date       `json:"date"`
}

// DetailedSummary aggregates recent activity for recommendation generation.
type DetailedSummary struct {
	TransactionCount  int                 `json:"total_transactions"`
	DebitCount        int                 `json:"debit_transactions"`
	CreditCount       int                 `json:"credit_transactions"`
	TotalSpent        decimal.Decimal     `json:"total_spent"`
	TopCategories     []CategoryTotal     `json:"top_categories"`
	Recent            []RecentTransaction `json:"recent_transactions"`
	AverageDailySpend decimal.Decimal     `json:"average_daily_spend"`
}

// SummarizeSpending totals debits per category. Monthly spending scales the total
// down when there are more than 30 debits.
func SummarizeSpending(txs []domain.StoredTransaction) SpendingSummary {
	s := SpendingSummary{Categories: map[string]decimal.Decimal{}}

	for _, tx := range txs {
		if tx.Direction != domain.DirectionDebit {
			continue
		}
		cat := categoryOf(tx)
		s.Categories[cat] = s.Categories[cat].Add(tx.Amount)
		s.TotalSpending = s.TotalSpending.Add(tx.Amount)
		s.DebitCount++
	}

	s.MonthlySpending = s.TotalSpending
	if s.DebitCount > 30 {
		months := decimal.NewFromInt(int64(s.DebitCount)).Div(decimal.NewFromInt(30))
		s.MonthlySpending = s.TotalSpending.Div(months).Round(2)
	}

	s.TopCategories = topCategories(s.Categories, spendingTopCategories)
	return s
}

// SummarizeDetailed counts debits and credits and lists the top categories and the
// most recent transactions. txs is expected most recent first.
func SummarizeDetailed(txs []domain.StoredTransaction) DetailedSummary {
	s := DetailedSummary{TransactionCount: len(txs)}
	byCategory := map[string]decimal.Decimal{}

	var first, last civil.Date
	for i, tx := range txs {
		switch tx.Direction {
		case domain.DirectionDebit:
			s.DebitCount++
			s.TotalSpent = s.TotalSpent.Add(tx.Amount)
			cat := categoryOf(tx)
			byCategory[cat] = byCategory[cat].Add(tx.Amount)
		case domain.DirectionCredit:
			s.CreditCount++
		}

		if i < detailedRecent {
			s.Recent = append(s.Recent, RecentTransaction{
				Description: tx.Description,
				Category:    categoryOf(tx),
				Amount:      tx.Amount,
				Direction:   tx.Direction,
				OccurredOn:  tx.OccurredOn,
			})
		}

		if first.IsZero() || tx.OccurredOn.Before(first) {
			first = tx.OccurredOn
		}
		if last.IsZero() || tx.OccurredOn.After(last) {
			last = tx.OccurredOn
		}
	}

	s.TopCategories = topCategories(byCategory, detailedTopCategories)
	if s.DebitCount > 0 {
		days := last.DaysSince(first) + 1
		s.AverageDailySpend = s.TotalSpent.Div(decimal.NewFromInt(int64(days))).Round(2)
	}
	return s
}

// SummarizeProfile renders the filled-in profile fields joined with "; ".
func SummarizeProfile(p *domain.Profile) string {
	if p == nil {
		return noProfile
	}

	var parts []string
	if p.MonthlyIncome.Valid {
		parts = append(parts, "Monthly Income: "+p.MonthlyIncome.Decimal.StringFixed(2))
	}
	if p.Age > 0 {
		parts = append(parts, fmt.Sprintf("Age: %d", p.Age))
	}
	if p.Occupation != "" {
		parts = append(parts, "Occupation: "+p.Occupation)
	}
	if len(p.FinancialGoals) > 0 {
		parts = append(parts, "Financial Goals: "+strings.Join(p.FinancialGoals, ", "))
	}
	if p.RiskTolerance != "" {
		parts = append(parts, "Risk Tolerance: "+p.RiskTolerance)
	}
	if p.InvestmentExperience != "" {
		parts = append(parts, "Investment Experience: "+p.InvestmentExperience)
	}
	if p.SavingsTarget.Valid {
		parts = append(parts, "Savings Target: "+p.SavingsTarget.Decimal.StringFixed(2))
	}

	if len(parts) == 0 {
		return noProfile
	}
	return strings.Join(parts, "; ")
}

func categoryOf(tx domain.StoredTransaction) string {
	if tx.Category == "" {
		return domain.DefaultCategory
	}
	return tx.Category
}

// topCategories orders by amount descending, then name, and keeps n.
func topCategories(totals map[string]decimal.Decimal, n int) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(totals))
	for cat, amt := range totals {
		out = append(out, CategoryTotal{Category: cat, Amount: amt})
	}
	slices.SortFunc(out, func(a, b CategoryTotal) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return out[:min(n, len(out))]
}
