package domain

import "github.com/shopspring/decimal"

// Profile holds the questionnaire answers used to personalise insights.
type Profile struct {
	UserID               string
	MonthlyIncome        decimal.NullDecimal
	Age                  int
	Occupation           string
	FinancialGoals       []string
	RiskTolerance        string
	InvestmentExperience string
	SavingsTarget        decimal.NullDecimal
}
