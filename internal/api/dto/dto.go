// Package dto holds the JSON shapes shared by the HTTP API and the CLI.
package dto

import (
	"errors"
	"time"

	"github.com/dvloznov/finsense/internal/domain"
	"github.com/dvloznov/finsense/internal/pipeline"
	"github.com/shopspring/decimal"
)

// Transaction is a candidate or stored transaction. Amount is a fixed
// two-decimal string.
type Transaction struct {
	ID          string  `json:"id,omitempty"`
	Date        string  `json:"date"`
	Direction   string  `json:"direction"`
	Amount      string  `json:"amount"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory,omitempty"`
	Merchant    string  `json:"merchant,omitempty"`
	Source      string  `json:"source"`
	Confidence  float64 `json:"confidence"`
	Path        string  `json:"extraction_path"`
	Provider    string  `json:"provider,omitempty"`
	AccountTail string  `json:"account_tail,omitempty"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

func NewTransaction(c domain.TransactionCandidate) Transaction {
	return Transaction{
		Date:        c.OccurredOn.String(),
		Direction:   string(c.Direction),
		Amount:      c.Amount.StringFixed(2),
		Description: c.Description,
		Category:    c.Category,
		Subcategory: c.Subcategory,
		Merchant:    c.Merchant,
		Source:      string(c.Source),
		Confidence:  c.Confidence,
		Path:        string(c.Path),
		Provider:    c.Provider,
		AccountTail: c.AccountTail,
	}
}

func NewStoredTransaction(tx domain.StoredTransaction) Transaction {
	v := NewTransaction(tx.TransactionCandidate)
	v.ID = tx.ID
	v.CreatedAt = tx.CreatedAt.UTC().Format(time.RFC3339)
	return v
}

// NewStoredTransactions never returns nil so empty lists encode as [].
func NewStoredTransactions(txs []domain.StoredTransaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, NewStoredTransaction(tx))
	}
	return out
}

// ExtractionResult reports one pass through the extraction state machine.
type ExtractionResult struct {
	State       string       `json:"state"`
	Path        string       `json:"path,omitempty"`
	Reason      string       `json:"reason,omitempty"`
	Stage       string       `json:"decode_stage,omitempty"`
	Trail       []string     `json:"trail"`
	Transaction *Transaction `json:"transaction,omitempty"`
	SavedID     string       `json:"saved_id,omitempty"`
}

func NewExtractionResult(res pipeline.Result) ExtractionResult {
	v := ExtractionResult{
		State:  string(res.State),
		Path:   string(res.Path),
		Reason: string(res.Reason),
		Stage:  string(res.Stage),
		Trail:  make([]string, 0, len(res.Trail)),
	}
	for _, s := range res.Trail {
		v.Trail = append(v.Trail, string(s))
	}
	if res.OK() {
		tx := NewTransaction(*res.Candidate)
		v.Transaction = &tx
	}
	return v
}

// Message is the request shape for a single extraction.
type Message struct {
	Text       string            `json:"text"`
	Source     string            `json:"source,omitempty"`
	Sender     string            `json:"sender,omitempty"`
	Subject    string            `json:"subject,omitempty"`
	ReceivedAt *time.Time        `json:"received_at,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Save       bool              `json:"save,omitempty"`
}

// RawMessage validates the source and converts m.
func (m Message) RawMessage() (domain.RawMessage, error) {
	src, err := domain.ParseSource(m.Source)
	if err != nil {
		return domain.RawMessage{}, err
	}
	return domain.RawMessage{
		Text:       m.Text,
		Source:     src,
		Sender:     m.Sender,
		Subject:    m.Subject,
		ReceivedAt: m.ReceivedAt,
		Metadata:   m.Metadata,
	}, nil
}

type Insight struct {
	ID          string  `json:"id,omitempty"`
	Kind        string  `json:"type"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category,omitempty"`
	Priority    int     `json:"priority"`
	Confidence  float64 `json:"confidence"`
}

func NewInsights(items []domain.InsightItem) []Insight {
	out := make([]Insight, 0, len(items))
	for _, it := range items {
		out = append(out, Insight{
			ID:          it.ID,
			Kind:        string(it.Kind),
			Title:       it.Title,
			Description: it.Description,
			Category:    it.Category,
			Priority:    it.Priority,
			Confidence:  it.Confidence,
		})
	}
	return out
}

type Recommendation struct {
	ID               string   `json:"id,omitempty"`
	Kind             string   `json:"type"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Category         string   `json:"category,omitempty"`
	Priority         int      `json:"priority"`
	PotentialSavings string   `json:"potential_savings,omitempty"`
	ActionItems      []string `json:"action_items,omitempty"`
}

func NewRecommendation(it domain.RecommendationItem) Recommendation {
	v := Recommendation{
		ID:          it.ID,
		Kind:        string(it.Kind),
		Title:       it.Title,
		Description: it.Description,
		Category:    it.Category,
		Priority:    it.Priority,
		ActionItems: it.ActionItems,
	}
	if it.PotentialSavings.Valid {
		v.PotentialSavings = it.PotentialSavings.Decimal.StringFixed(2)
	}
	return v
}

func NewRecommendations(items []domain.RecommendationItem) []Recommendation {
	out := make([]Recommendation, 0, len(items))
	for _, it := range items {
		out = append(out, NewRecommendation(it))
	}
	return out
}

// Profile is the questionnaire a user fills in. Amounts accept JSON numbers,
// numeric strings or null.
type Profile struct {
	MonthlyIncome        decimal.NullDecimal `json:"monthly_income"`
	Age                  int                 `json:"age,omitempty"`
	Occupation           string              `json:"occupation,omitempty"`
	FinancialGoals       []string            `json:"financial_goals,omitempty"`
	RiskTolerance        string              `json:"risk_tolerance,omitempty"`
	InvestmentExperience string              `json:"investment_experience,omitempty"`
	SavingsTarget        decimal.NullDecimal `json:"savings_target"`
}

func NewProfile(p domain.Profile) Profile {
	return Profile{
		MonthlyIncome:        p.MonthlyIncome,
		Age:                  p.Age,
		Occupation:           p.Occupation,
		FinancialGoals:       p.FinancialGoals,
		RiskTolerance:        p.RiskTolerance,
		InvestmentExperience: p.InvestmentExperience,
		SavingsTarget:        p.SavingsTarget,
	}
}

// Domain validates p and returns it as the profile of userID.
func (p Profile) Domain(userID string) (domain.Profile, error) {
	if p.Age < 0 || p.Age > 150 {
		return domain.Profile{}, errors.New("age must be between 0 and 150")
	}
	if p.MonthlyIncome.Valid && p.MonthlyIncome.Decimal.IsNegative() {
		return domain.Profile{}, errors.New("monthly_income must not be negative")
	}
	if p.SavingsTarget.Valid && p.SavingsTarget.Decimal.IsNegative() {
		return domain.Profile{}, errors.New("savings_target must not be negative")
	}
	return domain.Profile{
		UserID:               userID,
		MonthlyIncome:        p.MonthlyIncome,
		Age:                  p.Age,
		Occupation:           p.Occupation,
		FinancialGoals:       p.FinancialGoals,
		RiskTolerance:        p.RiskTolerance,
		InvestmentExperience: p.InvestmentExperience,
		SavingsTarget:        p.SavingsTarget,
	}, nil
}

