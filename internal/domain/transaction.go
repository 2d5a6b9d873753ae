package domain

import (
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by storage adapters when a record does not exist.
var ErrNotFound = errors.New("not found")

// DefaultCategory is assigned when no classification rule applies.
const DefaultCategory = "Others"

// Direction is the money flow of a transaction relative to the account holder.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// ParseDirection maps common spellings onto a Direction.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debit", "debited", "dr", "withdrawal", "expense", "out":
		return DirectionDebit, true
	case "credit", "credited", "cr", "deposit", "income", "in":
		return DirectionCredit, true
	}
	return "", false
}

// ExtractionPath records which extractor produced a candidate.
type ExtractionPath string

const (
	PathDeterministic ExtractionPath = "deterministic"
	PathProbabilistic ExtractionPath = "probabilistic"
)

// TransactionCandidate is a provisionally extracted transaction that has not been persisted yet.
// Values are passed by copy and never mutated after the orchestrator returns them.
type TransactionCandidate struct {
	Direction   Direction
	Amount      decimal.Decimal // always >= 0
	Description string
	Category    string
	Subcategory string
	Merchant    string
	OccurredOn  civil.Date
	Source      Source
	RawText     string
	Confidence  float64

	// Provenance
	Path        ExtractionPath
	Provider    string // rule provider tag, deterministic path only
	AccountTail string // last four account or card digits when captured
}

// StoredTransaction is a candidate after the storage collaborator accepted it.
type StoredTransaction struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	TransactionCandidate
}

// ClampConfidence bounds a confidence score to [0, 1].
func ClampConfidence(c float64) float64 {
	switch {
	case c != c: // NaN
		return 0
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

var (
	debitKeywords  = []string{"debited", "debit", "withdrawn", "paid", "spent", "purchase", "charged", "deducted"}
	creditKeywords = []string{"credited", "credit", "received", "deposited", "refund", "cashback", "salary"}
)

// InferDirection guesses the direction from message wording. Debit wording wins
// over credit wording and debit is the default.
func InferDirection(text string) Direction {
	lower := strings.ToLower(text)
	for _, kw := range debitKeywords {
		if strings.Contains(lower, kw) {
			return DirectionDebit
		}
	}
	for _, kw := range creditKeywords {
		if strings.Contains(lower, kw) {
			return DirectionCredit
		}
	}
	return DirectionDebit
}
