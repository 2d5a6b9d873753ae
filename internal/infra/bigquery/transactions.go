package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/finsense/internal/domain"
	"github.com/shopspring/decimal"
)

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	Direction       string     `bigquery:"direction"`        // REQUIRED
	Amount          *big.Rat   `bigquery:"amount"`           // REQUIRED NUMERIC

	Description     string              `bigquery:"description"`      // REQUIRED
	CategoryName    string              `bigquery:"category_name"`    // REQUIRED
	SubcategoryName bigquery.NullString `bigquery:"subcategory_name"` // NULLABLE
	Merchant        bigquery.NullString `bigquery:"merchant"`         // NULLABLE

	Source     string  `bigquery:"source"`     // REQUIRED
	RawText    string  `bigquery:"raw_text"`   // REQUIRED
	Confidence float64 `bigquery:"confidence"` // REQUIRED

	ExtractionPath string              `bigquery:"extraction_path"` // REQUIRED
	Provider       bigquery.NullString `bigquery:"provider"`        // NULLABLE
	AccountTail    bigquery.NullString `bigquery:"account_tail"`    // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

// ratToDecimal converts a NUMERIC value. NUMERIC carries nine fractional digits.
func ratToDecimal(r *big.Rat) (decimal.Decimal, error) {
	if r == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(r.FloatString(9))
}

// newTransactionRow maps a candidate onto a row. Missing categories become the default.
func newTransactionRow(id, userID string, c domain.TransactionCandidate, created time.Time) *TransactionRow {
	category := c.Category
	if category == "" {
		category = domain.DefaultCategory
	}
	return &TransactionRow{
		TransactionID:   id,
		UserID:          userID,
		TransactionDate: c.OccurredOn,
		Direction:       string(c.Direction),
		Amount:          c.Amount.Rat(),
		Description:     c.Description,
		CategoryName:    category,
		SubcategoryName: nullString(c.Subcategory),
		Merchant:        nullString(c.Merchant),
		Source:          string(c.Source),
		RawText:         c.RawText,
		Confidence:      c.Confidence,
		ExtractionPath:  string(c.Path),
		Provider:        nullString(c.Provider),
		AccountTail:     nullString(c.AccountTail),
		CreatedTS:       created.UTC(),
	}
}

// Stored maps a row back into the domain type.
func (r *TransactionRow) Stored() (domain.StoredTransaction, error) {
	amount, err := ratToDecimal(r.Amount)
	if err != nil {
		return domain.StoredTransaction{}, fmt.Errorf("transaction %s: amount: %w", r.TransactionID, err)
	}
	return domain.StoredTransaction{
		ID:        r.TransactionID,
		UserID:    r.UserID,
		CreatedAt: r.CreatedTS,
		TransactionCandidate: domain.TransactionCandidate{
			Direction:   domain.Direction(r.Direction),
			Amount:      amount,
			Description: r.Description,
			Category:    r.CategoryName,
			Subcategory: r.SubcategoryName.StringVal,
			Merchant:    r.Merchant.StringVal,
			OccurredOn:  r.TransactionDate,
			Source:      domain.Source(r.Source),
			RawText:     r.RawText,
			Confidence:  r.Confidence,
			Path:        domain.ExtractionPath(r.ExtractionPath),
			Provider:    r.Provider.StringVal,
			AccountTail: r.AccountTail.StringVal,
		},
	}, nil
}
