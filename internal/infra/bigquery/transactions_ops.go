package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finsense/internal/domain"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

const transactionColumns = `
	transaction_id, user_id, transaction_date, direction, amount,
	description, category_name, subcategory_name, merchant,
	source, raw_text, confidence, extraction_path, provider, account_tail, created_ts`

// SaveTransaction inserts one transaction with DML so it can be deleted right away;
// streamed rows stay undeletable while in the streaming buffer.
func (s *Store) SaveTransaction(ctx context.Context, userID string, c domain.TransactionCandidate) (string, error) {
	row := newTransactionRow(uuid.NewString(), userID, c, s.now())

	_, err := s.exec(ctx, `
		INSERT INTO `+s.table(transactionsTable)+` (`+transactionColumns+`)
		VALUES (
			@transaction_id, @user_id, @transaction_date, @direction, @amount,
			@description, @category_name, @subcategory_name, @merchant,
			@source, @raw_text, @confidence, @extraction_path, @provider, @account_tail, @created_ts
		)`,
		bigquery.QueryParameter{Name: "transaction_id", Value: row.TransactionID},
		bigquery.QueryParameter{Name: "user_id", Value: row.UserID},
		bigquery.QueryParameter{Name: "transaction_date", Value: row.TransactionDate},
		bigquery.QueryParameter{Name: "direction", Value: row.Direction},
		bigquery.QueryParameter{Name: "amount", Value: row.Amount},
		bigquery.QueryParameter{Name: "description", Value: row.Description},
		bigquery.QueryParameter{Name: "category_name", Value: row.CategoryName},
		bigquery.QueryParameter{Name: "subcategory_name", Value: row.SubcategoryName},
		bigquery.QueryParameter{Name: "merchant", Value: row.Merchant},
		bigquery.QueryParameter{Name: "source", Value: row.Source},
		bigquery.QueryParameter{Name: "raw_text", Value: row.RawText},
		bigquery.QueryParameter{Name: "confidence", Value: row.Confidence},
		bigquery.QueryParameter{Name: "extraction_path", Value: row.ExtractionPath},
		bigquery.QueryParameter{Name: "provider", Value: row.Provider},
		bigquery.QueryParameter{Name: "account_tail", Value: row.AccountTail},
		bigquery.QueryParameter{Name: "created_ts", Value: row.CreatedTS},
	)
	if err != nil {
		return "", fmt.Errorf("SaveTransaction: %w", err)
	}
	return row.TransactionID, nil
}

// GetTransactions returns the user's transactions, most recent first. A
// non-positive limit returns all of them.
func (s *Store) GetTransactions(ctx context.Context, userID string, limit int) ([]domain.StoredTransaction, error) {
	sql := `
		SELECT ` + transactionColumns + `
		FROM ` + s.table(transactionsTable) + `
		WHERE user_id = @user_id
		ORDER BY transaction_date DESC, created_ts DESC`
	params := []bigquery.QueryParameter{{Name: "user_id", Value: userID}}
	if limit > 0 {
		sql += "\n\t\tLIMIT @limit"
		params = append(params, bigquery.QueryParameter{Name: "limit", Value: limit})
	}

	q := s.client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetTransactions: query read: %w", err)
	}

	var out []domain.StoredTransaction
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("GetTransactions: iter next: %w", err)
		}
		tx, err := r.Stored()
		if err != nil {
			return nil, fmt.Errorf("GetTransactions: %w", err)
		}
		out = append(out, tx)
	}
	return out, nil
}

// DeleteTransaction removes one of the user's transactions or returns
// domain.ErrNotFound.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	status, err := s.exec(ctx, `
		DELETE FROM `+s.table(transactionsTable)+`
		WHERE transaction_id = @transaction_id AND user_id = @user_id`,
		bigquery.QueryParameter{Name: "transaction_id", Value: id},
		bigquery.QueryParameter{Name: "user_id", Value: userID},
	)
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	if affectedRows(status) == 0 {
		return domain.ErrNotFound
	}
	return nil
}
