package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finsense/internal/domain"
	"github.com/google/uuid"
)

// Store implements transaction, insight, recommendation and profile storage.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore wraps an open, migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

const transactionColumns = `id, user_id, direction, amount, description, category, subcategory, merchant,
	occurred_on, source, raw_text, confidence, path, provider, account_tail, created_at`

// SaveTransaction inserts c and returns its new id.
func (s *Store) SaveTransaction(ctx context.Context, userID string, c domain.TransactionCandidate) (string, error) {
	id := uuid.NewString()
	category := c.Category
	if category == "" {
		category = domain.DefaultCategory
	}

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO transactions(`+transactionColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, string(c.Direction), c.Amount.String(), c.Description, category, c.Subcategory, c.Merchant,
		c.OccurredOn.String(), string(c.Source), c.RawText, c.Confidence, string(c.Path), c.Provider, c.AccountTail,
		formatTime(s.now()),
	)
	if err != nil {
		return "", fmt.Errorf("SaveTransaction: %w", err)
	}
	return id, nil
}

// GetTransactions returns up to limit transactions, most recent first. A
// non-positive limit returns all of them.
func (s *Store) GetTransactions(ctx context.Context, userID string, limit int) ([]domain.StoredTransaction, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT `+transactionColumns+`
	FROM transactions
	WHERE user_id = ?
	ORDER BY occurred_on DESC, created_at DESC, rowid DESC
	LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("GetTransactions: %w", err)
	}
	defer rows.Close()

	var out []domain.StoredTransaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("GetTransactions: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetTransactions: %w", err)
	}
	return out, nil
}

// GetTransaction returns one transaction or domain.ErrNotFound.
func (s *Store) GetTransaction(ctx context.Context, id string) (domain.StoredTransaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StoredTransaction{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.StoredTransaction{}, fmt.Errorf("GetTransaction: %w", err)
	}
	return tx, nil
}

// DeleteTransaction removes one of the user's transactions or returns
// domain.ErrNotFound.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteTransaction: rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(sc scanner) (domain.StoredTransaction, error) {
	var (
		tx                      domain.StoredTransaction
		direction, source, path string
		occurredOn, createdAt   string
	)
	err := sc.Scan(
		&tx.ID, &tx.UserID, &direction, &tx.Amount, &tx.Description, &tx.Category, &tx.Subcategory, &tx.Merchant,
		&occurredOn, &source, &tx.RawText, &tx.Confidence, &path, &tx.Provider, &tx.AccountTail, &createdAt,
	)
	if err != nil {
		return tx, err
	}

	tx.Direction = domain.Direction(direction)
	tx.Source = domain.Source(source)
	tx.Path = domain.ExtractionPath(path)

	if tx.OccurredOn, err = civil.ParseDate(occurredOn); err != nil {
		return tx, fmt.Errorf("transaction %s: occurred_on %q: %w", tx.ID, occurredOn, err)
	}
	if tx.CreatedAt, err = parseTime(createdAt); err != nil {
		return tx, fmt.Errorf("transaction %s: created_at %q: %w", tx.ID, createdAt, err)
	}
	return tx, nil
}
