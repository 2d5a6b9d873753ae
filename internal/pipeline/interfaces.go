package pipeline

import (
	"context"

	"github.com/dvloznov/finsense/internal/domain"
)

// TransactionStore persists extracted candidates.
type TransactionStore interface {
	SaveTransaction(ctx context.Context, userID string, c domain.TransactionCandidate) (string, error)
}

// DeterministicExtractor matches a message against provider rules.
type DeterministicExtractor interface {
	Extract(msg domain.RawMessage) (domain.TransactionCandidate, bool)
}

// Fallback extracts a candidate when no rule matched.
// This interface enables mocking the text-generation path in tests.
type Fallback interface {
	Extract(ctx context.Context, msg domain.RawMessage) FallbackOutcome
}

// MerchantIdentifier finds the merchant mentioned in a message body.
type MerchantIdentifier interface {
	Identify(text string) (string, bool)
}

// CategoryClassifier maps a message body and merchant onto a spend category.
type CategoryClassifier interface {
	Classify(text, merchant string) string
}

// CategoryNormalizer maps a free-form category name onto the known taxonomy.
type CategoryNormalizer interface {
	Normalize(name string) (string, bool)
}
