package decode

// Outcome distinguishes why a decode produced what it did. The external contract is
// "possibly empty items"; the outcome keeps the reason observable.
type Outcome string

const (
	OutcomeRecovered     Outcome = "recovered"
	OutcomeEmptyResponse Outcome = "empty_response"
	OutcomeUnparseable   Outcome = "unparseable"
	OutcomeNoValidItems  Outcome = "no_valid_items"
	OutcomeOversized     Outcome = "oversized"

	// Set by callers, not by the cascade.
	OutcomeGenerationFailed Outcome = "generation_failed"
	OutcomeNoInput          Outcome = "no_input"
)

// Result is the output of one decode.
type Result[T any] struct {
	// Items is the ranked, de-duplicated, limited selection.
	Items []T
	// Valid holds every valid item in ranked order, duplicates included.
	Valid      []T
	Stage      Stage
	Outcome    Outcome
	Dropped    int
	Duplicates int
}

// Empty reports whether no items were recovered.
func (r Result[T]) Empty() bool {
	return len(r.Items) == 0
}
