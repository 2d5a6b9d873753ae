package rules

import (
	"strings"
	"time"

	"github.com/dvloznov/finsense/internal/domain"
)

// DeterministicConfidence is the fixed confidence of a rule match.
const DeterministicConfidence = 0.9

const maxDescriptionLen = 100

// Extractor applies a RuleSet to raw messages. It holds no mutable state.
type Extractor struct {
	rules *RuleSet
	now   func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock overrides the clock used when a message carries no usable date.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

// NewExtractor creates an extractor over rs, or over the default table when rs is nil.
func NewExtractor(rs *RuleSet, opts ...Option) *Extractor {
	if rs == nil {
		rs = Default()
	}
	e := &Extractor{rules: rs, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HasProvider reports whether any rule applies to sender.
func (e *Extractor) HasProvider(sender string) bool {
	return len(e.rules.ForSender(sender)) > 0
}

// Extract returns a candidate from the first matching rule. The boolean is false
// when no provider applies to the sender or no applicable rule matches.
// Merchant and category are left for enrichment.
func (e *Extractor) Extract(msg domain.RawMessage) (domain.TransactionCandidate, bool) {
	applicable := e.rules.ForSender(msg.Sender)
	if len(applicable) == 0 {
		return domain.TransactionCandidate{}, false
	}

	for _, r := range applicable {
		m := r.Pattern.FindStringSubmatch(msg.Text)
		if m == nil {
			continue
		}

		amount, err := domain.ParseAmount(group(r, m, GroupAmount))
		if err != nil || amount.IsNegative() {
			continue
		}

		return domain.TransactionCandidate{
			Direction:   r.Direction,
			Amount:      amount,
			Description: Describe(msg.Text),
			Category:    domain.DefaultCategory,
			OccurredOn:  domain.ResolveDate(group(r, m, GroupDate), msg, e.now()),
			Source:      msg.Source,
			RawText:     msg.Text,
			Confidence:  DeterministicConfidence,
			Path:        domain.PathDeterministic,
			Provider:    r.Provider,
			AccountTail: group(r, m, GroupTail),
		}, true
	}

	return domain.TransactionCandidate{}, false
}

func group(r Rule, m []string, name string) string {
	idx := r.Pattern.SubexpIndex(name)
	if idx < 0 || idx >= len(m) {
		return ""
	}
	return m[idx]
}

// Describe collapses whitespace and truncates text to a short description.
func Describe(text string) string {
	s := strings.Join(strings.Fields(text), " ")
	r := []rune(s)
	if len(r) <= maxDescriptionLen {
		return s
	}
	return string(r[:maxDescriptionLen-3]) + "..."
}
