package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/dvloznov/finsense/internal/decode"
	"github.com/dvloznov/finsense/internal/domain"
	"github.com/dvloznov/finsense/internal/llm"
	"github.com/dvloznov/finsense/internal/logger"
	"github.com/dvloznov/finsense/internal/rules"
	"github.com/shopspring/decimal"
)

// FallbackOutcome is the result of one probabilistic attempt. When OK is false the
// candidate is empty and Reason says why.
type FallbackOutcome struct {
	Candidate domain.TransactionCandidate
	OK        bool
	Reason    RejectReason
	Stage     decode.Stage
}

// ProbabilisticExtractor asks a text generator for one transaction object and
// decodes it with the direct and object-span stages.
type ProbabilisticExtractor struct {
	gen        llm.Generator
	cascade    *decode.Cascade
	categories []string
	now        func() time.Time
}

// ProbabilisticOption configures a ProbabilisticExtractor.
type ProbabilisticOption func(*ProbabilisticExtractor)

// WithCategories lists the categories offered to the model.
func WithCategories(categories []string) ProbabilisticOption {
	return func(p *ProbabilisticExtractor) { p.categories = categories }
}

// WithFallbackClock overrides the clock used for the prompt and date fallback.
func WithFallbackClock(now func() time.Time) ProbabilisticOption {
	return func(p *ProbabilisticExtractor) { p.now = now }
}

// NewProbabilisticExtractor wraps gen.
func NewProbabilisticExtractor(gen llm.Generator, opts ...ProbabilisticOption) *ProbabilisticExtractor {
	p := &ProbabilisticExtractor{
		gen:     gen,
		cascade: decode.NewCascade(decode.Direct(), decode.ObjectSpan()),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Extract makes exactly one generation call. Every failure is reported as a
// negative outcome.
func (p *ProbabilisticExtractor) Extract(ctx context.Context, msg domain.RawMessage) FallbackOutcome {
	log := logger.FromContext(ctx)
	now := p.now()

	resp, err := p.gen.Generate(ctx, extractionSystemPrompt, buildExtractionPrompt(msg, p.categories, now), ExtractionTemperature)
	if err != nil {
		log.Warn().Err(err).Str("source", string(msg.Source)).Msg("Fallback generation failed")
		return FallbackOutcome{Reason: ReasonFallbackFailed}
	}
	if strings.TrimSpace(resp) == "" {
		return FallbackOutcome{Reason: ReasonModelEmpty}
	}

	objs, stage := p.cascade.Objects(resp)
	if len(objs) == 0 {
		log.Debug().Str("response", truncate(resp, 200)).Msg("Fallback response not decodable")
		return FallbackOutcome{Reason: ReasonModelUnparseable}
	}

	candidate, reason := candidateFromFields(objs[0], msg, now)
	if reason != ReasonNone {
		return FallbackOutcome{Reason: reason, Stage: stage}
	}

	return FallbackOutcome{Candidate: candidate, OK: true, Stage: stage}
}

func candidateFromFields(f decode.Fields, msg domain.RawMessage, now time.Time) (domain.TransactionCandidate, RejectReason) {
	if isNotFound(f) {
		return domain.TransactionCandidate{}, ReasonModelNotFound
	}

	amount, ok := amountOf(f)
	if !ok {
		return domain.TransactionCandidate{}, ReasonModelUnparseable
	}

	direction, ok := domain.ParseDirection(f.String("direction", "transaction_type", "type"))
	if !ok {
		direction = domain.InferDirection(msg.Text)
	}

	confidence, ok := f.Float("confidence")
	if !ok {
		confidence, _ = f.Float("ai_confidence")
	}

	description := f.String("description")
	if description == "" {
		description = rules.Describe(msg.Text)
	}

	return domain.TransactionCandidate{
		Direction:   direction,
		Amount:      amount,
		Description: description,
		Category:    f.String("category"),
		Subcategory: f.String("subcategory"),
		Merchant:    cleanMerchant(f.String("merchant")),
		OccurredOn:  domain.ResolveDate(f.String("date"), msg, now),
		Source:      msg.Source,
		RawText:     msg.Text,
		Confidence:  domain.ClampConfidence(confidence),
		Path:        domain.PathProbabilistic,
	}, ReasonNone
}

func isNotFound(f decode.Fields) bool {
	if f.String("error") != "" {
		return true
	}
	if found, ok := f.Bool("found"); ok && !found {
		return true
	}
	return false
}

func amountOf(f decode.Fields) (decimal.Decimal, bool) {
	if v, ok := f.Float("amount"); ok {
		return decimal.NewFromFloat(v).Abs(), true
	}
	if s := f.String("amount"); s != "" {
		if d, err := domain.ParseAmount(s); err == nil {
			return d.Abs(), true
		}
	}
	return decimal.Decimal{}, false
}

func cleanMerchant(s string) string {
	switch strings.ToLower(s) {
	case "null", "none", "n/a", "unknown":
		return ""
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
