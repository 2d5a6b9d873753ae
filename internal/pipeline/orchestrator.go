package pipeline

import (
	"context"

	"github.com/dvloznov/finsense/internal/decode"
	"github.com/dvloznov/finsense/internal/domain"
	"github.com/dvloznov/finsense/internal/enrich"
	"github.com/dvloznov/finsense/internal/logger"
	"github.com/dvloznov/finsense/internal/metrics"
	"github.com/dvloznov/finsense/internal/rules"
)

// Result is the outcome of extracting one message. Candidate is nil unless State
// is StateCandidate.
type Result struct {
	Candidate *domain.TransactionCandidate
	State     State
	Path      domain.ExtractionPath
	Reason    RejectReason
	Stage     decode.Stage
	Trail     []State
}

// OK reports whether a candidate was produced.
func (r Result) OK() bool {
	return r.State == StateCandidate && r.Candidate != nil
}

// Orchestrator runs START -> DETERMINISTIC_ATTEMPT -> (MATCHED | FALLBACK_ATTEMPT)
// -> (CANDIDATE | REJECTED) for each message. Each path is attempted at most once.
// It is safe for concurrent use when its collaborators are.
type Orchestrator struct {
	extractor DeterministicExtractor
	fallback  Fallback
	gate      bool

	merchants  MerchantIdentifier
	classifier CategoryClassifier
	taxonomy   CategoryNormalizer

	metrics *metrics.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithExtractor replaces the default rule-based extractor.
func WithExtractor(e DeterministicExtractor) Option {
	return func(o *Orchestrator) { o.extractor = e }
}

// WithFallback enables the probabilistic path.
func WithFallback(f Fallback) Option {
	return func(o *Orchestrator) { o.fallback = f }
}

// WithFinancialGate rejects messages without financial keywords before any
// extraction attempt.
func WithFinancialGate(enabled bool) Option {
	return func(o *Orchestrator) { o.gate = enabled }
}

// WithEnrichment replaces the merchant identifier, classifier and taxonomy.
func WithEnrichment(m MerchantIdentifier, c CategoryClassifier, t CategoryNormalizer) Option {
	return func(o *Orchestrator) {
		o.merchants = m
		o.classifier = c
		o.taxonomy = t
	}
}

// WithMetrics records outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// NewOrchestrator returns an orchestrator with the default rules and enrichment
// tables and no fallback.
func NewOrchestrator(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		extractor:  rules.NewExtractor(nil),
		merchants:  enrich.NewMerchantIdentifier(),
		classifier: enrich.NewClassifier(),
		taxonomy:   enrich.DefaultTaxonomy(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) pipeline() *Pipeline {
	return NewPipeline(
		&GateStep{Enabled: o.gate},
		&DeterministicStep{Extractor: o.extractor},
		&FallbackStep{Fallback: o.fallback},
		&EnrichStep{Merchants: o.merchants, Classifier: o.classifier, Taxonomy: o.taxonomy},
	)
}

// Extract runs the state machine for msg. It never returns an error: every failure
// is a REJECTED result with a reason.
func (o *Orchestrator) Extract(ctx context.Context, msg domain.RawMessage) Result {
	log := logger.FromContext(ctx)
	state := newExtractionState(msg)

	if err := o.pipeline().Execute(ctx, state); err != nil {
		log.Error().Err(err).Msg("Extraction pipeline failed")
		state.reject(ReasonFallbackFailed)
	}

	res := Result{
		Candidate: state.Candidate,
		State:     state.State,
		Path:      state.Path,
		Reason:    state.Reason,
		Stage:     state.Stage,
		Trail:     state.Trail,
	}

	o.metrics.RecordExtraction(string(res.Path), string(res.State), string(res.Reason))

	event := log.Debug().
		Str("state", string(res.State)).
		Str("path", string(res.Path)).
		Str("source", string(msg.Source))
	if res.OK() {
		event = event.
			Str("provider", res.Candidate.Provider).
			Str("merchant", res.Candidate.Merchant).
			Str("category", res.Candidate.Category)
	} else {
		event = event.Str("reason", string(res.Reason))
	}
	event.Msg("Extracted message")

	return res
}
