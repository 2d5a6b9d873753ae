package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/finsense/internal/decode"
	"github.com/dvloznov/finsense/internal/domain"
	"github.com/dvloznov/finsense/internal/rules"
)

// PipelineStep represents a single step of the extraction state machine.
type PipelineStep interface {
	Execute(ctx context.Context, state *ExtractionState) error
}

// ExtractionState holds the shared state across all pipeline steps for one message.
type ExtractionState struct {
	Message   domain.RawMessage
	State     State
	Trail     []State
	Candidate *domain.TransactionCandidate
	Path      domain.ExtractionPath
	Reason    RejectReason
	Stage     decode.Stage
}

func newExtractionState(msg domain.RawMessage) *ExtractionState {
	return &ExtractionState{
		Message: msg,
		State:   StateStart,
		Trail:   []State{StateStart},
	}
}

func (s *ExtractionState) moveTo(next State) {
	s.State = next
	s.Trail = append(s.Trail, next)
}

func (s *ExtractionState) reject(reason RejectReason) {
	s.Candidate = nil
	s.Reason = reason
	s.moveTo(StateRejected)
}

// Terminal reports whether the machine has reached CANDIDATE or REJECTED.
func (s *ExtractionState) Terminal() bool {
	return s.State == StateCandidate || s.State == StateRejected
}

// GateStep rejects messages without financial keywords when enabled.
type GateStep struct {
	Enabled bool
}

func (s *GateStep) Execute(ctx context.Context, state *ExtractionState) error {
	if s.Enabled && !rules.IsFinancial(state.Message.Text) {
		state.reject(ReasonNotFinancial)
	}
	return nil
}

// DeterministicStep applies the provider rules.
type DeterministicStep struct {
	Extractor DeterministicExtractor
}

func (s *DeterministicStep) Execute(ctx context.Context, state *ExtractionState) error {
	state.moveTo(StateDeterministicAttempt)
	if s.Extractor == nil {
		return nil
	}

	c, ok := s.Extractor.Extract(state.Message)
	if !ok {
		return nil
	}

	state.Candidate = &c
	state.Path = domain.PathDeterministic
	state.moveTo(StateMatched)
	return nil
}

// FallbackStep invokes the probabilistic extractor once when no rule matched.
type FallbackStep struct {
	Fallback Fallback
}

func (s *FallbackStep) Execute(ctx context.Context, state *ExtractionState) error {
	if state.State == StateMatched {
		return nil
	}

	state.moveTo(StateFallbackAttempt)
	if s.Fallback == nil {
		state.reject(ReasonNoFallback)
		return nil
	}

	out := s.Fallback.Extract(ctx, state.Message)
	state.Stage = out.Stage
	if !out.OK {
		state.reject(out.Reason)
		return nil
	}

	c := out.Candidate
	state.Candidate = &c
	state.Path = domain.PathProbabilistic
	return nil
}

// EnrichStep attaches merchant and category, then moves to CANDIDATE.
type EnrichStep struct {
	Merchants  MerchantIdentifier
	Classifier CategoryClassifier
	Taxonomy   CategoryNormalizer
}

func (s *EnrichStep) Execute(ctx context.Context, state *ExtractionState) error {
	if state.Candidate == nil {
		return fmt.Errorf("EnrichStep: no candidate in state %s", state.State)
	}

	c := *state.Candidate
	text := state.Message.Text
	modelMerchant, modelCategory := c.Merchant, c.Category

	if merchant, ok := s.Merchants.Identify(text); ok {
		c.Merchant = merchant
	} else {
		c.Merchant = modelMerchant
	}

	known := false
	if modelCategory != "" && s.Taxonomy != nil {
		modelCategory, known = s.Taxonomy.Normalize(modelCategory)
	}

	c.Category = s.Classifier.Classify(text, c.Merchant)
	if c.Category == domain.DefaultCategory && known {
		c.Category = modelCategory
	}
	// A model subcategory only survives under the model's own category.
	if !known || c.Category != modelCategory {
		c.Subcategory = ""
	}

	state.Candidate = &c
	state.moveTo(StateCandidate)
	return nil
}

// Pipeline executes a sequence of steps in order, stopping once the state is terminal.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs the steps sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *ExtractionState) error {
	for i, step := range p.steps {
		if state.Terminal() {
			return nil
		}
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
