// Package advisor summarizes stored transactions and turns model advice into
// validated insights and recommendations.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/finsense/internal/decode"
	"github.com/dvloznov/finsense/internal/domain"
	"github.com/dvloznov/finsense/internal/llm"
	"github.com/dvloznov/finsense/internal/logger"
)

const (
	insightTemperature        = 0.3
	recommendationTemperature = 0.2

	DefaultInsightWindow        = 200
	DefaultRecommendationWindow = 10
)

// Store is the storage collaborator the advisor reads from and writes to.
type Store interface {
	GetTransactions(ctx context.Context, userID string, limit int) ([]domain.StoredTransaction, error)
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
	decode.InsightSink
	decode.RecommendationSink
}

// Service generates insights and recommendations for one user at a time.
type Service struct {
	store   Store
	gen     llm.Generator
	decoder *decode.Decoder

	insightWindow        int
	recommendationWindow int
	insightLimit         int
	recommendationLimit  int
}

// Option configures a Service.
type Option func(*Service)

// WithDecoder replaces the default decoder.
func WithDecoder(d *decode.Decoder) Option {
	return func(s *Service) { s.decoder = d }
}

// WithLimits overrides the number of insights and recommendations returned.
// Non-positive values keep the decoder defaults.
func WithLimits(insights, recommendations int) Option {
	return func(s *Service) {
		s.insightLimit = insights
		s.recommendationLimit = recommendations
	}
}

// WithWindow sets how many recent transactions feed the insight prompt.
func WithWindow(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.insightWindow = n
		}
	}
}

// NewService creates a Service.
func NewService(store Store, gen llm.Generator, opts ...Option) *Service {
	s := &Service{
		store:                store,
		gen:                  gen,
		decoder:              decode.NewDecoder(),
		insightWindow:        DefaultInsightWindow,
		recommendationWindow: DefaultRecommendationWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AnalyzeSpending asks the model for insights on the user's recent spending and
// persists every valid one. With no transactions it returns an empty result
// without calling the model.
func (s *Service) AnalyzeSpending(ctx context.Context, userID string) (decode.Result[domain.InsightItem], error) {
	log := logger.FromContext(ctx)

	txs, err := s.store.GetTransactions(ctx, userID, s.insightWindow)
	if err != nil {
		return decode.Result[domain.InsightItem]{}, fmt.Errorf("AnalyzeSpending: get transactions: %w", err)
	}
	if len(txs) == 0 {
		log.Info().Str("user_id", userID).Msg("No transactions to analyze")
		return decode.Result[domain.InsightItem]{Outcome: decode.OutcomeNoInput}, nil
	}

	profile, err := s.profile(ctx, userID)
	if err != nil {
		return decode.Result[domain.InsightItem]{}, fmt.Errorf("AnalyzeSpending: %w", err)
	}

	user, err := renderPrompt(
		"User Profile", SummarizeProfile(profile),
		"Transaction Summary", SummarizeSpending(txs),
	)
	if err != nil {
		return decode.Result[domain.InsightItem]{}, fmt.Errorf("AnalyzeSpending: %w", err)
	}

	raw, err := s.gen.Generate(ctx, insightSystemPrompt, user, insightTemperature)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Insight generation failed")
		s.decoder.ReportGenerationFailure(ctx, "insight")
		return decode.Result[domain.InsightItem]{Outcome: decode.OutcomeGenerationFailed}, nil
	}

	return s.decoder.DecodeInsights(ctx, raw, userID, s.store, s.insightLimit), nil
}

// Recommend asks the model for recommendations. extra is optional free text from
// the caller appended to the prompt.
func (s *Service) Recommend(ctx context.Context, userID, extra string) (decode.Result[domain.RecommendationItem], error) {
	log := logger.FromContext(ctx)

	txs, err := s.store.GetTransactions(ctx, userID, s.recommendationWindow)
	if err != nil {
		return decode.Result[domain.RecommendationItem]{}, fmt.Errorf("Recommend: get transactions: %w", err)
	}

	profile, err := s.profile(ctx, userID)
	if err != nil {
		return decode.Result[domain.RecommendationItem]{}, fmt.Errorf("Recommend: %w", err)
	}

	var detailed any = "No transactions available."
	if len(txs) > 0 {
		detailed = SummarizeDetailed(txs)
	}

	user, err := renderPrompt(
		"Transaction Summary", detailed,
		"User Profile", SummarizeProfile(profile),
	)
	if err != nil {
		return decode.Result[domain.RecommendationItem]{}, fmt.Errorf("Recommend: %w", err)
	}
	if extra = strings.TrimSpace(extra); extra != "" {
		user += "Additional Context: " + extra + "\n"
	}

	raw, err := s.gen.Generate(ctx, recommendationSystemPrompt, user, recommendationTemperature)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Recommendation generation failed")
		s.decoder.ReportGenerationFailure(ctx, "recommendation")
		return decode.Result[domain.RecommendationItem]{Outcome: decode.OutcomeGenerationFailed}, nil
	}

	return s.decoder.DecodeRecommendations(ctx, raw, userID, s.store, s.recommendationLimit), nil
}

// profile returns nil when the user has not filled in a profile.
func (s *Service) profile(ctx context.Context, userID string) (*domain.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// renderPrompt writes label/value pairs. String values are written as-is, others
// as indented JSON.
func renderPrompt(pairs ...any) (string, error) {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		label, _ := pairs[i].(string)
		switch v := pairs[i+1].(type) {
		case string:
			fmt.Fprintf(&b, "%s: %s\n", label, v)
		default:
			data, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return "", fmt.Errorf("render %s: %w", label, err)
			}
			fmt.Fprintf(&b, "%s: %s\n", label, data)
		}
	}
	return b.String(), nil
}
