package decode

import (
	"cmp"
	"context"
	"errors"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/dvloznov/finsense/internal/domain"
	"github.com/dvloznov/finsense/internal/logger"
	"github.com/dvloznov/finsense/internal/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultInsightLimit        = 5
	DefaultRecommendationLimit = 3
	DefaultInsightPriority     = 5
	DefaultSimilarity          = 0.9
)

var errMissingConfidence = errors.New(`missing or non-numeric field "confidence"`)

// InsightSink persists validated insights.
type InsightSink interface {
	SaveInsight(ctx context.Context, userID string, item domain.InsightItem) error
}

// RecommendationSink persists validated recommendations.
type RecommendationSink interface {
	SaveRecommendation(ctx context.Context, userID string, item domain.RecommendationItem) error
}

// Decoder turns model responses into ranked, persisted insight and recommendation
// items.
type Decoder struct {
	cascade    *Cascade
	metrics    *metrics.Metrics
	similarity float64
	now        func() time.Time
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithMetrics records decode outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Decoder) { d.metrics = m }
}

// WithSimilarity sets the title similarity at or above which a later item is
// treated as a duplicate. A value above 1 disables de-duplication.
func WithSimilarity(threshold float64) Option {
	return func(d *Decoder) { d.similarity = threshold }
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *Decoder) { d.now = now }
}

// NewDecoder returns a Decoder using the full four-stage cascade.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		cascade:    NewCascade(),
		similarity: DefaultSimilarity,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DecodeInsights recovers insights from raw, persists every valid one through sink
// (when non-nil) and returns the top limit by priority, with near-duplicate titles
// left out of the selection. A non-positive limit means
// DefaultInsightLimit.
func (d *Decoder) DecodeInsights(ctx context.Context, raw, userID string, sink InsightSink, limit int) Result[domain.InsightItem] {
	if limit <= 0 {
		limit = DefaultInsightLimit
	}

	res := Recover(d.cascade, raw, InsightFromFields)
	createdAt := d.now().UTC()
	for i := range res.Valid {
		res.Valid[i].ID = uuid.NewString()
		res.Valid[i].CreatedAt = createdAt
	}
	res = finish(d, res, limit,
		func(it domain.InsightItem) string { return it.Title },
		func(it domain.InsightItem) int { return it.Priority },
	)
	if sink != nil {
		log := logger.FromContext(ctx)
		for _, item := range res.Valid {
			if err := sink.SaveInsight(ctx, userID, item); err != nil {
				log.Error().Err(err).Str("user_id", userID).Str("title", item.Title).Msg("Failed to save insight")
			}
		}
	}

	d.report(ctx, "insight", res.Stage, res.Outcome, len(res.Valid), res.Dropped, res.Duplicates)
	return res
}

// DecodeRecommendations is DecodeInsights for recommendations. A non-positive limit
// means DefaultRecommendationLimit.
func (d *Decoder) DecodeRecommendations(ctx context.Context, raw, userID string, sink RecommendationSink, limit int) Result[domain.RecommendationItem] {
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}

	res := Recover(d.cascade, raw, RecommendationFromFields)
	createdAt := d.now().UTC()
	for i := range res.Valid {
		res.Valid[i].ID = uuid.NewString()
		res.Valid[i].CreatedAt = createdAt
	}
	res = finish(d, res, limit,
		func(it domain.RecommendationItem) string { return it.Title },
		func(it domain.RecommendationItem) int { return it.Priority },
	)
	if sink != nil {
		log := logger.FromContext(ctx)
		for _, item := range res.Valid {
			if err := sink.SaveRecommendation(ctx, userID, item); err != nil {
				log.Error().Err(err).Str("user_id", userID).Str("title", item.Title).Msg("Failed to save recommendation")
			}
		}
	}

	d.report(ctx, "recommendation", res.Stage, res.Outcome, len(res.Valid), res.Dropped, res.Duplicates)
	return res
}

// finish stable-sorts every valid item by ascending priority, then selects the top
// limit, skipping near-duplicate titles. Valid keeps the duplicates so that they are
// still persisted.
func finish[T any](d *Decoder, res Result[T], limit int, title func(T) string, priority func(T) int) Result[T] {
	if len(res.Valid) == 0 {
		return res
	}

	slices.SortStableFunc(res.Valid, func(a, b T) int {
		return cmp.Compare(priority(a), priority(b))
	})

	items := make([]T, 0, min(limit, len(res.Valid)))
	seen := make([]string, 0, len(res.Valid))
	for _, item := range res.Valid {
		norm := normalizeTitle(title(item))
		if d.isDuplicate(norm, seen) {
			res.Duplicates++
			continue
		}
		seen = append(seen, norm)
		if len(items) < limit {
			items = append(items, item)
		}
	}

	res.Items = items
	return res
}

// isDuplicate reports whether title is a near match of an earlier one. Titles that
// carry different numbers, such as two savings amounts, are never duplicates.
func (d *Decoder) isDuplicate(title string, seen []string) bool {
	if d.similarity > 1 {
		return false
	}
	for _, prev := range seen {
		if !slices.Equal(numbersIn(title), numbersIn(prev)) {
			continue
		}
		if titleSimilarity(title, prev) >= d.similarity {
			return true
		}
	}
	return false
}

var digitRun = regexp.MustCompile(`\d+(?:[.,]\d+)*`)

func numbersIn(s string) []string {
	return digitRun.FindAllString(s, -1)
}

func normalizeTitle(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// titleSimilarity is 1 minus the edit distance scaled by the longer title.
func titleSimilarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// ReportGenerationFailure records that the model call for kind failed, so that the
// failure is not counted as an empty response.
func (d *Decoder) ReportGenerationFailure(ctx context.Context, kind string) {
	d.report(ctx, kind, StageNone, OutcomeGenerationFailed, 0, 0, 0)
}

func (d *Decoder) report(ctx context.Context, kind string, stage Stage, outcome Outcome, valid, dropped, duplicates int) {
	d.metrics.RecordDecode(kind, stage.String(), string(outcome), dropped, duplicates)

	log := logger.FromContext(ctx)
	event := log.Debug()
	switch outcome {
	case OutcomeUnparseable, OutcomeNoValidItems, OutcomeOversized, OutcomeGenerationFailed:
		event = log.Warn()
	}
	event.
		Str("kind", kind).
		Str("stage", stage.String()).
		Str("outcome", string(outcome)).
		Int("valid", valid).
		Int("dropped", dropped).
		Int("duplicates", duplicates).
		Msg("Decoded model response")
}

// InsightFromFields validates one decoded object as an insight. Title, description,
// category and confidence are required; priority defaults to DefaultInsightPriority.
func InsightFromFields(f Fields) (domain.InsightItem, error) {
	var item domain.InsightItem
	var err error

	if item.Title, err = f.RequiredString("title"); err != nil {
		return item, err
	}
	if item.Description, err = f.RequiredString("description"); err != nil {
		return item, err
	}
	if item.Category, err = f.RequiredString("category"); err != nil {
		return item, err
	}

	confidence, ok := f.Float("confidence")
	if !ok {
		return item, errMissingConfidence
	}
	item.Confidence = domain.ClampConfidence(confidence)

	item.Priority = DefaultInsightPriority
	if _, present := f["priority"]; present {
		if p, err := f.Priority("priority"); err == nil {
			item.Priority = p
		}
	}

	item.Kind = domain.ParseInsightKind(f.String("type", "kind", "insight_type"))
	return item, nil
}

// RecommendationFromFields validates one decoded object as a recommendation. Title,
// description, category and priority are required.
func RecommendationFromFields(f Fields) (domain.RecommendationItem, error) {
	var item domain.RecommendationItem
	var err error

	if item.Title, err = f.RequiredString("title"); err != nil {
		return item, err
	}
	if item.Description, err = f.RequiredString("description"); err != nil {
		return item, err
	}
	if item.Category, err = f.RequiredString("category"); err != nil {
		return item, err
	}
	if item.Priority, err = f.Priority("priority"); err != nil {
		return item, err
	}

	item.Kind = domain.ParseRecommendationKind(f.String("type", "kind", "recommendation_type"))
	item.ActionItems = f.Strings("action_items")

	item.PotentialSavings = potentialSavings(f)

	return item, nil
}

// potentialSavings accepts a number, a numeric string, or text such as "₹500/month".
func potentialSavings(f Fields) decimal.NullDecimal {
	if savings, ok := f.Float("potential_savings"); ok {
		return decimal.NewNullDecimal(decimal.NewFromFloat(savings).Abs().Round(2))
	}
	if s := f.String("potential_savings"); s != "" {
		if amount, err := domain.ParseAmount(s); err == nil {
			return decimal.NewNullDecimal(amount.Abs().Round(2))
		}
	}
	return decimal.NullDecimal{}
}
