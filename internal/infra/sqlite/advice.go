package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dvloznov/finsense/internal/domain"
	"github.com/dvloznov/finsense/internal/llm"
)

// SaveInsight persists one insight.
func (s *Store) SaveInsight(ctx context.Context, userID string, item domain.InsightItem) error {
	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO insights(id, user_id, kind, title, description, category, priority, confidence, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, userID, string(item.Kind), item.Title, item.Description, item.Category,
		item.Priority, item.Confidence, formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("SaveInsight: %w", err)
	}
	return nil
}

// ListInsights returns up to limit insights, newest first.
func (s *Store) ListInsights(ctx context.Context, userID string, limit int) ([]domain.InsightItem, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT id, kind, title, description, category, priority, confidence, created_at
	FROM insights
	WHERE user_id = ?
	ORDER BY created_at DESC, priority ASC
	LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListInsights: %w", err)
	}
	defer rows.Close()

	var out []domain.InsightItem
	for rows.Next() {
		var (
			item            domain.InsightItem
			kind, createdAt string
		)
		if err := rows.Scan(&item.ID, &kind, &item.Title, &item.Description, &item.Category,
			&item.Priority, &item.Confidence, &createdAt); err != nil {
			return nil, fmt.Errorf("ListInsights: %w", err)
		}
		item.Kind = domain.InsightKind(kind)
		if item.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("ListInsights: insight %s: %w", item.ID, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListInsights: %w", err)
	}
	return out, nil
}

// SaveRecommendation persists one recommendation with status active.
func (s *Store) SaveRecommendation(ctx context.Context, userID string, item domain.RecommendationItem) error {
	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	actions := item.ActionItems
	if actions == nil {
		actions = []string{}
	}
	actionsJSON, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("SaveRecommendation: action items: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
	INSERT INTO recommendations(id, user_id, kind, title, description, category, priority,
		potential_savings, action_items, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, userID, string(item.Kind), item.Title, item.Description, item.Category, item.Priority,
		item.PotentialSavings, string(actionsJSON), formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("SaveRecommendation: %w", err)
	}
	return nil
}

// ListRecommendations returns up to limit active recommendations, newest first.
func (s *Store) ListRecommendations(ctx context.Context, userID string, limit int) ([]domain.RecommendationItem, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT id, kind, title, description, category, priority, potential_savings, action_items, created_at
	FROM recommendations
	WHERE user_id = ? AND status = 'active'
	ORDER BY created_at DESC, priority ASC
	LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListRecommendations: %w", err)
	}
	defer rows.Close()

	var out []domain.RecommendationItem
	for rows.Next() {
		var (
			item                         domain.RecommendationItem
			kind, actionsJSON, createdAt string
		)
		if err := rows.Scan(&item.ID, &kind, &item.Title, &item.Description, &item.Category, &item.Priority,
			&item.PotentialSavings, &actionsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("ListRecommendations: %w", err)
		}
		item.Kind = domain.RecommendationKind(kind)
		if err := json.Unmarshal([]byte(actionsJSON), &item.ActionItems); err != nil {
			return nil, fmt.Errorf("ListRecommendations: recommendation %s: action items: %w", item.ID, err)
		}
		if item.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("ListRecommendations: recommendation %s: %w", item.ID, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListRecommendations: %w", err)
	}
	return out, nil
}

// SaveProfile creates or replaces the user's profile.
func (s *Store) SaveProfile(ctx context.Context, p domain.Profile) error {
	goals := p.FinancialGoals
	if goals == nil {
		goals = []string{}
	}
	goalsJSON, err := json.Marshal(goals)
	if err != nil {
		return fmt.Errorf("SaveProfile: financial goals: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
	INSERT INTO user_profiles(user_id, monthly_income, age, occupation, financial_goals,
		risk_tolerance, investment_experience, savings_target, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		monthly_income = excluded.monthly_income,
		age = excluded.age,
		occupation = excluded.occupation,
		financial_goals = excluded.financial_goals,
		risk_tolerance = excluded.risk_tolerance,
		investment_experience = excluded.investment_experience,
		savings_target = excluded.savings_target,
		updated_at = excluded.updated_at`,
		p.UserID, p.MonthlyIncome, p.Age, p.Occupation, string(goalsJSON),
		p.RiskTolerance, p.InvestmentExperience, p.SavingsTarget, formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("SaveProfile: %w", err)
	}
	return nil
}

// GetProfile returns the user's profile or domain.ErrNotFound.
func (s *Store) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	p := domain.Profile{UserID: userID}
	var goalsJSON string

	err := s.db.QueryRowContext(ctx, `
	SELECT monthly_income, age, occupation, financial_goals, risk_tolerance, investment_experience, savings_target
	FROM user_profiles
	WHERE user_id = ?`, userID).Scan(
		&p.MonthlyIncome, &p.Age, &p.Occupation, &goalsJSON, &p.RiskTolerance, &p.InvestmentExperience, &p.SavingsTarget,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Profile{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("GetProfile: %w", err)
	}
	if err := json.Unmarshal([]byte(goalsJSON), &p.FinancialGoals); err != nil {
		return domain.Profile{}, fmt.Errorf("GetProfile: financial goals: %w", err)
	}
	return p, nil
}

// RecordOutput stores one model call for later auditing.
func (s *Store) RecordOutput(ctx context.Context, out llm.Output) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO model_outputs(id, model, system, user_prompt, response, temperature, error, latency_ms, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.Model, out.System, out.User, out.Response, out.Temperature, out.Error,
		out.Latency.Milliseconds(), formatTime(out.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("RecordOutput: %w", err)
	}
	return nil
}

// CountOutputs returns the number of recorded model calls.
func (s *Store) CountOutputs(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM model_outputs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountOutputs: %w", err)
	}
	return n, nil
}
