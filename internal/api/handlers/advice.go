package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dvloznov/finsense/internal/api/dto"
	"github.com/dvloznov/finsense/internal/api/middleware"
	"github.com/dvloznov/finsense/internal/decode"
	"github.com/dvloznov/finsense/internal/domain"
	"github.com/dvloznov/finsense/internal/logger"
)

// Advisor generates insights and recommendations.
type Advisor interface {
	AnalyzeSpending(ctx context.Context, userID string) (decode.Result[domain.InsightItem], error)
	Recommend(ctx context.Context, userID, extra string) (decode.Result[domain.RecommendationItem], error)
}

// AdviceHandler handles insight and recommendation endpoints. A nil advisor
// means no model is configured and every request answers 503.
type AdviceHandler struct {
	advisor Advisor
}

// NewAdviceHandler creates a new advice handler.
func NewAdviceHandler(advisor Advisor) *AdviceHandler {
	return &AdviceHandler{advisor: advisor}
}

// Insights handles POST /api/insights
func (h *AdviceHandler) Insights(w http.ResponseWriter, r *http.Request) {
	if h.advisor == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "No model configured")
		return
	}
	ctx := r.Context()

	res, err := h.advisor.AnalyzeSpending(ctx, middleware.UserID(ctx))
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("Failed to analyze spending")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to analyze spending")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"insights": dto.NewInsights(res.Items),
		"count":    len(res.Items),
		"outcome":  res.Outcome,
	})
}

// Recommendations handles POST /api/recommendations. The body is optional.
func (h *AdviceHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	if h.advisor == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "No model configured")
		return
	}
	ctx := r.Context()

	var req struct {
		Context string `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.advisor.Recommend(ctx, middleware.UserID(ctx), req.Context)
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("Failed to generate recommendations")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to generate recommendations")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"recommendations": dto.NewRecommendations(res.Items),
		"count":           len(res.Items),
		"outcome":         res.Outcome,
	})
}
