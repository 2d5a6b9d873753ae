package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dvloznov/finsense/internal/api/dto"
	"github.com/dvloznov/finsense/internal/api/middleware"
	"github.com/dvloznov/finsense/internal/domain"
	"github.com/dvloznov/finsense/internal/logger"
)

// ProfileStore reads and writes user profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
	SaveProfile(ctx context.Context, p domain.Profile) error
}

// ProfileHandler handles the profile questionnaire endpoints.
type ProfileHandler struct {
	store ProfileStore
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(store ProfileStore) *ProfileHandler {
	return &ProfileHandler{store: store}
}

// GetProfile handles GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := h.store.GetProfile(ctx, middleware.UserID(ctx))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Profile not found")
			return
		}
		logger.FromContext(ctx).Error().Err(err).Msg("Failed to get profile")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.NewProfile(p))
}

// PutProfile handles PUT /api/profile
func (h *ProfileHandler) PutProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.Profile
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := req.Domain(middleware.UserID(ctx))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.SaveProfile(ctx, p); err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("Failed to save profile")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save profile")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.NewProfile(p))
}
