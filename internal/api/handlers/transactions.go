package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/finsense/internal/api/dto"
	"github.com/dvloznov/finsense/internal/api/middleware"
	"github.com/dvloznov/finsense/internal/domain"
	"github.com/dvloznov/finsense/internal/logger"
	"github.com/dvloznov/finsense/internal/pipeline"
)

// defaultListLimit applies when GET /api/transactions has no limit parameter.
const defaultListLimit = 100

// Extractor runs one message through the extraction state machine.
type Extractor interface {
	Extract(ctx context.Context, msg domain.RawMessage) pipeline.Result
}

// TransactionStore is the storage the transactions endpoints need.
type TransactionStore interface {
	pipeline.TransactionStore
	GetTransactions(ctx context.Context, userID string, limit int) ([]domain.StoredTransaction, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
}

// TransactionsHandler handles extraction and transaction endpoints.
type TransactionsHandler struct {
	extractor Extractor
	store     TransactionStore
	now       func() time.Time
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(extractor Extractor, store TransactionStore) *TransactionsHandler {
	return &TransactionsHandler{extractor: extractor, store: store, now: time.Now}
}

// Extract handles POST /api/extract
func (h *TransactionsHandler) Extract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req dto.Message
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "text is required")
		return
	}

	msg, err := req.RawMessage()
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg.ReceivedAt == nil {
		now := h.now()
		msg.ReceivedAt = &now
	}

	res := h.extractor.Extract(ctx, msg)
	view := dto.NewExtractionResult(res)

	if req.Save && res.OK() {
		id, err := h.store.SaveTransaction(ctx, middleware.UserID(ctx), *res.Candidate)
		if err != nil {
			log.Error().Err(err).Msg("Failed to save transaction")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to save transaction")
			return
		}
		view.SavedID = id
		middleware.WriteJSON(w, http.StatusCreated, view)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, view)
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	txs, err := h.store.GetTransactions(ctx, middleware.UserID(ctx), limit)
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	// Return array directly for frontend compatibility
	middleware.WriteJSON(w, http.StatusOK, dto.NewStoredTransactions(txs))
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	if err := h.store.DeleteTransaction(ctx, middleware.UserID(ctx), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		logger.FromContext(ctx).Error().Err(err).Str("transaction_id", id).Msg("Failed to delete transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete transaction")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
