package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/dvloznov/finsense/internal/api/middleware"
	"github.com/dvloznov/finsense/internal/jobs"
	"github.com/dvloznov/finsense/internal/logger"
)

// JobsHandler handles batch job endpoints.
type JobsHandler struct {
	store     jobs.JobStore
	publisher jobs.Publisher
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, publisher jobs.Publisher) *JobsHandler {
	return &JobsHandler{
		store:     store,
		publisher: publisher,
	}
}

// CreateJob handles POST /api/jobs
func (h *JobsHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		SourceURI string `json:"source_uri"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.SourceURI) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "source_uri is required")
		return
	}

	job := &jobs.ExtractBatchJob{
		UserID:    middleware.UserID(ctx),
		SourceURI: req.SourceURI,
	}

	if err := h.publisher.PublishExtractBatch(ctx, job); err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("Failed to enqueue extract job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue extract job")
		return
	}

	logger.FromContext(ctx).Info().Str("job_id", job.JobID).Str("source_uri", req.SourceURI).Msg("Extract job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(jobs.JobStatusPending),
	})
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := r.PathValue("id")

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil || job.UserID != middleware.UserID(ctx) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.JobFilter{
		UserID: middleware.UserID(ctx),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	if jobsList == nil {
		jobsList = []*jobs.ExtractBatchJob{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// Summary handles GET /api/jobs/summary
func (h *JobsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sum, err := h.store.Summarize(ctx, middleware.UserID(ctx))
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("Failed to summarize jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to summarize jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, sum)
}
