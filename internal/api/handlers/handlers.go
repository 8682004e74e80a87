package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/budget-sync/internal/api/middleware"
	"github.com/dvloznov/budget-sync/internal/budget"
	"github.com/dvloznov/budget-sync/internal/gcs"
	"github.com/dvloznov/budget-sync/internal/jobs"
	"github.com/dvloznov/budget-sync/internal/versioning"
)

// BudgetsHandler handles budget processing endpoints.
type BudgetsHandler struct {
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewBudgetsHandler creates a new budgets handler.
func NewBudgetsHandler(publisher jobs.Publisher, log zerolog.Logger) *BudgetsHandler {
	return &BudgetsHandler{
		publisher: publisher,
		log:       log,
	}
}

// ProcessBudget handles POST /api/budgets/process
func (h *BudgetsHandler) ProcessBudget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SpreadsheetID string `json:"spreadsheet_id"`
		SheetName     string `json:"sheet_name"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id := budget.Identity{SpreadsheetID: req.SpreadsheetID, SheetName: req.SheetName}
	if err := id.Validate(); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "spreadsheet_id and sheet_name are required")
		return
	}

	job := &jobs.ProcessBudgetJob{
		SpreadsheetID: req.SpreadsheetID,
		SheetName:     req.SheetName,
	}

	if err := h.publisher.PublishProcessBudget(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue budget job")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to enqueue budget job")
		return
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Str("spreadsheet_id", job.SpreadsheetID).
		Str("sheet_name", job.SheetName).
		Msg("Budget job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store     jobs.JobStore
	artifacts gcs.ArtifactStore
	log       zerolog.Logger
}

// NewJobsHandler creates a new jobs handler. artifacts may be nil when
// documents are not archived.
func NewJobsHandler(store jobs.JobStore, artifacts gcs.ArtifactStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store:     store,
		artifacts: artifacts,
		log:       log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	job, err := h.store.GetJob(r.Context(), jobID)
	if errors.Is(err, jobs.ErrJobNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// GetJobDocument handles GET /api/jobs/{id}/document. It serves the archived
// document of a completed job.
func (h *JobsHandler) GetJobDocument(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	job, err := h.store.GetJob(r.Context(), jobID)
	if errors.Is(err, jobs.ErrJobNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	if h.artifacts == nil || job.ArtifactURI == "" {
		middleware.WriteError(w, http.StatusNotFound, "No archived document for this job")
		return
	}

	data, err := h.artifacts.Get(r.Context(), job.ArtifactURI)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Str("uri", job.ArtifactURI).Msg("Failed to read archived document")
		middleware.WriteError(w, http.StatusBadGateway, "Failed to read archived document")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		SpreadsheetID: query.Get("spreadsheet_id"),
		Status:        jobs.JobStatus(query.Get("status")),
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

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// VersionsHandler serves the stored version of a sheet.
type VersionsHandler struct {
	store versioning.Store
	log   zerolog.Logger
}

// NewVersionsHandler creates a new versions handler.
func NewVersionsHandler(store versioning.Store, log zerolog.Logger) *VersionsHandler {
	return &VersionsHandler{
		store: store,
		log:   log,
	}
}

// GetVersion handles GET /api/versions/{spreadsheetID}/{sheetName}
func (h *VersionsHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	sheetName, err := url.PathUnescape(chi.URLParam(r, "sheetName"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid sheet name")
		return
	}
	id := budget.Identity{SpreadsheetID: chi.URLParam(r, "spreadsheetID"), SheetName: sheetName}

	v, err := h.store.Get(r.Context(), id)
	var storeErr *budget.VersionStoreError
	if errors.As(err, &storeErr) {
		h.log.Warn().Err(err).Str("sheet", id.String()).Msg("Unreadable version record")
		middleware.WriteError(w, http.StatusConflict, "Version record is unreadable")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("sheet", id.String()).Msg("Failed to read version")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read version")
		return
	}
	if v == nil {
		middleware.WriteError(w, http.StatusNotFound, "No version recorded for this sheet")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version": v,
		"label":   v.Label(),
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
