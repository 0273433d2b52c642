package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"load-profile-pipeline/internal/model"
	"load-profile-pipeline/internal/pipeline"
	"load-profile-pipeline/internal/store"
	"load-profile-pipeline/pkg/utils"
)

// Handler serves the load profile job API.
type Handler struct {
	Pipeline *pipeline.Pipeline
}

func New(p *pipeline.Pipeline) *Handler {
	return &Handler{Pipeline: p}
}

// CreateJob creates a new load profile job
// @Summary Create a new job
// @Description Create and start a fetch-and-summarize job for a date range
// @Tags jobs
// @Accept json
// @Produce json
// @Param job body model.LoadProfileJobSpec true "Job configuration"
// @Success 200 {object} map[string]interface{} "Job created successfully"
// @Failure 400 {object} map[string]interface{} "Invalid request payload"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /jobs [post]
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var job model.LoadProfileJobSpec
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	if err := job.Validate(); err != nil {
		var cfgErr *model.ConfigError
		if errors.As(err, &cfgErr) {
			http.Error(w, cfgErr.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Invalid job spec", http.StatusBadRequest)
		return
	}

	jobID := uuid.New().String()

	if err := store.SaveJob(jobID, job); err != nil {
		http.Error(w, "Failed to save job", http.StatusInternalServerError)
		return
	}

	// Run asynchronously; Run records failures in the job_errors table.
	ctx, cancel := context.WithTimeout(context.Background(), utils.ParseDuration(job.Concurrency.JobTimeout))
	go func() {
		defer cancel()
		if err := h.Pipeline.Run(ctx, jobID, job); err != nil {
			fmt.Printf("❌ Job %s failed: %v\n", jobID, err)
		}
	}()

	resp := map[string]interface{}{
		"message":   "Job created successfully!",
		"jobID":     jobID,
		"status":    "pending",
		"createdAt": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListJobs retrieves all jobs
// @Summary List all jobs
// @Description Get a list of all jobs with their current status
// @Tags jobs
// @Produce json
// @Success 200 {array} map[string]interface{} "List of jobs"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /jobs [get]
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := store.ListJobs()
	if err != nil {
		http.Error(w, "Failed to fetch jobs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jobs)
}

// GetJob retrieves a specific job
// @Summary Get job
// @Description Retrieve details of a specific job
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} map[string]interface{} "Job details"
// @Failure 404 {object} map[string]interface{} "Job not found"
// @Router /jobs/{id} [get]
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	job, err := store.GetJob(jobID)
	if err != nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job)
}

// GetJobErrors retrieves errors for a job
// @Summary Get job errors
// @Description Retrieve all errors that occurred during job execution
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} map[string]interface{} "Job errors"
// @Router /jobs/{id}/errors [get]
func (h *Handler) GetJobErrors(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	jobErrors, err := store.GetJobErrors(jobID)
	if err != nil {
		http.Error(w, "Failed to retrieve errors", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"job_id": jobID,
		"errors": jobErrors,
		"count":  len(jobErrors),
	})
}

// GetJobSummaries retrieves the summary table for a job
// @Summary Get job summaries
// @Description Retrieve the aggregated summary rows a job produced
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} map[string]interface{} "Summary rows"
// @Router /jobs/{id}/summaries [get]
func (h *Handler) GetJobSummaries(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	summaries, err := store.GetSummaryRows(jobID)
	if err != nil {
		http.Error(w, "Failed to retrieve summaries", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"job_id":    jobID,
		"summaries": summaries,
		"count":     len(summaries),
	})
}

// GetJobWarnings retrieves skipped-row warnings for a job
// @Summary Get job warnings
// @Description Retrieve parse warnings for rows that were skipped
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} map[string]interface{} "Parse warnings"
// @Router /jobs/{id}/warnings [get]
func (h *Handler) GetJobWarnings(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	warnings, err := store.GetParseWarnings(jobID)
	if err != nil {
		http.Error(w, "Failed to retrieve warnings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"job_id":   jobID,
		"warnings": warnings,
		"count":    len(warnings),
	})
}

// GetJobQuality retrieves data-quality findings for a job
// @Summary Get job quality findings
// @Description Retrieve gap, zero-run and spike findings over the job's samples
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} map[string]interface{} "Quality findings"
// @Router /jobs/{id}/quality [get]
func (h *Handler) GetJobQuality(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	findings, err := store.GetQualityFindings(jobID)
	if err != nil {
		http.Error(w, "Failed to retrieve quality findings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"job_id":   jobID,
		"findings": findings,
		"count":    len(findings),
	})
}
