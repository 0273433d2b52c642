package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"load-profile-pipeline/internal/api/handler"
	"load-profile-pipeline/internal/pipeline"
)

// NewRouter builds the job API router.
func NewRouter(p *pipeline.Pipeline) *mux.Router {
	h := handler.New(p)

	r := mux.NewRouter()
	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/jobs", h.CreateJob).Methods(http.MethodPost)
	v1.HandleFunc("/jobs", h.ListJobs).Methods(http.MethodGet)
	v1.HandleFunc("/jobs/{id}", h.GetJob).Methods(http.MethodGet)
	v1.HandleFunc("/jobs/{id}/errors", h.GetJobErrors).Methods(http.MethodGet)
	v1.HandleFunc("/jobs/{id}/summaries", h.GetJobSummaries).Methods(http.MethodGet)
	v1.HandleFunc("/jobs/{id}/warnings", h.GetJobWarnings).Methods(http.MethodGet)
	v1.HandleFunc("/jobs/{id}/quality", h.GetJobQuality).Methods(http.MethodGet)
	return r
}
