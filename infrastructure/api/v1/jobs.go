package v1

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inquira/kgraph/application/service"
	"github.com/inquira/kgraph/domain/job"
	"github.com/inquira/kgraph/infrastructure/api/middleware"
	"github.com/inquira/kgraph/internal/log"
)

// JobsRouter handles batch re-extraction job endpoints and drift reports.
type JobsRouter struct {
	jobs    *service.JobService
	schemas *service.SchemaService
	logger  *log.Logger
}

// NewJobsRouter creates a JobsRouter.
func NewJobsRouter(jobs *service.JobService, schemas *service.SchemaService, logger *log.Logger) *JobsRouter {
	if logger == nil {
		logger = log.Default()
	}
	return &JobsRouter{jobs: jobs, schemas: schemas, logger: logger}
}

// Routes returns the chi router for job endpoints.
func (rt *JobsRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/{kbID}", rt.Create)
	router.Get("/{kbID}", rt.List)
	router.Get("/{kbID}/drift", rt.Drift)
	router.Get("/{kbID}/{jobID}", rt.Status)
	router.Post("/{kbID}/{jobID}/cancel", rt.Cancel)

	return router
}

// CreateJobRequest is the body for creating a re-extraction job.
type CreateJobRequest struct {
	DomainID    string   `json:"domain_id"`
	DocumentIDs []string `json:"document_ids"`
	AllDrifted  bool     `json:"all_drifted"`
	CleanupMode string   `json:"cleanup_mode"`
}

// Create handles POST /api/v1/jobs/{kbID}.
func (rt *JobsRouter) Create(w http.ResponseWriter, req *http.Request) {
	var body CreateJobRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewValidationError("invalid JSON body"), rt.logger)
		return
	}
	if body.DomainID == "" {
		middleware.WriteError(w, req, middleware.NewValidationError("domain_id is required"), rt.logger)
		return
	}

	mode := job.CleanupMode(body.CleanupMode)
	if body.CleanupMode == "" {
		mode = job.CleanupMerge
	}

	kbID := chi.URLParam(req, "kbID")
	var created job.ExtractionJob
	var err error
	if body.AllDrifted {
		created, err = rt.jobs.CreateDriftJob(req.Context(), kbID, body.DomainID, mode)
	} else {
		created, err = rt.jobs.CreateJob(req.Context(), kbID, body.DomainID, body.DocumentIDs, mode)
	}
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusAccepted, toJobResponse(created))
}

// List handles GET /api/v1/jobs/{kbID}.
func (rt *JobsRouter) List(w http.ResponseWriter, req *http.Request) {
	jobs, err := rt.jobs.List(req.Context(), chi.URLParam(req, "kbID"))
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	out := make([]JobResponse, len(jobs))
	for i, j := range jobs {
		out[i] = toJobResponse(j)
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// Status handles GET /api/v1/jobs/{kbID}/{jobID}.
func (rt *JobsRouter) Status(w http.ResponseWriter, req *http.Request) {
	status, err := rt.jobs.Status(req.Context(), chi.URLParam(req, "jobID"))
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toJobStatusResponse(status))
}

// Cancel handles POST /api/v1/jobs/{kbID}/{jobID}/cancel.
func (rt *JobsRouter) Cancel(w http.ResponseWriter, req *http.Request) {
	j, err := rt.jobs.Cancel(req.Context(), chi.URLParam(req, "jobID"))
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusAccepted, toJobResponse(j))
}

// Drift handles GET /api/v1/jobs/{kbID}/drift?domain_id=.
func (rt *JobsRouter) Drift(w http.ResponseWriter, req *http.Request) {
	domainID := req.URL.Query().Get("domain_id")
	if domainID == "" {
		middleware.WriteError(w, req, middleware.NewValidationError("domain_id is required"), rt.logger)
		return
	}

	report, err := rt.schemas.Drift(req.Context(), chi.URLParam(req, "kbID"), domainID)
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toDriftReportResponse(report))
}
