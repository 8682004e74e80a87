// Package api assembles the HTTP surface of the budget service.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/dvloznov/budget-sync/internal/api/handlers"
	"github.com/dvloznov/budget-sync/internal/api/middleware"
	"github.com/dvloznov/budget-sync/internal/gcs"
	"github.com/dvloznov/budget-sync/internal/jobs"
	"github.com/dvloznov/budget-sync/internal/versioning"
)

// RequestTimeout bounds every request handled by the router.
const RequestTimeout = 30 * time.Second

// Deps are the collaborators of the HTTP handlers.
type Deps struct {
	Publisher jobs.Publisher
	Jobs      jobs.JobStore
	Versions  versioning.Store
	// Artifacts is optional; without it job documents are not served.
	Artifacts gcs.ArtifactStore
	Log       zerolog.Logger
}

// NewRouter returns the routed and middleware-wrapped API handler.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(d.Log))
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(d.Log))
	r.Use(middleware.CORS)
	r.Use(chimw.Timeout(RequestTimeout))

	budgets := handlers.NewBudgetsHandler(d.Publisher, d.Log)
	jobsHandler := handlers.NewJobsHandler(d.Jobs, d.Artifacts, d.Log)
	versions := handlers.NewVersionsHandler(d.Versions, d.Log)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", handlers.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/budgets/process", budgets.ProcessBudget)

		r.Get("/jobs", jobsHandler.ListJobs)
		r.Get("/jobs/{id}", jobsHandler.GetJob)
		r.Get("/jobs/{id}/document", jobsHandler.GetJobDocument)

		r.Get("/versions/{spreadsheetID}/{sheetName}", versions.GetVersion)
	})

	return r
}
