package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phrazzld/tasker-api/internal/api"
	apiMiddleware "github.com/phrazzld/tasker-api/internal/api/middleware"
	"github.com/phrazzld/tasker-api/internal/api/shared"
)

// setupRouter configures the router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	taskHandler := api.NewTaskHandler(app.taskService, app.logger)

	r.Route("/api/tasks", func(r chi.Router) {
		r.Post("/", taskHandler.SubmitTask)
		r.Get("/{id}", taskHandler.GetTaskOutput)
		r.Get("/{id}/status", taskHandler.GetTaskStatus)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{
			"status":  "healthy",
			"version": version,
		})
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
