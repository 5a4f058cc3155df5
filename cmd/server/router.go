package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/taskpulse/internal/api"
	apiMiddleware "github.com/phrazzld/taskpulse/internal/api/middleware"
)

// setupRouter registers every route and middleware on a new router.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	r.Use(app.cors.Handler)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	taskHandler := api.NewTaskHandler(app.taskService, app.logger)
	notificationHandler := api.NewNotificationHandler(app.notificationService, app.logger)
	realtimeHandler := api.NewRealtimeHandler(app.hub)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/check-all", taskHandler.CheckAll)
			r.Post("/{id}/check", taskHandler.Check)
			r.Post("/{id}/complete", taskHandler.Complete)
			r.Delete("/{id}/recurrence", taskHandler.StopRecurrence)
			r.Put("/{id}/due-date", taskHandler.Reschedule)
			r.Post("/{id}/comments", taskHandler.Comment)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.List)
			r.Post("/", notificationHandler.Create)
			r.Patch("/read-all", notificationHandler.MarkAllRead)
			r.Patch("/{id}/read", notificationHandler.MarkRead)
		})
	})

	r.With(authMiddleware.AuthenticateQuery).Get("/ws", realtimeHandler.Connect)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
