package api

import (
	"log/slog"
	"net/http"

	apiMiddleware "github.com/gnicolai/AI-Courses-Generator/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handlers groups the handlers mounted by NewRouter.
type Handlers struct {
	Courses    *CourseHandler
	Generation *GenerationHandler
	Expansion  *ExpansionHandler
	Health     *HealthHandler
}

// NewRouter builds the HTTP routes. Everything under /api goes through
// auth, which lets all requests pass when authentication is disabled.
func NewRouter(h Handlers, auth *apiMiddleware.AuthMiddleware, logger *slog.Logger) http.Handler {
	if auth == nil {
		auth = apiMiddleware.NewAuthMiddleware(nil)
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.NewTraceMiddleware(logger))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Route("/courses", func(r chi.Router) {
			r.Post("/", h.Courses.CreateCourse)
			r.Get("/", h.Courses.ListCourses)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Courses.GetCourse)
				r.Delete("/", h.Courses.DeleteCourse)

				r.Post("/outline", h.Generation.GenerateOutline)
				r.Put("/outline", h.Courses.UpdateOutline)

				r.Post("/chapters", h.Generation.GenerateMissingChapters)
				r.Post("/chapters/{chapterID}", h.Generation.GenerateChapter)
				r.Put("/chapters/{chapterID}", h.Courses.UpdateChapter)

				r.Post("/expansion", h.Expansion.StartExpansion)
				r.Get("/expansion", h.Expansion.Status)
				r.Post("/expansion/pause", h.Expansion.Pause)
				r.Post("/expansion/resume", h.Expansion.Resume)
				r.Post("/expansion/cancel", h.Expansion.Cancel)
			})
		})

		r.Post("/provider/verify", h.Generation.VerifyAPIKey)
	})

	health := h.Health
	if health == nil {
		health = NewHealthHandler(nil, logger)
	}
	r.Get("/health", health.Health)

	return r
}
