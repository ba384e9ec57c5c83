package main

import (
	"net/http"

	"github.com/gnicolai/AI-Courses-Generator/internal/api"
	apiMiddleware "github.com/gnicolai/AI-Courses-Generator/internal/api/middleware"
)

// setupRouter creates the handlers from the application services and mounts
// them.
func (app *application) setupRouter() http.Handler {
	return api.NewRouter(api.Handlers{
		Courses:    api.NewCourseHandler(app.courseService, app.logger),
		Generation: api.NewGenerationHandler(app.generationService, app.logger),
		Expansion:  api.NewExpansionHandler(app.expansionService, app.logger),
		Health:     api.NewHealthHandler(app.healthChecks, app.logger),
	}, apiMiddleware.NewAuthMiddleware(app.jwtService), app.logger)
}
