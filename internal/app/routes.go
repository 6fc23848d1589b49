package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/minutes/internal/handler"
	"github.com/minutes/internal/middleware"
	"github.com/minutes/internal/web"
)

func (app *App) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(app.logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RateLimit(app.config.RateLimitPerMinute))

	// Static files
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(web.StaticFS))))

	// Health check
	r.Get("/api/health", handler.Health(app.sessions))

	formHandler := handler.NewFormHandler(app.logger, web.Templates, app.intake, app.views, handler.FormOptions{
		MaxUploadBytes: app.config.MaxUploadBytes(),
		ShowRejected:   app.config.ShowRejectedFiles,
	})
	detailsHandler := handler.NewDetailsHandler(app.logger, web.Templates, app.views, app.previews)

	r.Group(func(r chi.Router) {
		r.Use(middleware.MaintenanceMode(app.maintenance, web.Templates))
		r.Use(middleware.Session(app.sessions))

		// Form Screen
		r.Get("/", formHandler.Show)
		r.Post("/attachments", formHandler.Attach)
		r.Post("/attachments/{index}/delete", formHandler.Remove)
		r.Post("/submit", formHandler.Submit)
		r.Post("/cancel", formHandler.Cancel)

		// Details Screen
		r.Get("/details", detailsHandler.Show)
		r.Get("/preview/{handle}", detailsHandler.Preview)
	})
	return r
}
