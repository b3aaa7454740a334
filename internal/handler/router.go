package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mmeshcher/linkvault/internal/apperror"
	"github.com/mmeshcher/linkvault/internal/middleware"
)

func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(h.logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.GzipMiddleware)

	r.Get("/ping", h.PingHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.auth.Handler)

		r.Route("/bookmarks", func(r chi.Router) {
			r.Post("/", h.CreateBookmarkHandler)
			r.Get("/", h.ListBookmarksHandler)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetBookmarkHandler)
				r.Patch("/", h.UpdateBookmarkHandler)
				r.Put("/", h.UpdateBookmarkHandler)
				r.Delete("/", h.DeleteBookmarkHandler)
				r.Patch("/archive", h.ToggleArchiveHandler)
			})
		})

		r.Get("/tags", h.ListTagsHandler)
		r.Get("/stats", h.StatsHandler)
		r.Get("/export", h.ExportHandler)
	})

	r.With(middleware.RateLimit(h.limiter, h.logger)).Get("/{shortCode}", h.RedirectHandler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, apperror.NotFound("route not found"))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	})

	return r
}
