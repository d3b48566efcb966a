package periods

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/fiscal-periods", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/current", h.Current)
		r.Post("/generate/{year}", h.Generate)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/close", h.Close)
	})
}
