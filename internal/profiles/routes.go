package profiles

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/profiles", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/default", h.ShowDefault)
		r.Get("/{id}", h.Show)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}
