package invoices

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/invoices", func(r chi.Router) {
		r.Post("/preview", h.Preview)
		r.Post("/", h.Submit)
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
		r.Patch("/{id}/status", h.ChangeStatus)
		r.Delete("/{id}", h.Delete)
		r.Get("/{id}/pdf", h.DownloadPDF)
		r.Post("/{id}/pdf/jobs", h.EnqueuePDF)
	})
}
