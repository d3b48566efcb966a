package journals

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/journal-entries", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/suggestions", h.Suggestions)
		r.Get("/trial-balance/{periodID}", h.TrialBalance)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/submit", h.Submit)
		r.Post("/{id}/approve", h.Approve)
		r.Post("/{id}/reject", h.Reject)
		r.Post("/{id}/cancel", h.Cancel)
		r.Post("/{id}/post", h.Post)
		r.Post("/{id}/reverse", h.Reverse)
	})
	r.Get("/quick-entries/templates", h.QuickTemplates)
	r.Post("/quick-entries", h.CreateQuick)
	r.Get("/wizard/templates", h.WizardTemplates)
	r.Post("/wizard/entries", h.CreateWizard)
}
