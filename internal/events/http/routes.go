package eventshttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

const debugRateLimit = 30

// MountRoutes registers the event endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(debugRateLimit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.handleHistory)
		r.Get("/catalogue", h.handleCatalogue)
		r.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/debug", h.handleDebug)
			gr.Get("/feed", h.handleFeed)
		})
	})
}
