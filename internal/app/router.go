package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/roofing-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/roofing-ledger/internal/consistency"
	eventshttp "github.com/odyssey-erp/roofing-ledger/internal/events/http"
	"github.com/odyssey-erp/roofing-ledger/internal/integration"
	"github.com/odyssey-erp/roofing-ledger/internal/observability"
	"github.com/odyssey-erp/roofing-ledger/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	JournalHandler     *journals.Handler
	PeriodHandler      *periods.Handler
	ConsistencyHandler *consistency.Handler
	EventsHandler      *eventshttp.Handler
	CRMHandler         *integration.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router serving the ledger API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if params.JournalHandler != nil {
			params.JournalHandler.MountRoutes(r)
		}
		if params.PeriodHandler != nil {
			params.PeriodHandler.MountRoutes(r)
		}
		if params.ConsistencyHandler != nil {
			params.ConsistencyHandler.MountRoutes(r)
		}
		if params.EventsHandler != nil {
			params.EventsHandler.MountRoutes(r)
		}
		if params.CRMHandler != nil {
			params.CRMHandler.MountRoutes(r)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
