package consistency

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/roofing-ledger/internal/crm"
	"github.com/odyssey-erp/roofing-ledger/internal/platform/httpx"
)

// Handler exposes validation and consistency endpoints over the CRM store.
type Handler struct {
	logger  *slog.Logger
	service *Service
	store   crm.Store
}

func NewHandler(logger *slog.Logger, service *Service, store crm.Store) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, store: store}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/consistency", func(r chi.Router) {
		r.Post("/check", h.Check)
		r.Post("/auto-fix", h.AutoFix)
		r.Post("/validate/customer", validateHandler(ValidateCustomer))
		r.Post("/validate/employee", validateHandler(ValidateEmployee))
		r.Post("/validate/project", validateHandler(ValidateProject))
	})
}

func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	snap, err := LoadSnapshot(r.Context(), h.store)
	if err != nil {
		h.logger.Error("load snapshot", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.service.CheckDataConsistency(r.Context(), snap))
}

// AutoFix repairs the posted issues, or the store's current issues when the
// body is empty.
func (h *Handler) AutoFix(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Issues []Issue `json:"issues"`
	}
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	if req.Issues == nil {
		snap, err := LoadSnapshot(r.Context(), h.store)
		if err != nil {
			h.logger.Error("load snapshot", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		req.Issues = h.service.CheckDataConsistency(r.Context(), snap).Issues
	}
	httpx.JSON(w, http.StatusOK, h.service.AutoFixIssues(r.Context(), req.Issues))
}

func validateHandler[T any](fn func(T) Result) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var record T
		if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
			return
		}
		httpx.JSON(w, http.StatusOK, fn(record))
	}
}
