package integration

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/roofing-ledger/internal/crm"
	"github.com/odyssey-erp/roofing-ledger/internal/platform/httpx"
)

// Handler exposes the pipeline over HTTP.
type Handler struct {
	logger   *slog.Logger
	pipeline *Pipeline
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, pipeline *Pipeline) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, pipeline: pipeline}
}

// MountRoutes registers the CRM pipeline endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/crm", func(r chi.Router) {
		r.Post("/leads", h.CaptureLead)
		r.Post("/employees", h.OnboardEmployee)
		r.Post("/projects", h.CreateProject)
		r.Post("/projects/{id}/assignments", h.Assign)
		r.Delete("/projects/{id}/assignments/{employeeID}", h.Unassign)
		r.Post("/sync/{entity}/{id}", h.Sync)
		r.Post("/invoices/{id}/payments", h.InvoicePayment)
	})
}

type leadRequest struct {
	Lead    crm.Lead      `json:"lead"`
	Project *ProjectInput `json:"project"`
}

// CaptureLead converts a lead, and creates its project when one is given.
func (h *Handler) CaptureLead(w http.ResponseWriter, r *http.Request) {
	var req leadRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if req.Project == nil {
		customer, err := h.pipeline.CaptureLead(r.Context(), req.Lead)
		if err != nil {
			h.fail(w, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, customer)
		return
	}
	result, err := h.pipeline.ProcessLeadToProject(r.Context(), req.Lead, *req.Project)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) OnboardEmployee(w http.ResponseWriter, r *http.Request) {
	var in EmployeeInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, err)
		return
	}
	employee, err := h.pipeline.OnboardEmployee(r.Context(), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, employee)
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var in ProjectInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, err)
		return
	}
	project, err := h.pipeline.CreateProject(r.Context(), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, project)
}

type assignRequest struct {
	EmployeeID string `json:"employeeId" validate:"required"`
	Role       string `json:"role"`
}

func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if err := shared.ValidateStruct(req); err != nil {
		h.fail(w, err)
		return
	}
	if req.Role == "" {
		req.Role = "Crew Member"
	}
	project, err := h.pipeline.AssignEmployee(r.Context(), req.EmployeeID, chi.URLParam(r, "id"), req.Role)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

func (h *Handler) Unassign(w http.ResponseWriter, r *http.Request) {
	project, err := h.pipeline.UnassignEmployee(r.Context(), chi.URLParam(r, "employeeID"), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var err error
	switch chi.URLParam(r, "entity") {
	case "customer":
		err = h.pipeline.SyncCustomer(r.Context(), id)
	case "employee":
		err = h.pipeline.SyncEmployee(r.Context(), id)
	case "project":
		err = h.pipeline.SyncProject(r.Context(), id)
	default:
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown entity")
		return
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "synced"})
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) InvoicePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.pipeline.RecordInvoicePayment(r.Context(), chi.URLParam(r, "id"), req.Amount); err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if !errors.Is(err, shared.ErrValidation) && !errors.Is(err, httpx.ErrValidation) {
		h.logger.Warn("crm pipeline request failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
