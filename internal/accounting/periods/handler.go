package periods

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/roofing-ledger/internal/platform/httpx"
)

// Handler exposes fiscal period endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation), errors.Is(err, httpx.ErrValidation),
		errors.Is(err, shared.ErrFiscalPeriod), errors.Is(err, shared.ErrPeriodNotFound):
	default:
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var filter ListFilter
	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			h.fail(w, r, "list periods", shared.Invalid("year", "must be a number"))
			return
		}
		filter.Year = year
	}
	if v := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("type"))); v != "" {
		filter.Type = PeriodType(v)
		if !filter.Type.Valid() {
			h.fail(w, r, "list periods", shared.Invalid("type", "must be MONTH, QUARTER or YEAR"))
			return
		}
	}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "list periods", err)
		return
	}
	if list == nil {
		list = []FiscalPeriod{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"periods": list})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		h.fail(w, r, "create period", err)
		return
	}
	period, err := h.service.CreateFiscalPeriod(r.Context(), input)
	if err != nil {
		h.fail(w, r, "create period", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, period)
}

func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	period, err := h.service.EnsureCurrentPeriod(r.Context())
	if err != nil {
		h.fail(w, r, "current period", err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get period", shared.Invalid("id", "must be a UUID"))
		return
	}
	period, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get period", err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		h.fail(w, r, "generate periods", shared.Invalid("year", "must be a number"))
		return
	}
	list, err := h.service.GenerateFiscalPeriodsForYear(r.Context(), year)
	if err != nil {
		h.fail(w, r, "generate periods", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"year": year, "periods": list})
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "close period", shared.Invalid("id", "must be a UUID"))
		return
	}
	period, err := h.service.ClosePeriod(r.Context(), id)
	if err != nil {
		h.fail(w, r, "close period", err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}
