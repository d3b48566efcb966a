package journals

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/roofing-ledger/internal/platform/httpx"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

type actionRequest struct {
	UserID      string `json:"userId"`
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if !isClientError(err) {
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}

func isClientError(err error) bool {
	for _, target := range []error{
		shared.ErrValidation, shared.ErrUnbalanced, shared.ErrInvalidState, shared.ErrFiscalPeriod,
		shared.ErrJournalNotFound, shared.ErrPeriodNotFound, shared.ErrAccountNotFound,
		shared.ErrSourceAlreadyLinked, httpx.ErrValidation,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		h.fail(w, r, "list journals", err)
		return
	}
	result, err := h.service.ListJournalEntries(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "list journals", err)
		return
	}
	if wantsLegacy(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"entries": LegacyEntries(result.Entries), "pagination": result.Pagination})
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	entry, err := h.service.GetJournalEntry(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get journal", err)
		return
	}
	h.respondEntry(w, r, http.StatusOK, entry)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		h.fail(w, r, "create journal", err)
		return
	}
	entry, err := h.service.CreateJournalEntry(r.Context(), input)
	if err != nil {
		h.fail(w, r, "create journal", err)
		return
	}
	h.respondEntry(w, r, http.StatusCreated, entry)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	var patch UpdateInput
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		h.fail(w, r, "update journal", err)
		return
	}
	entry, err := h.service.UpdateJournalEntry(r.Context(), id, patch)
	if err != nil {
		h.fail(w, r, "update journal", err)
		return
	}
	h.respondEntry(w, r, http.StatusOK, entry)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteJournalEntry(r.Context(), id); err != nil {
		h.fail(w, r, "delete journal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(id uuid.UUID, req actionRequest) (JournalEntry, error) {
		return h.service.SubmitForApproval(r.Context(), id, req.UserID)
	})
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(id uuid.UUID, req actionRequest) (JournalEntry, error) {
		return h.service.ApproveJournalEntry(r.Context(), id, req.UserID)
	})
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(id uuid.UUID, req actionRequest) (JournalEntry, error) {
		return h.service.RejectJournalEntry(r.Context(), id, req.UserID, req.Reason)
	})
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(id uuid.UUID, req actionRequest) (JournalEntry, error) {
		return h.service.CancelJournalEntry(r.Context(), id, req.UserID)
	})
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(id uuid.UUID, req actionRequest) (JournalEntry, error) {
		return h.service.PostJournalEntry(r.Context(), id, req.UserID)
	})
}

func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	var req actionRequest
	if err := decodeOptional(r, &req); err != nil {
		h.fail(w, r, "reverse journal", err)
		return
	}
	entry, err := h.service.ReverseJournalEntry(r.Context(), id, req.UserID, req.Description)
	if err != nil {
		h.fail(w, r, "reverse journal", err)
		return
	}
	h.respondEntry(w, r, http.StatusCreated, entry)
}

func (h *Handler) action(w http.ResponseWriter, r *http.Request, fn func(uuid.UUID, actionRequest) (JournalEntry, error)) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	var req actionRequest
	if err := decodeOptional(r, &req); err != nil {
		h.fail(w, r, "journal action", err)
		return
	}
	entry, err := fn(id, req)
	if err != nil {
		h.fail(w, r, "journal action", err)
		return
	}
	h.respondEntry(w, r, http.StatusOK, entry)
}

func (h *Handler) QuickTemplates(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, templateViews(h.service.Templates().List(Family(r.URL.Query().Get("family")))))
}

func (h *Handler) WizardTemplates(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, templateViews(h.service.Templates().List(FamilyWizard)))
}

func (h *Handler) CreateQuick(w http.ResponseWriter, r *http.Request) {
	var req QuickEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "quick entry", err)
		return
	}
	entry, err := h.service.CreateQuickEntry(r.Context(), req)
	if err != nil {
		h.fail(w, r, "quick entry", err)
		return
	}
	h.respondEntry(w, r, http.StatusCreated, entry)
}

func (h *Handler) CreateWizard(w http.ResponseWriter, r *http.Request) {
	var req QuickEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "wizard entry", err)
		return
	}
	entry, err := h.service.CreateWizardEntry(r.Context(), req)
	if err != nil {
		h.fail(w, r, "wizard entry", err)
		return
	}
	h.respondEntry(w, r, http.StatusCreated, entry)
}

func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"suggestions": GetAccountSuggestions(r.URL.Query().Get("description")),
	})
}

func (h *Handler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "periodID"))
	if err != nil {
		h.fail(w, r, "trial balance", shared.Invalid("periodId", "must be a UUID"))
		return
	}
	tb, err := h.service.TrialBalanceCheck(r.Context(), id)
	if err != nil {
		h.fail(w, r, "trial balance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"trialBalance": tb, "balanced": tb.Balanced()})
}

func (h *Handler) entryID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.Invalid("id", "must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondEntry(w http.ResponseWriter, r *http.Request, status int, entry JournalEntry) {
	if wantsLegacy(r) {
		httpx.JSON(w, status, Legacy(entry))
		return
	}
	httpx.JSON(w, status, entry)
}

type templateView struct {
	TransactionTemplate
	Prompts []string `json:"prompts"`
}

func templateViews(list []TransactionTemplate) []templateView {
	out := make([]templateView, 0, len(list))
	for _, t := range list {
		out = append(out, templateView{TransactionTemplate: t, Prompts: t.Prompts()})
	}
	return out
}

func decodeOptional(r *http.Request, target any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return httpx.DecodeJSON(r, target)
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()
	filter := ListFilter{
		Status:       Status(q.Get("status")),
		SourceModule: SourceModule(q.Get("sourceModule")),
	}
	var err error
	if v := q.Get("page"); v != "" {
		if filter.Page, err = strconv.Atoi(v); err != nil {
			return filter, shared.Invalid("page", "must be a number")
		}
	}
	if v := q.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil {
			return filter, shared.Invalid("limit", "must be a number")
		}
	}
	if v := q.Get("fiscalPeriodId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, shared.Invalid("fiscalPeriodId", "must be a UUID")
		}
		filter.FiscalPeriodID = &id
	}
	for key, dst := range map[string]**time.Time{"startDate": &filter.StartDate, "endDate": &filter.EndDate} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, shared.Invalid(key, "must be YYYY-MM-DD")
		}
		if key == "endDate" {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		*dst = &t
	}
	return filter, nil
}

func wantsLegacy(r *http.Request) bool {
	return r.URL.Query().Get("shape") == "legacy"
}
