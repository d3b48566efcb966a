// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/roofing-ledger/internal/crm"
)

// Sentinel errors for the transport layer.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrValidation = errors.New("validation failed")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrUnbalanced):
		Problem(w, http.StatusBadRequest, "Unbalanced Entry", err.Error())
	case errors.Is(err, shared.ErrValidation), errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrInvalidState):
		Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, shared.ErrFiscalPeriod):
		Problem(w, http.StatusUnprocessableEntity, "Fiscal Period Unavailable", err.Error())
	case errors.Is(err, shared.ErrSourceAlreadyLinked), errors.Is(err, crm.ErrDuplicateID):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrNotFound),
		errors.Is(err, shared.ErrJournalNotFound),
		errors.Is(err, shared.ErrPeriodNotFound),
		errors.Is(err, shared.ErrAccountNotFound),
		errors.Is(err, crm.ErrCustomerNotFound),
		errors.Is(err, crm.ErrEmployeeNotFound),
		errors.Is(err, crm.ErrProjectNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
