package shared

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrValidation matches every ValidationError.
	ErrValidation = errors.New("accounting: validation failed")
	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = errors.New("accounting: journal lines must balance")
	// ErrInvalidState indicates an illegal status transition.
	ErrInvalidState = errors.New("accounting: invalid status transition")
	// ErrFiscalPeriod indicates a missing, inactive or closed period.
	ErrFiscalPeriod = errors.New("accounting: fiscal period unavailable")
	// ErrJournalNotFound indicates missing entry.
	ErrJournalNotFound = errors.New("accounting: journal entry not found")
	// ErrPeriodNotFound indicates a period lookup miss.
	ErrPeriodNotFound = errors.New("accounting: fiscal period not found")
	// ErrDuplicatePeriod indicates the type/year/period key already exists.
	ErrDuplicatePeriod = errors.New("accounting: fiscal period already exists")
	// ErrAccountNotFound indicates the chart has no such account code.
	ErrAccountNotFound = errors.New("accounting: account not found")
	// ErrSourceAlreadyLinked indicates idempotency conflict.
	ErrSourceAlreadyLinked = errors.New("accounting: source already linked")
)

// Tolerance is the largest debit/credit difference accepted as balanced.
var Tolerance = decimal.RequireFromString("0.01")

// ValidationError reports a structural or field-level problem.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// UnbalancedEntryError carries the computed totals of a rejected entry.
type UnbalancedEntryError struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("Total debits (%s) must equal total credits (%s)", e.Debit.StringFixed(2), e.Credit.StringFixed(2))
}

// Is lets errors.Is(err, ErrUnbalanced) match.
func (e *UnbalancedEntryError) Is(target error) bool { return target == ErrUnbalanced }

// InvalidStateError reports an action attempted from a status that forbids it.
type InvalidStateError struct {
	Status string
	Action string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s journal entry in %s status", e.Action, e.Status)
}

// Is lets errors.Is(err, ErrInvalidState) match.
func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

// FiscalPeriodError reports a missing or closed period.
type FiscalPeriodError struct {
	PeriodID string
	Reason   string
}

func (e *FiscalPeriodError) Error() string {
	if e.PeriodID == "" {
		return "fiscal period: " + e.Reason
	}
	return fmt.Sprintf("fiscal period %s: %s", e.PeriodID, e.Reason)
}

// Is lets errors.Is(err, ErrFiscalPeriod) match.
func (e *FiscalPeriodError) Is(target error) bool { return target == ErrFiscalPeriod }

// Balanced reports whether debit and credit agree within Tolerance.
func Balanced(debit, credit decimal.Decimal) bool {
	return debit.Sub(credit).Abs().LessThanOrEqual(Tolerance)
}
