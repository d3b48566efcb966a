package journals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/shared"
	internalShared "github.com/odyssey-erp/roofing-ledger/internal/shared"
)

// LineInput describes a journal line in a create or update request.
type LineInput struct {
	AccountCode string          `json:"accountCode" validate:"required"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	ContactID   string          `json:"contactId"`
	ProjectID   string          `json:"projectId"`
}

// CreateInput groups fields required to create a journal entry.
type CreateInput struct {
	EntryDate          time.Time          `json:"entryDate"`
	Description        string             `json:"description" validate:"required"`
	Reference          string             `json:"reference"`
	Memo               string             `json:"memo"`
	SourceModule       SourceModule       `json:"sourceModule"`
	SourceID           *uuid.UUID         `json:"sourceId"`
	FiscalPeriodID     *uuid.UUID         `json:"fiscalPeriodId"`
	CreatedByID        string             `json:"createdById"`
	IsRecurring        bool               `json:"isRecurring"`
	RecurringFrequency RecurringFrequency `json:"recurringFrequency"`
	Lines              []LineInput        `json:"lines" validate:"dive"`

	template string
}

// Validate runs field and double-entry checks.
func (in CreateInput) Validate() error {
	if err := shared.ValidateStruct(in); err != nil {
		return err
	}
	if in.IsRecurring {
		if _, ok := in.RecurringFrequency.Next(time.Time{}); !ok {
			return shared.Invalid("recurringFrequency", "is required for recurring entries")
		}
	}
	_, _, err := ValidateLines(in.Lines)
	return err
}

// UpdateInput patches a DRAFT entry. Nil fields are left unchanged; a nil
// Lines slice keeps the current lines.
type UpdateInput struct {
	EntryDate      *time.Time  `json:"entryDate"`
	Description    *string     `json:"description"`
	Reference      *string     `json:"reference"`
	Memo           *string     `json:"memo"`
	FiscalPeriodID *uuid.UUID  `json:"fiscalPeriodId"`
	Lines          []LineInput `json:"lines" validate:"omitempty,dive"`
}

// ListFilter narrows ListJournalEntries. Limit <= 0 on the repository means
// every match.
type ListFilter struct {
	Page           int
	Limit          int
	Status         Status
	FiscalPeriodID *uuid.UUID
	SourceModule   SourceModule
	StartDate      *time.Time
	EndDate        *time.Time
}

func (f ListFilter) matches(e JournalEntry) bool {
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.FiscalPeriodID != nil && e.FiscalPeriodID != *f.FiscalPeriodID {
		return false
	}
	if f.SourceModule != "" && e.SourceModule != f.SourceModule {
		return false
	}
	if f.StartDate != nil && e.EntryDate.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && e.EntryDate.After(*f.EndDate) {
		return false
	}
	return true
}

// ListResult is one page of entries.
type ListResult struct {
	Entries    []JournalEntry            `json:"entries"`
	Pagination internalShared.Pagination `json:"pagination"`
}

// ValidateLines enforces the double-entry rules and returns the totals.
func ValidateLines(lines []LineInput) (decimal.Decimal, decimal.Decimal, error) {
	debit, credit := decimal.Zero, decimal.Zero
	if len(lines) < 2 {
		return debit, credit, shared.Invalid("lines", "a journal entry requires at least 2 lines")
	}
	for idx, line := range lines {
		n := idx + 1
		if line.AccountCode == "" {
			return debit, credit, shared.Invalid("lines", "line %d missing account", n)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return debit, credit, shared.Invalid("lines", "line %d has a negative amount", n)
		}
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			return debit, credit, shared.Invalid("lines", "line %d cannot be both debit and credit", n)
		}
		if line.Debit.IsZero() && line.Credit.IsZero() {
			return debit, credit, shared.Invalid("lines", "line %d must have a debit or credit amount", n)
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if !shared.Balanced(debit, credit) {
		return debit, credit, &shared.UnbalancedEntryError{Debit: debit, Credit: credit}
	}
	return debit, credit, nil
}

// ReverseLines swaps the debit and credit of every line.
func ReverseLines(lines []JournalLine) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineInput{
			AccountCode: line.AccountCode,
			Description: line.Description,
			Debit:       line.Credit,
			Credit:      line.Debit,
			ContactID:   line.ContactID,
			ProjectID:   line.ProjectID,
		})
	}
	return out
}

func toJournalLines(lines []LineInput) []JournalLine {
	out := make([]JournalLine, 0, len(lines))
	for idx, line := range lines {
		out = append(out, JournalLine{
			ID:          uuid.New(),
			LineNumber:  idx + 1,
			AccountCode: line.AccountCode,
			Description: line.Description,
			Debit:       line.Debit,
			Credit:      line.Credit,
			ContactID:   line.ContactID,
			ProjectID:   line.ProjectID,
		})
	}
	return out
}
