package journals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status enumerates journal lifecycle values.
type Status string

const (
	StatusDraft           Status = "DRAFT"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusApproved        Status = "APPROVED"
	StatusPosted          Status = "POSTED"
	StatusRejected        Status = "REJECTED"
	StatusCancelled       Status = "CANCELLED"
)

// SourceModule tags where an entry originated.
type SourceModule string

const (
	SourceManual             SourceModule = "MANUAL"
	SourceAccountsPayable    SourceModule = "ACCOUNTS_PAYABLE"
	SourceAccountsReceivable SourceModule = "ACCOUNTS_RECEIVABLE"
	SourcePayroll            SourceModule = "PAYROLL"
	SourceInventory          SourceModule = "INVENTORY"
	SourceBankReconciliation SourceModule = "BANK_RECONCILIATION"
	SourceDepreciation       SourceModule = "DEPRECIATION"
	SourceAccruals           SourceModule = "ACCRUALS"
	SourceAdjustments        SourceModule = "ADJUSTMENTS"
	SourceYearEnd            SourceModule = "YEAR_END"
	SourceIntegration        SourceModule = "INTEGRATION"
)

// RecurringFrequency controls how often a recurring entry repeats.
type RecurringFrequency string

const (
	FrequencyDaily        RecurringFrequency = "DAILY"
	FrequencyWeekly       RecurringFrequency = "WEEKLY"
	FrequencyBiweekly     RecurringFrequency = "BIWEEKLY"
	FrequencyMonthly      RecurringFrequency = "MONTHLY"
	FrequencyQuarterly    RecurringFrequency = "QUARTERLY"
	FrequencySemiAnnually RecurringFrequency = "SEMI_ANNUALLY"
	FrequencyAnnually     RecurringFrequency = "ANNUALLY"
)

// Next returns the date one interval after t.
func (f RecurringFrequency) Next(t time.Time) (time.Time, bool) {
	switch f {
	case FrequencyDaily:
		return t.AddDate(0, 0, 1), true
	case FrequencyWeekly:
		return t.AddDate(0, 0, 7), true
	case FrequencyBiweekly:
		return t.AddDate(0, 0, 14), true
	case FrequencyMonthly:
		return t.AddDate(0, 1, 0), true
	case FrequencyQuarterly:
		return t.AddDate(0, 3, 0), true
	case FrequencySemiAnnually:
		return t.AddDate(0, 6, 0), true
	case FrequencyAnnually:
		return t.AddDate(1, 0, 0), true
	}
	return time.Time{}, false
}

// JournalEntry is the canonical double-entry record.
type JournalEntry struct {
	ID                 uuid.UUID          `json:"id"`
	Number             string             `json:"number"`
	EntryDate          time.Time          `json:"entryDate"`
	Description        string             `json:"description"`
	Reference          string             `json:"reference,omitempty"`
	Memo               string             `json:"memo,omitempty"`
	Status             Status             `json:"status"`
	SourceModule       SourceModule       `json:"sourceModule"`
	SourceID           *uuid.UUID         `json:"sourceId,omitempty"`
	Template           string             `json:"template,omitempty"`
	TotalDebit         decimal.Decimal    `json:"totalDebit"`
	TotalCredit        decimal.Decimal    `json:"totalCredit"`
	IsReversing        bool               `json:"isReversing"`
	OriginalEntryID    *uuid.UUID         `json:"originalEntryId,omitempty"`
	ReversedByEntryID  *uuid.UUID         `json:"reversedByEntryId,omitempty"`
	IsRecurring        bool               `json:"isRecurring"`
	RecurringFrequency RecurringFrequency `json:"recurringFrequency,omitempty"`
	NextRecurringDate  *time.Time         `json:"nextRecurringDate,omitempty"`
	FiscalPeriodID     uuid.UUID          `json:"fiscalPeriodId"`
	CreatedByID        string             `json:"createdById,omitempty"`
	ApprovedByUserID   string             `json:"approvedByUserId,omitempty"`
	ApprovedAt         *time.Time         `json:"approvedAt,omitempty"`
	PostedByUserID     string             `json:"postedByUserId,omitempty"`
	PostedAt           *time.Time         `json:"postedAt,omitempty"`
	RejectionReason    string             `json:"rejectionReason,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
	Lines              []JournalLine      `json:"lines"`
}

// IsPosted reports whether the entry affects balances.
func (e JournalEntry) IsPosted() bool { return e.Status == StatusPosted }

// IsReversed reports whether a compensating entry exists.
func (e JournalEntry) IsReversed() bool { return e.ReversedByEntryID != nil }

// Clone returns a deep copy.
func (e JournalEntry) Clone() JournalEntry {
	out := e
	out.Lines = append([]JournalLine(nil), e.Lines...)
	return out
}

// JournalLine stores debit or credit amount for an account.
type JournalLine struct {
	ID          uuid.UUID       `json:"id"`
	LineNumber  int             `json:"lineNumber"`
	AccountCode string          `json:"accountCode"`
	Description string          `json:"description,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	ContactID   string          `json:"contactId,omitempty"`
	ProjectID   string          `json:"projectId,omitempty"`
}
