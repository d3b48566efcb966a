package journals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/roofing-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/roofing-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/roofing-ledger/internal/events"
	internalShared "github.com/odyssey-erp/roofing-ledger/internal/shared"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// PeriodPort gates entries to open fiscal periods.
type PeriodPort interface {
	EnsureOpenForPosting(ctx context.Context, id uuid.UUID) (periods.FiscalPeriod, error)
	EnsureCurrentPeriod(ctx context.Context) (periods.FiscalPeriod, error)
	OpenPeriodForDate(ctx context.Context, date time.Time) (periods.FiscalPeriod, error)
}

type Service struct {
	repo      Repository
	periods   PeriodPort
	chart     accounts.Lookup
	bus       events.Emitter
	audit     AuditPort
	templates *Catalogue
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures optional collaborators.
type Option func(*Service)

// WithChart validates line account codes against the chart.
func WithChart(chart accounts.Lookup) Option {
	return func(s *Service) { s.chart = chart }
}

// WithEmitter publishes ledger events.
func WithEmitter(bus events.Emitter) Option {
	return func(s *Service) { s.bus = bus }
}

// WithAudit records lifecycle actions.
func WithAudit(audit AuditPort) Option {
	return func(s *Service) { s.audit = audit }
}

// WithCatalogue replaces DefaultCatalogue.
func WithCatalogue(c *Catalogue) Option {
	return func(s *Service) {
		if c != nil {
			s.templates = c
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(repo Repository, periods PeriodPort, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		periods:   periods,
		templates: DefaultCatalogue(),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Templates exposes the template catalogue.
func (s *Service) Templates() *Catalogue { return s.templates }

// CreateJournalEntry validates and stores a DRAFT entry.
func (s *Service) CreateJournalEntry(ctx context.Context, input CreateInput) (JournalEntry, error) {
	return s.create(ctx, input, StatusDraft)
}

func (s *Service) create(ctx context.Context, input CreateInput, status Status) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	if err := s.checkAccounts(ctx, input.Lines); err != nil {
		return JournalEntry{}, err
	}
	ts := s.now().UTC()
	entryDate := ts
	if !input.EntryDate.IsZero() {
		entryDate = input.EntryDate.UTC()
	}
	period, err := s.resolvePeriod(ctx, input.FiscalPeriodID, entryDate)
	if err != nil {
		return JournalEntry{}, err
	}
	debit, creditTotal, _ := ValidateLines(input.Lines)
	source := input.SourceModule
	if source == "" {
		source = SourceManual
	}

	entry := JournalEntry{
		ID:             uuid.New(),
		EntryDate:      entryDate,
		Description:    input.Description,
		Reference:      input.Reference,
		Memo:           input.Memo,
		Status:         status,
		SourceModule:   source,
		SourceID:       input.SourceID,
		Template:       input.template,
		TotalDebit:     debit,
		TotalCredit:    creditTotal,
		IsRecurring:    input.IsRecurring,
		FiscalPeriodID: period.ID,
		CreatedByID:    input.CreatedByID,
		CreatedAt:      ts,
		UpdatedAt:      ts,
		Lines:          toJournalLines(input.Lines),
	}
	if input.IsRecurring {
		entry.RecurringFrequency = input.RecurringFrequency
		if next, ok := input.RecurringFrequency.Next(entryDate); ok {
			entry.NextRecurringDate = &next
		}
	}
	if status == StatusPosted {
		entry.ApprovedByUserID = input.CreatedByID
		entry.ApprovedAt = &ts
		entry.PostedByUserID = input.CreatedByID
		entry.PostedAt = &ts
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextNumber(ctx, entryDate.Year())
		if err != nil {
			return err
		}
		entry.Number = number
		return tx.Insert(ctx, entry)
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, input.CreatedByID, "journal.create", entry.ID, map[string]any{
		"number":        entry.Number,
		"status":        string(entry.Status),
		"source_module": string(entry.SourceModule),
	})
	s.emitCreated(ctx, entry)
	s.logger.Info("journal entry created",
		slog.String("number", entry.Number),
		slog.String("status", string(entry.Status)),
		slog.String("total", entry.TotalDebit.StringFixed(2)),
	)
	return entry, nil
}

// UpdateJournalEntry patches a DRAFT entry, re-validating lines when present.
func (s *Service) UpdateJournalEntry(ctx context.Context, id uuid.UUID, patch UpdateInput) (JournalEntry, error) {
	if err := shared.ValidateStruct(patch); err != nil {
		return JournalEntry{}, err
	}
	if patch.Description != nil && strings.TrimSpace(*patch.Description) == "" {
		return JournalEntry{}, shared.Invalid("description", "is required")
	}
	var debit, creditTotal decimal.Decimal
	if patch.Lines != nil {
		var err error
		if debit, creditTotal, err = ValidateLines(patch.Lines); err != nil {
			return JournalEntry{}, err
		}
		if err := s.checkAccounts(ctx, patch.Lines); err != nil {
			return JournalEntry{}, err
		}
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if _, err := Transition(current.Status, ActionUpdate); err != nil {
			return err
		}
		if patch.EntryDate != nil {
			current.EntryDate = patch.EntryDate.UTC()
		}
		if patch.Description != nil {
			current.Description = *patch.Description
		}
		if patch.Reference != nil {
			current.Reference = *patch.Reference
		}
		if patch.Memo != nil {
			current.Memo = *patch.Memo
		}
		if patch.FiscalPeriodID != nil {
			current.FiscalPeriodID = *patch.FiscalPeriodID
		}
		if patch.EntryDate != nil || patch.FiscalPeriodID != nil {
			if _, err := s.resolvePeriod(ctx, &current.FiscalPeriodID, current.EntryDate); err != nil {
				return err
			}
		}
		if patch.Lines != nil {
			current.Lines = toJournalLines(patch.Lines)
			current.TotalDebit = debit
			current.TotalCredit = creditTotal
		}
		current.UpdatedAt = s.now().UTC()
		if err := tx.Update(ctx, current); err != nil {
			return err
		}
		entry = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// DeleteJournalEntry removes a DRAFT entry and its lines.
func (s *Service) DeleteJournalEntry(ctx context.Context, id uuid.UUID) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if _, err := Transition(current.Status, ActionDelete); err != nil {
			return err
		}
		return tx.Delete(ctx, id)
	})
}

// SubmitForApproval moves a DRAFT entry to PENDING_APPROVAL.
func (s *Service) SubmitForApproval(ctx context.Context, id uuid.UUID, userID string) (JournalEntry, error) {
	return s.transition(ctx, id, ActionSubmit, userID, nil)
}

// ApproveJournalEntry moves a DRAFT or PENDING_APPROVAL entry to APPROVED.
func (s *Service) ApproveJournalEntry(ctx context.Context, id uuid.UUID, userID string) (JournalEntry, error) {
	return s.transition(ctx, id, ActionApprove, userID, func(ctx context.Context, e *JournalEntry, ts time.Time) error {
		if _, err := s.periods.EnsureOpenForPosting(ctx, e.FiscalPeriodID); err != nil {
			return err
		}
		e.ApprovedByUserID = userID
		e.ApprovedAt = &ts
		return nil
	})
}

// RejectJournalEntry closes a pending or approved entry as REJECTED.
func (s *Service) RejectJournalEntry(ctx context.Context, id uuid.UUID, userID, reason string) (JournalEntry, error) {
	return s.transition(ctx, id, ActionReject, userID, func(_ context.Context, e *JournalEntry, _ time.Time) error {
		e.RejectionReason = reason
		return nil
	})
}

// CancelJournalEntry closes a pending or approved entry as CANCELLED.
func (s *Service) CancelJournalEntry(ctx context.Context, id uuid.UUID, userID string) (JournalEntry, error) {
	return s.transition(ctx, id, ActionCancel, userID, nil)
}

// PostJournalEntry moves an APPROVED entry to POSTED.
func (s *Service) PostJournalEntry(ctx context.Context, id uuid.UUID, userID string) (JournalEntry, error) {
	entry, err := s.transition(ctx, id, ActionPost, userID, func(ctx context.Context, e *JournalEntry, ts time.Time) error {
		if _, err := s.periods.EnsureOpenForPosting(ctx, e.FiscalPeriodID); err != nil {
			return err
		}
		if _, _, err := ValidateLines(linesToInput(e.Lines)); err != nil {
			return err
		}
		e.PostedByUserID = userID
		e.PostedAt = &ts
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.emit(ctx, events.JournalEntryPostedPayload{EntryID: entry.ID.String(), Number: entry.Number, PostedBy: userID})
	return entry, nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, action Action, userID string, mutate func(context.Context, *JournalEntry, time.Time) error) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		next, err := Transition(current.Status, action)
		if err != nil {
			return err
		}
		ts := s.now().UTC()
		if mutate != nil {
			if err := mutate(ctx, &current, ts); err != nil {
				return err
			}
		}
		current.Status = next
		current.UpdatedAt = ts
		if err := tx.Update(ctx, current); err != nil {
			return err
		}
		entry = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, userID, "journal."+string(action), entry.ID, map[string]any{
		"number": entry.Number,
		"status": string(entry.Status),
	})
	return entry, nil
}

// ReverseJournalEntry creates a POSTED compensating entry in the current
// period with every line's sides swapped and links the original to it.
func (s *Service) ReverseJournalEntry(ctx context.Context, id uuid.UUID, userID, description string) (JournalEntry, error) {
	period, err := s.periods.EnsureCurrentPeriod(ctx)
	if err != nil {
		return JournalEntry{}, err
	}
	var reversal JournalEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if _, err := Transition(original.Status, ActionReverse); err != nil {
			return err
		}
		if original.IsReversed() || original.IsReversing {
			return &shared.InvalidStateError{Status: "REVERSED", Action: string(ActionReverse)}
		}
		lines := ReverseLines(original.Lines)
		debit, creditTotal, err := ValidateLines(lines)
		if err != nil {
			return err
		}
		ts := s.now().UTC()
		number, err := tx.NextNumber(ctx, ts.Year())
		if err != nil {
			return err
		}
		if description == "" {
			description = "Reversal of " + original.Description
		}
		originalID := original.ID
		reversal = JournalEntry{
			ID:               uuid.New(),
			Number:           number,
			EntryDate:        ts,
			Description:      description,
			Reference:        "REV-" + original.Number,
			Status:           StatusPosted,
			SourceModule:     original.SourceModule,
			TotalDebit:       debit,
			TotalCredit:      creditTotal,
			IsReversing:      true,
			OriginalEntryID:  &originalID,
			FiscalPeriodID:   period.ID,
			CreatedByID:      userID,
			ApprovedByUserID: userID,
			ApprovedAt:       &ts,
			PostedByUserID:   userID,
			PostedAt:         &ts,
			CreatedAt:        ts,
			UpdatedAt:        ts,
			Lines:            toJournalLines(lines),
		}
		if err := tx.Insert(ctx, reversal); err != nil {
			return err
		}
		reversalID := reversal.ID
		original.ReversedByEntryID = &reversalID
		original.UpdatedAt = ts
		return tx.Update(ctx, original)
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, userID, "journal.reverse", id, map[string]any{
		"reversal_id":     reversal.ID.String(),
		"reversal_number": reversal.Number,
	})
	s.emitCreated(ctx, reversal)
	s.emit(ctx, events.JournalEntryReversedPayload{
		EntryID:         id.String(),
		ReversalEntryID: reversal.ID.String(),
		ReversalNumber:  reversal.Number,
	})
	return reversal, nil
}

// GetJournalEntry fetches one entry with its lines.
func (s *Service) GetJournalEntry(ctx context.Context, id uuid.UUID) (JournalEntry, error) {
	return s.repo.Get(ctx, id)
}

// ListJournalEntries returns one page, 50 entries by default.
func (s *Service) ListJournalEntries(ctx context.Context, filter ListFilter) (ListResult, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return ListResult{}, err
	}
	if entries == nil {
		entries = []JournalEntry{}
	}
	return ListResult{
		Entries:    entries,
		Pagination: internalShared.NewPagination(filter.Page, filter.Limit, total),
	}, nil
}

// FindBySource returns the entry linked to an upstream record.
func (s *Service) FindBySource(ctx context.Context, module SourceModule, sourceID uuid.UUID) (JournalEntry, error) {
	return s.repo.FindBySource(ctx, module, sourceID)
}

// resolvePeriod returns the open period an entry dated entryDate is filed
// in. Without an explicit id the period is looked up by date.
func (s *Service) resolvePeriod(ctx context.Context, id *uuid.UUID, entryDate time.Time) (periods.FiscalPeriod, error) {
	if s.periods == nil {
		return periods.FiscalPeriod{}, &shared.FiscalPeriodError{Reason: "no period manager configured"}
	}
	var (
		period periods.FiscalPeriod
		err    error
	)
	if id != nil {
		period, err = s.periods.EnsureOpenForPosting(ctx, *id)
	} else {
		period, err = s.periods.OpenPeriodForDate(ctx, entryDate)
	}
	if err != nil {
		return periods.FiscalPeriod{}, err
	}
	if !period.Contains(entryDate) {
		return periods.FiscalPeriod{}, &shared.FiscalPeriodError{PeriodID: period.ID.String(), Reason: "entry date is outside the period"}
	}
	return period, nil
}

func (s *Service) checkAccounts(ctx context.Context, lines []LineInput) error {
	if s.chart == nil {
		return nil
	}
	checked := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := checked[line.AccountCode]; ok {
			continue
		}
		checked[line.AccountCode] = struct{}{}
		acct, err := s.chart.GetByCode(ctx, line.AccountCode)
		if err != nil {
			if errors.Is(err, shared.ErrAccountNotFound) {
				return fmt.Errorf("%w: %w", shared.ErrAccountNotFound,
					shared.Invalid("lines", "account %s does not exist", line.AccountCode))
			}
			return err
		}
		if !acct.IsActive {
			return shared.Invalid("lines", "account %s is inactive", line.AccountCode)
		}
	}
	return nil
}

func (s *Service) accountName(ctx context.Context, code string) string {
	if s.chart == nil {
		return ""
	}
	acct, err := s.chart.GetByCode(ctx, code)
	if err != nil {
		return ""
	}
	return acct.Name
}

func (s *Service) record(ctx context.Context, actor, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: id.String(),
		Meta:     meta,
		At:       s.now(),
	}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) emit(ctx context.Context, payload events.Payload) {
	if s.bus != nil {
		s.bus.Emit(ctx, payload)
	}
}

func (s *Service) emitCreated(ctx context.Context, e JournalEntry) {
	s.emit(ctx, events.JournalEntryCreatedPayload{
		EntryID:      e.ID.String(),
		Number:       e.Number,
		Status:       string(e.Status),
		SourceModule: string(e.SourceModule),
		Total:        e.TotalDebit,
	})
}

func linesToInput(lines []JournalLine) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineInput{AccountCode: l.AccountCode, Description: l.Description, Debit: l.Debit, Credit: l.Credit})
	}
	return out
}
