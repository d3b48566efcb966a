package journals

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/shared"
)

// QuickEntryRequest generates an entry from a template and a single amount.
type QuickEntryRequest struct {
	Template       string                     `json:"template" validate:"required"`
	Amount         decimal.Decimal            `json:"amount"`
	Description    string                     `json:"description"`
	Reference      string                     `json:"reference"`
	Vendor         string                     `json:"vendor"`
	Fields         map[string]decimal.Decimal `json:"fields"`
	FiscalPeriodID *uuid.UUID                 `json:"fiscalPeriodId"`
	CreatedByID    string                     `json:"createdById"`
	// SourceID makes the entry idempotent per template source module.
	SourceID *uuid.UUID `json:"sourceId"`
}

// CreateQuickEntry resolves the template lines and stores the entry as
// POSTED. An unbalanced template result is rejected, never plugged.
func (s *Service) CreateQuickEntry(ctx context.Context, req QuickEntryRequest) (JournalEntry, error) {
	if err := shared.ValidateStruct(req); err != nil {
		return JournalEntry{}, err
	}
	tmpl, ok := s.templates.Lookup(req.Template)
	if !ok {
		return JournalEntry{}, shared.Invalid("template", "unknown template %q", req.Template)
	}
	return s.fromTemplate(ctx, tmpl, req)
}

// CreateWizardEntry is the guided variant: the template must belong to the
// wizard family, a description is required and every prompt must be given.
func (s *Service) CreateWizardEntry(ctx context.Context, req QuickEntryRequest) (JournalEntry, error) {
	if err := shared.ValidateStruct(req); err != nil {
		return JournalEntry{}, err
	}
	tmpl, ok := s.templates.Lookup(req.Template)
	if !ok || tmpl.Family != FamilyWizard {
		return JournalEntry{}, shared.Invalid("template", "unknown wizard template %q", req.Template)
	}
	if strings.TrimSpace(req.Description) == "" {
		return JournalEntry{}, shared.Invalid("description", "is required")
	}
	for _, field := range tmpl.Prompts() {
		if _, ok := req.Fields[field]; !ok {
			return JournalEntry{}, shared.Invalid(field, "is required for %s", tmpl.Name)
		}
	}
	return s.fromTemplate(ctx, tmpl, req)
}

func (s *Service) fromTemplate(ctx context.Context, tmpl TransactionTemplate, req QuickEntryRequest) (JournalEntry, error) {
	if !req.Amount.IsPositive() {
		return JournalEntry{}, shared.Invalid("amount", "must be greater than zero")
	}
	lines, err := tmpl.Build(ResolveInput{Amount: req.Amount, Fields: req.Fields}, func(tl TemplateLine) string {
		desc := tl.Description
		if name := s.accountName(ctx, tl.AccountCode); name != "" && !strings.EqualFold(name, desc) {
			desc = name + " - " + desc
		}
		if req.Description != "" {
			desc += " - " + req.Description
		}
		return desc
	})
	if err != nil {
		return JournalEntry{}, err
	}
	description := req.Description
	if description == "" {
		description = joinNonEmpty(" - ", tmpl.Name, req.Vendor, req.Reference)
	}
	return s.create(ctx, CreateInput{
		Description:    description,
		Reference:      req.Reference,
		SourceModule:   tmpl.SourceModule,
		SourceID:       req.SourceID,
		FiscalPeriodID: req.FiscalPeriodID,
		CreatedByID:    req.CreatedByID,
		Lines:          lines,
		template:       tmpl.Key,
	}, StatusPosted)
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
