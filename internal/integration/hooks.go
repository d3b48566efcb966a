package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/roofing-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/roofing-ledger/internal/events"
)

// Account codes used by the job-cost accrual.
const (
	JobCostAccount       = "5000"
	JobCostAccrualCredit = "2100"
)

// InvoicePaymentTemplate is the quick template applied to paid invoices.
const InvoicePaymentTemplate = "customer-payment"

// Ledger exposes the journal operations required by integrations.
type Ledger interface {
	CreateJournalEntry(ctx context.Context, input journals.CreateInput) (journals.JournalEntry, error)
	CreateQuickEntry(ctx context.Context, req journals.QuickEntryRequest) (journals.JournalEntry, error)
}

// Subscriber is the listener side of the bus.
type Subscriber interface {
	OnFunc(name events.Name, fn events.ListenerFunc, opts ...events.HandlerOption) func()
}

// LedgerHooks turn operational events into journal entries.
type LedgerHooks struct {
	ledger Ledger
	logger *slog.Logger
}

// NewLedgerHooks constructs integration hooks.
func NewLedgerHooks(ledger Ledger, logger *slog.Logger) *LedgerHooks {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerHooks{ledger: ledger, logger: logger}
}

// Attach subscribes the hooks and returns a func that removes them.
func (h *LedgerHooks) Attach(bus Subscriber) func() {
	offs := []func(){
		bus.OnFunc(events.InvoicePaid, h.onInvoicePaid),
		bus.OnFunc(events.JobCostAdded, h.onJobCostAdded),
		bus.OnFunc(events.MaterialDelivered, h.onMaterialDelivered),
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

func (h *LedgerHooks) onInvoicePaid(ctx context.Context, evt events.Event) error {
	payload, ok := evt.Payload.(events.InvoicePaidPayload)
	if !ok {
		return fmt.Errorf("integration: unexpected payload %T for %s", evt.Payload, evt.Name)
	}
	return h.HandleInvoicePaid(ctx, payload)
}

func (h *LedgerHooks) onJobCostAdded(ctx context.Context, evt events.Event) error {
	payload, ok := evt.Payload.(events.JobCostAddedPayload)
	if !ok {
		return fmt.Errorf("integration: unexpected payload %T for %s", evt.Payload, evt.Name)
	}
	return h.HandleJobCostAdded(ctx, payload)
}

// Material movements carry quantities only; valuation happens when the
// supplier bill is entered.
func (h *LedgerHooks) onMaterialDelivered(_ context.Context, evt events.Event) error {
	if payload, ok := evt.Payload.(events.MaterialDeliveredPayload); ok {
		h.logger.Debug("material delivered",
			slog.String("material", payload.MaterialID),
			slog.String("project", payload.ProjectID),
			slog.String("quantity", payload.Quantity.String()),
		)
	}
	return nil
}

// HandleInvoicePaid posts the cash receipt for a paid invoice.
func (h *LedgerHooks) HandleInvoicePaid(ctx context.Context, evt events.InvoicePaidPayload) error {
	if h == nil || h.ledger == nil {
		return nil
	}
	if evt.InvoiceID == "" {
		return errors.New("integration: invoice id required")
	}
	if !evt.Amount.IsPositive() {
		return nil
	}
	sourceID := SourceID("INVOICE", evt.InvoiceID)
	_, err := h.ledger.CreateQuickEntry(ctx, journals.QuickEntryRequest{
		Template:    InvoicePaymentTemplate,
		Amount:      evt.Amount.Round(2),
		Reference:   evt.InvoiceID,
		SourceID:    &sourceID,
		CreatedByID: "integration",
	})
	return h.settle(evt.InvoiceID, err)
}

// HandleJobCostAdded accrues a project cost as a DRAFT entry for review.
func (h *LedgerHooks) HandleJobCostAdded(ctx context.Context, evt events.JobCostAddedPayload) error {
	if h == nil || h.ledger == nil {
		return nil
	}
	entry := evt.CostEntry
	if entry.ID == "" {
		return errors.New("integration: cost entry id required")
	}
	amount := entry.TotalCost
	if amount.IsZero() {
		amount = entry.Quantity.Mul(entry.UnitCost)
	}
	amount = amount.Round(2)
	if !amount.GreaterThan(decimal.Zero) {
		return nil
	}
	sourceID := SourceID("JOBCOST", evt.ProjectID+":"+entry.ID)
	memo := fmt.Sprintf("Job cost accrual %s - %s", evt.ProjectID, entry.Description)
	_, err := h.ledger.CreateJournalEntry(ctx, journals.CreateInput{
		EntryDate:    entry.Date,
		Description:  memo,
		Reference:    entry.ID,
		SourceModule: journals.SourceIntegration,
		SourceID:     &sourceID,
		CreatedByID:  "integration",
		Lines: []journals.LineInput{
			{AccountCode: JobCostAccount, Description: entry.Category + " cost", Debit: amount, ProjectID: evt.ProjectID},
			{AccountCode: JobCostAccrualCredit, Description: "Accrued " + entry.Category, Credit: amount, ProjectID: evt.ProjectID},
		},
	})
	return h.settle(entry.ID, err)
}

// settle treats an already linked source as success.
func (h *LedgerHooks) settle(source string, err error) error {
	if errors.Is(err, shared.ErrSourceAlreadyLinked) {
		h.logger.Debug("integration source already posted", slog.String("source", source))
		return nil
	}
	return err
}

// SourceID derives the deterministic idempotency key for an external record.
func SourceID(kind, id string) uuid.UUID {
	return uuid.NewSHA1(uuid.Nil, []byte(kind+":"+id))
}
