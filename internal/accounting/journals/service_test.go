package journals

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/roofing-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/roofing-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/roofing-ledger/internal/events"
	internalShared "github.com/odyssey-erp/roofing-ledger/internal/shared"
)

var fixedNow = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	periods *periods.Service
	bus     *events.Bus
	audit   *internalShared.MemoryAuditLog
	chart   *accounts.MemoryRepository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	bus := events.NewBus()
	periodSvc := periods.NewService(periods.NewMemoryRepository(), bus, nil)
	periodSvc.WithNow(func() time.Time { return fixedNow })
	chart := accounts.NewMemoryRepository(accounts.RoofingChart()...)
	audit := &internalShared.MemoryAuditLog{}
	svc := NewService(NewMemoryRepository(), periodSvc,
		WithChart(accounts.NewService(chart)),
		WithEmitter(bus),
		WithAudit(audit),
	)
	svc.WithNow(func() time.Time { return fixedNow })
	return fixture{svc: svc, periods: periodSvc, bus: bus, audit: audit, chart: chart}
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func pair(debitCode, creditCode, amount string) []LineInput {
	return []LineInput{
		{AccountCode: debitCode, Debit: d(amount)},
		{AccountCode: creditCode, Credit: d(amount)},
	}
}

func (f fixture) posted(t *testing.T, lines []LineInput) JournalEntry {
	t.Helper()
	ctx := context.Background()
	entry, err := f.svc.CreateJournalEntry(ctx, CreateInput{Description: "Job 42 invoice", Lines: lines})
	require.NoError(t, err)
	_, err = f.svc.ApproveJournalEntry(ctx, entry.ID, "controller")
	require.NoError(t, err)
	entry, err = f.svc.PostJournalEntry(ctx, entry.ID, "controller")
	require.NoError(t, err)
	return entry
}

func TestCreateBalancedEntryStartsDraft(t *testing.T) {
	f := newFixture(t)
	entry, err := f.svc.CreateJournalEntry(context.Background(), CreateInput{
		Description: "Residential re-roof deposit",
		Lines:       pair("1010", "4010", "100"),
	})
	require.NoError(t, err)

	assert.Equal(t, StatusDraft, entry.Status)
	assert.Equal(t, "JE-2025-000001", entry.Number)
	assert.True(t, entry.TotalDebit.Equal(d("100")))
	assert.True(t, entry.TotalCredit.Equal(d("100")))
	assert.False(t, entry.IsPosted())
	require.Len(t, entry.Lines, 2)
	assert.Equal(t, 1, entry.Lines[0].LineNumber)
	assert.Equal(t, 2, entry.Lines[1].LineNumber)

	current, err := f.periods.GetCurrentFiscalPeriod(context.Background())
	require.NoError(t, err)
	assert.Equal(t, current.ID, entry.FiscalPeriodID)
	assert.Equal(t, "March 2025", current.Name)
	assert.Len(t, f.bus.GetEvents("fiscal-period-created"), 1)
	assert.Len(t, f.bus.GetEvents("journal-entry-created"), 1)
}

func TestCreateUnbalancedEntryReportsTotals(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateJournalEntry(context.Background(), CreateInput{
		Description: "Mismatched",
		Lines: []LineInput{
			{AccountCode: "1010", Debit: d("100")},
			{AccountCode: "4010", Credit: d("90")},
		},
	})
	require.Error(t, err)
	var unbalanced *shared.UnbalancedEntryError
	require.True(t, errors.As(err, &unbalanced))
	assert.True(t, unbalanced.Debit.Equal(d("100")))
	assert.True(t, unbalanced.Credit.Equal(d("90")))
	assert.Equal(t, "Total debits (100.00) must equal total credits (90.00)", err.Error())
}

func TestLineShapeRules(t *testing.T) {
	f := newFixture(t)
	cases := map[string][]LineInput{
		"single line":  {{AccountCode: "1010", Debit: d("10")}},
		"both sides":   {{AccountCode: "1010", Debit: d("10"), Credit: d("10")}, {AccountCode: "4010", Credit: d("10")}},
		"negative":     {{AccountCode: "1010", Debit: d("-10")}, {AccountCode: "4010", Credit: d("-10")}},
		"zero line":    {{AccountCode: "1010", Debit: d("10")}, {AccountCode: "4010", Credit: d("10")}, {AccountCode: "6000"}},
		"unknown code": pair("1010", "9999", "10"),
		"missing code": {{Debit: d("10")}, {AccountCode: "4010", Credit: d("10")}},
	}
	for name, lines := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateJournalEntry(context.Background(), CreateInput{Description: name, Lines: lines})
			assert.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestInactiveAccountRejected(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.chart.SetActive("4010", false))
	_, err := f.svc.CreateJournalEntry(context.Background(), CreateInput{Description: "x", Lines: pair("1010", "4010", "10")})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestDoubleEntryPropertyRandomLines(t *testing.T) {
	f := newFixture(t)
	rng := rand.New(rand.NewSource(42))
	debitCodes := []string{"1010", "1200", "5100", "6250"}
	creditCodes := []string{"1100", "2100", "4010", "2200"}

	for i := 0; i < 200; i++ {
		var lines []LineInput
		total := int64(0)
		for n := 1 + rng.Intn(3); n > 0; n-- {
			cents := int64(100 + rng.Intn(100000))
			total += cents
			lines = append(lines, LineInput{AccountCode: debitCodes[rng.Intn(len(debitCodes))], Debit: decimal.New(cents, -2)})
		}
		m := int64(1 + rng.Intn(3))
		remaining := total
		for k := int64(0); k < m; k++ {
			part := total / m
			if k == m-1 {
				part = remaining
			}
			remaining -= part
			lines = append(lines, LineInput{AccountCode: creditCodes[rng.Intn(len(creditCodes))], Credit: decimal.New(part, -2)})
		}

		if rng.Intn(2) == 0 {
			entry, err := f.svc.CreateJournalEntry(context.Background(), CreateInput{Description: "balanced", Lines: lines})
			require.NoError(t, err, "iteration %d", i)
			assert.True(t, shared.Balanced(entry.TotalDebit, entry.TotalCredit))
			continue
		}
		delta := int64(2 + rng.Intn(5000))
		lines[0].Debit = lines[0].Debit.Add(decimal.New(delta, -2))
		_, err := f.svc.CreateJournalEntry(context.Background(), CreateInput{Description: "unbalanced", Lines: lines})
		assert.ErrorIs(t, err, shared.ErrUnbalanced, "iteration %d", i)
	}
}

func TestToleranceOfOneCent(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateJournalEntry(context.Background(), CreateInput{
		Description: "rounding",
		Lines: []LineInput{
			{AccountCode: "1010", Debit: d("100.01")},
			{AccountCode: "4010", Credit: d("100.00")},
		},
	})
	assert.NoError(t, err)
}

func TestLifecycleToPosted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry, err := f.svc.CreateJournalEntry(ctx, CreateInput{Description: "Shingles", Lines: pair("1300", "2100", "640")})
	require.NoError(t, err)

	entry, err = f.svc.SubmitForApproval(ctx, entry.ID, "clerk")
	require.NoError(t, err)
	assert.Equal(t, StatusPendingApproval, entry.Status)

	entry, err = f.svc.ApproveJournalEntry(ctx, entry.ID, "controller")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, entry.Status)
	assert.Equal(t, "controller", entry.ApprovedByUserID)
	require.NotNil(t, entry.ApprovedAt)

	entry, err = f.svc.PostJournalEntry(ctx, entry.ID, "owner")
	require.NoError(t, err)
	assert.True(t, entry.IsPosted())
	assert.Equal(t, "owner", entry.PostedByUserID)
	assert.Len(t, f.bus.GetEvents("^accounting:journal-entry-posted$"), 1)

	actions := []string{}
	for _, log := range f.audit.Entries() {
		actions = append(actions, log.Action)
	}
	assert.Equal(t, []string{"journal.create", "journal.submit", "journal.approve", "journal.post"}, actions)
}

func TestPostedEntriesAreImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry := f.posted(t, pair("1010", "4010", "75"))

	desc := "edited"
	_, err := f.svc.UpdateJournalEntry(ctx, entry.ID, UpdateInput{Description: &desc})
	var stateErr *shared.InvalidStateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, "POSTED", stateErr.Status)
	assert.Equal(t, "cannot update journal entry in POSTED status", err.Error())

	assert.ErrorIs(t, f.svc.DeleteJournalEntry(ctx, entry.ID), shared.ErrInvalidState)
	for _, fn := range []func() (JournalEntry, error){
		func() (JournalEntry, error) { return f.svc.SubmitForApproval(ctx, entry.ID, "u") },
		func() (JournalEntry, error) { return f.svc.ApproveJournalEntry(ctx, entry.ID, "u") },
		func() (JournalEntry, error) { return f.svc.PostJournalEntry(ctx, entry.ID, "u") },
		func() (JournalEntry, error) { return f.svc.RejectJournalEntry(ctx, entry.ID, "u", "no") },
		func() (JournalEntry, error) { return f.svc.CancelJournalEntry(ctx, entry.ID, "u") },
	} {
		_, err := fn()
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	}
	still, err := f.svc.GetJournalEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, still.Status)
}

func TestPostRequiresApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry, err := f.svc.CreateJournalEntry(ctx, CreateInput{Description: "x", Lines: pair("1010", "4010", "5")})
	require.NoError(t, err)
	_, err = f.svc.PostJournalEntry(ctx, entry.ID, "u")
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = f.svc.RejectJournalEntry(ctx, entry.ID, "u", "draft cannot be rejected")
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestRejectAndCancelAreTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.svc.CreateJournalEntry(ctx, CreateInput{Description: "a", Lines: pair("1010", "4010", "5")})
	require.NoError(t, err)
	_, err = f.svc.SubmitForApproval(ctx, a.ID, "clerk")
	require.NoError(t, err)
	rejected, err := f.svc.RejectJournalEntry(ctx, a.ID, "controller", "wrong customer")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Equal(t, "wrong customer", rejected.RejectionReason)
	_, err = f.svc.ApproveJournalEntry(ctx, a.ID, "controller")
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	b, err := f.svc.CreateJournalEntry(ctx, CreateInput{Description: "b", Lines: pair("1010", "4010", "5")})
	require.NoError(t, err)
	_, err = f.svc.ApproveJournalEntry(ctx, b.ID, "controller")
	require.NoError(t, err)
	cancelled, err := f.svc.CancelJournalEntry(ctx, b.ID, "controller")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	_, err = f.svc.PostJournalEntry(ctx, b.ID, "controller")
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestUpdateDraftRevalidatesLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry, err := f.svc.CreateJournalEntry(ctx, CreateInput{Description: "draft", Lines: pair("1010", "4010", "100")})
	require.NoError(t, err)

	_, err = f.svc.UpdateJournalEntry(ctx, entry.ID, UpdateInput{Lines: []LineInput{
		{AccountCode: "1010", Debit: d("100")},
		{AccountCode: "4010", Credit: d("80")},
	}})
	assert.ErrorIs(t, err, shared.ErrUnbalanced)

	ref := "INV-7"
	updated, err := f.svc.UpdateJournalEntry(ctx, entry.ID, UpdateInput{
		Reference: &ref,
		Lines: []LineInput{
			{AccountCode: "1010", Debit: d("120")},
			{AccountCode: "4010", Credit: d("100")},
			{AccountCode: "2200", Credit: d("20")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-7", updated.Reference)
	require.Len(t, updated.Lines, 3)
	assert.Equal(t, 3, updated.Lines[2].LineNumber)
	assert.True(t, updated.TotalDebit.Equal(d("120")))
	assert.Equal(t, entry.Number, updated.Number)

	require.NoError(t, f.svc.DeleteJournalEntry(ctx, entry.ID))
	_, err = f.svc.GetJournalEntry(ctx, entry.ID)
	assert.ErrorIs(t, err, shared.ErrJournalNotFound)
}

func TestReverseSwapsEveryLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	original := f.posted(t, pair("1010", "4010", "250"))

	reversal, err := f.svc.ReverseJournalEntry(ctx, original.ID, "controller", "")
	require.NoError(t, err)

	assert.Equal(t, StatusPosted, reversal.Status)
	assert.True(t, reversal.IsReversing)
	require.NotNil(t, reversal.OriginalEntryID)
	assert.Equal(t, original.ID, *reversal.OriginalEntryID)
	assert.Equal(t, "Reversal of Job 42 invoice", reversal.Description)
	assert.Equal(t, "REV-"+original.Number, reversal.Reference)
	assert.Equal(t, "JE-2025-000002", reversal.Number)
	assert.True(t, reversal.TotalDebit.Equal(original.TotalCredit))
	assert.True(t, reversal.TotalCredit.Equal(original.TotalDebit))

	require.Len(t, reversal.Lines, len(original.Lines))
	for i := range original.Lines {
		assert.Equal(t, original.Lines[i].AccountCode, reversal.Lines[i].AccountCode)
		assert.True(t, original.Lines[i].Debit.Equal(reversal.Lines[i].Credit))
		assert.True(t, original.Lines[i].Credit.Equal(reversal.Lines[i].Debit))
	}
	assert.Equal(t, "4010", reversal.Lines[1].AccountCode)
	assert.True(t, reversal.Lines[1].Debit.Equal(d("250")))

	reloaded, err := f.svc.GetJournalEntry(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, reloaded.Status)
	require.NotNil(t, reloaded.ReversedByEntryID)
	assert.Equal(t, reversal.ID, *reloaded.ReversedByEntryID)

	_, err = f.svc.ReverseJournalEntry(ctx, original.ID, "controller", "")
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	_, err = f.svc.ReverseJournalEntry(ctx, reversal.ID, "controller", "")
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	reversed := f.bus.GetEvents("journal-entry-reversed")
	require.Len(t, reversed, 1)
	payload := reversed[0].Payload.(events.JournalEntryReversedPayload)
	assert.Equal(t, reversal.Number, payload.ReversalNumber)
}

func TestReverseRequiresPosted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry, err := f.svc.CreateJournalEntry(ctx, CreateInput{Description: "draft", Lines: pair("1010", "4010", "10")})
	require.NoError(t, err)
	_, err = f.svc.ReverseJournalEntry(ctx, entry.ID, "u", "")
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestClosedPeriodBlocksCreationAndPosting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	period, err := f.periods.EnsureCurrentPeriod(ctx)
	require.NoError(t, err)

	entry, err := f.svc.CreateJournalEntry(ctx, CreateInput{Description: "late", FiscalPeriodID: &period.ID, Lines: pair("1010", "4010", "10")})
	require.NoError(t, err)
	_, err = f.svc.ApproveJournalEntry(ctx, entry.ID, "controller")
	require.NoError(t, err)

	_, err = f.periods.ClosePeriod(ctx, period.ID)
	require.NoError(t, err)

	_, err = f.svc.PostJournalEntry(ctx, entry.ID, "controller")
	assert.ErrorIs(t, err, shared.ErrFiscalPeriod)

	_, err = f.svc.CreateJournalEntry(ctx, CreateInput{Description: "x", FiscalPeriodID: &period.ID, Lines: pair("1010", "4010", "10")})
	assert.ErrorIs(t, err, shared.ErrFiscalPeriod)

	missing := uuid.New()
	_, err = f.svc.CreateJournalEntry(ctx, CreateInput{Description: "x", FiscalPeriodID: &missing, Lines: pair("1010", "4010", "10")})
	assert.ErrorIs(t, err, shared.ErrFiscalPeriod)
}

func periodNamed(t *testing.T, all []periods.FiscalPeriod, name string) periods.FiscalPeriod {
	t.Helper()
	for _, p := range all {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("period %q not generated", name)
	return periods.FiscalPeriod{}
}

func TestEntryDateSelectsOpenPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	backdated := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := f.svc.CreateJournalEntry(ctx, CreateInput{Description: "backdated", EntryDate: backdated, Lines: pair("1010", "4010", "10")})
	assert.ErrorIs(t, err, shared.ErrFiscalPeriod)
	page, err := f.svc.ListJournalEntries(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, page.Entries)

	generated, err := f.periods.GenerateFiscalPeriodsForYear(ctx, 2024)
	require.NoError(t, err)
	june := periodNamed(t, generated, "June 2024")

	entry, err := f.svc.CreateJournalEntry(ctx, CreateInput{
		Description: "June shingles",
		EntryDate:   time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		Lines:       pair("1300", "2000", "250"),
	})
	require.NoError(t, err)
	assert.Equal(t, june.ID, entry.FiscalPeriodID)
	assert.Equal(t, "JE-2024-000001", entry.Number)

	_, err = f.periods.ClosePeriod(ctx, june.ID)
	require.NoError(t, err)
	entry, err = f.svc.CreateJournalEntry(ctx, CreateInput{
		Description: "Late June fuel",
		EntryDate:   time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC),
		Lines:       pair("6250", "1010", "40"),
	})
	require.NoError(t, err)
	q2 := periodNamed(t, generated, "Q2 2024")
	assert.Equal(t, q2.ID, entry.FiscalPeriodID)

	_, err = f.svc.CreateJournalEntry(ctx, CreateInput{
		Description:    "Wrong period",
		EntryDate:      time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		FiscalPeriodID: &q2.ID,
		Lines:          pair("6250", "1010", "40"),
	})
	assert.ErrorIs(t, err, shared.ErrFiscalPeriod)
}

func TestUpdateKeepsEntryDateInsidePeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry, err := f.svc.CreateJournalEntry(ctx, CreateInput{Description: "draft", Lines: pair("1010", "4010", "100")})
	require.NoError(t, err)

	backdated := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.svc.UpdateJournalEntry(ctx, entry.ID, UpdateInput{EntryDate: &backdated})
	assert.ErrorIs(t, err, shared.ErrFiscalPeriod)
	stored, err := f.svc.GetJournalEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, stored.EntryDate.Equal(fixedNow))

	early := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	updated, err := f.svc.UpdateJournalEntry(ctx, entry.ID, UpdateInput{EntryDate: &early})
	require.NoError(t, err)
	assert.True(t, updated.EntryDate.Equal(early))

	generated, err := f.periods.GenerateFiscalPeriodsForYear(ctx, 2024)
	require.NoError(t, err)
	june := periodNamed(t, generated, "June 2024")
	_, err = f.svc.UpdateJournalEntry(ctx, entry.ID, UpdateInput{FiscalPeriodID: &june.ID})
	assert.ErrorIs(t, err, shared.ErrFiscalPeriod)

	juneDate := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)
	updated, err = f.svc.UpdateJournalEntry(ctx, entry.ID, UpdateInput{EntryDate: &juneDate, FiscalPeriodID: &june.ID})
	require.NoError(t, err)
	assert.Equal(t, june.ID, updated.FiscalPeriodID)
}

func TestQuickEntryCustomerPayment(t *testing.T) {
	f := newFixture(t)
	entry, err := f.svc.CreateQuickEntry(context.Background(), QuickEntryRequest{
		Template:  "customer-payment",
		Amount:    d("500"),
		Reference: "INV-1001",
		Vendor:    "Hill residence",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPosted, entry.Status)
	assert.Equal(t, SourceAccountsReceivable, entry.SourceModule)
	assert.Equal(t, "customer-payment", entry.Template)
	assert.Equal(t, "Customer Payment Received - Hill residence - INV-1001", entry.Description)
	require.Len(t, entry.Lines, 2)
	assert.Equal(t, "1010", entry.Lines[0].AccountCode)
	assert.True(t, entry.Lines[0].Debit.Equal(d("500")))
	assert.Equal(t, "1100", entry.Lines[1].AccountCode)
	assert.True(t, entry.Lines[1].Credit.Equal(d("500")))
	assert.True(t, entry.TotalDebit.Equal(entry.TotalCredit))
}

func TestQuickEntryPayrollSampleDoesNotBalance(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateQuickEntry(context.Background(), QuickEntryRequest{
		Template: "payroll",
		Amount:   d("1000"),
		Fields:   map[string]decimal.Decimal{"netPayAmount": d("850")},
	})
	var unbalanced *shared.UnbalancedEntryError
	require.True(t, errors.As(err, &unbalanced))
	assert.True(t, unbalanced.Debit.Equal(d("1076.50")))
	assert.True(t, unbalanced.Credit.Equal(d("926.50")))

	list, err := f.svc.ListJournalEntries(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list.Entries)
}

func TestQuickEntryRejectsUnknownTemplateAndBadAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateQuickEntry(ctx, QuickEntryRequest{Template: "gold-plating", Amount: d("1")})
	assert.ErrorIs(t, err, shared.ErrValidation)
	_, err = f.svc.CreateQuickEntry(ctx, QuickEntryRequest{Template: "fuel_purchase", Amount: d("0")})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestQuickEntrySourceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	source := uuid.NewSHA1(uuid.Nil, []byte("invoice:INV-9"))
	req := QuickEntryRequest{Template: "customer-payment", Amount: d("40"), SourceID: &source}

	first, err := f.svc.CreateQuickEntry(ctx, req)
	require.NoError(t, err)
	_, err = f.svc.CreateQuickEntry(ctx, req)
	assert.ErrorIs(t, err, shared.ErrSourceAlreadyLinked)

	found, err := f.svc.FindBySource(ctx, SourceAccountsReceivable, source)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestWizardLoanPaymentSplitsPrincipal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry, err := f.svc.CreateWizardEntry(ctx, QuickEntryRequest{
		Template:    "loan-payment",
		Amount:      d("1200"),
		Description: "Skid steer loan March",
		Fields:      map[string]decimal.Decimal{"interestAmount": d("200")},
	})
	require.NoError(t, err)
	require.Len(t, entry.Lines, 3)
	assert.Equal(t, "7300", entry.Lines[0].AccountCode)
	assert.True(t, entry.Lines[0].Debit.Equal(d("200")))
	assert.Equal(t, "2300", entry.Lines[1].AccountCode)
	assert.True(t, entry.Lines[1].Debit.Equal(d("1000")))
	assert.True(t, entry.Lines[2].Credit.Equal(d("1200")))
	assert.Equal(t, "Skid steer loan March", entry.Description)

	_, err = f.svc.CreateWizardEntry(ctx, QuickEntryRequest{Template: "loan-payment", Amount: d("1200"), Description: "x"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.CreateWizardEntry(ctx, QuickEntryRequest{Template: "loan-payment", Amount: d("100"), Description: "x",
		Fields: map[string]decimal.Decimal{"interestAmount": d("150")}})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.CreateWizardEntry(ctx, QuickEntryRequest{Template: "fuel_purchase", Amount: d("10"), Description: "x"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.CreateWizardEntry(ctx, QuickEntryRequest{Template: "cash-sale", Amount: d("10")})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestEveryTemplateResolvesAgainstChart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, tmpl := range f.svc.Templates().List("") {
		for _, line := range tmpl.Lines {
			_, err := f.chart.GetByCode(ctx, line.AccountCode)
			assert.NoError(t, err, "%s uses %s", tmpl.Key, line.AccountCode)
		}
	}
}

func TestListJournalEntriesPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := f.svc.CreateJournalEntry(ctx, CreateInput{Description: "e", Lines: pair("1010", "4010", "1")})
		require.NoError(t, err)
	}
	f.posted(t, pair("1010", "4010", "2"))

	page, err := f.svc.ListJournalEntries(ctx, ListFilter{Page: 3, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, "JE-2025-000005", page.Entries[0].Number)
	assert.Equal(t, 6, page.Pagination.Total)
	assert.Equal(t, 3, page.Pagination.TotalPages)

	posted, err := f.svc.ListJournalEntries(ctx, ListFilter{Status: StatusPosted})
	require.NoError(t, err)
	require.Len(t, posted.Entries, 1)
	assert.Equal(t, 50, posted.Pagination.PerPage)
}

func TestTrialBalanceCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.posted(t, pair("1010", "4010", "250"))
	f.posted(t, pair("5100", "1010", "100"))
	_, err := f.svc.CreateJournalEntry(ctx, CreateInput{Description: "draft ignored", Lines: pair("1010", "4010", "999")})
	require.NoError(t, err)

	tb, err := f.svc.TrialBalanceCheck(ctx, a.FiscalPeriodID)
	require.NoError(t, err)
	assert.Equal(t, 2, tb.Entries)
	assert.True(t, tb.Balanced())
	assert.True(t, tb.TotalDebit.Equal(d("350")))
	require.Len(t, tb.Accounts, 3)
	assert.Equal(t, "1010", tb.Accounts[0].Code)
	assert.True(t, tb.Accounts[0].Net().Equal(d("150")))

	broken := a
	broken.Lines = append([]JournalLine(nil), a.Lines...)
	broken.Lines[0].Debit = d("300")
	assert.False(t, BuildTrialBalance(a.FiscalPeriodID, []JournalEntry{broken}).Balanced())
}

func TestGetAccountSuggestions(t *testing.T) {
	assert.ElementsMatch(t, []string{"6250"}, GetAccountSuggestions("Gas for F-250"))
	assert.ElementsMatch(t, []string{"1300", "5000", "1500", "2100"}, GetAccountSuggestions("Shingle delivery truck, nails and material"))
	assert.ElementsMatch(t, []string{"1010", "1200"}, GetAccountSuggestions("Customer payment received"))
	assert.ElementsMatch(t, []string{"6400"}, GetAccountSuggestions("Labor for subcontractor crew"))
	assert.Empty(t, GetAccountSuggestions("miscellaneous"))
}

func TestTransitionTable(t *testing.T) {
	next, err := Transition(StatusDraft, ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, next)

	for _, s := range []Status{StatusPosted, StatusRejected, StatusCancelled} {
		for _, a := range []Action{ActionUpdate, ActionDelete, ActionSubmit, ActionApprove, ActionPost} {
			_, err := Transition(s, a)
			assert.ErrorIs(t, err, shared.ErrInvalidState, "%s/%s", s, a)
		}
	}
}
