package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/roofing-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/roofing-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/roofing-ledger/internal/consistency"
	"github.com/odyssey-erp/roofing-ledger/internal/crm"
	"github.com/odyssey-erp/roofing-ledger/internal/events"
	jobmetrics "github.com/odyssey-erp/roofing-ledger/internal/jobs"
)

var fixedNow = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

func newMetrics(t *testing.T) (*jobmetrics.Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return jobmetrics.NewMetrics(reg), reg
}

func counter(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func newLedger(t *testing.T) (*periods.Service, *journals.Service) {
	t.Helper()
	bus := events.NewBus()
	periodSvc := periods.NewService(periods.NewMemoryRepository(), bus, nil)
	periodSvc.WithNow(func() time.Time { return fixedNow })
	svc := journals.NewService(journals.NewMemoryRepository(), periodSvc,
		journals.WithChart(accounts.NewService(accounts.NewMemoryRepository(accounts.RoofingChart()...))),
		journals.WithEmitter(bus),
	)
	svc.WithNow(func() time.Time { return fixedNow })
	return periodSvc, svc
}

func TestIntegrityJobBalancedYear(t *testing.T) {
	ctx := context.Background()
	periodSvc, ledger := newLedger(t)
	_, err := ledger.CreateQuickEntry(ctx, journals.QuickEntryRequest{
		Template: "customer-payment", Amount: decimal.NewFromInt(1250), Reference: "INV-1",
	})
	require.NoError(t, err)

	metrics, reg := newMetrics(t)
	job := NewIntegrityJob(periodSvc, ledger, nil, metrics)
	job.clock = func() time.Time { return fixedNow }

	task, err := NewIntegrityTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, task))

	result, err := job.Run(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, 2025, result.Year)
	assert.Equal(t, 1, result.Entries)
	assert.NotZero(t, result.Periods)
	assert.Empty(t, result.Unbalanced)
	assert.Equal(t, float64(2), counter(t, reg, "roofing_jobs_total", map[string]string{"job": TaskLedgerIntegrity, "status": "success"}))
	assert.Zero(t, counter(t, reg, "roofing_job_findings_total", nil))
}

type skewedLedger struct {
	err error
}

func (l skewedLedger) TrialBalanceCheck(_ context.Context, periodID uuid.UUID) (journals.TrialBalance, error) {
	if l.err != nil {
		return journals.TrialBalance{}, l.err
	}
	return journals.TrialBalance{
		PeriodID:    periodID,
		Entries:     1,
		TotalDebit:  decimal.NewFromInt(100),
		TotalCredit: decimal.NewFromInt(90),
		Unbalanced:  []string{"JE-2025-0001"},
	}, nil
}

type staticPeriods []periods.FiscalPeriod

func (p staticPeriods) List(context.Context, periods.ListFilter) ([]periods.FiscalPeriod, error) {
	return p, nil
}

func TestIntegrityJobCountsUnbalancedEntries(t *testing.T) {
	metrics, reg := newMetrics(t)
	list := staticPeriods{{ID: uuid.New(), Name: "March 2025"}, {ID: uuid.New(), Name: "April 2025"}}
	job := NewIntegrityJob(list, skewedLedger{}, nil, metrics)

	result, err := job.Run(context.Background(), 2025)
	require.NoError(t, err)
	assert.Equal(t, []string{"JE-2025-0001", "JE-2025-0001"}, result.Unbalanced)
	assert.Equal(t, float64(2), counter(t, reg, "roofing_job_findings_total", map[string]string{"job": TaskLedgerIntegrity, "severity": "critical"}))
}

func TestIntegrityJobFailure(t *testing.T) {
	metrics, reg := newMetrics(t)
	job := NewIntegrityJob(staticPeriods{{ID: uuid.New()}}, skewedLedger{err: errors.New("db down")}, nil, metrics)

	_, err := job.Run(context.Background(), 2025)
	require.Error(t, err)
	assert.Equal(t, float64(1), counter(t, reg, "roofing_jobs_failures_total", map[string]string{"job": TaskLedgerIntegrity}))

	var unset *IntegrityJob
	assert.Error(t, unset.Handle(context.Background(), asynq.NewTask(TaskLedgerIntegrity, nil)))
}

func TestHandleRejectsMalformedPayload(t *testing.T) {
	job := NewPeriodsJob(nil, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskPeriodsGenerate, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestConsistencyJobRepairsLinks(t *testing.T) {
	ctx := context.Background()
	store := crm.NewMemoryStore()
	require.NoError(t, store.AddCustomer(ctx, crm.Customer{
		ID: "CUST-1", Type: crm.CustomerResidential, FirstName: "Dana", LastName: "Hill",
		Email: "dana.hill@example.com", Phone: "(555) 123-4567",
	}))
	require.NoError(t, store.AddProject(ctx, crm.Project{ID: "PRJ-1", Name: "Hill re-roof", CustomerID: "CUST-1"}))

	svc := consistency.NewService(events.NewBus(), consistency.NewStoreRepairer(store), nil)
	metrics, reg := newMetrics(t)
	job := NewConsistencyJob(store, svc, nil, metrics)

	report, fixed, err := job.Run(ctx, true)
	require.NoError(t, err)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, consistency.FixLinkCustomer, report.Issues[0].Fix)
	assert.Len(t, fixed.Fixed, 1)
	assert.Equal(t, float64(1), counter(t, reg, "roofing_job_findings_total", map[string]string{"job": TaskCRMConsistency, "severity": "medium"}))

	customer, err := store.GetCustomer(ctx, "CUST-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"PRJ-1"}, customer.ProjectIDs)

	task, err := NewConsistencyTask(false)
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, task))
}

func TestPeriodsJobGeneratesNextYear(t *testing.T) {
	periodSvc, _ := newLedger(t)
	job := NewPeriodsJob(periodSvc, nil, nil)
	job.clock = func() time.Time { return fixedNow }

	generated, err := job.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, generated, 17)
	assert.Equal(t, 2026, generated[0].Year)

	again, err := job.Run(context.Background(), 2026)
	require.NoError(t, err)
	assert.Equal(t, generated[0].ID, again[0].ID)
}

type recordingEnqueuer struct {
	tasks []string
}

func (r *recordingEnqueuer) Enqueue(_ context.Context, typename string) (*asynq.TaskInfo, error) {
	switch typename {
	case TaskLedgerIntegrity, TaskCRMConsistency, TaskPeriodsGenerate:
	default:
		return nil, ErrUnknownTask
	}
	r.tasks = append(r.tasks, typename)
	return &asynq.TaskInfo{ID: "t-1", Type: typename, Queue: QueueDefault}, nil
}

func TestHandlerRoutes(t *testing.T) {
	enq := &recordingEnqueuer{}
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, enq, nil).MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0,"active":0,"failed":0}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/ledger:integrity", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{TaskLedgerIntegrity}, enq.tasks)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/mail:send", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r2 := chi.NewRouter()
	r2.Route("/jobs", NewHandler(nil, nil, nil).MountRoutes)
	r2.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/ledger:integrity", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
