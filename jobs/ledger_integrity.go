package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/roofing-ledger/internal/accounting/periods"
	jobmetrics "github.com/odyssey-erp/roofing-ledger/internal/jobs"
)

// PeriodLister lists the fiscal periods of a year.
type PeriodLister interface {
	List(ctx context.Context, filter periods.ListFilter) ([]periods.FiscalPeriod, error)
}

// TrialBalancer sums the posted entries of one period.
type TrialBalancer interface {
	TrialBalanceCheck(ctx context.Context, periodID uuid.UUID) (journals.TrialBalance, error)
}

// IntegrityJob verifies that every posted entry of a fiscal year balances.
type IntegrityJob struct {
	Periods PeriodLister
	Ledger  TrialBalancer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// IntegrityResult is what one run found.
type IntegrityResult struct {
	Year       int
	Periods    int
	Entries    int
	Unbalanced []string
}

// NewIntegrityJob initialises the ledger integrity handler.
func NewIntegrityJob(periodSvc PeriodLister, ledger TrialBalancer, logger *slog.Logger, metrics *jobmetrics.Metrics) *IntegrityJob {
	return &IntegrityJob{
		Periods: periodSvc,
		Ledger:  ledger,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the integrity check for the task's year.
func (j *IntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	var payload IntegrityPayload
	if err := decodePayload(t, &payload); err != nil {
		return err
	}
	_, err := j.Run(ctx, payload.Year)
	return err
}

// Run checks every period of year, or the current year when year is zero.
func (j *IntegrityJob) Run(ctx context.Context, year int) (result IntegrityResult, resultErr error) {
	tracker := j.metrics().Track(TaskLedgerIntegrity)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()
	if j.Periods == nil || j.Ledger == nil {
		return result, errors.New("ledger integrity: services not configured")
	}

	start := j.now()
	if year == 0 {
		year = start.Year()
	}
	result.Year = year
	logger := j.logger().With(slog.Int("year", year))
	logger.Info("starting ledger integrity check")

	list, err := j.Periods.List(ctx, periods.ListFilter{Year: year})
	if err != nil {
		logger.Error("list periods", slog.Any("error", err))
		return result, err
	}
	for _, p := range list {
		tb, err := j.Ledger.TrialBalanceCheck(ctx, p.ID)
		if err != nil {
			logger.Error("trial balance", slog.String("period", p.Name), slog.Any("error", err))
			return result, err
		}
		result.Periods++
		result.Entries += tb.Entries
		if tb.Balanced() {
			continue
		}
		logger.Warn("unbalanced period",
			slog.String("period", p.Name),
			slog.String("total_debit", tb.TotalDebit.StringFixed(2)),
			slog.String("total_credit", tb.TotalCredit.StringFixed(2)),
			slog.Any("entries", tb.Unbalanced),
		)
		result.Unbalanced = append(result.Unbalanced, tb.Unbalanced...)
	}
	j.metrics().AddFindings(TaskLedgerIntegrity, "critical", len(result.Unbalanced))

	logger.Info("completed ledger integrity check",
		slog.Int("periods", result.Periods),
		slog.Int("entries", result.Entries),
		slog.Int("unbalanced", len(result.Unbalanced)),
		slog.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (j *IntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerIntegrity))
	}
	return slog.Default().With(slog.String("job", TaskLedgerIntegrity))
}

func (j *IntegrityJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *IntegrityJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
