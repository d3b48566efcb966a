package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/periods"
	jobmetrics "github.com/odyssey-erp/roofing-ledger/internal/jobs"
)

// PeriodGenerator creates the fiscal periods of a year.
type PeriodGenerator interface {
	GenerateFiscalPeriodsForYear(ctx context.Context, year int) ([]periods.FiscalPeriod, error)
}

// PeriodsJob keeps the fiscal calendar one year ahead.
type PeriodsJob struct {
	Periods PeriodGenerator
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewPeriodsJob initialises the period generation handler.
func NewPeriodsJob(generator PeriodGenerator, logger *slog.Logger, metrics *jobmetrics.Metrics) *PeriodsJob {
	return &PeriodsJob{
		Periods: generator,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle generates the periods of the task's year.
func (j *PeriodsJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("periods generate: handler not configured")
	}
	var payload PeriodsPayload
	if err := decodePayload(t, &payload); err != nil {
		return err
	}
	_, err := j.Run(ctx, payload.Year)
	return err
}

// Run generates year, or next year when year is zero. Existing periods are
// left untouched.
func (j *PeriodsJob) Run(ctx context.Context, year int) (generated []periods.FiscalPeriod, resultErr error) {
	tracker := j.metrics().Track(TaskPeriodsGenerate)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()
	if j.Periods == nil {
		return nil, errors.New("periods generate: service not configured")
	}
	if year == 0 {
		year = j.now().Year() + 1
	}
	generated, err := j.Periods.GenerateFiscalPeriodsForYear(ctx, year)
	if err != nil {
		j.logger().Error("generate periods", slog.Int("year", year), slog.Any("error", err))
		return nil, err
	}
	j.logger().Info("fiscal calendar ready", slog.Int("year", year), slog.Int("periods", len(generated)))
	return generated, nil
}

func (j *PeriodsJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPeriodsGenerate))
	}
	return slog.Default().With(slog.String("job", TaskPeriodsGenerate))
}

func (j *PeriodsJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *PeriodsJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
