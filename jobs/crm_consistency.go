package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/roofing-ledger/internal/consistency"
	"github.com/odyssey-erp/roofing-ledger/internal/crm"
	jobmetrics "github.com/odyssey-erp/roofing-ledger/internal/jobs"
)

// ConsistencyJob scans the CRM store and optionally repairs what it can.
type ConsistencyJob struct {
	Store   crm.Store
	Service *consistency.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewConsistencyJob initialises the CRM consistency handler.
func NewConsistencyJob(store crm.Store, service *consistency.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *ConsistencyJob {
	return &ConsistencyJob{Store: store, Service: service, Logger: logger, Metrics: metrics}
}

// Handle executes the scan described by the task payload.
func (j *ConsistencyJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("crm consistency: handler not configured")
	}
	var payload ConsistencyPayload
	if err := decodePayload(t, &payload); err != nil {
		return err
	}
	_, _, err := j.Run(ctx, payload.AutoFix)
	return err
}

// Run checks the store and, when autoFix is set, applies the fixable issues.
func (j *ConsistencyJob) Run(ctx context.Context, autoFix bool) (report consistency.Report, fixed consistency.FixResult, resultErr error) {
	tracker := j.metrics().Track(TaskCRMConsistency)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()
	if j.Store == nil || j.Service == nil {
		return report, fixed, errors.New("crm consistency: services not configured")
	}

	start := time.Now()
	logger := j.logger().With(slog.Bool("auto_fix", autoFix))
	snap, err := consistency.LoadSnapshot(ctx, j.Store)
	if err != nil {
		logger.Error("load snapshot", slog.Any("error", err))
		return report, fixed, err
	}
	report = j.Service.CheckDataConsistency(ctx, snap)

	bySeverity := make(map[consistency.Severity]int)
	for _, issue := range report.Issues {
		bySeverity[issue.Severity]++
	}
	for severity, count := range bySeverity {
		j.metrics().AddFindings(TaskCRMConsistency, string(severity), count)
	}

	if autoFix && len(report.Issues) > 0 {
		fixed = j.Service.AutoFixIssues(ctx, report.Issues)
		logger.Info("auto-fix applied",
			slog.Int("fixed", len(fixed.Fixed)),
			slog.Int("skipped", len(fixed.Skipped)),
			slog.Int("failed", len(fixed.Failed)),
		)
	}

	logger.Info("completed consistency scan",
		slog.Int("customers", len(snap.Customers)),
		slog.Int("employees", len(snap.Employees)),
		slog.Int("projects", len(snap.Projects)),
		slog.Int("issues", len(report.Issues)),
		slog.Duration("duration", time.Since(start)),
	)
	return report, fixed, nil
}

func (j *ConsistencyJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskCRMConsistency))
	}
	return slog.Default().With(slog.String("job", TaskCRMConsistency))
}

func (j *ConsistencyJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
