package main

import (
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/roofing-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/roofing-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/roofing-ledger/internal/app"
	"github.com/odyssey-erp/roofing-ledger/internal/consistency"
	"github.com/odyssey-erp/roofing-ledger/internal/crm"
	jobmetrics "github.com/odyssey-erp/roofing-ledger/internal/jobs"
	"github.com/odyssey-erp/roofing-ledger/jobs"
)

type services struct {
	periods     *periods.Service
	journals    *journals.Service
	store       crm.Store
	consistency *consistency.Service
}

// newWorker runs the scheduled checks in-process so they see the same CRM
// store the API writes to.
func newWorker(cfg *app.Config, logger *slog.Logger, metrics *jobmetrics.Metrics, svc services) (*jobs.Worker, error) {
	integrityJob := jobs.NewIntegrityJob(svc.periods, svc.journals, logger, metrics)
	consistencyJob := jobs.NewConsistencyJob(svc.store, svc.consistency, logger, metrics)
	periodsJob := jobs.NewPeriodsJob(svc.periods, logger, metrics)

	integrityTask, err := jobs.NewIntegrityTask(0)
	if err != nil {
		return nil, err
	}
	consistencyTask, err := jobs.NewConsistencyTask(true)
	if err != nil {
		return nil, err
	}
	periodsTask, err := jobs.NewPeriodsTask(0)
	if err != nil {
		return nil, err
	}

	return jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLedgerIntegrity, Handler: integrityJob.Handle},
			{Type: jobs.TaskCRMConsistency, Handler: consistencyJob.Handle},
			{Type: jobs.TaskPeriodsGenerate, Handler: periodsJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.IntegrityCron, Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.ConsistencyCron, Task: consistencyTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.PeriodsCron, Task: periodsTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
}
