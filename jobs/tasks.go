package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/roofing-ledger/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskLedgerIntegrity re-runs the trial balance over a year's periods.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskCRMConsistency scans the CRM store for broken references.
	TaskCRMConsistency = "crm:consistency"
	// TaskPeriodsGenerate makes sure next year's fiscal periods exist.
	TaskPeriodsGenerate = "periods:generate"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// IntegrityPayload selects the fiscal year to verify. Zero means the
// current year.
type IntegrityPayload struct {
	Year int `json:"year"`
}

// ConsistencyPayload controls whether fixable issues are repaired.
type ConsistencyPayload struct {
	AutoFix bool `json:"autoFix"`
}

// PeriodsPayload selects the year to generate. Zero means next year.
type PeriodsPayload struct {
	Year int `json:"year"`
}

// NewIntegrityTask constructs a ledger integrity task.
func NewIntegrityTask(year int) (*asynq.Task, error) {
	return newTask(TaskLedgerIntegrity, IntegrityPayload{Year: year})
}

// NewConsistencyTask constructs a CRM consistency task.
func NewConsistencyTask(autoFix bool) (*asynq.Task, error) {
	return newTask(TaskCRMConsistency, ConsistencyPayload{AutoFix: autoFix})
}

// NewPeriodsTask constructs a fiscal period generation task.
func NewPeriodsTask(year int) (*asynq.Task, error) {
	return newTask(TaskPeriodsGenerate, PeriodsPayload{Year: year})
}

func newTask(typename string, payload any) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typename, data), nil
}

// decodePayload treats an empty payload as the zero value.
func decodePayload(t *asynq.Task, dst any) error {
	if len(t.Payload()) == 0 {
		return nil
	}
	if err := json.Unmarshal(t.Payload(), dst); err != nil {
		return asynq.SkipRetry
	}
	return nil
}
