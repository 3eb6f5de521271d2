package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDashboardWarmup rebuilds configured dashboard pages to prime the
	// record cache.
	TaskDashboardWarmup = "pivotboard:dashboard:warmup"
	// TaskRecordsBump invalidates cached period records after an upload.
	TaskRecordsBump = "pivotboard:records:bump"
)

// Job names used as the metrics "job" label.
const (
	jobDashboardWarmup = "dashboard_warmup"
	jobRecordsBump     = "records_bump"
)

// DashboardWarmupPayload scopes a warmup run. Empty fields fall back to every
// catalog module and the most recent configured periods.
type DashboardWarmupPayload struct {
	Modules []string `json:"modules,omitempty"`
	Periods []string `json:"periods,omitempty"`
}

// RecordsBumpPayload describes why cached records are invalidated.
type RecordsBumpPayload struct {
	Module string `json:"module,omitempty"`
	Period string `json:"period,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// NewDashboardWarmupTask constructs an Asynq task.
func NewDashboardWarmupTask(payload DashboardWarmupPayload, opts ...asynq.Option) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, data, opts...), nil
}

// NewRecordsBumpTask constructs an Asynq task.
func NewRecordsBumpTask(payload RecordsBumpPayload, opts ...asynq.Option) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecordsBump, data, opts...), nil
}
