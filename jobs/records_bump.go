package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/pivotboard/internal/jobs"
)

// Bumper invalidates cached period records.
type Bumper interface {
	Bump(ctx context.Context) error
}

// RecordsBumpJob bumps the record cache version after uploads land.
type RecordsBumpJob struct {
	Cache   Bumper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes record bump tasks.
func (j *RecordsBumpJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Cache == nil {
		return errors.New("records bump: handler not configured")
	}
	var payload RecordsBumpPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(jobRecordsBump)
	if err := j.Cache.Bump(ctx); err != nil {
		return tracker.End(err)
	}
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("record cache bumped",
		slog.String("job", TaskRecordsBump),
		slog.String("module", payload.Module),
		slog.String("period", payload.Period),
		slog.String("reason", payload.Reason),
	)
	return tracker.End(nil)
}
