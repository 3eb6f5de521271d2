package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/pivotboard/internal/dashboard"
	jobmetrics "github.com/odyssey-erp/pivotboard/internal/jobs"
)

// DefaultPeriodLayout formats warmup periods as calendar months.
const DefaultPeriodLayout = "2006-01"

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// DashboardLoader runs one dashboard rendering pass.
type DashboardLoader interface {
	Load(ctx context.Context, req dashboard.Request) (dashboard.View, error)
}

// DashboardWarmupJob rebuilds configured pages so their period records are
// cached before users open them.
type DashboardWarmupJob struct {
	Loader       DashboardLoader
	Modules      []string
	Periods      int
	PeriodLayout string
	Timeout      time.Duration
	Logger       *slog.Logger
	Metrics      *jobmetrics.Metrics
	clock        func() time.Time
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(loader DashboardLoader, modules []string, periods int, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardWarmupJob {
	return &DashboardWarmupJob{
		Loader:       loader,
		Modules:      modules,
		Periods:      periods,
		PeriodLayout: DefaultPeriodLayout,
		Timeout:      30 * time.Second,
		Logger:       logger,
		Metrics:      metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes dashboard warmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Loader == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	var payload DashboardWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(jobDashboardWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	modules := payload.Modules
	if len(modules) == 0 {
		modules = j.Modules
	}
	periods := payload.Periods
	if len(periods) == 0 {
		periods = RecentPeriods(j.now(), j.Periods, j.PeriodLayout)
	}

	logger := j.logger().With(slog.String("run_id", uuid.NewString()))
	if len(modules) == 0 || len(periods) == 0 {
		logger.Info("nothing to warm", slog.Int("modules", len(modules)), slog.Int("periods", len(periods)))
		return nil
	}
	logger.Info("starting dashboard warmup", slog.Any("modules", modules), slog.Any("periods", periods))

	started := time.Now()
	var errs []error
	for _, module := range modules {
		if err := j.warmModule(ctx, module, periods); err != nil {
			logger.Error("warm module", slog.String("module", module), slog.Any("error", err))
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		j.metrics().AddWarmed(module, 1)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	logger.Info("completed dashboard warmup", slog.Int("modules", len(modules)), slog.Duration("duration", time.Since(started)))
	return nil
}

func (j *DashboardWarmupJob) warmModule(ctx context.Context, module string, periods []string) error {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	moduleCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err := j.Loader.Load(moduleCtx, dashboard.Request{Module: module, Periods: periods})
	return err
}

// RecentPeriods returns the n calendar months ending with the month of now,
// oldest first, formatted with layout.
func RecentPeriods(now time.Time, n int, layout string) []string {
	if n <= 0 {
		return nil
	}
	if layout == "" {
		layout = DefaultPeriodLayout
	}
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	out := make([]string, n)
	for i := range n {
		out[i] = first.AddDate(0, i-n+1, 0).Format(layout)
	}
	return out
}

func (j *DashboardWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDashboardWarmup))
	}
	return slog.Default().With(slog.String("job", TaskDashboardWarmup))
}

func (j *DashboardWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *DashboardWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
