package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pivotboard/internal/dashboard"
	jobmetrics "github.com/odyssey-erp/pivotboard/internal/jobs"
)

type stubLoader struct {
	mu       sync.Mutex
	requests []dashboard.Request
	fail     map[string]error
}

func (s *stubLoader) Load(ctx context.Context, req dashboard.Request) (dashboard.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if _, ok := ctx.Deadline(); !ok {
		return dashboard.View{}, errors.New("missing deadline")
	}
	return dashboard.View{Module: req.Module}, s.fail[req.Module]
}

func newWarmupJob(loader DashboardLoader, modules []string) *DashboardWarmupJob {
	job := NewDashboardWarmupJob(loader, modules, 3, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.clock = func() time.Time { return time.Date(2025, time.February, 14, 9, 0, 0, 0, time.UTC) }
	return job
}

func TestDashboardWarmupDefaults(t *testing.T) {
	loader := &stubLoader{}
	job := newWarmupJob(loader, []string{"service", "sales"})

	task, err := NewDashboardWarmupTask(DashboardWarmupPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.Len(t, loader.requests, 2)
	require.Equal(t, "service", loader.requests[0].Module)
	require.Equal(t, []string{"2024-12", "2025-01", "2025-02"}, loader.requests[0].Periods)
	require.Equal(t, "sales", loader.requests[1].Module)
}

func TestDashboardWarmupPayloadOverrides(t *testing.T) {
	loader := &stubLoader{}
	job := newWarmupJob(loader, []string{"service", "sales"})

	task, err := NewDashboardWarmupTask(DashboardWarmupPayload{Modules: []string{"calls"}, Periods: []string{"Apr"}})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, []dashboard.Request{{Module: "calls", Periods: []string{"Apr"}}}, loader.requests)
}

func TestDashboardWarmupContinuesPastFailures(t *testing.T) {
	boom := errors.New("source down")
	loader := &stubLoader{fail: map[string]error{"service": boom}}
	job := newWarmupJob(loader, []string{"service", "sales"})

	err := job.Handle(context.Background(), asynq.NewTask(TaskDashboardWarmup, nil))
	require.ErrorIs(t, err, boom)
	require.Len(t, loader.requests, 2)
}

func TestDashboardWarmupRejectsMalformedPayload(t *testing.T) {
	job := newWarmupJob(&stubLoader{}, []string{"service"})
	err := job.Handle(context.Background(), asynq.NewTask(TaskDashboardWarmup, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestDashboardWarmupNotConfigured(t *testing.T) {
	var job *DashboardWarmupJob
	require.Error(t, job.Handle(context.Background(), asynq.NewTask(TaskDashboardWarmup, nil)))
}

func TestRecentPeriods(t *testing.T) {
	now := time.Date(2025, time.March, 31, 23, 0, 0, 0, time.UTC)
	require.Equal(t, []string{"2025-01", "2025-02", "2025-03"}, RecentPeriods(now, 3, ""))
	require.Equal(t, []string{"Dec 2024", "Jan 2025"}, RecentPeriods(time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC), 2, "Jan 2006"))
	require.Nil(t, RecentPeriods(now, 0, ""))
}

func TestDashboardWarmupRecordsJobMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	boom := errors.New("source down")
	loader := &stubLoader{fail: map[string]error{"sales": boom}}
	job := NewDashboardWarmupJob(loader, []string{"service", "sales"}, 1, nil, jobmetrics.NewMetrics(reg))

	require.ErrorIs(t, job.Handle(context.Background(), asynq.NewTask(TaskDashboardWarmup, nil)), boom)

	expected := `
# HELP pivotboard_jobs_total Total job executions partitioned by job name and status.
# TYPE pivotboard_jobs_total counter
pivotboard_jobs_total{job="dashboard_warmup",status="failure"} 1
# HELP pivotboard_warmup_pages_total Dashboard pages rebuilt by the warmup job.
# TYPE pivotboard_warmup_pages_total counter
pivotboard_warmup_pages_total{module="service"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "pivotboard_jobs_total", "pivotboard_warmup_pages_total"))
}
