package jobs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pivotboard/internal/source"
)

func TestRecordsBumpIncrementsVersion(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := source.NewCache(client, time.Minute)

	ctx := context.Background()
	before, err := cache.Version(ctx)
	require.NoError(t, err)

	job := &RecordsBumpJob{Cache: cache}
	task, err := NewRecordsBumpTask(RecordsBumpPayload{Module: "service", Period: "Apr", Reason: "upload"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, task))

	after, err := cache.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, before+1, after)
}

func TestRecordsBumpRejectsMalformedPayload(t *testing.T) {
	job := &RecordsBumpJob{Cache: source.NewCache(nil, 0)}
	err := job.Handle(context.Background(), asynq.NewTask(TaskRecordsBump, []byte("nope")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	var unconfigured *RecordsBumpJob
	require.Error(t, unconfigured.Handle(context.Background(), asynq.NewTask(TaskRecordsBump, nil)))
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{Type: task.Type(), Queue: QueueDefault}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

func TestClientEnqueues(t *testing.T) {
	fake := &fakeEnqueuer{}
	client := &Client{client: fake}
	ctx := context.Background()

	info, err := client.EnqueueWarmup(ctx, DashboardWarmupPayload{Modules: []string{"service"}})
	require.NoError(t, err)
	require.Equal(t, TaskDashboardWarmup, info.Type)

	_, err = client.EnqueueBump(ctx, RecordsBumpPayload{Module: "service"})
	require.NoError(t, err)
	require.Len(t, fake.tasks, 2)
	require.JSONEq(t, `{"module":"service"}`, string(fake.tasks[1].Payload()))
	require.NoError(t, client.Close())
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return f.info, f.err
}

func TestHandlerHealth(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(fakeInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 3}}, nil).MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"queue":"default","pending":3}`, rr.Body.String())

	r = chi.NewRouter()
	r.Route("/jobs", NewHandler(fakeInspector{err: context.DeadlineExceeded}, nil).MountRoutes)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
