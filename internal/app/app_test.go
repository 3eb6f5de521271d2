package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pivotboard/internal/observability"
	"github.com/odyssey-erp/pivotboard/jobs"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("CACHE_TTL", "90s")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, 90*time.Second, cfg.CacheTTL)
	require.Equal(t, 4, cfg.FetchConcurrency)
	require.Equal(t, 3, cfg.WarmupPeriods)
	require.Equal(t, ":9090", cfg.OpsAddr)
	require.Empty(t, cfg.PagesFile)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Setenv("FETCH_CONCURRENCY", "0")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("FETCH_CONCURRENCY", "2")
	t.Setenv("WARMUP_PERIODS", "-1")
	_, err = LoadConfig()
	require.Error(t, err)

	t.Setenv("WARMUP_PERIODS", "many")
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestNewLoggerFormatAndLevel(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := newLogger(buf, &Config{LogFormat: "json", LogLevel: "warn"})
	logger.Info("hidden")
	logger.Warn("shown", "module", "service")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "shown", entry["msg"])
	require.Equal(t, "service", entry["module"])

	buf.Reset()
	newLogger(buf, nil).Debug("hidden")
	require.Empty(t, buf.String())
}

func TestOpsRouter(t *testing.T) {
	metrics := observability.NewMetrics()
	failing := errors.New("redis down")
	router := NewOpsRouter(OpsRouterParams{
		Config:     &Config{AppEnv: "production"},
		Metrics:    metrics,
		JobHandler: jobs.NewHandler(nil, nil),
		Checks: map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return failing },
		},
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.JSONEq(t, `{"postgres":"ok","redis":"redis down"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `pivotboard_ops_http_requests_total{code="200",route="/healthz"} 1`)
}
